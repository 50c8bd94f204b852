package debounce

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AazimAnish/HarMonad/pkg/models"
)

func newTestDebouncer(t *testing.T, window time.Duration) (*Debouncer, context.CancelFunc) {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	d := New(window, logger)
	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)

	return d, cancel
}

// waitForState drains transitions until pred matches or the deadline hits.
func waitForState(t *testing.T, d *Debouncer, timeout time.Duration, pred func(models.DebounceState) bool) models.DebounceState {
	t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case state := <-d.States():
			if pred(state) {
				return state
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state")
			return models.DebounceState{}
		}
	}
}

func TestCommitAfterWindow(t *testing.T) {
	d, cancel := newTestDebouncer(t, 50*time.Millisecond)
	defer cancel()

	angle := 42.0
	d.Observe(&angle)

	state := waitForState(t, d, time.Second, func(s models.DebounceState) bool {
		return s.Stable()
	})

	require.NotNil(t, state.StableAngle)
	assert.Equal(t, 42.0, *state.StableAngle)
	assert.Equal(t, 0, state.RemainingSeconds)
}

func TestNewSampleRestartsWindow(t *testing.T) {
	d, cancel := newTestDebouncer(t, 80*time.Millisecond)
	defer cancel()

	first := 30.0
	d.Observe(&first)
	time.Sleep(40 * time.Millisecond)

	// Second sample lands mid-window; only it may commit.
	second := 31.0
	d.Observe(&second)

	state := waitForState(t, d, time.Second, func(s models.DebounceState) bool {
		return s.Stable()
	})

	require.NotNil(t, state.StableAngle)
	assert.Equal(t, 31.0, *state.StableAngle)
}

func TestNilClearsState(t *testing.T) {
	d, cancel := newTestDebouncer(t, 50*time.Millisecond)
	defer cancel()

	angle := 70.0
	d.Observe(&angle)
	d.Observe(nil)

	state := waitForState(t, d, time.Second, func(s models.DebounceState) bool {
		return s.RawAngle == nil && !s.IsStabilizing
	})

	assert.Nil(t, state.StableAngle)
	assert.False(t, state.Stable())

	// The cancelled window must never commit afterwards.
	select {
	case state := <-d.States():
		assert.False(t, state.Stable(), "cleared window committed anyway")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestStabilizingSnapshot(t *testing.T) {
	d, cancel := newTestDebouncer(t, 3*time.Second)
	defer cancel()

	angle := 55.5
	d.Observe(&angle)

	state := waitForState(t, d, time.Second, func(s models.DebounceState) bool {
		return s.IsStabilizing
	})

	require.NotNil(t, state.RawAngle)
	assert.Equal(t, 55.5, *state.RawAngle)
	assert.Nil(t, state.StableAngle)
	assert.Equal(t, 3, state.RemainingSeconds)

	// Synchronous snapshot agrees with the stream.
	snap := d.State()
	assert.True(t, snap.IsStabilizing)
}

func TestRecommitAfterNewSample(t *testing.T) {
	d, cancel := newTestDebouncer(t, 30*time.Millisecond)
	defer cancel()

	first := 25.0
	d.Observe(&first)
	waitForState(t, d, time.Second, func(s models.DebounceState) bool {
		return s.Stable()
	})

	second := 90.0
	d.Observe(&second)
	state := waitForState(t, d, time.Second, func(s models.DebounceState) bool {
		return s.Stable()
	})

	require.NotNil(t, state.StableAngle)
	assert.Equal(t, 90.0, *state.StableAngle)
}
