package debounce

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AazimAnish/HarMonad/pkg/models"
)

// Debouncer converts the noisy angle stream into committed stable angles.
//
// The debounce window restarts on EVERY new sample, not only when the
// sample crosses into another token bucket: a hand trembling inside one
// range still delays commitment. This trades latency for "truly settled"
// readings.
type Debouncer struct {
	window time.Duration
	logger *logrus.Entry

	in  chan *float64
	out chan models.DebounceState

	// Latest snapshot for synchronous readers (status API).
	mu  sync.RWMutex
	cur models.DebounceState
}

// New creates a stability debouncer with the given settle window.
func New(window time.Duration, logger *logrus.Logger) *Debouncer {
	return &Debouncer{
		window: window,
		logger: logger.WithField("component", "debounce"),
		in:     make(chan *float64, 256),
		out:    make(chan models.DebounceState, 128),
	}
}

// Observe feeds a new angle observation. nil means the sensor disconnected
// or the angle dropped below the visibility floor; it clears all state.
func (d *Debouncer) Observe(angle *float64) {
	d.in <- angle
}

// States returns the channel of state transitions. Commits, restarts and
// clears are always delivered; per-second countdown ticks may be dropped
// when the consumer lags, they are display-only.
func (d *Debouncer) States() <-chan models.DebounceState {
	return d.out
}

// State returns the latest snapshot.
func (d *Debouncer) State() models.DebounceState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cur
}

// Run owns the debounce state machine until ctx is cancelled. All timer
// handling happens on this goroutine: a stale timer fire is drained before
// every reset, so it can never commit a cancelled window.
func (d *Debouncer) Run(ctx context.Context) {
	commit := time.NewTimer(d.window)
	stopTimer(commit)
	countdown := time.NewTicker(time.Second)
	countdown.Stop()
	defer commit.Stop()
	defer countdown.Stop()

	var state models.DebounceState

	for {
		select {
		case <-ctx.Done():
			return

		case angle := <-d.in:
			stopTimer(commit)

			if angle == nil {
				countdown.Stop()
				state = models.DebounceState{}
				d.publish(state, true)
				continue
			}

			state.RawAngle = angle
			state.StableAngle = nil
			state.IsStabilizing = true
			state.RemainingSeconds = int(math.Ceil(d.window.Seconds()))
			commit.Reset(d.window)
			countdown.Reset(time.Second)
			d.publish(state, true)

		case <-commit.C:
			countdown.Stop()
			state.StableAngle = state.RawAngle
			state.IsStabilizing = false
			state.RemainingSeconds = 0
			if state.StableAngle != nil {
				d.logger.WithField("angle", *state.StableAngle).Debug("Angle stabilized")
			}
			d.publish(state, true)

		case <-countdown.C:
			// A stray tick after Stop is harmless: the guard below keeps it
			// from touching settled state.
			if !state.IsStabilizing || state.RemainingSeconds <= 0 {
				continue
			}
			state.RemainingSeconds--
			d.publish(state, false)
		}
	}
}

func (d *Debouncer) publish(state models.DebounceState, critical bool) {
	d.mu.Lock()
	d.cur = state
	d.mu.Unlock()

	if critical {
		d.out <- state
		return
	}

	select {
	case d.out <- state:
	default:
		d.logger.Debug("State consumer lagging, dropping countdown tick")
	}
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
