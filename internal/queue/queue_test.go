package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AazimAnish/HarMonad/pkg/config"
	"github.com/AazimAnish/HarMonad/pkg/models"
)

func testConfig() *config.QueueConfig {
	return &config.QueueConfig{
		MinSpacing:     time.Millisecond,
		RetainTerminal: time.Minute,
		Cooldown:       5 * time.Second,
	}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// recordingExecutor tracks execution order and concurrency per user.
type recordingExecutor struct {
	mu        sync.Mutex
	order     []string
	inFlight  int
	maxFlight int
	delay     time.Duration
	fail      bool
	done      chan struct{}
	remaining int
}

func newRecordingExecutor(expected int, delay time.Duration) *recordingExecutor {
	return &recordingExecutor{
		delay:     delay,
		done:      make(chan struct{}),
		remaining: expected,
	}
}

func (e *recordingExecutor) exec(ctx context.Context, req *models.QueuedSwapRequest) error {
	e.mu.Lock()
	e.inFlight++
	if e.inFlight > e.maxFlight {
		e.maxFlight = e.inFlight
	}
	e.order = append(e.order, req.TokenSymbol)
	e.mu.Unlock()

	time.Sleep(e.delay)

	e.mu.Lock()
	e.inFlight--
	e.remaining--
	if e.remaining == 0 {
		close(e.done)
	}
	fail := e.fail
	e.mu.Unlock()

	if fail {
		return context.DeadlineExceeded
	}
	return nil
}

func TestEnqueueRequiresStart(t *testing.T) {
	q := New(testConfig(), func(ctx context.Context, req *models.QueuedSwapRequest) error {
		return nil
	}, testLogger())

	_, err := q.Enqueue(42, "USDT", "0xabc")
	assert.Error(t, err)
}

func TestFIFOSingleFlightPerUser(t *testing.T) {
	exec := newRecordingExecutor(3, 10*time.Millisecond)
	q := New(testConfig(), exec.exec, testLogger())
	require.NoError(t, q.Start(context.Background()))

	_, err := q.Enqueue(25, "USDC", "0xabc")
	require.NoError(t, err)
	_, err = q.Enqueue(42, "USDT", "0xabc")
	require.NoError(t, err)
	_, err = q.Enqueue(55, "WBTC", "0xabc")
	require.NoError(t, err)

	select {
	case <-exec.done:
	case <-time.After(5 * time.Second):
		t.Fatal("executions did not finish")
	}

	exec.mu.Lock()
	defer exec.mu.Unlock()
	assert.Equal(t, []string{"USDC", "USDT", "WBTC"}, exec.order)
	assert.Equal(t, 1, exec.maxFlight, "same user must never execute concurrently")
}

func TestTerminalStatusRetained(t *testing.T) {
	exec := newRecordingExecutor(1, 0)
	q := New(testConfig(), exec.exec, testLogger())
	require.NoError(t, q.Start(context.Background()))

	id, err := q.Enqueue(25, "USDC", "0xabc")
	require.NoError(t, err)

	select {
	case <-exec.done:
	case <-time.After(5 * time.Second):
		t.Fatal("execution did not finish")
	}

	// RetainTerminal is a minute, so the entry is still visible.
	require.Eventually(t, func() bool {
		req := q.Get(id)
		return req != nil && req.Status == models.SwapStatusCompleted
	}, time.Second, 5*time.Millisecond)
}

func TestFailedExecutionMarksFailed(t *testing.T) {
	exec := newRecordingExecutor(1, 0)
	exec.fail = true
	q := New(testConfig(), exec.exec, testLogger())
	require.NoError(t, q.Start(context.Background()))

	id, err := q.Enqueue(90, "WSOL", "0xabc")
	require.NoError(t, err)

	select {
	case <-exec.done:
	case <-time.After(5 * time.Second):
		t.Fatal("execution did not finish")
	}

	require.Eventually(t, func() bool {
		req := q.Get(id)
		return req != nil && req.Status == models.SwapStatusFailed
	}, time.Second, 5*time.Millisecond)
}

func TestClearUserDropsPending(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	q := New(testConfig(), func(ctx context.Context, req *models.QueuedSwapRequest) error {
		once.Do(func() { close(started) })
		<-block
		return nil
	}, testLogger())
	require.NoError(t, q.Start(context.Background()))

	_, err := q.Enqueue(25, "USDC", "0xabc")
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first request never started")
	}

	pendingID, err := q.Enqueue(42, "USDT", "0xabc")
	require.NoError(t, err)

	q.ClearUser("0xabc")
	close(block)

	assert.Nil(t, q.Get(pendingID), "pending request should be dropped")

	requests, _ := q.Snapshot()
	for _, req := range requests {
		assert.NotEqual(t, pendingID, req.ID)
	}

	require.NoError(t, q.Stop())
}

func TestClearUserNormalizesAddressCase(t *testing.T) {
	const checksummed = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"

	block := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	q := New(testConfig(), func(ctx context.Context, req *models.QueuedSwapRequest) error {
		once.Do(func() { close(started) })
		<-block
		return nil
	}, testLogger())
	require.NoError(t, q.Start(context.Background()))

	// Enqueued under the checksummed form, as the wallet reports it.
	_, err := q.Enqueue(25, "USDC", checksummed)
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first request never started")
	}

	pendingID, err := q.Enqueue(42, "USDT", checksummed)
	require.NoError(t, err)

	// Revocation paths lowercase the address before clearing.
	q.ClearUser("0xab5801a7d398351b8be11c439e05c5b3259aec9b")
	close(block)

	assert.Nil(t, q.Get(pendingID), "pending request must not survive revocation")

	require.NoError(t, q.Stop())
}

func TestSnapshotCounts(t *testing.T) {
	exec := newRecordingExecutor(2, 0)
	q := New(testConfig(), exec.exec, testLogger())
	require.NoError(t, q.Start(context.Background()))

	_, err := q.Enqueue(25, "USDC", "0xaaa")
	require.NoError(t, err)
	_, err = q.Enqueue(42, "USDT", "0xbbb")
	require.NoError(t, err)

	select {
	case <-exec.done:
	case <-time.After(5 * time.Second):
		t.Fatal("executions did not finish")
	}

	require.Eventually(t, func() bool {
		_, counts := q.Snapshot()
		return counts[models.SwapStatusCompleted] == 2
	}, time.Second, 5*time.Millisecond)
}
