package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/AazimAnish/HarMonad/pkg/config"
	"github.com/AazimAnish/HarMonad/pkg/models"
)

// Executor performs one swap attempt. The queue owns status transitions;
// the executor owns everything else (quote, transaction, history).
type Executor func(ctx context.Context, req *models.QueuedSwapRequest) error

// Queue serializes swap attempts per user. A burst of N stabilization
// events produces N entries but never more than one in-flight execution
// per user; entries drain strictly in submission order. Terminal entries
// stay visible for a grace period, then vanish. Nothing is ever retried:
// a failed request is recorded and dropped, and only a fresh stabilization
// event can queue a new attempt.
type Queue struct {
	cfg    *config.QueueConfig
	exec   Executor
	logger *logrus.Entry

	mu       sync.Mutex
	requests map[string]*models.QueuedSwapRequest
	order    []string            // submission order, for snapshots
	pending  map[string][]string // per-user FIFO of request ids
	draining map[string]bool     // per-user single-flight guard

	ctx     context.Context
	wg      sync.WaitGroup
	started bool
}

// New creates a swap request queue with the given executor.
func New(cfg *config.QueueConfig, exec Executor, logger *logrus.Logger) *Queue {
	return &Queue{
		cfg:      cfg,
		exec:     exec,
		logger:   logger.WithField("component", "queue"),
		requests: make(map[string]*models.QueuedSwapRequest),
		pending:  make(map[string][]string),
		draining: make(map[string]bool),
	}
}

// Start binds the queue to its run context.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return fmt.Errorf("queue already started")
	}
	q.ctx = ctx
	q.started = true
	return nil
}

// Stop waits for in-flight executions to finish. Requests already in
// processing run to completion; pending ones stay pending.
func (q *Queue) Stop() error {
	q.wg.Wait()
	return nil
}

// Enqueue adds a swap attempt for a user and wakes the user's drain worker.
// Addresses are lowercased so checksummed and lowercase callers hit the
// same per-user queue.
func (q *Queue) Enqueue(angle float64, tokenSymbol, userAddress string) (string, error) {
	userAddress = strings.ToLower(userAddress)

	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.started {
		return "", fmt.Errorf("queue not started")
	}

	req := &models.QueuedSwapRequest{
		ID:          uuid.NewString(),
		Angle:       angle,
		TokenSymbol: tokenSymbol,
		UserAddress: userAddress,
		SubmittedAt: time.Now(),
		Status:      models.SwapStatusPending,
	}

	q.requests[req.ID] = req
	q.order = append(q.order, req.ID)
	q.pending[userAddress] = append(q.pending[userAddress], req.ID)

	q.logger.WithFields(logrus.Fields{
		"id":    req.ID,
		"angle": angle,
		"token": tokenSymbol,
		"user":  userAddress,
	}).Info("Swap queued")

	if !q.draining[userAddress] {
		q.draining[userAddress] = true
		q.wg.Add(1)
		go q.drain(userAddress)
	}

	return req.ID, nil
}

// drain executes a user's pending requests one at a time, FIFO, and exits
// when the user's queue is empty.
func (q *Queue) drain(userAddress string) {
	defer q.wg.Done()

	for {
		req := q.next(userAddress)
		if req == nil {
			return
		}

		// Spacing floor between executions: keeps the quote API off the
		// rate limiter and lets the previous submission settle.
		select {
		case <-q.ctx.Done():
			q.finish(req, q.ctx.Err())
			continue
		case <-time.After(q.cfg.MinSpacing):
		}

		q.setStatus(req, models.SwapStatusProcessing)
		err := q.exec(q.ctx, req)
		q.finish(req, err)
	}
}

// next pops the head of a user's FIFO, or nil if the user has no pending
// work, releasing the single-flight guard.
func (q *Queue) next(userAddress string) *models.QueuedSwapRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	ids := q.pending[userAddress]
	if len(ids) == 0 {
		q.draining[userAddress] = false
		return nil
	}

	id := ids[0]
	q.pending[userAddress] = ids[1:]
	return q.requests[id]
}

func (q *Queue) setStatus(req *models.QueuedSwapRequest, status models.SwapStatus) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if req.Status.Terminal() {
		return
	}
	req.Status = status
}

// finish moves a request to its terminal state and schedules its purge.
func (q *Queue) finish(req *models.QueuedSwapRequest, err error) {
	status := models.SwapStatusCompleted
	if err != nil {
		status = models.SwapStatusFailed
		q.logger.WithError(err).WithField("id", req.ID).Warn("Swap failed")
	} else {
		q.logger.WithField("id", req.ID).Info("Swap completed")
	}

	q.setStatus(req, status)

	time.AfterFunc(q.cfg.RetainTerminal, func() {
		q.remove(req.ID)
	})
}

func (q *Queue) remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.requests, id)
	for i, other := range q.order {
		if other == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

// ClearUser drops a user's pending requests (account change). A request
// already in processing runs to completion and cannot be cancelled.
func (q *Queue) ClearUser(userAddress string) {
	userAddress = strings.ToLower(userAddress)

	q.mu.Lock()
	defer q.mu.Unlock()

	dropped := make(map[string]bool)
	for _, id := range q.pending[userAddress] {
		if req, ok := q.requests[id]; ok && req.Status == models.SwapStatusPending {
			req.Status = models.SwapStatusFailed
			delete(q.requests, id)
			dropped[id] = true
		}
	}
	delete(q.pending, userAddress)

	if len(dropped) > 0 {
		kept := q.order[:0]
		for _, id := range q.order {
			if !dropped[id] {
				kept = append(kept, id)
			}
		}
		q.order = kept
	}
}

// Get returns a copy of one request, or nil.
func (q *Queue) Get(id string) *models.QueuedSwapRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	req, ok := q.requests[id]
	if !ok {
		return nil
	}
	out := *req
	return &out
}

// Snapshot returns all live requests in submission order plus counts per
// status, for the status API.
func (q *Queue) Snapshot() ([]models.QueuedSwapRequest, map[models.SwapStatus]int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.QueuedSwapRequest, 0, len(q.order))
	counts := make(map[models.SwapStatus]int)
	for _, id := range q.order {
		if req, ok := q.requests[id]; ok {
			out = append(out, *req)
			counts[req.Status]++
		}
	}
	return out, counts
}
