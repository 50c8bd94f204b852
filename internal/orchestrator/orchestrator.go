package orchestrator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AazimAnish/HarMonad/internal/auth"
	"github.com/AazimAnish/HarMonad/internal/debounce"
	"github.com/AazimAnish/HarMonad/internal/history"
	"github.com/AazimAnish/HarMonad/internal/messaging"
	"github.com/AazimAnish/HarMonad/internal/queue"
	"github.com/AazimAnish/HarMonad/internal/swap"
	"github.com/AazimAnish/HarMonad/internal/telemetry"
	"github.com/AazimAnish/HarMonad/internal/tokens"
	"github.com/AazimAnish/HarMonad/internal/wallet"
	"github.com/AazimAnish/HarMonad/pkg/config"
	"github.com/AazimAnish/HarMonad/pkg/models"
)

// duplicateAngleTolerance is how close two stable angles must be, in
// degrees, for the second trigger to count as the same physical posture.
const duplicateAngleTolerance = 1.0

// Orchestrator connects the stable-angle stream to swap execution. It is
// the only component that decides whether a stable reading becomes a
// queued swap; everything downstream just executes what it enqueues.
type Orchestrator struct {
	cfg       *config.Config
	debouncer *debounce.Debouncer
	auth      *auth.Store
	queue     *queue.Queue
	swaps     *swap.Client
	wallet    wallet.Wallet
	history   *history.Store
	bus       messaging.Bus
	recorder  telemetry.Recorder
	logger    *logrus.Entry

	// Duplicate suppression state for the cooldown window.
	mu        sync.Mutex
	lastToken string
	lastAngle float64
	lastAt    time.Time

	wg sync.WaitGroup
}

// New creates the orchestrator and the swap queue it feeds.
func New(
	cfg *config.Config,
	deb *debounce.Debouncer,
	authStore *auth.Store,
	swaps *swap.Client,
	w wallet.Wallet,
	hist *history.Store,
	bus messaging.Bus,
	recorder telemetry.Recorder,
	logger *logrus.Logger,
) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		debouncer: deb,
		auth:      authStore,
		swaps:     swaps,
		wallet:    w,
		history:   hist,
		bus:       bus,
		recorder:  recorder,
		logger:    logger.WithField("component", "orchestrator"),
	}
	o.queue = queue.New(&cfg.Queue, o.execute, logger)
	return o
}

// Queue returns the swap request queue for status reporting.
func (o *Orchestrator) Queue() *queue.Queue {
	return o.queue
}

// Start begins consuming debounce state transitions.
func (o *Orchestrator) Start(ctx context.Context) error {
	if err := o.queue.Start(ctx); err != nil {
		return err
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case state, ok := <-o.debouncer.States():
				if !ok {
					return
				}
				o.bus.PublishAngle(state)
				o.recorder.RecordAngle(ctx, state)
				if state.Stable() {
					o.handleStable(ctx, state)
				}
			}
		}
	}()

	o.logger.Info("Orchestrator started")
	return nil
}

// Stop waits for the state consumer and drains the queue.
func (o *Orchestrator) Stop() error {
	o.wg.Wait()
	return o.queue.Stop()
}

// handleStable turns one committed angle into at most one queued swap.
func (o *Orchestrator) handleStable(ctx context.Context, state models.DebounceState) {
	angle := *state.StableAngle
	token := tokens.Resolve(angle)
	if token == nil {
		o.logger.WithField("angle", angle).Debug("Stable angle outside the tradable range")
		return
	}

	user := o.wallet.Address().Hex()
	if !o.auth.IsAuthorized(ctx, user) {
		o.logger.WithFields(logrus.Fields{
			"angle": angle,
			"token": token.Symbol,
		}).Debug("Stable angle ignored, no active authorization")
		return
	}

	if o.isDuplicate(token.Symbol, angle) {
		o.logger.WithFields(logrus.Fields{
			"angle": angle,
			"token": token.Symbol,
		}).Debug("Stable angle suppressed as duplicate")
		return
	}

	id, err := o.queue.Enqueue(angle, token.Symbol, user)
	if err != nil {
		o.logger.WithError(err).Error("Failed to enqueue swap")
		return
	}
	o.rememberTrigger(token.Symbol, angle)

	o.logger.WithFields(logrus.Fields{
		"id":    id,
		"angle": angle,
		"token": token.Symbol,
	}).Info("Swap queued")
}

// isDuplicate reports whether a trigger repeats the previous one: same
// token, nearly the same angle, inside the cooldown window. A genuinely
// new posture that happens to land in the same token bucket still trades
// once the angle moved more than the tolerance.
func (o *Orchestrator) isDuplicate(symbol string, angle float64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.lastToken != symbol {
		return false
	}
	if time.Since(o.lastAt) > o.cfg.Queue.Cooldown {
		return false
	}
	return math.Abs(angle-o.lastAngle) <= duplicateAngleTolerance
}

func (o *Orchestrator) rememberTrigger(symbol string, angle float64) {
	o.mu.Lock()
	o.lastToken = symbol
	o.lastAngle = angle
	o.lastAt = time.Now()
	o.mu.Unlock()
}

// execute runs one queued swap end to end. It is called by the queue's
// per-user drain goroutine, never concurrently for the same user.
func (o *Orchestrator) execute(ctx context.Context, req *models.QueuedSwapRequest) error {
	// Consent may have been withdrawn while the request sat in the queue.
	if !o.auth.IsAuthorized(ctx, req.UserAddress) {
		return o.record(ctx, req, models.SwapExecutionResult{
			Success:   false,
			ErrorKind: models.ErrKindAuthorization,
			Error:     "authorization revoked before execution",
		})
	}

	rng := tokens.RangeForSymbol(req.TokenSymbol)
	if rng == nil {
		return o.record(ctx, req, models.SwapExecutionResult{
			Success:   false,
			ErrorKind: models.ErrKindQuote,
			Error:     fmt.Sprintf("unknown token %s", req.TokenSymbol),
		})
	}

	quote, err := o.swaps.GetQuote(
		ctx,
		swap.NativeTokenAddress,
		rng.Token.Address.Hex(),
		o.cfg.Routing.SellAmount,
		req.UserAddress,
		o.cfg.Routing.SlippageBps,
		o.cfg.Chain.ID,
	)
	if err != nil {
		return o.record(ctx, req, models.SwapExecutionResult{
			Success:   false,
			ErrorKind: models.KindOf(err),
			Error:     err.Error(),
		})
	}

	if quote.Degraded() {
		o.logger.WithFields(logrus.Fields{
			"id":    req.ID,
			"token": req.TokenSymbol,
		}).Warn("Executing on a degraded fallback quote")
	}

	tx, err := swap.CreateTransaction(quote, req.UserAddress)
	if err != nil {
		return o.record(ctx, req, models.SwapExecutionResult{
			Success:   false,
			ErrorKind: models.KindOf(err),
			Error:     err.Error(),
		})
	}

	txHash, err := o.wallet.SendTransaction(ctx, tx)
	if err != nil {
		return o.record(ctx, req, models.SwapExecutionResult{
			Success:   false,
			ErrorKind: models.KindOf(err),
			Error:     err.Error(),
		})
	}

	return o.record(ctx, req, models.SwapExecutionResult{
		Success:    true,
		TxHash:     txHash,
		SellAmount: quote.SellAmount,
		BuyAmount:  quote.BuyAmount,
	})
}

// record fills in trigger context, persists the result, and publishes it.
// The returned error feeds the queue's terminal status.
func (o *Orchestrator) record(ctx context.Context, req *models.QueuedSwapRequest, result models.SwapExecutionResult) error {
	result.Timestamp = time.Now()
	result.Angle = req.Angle
	result.TokenSymbol = req.TokenSymbol

	if err := o.history.Append(ctx, req.UserAddress, result); err != nil {
		o.logger.WithError(err).Warn("Failed to persist swap history")
	}
	o.bus.PublishSwap(result)
	o.recorder.RecordSwap(ctx, result)

	if result.Success {
		o.logger.WithFields(logrus.Fields{
			"id":      req.ID,
			"token":   req.TokenSymbol,
			"tx_hash": result.TxHash,
		}).Info("Swap completed")
		return nil
	}

	o.logger.WithFields(logrus.Fields{
		"id":    req.ID,
		"token": req.TokenSymbol,
		"kind":  result.ErrorKind,
	}).Warn("Swap failed")
	return fmt.Errorf("%s", result.Error)
}

// OnAccountChanged clears all per-user state when the signing account
// switches. Stale authorizations and queued requests from the previous
// account must never execute against the new one.
func (o *Orchestrator) OnAccountChanged(ctx context.Context, previousAddress string) {
	if err := o.auth.Revoke(ctx, previousAddress); err != nil {
		o.logger.WithError(err).Warn("Failed to revoke authorization on account change")
	}
	o.queue.ClearUser(previousAddress)
	if err := o.history.Clear(ctx, previousAddress); err != nil {
		o.logger.WithError(err).Warn("Failed to clear history on account change")
	}
	o.logger.WithField("address", previousAddress).Info("Account state cleared")
}
