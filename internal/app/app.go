package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AazimAnish/HarMonad/internal/api"
	"github.com/AazimAnish/HarMonad/internal/auth"
	"github.com/AazimAnish/HarMonad/internal/debounce"
	"github.com/AazimAnish/HarMonad/internal/history"
	"github.com/AazimAnish/HarMonad/internal/messaging"
	"github.com/AazimAnish/HarMonad/internal/orchestrator"
	"github.com/AazimAnish/HarMonad/internal/sensor"
	"github.com/AazimAnish/HarMonad/internal/store"
	"github.com/AazimAnish/HarMonad/internal/swap"
	"github.com/AazimAnish/HarMonad/internal/telemetry"
	"github.com/AazimAnish/HarMonad/internal/tokens"
	"github.com/AazimAnish/HarMonad/internal/wallet"
	"github.com/AazimAnish/HarMonad/pkg/config"
)

// App represents the main application
type App struct {
	cfg    *config.Config
	logger *logrus.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Core components
	kv        store.Store
	wallet    wallet.Wallet
	sensor    *sensor.Client
	debouncer *debounce.Debouncer
	swaps     *swap.Client
	authStore *auth.Store
	history   *history.Store
	bus       messaging.Bus
	recorder  telemetry.Recorder

	// Services
	orch      *orchestrator.Orchestrator
	apiServer *api.Server
}

// New creates a new application instance
func New(cfg *config.Config, logger *logrus.Logger) *App {
	ctx, cancel := context.WithCancel(context.Background())

	return &App{
		cfg:    cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Initialize initializes all application components
func (a *App) Initialize() error {
	if err := a.initializeStore(); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	if err := a.initializeWallet(); err != nil {
		return fmt.Errorf("failed to initialize wallet: %w", err)
	}

	if err := a.initializeMessaging(); err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}

	a.initializeTelemetry()
	a.initializePipeline()
	a.initializeAPIServer()

	return nil
}

// initializeStore connects to Redis, falling back to an in-process store
// so the pipeline still runs on a machine without Redis.
func (a *App) initializeStore() error {
	redisStore, err := store.NewRedisStore(&a.cfg.Redis, a.logger)
	if err != nil {
		a.logger.WithError(err).Warn("Redis unavailable, using in-memory store")
		a.kv = store.NewMemoryStore()
		return nil
	}
	a.kv = redisStore
	return nil
}

func (a *App) initializeWallet() error {
	w, err := wallet.NewKeyWallet(a.ctx, &a.cfg.Wallet, &a.cfg.Chain, a.logger)
	if err != nil {
		return err
	}
	a.wallet = w
	return nil
}

func (a *App) initializeMessaging() error {
	if !a.cfg.Features.EventBusEnabled {
		a.bus = messaging.NoopBus{}
		return nil
	}

	bus, err := messaging.NewNATSBus(&a.cfg.NATS, a.logger)
	if err != nil {
		return err
	}
	a.bus = bus
	return nil
}

func (a *App) initializeTelemetry() {
	if !a.cfg.Features.TelemetryEnabled {
		a.recorder = telemetry.NoopRecorder{}
		return
	}

	recorder := telemetry.NewInfluxRecorder(&a.cfg.InfluxDB, a.logger)

	// Telemetry is best-effort; an unreachable InfluxDB is worth a warning
	// but must not keep the pipeline from starting.
	ctx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
	defer cancel()
	if err := recorder.Health(ctx); err != nil {
		a.logger.WithError(err).Warn("InfluxDB unreachable, telemetry writes will be dropped")
	}

	a.recorder = recorder
}

func (a *App) initializePipeline() {
	a.sensor = sensor.NewClient(&a.cfg.Sensor, a.logger)
	a.debouncer = debounce.New(a.cfg.Debounce.Window, a.logger)
	a.swaps = swap.NewClient(&a.cfg.Routing, &a.cfg.Chain, a.logger)
	a.authStore = auth.NewStore(
		a.kv,
		&a.cfg.Chain,
		&a.cfg.Wallet,
		a.cfg.Features.AuthValidity,
		a.cfg.Routing.SellAmount,
		a.logger,
	)
	a.history = history.NewStore(a.kv, a.cfg.Features.HistoryLimit, a.logger)

	a.orch = orchestrator.New(
		a.cfg,
		a.debouncer,
		a.authStore,
		a.swaps,
		a.wallet,
		a.history,
		a.bus,
		a.recorder,
		a.logger,
	)
}

func (a *App) initializeAPIServer() {
	a.apiServer = api.NewServer(
		a.cfg,
		a.logger,
		a.sensor,
		a.debouncer,
		a.authStore,
		a.orch,
		a.history,
		a.wallet,
		a.kv,
	)
}

// Start starts the application
func (a *App) Start() error {
	// Orchestrator first, so no stable angle can be dropped.
	if err := a.orch.Start(a.ctx); err != nil {
		return fmt.Errorf("failed to start orchestrator: %w", err)
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.debouncer.Run(a.ctx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.sensor.Run(a.ctx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.forwardSamples()
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.authStore.Run(a.ctx)
	}()

	// Start API server
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.apiServer.Start(); err != nil {
			if err != http.ErrServerClosed {
				a.logger.WithError(err).Error("API server error")
			}
		}
	}()

	return nil
}

// forwardSamples feeds sensor readings into the debouncer. Readings below
// the visibility floor mean the lid is effectively closed, so they are
// forwarded as nil exactly like a sensor disconnect.
func (a *App) forwardSamples() {
	for {
		select {
		case <-a.ctx.Done():
			return
		case sample, ok := <-a.sensor.Samples():
			if !ok {
				return
			}
			if sample == nil {
				a.debouncer.Observe(nil)
				continue
			}
			angle := sample.Angle
			if angle < tokens.MinVisibleAngle {
				a.debouncer.Observe(nil)
				continue
			}
			a.debouncer.Observe(&angle)
		}
	}
}

// Stop gracefully stops the application
func (a *App) Stop() error {
	a.logger.Info("Stopping application...")

	a.cancel()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.logger.Info("All goroutines stopped")
	case <-time.After(3 * time.Second):
		a.logger.Warn("Timeout waiting for goroutines to finish")
	}

	a.stopServicesWithTimeout()

	a.closeConnections()

	a.logger.Info("Application stopped successfully")
	return nil
}

// stopServicesWithTimeout stops each service with a timeout
func (a *App) stopServicesWithTimeout() {
	if a.apiServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := a.apiServer.Stop(ctx); err != nil {
			a.logger.WithError(err).Error("Error stopping API server")
		}
		cancel()
	}

	if a.orch != nil {
		if err := a.orch.Stop(); err != nil {
			a.logger.WithError(err).Error("Error stopping orchestrator")
		}
	}
}

// closeConnections closes external connections
func (a *App) closeConnections() {
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.logger.WithError(err).Error("Error closing event bus")
		}
	}

	if a.recorder != nil {
		a.recorder.Close()
	}

	if closer, ok := a.wallet.(interface{ Close() }); ok {
		closer.Close()
	}

	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			a.logger.WithError(err).Error("Error closing store")
		}
	}
}
