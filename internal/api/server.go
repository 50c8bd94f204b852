package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/AazimAnish/HarMonad/internal/auth"
	"github.com/AazimAnish/HarMonad/internal/debounce"
	"github.com/AazimAnish/HarMonad/internal/history"
	"github.com/AazimAnish/HarMonad/internal/orchestrator"
	"github.com/AazimAnish/HarMonad/internal/sensor"
	"github.com/AazimAnish/HarMonad/internal/store"
	"github.com/AazimAnish/HarMonad/internal/tokens"
	"github.com/AazimAnish/HarMonad/internal/wallet"
	"github.com/AazimAnish/HarMonad/pkg/config"
	"github.com/AazimAnish/HarMonad/pkg/logger"
)

// Server exposes the pipeline's status and authorization API.
type Server struct {
	cfg        *config.Config
	logger     *logrus.Logger
	router     *mux.Router
	httpServer *http.Server

	// Dependencies
	sensor  *sensor.Client
	deb     *debounce.Debouncer
	auth    *auth.Store
	orch    *orchestrator.Orchestrator
	history *history.Store
	wallet  wallet.Wallet
	kv      store.Store
}

// NewServer creates a new API server
func NewServer(
	cfg *config.Config,
	logger *logrus.Logger,
	sensorClient *sensor.Client,
	deb *debounce.Debouncer,
	authStore *auth.Store,
	orch *orchestrator.Orchestrator,
	hist *history.Store,
	w wallet.Wallet,
	kv store.Store,
) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		sensor:  sensorClient,
		deb:     deb,
		auth:    authStore,
		orch:    orch,
		history: hist,
		wallet:  w,
		kv:      kv,
	}

	s.setupRoutes()

	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	s.router.Use(logger.Middleware(s.logger))
	s.router.Use(s.recoveryMiddleware)

	if s.cfg.Server.CORSEnabled {
		s.router.Use(s.corsMiddleware)
	}

	apiV1 := s.router.PathPrefix("/api/v1").Subrouter()

	apiV1.HandleFunc("/health", s.handleHealth).Methods("GET")
	apiV1.HandleFunc("/status", s.handleStatus).Methods("GET")
	apiV1.HandleFunc("/tokens", s.handleTokens).Methods("GET")

	apiV1.HandleFunc("/authorize/{address}", s.handleAuthorize).Methods("POST")
	apiV1.HandleFunc("/authorize/{address}", s.handleDeauthorize).Methods("DELETE")

	// Wallet account switches clear all state tied to the old account.
	apiV1.HandleFunc("/account/{address}/disconnect", s.handleAccountDisconnect).Methods("POST")

	apiV1.HandleFunc("/history/{address}", s.handleHistory).Methods("GET")

	// WebSocket status stream
	apiV1.HandleFunc("/ws", s.handleWebSocket).Methods("GET")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := s.cfg.GetServerAddr()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	s.logger.WithField("address", addr).Info("Starting HTTP server")

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		if strings.Contains(err.Error(), "address already in use") {
			return fmt.Errorf("port %d is already in use, pick another with --port", s.cfg.Server.Port)
		}
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Middleware functions

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.WithFields(logrus.Fields{
					"error": err,
					"path":  r.URL.Path,
				}).Error("Panic recovered")

				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(next)
}

// Handler functions

// handleHealth checks the health status of pipeline components
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	storeHealthy := true
	if checker, ok := s.kv.(interface{ Health(context.Context) error }); ok {
		if err := checker.Health(ctx); err != nil {
			storeHealthy = false
		}
	}

	health := map[string]interface{}{
		"status": "healthy",
		"services": map[string]bool{
			"sensor": s.sensor.IsConnected(),
			"store":  storeHealthy,
		},
		"timestamp": time.Now().Unix(),
	}
	if !storeHealthy {
		health["status"] = "degraded"
	}

	s.writeJSON(w, http.StatusOK, health)
}

// handleStatus returns a full pipeline snapshot for dashboards.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.statusSnapshot(r.Context()))
}

// handleTokens returns the angle-to-token mapping table.
func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"min_angle": tokens.MinVisibleAngle,
		"max_angle": tokens.MaxOpeningAngle,
		"ranges":    tokens.Table(),
	})
}

// handleAuthorize grants a swap authorization for the given address.
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	if !common.IsHexAddress(address) {
		http.Error(w, "invalid address", http.StatusBadRequest)
		return
	}

	authz, err := s.auth.Grant(r.Context(), address, s.wallet)
	if err != nil {
		s.logger.WithError(err).Warn("Authorization grant failed")
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	s.writeJSON(w, http.StatusCreated, authz)
}

// handleDeauthorize revokes the authorization and drops the user's
// pending swaps so nothing executes after consent is withdrawn.
func (s *Server) handleDeauthorize(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	if !common.IsHexAddress(address) {
		http.Error(w, "invalid address", http.StatusBadRequest)
		return
	}

	if err := s.auth.Revoke(r.Context(), address); err != nil {
		s.logger.WithError(err).Warn("Revoke failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.orch.Queue().ClearUser(address)

	w.WriteHeader(http.StatusNoContent)
}

// handleAccountDisconnect wipes authorization, queued swaps, and history
// for an account the wallet switched away from.
func (s *Server) handleAccountDisconnect(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	if !common.IsHexAddress(address) {
		http.Error(w, "invalid address", http.StatusBadRequest)
		return
	}

	s.orch.OnAccountChanged(r.Context(), address)

	w.WriteHeader(http.StatusNoContent)
}

// handleHistory returns the recent swap history for an address.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	if !common.IsHexAddress(address) {
		http.Error(w, "invalid address", http.StatusBadRequest)
		return
	}

	results, err := s.history.List(r.Context(), address)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load history")
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"address": strings.ToLower(address),
		"swaps":   results,
		"count":   len(results),
	})
}

// statusSnapshot assembles the state pushed over both REST and WebSocket.
func (s *Server) statusSnapshot(ctx context.Context) map[string]interface{} {
	requests, counts := s.orch.Queue().Snapshot()

	snapshot := map[string]interface{}{
		"sensor": map[string]interface{}{
			"connected":   s.sensor.IsConnected(),
			"last_update": s.sensor.LastUpdate(),
		},
		"debounce": s.deb.State(),
		"queue": map[string]interface{}{
			"requests": requests,
			"counts":   counts,
		},
		"chain": map[string]interface{}{
			"id":   s.cfg.Chain.ID,
			"name": s.cfg.Chain.Name,
		},
		"authorized": s.auth.IsAuthorized(ctx, s.wallet.Address().Hex()),
		"timestamp":  time.Now().UnixMilli(),
	}
	return snapshot
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Debug("Failed to encode response")
	}
}
