package history

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/AazimAnish/HarMonad/internal/store"
	"github.com/AazimAnish/HarMonad/pkg/models"
)

const keyPrefix = "harmonad:history:"

// Store keeps the per-user swap result history: newest first, capped, and
// persisted through the KV port so it survives a restart.
type Store struct {
	kv     store.Store
	limit  int
	logger *logrus.Entry

	mu sync.Mutex
}

// NewStore creates a history store retaining at most limit entries per user.
func NewStore(kv store.Store, limit int, logger *logrus.Logger) *Store {
	if limit <= 0 {
		limit = 50
	}
	return &Store{
		kv:     kv,
		limit:  limit,
		logger: logger.WithField("component", "history"),
	}
}

// Append records one swap outcome at the head of a user's history.
func (h *Store) Append(ctx context.Context, userAddress string, result models.SwapExecutionResult) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.load(ctx, userAddress)
	if err != nil {
		return err
	}

	entries = append([]models.SwapExecutionResult{result}, entries...)
	if len(entries) > h.limit {
		entries = entries[:h.limit]
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return h.kv.Set(ctx, key(userAddress), data)
}

// List returns a user's history, newest first.
func (h *Store) List(ctx context.Context, userAddress string) ([]models.SwapExecutionResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load(ctx, userAddress)
}

// Clear wipes a user's history (disconnect).
func (h *Store) Clear(ctx context.Context, userAddress string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.kv.Delete(ctx, key(userAddress))
}

func (h *Store) load(ctx context.Context, userAddress string) ([]models.SwapExecutionResult, error) {
	data, err := h.kv.Get(ctx, key(userAddress))
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []models.SwapExecutionResult
	if err := json.Unmarshal(data, &entries); err != nil {
		h.logger.WithError(err).Warn("Corrupt history record, resetting")
		return nil, nil
	}
	return entries, nil
}

func key(userAddress string) string {
	return keyPrefix + strings.ToLower(userAddress)
}
