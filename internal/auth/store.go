package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/sirupsen/logrus"

	"github.com/AazimAnish/HarMonad/internal/store"
	"github.com/AazimAnish/HarMonad/internal/wallet"
	"github.com/AazimAnish/HarMonad/pkg/config"
	"github.com/AazimAnish/HarMonad/pkg/models"
)

const keyPrefix = "harmonad:auth:"

// Store keeps per-user swap consent records. Records are immutable
// snapshots once granted; re-granting overwrites atomically. Expiry is
// enforced lazily on every read and by a periodic revalidation sweep, both
// through the same code path.
type Store struct {
	kv       store.Store
	chain    *config.ChainConfig
	validity time.Duration
	// maxAmount is the per-swap ceiling the user consents to, in wei.
	maxAmount  string
	minBalance *big.Int
	logger     *logrus.Entry

	mu    sync.Mutex
	cache map[string]*models.SwapAuthorization
}

// NewStore creates an authorization store. No storage I/O happens here;
// records load lazily on first access.
func NewStore(kv store.Store, chain *config.ChainConfig, walletCfg *config.WalletConfig, validity time.Duration, maxAmount string, logger *logrus.Logger) *Store {
	minBalance, ok := new(big.Int).SetString(walletCfg.MinNativeBalance, 10)
	if !ok {
		minBalance = big.NewInt(0)
	}

	return &Store{
		kv:         kv,
		chain:      chain,
		validity:   validity,
		maxAmount:  maxAmount,
		minBalance: minBalance,
		logger:     logger.WithField("component", "auth"),
		cache:      make(map[string]*models.SwapAuthorization),
	}
}

// Grant runs the consent flow for a user: native-balance precheck, EIP-712
// signature through the signer, then an atomic persist. A denied signature
// or failed precheck returns an authorization-kind error and leaves any
// previous record untouched.
func (s *Store) Grant(ctx context.Context, userAddress string, signer wallet.Wallet) (*models.SwapAuthorization, error) {
	addr := strings.ToLower(userAddress)

	balance, err := signer.BalanceAt(ctx, signer.Address())
	if err != nil {
		return nil, models.NewPipelineError(models.ErrKindAuthorization, "balance check failed", err)
	}
	if balance.Cmp(s.minBalance) < 0 {
		return nil, models.NewPipelineError(models.ErrKindAuthorization,
			fmt.Sprintf("insufficient native balance: have %s wei, need %s wei for minimum swap plus gas", balance, s.minBalance), nil)
	}

	now := time.Now()
	auth := &models.SwapAuthorization{
		UserAddress: addr,
		ChainID:     s.chain.ID,
		Approvals:   make(map[string]models.TokenApproval),
		ValidUntil:  now.Add(s.validity).Unix(),
		Nonce:       now.UnixMilli(),
	}

	sig, err := signer.SignTypedData(ctx, s.typedData(auth))
	if err != nil {
		return nil, models.NewPipelineError(models.ErrKindAuthorization, "consent signature denied", err)
	}
	auth.Signature = hexutil.Encode(sig)

	// Native-token sells need no ERC-20 approval; record the allowance
	// target so token-to-token swaps can extend the record later.
	auth.Approvals[s.chain.AllowanceHolder] = models.TokenApproval{
		Spender:   s.chain.AllowanceHolder,
		Amount:    "0",
		TxHash:    "skipped",
		Timestamp: now,
	}

	if err := s.persist(ctx, auth); err != nil {
		return nil, models.NewPipelineError(models.ErrKindAuthorization, "failed to persist authorization", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user":        addr,
		"valid_until": auth.ValidUntil,
	}).Info("Swap authorization granted")

	return auth, nil
}

// IsAuthorized reports whether a valid record exists. An expired record is
// purged as a side effect.
func (s *Store) IsAuthorized(ctx context.Context, userAddress string) bool {
	auth := s.Get(ctx, userAddress)
	if auth == nil {
		return false
	}

	if auth.Expired(time.Now()) {
		s.logger.WithField("user", auth.UserAddress).Info("Authorization expired, purging")
		if err := s.Revoke(ctx, userAddress); err != nil {
			s.logger.WithError(err).Warn("Failed to purge expired authorization")
		}
		return false
	}

	return true
}

// Get returns the stored record for a user, loading it from the KV store
// on first access, or nil when none exists.
func (s *Store) Get(ctx context.Context, userAddress string) *models.SwapAuthorization {
	addr := strings.ToLower(userAddress)

	s.mu.Lock()
	defer s.mu.Unlock()

	if auth, ok := s.cache[addr]; ok {
		return auth
	}

	data, err := s.kv.Get(ctx, keyPrefix+addr)
	if err != nil {
		if err != store.ErrNotFound {
			s.logger.WithError(err).Warn("Failed to load authorization")
		}
		return nil
	}

	var auth models.SwapAuthorization
	if err := json.Unmarshal(data, &auth); err != nil {
		s.logger.WithError(err).Warn("Corrupt authorization record, dropping")
		_ = s.kv.Delete(ctx, keyPrefix+addr)
		return nil
	}

	s.cache[addr] = &auth
	return &auth
}

// Revoke deletes a user's record immediately (disconnect, account change).
func (s *Store) Revoke(ctx context.Context, userAddress string) error {
	addr := strings.ToLower(userAddress)

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cache, addr)
	return s.kv.Delete(ctx, keyPrefix+addr)
}

// Run sweeps cached records periodically so expiry is noticed even when no
// swap trigger fires. The sweep reuses the lazy-expiry path.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			users := make([]string, 0, len(s.cache))
			for addr := range s.cache {
				users = append(users, addr)
			}
			s.mu.Unlock()

			for _, addr := range users {
				s.IsAuthorized(ctx, addr)
			}
		}
	}
}

func (s *Store) persist(ctx context.Context, auth *models.SwapAuthorization) error {
	data, err := json.Marshal(auth)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, keyPrefix+auth.UserAddress, data); err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[auth.UserAddress] = auth
	s.mu.Unlock()
	return nil
}

// typedData builds the EIP-712 payload the user signs to consent.
func (s *Store) typedData(auth *models.SwapAuthorization) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			"SwapAuthorization": []apitypes.Type{
				{Name: "user", Type: "address"},
				{Name: "maxAmount", Type: "uint256"},
				{Name: "validUntil", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
			},
		},
		PrimaryType: "SwapAuthorization",
		Domain: apitypes.TypedDataDomain{
			Name:    "HarMonad",
			Version: "1",
			ChainId: math.NewHexOrDecimal256(s.chain.ID),
		},
		Message: apitypes.TypedDataMessage{
			"user":       auth.UserAddress,
			"maxAmount":  s.maxAmount,
			"validUntil": new(big.Int).SetInt64(auth.ValidUntil),
			"nonce":      new(big.Int).SetInt64(auth.Nonce),
		},
	}
}
