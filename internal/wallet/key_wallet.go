package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/sirupsen/logrus"

	"github.com/AazimAnish/HarMonad/pkg/config"
	"github.com/AazimAnish/HarMonad/pkg/models"
)

// KeyWallet signs with a local private key and broadcasts over JSON-RPC.
type KeyWallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
	client  *ethclient.Client
	chainID *big.Int
	logger  *logrus.Entry
}

// NewKeyWallet dials the chain RPC and verifies it serves the expected
// chain; a mismatch is a wrong-network error up front rather than a failed
// swap later.
func NewKeyWallet(ctx context.Context, cfg *config.WalletConfig, chain *config.ChainConfig, logger *logrus.Logger) (*KeyWallet, error) {
	if cfg.PrivateKey == "" {
		return nil, fmt.Errorf("wallet private key is required")
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid wallet private key: %w", err)
	}

	client, err := ethclient.DialContext(ctx, chain.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial chain RPC: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}
	if chainID.Int64() != chain.ID {
		client.Close()
		return nil, models.NewPipelineError(models.ErrKindWrongNetwork,
			fmt.Sprintf("RPC serves chain %d, expected %d", chainID.Int64(), chain.ID), nil)
	}

	w := &KeyWallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		client:  client,
		chainID: chainID,
		logger:  logger.WithField("component", "wallet"),
	}

	w.logger.WithFields(logrus.Fields{
		"address":  w.address.Hex(),
		"chain_id": chainID.Int64(),
	}).Info("Wallet connected")

	return w, nil
}

// Address returns the wallet account.
func (w *KeyWallet) Address() common.Address {
	return w.address
}

// ChainID returns the connected chain id.
func (w *KeyWallet) ChainID(_ context.Context) (int64, error) {
	return w.chainID.Int64(), nil
}

// BalanceAt returns the native balance of an account.
func (w *KeyWallet) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	return w.client.BalanceAt(ctx, addr, nil)
}

// SignTypedData signs an EIP-712 payload with the wallet key.
func (w *KeyWallet) SignTypedData(_ context.Context, data apitypes.TypedData) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return nil, fmt.Errorf("failed to hash typed data: %w", err)
	}
	sig, err := crypto.Sign(hash, w.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign typed data: %w", err)
	}
	// Transform V from 0/1 to 27/28 per the Ethereum signature convention.
	sig[64] += 27
	return sig, nil
}

// SendTransaction signs and broadcasts a swap transaction.
func (w *KeyWallet) SendTransaction(ctx context.Context, desc *models.TransactionDescriptor) (string, error) {
	to := common.HexToAddress(desc.To)
	if desc.To == "" || to == (common.Address{}) {
		// Guarded again here even though the quote client already checks:
		// a descriptor with a null destination must never reach the chain.
		return "", models.NewPipelineError(models.ErrKindInvalidTransaction, "transaction destination is empty or zero", nil)
	}

	value, ok := new(big.Int).SetString(zeroIfEmpty(desc.Value), 10)
	if !ok {
		return "", models.NewPipelineError(models.ErrKindInvalidTransaction, "invalid transaction value: "+desc.Value, nil)
	}
	gasPrice, ok := new(big.Int).SetString(zeroIfEmpty(desc.GasPrice), 10)
	if !ok {
		return "", models.NewPipelineError(models.ErrKindInvalidTransaction, "invalid gas price: "+desc.GasPrice, nil)
	}
	gasLimit, ok := new(big.Int).SetString(zeroIfEmpty(desc.GasLimit), 10)
	if !ok || !gasLimit.IsUint64() {
		return "", models.NewPipelineError(models.ErrKindInvalidTransaction, "invalid gas limit: "+desc.GasLimit, nil)
	}

	var data []byte
	if desc.Data != "" && desc.Data != "0x" {
		var err error
		data, err = hexutil.Decode(desc.Data)
		if err != nil {
			return "", models.NewPipelineError(models.ErrKindInvalidTransaction, "invalid call data", err)
		}
	}

	nonce, err := w.client.PendingNonceAt(ctx, w.address)
	if err != nil {
		return "", classify("failed to fetch nonce", err)
	}

	tx := types.NewTransaction(nonce, to, value, gasLimit.Uint64(), gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(w.chainID), w.key)
	if err != nil {
		return "", models.NewPipelineError(models.ErrKindExecution, "failed to sign transaction", err)
	}

	if err := w.client.SendTransaction(ctx, signed); err != nil {
		return "", classify("broadcast rejected", err)
	}

	hash := signed.Hash().Hex()
	w.logger.WithFields(logrus.Fields{
		"tx_hash": hash,
		"to":      to.Hex(),
		"value":   value.String(),
	}).Info("Transaction broadcast")

	return hash, nil
}

// Close releases the RPC connection.
func (w *KeyWallet) Close() {
	w.client.Close()
}

// classify converts node-level errors into typed kinds. This is the one
// place node error text is interpreted; everything downstream switches on
// models.ErrorKind only.
func classify(msg string, err error) error {
	text := strings.ToLower(err.Error())
	switch {
	case strings.Contains(text, "insufficient funds"):
		return models.NewPipelineError(models.ErrKindInsufficientFunds, msg, err)
	case strings.Contains(text, "nonce too low"),
		strings.Contains(text, "nonce too high"),
		strings.Contains(text, "replacement transaction underpriced"),
		strings.Contains(text, "already known"):
		return models.NewPipelineError(models.ErrKindNonceConflict, msg, err)
	case strings.Contains(text, "user denied"), strings.Contains(text, "user rejected"):
		return models.NewPipelineError(models.ErrKindUserRejected, msg, err)
	case strings.Contains(text, "wrong chain"), strings.Contains(text, "invalid chain id"):
		return models.NewPipelineError(models.ErrKindWrongNetwork, msg, err)
	default:
		return models.NewPipelineError(models.ErrKindExecution, msg, err)
	}
}

func zeroIfEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
