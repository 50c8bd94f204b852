package wallet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/AazimAnish/HarMonad/pkg/models"
)

// Wallet is the signing/broadcast boundary of the pipeline. The production
// implementation talks to the Monad testnet over JSON-RPC with a local key;
// tests use a scripted fake.
type Wallet interface {
	// Address returns the account the pipeline swaps from.
	Address() common.Address
	// ChainID returns the chain the wallet is connected to.
	ChainID(ctx context.Context) (int64, error)
	// BalanceAt returns the native balance of an account in wei.
	BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error)
	// SignTypedData signs an EIP-712 payload, used by the consent flow.
	SignTypedData(ctx context.Context, data apitypes.TypedData) ([]byte, error)
	// SendTransaction signs and broadcasts a swap transaction, returning
	// the transaction hash. Failures carry a models.ErrorKind classified
	// here, at the boundary, never guessed from text downstream.
	SendTransaction(ctx context.Context, tx *models.TransactionDescriptor) (string, error)
}
