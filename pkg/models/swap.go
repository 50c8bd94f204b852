package models

import (
	"time"
)

// SwapStatus is the lifecycle state of a queued swap request
type SwapStatus string

const (
	SwapStatusPending    SwapStatus = "pending"
	SwapStatusProcessing SwapStatus = "processing"
	SwapStatusCompleted  SwapStatus = "completed"
	SwapStatusFailed     SwapStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s SwapStatus) Terminal() bool {
	return s == SwapStatusCompleted || s == SwapStatusFailed
}

// QueuedSwapRequest is one entry of the swap request queue
type QueuedSwapRequest struct {
	ID          string     `json:"id"`
	Angle       float64    `json:"angle"`
	TokenSymbol string     `json:"token_symbol"`
	UserAddress string     `json:"user_address"`
	SubmittedAt time.Time  `json:"submitted_at"`
	Status      SwapStatus `json:"status"`
}

// TokenApproval records one on-chain ERC-20 approval backing an authorization
type TokenApproval struct {
	Spender   string    `json:"spender"`
	Amount    string    `json:"amount"`
	TxHash    string    `json:"tx_hash"`
	Timestamp time.Time `json:"timestamp"`
}

// SwapAuthorization is the per-user consent record for automatic swaps.
// One record per user address; invalid once now > ValidUntil.
type SwapAuthorization struct {
	UserAddress string                   `json:"user_address"`
	ChainID     int64                    `json:"chain_id"`
	Approvals   map[string]TokenApproval `json:"approvals"`
	ValidUntil  int64                    `json:"valid_until"`
	Nonce       int64                    `json:"nonce"`
	Signature   string                   `json:"signature,omitempty"`
}

// Expired reports whether the authorization is past its validity window.
func (a *SwapAuthorization) Expired(now time.Time) bool {
	return now.Unix() > a.ValidUntil
}

// QuoteSource identifies where a quote's routing came from. Degraded
// fallback quotes are tagged so callers can tell them from real routing.
type QuoteSource struct {
	Name       string `json:"name"`
	Proportion string `json:"proportion"`
}

// PriceQuote is an indicative price from the routing API (no transaction)
type PriceQuote struct {
	ChainID         int64  `json:"chainId"`
	Price           string `json:"price"`
	SellToken       string `json:"sellTokenAddress"`
	BuyToken        string `json:"buyTokenAddress"`
	SellAmount      string `json:"sellAmount"`
	BuyAmount       string `json:"buyAmount"`
	AllowanceTarget string `json:"allowanceTarget"`
}

// FirmQuote is an executable quote from the routing API. Amounts are
// base-unit decimal strings as the API delivers them.
type FirmQuote struct {
	ChainID         int64         `json:"chainId"`
	Price           string        `json:"price"`
	SellToken       string        `json:"sellTokenAddress"`
	BuyToken        string        `json:"buyTokenAddress"`
	SellAmount      string        `json:"sellAmount"`
	BuyAmount       string        `json:"buyAmount"`
	To              string        `json:"to"`
	Data            string        `json:"data"`
	Value           string        `json:"value"`
	Gas             string        `json:"gas"`
	GasPrice        string        `json:"gasPrice"`
	AllowanceTarget string        `json:"allowanceTarget"`
	Sources         []QuoteSource `json:"sources"`
}

// Degraded reports whether the quote came from the fallback ladder rather
// than real routing.
func (q *FirmQuote) Degraded() bool {
	for _, src := range q.Sources {
		if src.Name == FallbackSourceName {
			return true
		}
	}
	return false
}

// FallbackSourceName tags synthesized fallback quotes in FirmQuote.Sources.
const FallbackSourceName = "Harmonad-Fallback"

// TransactionDescriptor is the wallet-ready form of a firm quote
type TransactionDescriptor struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	GasLimit string `json:"gas_limit"`
	GasPrice string `json:"gas_price"`
}

// SwapExecutionResult is one entry of the per-user swap history
type SwapExecutionResult struct {
	Success     bool      `json:"success"`
	TxHash      string    `json:"tx_hash,omitempty"`
	ErrorKind   ErrorKind `json:"error_kind,omitempty"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Angle       float64   `json:"angle"`
	TokenSymbol string    `json:"token_symbol"`
	SellAmount  string    `json:"sell_amount,omitempty"`
	BuyAmount   string    `json:"buy_amount,omitempty"`
}
