// Package chain wraps the handful of JSON-RPC operations the payment flow
// needs against a single EVM node.
package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/vitwit/paygate/types"
)

const (
	// DefaultConfirmTimeout bounds the receipt wait. Once this expires the
	// transaction may still be mined later; broadcast is not cancellable.
	DefaultConfirmTimeout = 120 * time.Second

	// ReceiptPollInterval is how often a pending transaction is re-checked.
	ReceiptPollInterval = 2 * time.Second
)

// Client is the minimal chain surface the payment executor depends on.
// Implementations report failures as *types.PaymentError with code
// CHAIN_UNAVAILABLE or RPC_ERROR (CONFIRMATION_TIMEOUT for an expired
// receipt wait).
type Client interface {
	// BalanceAt returns the wei balance of an address.
	BalanceAt(ctx context.Context, address string) (*big.Int, error)

	// PendingNonceAt returns the next unused nonce for an address,
	// including transactions still in the mempool.
	PendingNonceAt(ctx context.Context, address string) (uint64, error)

	// SuggestGasPrice samples the network gas price in wei. Callers apply
	// their own floor and discount policy.
	SuggestGasPrice(ctx context.Context) (*big.Int, error)

	// ChainID returns the network's chain id, needed for replay-protected
	// signing.
	ChainID(ctx context.Context) (*big.Int, error)

	// Broadcast submits RLP-encoded signed transaction bytes and returns
	// the transaction hash.
	Broadcast(ctx context.Context, raw []byte) (string, error)

	// WaitForReceipt blocks until the transaction is mined or the timeout
	// expires.
	WaitForReceipt(ctx context.Context, txHash string, timeout time.Duration) (*types.Receipt, error)

	Close()
}
