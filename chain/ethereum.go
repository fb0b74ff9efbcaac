package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"strings"
	"time"

	"github.com/avast/retry-go"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/vitwit/paygate/types"
)

var _ Client = (*EthClient)(nil)

// readRetries covers transient node hiccups on idempotent reads. Broadcast
// is never retried: a resubmitted transaction with the same nonce is at
// best a duplicate and at worst a conflicting replacement.
const readRetries = 3

// EthClient implements Client over a go-ethereum RPC connection.
type EthClient struct {
	rpcURL string
	eth    *ethclient.Client
}

// Dial connects to an EVM JSON-RPC endpoint.
func Dial(rpcURL string) (*EthClient, error) {
	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, types.NewPaymentError(types.ErrChainUnavailable,
			"ethereum rpc dial %s: %v", rpcURL, err)
	}

	return &EthClient{rpcURL: rpcURL, eth: eth}, nil
}

// BalanceAt implements Client.
func (c *EthClient) BalanceAt(ctx context.Context, address string) (*big.Int, error) {
	var balance *big.Int
	err := c.withRetry(ctx, func() error {
		var err error
		balance, err = c.eth.BalanceAt(ctx, common.HexToAddress(address), nil)
		return err
	})
	if err != nil {
		return nil, classify("balance query", err)
	}
	return balance, nil
}

// PendingNonceAt implements Client.
func (c *EthClient) PendingNonceAt(ctx context.Context, address string) (uint64, error) {
	var nonce uint64
	err := c.withRetry(ctx, func() error {
		var err error
		nonce, err = c.eth.PendingNonceAt(ctx, common.HexToAddress(address))
		return err
	})
	if err != nil {
		return 0, classify("nonce query", err)
	}
	return nonce, nil
}

// SuggestGasPrice implements Client.
func (c *EthClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	var price *big.Int
	err := c.withRetry(ctx, func() error {
		var err error
		price, err = c.eth.SuggestGasPrice(ctx)
		return err
	})
	if err != nil {
		return nil, classify("gas price query", err)
	}
	return price, nil
}

// ChainID implements Client.
func (c *EthClient) ChainID(ctx context.Context) (*big.Int, error) {
	var id *big.Int
	err := c.withRetry(ctx, func() error {
		var err error
		id, err = c.eth.ChainID(ctx)
		return err
	})
	if err != nil {
		return nil, classify("chain id fetch", err)
	}
	return id, nil
}

// Broadcast implements Client. The raw bytes must be a fully signed,
// RLP-encoded transaction.
func (c *EthClient) Broadcast(ctx context.Context, raw []byte) (string, error) {
	tx := new(ethtypes.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return "", types.NewPaymentError(types.ErrRPC,
			"decode signed transaction: %v", err)
	}

	if err := c.eth.SendTransaction(ctx, tx); err != nil {
		return "", classify("broadcast", err)
	}

	return tx.Hash().Hex(), nil
}

// WaitForReceipt implements Client. Polls until the transaction is mined
// or the timeout expires; on expiry the transaction may still land later.
func (c *EthClient) WaitForReceipt(ctx context.Context, txHash string, timeout time.Duration) (*types.Receipt, error) {
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	hash := common.HexToHash(txHash)
	ticker := time.NewTicker(ReceiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(waitCtx, hash)
		switch {
		case err == nil:
			return &types.Receipt{
				Status:      types.ReceiptStatus(receipt.Status),
				GasUsed:     receipt.GasUsed,
				BlockNumber: receipt.BlockNumber.Uint64(),
			}, nil
		case errors.Is(err, ethereum.NotFound):
			// not mined yet, keep polling
		case waitCtx.Err() != nil:
			return nil, confirmationTimeout(txHash, timeout)
		default:
			return nil, classify("receipt poll", err)
		}

		select {
		case <-waitCtx.Done():
			return nil, confirmationTimeout(txHash, timeout)
		case <-ticker.C:
		}
	}
}

// Close implements Client.
func (c *EthClient) Close() {
	c.eth.Close()
}

func (c *EthClient) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(readRetries),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}

func confirmationTimeout(txHash string, timeout time.Duration) *types.PaymentError {
	return types.NewPaymentError(types.ErrConfirmationTimeout,
		"transaction %s not mined within %s; funds may still be spent if it lands later",
		txHash, timeout)
}

// classify maps a go-ethereum error to the module's taxonomy: transport
// failures mean the node is unreachable, everything else is a node-reported
// RPC error.
func classify(op string, err error) *types.PaymentError {
	if isUnavailable(err) {
		return types.NewPaymentError(types.ErrChainUnavailable, "%s: %v", op, err)
	}
	return types.NewPaymentError(types.ErrRPC, "%s: %v", op, err)
}

func isUnavailable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := err.Error()
	for _, hint := range []string{
		"connection refused",
		"no such host",
		"connection reset",
		"EOF",
	} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

// String identifies the endpoint in logs.
func (c *EthClient) String() string {
	return fmt.Sprintf("eth-rpc(%s)", c.rpcURL)
}
