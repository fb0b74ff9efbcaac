// Package executor builds, signs and settles the native ETH transfer that
// satisfies a 402 response.
package executor

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/vitwit/paygate/chain"
	"github.com/vitwit/paygate/logger"
	"github.com/vitwit/paygate/metrics"
	"github.com/vitwit/paygate/types"
)

const (
	// TransferGasLimit is the fixed cost of a native transfer. No contract
	// interaction happens in this flow, so no estimation is needed.
	TransferGasLimit = uint64(21000)

	// FloorGasPriceWei is the 1 gwei lower bound applied to the sampled
	// network price.
	FloorGasPriceWei = int64(1_000_000_000)
)

// Session holds everything a payment needs: the chain client and the
// signing key. Construct one explicitly instead of sharing module state;
// sessions are safe for concurrent Pay calls because balance and nonce are
// fetched fresh immediately before signing.
type Session struct {
	client         chain.Client
	key            *ecdsa.PrivateKey
	address        common.Address
	chainID        *big.Int
	confirmTimeout time.Duration
	log            logger.Logger
	rec            metrics.Recorder
}

// SessionOption configures a Session.
type SessionOption func(*Session)

func WithLogger(l logger.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

func WithMetrics(r metrics.Recorder) SessionOption {
	return func(s *Session) { s.rec = r }
}

// WithConfirmTimeout bounds the receipt wait per payment.
func WithConfirmTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.confirmTimeout = d }
}

// NewSession derives the wallet from privKeyHex and fetches the chain id
// once. The key never leaves process memory.
func NewSession(ctx context.Context, client chain.Client, privKeyHex string, opts ...SessionOption) (*Session, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privKeyHex, "0x"))
	if err != nil {
		return nil, types.NewPaymentError(types.ErrConfigMissing,
			"invalid signing key: %v", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, err
	}

	s := &Session{
		client:         client,
		key:            key,
		address:        crypto.PubkeyToAddress(key.PublicKey),
		chainID:        chainID,
		confirmTimeout: chain.DefaultConfirmTimeout,
		log:            logger.NoopLogger{},
		rec:            metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Address returns the wallet address derived from the signing key.
func (s *Session) Address() string {
	return s.address.Hex()
}

// Pay transfers amount (decimal ETH) to recipient and blocks until the
// transaction is confirmed or the confirmation timeout expires. The gas
// price is max(1 gwei, network price / 2): a cost-saving tradeoff, not a
// fast-inclusion guarantee.
func (s *Session) Pay(ctx context.Context, amount decimal.Decimal, recipient string) (*types.PaymentOutcome, error) {
	start := time.Now()
	s.rec.IncCounter(metrics.EventPaymentAttempt, nil)

	outcome, err := s.pay(ctx, amount, recipient)
	if err != nil {
		s.rec.IncCounter(metrics.EventPaymentFailed,
			map[string]string{"outcome": types.ErrorCode(err)})
		return nil, err
	}

	s.rec.IncCounter(metrics.EventPaymentConfirmed,
		map[string]string{"outcome": "success"})
	s.rec.ObserveLatency("pay", time.Since(start),
		map[string]string{"outcome": "success"})
	return outcome, nil
}

func (s *Session) pay(ctx context.Context, amount decimal.Decimal, recipient string) (*types.PaymentOutcome, error) {
	balance, err := s.client.BalanceAt(ctx, s.Address())
	if err != nil {
		return nil, err
	}

	nonce, err := s.client.PendingNonceAt(ctx, s.Address())
	if err != nil {
		return nil, err
	}

	networkPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}

	amountWei := types.ToWei(amount)
	gasPrice := EffectiveGasPrice(networkPrice)
	gasCost := new(big.Int).Mul(big.NewInt(int64(TransferGasLimit)), gasPrice)
	totalCost := new(big.Int).Add(amountWei, gasCost)

	s.log.Info("payment prepared", map[string]any{
		"wallet":    s.Address(),
		"recipient": recipient,
		"amount":    amount.String(),
		"gasPrice":  gasPrice.String(),
		"totalCost": types.FormatWei(totalCost),
		"balance":   types.FormatWei(balance),
		"nonce":     nonce,
	})

	if balance.Cmp(totalCost) < 0 {
		s.log.Error("insufficient balance for transaction", map[string]any{
			"needed": types.FormatWei(totalCost),
			"have":   types.FormatWei(balance),
		})
		return nil, types.NewInsufficientFunds(totalCost, balance)
	}

	signed, err := s.sign(nonce, recipient, amountWei, gasPrice)
	if err != nil {
		return nil, err
	}
	s.log.Info("transaction signed", map[string]any{
		"hash":  signed.Hash,
		"nonce": nonce,
	})

	txHash, err := s.client.Broadcast(ctx, signed.Raw)
	if err != nil {
		return nil, err
	}
	s.log.Info("transaction broadcast", map[string]any{"hash": txHash})

	receipt, err := s.client.WaitForReceipt(ctx, txHash, s.confirmTimeout)
	if err != nil {
		return nil, err
	}

	if receipt.Status != types.ReceiptSuccess {
		s.log.Error("transaction failed on chain", map[string]any{
			"hash":  txHash,
			"block": receipt.BlockNumber,
		})
		return nil, types.NewPaymentError(types.ErrTransactionReverted,
			"transaction %s reverted in block %d", txHash, receipt.BlockNumber)
	}

	actualGas := new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), gasPrice)
	actualCost := new(big.Int).Add(amountWei, actualGas)

	s.log.Info("transaction confirmed", map[string]any{
		"hash":       txHash,
		"block":      receipt.BlockNumber,
		"gasUsed":    receipt.GasUsed,
		"actualCost": types.FormatWei(actualCost),
	})

	return &types.PaymentOutcome{TxHash: txHash, ActualCost: actualCost}, nil
}

// sign produces the single deterministic signing artifact: a replay
// protected legacy transfer, hashed and RLP encoded.
func (s *Session) sign(nonce uint64, recipient string, amountWei, gasPrice *big.Int) (*types.SignedTransaction, error) {
	tx := ethtypes.NewTransaction(
		nonce,
		common.HexToAddress(recipient),
		amountWei,
		TransferGasLimit,
		gasPrice,
		nil,
	)

	signed, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(s.chainID), s.key)
	if err != nil {
		return nil, types.NewPaymentError(types.ErrRPC, "sign tx failed: %v", err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, types.NewPaymentError(types.ErrRPC, "encode signed tx: %v", err)
	}

	return &types.SignedTransaction{Hash: signed.Hash().Hex(), Raw: raw}, nil
}

// WalletStatus reports the wallet's live balance and nonce plus an
// estimate of how many payments of amount it can still afford at the
// floor gas price.
func (s *Session) WalletStatus(ctx context.Context, amount decimal.Decimal) (*types.WalletStatus, error) {
	balance, err := s.client.BalanceAt(ctx, s.Address())
	if err != nil {
		return nil, err
	}

	nonce, err := s.client.PendingNonceAt(ctx, s.Address())
	if err != nil {
		return nil, err
	}

	perTx := new(big.Int).Add(
		types.ToWei(amount),
		new(big.Int).Mul(big.NewInt(int64(TransferGasLimit)), big.NewInt(FloorGasPriceWei)),
	)

	var affordable int64
	if perTx.Sign() > 0 {
		affordable = new(big.Int).Div(balance, perTx).Int64()
	}

	return &types.WalletStatus{
		Address:            s.Address(),
		Balance:            balance,
		Nonce:              nonce,
		AffordablePayments: affordable,
	}, nil
}

// EffectiveGasPrice halves the sampled network price but never drops below
// the 1 gwei floor. Holds for any sampled price, including zero.
func EffectiveGasPrice(networkPrice *big.Int) *big.Int {
	floor := big.NewInt(FloorGasPriceWei)
	if networkPrice == nil {
		return floor
	}

	halved := new(big.Int).Div(networkPrice, big.NewInt(2))
	if halved.Cmp(floor) < 0 {
		return floor
	}
	return halved
}

// String identifies the session wallet in logs without exposing the key.
func (s *Session) String() string {
	return fmt.Sprintf("session(%s, chain %s)", s.Address(), s.chainID)
}
