package types

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Header names shared by the paywall gateway and the paying client.
const (
	// ProofHeader carries the broadcast transaction hash on a retried
	// request. Presence of a non-empty value is what the gateway checks;
	// no on-chain verification is performed.
	ProofHeader = "payment-tx-hash"

	AmountHeader    = "x402-amount"
	RecipientHeader = "x402-recipient"
	CurrencyHeader  = "x402-currency"
)

// PaymentTypeETH identifies a native-coin settlement.
const PaymentTypeETH = "ETH"

// PaymentTerms is what a 402 response advertises: how much, to whom, in
// what currency. Issued once per request cycle and never mutated.
type PaymentTerms struct {
	// Amount in whole units of the currency (ETH, not wei).
	Amount decimal.Decimal `json:"amount"`

	// Recipient chain address the payment must be sent to.
	Recipient string `json:"recipient"`

	// Currency symbol, e.g. "ETH".
	Currency string `json:"currency"`
}

// ReceiptStatus is the outcome recorded in a mined transaction's receipt.
type ReceiptStatus int

const (
	ReceiptFailure ReceiptStatus = 0
	ReceiptSuccess ReceiptStatus = 1
)

// Receipt is the chain's record of a mined transaction.
type Receipt struct {
	Status      ReceiptStatus `json:"status"`
	GasUsed     uint64        `json:"gasUsed"`
	BlockNumber uint64        `json:"blockNumber"`
}

// SignedTransaction is the deterministic output of the signing step: the
// canonical hash plus the RLP-encoded bytes ready for broadcast.
type SignedTransaction struct {
	Hash string `json:"hash"`
	Raw  []byte `json:"raw"`
}

// PaymentOutcome is returned by the payment executor after a confirmed
// transfer.
type PaymentOutcome struct {
	TxHash string `json:"txHash"`

	// ActualCost is amount + gasUsed*gasPrice in wei, using the gas the
	// transaction actually consumed.
	ActualCost *big.Int `json:"actualCost"`
}

// PaymentResult is the terminal artifact of a fetch-with-payment call.
type PaymentResult struct {
	Data        json.RawMessage `json:"data"`
	Paid        bool            `json:"paid"`
	TxHash      string          `json:"tx_hash,omitempty"`
	PaymentType string          `json:"payment_type,omitempty"`
}

// PaymentInfo is echoed by the gateway on a paid response.
type PaymentInfo struct {
	PaidWith          string  `json:"paid_with"`
	PaymentAmount     string  `json:"payment_amount"`
	Timestamp         float64 `json:"timestamp"`
	RequestedLocation string  `json:"requested_location"`
}

// WalletStatus reports the session wallet's live state.
type WalletStatus struct {
	Address string `json:"address"`

	// Balance in wei.
	Balance *big.Int `json:"balance"`

	Nonce uint64 `json:"nonce"`

	// AffordablePayments estimates how many payments of the configured
	// amount the balance covers at the floor gas price.
	AffordablePayments int64 `json:"affordablePayments"`
}

// Error codes for every expected failure kind. Callers branch on these
// instead of matching message strings.
const (
	ErrChainUnavailable          = "CHAIN_UNAVAILABLE"
	ErrRPC                       = "RPC_ERROR"
	ErrInsufficientFunds         = "INSUFFICIENT_FUNDS"
	ErrConfirmationTimeout       = "CONFIRMATION_TIMEOUT"
	ErrTransactionReverted       = "TRANSACTION_REVERTED"
	ErrPaymentVerificationFailed = "PAYMENT_VERIFICATION_FAILED"
	ErrConfigMissing             = "CONFIG_MISSING"
)

// PaymentError is the tagged error type used across the module.
type PaymentError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewPaymentError builds a PaymentError with a formatted message.
func NewPaymentError(code, format string, args ...interface{}) *PaymentError {
	return &PaymentError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrorCode extracts the code from an error, or "" for nil and
// non-PaymentError values.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if pe, ok := err.(*PaymentError); ok {
		return pe.Code
	}
	return ""
}

// InsufficientFundsData is attached to INSUFFICIENT_FUNDS errors so
// callers can report the shortfall.
type InsufficientFundsData struct {
	Needed *big.Int `json:"needed"`
	Have   *big.Int `json:"have"`
}

// NewInsufficientFunds reports a balance shortfall in wei.
func NewInsufficientFunds(needed, have *big.Int) *PaymentError {
	return &PaymentError{
		Code: ErrInsufficientFunds,
		Message: fmt.Sprintf("insufficient funds: need %s ETH, have %s ETH",
			FormatWei(needed), FormatWei(have)),
		Data: &InsufficientFundsData{Needed: needed, Have: have},
	}
}

// Timestamp returns the current time as unix seconds with sub-second
// precision, matching the payment_info wire format.
func Timestamp() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
