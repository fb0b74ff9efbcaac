// Package paygate implements the buyer side of a pay-per-request HTTP
// flow: issue a request, settle the advertised 402 payment with a native
// ETH transfer, then retry the request with proof of payment.
package paygate

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vitwit/paygate/logger"
	"github.com/vitwit/paygate/metrics"
	"github.com/vitwit/paygate/types"
)

// Payer settles a single payment. *executor.Session is the production
// implementation.
type Payer interface {
	Pay(ctx context.Context, amount decimal.Decimal, recipient string) (*types.PaymentOutcome, error)
}

// Client drives the request, pay, retry sequence. The configured terms
// decide what is actually paid; advertised terms that diverge from them
// are logged, not followed.
type Client struct {
	payer Payer
	terms types.PaymentTerms
	http  *http.Client
	log   logger.Logger
	rec   metrics.Recorder
}

// New creates a Client paying with the given payer under the configured
// terms.
func New(payer Payer, terms types.PaymentTerms, opts ...Option) *Client {
	c := &Client{
		payer: payer,
		terms: terms,
		http:  &http.Client{Timeout: 30 * time.Second},
		log:   logger.NoopLogger{},
		rec:   metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchWithPayment fetches rawURL, paying once if the server answers 402.
// A non-402 first response is returned as-is with Paid=false. A retried
// request that is not accepted fails with PAYMENT_VERIFICATION_FAILED;
// there is no second payment attempt.
func (c *Client) FetchWithPayment(ctx context.Context, rawURL string, params map[string]string) (*types.PaymentResult, error) {
	target, err := buildURL(rawURL, params)
	if err != nil {
		return nil, types.NewPaymentError(types.ErrPaymentVerificationFailed,
			"invalid resource url %q: %v", rawURL, err)
	}

	c.log.Info("starting payment flow", map[string]any{
		"url":    target,
		"params": params,
	})

	status, header, body, err := c.get(ctx, target, "")
	if err != nil {
		return nil, err
	}
	c.log.Info("initial response", map[string]any{"status": status})

	if status != http.StatusPaymentRequired {
		c.log.Info("no payment required", map[string]any{"status": status})
		return &types.PaymentResult{Data: body, Paid: false}, nil
	}

	c.warnOnTermsDivergence(header)

	c.log.Info("402 payment required", map[string]any{
		"amount":    c.terms.Amount.String(),
		"recipient": c.terms.Recipient,
	})

	outcome, err := c.payer.Pay(ctx, c.terms.Amount, c.terms.Recipient)
	if err != nil {
		return nil, err
	}

	status, _, body, err = c.get(ctx, target, outcome.TxHash)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		c.log.Error("payment verification failed", map[string]any{
			"status": status,
			"txHash": outcome.TxHash,
		})
		return nil, &types.PaymentError{
			Code:    types.ErrPaymentVerificationFailed,
			Message: "payment verification failed",
			Data:    map[string]int{"status": status},
		}
	}

	c.log.Info("payment verified, data retrieved", map[string]any{
		"txHash":     outcome.TxHash,
		"actualCost": types.FormatWei(outcome.ActualCost),
	})

	return &types.PaymentResult{
		Data:        body,
		Paid:        true,
		TxHash:      outcome.TxHash,
		PaymentType: types.PaymentTypeETH,
	}, nil
}

func (c *Client) get(ctx context.Context, target, proof string) (int, http.Header, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, nil, types.NewPaymentError(types.ErrPaymentVerificationFailed,
			"build request: %v", err)
	}
	if proof != "" {
		req.Header.Set(types.ProofHeader, proof)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, nil, types.NewPaymentError(types.ErrPaymentVerificationFailed,
			"resource request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, types.NewPaymentError(types.ErrPaymentVerificationFailed,
			"read response body: %v", err)
	}

	return resp.StatusCode, resp.Header, body, nil
}

// warnOnTermsDivergence compares the terms the server advertised against
// what this client is configured to pay. The configured values win; a
// mismatch is a deployment error worth surfacing.
func (c *Client) warnOnTermsDivergence(header http.Header) {
	advertised, ok := parseTerms(header)
	if !ok {
		return
	}

	if !advertised.Amount.Equal(c.terms.Amount) || !equalAddress(advertised.Recipient, c.terms.Recipient) {
		c.log.Warn("advertised terms diverge from configured terms", map[string]any{
			"advertisedAmount":    advertised.Amount.String(),
			"advertisedRecipient": advertised.Recipient,
			"configuredAmount":    c.terms.Amount.String(),
			"configuredRecipient": c.terms.Recipient,
		})
	}
}

func parseTerms(header http.Header) (types.PaymentTerms, bool) {
	amountStr := header.Get(types.AmountHeader)
	recipient := header.Get(types.RecipientHeader)
	if amountStr == "" || recipient == "" {
		return types.PaymentTerms{}, false
	}

	amount, err := types.ParseAmount(amountStr)
	if err != nil {
		return types.PaymentTerms{}, false
	}

	return types.PaymentTerms{
		Amount:    amount,
		Recipient: recipient,
		Currency:  header.Get(types.CurrencyHeader),
	}, true
}

func equalAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}

func buildURL(rawURL string, params map[string]string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
