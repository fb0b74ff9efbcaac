// Package gateway implements the seller side of the pay-per-request flow:
// an HTTP handler that answers 402 with payment terms until a request
// carries a payment proof header.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vitwit/paygate/logger"
	"github.com/vitwit/paygate/metrics"
	"github.com/vitwit/paygate/types"
)

// DefaultLocation is used when the request names no location.
const DefaultLocation = "London"

// ResourceProvider fetches the protected payload. It is only invoked once
// a proof token is present; unpaid requests never reach it.
type ResourceProvider interface {
	Fetch(ctx context.Context, location string) (map[string]interface{}, error)
}

// ProviderFunc adapts a function to ResourceProvider.
type ProviderFunc func(ctx context.Context, location string) (map[string]interface{}, error)

func (f ProviderFunc) Fetch(ctx context.Context, location string) (map[string]interface{}, error) {
	return f(ctx, location)
}

// termsBody is the JSON shape of a 402 response.
type termsBody struct {
	Error     string `json:"error"`
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
	Currency  string `json:"currency"`
}

// Handler serves the paywalled resource.
//
// Contract: a request without a non-empty proof header gets 402 with the
// configured terms in headers and body, and no side effects. Any non-empty
// proof is accepted and echoed back verbatim in payment_info; the token is
// not checked against the chain.
type Handler struct {
	terms    types.PaymentTerms
	provider ResourceProvider
	log      logger.Logger
	rec      metrics.Recorder
}

// Option configures a Handler.
type Option func(*Handler)

func WithLogger(l logger.Logger) Option {
	return func(h *Handler) { h.log = l }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(h *Handler) { h.rec = r }
}

// New builds a paywall handler around the given terms and provider.
func New(terms types.PaymentTerms, provider ResourceProvider, opts ...Option) *Handler {
	h := &Handler{
		terms:    terms,
		provider: provider,
		log:      logger.NoopLogger{},
		rec:      metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	location := r.URL.Query().Get("location")
	if location == "" {
		location = DefaultLocation
	}

	proof := r.Header.Get(types.ProofHeader)
	h.log.Info("resource request", map[string]any{
		"location": location,
		"paid":     proof != "",
	})

	if proof == "" {
		h.rec.IncCounter(metrics.EventRequestUnpaid, nil)
		h.sendPaymentRequired(w)
		return
	}

	payload, err := h.provider.Fetch(r.Context(), location)
	if err != nil {
		h.log.Error("resource fetch failed", map[string]any{
			"location": location,
			"error":    err.Error(),
		})
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": "resource fetch failed",
		})
		return
	}

	payload["payment_info"] = types.PaymentInfo{
		PaidWith:          proof,
		PaymentAmount:     h.terms.Amount.String(),
		Timestamp:         types.Timestamp(),
		RequestedLocation: location,
	}

	h.rec.IncCounter(metrics.EventRequestPaid, nil)
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) sendPaymentRequired(w http.ResponseWriter) {
	w.Header().Set(types.AmountHeader, h.terms.Amount.String())
	w.Header().Set(types.RecipientHeader, h.terms.Recipient)
	w.Header().Set(types.CurrencyHeader, h.terms.Currency)

	writeJSON(w, http.StatusPaymentRequired, termsBody{
		Error:     "Payment required",
		Amount:    h.terms.Amount.String(),
		Recipient: h.terms.Recipient,
		Currency:  h.terms.Currency,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
