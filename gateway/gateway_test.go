package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/paygate/types"
)

const recipient = "0x9953a068639e409133baAcdd4513D9637D20132f"

func testTerms() types.PaymentTerms {
	return types.PaymentTerms{
		Amount:    decimal.RequireFromString("0.00000001"),
		Recipient: recipient,
		Currency:  types.PaymentTypeETH,
	}
}

// countingProvider records whether the protected resource was touched.
type countingProvider struct {
	calls int32
	err   error
}

func (p *countingProvider) Fetch(_ context.Context, location string) (map[string]interface{}, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.err != nil {
		return nil, p.err
	}
	return map[string]interface{}{
		"location": map[string]interface{}{"name": location},
		"current":  map[string]interface{}{"temp_c": 18.5},
	}, nil
}

func TestGateway_NoProofReturns402(t *testing.T) {
	provider := &countingProvider{}
	h := New(testTerms(), provider)

	req := httptest.NewRequest(http.MethodGet, "/weather?location=London", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "0.00000001", resp.Header.Get(types.AmountHeader))
	assert.Equal(t, recipient, resp.Header.Get(types.RecipientHeader))
	assert.Equal(t, "ETH", resp.Header.Get(types.CurrencyHeader))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "0.00000001", body["amount"])
	assert.Equal(t, recipient, body["recipient"])
	assert.Equal(t, "ETH", body["currency"])

	assert.Zero(t, provider.calls, "unpaid request must not touch the resource")
}

func TestGateway_ProofEchoedVerbatim(t *testing.T) {
	// Any non-empty token is accepted as-is; the gateway performs no
	// on-chain verification. This test documents that contract.
	provider := &countingProvider{}
	h := New(testTerms(), provider)

	req := httptest.NewRequest(http.MethodGet, "/weather?location=Paris", nil)
	req.Header.Set(types.ProofHeader, "0xabc123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), provider.calls)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	info, ok := body["payment_info"].(map[string]interface{})
	require.True(t, ok, "paid response must carry payment_info")
	assert.Equal(t, "0xabc123", info["paid_with"])
	assert.Equal(t, "0.00000001", info["payment_amount"])
	assert.Equal(t, "Paris", info["requested_location"])
	assert.NotZero(t, info["timestamp"])
}

func TestGateway_DefaultLocation(t *testing.T) {
	provider := &countingProvider{}
	h := New(testTerms(), provider)

	req := httptest.NewRequest(http.MethodGet, "/weather", nil)
	req.Header.Set(types.ProofHeader, "0xdeadbeef")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&body))
	info := body["payment_info"].(map[string]interface{})
	assert.Equal(t, DefaultLocation, info["requested_location"])
}

func TestGateway_ProviderFailure(t *testing.T) {
	provider := &countingProvider{err: errors.New("upstream down")}
	h := New(testTerms(), provider)

	req := httptest.NewRequest(http.MethodGet, "/weather", nil)
	req.Header.Set(types.ProofHeader, "0xabc")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Result().StatusCode)
}

func TestGateway_MethodNotAllowed(t *testing.T) {
	h := New(testTerms(), &countingProvider{})

	req := httptest.NewRequest(http.MethodPost, "/weather", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Result().StatusCode)
}
