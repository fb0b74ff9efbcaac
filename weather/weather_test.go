package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		assert.Equal(t, "London", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"location":{"name":"London"},"current":{"temp_c":18.5}}`))
	}))
	defer srv.Close()

	c := New("secret", WithBaseURL(srv.URL))

	payload, err := c.Fetch(context.Background(), "London")
	require.NoError(t, err)
	assert.Contains(t, payload, "location")
	assert.Contains(t, payload, "current")
}

func TestFetch_MissingAPIKey(t *testing.T) {
	c := New("")
	_, err := c.Fetch(context.Background(), "London")
	assert.Error(t, err)
}

func TestFetch_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := New("secret", WithBaseURL(srv.URL))
	_, err := c.Fetch(context.Background(), "London")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
