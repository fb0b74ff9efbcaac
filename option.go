package paygate

import (
	"net/http"

	"github.com/vitwit/paygate/logger"
	"github.com/vitwit/paygate/metrics"
)

type Option func(*Client)

func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(c *Client) {
		c.rec = r
	}
}

// WithHTTPClient overrides the HTTP client used for both the initial
// request and the paid retry.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}
