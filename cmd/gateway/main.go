// Command gateway serves the paywalled weather endpoint: 402 with payment
// terms until a request carries a payment-tx-hash header.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vitwit/paygate/config"
	"github.com/vitwit/paygate/gateway"
	"github.com/vitwit/paygate/logger"
	"github.com/vitwit/paygate/metrics"
	"github.com/vitwit/paygate/types"
	"github.com/vitwit/paygate/weather"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gateway: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewZapLogger(cfg.LogLevel)

	var rec metrics.Recorder = metrics.NoopRecorder{}
	if cfg.MetricsAddr != "" {
		rec = metrics.NewPrometheusRecorder()
		go serveMetrics(cfg.MetricsAddr, log)
	}

	provider := weather.New(cfg.WeatherAPIKey)
	handler := gateway.New(cfg.Terms(), provider,
		gateway.WithLogger(log),
		gateway.WithMetrics(rec),
	)

	mux := http.NewServeMux()
	mux.Handle("/weather", handler)

	log.Info("gateway listening", map[string]any{
		"addr":      cfg.ListenAddr,
		"amount":    cfg.PaymentAmount,
		"recipient": cfg.RecipientWallet,
		"currency":  types.PaymentTypeETH,
	})

	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		log.Error("gateway stopped", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func serveMetrics(addr string, log logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics listener stopped", map[string]any{"error": err.Error()})
	}
}
