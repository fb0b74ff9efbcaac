// Package config loads deployment settings from the environment, with
// optional .env file support.
package config

import (
	"github.com/caarlos0/env/v6"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/vitwit/paygate/types"
)

var validate = validator.New()

// Config holds everything both binaries need. The signing key and payment
// amount are fatal when absent; everything else has a workable default.
type Config struct {
	// PrivateKey is the hex-encoded signing key. Secret; never logged.
	// Only the paying side needs it; the gateway runs without one.
	PrivateKey string `env:"PRIVATE_KEY"`

	// PaidURL is the paywalled resource the fetch command targets.
	PaidURL string `env:"PAID_URL" envDefault:"http://localhost:4021/weather" validate:"required,url"`

	// RecipientWallet receives the payment. Must match what the gateway
	// advertises or retried requests will look unrelated to the terms.
	RecipientWallet string `env:"RECIPIENT_WALLET" validate:"required,eth_addr"`

	// PaymentAmount is the decimal ETH price per request.
	PaymentAmount string `env:"PAYMENT_AMOUNT" validate:"required"`

	// RPCURL is the single chain endpoint.
	RPCURL string `env:"RPC_URL" envDefault:"https://sepolia.base.org" validate:"required,url"`

	// WeatherAPIKey authenticates against the upstream weather provider.
	WeatherAPIKey string `env:"WEATHER_API_KEY"`

	ListenAddr  string `env:"LISTEN_ADDR" envDefault:":4021"`
	MetricsAddr string `env:"METRICS_ADDR"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads an optional .env file, then the process environment, and
// validates the result. Failures carry the CONFIG_MISSING code and are
// meant to be fatal at startup.
func Load() (*Config, error) {
	// missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, types.NewPaymentError(types.ErrConfigMissing,
			"parse environment: %v", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, types.NewPaymentError(types.ErrConfigMissing,
			"invalid configuration: %v", err)
	}

	if _, err := types.ParseAmount(cfg.PaymentAmount); err != nil {
		return nil, types.NewPaymentError(types.ErrConfigMissing,
			"invalid PAYMENT_AMOUNT: %v", err)
	}

	return cfg, nil
}

// RequireSigningKey fails when no signing key is configured. The paying
// process calls this at startup; absence is fatal there.
func (c *Config) RequireSigningKey() error {
	if c.PrivateKey == "" {
		return types.NewPaymentError(types.ErrConfigMissing,
			"PRIVATE_KEY is required")
	}
	return nil
}

// Amount returns the payment amount as a decimal. Load has already
// validated it.
func (c *Config) Amount() decimal.Decimal {
	d, _ := decimal.NewFromString(c.PaymentAmount)
	return d
}

// Terms builds the payment terms this deployment advertises and pays.
func (c *Config) Terms() types.PaymentTerms {
	return types.PaymentTerms{
		Amount:    c.Amount(),
		Recipient: c.RecipientWallet,
		Currency:  types.PaymentTypeETH,
	}
}
