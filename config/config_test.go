package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/paygate/types"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("PRIVATE_KEY", "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	t.Setenv("RECIPIENT_WALLET", "0x9953a068639e409133baAcdd4513D9637D20132f")
	t.Setenv("PAYMENT_AMOUNT", "0.00000001")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:4021/weather", cfg.PaidURL)
	assert.Equal(t, "https://sepolia.base.org", cfg.RPCURL)
	assert.Equal(t, ":4021", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "0.00000001", cfg.Amount().String())

	terms := cfg.Terms()
	assert.Equal(t, types.PaymentTypeETH, terms.Currency)
	assert.Equal(t, cfg.RecipientWallet, terms.Recipient)
}

func TestLoad_MissingRecipient(t *testing.T) {
	setRequired(t)
	t.Setenv("RECIPIENT_WALLET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, types.ErrConfigMissing, types.ErrorCode(err))
}

func TestLoad_BadRecipientAddress(t *testing.T) {
	setRequired(t)
	t.Setenv("RECIPIENT_WALLET", "not-an-address")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, types.ErrConfigMissing, types.ErrorCode(err))
}

func TestLoad_MissingAmount(t *testing.T) {
	setRequired(t)
	t.Setenv("PAYMENT_AMOUNT", "")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, types.ErrConfigMissing, types.ErrorCode(err))
}

func TestLoad_InvalidAmount(t *testing.T) {
	setRequired(t)
	t.Setenv("PAYMENT_AMOUNT", "a lot")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, types.ErrConfigMissing, types.ErrorCode(err))
}

func TestRequireSigningKey(t *testing.T) {
	setRequired(t)
	t.Setenv("PRIVATE_KEY", "")

	cfg, err := Load()
	require.NoError(t, err, "the gateway loads fine without a key")

	err = cfg.RequireSigningKey()
	require.Error(t, err)
	assert.Equal(t, types.ErrConfigMissing, types.ErrorCode(err))
}
