package types

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCode(t *testing.T) {
	err := NewPaymentError(ErrRPC, "node said no: %d", 42)
	assert.Equal(t, ErrRPC, ErrorCode(err))
	assert.Equal(t, "RPC_ERROR: node said no: 42", err.Error())

	assert.Equal(t, "", ErrorCode(nil))
	assert.Equal(t, "", ErrorCode(errors.New("plain")))
}

func TestInsufficientFundsCarriesShortfall(t *testing.T) {
	needed := big.NewInt(2_000_000_000_000_000)
	have := big.NewInt(500_000_000_000_000)

	err := NewInsufficientFunds(needed, have)
	require.Equal(t, ErrInsufficientFunds, ErrorCode(err))

	data, ok := err.Data.(*InsufficientFundsData)
	require.True(t, ok)
	assert.Equal(t, 0, data.Needed.Cmp(needed))
	assert.Equal(t, 0, data.Have.Cmp(have))
	assert.Contains(t, err.Error(), "0.002")
	assert.Contains(t, err.Error(), "0.0005")
}

func TestAmountConversion(t *testing.T) {
	amount, err := ParseAmount("0.00000001")
	require.NoError(t, err)

	wei := ToWei(amount)
	assert.Equal(t, "10000000000", wei.String())
	assert.True(t, amount.Equal(FromWei(wei)))
}

func TestParseAmountRejectsBadInput(t *testing.T) {
	_, err := ParseAmount("")
	assert.Error(t, err)

	_, err = ParseAmount("-0.1")
	assert.Error(t, err)

	_, err = ParseAmount("one ether")
	assert.Error(t, err)
}

func TestFormatWei(t *testing.T) {
	assert.Equal(t, "1", FormatWei(big.NewInt(1_000_000_000_000_000_000)))
	assert.Equal(t, "0", FormatWei(nil))
}
