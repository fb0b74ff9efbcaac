package types

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// EtherDecimals is the native token precision: 1 ETH = 10^18 wei.
const EtherDecimals = 18

var weiPerEther = decimal.NewFromBigInt(big.NewInt(1), EtherDecimals)

// ParseAmount validates a decimal ETH amount string.
func ParseAmount(amount string) (decimal.Decimal, error) {
	if amount == "" {
		return decimal.Decimal{}, fmt.Errorf("amount cannot be empty")
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount format: %w", err)
	}

	if dec.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("amount cannot be negative")
	}

	return dec, nil
}

// ToWei converts a decimal ETH amount to wei.
func ToWei(amount decimal.Decimal) *big.Int {
	return amount.Mul(weiPerEther).BigInt()
}

// FromWei converts a wei amount to decimal ETH.
func FromWei(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -EtherDecimals)
}

// FormatWei renders a wei amount as a decimal ETH string.
func FormatWei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return FromWei(wei).String()
}
