package protocol

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidUnits    = errors.New("protocol: invalid decimal amount")
	ErrNegativeUnits   = errors.New("protocol: amount must not be negative")
	ErrTooManyDecimals = errors.New("protocol: amount has more decimals than the asset supports")
	ErrUnitsOutOfRange = errors.New("protocol: amount does not fit in 64 bits")
)

// ParseUnits converts a human readable decimal amount ("0.1") into integer base
// units for an asset with the given number of decimals (0.1 with 9 decimals is 100000000).
func ParseUnits(s string, decimals int32) (uint64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUnits, s)
	}
	if d.IsNegative() {
		return 0, ErrNegativeUnits
	}

	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return 0, ErrTooManyDecimals
	}

	n := scaled.BigInt()
	if !n.IsUint64() {
		return 0, ErrUnitsOutOfRange
	}
	return n.Uint64(), nil
}

// FormatUnits is the inverse of ParseUnits.
func FormatUnits(v uint64, decimals int32) string {
	return decimal.NewFromUint64(v).Shift(-decimals).String()
}
