package match

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotional(t *testing.T) {
	tests := []struct {
		name     string
		price    uint64
		amount   uint64
		decimals uint8
		want     uint64
	}{
		{name: "harness units", price: 10_000_000, amount: 100_000_000, decimals: 9, want: 1_000_000},
		{name: "rounds down", price: 3, amount: 1, decimals: 1, want: 0},
		{name: "exact", price: 15, amount: 4, decimals: 1, want: 6},
		{name: "no scale", price: 7, amount: 6, decimals: 0, want: 42},
		{name: "large intermediate", price: math.MaxUint64, amount: 1_000_000_000, decimals: 9, want: math.MaxUint64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := notional(tt.price, tt.amount, tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("overflow", func(t *testing.T) {
		_, err := notional(math.MaxUint64, 2, 0)
		assert.ErrorIs(t, err, ErrOverflow)
	})
}

func TestCalculateDepthChange(t *testing.T) {
	open := &BookLog{Type: LogTypeOpen, Side: Buy, Price: 10, Amount: 3}
	assert.Equal(t, DepthChange{Side: Buy, Price: 10, Amount: 3}, CalculateDepthChange(open))

	match := &BookLog{Type: LogTypeMatch, Side: Buy, Price: 12, Amount: 2}
	assert.Equal(t, DepthChange{Side: Sell, Price: 12, Amount: 2, Remove: true}, CalculateDepthChange(match))

	cancel := &BookLog{Type: LogTypeCancel, Side: Sell, Price: 12, Amount: 1}
	assert.Equal(t, DepthChange{Side: Sell, Price: 12, Amount: 1, Remove: true}, CalculateDepthChange(cancel))
}
