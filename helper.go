package match

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// notional converts a base amount at a fixed-point price into quote units:
// floor(price * amount / 10^decimals). The product is computed exactly and
// the result must fit in a uint64.
func notional(price uint64, amount uint64, decimals uint8) (uint64, error) {
	value := decimal.NewFromUint64(price).
		Mul(decimal.NewFromUint64(amount)).
		Shift(-int32(decimals)).
		Floor()

	n := value.BigInt()
	if !n.IsUint64() {
		return 0, fmt.Errorf("%w: notional of %d at price %d", ErrOverflow, amount, price)
	}
	return n.Uint64(), nil
}

// DepthChange represents a change in the order book depth.
type DepthChange struct {
	Side   Side
	Price  uint64
	Amount uint64
	Remove bool // true when Amount leaves the level, false when it is added
}

// CalculateDepthChange calculates the depth change based on the book log.
// For LogTypeMatch, the side returned is the maker's side (opposite of the log's side).
func CalculateDepthChange(log *BookLog) DepthChange {
	switch log.Type {
	case LogTypeOpen:
		return DepthChange{
			Side:   log.Side,
			Price:  log.Price,
			Amount: log.Amount,
		}
	case LogTypeMatch:
		// Match reduces liquidity from the maker side.
		return DepthChange{
			Side:   opposite(log.Side),
			Price:  log.Price,
			Amount: log.Amount,
			Remove: true,
		}
	case LogTypeCancel:
		return DepthChange{
			Side:   log.Side,
			Price:  log.Price,
			Amount: log.Amount,
			Remove: true,
		}
	}

	return DepthChange{}
}
