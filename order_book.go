package match

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BookStats contains statistics about the order book queues
type BookStats struct {
	AskDepthCount int64
	AskOrderCount int64
	BidDepthCount int64
	BidOrderCount int64
}

// OrderBook holds the resting orders of both sides in price-time priority.
// It is not safe for concurrent use; the Engine serializes access.
type OrderBook struct {
	bidQueue *queue
	askQueue *queue
}

// NewOrderBook creates an empty order book.
func NewOrderBook() *OrderBook {
	return &OrderBook{
		bidQueue: NewBuyerQueue(),
		askQueue: NewSellerQueue(),
	}
}

func (book *OrderBook) queue(side Side) *queue {
	if side == Buy {
		return book.bidQueue
	}
	return book.askQueue
}

// Best returns the top-of-book order for a side, or nil when that side is empty.
func (book *OrderBook) Best(side Side) *Order {
	return book.queue(side).peekHeadOrder()
}

// Insert adds a resting order at the back of its price level.
func (book *OrderBook) Insert(order *Order) error {
	if order.Amount == 0 || order.Price == 0 {
		return ErrInvalidOrder
	}
	if !order.Side.Valid() {
		return ErrInvalidParam
	}
	if book.Order(order.ID) != nil {
		return fmt.Errorf("%w: duplicate order id %d", ErrInvalidParam, order.ID)
	}
	book.queue(order.Side).insertOrder(order)
	return nil
}

// ReduceOrRemove decrements the remaining amount of an order and removes it when it reaches zero.
func (book *OrderBook) ReduceOrRemove(orderID uint64, filled uint64) (removed bool, err error) {
	if order := book.askQueue.order(orderID); order != nil {
		return book.askQueue.reduceOrder(orderID, filled)
	}
	if order := book.bidQueue.order(orderID); order != nil {
		return book.bidQueue.reduceOrder(orderID, filled)
	}
	return false, ErrNotFound
}

// Order finds a resting order by id on either side.
func (book *OrderBook) Order(id uint64) *Order {
	if order := book.askQueue.order(id); order != nil {
		return order
	}
	return book.bidQueue.order(id)
}

// Snapshot returns the resting orders of one side in priority order.
func (book *OrderBook) Snapshot(side Side) []BookEntry {
	return book.queue(side).entries()
}

// Depth returns the aggregated price levels of both sides up to limit levels each.
func (book *OrderBook) Depth(limit uint32) (*Depth, error) {
	if limit == 0 {
		return nil, ErrInvalidParam
	}
	return &Depth{
		Bids: book.bidQueue.depth(limit),
		Asks: book.askQueue.depth(limit),
	}, nil
}

// Stats returns order and price-level counts.
func (book *OrderBook) Stats() *BookStats {
	return &BookStats{
		AskDepthCount: book.askQueue.depthCount(),
		AskOrderCount: book.askQueue.orderCount(),
		BidDepthCount: book.bidQueue.depthCount(),
		BidOrderCount: book.bidQueue.orderCount(),
	}
}

// lockedTotal sums the escrow held by resting orders of one side:
// bids lock quote, asks lock base.
func (book *OrderBook) lockedTotal(side Side) decimal.Decimal {
	total := decimal.Zero
	book.queue(side).walk(func(order *Order) bool {
		total = total.Add(decimal.NewFromUint64(order.Locked))
		return true
	})
	return total
}
