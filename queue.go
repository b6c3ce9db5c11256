package match

import (
	"math"
	"math/bits"

	"github.com/huandu/skiplist"
)

// priceUnit is one price level: a FIFO of orders in arrival order.
type priceUnit struct {
	price uint64
	head  *Order
	tail  *Order
	count int64
}

type queue struct {
	side        Side
	totalOrders int64
	depths      int64
	depthList   *skiplist.SkipList
	priceList   map[uint64]*skiplist.Element
	orders      map[uint64]*Order
}

// NewBuyerQueue creates a new queue for buy orders (bids).
// The orders are sorted by price in descending order (highest price first).
func NewBuyerQueue() *queue {
	return &queue{
		side: Buy,
		depthList: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			p1, _ := lhs.(uint64)
			p2, _ := rhs.(uint64)

			if p1 < p2 {
				return 1
			} else if p1 > p2 {
				return -1
			}

			return 0
		})),
		priceList: make(map[uint64]*skiplist.Element),
		orders:    make(map[uint64]*Order),
	}
}

// NewSellerQueue creates a new queue for sell orders (asks).
// The orders are sorted by price in ascending order (lowest price first).
func NewSellerQueue() *queue {
	return &queue{
		side: Sell,
		depthList: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			p1, _ := lhs.(uint64)
			p2, _ := rhs.(uint64)

			if p1 > p2 {
				return 1
			} else if p1 < p2 {
				return -1
			}

			return 0
		})),
		priceList: make(map[uint64]*skiplist.Element),
		orders:    make(map[uint64]*Order),
	}
}

// order finds an order by its ID.
func (q *queue) order(id uint64) *Order {
	return q.orders[id]
}

// insertOrder appends an order at the back of its price level.
// Orders arrive with increasing sequence numbers, so FIFO order within a level
// is ascending sequence order.
func (q *queue) insertOrder(order *Order) {
	el, ok := q.priceList[order.Price]
	if ok {
		unit, _ := el.Value.(*priceUnit)
		order.prev = unit.tail
		order.next = nil
		if unit.tail != nil {
			unit.tail.next = order
		}
		unit.tail = order
		if unit.head == nil {
			unit.head = order
		}
		unit.count++
	} else {
		unit := &priceUnit{
			price: order.Price,
			head:  order,
			tail:  order,
			count: 1,
		}
		order.next = nil
		order.prev = nil

		el := q.depthList.Set(order.Price, unit)
		q.priceList[order.Price] = el
		q.depths++
	}

	q.orders[order.ID] = order
	q.totalOrders++
}

// removeOrder unlinks an order and drops its price level once empty.
func (q *queue) removeOrder(id uint64) *Order {
	order, ok := q.orders[id]
	if !ok {
		return nil
	}

	skipElement, ok := q.priceList[order.Price]
	if !ok {
		return nil
	}
	unit, _ := skipElement.Value.(*priceUnit)

	if order.prev != nil {
		order.prev.next = order.next
	} else {
		unit.head = order.next
	}

	if order.next != nil {
		order.next.prev = order.prev
	} else {
		unit.tail = order.prev
	}

	order.next = nil
	order.prev = nil

	unit.count--
	delete(q.orders, id)
	q.totalOrders--

	if unit.count == 0 {
		q.depthList.RemoveElement(skipElement)
		delete(q.priceList, order.Price)
		q.depths--
	}

	return order
}

// reduceOrder decrements the remaining amount of a resting order in place,
// keeping its priority, and removes it once nothing is left.
func (q *queue) reduceOrder(id uint64, filled uint64) (removed bool, err error) {
	order, ok := q.orders[id]
	if !ok {
		return false, ErrNotFound
	}
	if filled > order.Amount {
		return false, ErrInvalidParam
	}

	order.Amount -= filled
	if order.Amount == 0 {
		q.removeOrder(id)
		return true, nil
	}
	return false, nil
}

// peekHeadOrder returns the order at the front of the queue (best price) without removing it.
func (q *queue) peekHeadOrder() *Order {
	el := q.depthList.Front()
	if el == nil {
		return nil
	}

	unit, _ := el.Value.(*priceUnit)
	return unit.head
}

// walk visits orders in priority order until fn returns false. fn must not modify the queue.
func (q *queue) walk(fn func(*Order) bool) {
	for elem := q.depthList.Front(); elem != nil; elem = elem.Next() {
		unit, _ := elem.Value.(*priceUnit)
		for order := unit.head; order != nil; order = order.next {
			if !fn(order) {
				return
			}
		}
	}
}

// orderCount returns the total number of orders in the queue.
func (q *queue) orderCount() int64 {
	return q.totalOrders
}

// depthCount returns the number of price levels in the queue.
func (q *queue) depthCount() int64 {
	return q.depths
}

// toSnapshot copies the queue into a slice of Order structs in priority order.
func (q *queue) toSnapshot() []Order {
	snapshots := make([]Order, 0, q.totalOrders)
	q.walk(func(order *Order) bool {
		snapshots = append(snapshots, Order{
			ID:       order.ID,
			Owner:    order.Owner,
			Side:     order.Side,
			Price:    order.Price,
			Amount:   order.Amount,
			Sequence: order.Sequence,
			Locked:   order.Locked,
		})
		return true
	})
	return snapshots
}

// entries returns the read-only view used by the orderbook query.
func (q *queue) entries() []BookEntry {
	result := make([]BookEntry, 0, q.totalOrders)
	q.walk(func(order *Order) bool {
		result = append(result, BookEntry{
			OrderID:  order.ID,
			Owner:    order.Owner,
			Price:    order.Price,
			Amount:   order.Amount,
			Sequence: order.Sequence,
		})
		return true
	})
	return result
}

// depth returns the order book depth up to the specified limit.
// Level totals saturate at MaxUint64; they are informational only.
func (q *queue) depth(limit uint32) []*DepthItem {
	result := make([]*DepthItem, 0, min(int(limit), int(q.depths)))

	el := q.depthList.Front()

	var i uint32 = 0
	for i < limit && el != nil {
		unit, _ := el.Value.(*priceUnit)
		item := &DepthItem{
			Price: unit.price,
			Count: unit.count,
		}
		for order := unit.head; order != nil; order = order.next {
			sum, carry := bits.Add64(item.Amount, order.Amount, 0)
			if carry != 0 {
				sum = math.MaxUint64
			}
			item.Amount = sum
		}

		result = append(result, item)

		el = el.Next()
		i++
	}

	return result
}
