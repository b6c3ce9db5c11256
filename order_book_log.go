package match

import (
	"sync"

	"github.com/oxygenfuel/contract/protocol"
)

type LogType = protocol.LogType

const (
	LogTypeOpen   LogType = protocol.LogTypeOpen
	LogTypeMatch  LogType = protocol.LogTypeMatch
	LogTypeCancel LogType = protocol.LogTypeCancel
)

// BookLog represents an event in the order book.
// SequenceID is a globally increasing ID for every event, used for ordering,
// deduplication, and rebuild synchronization in downstream systems.
// There is no timestamp: the engine never reads the clock.
type BookLog struct {
	SequenceID   uint64    `json:"seq_id"`
	TradeID      uint64    `json:"trade_id,omitempty"` // Sequential trade ID, only set for Match events
	Type         LogType   `json:"type"`               // Event type: open, match, cancel
	Side         Side      `json:"side"`               // Order side for open, taker side for match
	Price        uint64    `json:"price,string"`
	Amount       uint64    `json:"amount,string"`
	QuoteAmount  uint64    `json:"quote_amount,string,omitempty"` // Only set for Match events
	OrderID      uint64    `json:"order_id,string"`
	Owner        AccountID `json:"owner"`
	MakerOrderID uint64    `json:"maker_order_id,string,omitempty"`
	MakerOwner   AccountID `json:"maker_owner,omitzero"`
}

var bookLogPool = sync.Pool{
	New: func() any {
		return new(BookLog)
	},
}

func acquireBookLog() *BookLog {
	return bookLogPool.Get().(*BookLog)
}

func releaseBookLog(log *BookLog) {
	*log = BookLog{}
	bookLogPool.Put(log)
}

// NewOpenLog records an order coming to rest in the book.
func NewOpenLog(seqID uint64, order *Order) *BookLog {
	log := acquireBookLog()
	log.SequenceID = seqID
	log.Type = LogTypeOpen
	log.Side = order.Side
	log.Price = order.Price
	log.Amount = order.Amount
	log.OrderID = order.ID
	log.Owner = order.Owner
	return log
}

// NewMatchLog records one fill between an incoming order and a resting order.
func NewMatchLog(seqID uint64, trade *Trade) *BookLog {
	log := acquireBookLog()
	log.SequenceID = seqID
	log.TradeID = trade.TradeID
	log.Type = LogTypeMatch
	log.Side = trade.TakerSide
	log.Price = trade.Price
	log.Amount = trade.Amount
	log.QuoteAmount = trade.QuoteAmount
	log.OrderID = trade.TakerOrderID
	log.Owner = trade.TakerOwner
	log.MakerOrderID = trade.MakerOrderID
	log.MakerOwner = trade.MakerOwner
	return log
}

// NewCancelLog records amount of a resting order leaving the book without a trade.
func NewCancelLog(seqID uint64, order *Order, amount uint64) *BookLog {
	log := acquireBookLog()
	log.SequenceID = seqID
	log.Type = LogTypeCancel
	log.Side = order.Side
	log.Price = order.Price
	log.Amount = amount
	log.OrderID = order.ID
	log.Owner = order.Owner
	return log
}
