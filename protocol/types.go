package protocol

// Side represents the order side on the wire.
// The numbering follows the deployed contract's calling convention: 0 is a buy, 1 is a sell.
type Side int8

const (
	SideBuy  Side = 0
	SideSell Side = 1
)

// String returns "buy" or "sell".
func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the known sides.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// LogType represents the type of event log.
type LogType string

const (
	LogTypeOpen   LogType = "open"
	LogTypeMatch  LogType = "match"
	LogTypeCancel LogType = "cancel"
)

// BookEntry is one resting order as exposed by the orderbook view.
type BookEntry struct {
	OrderID      uint64 `json:"order_id,string"`
	Owner        string `json:"owner"`
	Price        uint64 `json:"price,string"`
	DisplayPrice string `json:"display_price"` // Price with the pair's decimals applied
	Amount       uint64 `json:"amount,string"`
	Sequence     uint64 `json:"sequence,string"`
}

// DepthItem is one aggregated price level.
type DepthItem struct {
	Price        uint64 `json:"price,string"`
	DisplayPrice string `json:"display_price"`
	Amount       uint64 `json:"amount,string"`
	Count        int64  `json:"count"`
}

// GetDepthResponse represents the state of the order book depth.
type GetDepthResponse struct {
	UpdateID uint64       `json:"update_id"`
	Bids     []*DepthItem `json:"bids"`
	Asks     []*DepthItem `json:"asks"`
}

// TradeItem is the wire form of a single fill.
type TradeItem struct {
	TradeID      uint64 `json:"trade_id,string"`
	MakerOrderID uint64 `json:"maker_order_id,string"`
	TakerOrderID uint64 `json:"taker_order_id,string"`
	MakerOwner   string `json:"maker_owner"`
	TakerOwner   string `json:"taker_owner"`
	TakerSide    Side   `json:"taker_side"`
	Price        uint64 `json:"price,string"`
	Amount       uint64 `json:"amount,string"`
	QuoteAmount  uint64 `json:"quote_amount,string"`
}

// PlaceOrderResponse carries the order id assigned at placement and the fills it produced.
type PlaceOrderResponse struct {
	OrderID   uint64       `json:"order_id,string"`
	Rested    bool         `json:"rested"`
	Cancelled uint64       `json:"cancelled,string,omitempty"`
	Trades    []*TradeItem `json:"trades"`
}

// BalanceResponse is the reply to a balance query.
type BalanceResponse struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Amount  uint64 `json:"amount,string"`
}

// PairResponse describes the traded pair.
type PairResponse struct {
	BaseAsset     string `json:"base_asset"`
	QuoteAsset    string `json:"quote_asset"`
	PriceDecimals uint8  `json:"price_decimals"`
	Initialized   bool   `json:"initialized"`
}
