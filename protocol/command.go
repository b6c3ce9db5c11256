package protocol

// CommandType defines the type of the command (using uint8 for memory alignment and performance)
type CommandType uint8

// Command Type Numbering Strategy:
// - 0-50:  pair management (one-shot, low frequency)
// - 51+:   custody and trading (hot path)
const (
	CmdUnknown CommandType = 0
	CmdInit    CommandType = 1

	CmdDeposit    CommandType = 51
	CmdPlaceOrder CommandType = 52
)

// String returns a short name used in logs.
func (t CommandType) String() string {
	switch t {
	case CmdInit:
		return "init"
	case CmdDeposit:
		return "deposit"
	case CmdPlaceOrder:
		return "place_order"
	default:
		return "unknown"
	}
}

// Command is the standard carrier for state-changing requests entering the engine.
// The same envelope is written to the journal, so replaying journaled commands
// reproduces the engine state.
type Command struct {
	// Version is the protocol version for backward compatibility.
	Version uint8 `json:"version"`

	// SeqID is used for global ordering and deduplication.
	SeqID uint64 `json:"seq_id"`

	// Type identifies the payload type for fast routing.
	Type CommandType `json:"type"`

	// Payload contains the serialized business data (e.g., JSON bytes of PlaceOrderCommand).
	Payload []byte `json:"payload"`

	// Metadata stores non-business context (e.g., request id, source IP).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// InitCommand is the payload for the one-time pair initialization.
// Asset ids are 32-byte hex strings.
type InitCommand struct {
	BaseAsset     string `json:"base_asset"`
	QuoteAsset    string `json:"quote_asset"`
	PriceDecimals *uint8 `json:"price_decimals,omitempty"`
}

// DepositCommand credits Amount of Asset to Account.
type DepositCommand struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Amount  uint64 `json:"amount,string"`
}

// PlaceOrderCommand is the payload for placing a new limit order.
type PlaceOrderCommand struct {
	Account string `json:"account"`
	Side    Side   `json:"side"`
	Price   uint64 `json:"price,string"`  // quote per base, scaled by the pair's price decimals
	Amount  uint64 `json:"amount,string"` // base quantity
}
