package match

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/oxygenfuel/contract/protocol"
)

// AssetID identifies a fungible asset (the base or quote token of the pair).
type AssetID common.Hash

// AccountID identifies an owner of balances and orders.
type AccountID common.Hash

// HexToAssetID parses a 0x-prefixed hex string. Short input is left-padded like common.HexToHash.
func HexToAssetID(s string) (AssetID, error) {
	h, err := parseHash(s)
	return AssetID(h), err
}

// HexToAccountID parses a 0x-prefixed hex string. Short input is left-padded like common.HexToHash.
func HexToAccountID(s string) (AccountID, error) {
	h, err := parseHash(s)
	return AccountID(h), err
}

func parseHash(s string) (common.Hash, error) {
	if len(s) == 0 {
		return common.Hash{}, ErrInvalidParam
	}
	var h common.Hash
	if err := h.UnmarshalText([]byte(s)); err == nil {
		return h, nil
	}
	raw := s
	if len(raw) > 1 && raw[0] == '0' && (raw[1] == 'x' || raw[1] == 'X') {
		raw = raw[2:]
	}
	if len(raw) == 0 || len(raw) > 2*common.HashLength || !isHex(raw) {
		return common.Hash{}, ErrInvalidParam
	}
	return common.HexToHash(raw), nil
}

func isHex(s string) bool {
	for _, c := range s {
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

func (a AssetID) Hex() string    { return common.Hash(a).Hex() }
func (a AssetID) String() string { return a.Hex() }

func (a AssetID) MarshalText() ([]byte, error) { return common.Hash(a).MarshalText() }

func (a *AssetID) UnmarshalText(input []byte) error {
	return (*common.Hash)(a).UnmarshalText(input)
}

func (a AccountID) Hex() string    { return common.Hash(a).Hex() }
func (a AccountID) String() string { return a.Hex() }

func (a AccountID) MarshalText() ([]byte, error) { return common.Hash(a).MarshalText() }

func (a *AccountID) UnmarshalText(input []byte) error {
	return (*common.Hash)(a).UnmarshalText(input)
}

type Side = protocol.Side

const (
	Buy  Side = protocol.SideBuy
	Sell Side = protocol.SideSell
)

func opposite(side Side) Side {
	if side == Buy {
		return Sell
	}
	return Buy
}

// Order represents the state of an order in the order book.
// This is the serializable state used for snapshots.
type Order struct {
	ID       uint64    `json:"id"`
	Owner    AccountID `json:"owner"`
	Side     Side      `json:"side"`
	Price    uint64    `json:"price"`
	Amount   uint64    `json:"amount"`   // Remaining base quantity
	Sequence uint64    `json:"sequence"` // Insertion order, assigned when the order rests
	Locked   uint64    `json:"locked"`   // Escrow still backing the order: quote for bids, base for asks

	// Intrusive linked list pointers (ignored by JSON)
	next *Order
	prev *Order
}

// Trade is an immutable record of one fill. Price is always the maker's price.
type Trade struct {
	TradeID      uint64    `json:"trade_id"`
	MakerOrderID uint64    `json:"maker_order_id"`
	TakerOrderID uint64    `json:"taker_order_id"`
	TakerOwner   AccountID `json:"taker_owner"`
	MakerOwner   AccountID `json:"maker_owner"`
	TakerSide    Side      `json:"taker_side"`
	Price        uint64    `json:"price"`
	Amount       uint64    `json:"amount"`       // Base quantity
	QuoteAmount  uint64    `json:"quote_amount"` // Quote paid by the buyer to the seller
}

// PairState is the one-time configuration of the traded pair.
type PairState struct {
	BaseAsset     AssetID `json:"base_asset"`
	QuoteAsset    AssetID `json:"quote_asset"`
	PriceDecimals uint8   `json:"price_decimals"`
	Initialized   bool    `json:"initialized"`
}

// BookEntry is a read-only view of one resting order.
type BookEntry struct {
	OrderID  uint64
	Owner    AccountID
	Price    uint64
	Amount   uint64
	Sequence uint64
}

// DepthItem is an aggregated price level.
type DepthItem struct {
	Price  uint64
	Amount uint64
	Count  int64
}

// Depth is the aggregated view of both sides.
type Depth struct {
	UpdateID uint64
	Bids     []*DepthItem
	Asks     []*DepthItem
}
