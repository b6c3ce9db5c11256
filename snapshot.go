package match

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// EngineSnapshot contains the full state of an Engine.
type EngineSnapshot struct {
	SchemaVersion  int             `json:"schema_version"`
	EngineVersion  string          `json:"engine_version"`
	Pair           PairState       `json:"pair"`
	LastCmdSeqID   uint64          `json:"last_cmd_seq_id"` // Last command handled by Execute
	NextOrderID    uint64          `json:"next_order_id"`   // Last assigned order id
	Sequence       uint64          `json:"sequence"`        // Last assigned resting sequence
	TradeID        uint64          `json:"trade_id"`
	LogSeqID       uint64          `json:"log_seq_id"` // Current BookLog sequence ID
	BaseDeposited  decimal.Decimal `json:"base_deposited"`
	QuoteDeposited decimal.Decimal `json:"quote_deposited"`
	Balances       []BalanceEntry  `json:"balances"` // Sorted by account, then asset
	Bids           []Order         `json:"bids"`     // Best price first
	Asks           []Order         `json:"asks"`     // Best price first
}

// Snapshot captures the engine state. It is a deep copy.
func (engine *Engine) Snapshot() *EngineSnapshot {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	return &EngineSnapshot{
		SchemaVersion:  SnapshotSchemaVersion,
		EngineVersion:  EngineVersion,
		Pair:           engine.pair,
		LastCmdSeqID:   engine.lastCmdSeqID,
		NextOrderID:    engine.nextOrderID,
		Sequence:       engine.sequence,
		TradeID:        engine.tradeID,
		LogSeqID:       engine.logSeqID,
		BaseDeposited:  engine.baseDeposited,
		QuoteDeposited: engine.quoteDeposited,
		Balances:       engine.ledger.entries(),
		Bids:           engine.book.bidQueue.toSnapshot(),
		Asks:           engine.book.askQueue.toSnapshot(),
	}
}

// Restore replaces the engine state with a snapshot. The snapshot is validated
// first; on any error the engine is left as it was.
func (engine *Engine) Restore(snap *EngineSnapshot) error {
	if snap == nil {
		return ErrInvalidParam
	}
	if snap.SchemaVersion != SnapshotSchemaVersion {
		return fmt.Errorf("%w: schema version %d, want %d", ErrSnapshotCorrupted, snap.SchemaVersion, SnapshotSchemaVersion)
	}

	restored := &Engine{
		pair:           snap.Pair,
		ledger:         NewLedger(),
		book:           NewOrderBook(),
		baseDeposited:  snap.BaseDeposited,
		quoteDeposited: snap.QuoteDeposited,
		nextOrderID:    snap.NextOrderID,
		sequence:       snap.Sequence,
		tradeID:        snap.TradeID,
		logSeqID:       snap.LogSeqID,
		lastCmdSeqID:   snap.LastCmdSeqID,
	}

	if !snap.Pair.Initialized && (len(snap.Balances) > 0 || len(snap.Bids) > 0 || len(snap.Asks) > 0) {
		return fmt.Errorf("%w: state without an initialized pair", ErrSnapshotCorrupted)
	}
	if snap.Pair.Initialized && (snap.Pair.BaseAsset == snap.Pair.QuoteAsset || snap.Pair.PriceDecimals > MaxPriceDecimals) {
		return fmt.Errorf("%w: invalid pair", ErrSnapshotCorrupted)
	}

	for _, e := range snap.Balances {
		if e.Asset != snap.Pair.BaseAsset && e.Asset != snap.Pair.QuoteAsset {
			return fmt.Errorf("%w: balance in asset %s outside the pair", ErrSnapshotCorrupted, e.Asset)
		}
	}
	if err := restored.ledger.restore(snap.Balances); err != nil {
		return err
	}

	if err := restored.restoreSide(Buy, snap.Bids); err != nil {
		return err
	}
	if err := restored.restoreSide(Sell, snap.Asks); err != nil {
		return err
	}

	if best, ask := restored.book.Best(Buy), restored.book.Best(Sell); best != nil && ask != nil && best.Price >= ask.Price {
		return fmt.Errorf("%w: crossed book, bid %d ask %d", ErrSnapshotCorrupted, best.Price, ask.Price)
	}
	if err := restored.audit(); err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotCorrupted, err)
	}

	engine.mu.Lock()
	defer engine.mu.Unlock()

	engine.pair = restored.pair
	engine.ledger = restored.ledger
	engine.book = restored.book
	engine.baseDeposited = restored.baseDeposited
	engine.quoteDeposited = restored.quoteDeposited
	engine.nextOrderID = restored.nextOrderID
	engine.sequence = restored.sequence
	engine.tradeID = restored.tradeID
	engine.logSeqID = restored.logSeqID
	engine.lastCmdSeqID = restored.lastCmdSeqID

	logger.Info("engine restored",
		"last_cmd_seq_id", snap.LastCmdSeqID,
		"bids", len(snap.Bids),
		"asks", len(snap.Asks),
		"balances", len(snap.Balances),
	)
	return nil
}

// restoreSide inserts orders in the snapshot order, which rebuilds each price
// level FIFO exactly.
func (engine *Engine) restoreSide(side Side, orders []Order) error {
	var lastPrice, lastSeq uint64
	for i, o := range orders {
		if o.Side != side {
			return fmt.Errorf("%w: order %d on the wrong side", ErrSnapshotCorrupted, o.ID)
		}
		if o.ID == 0 || o.ID > engine.nextOrderID || o.Sequence == 0 || o.Sequence > engine.sequence {
			return fmt.Errorf("%w: order %d beyond counters", ErrSnapshotCorrupted, o.ID)
		}
		if side == Sell && o.Locked != o.Amount {
			return fmt.Errorf("%w: ask %d locks %d for %d", ErrSnapshotCorrupted, o.ID, o.Locked, o.Amount)
		}
		if d, err := dustOf(o.Price, o.Amount, engine.pair.PriceDecimals); err != nil || d > 0 {
			return fmt.Errorf("%w: order %d rests %d worth no quote", ErrSnapshotCorrupted, o.ID, o.Amount)
		}
		if i > 0 {
			worse := o.Price < lastPrice
			if side == Sell {
				worse = o.Price > lastPrice
			}
			if !worse && (o.Price != lastPrice || o.Sequence <= lastSeq) {
				return fmt.Errorf("%w: order %d out of priority", ErrSnapshotCorrupted, o.ID)
			}
		}
		lastPrice, lastSeq = o.Price, o.Sequence

		order := o
		if err := engine.book.Insert(&order); err != nil {
			return fmt.Errorf("%w: order %d: %v", ErrSnapshotCorrupted, o.ID, err)
		}
	}
	return nil
}
