package match

import (
	"fmt"
	"sync"

	"github.com/oxygenfuel/contract/protocol"
	"github.com/shopspring/decimal"
)

// Engine is a single-pair limit order book with integrated custody.
// Every public method runs under one mutex and either fully applies or leaves
// the state untouched.
type Engine struct {
	mu         sync.Mutex
	pair       PairState
	ledger     *Ledger
	book       *OrderBook
	publishLog PublishLog
	serializer protocol.Serializer

	// deposited totals, the right-hand side of the conservation check
	baseDeposited  decimal.Decimal
	quoteDeposited decimal.Decimal

	nextOrderID  uint64
	sequence     uint64
	tradeID      uint64
	logSeqID     uint64
	lastCmdSeqID uint64
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithSerializer replaces the JSON serializer used by Execute.
func WithSerializer(s protocol.Serializer) EngineOption {
	return func(engine *Engine) {
		if s != nil {
			engine.serializer = s
		}
	}
}

// NewEngine creates an uninitialized engine. A nil publishLog discards book logs.
func NewEngine(publishLog PublishLog, opts ...EngineOption) *Engine {
	if publishLog == nil {
		publishLog = NewDiscardPublishLog()
	}
	engine := &Engine{
		ledger:         NewLedger(),
		book:           NewOrderBook(),
		publishLog:     publishLog,
		serializer:     &protocol.DefaultJSONSerializer{},
		baseDeposited:  decimal.Zero,
		quoteDeposited: decimal.Zero,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

type initConfig struct {
	priceDecimals uint8
}

// InitOption configures the pair at Init.
type InitOption func(*initConfig)

// WithPriceDecimals sets the fixed-point scale of prices. Prices are quote units
// per whole base unit multiplied by 10^decimals.
func WithPriceDecimals(decimals uint8) InitOption {
	return func(c *initConfig) {
		c.priceDecimals = decimals
	}
}

// Init fixes the traded pair. It succeeds exactly once.
func (engine *Engine) Init(base, quote AssetID, opts ...InitOption) error {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	err := engine.init(base, quote, opts...)
	if err != nil {
		logRejected("init", err, "base", base.Hex(), "quote", quote.Hex())
	}
	return err
}

func (engine *Engine) init(base, quote AssetID, opts ...InitOption) error {
	if engine.pair.Initialized {
		return ErrAlreadyInitialized
	}
	if base == quote {
		return fmt.Errorf("%w: base and quote are the same asset", ErrInvalidParam)
	}

	cfg := initConfig{priceDecimals: DefaultPriceDecimals}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.priceDecimals > MaxPriceDecimals {
		return fmt.Errorf("%w: price decimals %d above %d", ErrInvalidParam, cfg.priceDecimals, MaxPriceDecimals)
	}

	engine.pair = PairState{
		BaseAsset:     base,
		QuoteAsset:    quote,
		PriceDecimals: cfg.priceDecimals,
		Initialized:   true,
	}
	logger.Info("pair initialized", "base", base.Hex(), "quote", quote.Hex(), "price_decimals", cfg.priceDecimals)
	return nil
}

// Deposit credits amount of asset to account. A zero amount is a successful no-op.
func (engine *Engine) Deposit(account AccountID, asset AssetID, amount uint64) error {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	err := engine.deposit(account, asset, amount)
	if err != nil {
		logRejected("deposit", err, "account", account.Hex(), "asset", asset.Hex(), "amount", amount)
	}
	return err
}

func (engine *Engine) deposit(account AccountID, asset AssetID, amount uint64) error {
	if !engine.pair.Initialized {
		return ErrNotInitialized
	}
	if asset != engine.pair.BaseAsset && asset != engine.pair.QuoteAsset {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
	}
	if amount == 0 {
		return nil
	}

	if err := engine.ledger.Deposit(account, asset, amount); err != nil {
		return err
	}

	if asset == engine.pair.BaseAsset {
		engine.baseDeposited = engine.baseDeposited.Add(decimal.NewFromUint64(amount))
	} else {
		engine.quoteDeposited = engine.quoteDeposited.Add(decimal.NewFromUint64(amount))
	}
	return nil
}

// OrderResult is the outcome of a placement.
type OrderResult struct {
	OrderID   uint64
	Rested    bool
	Trades    []Trade
	// Cancelled is the unfilled base amount returned to the owner because it
	// could not trade for a non-zero quote.
	Cancelled uint64
}

// PlaceOrder submits a limit order. The order matches against the opposite side
// at the makers' prices, and any remainder rests in the book.
func (engine *Engine) PlaceOrder(owner AccountID, side Side, price uint64, amount uint64) ([]Trade, error) {
	result, err := engine.PlaceOrderResult(owner, side, price, amount)
	if err != nil {
		return nil, err
	}
	return result.Trades, nil
}

// PlaceOrderResult is PlaceOrder that also reports the assigned order id and whether a remainder rested.
func (engine *Engine) PlaceOrderResult(owner AccountID, side Side, price uint64, amount uint64) (*OrderResult, error) {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	result, err := engine.placeOrder(owner, side, price, amount)
	if err != nil {
		logRejected("place_order", err, "owner", owner.Hex(), "side", side.String(), "price", price, "amount", amount)
	}
	return result, err
}

func (engine *Engine) placeOrder(owner AccountID, side Side, price uint64, amount uint64) (*OrderResult, error) {
	if !engine.pair.Initialized {
		return nil, ErrNotInitialized
	}
	if !side.Valid() {
		return nil, fmt.Errorf("%w: side %d", ErrInvalidParam, side)
	}
	if amount == 0 || price == 0 {
		return nil, ErrInvalidOrder
	}

	order := &Order{
		ID:     engine.nextOrderID + 1,
		Owner:  owner,
		Side:   side,
		Price:  price,
		Amount: amount,
	}

	tx := engine.ledger.begin()
	p, err := engine.plan(tx, order)
	if err != nil {
		return nil, err
	}
	tx.commit()

	engine.nextOrderID = order.ID
	logs := engine.apply(p)
	engine.publish(logs)

	return &OrderResult{
		OrderID: order.ID,
		Rested:    order.Amount > 0,
		Trades:    p.trades,
		Cancelled: p.cancelled,
	}, nil
}

func (engine *Engine) publish(logs []*BookLog) {
	if len(logs) == 0 {
		return
	}
	engine.publishLog.Publish(logs...)
	for _, log := range logs {
		releaseBookLog(log)
	}
}

// Balance returns the available amount of asset held by account.
// Funds locked in resting orders are not included.
func (engine *Engine) Balance(account AccountID, asset AssetID) (uint64, error) {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	if !engine.pair.Initialized {
		return 0, ErrNotInitialized
	}
	return engine.ledger.Balance(account, asset), nil
}

// Orderbook returns the resting orders of one side in priority order.
// Index 0 is the bid side and 1 the ask side, matching the wire side numbering.
func (engine *Engine) Orderbook(sideIndex int) ([]BookEntry, error) {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	if !engine.pair.Initialized {
		return nil, ErrNotInitialized
	}
	switch sideIndex {
	case int(Buy):
		return engine.book.Snapshot(Buy), nil
	case int(Sell):
		return engine.book.Snapshot(Sell), nil
	default:
		return nil, fmt.Errorf("%w: side index %d", ErrInvalidParam, sideIndex)
	}
}

// Depth returns up to limit aggregated price levels per side.
// UpdateID is the sequence of the last book log, so it lines up with AggregatedBook.
func (engine *Engine) Depth(limit uint32) (*Depth, error) {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	if !engine.pair.Initialized {
		return nil, ErrNotInitialized
	}
	depth, err := engine.book.Depth(limit)
	if err != nil {
		return nil, err
	}
	depth.UpdateID = engine.logSeqID
	return depth, nil
}

// Pair returns the pair configuration. Before Init, Initialized is false.
func (engine *Engine) Pair() PairState {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.pair
}

// Stats returns order and price-level counts of the book.
func (engine *Engine) Stats() *BookStats {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.book.Stats()
}

// LastCmdSeqID returns the sequence of the last command handled by Execute.
func (engine *Engine) LastCmdSeqID() uint64 {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.lastCmdSeqID
}

// Audit verifies that every deposited unit is either available in the ledger
// or locked in a resting order, per asset.
func (engine *Engine) Audit() error {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.audit()
}

func (engine *Engine) audit() error {
	if !engine.pair.Initialized {
		return nil
	}
	base := engine.ledger.Total(engine.pair.BaseAsset).Add(engine.book.lockedTotal(Sell))
	if !base.Equal(engine.baseDeposited) {
		return fmt.Errorf("%w: base held %s, deposited %s", ErrInternal, base, engine.baseDeposited)
	}
	quote := engine.ledger.Total(engine.pair.QuoteAsset).Add(engine.book.lockedTotal(Buy))
	if !quote.Equal(engine.quoteDeposited) {
		return fmt.Errorf("%w: quote held %s, deposited %s", ErrInternal, quote, engine.quoteDeposited)
	}
	return nil
}
