package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	eth   = mustAsset("0xe7")
	usdc  = mustAsset("0xc5")
	dai   = mustAsset("0xda")
	alice = mustAccount("0xa1")
	bob   = mustAccount("0xb0")
	carol = mustAccount("0xca")
)

const (
	unit = 1_000_000_000 // 10^DefaultPriceDecimals
)

func mustAsset(s string) AssetID {
	id, err := HexToAssetID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func mustAccount(s string) AccountID {
	id, err := HexToAccountID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func newTestEngine(t *testing.T) (*Engine, *MemoryPublishLog) {
	t.Helper()
	publishLog := NewMemoryPublishLog()
	engine := NewEngine(publishLog)
	require.NoError(t, engine.Init(eth, usdc))
	return engine, publishLog
}

func requireConserved(t *testing.T, engine *Engine) {
	t.Helper()
	require.NoError(t, engine.Audit())
}

func TestEngineInit(t *testing.T) {
	t.Run("operations before init", func(t *testing.T) {
		engine := NewEngine(nil)

		assert.ErrorIs(t, engine.Deposit(alice, eth, 1), ErrNotInitialized)

		_, err := engine.PlaceOrder(alice, Buy, 1, 1)
		assert.ErrorIs(t, err, ErrNotInitialized)

		_, err = engine.Balance(alice, eth)
		assert.ErrorIs(t, err, ErrNotInitialized)

		_, err = engine.Orderbook(0)
		assert.ErrorIs(t, err, ErrNotInitialized)

		_, err = engine.Depth(10)
		assert.ErrorIs(t, err, ErrNotInitialized)

		assert.False(t, engine.Pair().Initialized)
	})

	t.Run("init once", func(t *testing.T) {
		engine := NewEngine(nil)
		require.NoError(t, engine.Init(eth, usdc))

		pair := engine.Pair()
		assert.True(t, pair.Initialized)
		assert.Equal(t, eth, pair.BaseAsset)
		assert.Equal(t, usdc, pair.QuoteAsset)
		assert.Equal(t, DefaultPriceDecimals, pair.PriceDecimals)

		assert.ErrorIs(t, engine.Init(eth, dai), ErrAlreadyInitialized)
		assert.Equal(t, usdc, engine.Pair().QuoteAsset)
	})

	t.Run("same asset", func(t *testing.T) {
		engine := NewEngine(nil)
		assert.ErrorIs(t, engine.Init(eth, eth), ErrInvalidParam)
		assert.False(t, engine.Pair().Initialized)
	})

	t.Run("price decimals", func(t *testing.T) {
		engine := NewEngine(nil)
		assert.ErrorIs(t, engine.Init(eth, usdc, WithPriceDecimals(19)), ErrInvalidParam)
		require.NoError(t, engine.Init(eth, usdc, WithPriceDecimals(2)))
		assert.Equal(t, uint8(2), engine.Pair().PriceDecimals)
	})
}

func TestEngineDeposit(t *testing.T) {
	engine, _ := newTestEngine(t)

	require.NoError(t, engine.Deposit(alice, usdc, 1000))
	require.NoError(t, engine.Deposit(alice, usdc, 0))

	balance, err := engine.Balance(alice, usdc)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), balance)

	assert.ErrorIs(t, engine.Deposit(alice, dai, 1), ErrUnknownAsset)

	require.NoError(t, engine.Deposit(bob, eth, ^uint64(0)))
	assert.ErrorIs(t, engine.Deposit(bob, eth, 1), ErrOverflow)

	balance, err = engine.Balance(carol, eth)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), balance)

	requireConserved(t, engine)
}

func TestMakerBidTakerSell(t *testing.T) {
	engine, publishLog := newTestEngine(t)

	require.NoError(t, engine.Deposit(alice, usdc, 1000*unit))
	require.NoError(t, engine.Deposit(bob, eth, 1*unit))

	trades, err := engine.PlaceOrder(alice, Buy, 10_000_000, 100_000_000)
	require.NoError(t, err)
	assert.Empty(t, trades)

	bids, err := engine.Orderbook(0)
	require.NoError(t, err)
	require.Len(t, bids, 1)
	assert.Equal(t, alice, bids[0].Owner)
	assert.Equal(t, uint64(100_000_000), bids[0].Amount)

	// escrowed at placement: 0.1 ETH at 0.01 USDC
	balance, _ := engine.Balance(alice, usdc)
	assert.Equal(t, uint64(1000*unit-1_000_000), balance)

	trades, err = engine.PlaceOrder(bob, Sell, 10_000_000, 100_000_000)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	trade := trades[0]
	assert.Equal(t, uint64(100_000_000), trade.Amount)
	assert.Equal(t, uint64(10_000_000), trade.Price)
	assert.Equal(t, uint64(1_000_000), trade.QuoteAmount)
	assert.Equal(t, alice, trade.MakerOwner)
	assert.Equal(t, bob, trade.TakerOwner)
	assert.Equal(t, Sell, trade.TakerSide)

	bids, _ = engine.Orderbook(0)
	assert.Empty(t, bids)
	asks, _ := engine.Orderbook(1)
	assert.Empty(t, asks)

	balance, _ = engine.Balance(bob, eth)
	assert.Equal(t, uint64(900_000_000), balance)
	balance, _ = engine.Balance(bob, usdc)
	assert.Equal(t, uint64(1_000_000), balance)
	balance, _ = engine.Balance(alice, eth)
	assert.Equal(t, uint64(100_000_000), balance)
	balance, _ = engine.Balance(alice, usdc)
	assert.Equal(t, uint64(1000*unit-1_000_000), balance)

	require.Equal(t, 2, publishLog.Count())
	assert.Equal(t, LogTypeOpen, publishLog.Get(0).Type)
	assert.Equal(t, LogTypeMatch, publishLog.Get(1).Type)
	assert.Equal(t, uint64(2), publishLog.Get(1).SequenceID)

	requireConserved(t, engine)
}

func TestTimePriorityWithinLevel(t *testing.T) {
	engine, _ := newTestEngine(t)

	require.NoError(t, engine.Deposit(alice, eth, 200))
	require.NoError(t, engine.Deposit(bob, usdc, 1000))

	_, err := engine.PlaceOrder(alice, Sell, unit, 80)
	require.NoError(t, err)
	_, err = engine.PlaceOrder(alice, Sell, unit, 80)
	require.NoError(t, err)

	trades, err := engine.PlaceOrder(bob, Buy, unit, 30)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, uint64(1), trades[0].MakerOrderID)
	assert.Equal(t, uint64(30), trades[0].Amount)

	asks, err := engine.Orderbook(1)
	require.NoError(t, err)
	require.Len(t, asks, 2)
	assert.Equal(t, uint64(1), asks[0].OrderID)
	assert.Equal(t, uint64(50), asks[0].Amount)
	assert.Equal(t, uint64(2), asks[1].OrderID)
	assert.Equal(t, uint64(80), asks[1].Amount)
	assert.Less(t, asks[0].Sequence, asks[1].Sequence)

	balance, _ := engine.Balance(bob, eth)
	assert.Equal(t, uint64(30), balance)
	balance, _ = engine.Balance(bob, usdc)
	assert.Equal(t, uint64(970), balance)
	balance, _ = engine.Balance(alice, usdc)
	assert.Equal(t, uint64(30), balance)

	requireConserved(t, engine)
}

func TestPricePriority(t *testing.T) {
	engine, _ := newTestEngine(t)

	require.NoError(t, engine.Deposit(alice, eth, 30))
	require.NoError(t, engine.Deposit(bob, usdc, 10_000))

	_, err := engine.PlaceOrder(alice, Sell, 12*unit, 10)
	require.NoError(t, err)
	_, err = engine.PlaceOrder(alice, Sell, 10*unit, 10)
	require.NoError(t, err)
	_, err = engine.PlaceOrder(alice, Sell, 11*unit, 10)
	require.NoError(t, err)

	asks, _ := engine.Orderbook(1)
	require.Len(t, asks, 3)
	assert.Equal(t, []uint64{10 * unit, 11 * unit, 12 * unit}, []uint64{asks[0].Price, asks[1].Price, asks[2].Price})

	trades, err := engine.PlaceOrder(bob, Buy, 11*unit, 25)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, uint64(10*unit), trades[0].Price)
	assert.Equal(t, uint64(11*unit), trades[1].Price)
	assert.Equal(t, uint64(100), trades[0].QuoteAmount)
	assert.Equal(t, uint64(110), trades[1].QuoteAmount)
	assert.Less(t, trades[0].TradeID, trades[1].TradeID)

	// the remainder of 5 rests at 11
	bids, _ := engine.Orderbook(0)
	require.Len(t, bids, 1)
	assert.Equal(t, uint64(5), bids[0].Amount)
	assert.Equal(t, uint64(11*unit), bids[0].Price)

	balance, _ := engine.Balance(bob, usdc)
	assert.Equal(t, uint64(10_000-100-110-55), balance)

	requireConserved(t, engine)
}

func TestPriceImprovementRefund(t *testing.T) {
	engine, _ := newTestEngine(t)

	require.NoError(t, engine.Deposit(alice, eth, 10))
	require.NoError(t, engine.Deposit(bob, usdc, 1000))

	_, err := engine.PlaceOrder(alice, Sell, 5*unit, 10)
	require.NoError(t, err)

	t.Run("fully filled buy refunds the difference", func(t *testing.T) {
		trades, err := engine.PlaceOrder(bob, Buy, 8*unit, 4)
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, uint64(20), trades[0].QuoteAmount)

		balance, _ := engine.Balance(bob, usdc)
		assert.Equal(t, uint64(980), balance)
	})

	t.Run("partial fill keeps only the remainder lock", func(t *testing.T) {
		trades, err := engine.PlaceOrder(bob, Buy, 8*unit, 10)
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, uint64(6), trades[0].Amount)

		// paid 30 for 6, 4 remain locked at 8
		balance, _ := engine.Balance(bob, usdc)
		assert.Equal(t, uint64(980-30-32), balance)
	})

	requireConserved(t, engine)
}

func TestMakerBidDustRefund(t *testing.T) {
	engine := NewEngine(nil)
	require.NoError(t, engine.Init(eth, usdc, WithPriceDecimals(1)))

	require.NoError(t, engine.Deposit(alice, usdc, 100))
	require.NoError(t, engine.Deposit(bob, eth, 100))

	// bid 3 at 1.5 locks floor(4.5) = 4
	_, err := engine.PlaceOrder(alice, Buy, 15, 3)
	require.NoError(t, err)
	balance, _ := engine.Balance(alice, usdc)
	assert.Equal(t, uint64(96), balance)

	trades, err := engine.PlaceOrder(bob, Sell, 15, 1)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, uint64(1), trades[0].QuoteAmount)

	trades, err = engine.PlaceOrder(bob, Sell, 15, 2)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, uint64(3), trades[0].QuoteAmount)

	bids, _ := engine.Orderbook(0)
	assert.Empty(t, bids)

	// 4 locked, 1 + 3 paid, nothing left to refund
	balance, _ = engine.Balance(alice, usdc)
	assert.Equal(t, uint64(96), balance)
	balance, _ = engine.Balance(bob, usdc)
	assert.Equal(t, uint64(4), balance)

	requireConserved(t, engine)

	// each single-unit fill at 1.5 pays 1
	require.NoError(t, engine.Deposit(carol, usdc, 10))
	_, err = engine.PlaceOrder(carol, Buy, 15, 2)
	require.NoError(t, err)
	_, err = engine.PlaceOrder(bob, Sell, 15, 1)
	require.NoError(t, err)
	_, err = engine.PlaceOrder(bob, Sell, 15, 1)
	require.NoError(t, err)

	// locked 3, paid 1 + 1, dust 1 refunded
	balance, _ = engine.Balance(carol, usdc)
	assert.Equal(t, uint64(8), balance)
	balance, _ = engine.Balance(carol, eth)
	assert.Equal(t, uint64(2), balance)

	requireConserved(t, engine)
}

func TestZeroQuoteFills(t *testing.T) {
	newDecimalEngine := func(t *testing.T) (*Engine, *MemoryPublishLog) {
		t.Helper()
		publishLog := NewMemoryPublishLog()
		engine := NewEngine(publishLog)
		require.NoError(t, engine.Init(eth, usdc, WithPriceDecimals(1)))
		return engine, publishLog
	}

	t.Run("sell worth no quote is rejected", func(t *testing.T) {
		engine, _ := newTestEngine(t)
		require.NoError(t, engine.Deposit(alice, eth, 5))
		require.NoError(t, engine.Deposit(bob, usdc, unit))

		_, err := engine.PlaceOrder(alice, Sell, 1, 5)
		require.ErrorIs(t, err, ErrInvalidOrder)

		trades, err := engine.PlaceOrder(bob, Buy, unit, 5)
		require.NoError(t, err)
		assert.Empty(t, trades)

		balance, _ := engine.Balance(alice, eth)
		assert.Equal(t, uint64(5), balance)
		balance, _ = engine.Balance(bob, eth)
		assert.Equal(t, uint64(0), balance)
		requireConserved(t, engine)
	})

	t.Run("taker sell remainder worth no quote is returned", func(t *testing.T) {
		engine, _ := newDecimalEngine(t)
		require.NoError(t, engine.Deposit(alice, eth, 2))
		require.NoError(t, engine.Deposit(bob, usdc, 10))

		// bid 1 at 1.5, then sell 2 at 0.5
		_, err := engine.PlaceOrder(bob, Buy, 15, 1)
		require.NoError(t, err)
		res, err := engine.PlaceOrderResult(alice, Sell, 5, 2)
		require.NoError(t, err)

		require.Len(t, res.Trades, 1)
		assert.Equal(t, uint64(1), res.Trades[0].QuoteAmount)
		assert.False(t, res.Rested)
		assert.Equal(t, uint64(1), res.Cancelled)

		asks, _ := engine.Orderbook(1)
		assert.Empty(t, asks)
		balance, _ := engine.Balance(alice, eth)
		assert.Equal(t, uint64(1), balance)
		balance, _ = engine.Balance(alice, usdc)
		assert.Equal(t, uint64(1), balance)
		requireConserved(t, engine)
	})

	t.Run("taker buy stops at a fill worth no quote", func(t *testing.T) {
		engine, _ := newDecimalEngine(t)
		require.NoError(t, engine.Deposit(alice, eth, 4))
		require.NoError(t, engine.Deposit(bob, usdc, 10))

		// ask 4 at 0.3 is worth 1, a single unit of it is worth 0
		_, err := engine.PlaceOrder(alice, Sell, 3, 4)
		require.NoError(t, err)
		res, err := engine.PlaceOrderResult(bob, Buy, 20, 1)
		require.NoError(t, err)

		assert.Empty(t, res.Trades)
		assert.False(t, res.Rested)
		assert.Equal(t, uint64(1), res.Cancelled)

		bids, _ := engine.Orderbook(0)
		assert.Empty(t, bids)
		asks, _ := engine.Orderbook(1)
		require.Len(t, asks, 1)
		assert.Equal(t, uint64(4), asks[0].Amount)

		balance, _ := engine.Balance(bob, usdc)
		assert.Equal(t, uint64(10), balance)
		balance, _ = engine.Balance(bob, eth)
		assert.Equal(t, uint64(0), balance)
		requireConserved(t, engine)
	})

	t.Run("maker ask remainder worth no quote is cancelled", func(t *testing.T) {
		engine, publishLog := newDecimalEngine(t)
		require.NoError(t, engine.Deposit(alice, eth, 5))
		require.NoError(t, engine.Deposit(bob, usdc, 10))

		_, err := engine.PlaceOrder(alice, Sell, 3, 5)
		require.NoError(t, err)
		trades, err := engine.PlaceOrder(bob, Buy, 3, 4)
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, uint64(4), trades[0].Amount)
		assert.Equal(t, uint64(1), trades[0].QuoteAmount)

		asks, _ := engine.Orderbook(1)
		assert.Empty(t, asks)
		balance, _ := engine.Balance(alice, eth)
		assert.Equal(t, uint64(1), balance)
		balance, _ = engine.Balance(alice, usdc)
		assert.Equal(t, uint64(1), balance)

		last := publishLog.Get(publishLog.Count() - 1)
		assert.Equal(t, LogTypeCancel, last.Type)
		assert.Equal(t, Sell, last.Side)
		assert.Equal(t, uint64(1), last.Amount)
		assert.Equal(t, uint64(1), last.OrderID)

		ab := NewAggregatedBook()
		for _, log := range publishLog.Logs() {
			require.NoError(t, ab.Replay(log))
		}
		levels, err := ab.Levels(Sell)
		require.NoError(t, err)
		assert.Empty(t, levels)
		requireConserved(t, engine)
	})

	t.Run("maker bid remainder worth no quote is cancelled", func(t *testing.T) {
		engine, _ := newDecimalEngine(t)
		require.NoError(t, engine.Deposit(carol, usdc, 10))
		require.NoError(t, engine.Deposit(bob, eth, 10))

		// bid 7 at 0.3 locks floor(2.1) = 2
		_, err := engine.PlaceOrder(carol, Buy, 3, 7)
		require.NoError(t, err)
		trades, err := engine.PlaceOrder(bob, Sell, 3, 6)
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, uint64(1), trades[0].QuoteAmount)

		bids, _ := engine.Orderbook(0)
		assert.Empty(t, bids)
		balance, _ := engine.Balance(carol, usdc)
		assert.Equal(t, uint64(9), balance)
		balance, _ = engine.Balance(carol, eth)
		assert.Equal(t, uint64(6), balance)
		balance, _ = engine.Balance(bob, usdc)
		assert.Equal(t, uint64(1), balance)
		requireConserved(t, engine)
	})
}

func TestAtomicFailures(t *testing.T) {
	engine, publishLog := newTestEngine(t)

	require.NoError(t, engine.Deposit(alice, eth, 10))
	require.NoError(t, engine.Deposit(bob, usdc, 100))
	_, err := engine.PlaceOrder(alice, Sell, unit, 5)
	require.NoError(t, err)

	before := engine.Snapshot()
	logs := publishLog.Count()

	tests := []struct {
		name   string
		owner  AccountID
		side   Side
		price  uint64
		amount uint64
		err    error
	}{
		{name: "zero amount", owner: bob, side: Buy, price: unit, amount: 0, err: ErrInvalidOrder},
		{name: "zero price", owner: bob, side: Buy, price: 0, amount: 1, err: ErrInvalidOrder},
		{name: "unknown side", owner: bob, side: 7, price: unit, amount: 1, err: ErrInvalidParam},
		{name: "buy without quote", owner: carol, side: Buy, price: unit, amount: 1, err: ErrInsufficientBalance},
		{name: "buy above balance", owner: bob, side: Buy, price: unit, amount: 101, err: ErrInsufficientBalance},
		{name: "sell above balance", owner: alice, side: Sell, price: unit, amount: 6, err: ErrInsufficientBalance},
		{name: "buy notional rounds to zero", owner: bob, side: Buy, price: 1, amount: 1, err: ErrInvalidOrder},
		{name: "sell notional rounds to zero", owner: alice, side: Sell, price: 1, amount: 5, err: ErrInvalidOrder},
		{name: "notional overflow", owner: bob, side: Buy, price: ^uint64(0), amount: ^uint64(0), err: ErrOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trades, err := engine.PlaceOrder(tt.owner, tt.side, tt.price, tt.amount)
			assert.ErrorIs(t, err, tt.err)
			assert.Nil(t, trades)

			assert.Equal(t, before, engine.Snapshot())
			assert.Equal(t, logs, publishLog.Count())
		})
	}

	requireConserved(t, engine)
}

func TestSettlementOverflowRollsBack(t *testing.T) {
	engine, _ := newTestEngine(t)

	require.NoError(t, engine.Deposit(alice, eth, 10))
	require.NoError(t, engine.Deposit(bob, usdc, 100))
	require.NoError(t, engine.Deposit(bob, eth, ^uint64(0)-5))

	_, err := engine.PlaceOrder(alice, Sell, unit, 10)
	require.NoError(t, err)

	before := engine.Snapshot()

	// bob would receive 10 ETH on top of an almost full balance
	_, err = engine.PlaceOrder(bob, Buy, unit, 10)
	assert.ErrorIs(t, err, ErrOverflow)
	assert.Equal(t, before, engine.Snapshot())
}

func TestSelfTrade(t *testing.T) {
	engine, _ := newTestEngine(t)

	require.NoError(t, engine.Deposit(alice, eth, 10))
	require.NoError(t, engine.Deposit(alice, usdc, 100))

	_, err := engine.PlaceOrder(alice, Sell, 2*unit, 10)
	require.NoError(t, err)
	trades, err := engine.PlaceOrder(alice, Buy, 2*unit, 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	balance, _ := engine.Balance(alice, eth)
	assert.Equal(t, uint64(10), balance)
	balance, _ = engine.Balance(alice, usdc)
	assert.Equal(t, uint64(100), balance)

	requireConserved(t, engine)
}

func TestOrderbookSideIndex(t *testing.T) {
	engine, _ := newTestEngine(t)

	require.NoError(t, engine.Deposit(alice, eth, 10))
	require.NoError(t, engine.Deposit(bob, usdc, 100))
	_, err := engine.PlaceOrder(alice, Sell, 3*unit, 1)
	require.NoError(t, err)
	_, err = engine.PlaceOrder(bob, Buy, 2*unit, 1)
	require.NoError(t, err)

	bids, err := engine.Orderbook(0)
	require.NoError(t, err)
	require.Len(t, bids, 1)
	assert.Equal(t, bob, bids[0].Owner)

	asks, err := engine.Orderbook(1)
	require.NoError(t, err)
	require.Len(t, asks, 1)
	assert.Equal(t, alice, asks[0].Owner)

	for _, idx := range []int{-1, 2, 100} {
		_, err := engine.Orderbook(idx)
		assert.ErrorIs(t, err, ErrInvalidParam)
	}

	t.Run("views are idempotent", func(t *testing.T) {
		first, _ := engine.Orderbook(0)
		second, _ := engine.Orderbook(0)
		assert.Equal(t, first, second)

		b1, _ := engine.Balance(bob, usdc)
		b2, _ := engine.Balance(bob, usdc)
		assert.Equal(t, b1, b2)
	})
}

func TestEngineDepth(t *testing.T) {
	engine, publishLog := newTestEngine(t)

	require.NoError(t, engine.Deposit(alice, eth, 10))
	_, err := engine.PlaceOrder(alice, Sell, 3*unit, 2)
	require.NoError(t, err)
	_, err = engine.PlaceOrder(alice, Sell, 3*unit, 3)
	require.NoError(t, err)
	_, err = engine.PlaceOrder(alice, Sell, 4*unit, 1)
	require.NoError(t, err)

	depth, err := engine.Depth(10)
	require.NoError(t, err)
	assert.Equal(t, uint64(publishLog.Count()), depth.UpdateID)
	require.Len(t, depth.Asks, 2)
	assert.Equal(t, uint64(5), depth.Asks[0].Amount)
	assert.Equal(t, int64(2), depth.Asks[0].Count)
	assert.Empty(t, depth.Bids)

	stats := engine.Stats()
	assert.Equal(t, int64(3), stats.AskOrderCount)
	assert.Equal(t, int64(2), stats.AskDepthCount)
}

func TestPlaceOrderResult(t *testing.T) {
	engine, _ := newTestEngine(t)

	require.NoError(t, engine.Deposit(alice, eth, 10))
	require.NoError(t, engine.Deposit(bob, usdc, 100))

	res, err := engine.PlaceOrderResult(alice, Sell, unit, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.OrderID)
	assert.True(t, res.Rested)

	res, err = engine.PlaceOrderResult(bob, Buy, unit, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.OrderID)
	assert.False(t, res.Rested)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, uint64(2), res.Trades[0].TakerOrderID)

	// a rejected order does not consume an id
	_, err = engine.PlaceOrderResult(carol, Buy, unit, 4)
	require.ErrorIs(t, err, ErrInsufficientBalance)
	res, err = engine.PlaceOrderResult(alice, Sell, unit, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), res.OrderID)
}
