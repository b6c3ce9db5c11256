package match

import "fmt"

// fill is one planned execution against a resting order.
type fill struct {
	maker  *Order
	amount uint64 // base
	quote  uint64 // notional at the maker's price
	locked uint64 // maker escrow left after the fill
	refund uint64 // maker escrow returned because the maker leaves the book
	dust   uint64 // maker remainder cancelled because it rounds to zero quote
}

// placement is the staged outcome of PlaceOrder. Nothing in it touches the
// book or the ledger until apply runs after the ledger tx commits.
type placement struct {
	order     *Order // taker, Amount holds the remainder that rests
	fills     []fill
	trades    []Trade
	cancelled uint64 // taker remainder dropped instead of resting
}

// crosses reports whether a resting price is acceptable for a taker limit.
func crosses(takerSide Side, limit uint64, makerPrice uint64) bool {
	if takerSide == Buy {
		return makerPrice <= limit
	}
	return makerPrice >= limit
}

// plan escrows the taker, walks the opposite side in priority order and settles
// every fill inside tx. On error the caller drops tx and nothing has changed.
func (engine *Engine) plan(tx *ledgerTx, order *Order) (*placement, error) {
	base, quote := engine.pair.BaseAsset, engine.pair.QuoteAsset
	decimals := engine.pair.PriceDecimals

	// escrow
	lock, err := notional(order.Price, order.Amount, decimals)
	if err != nil {
		return nil, err
	}
	if lock == 0 {
		return nil, fmt.Errorf("%w: notional of %d at price %d rounds to zero", ErrInvalidOrder, order.Amount, order.Price)
	}
	if order.Side == Buy {
		if err := tx.debit(order.Owner, quote, lock); err != nil {
			return nil, err
		}
		order.Locked = lock
	} else {
		if err := tx.debit(order.Owner, base, order.Amount); err != nil {
			return nil, err
		}
		order.Locked = order.Amount
	}

	p := &placement{order: order}
	remaining := order.Amount
	stalled := false

	var walkErr error
	engine.book.queue(opposite(order.Side)).walk(func(maker *Order) bool {
		if remaining == 0 || !crosses(order.Side, order.Price, maker.Price) {
			return false
		}

		amount := min(remaining, maker.Amount)
		q, err := notional(maker.Price, amount, decimals)
		if err != nil {
			walkErr = err
			return false
		}
		if q == 0 {
			// base would change hands for nothing
			stalled = true
			return false
		}

		f := fill{maker: maker, amount: amount, quote: q}
		if left := maker.Amount - amount; left > 0 {
			if f.dust, walkErr = dustOf(maker.Price, left, decimals); walkErr != nil {
				return false
			}
		}
		if order.Side == Buy {
			// taker pays quote from its escrow, maker ask releases base
			if q > order.Locked {
				walkErr = fmt.Errorf("%w: taker escrow %d below quote %d", ErrInternal, order.Locked, q)
				return false
			}
			order.Locked -= q
			f.locked = maker.Locked - amount
			if f.dust > 0 {
				f.refund = f.locked
				f.locked = 0
				if walkErr = tx.credit(maker.Owner, base, f.refund); walkErr != nil {
					return false
				}
			}
			walkErr = settle(tx, base, quote, order.Owner, maker.Owner, amount, q)
		} else {
			// taker ask releases base, maker bid pays quote from its escrow
			if q > maker.Locked {
				walkErr = fmt.Errorf("%w: maker %d escrow %d below quote %d", ErrInternal, maker.ID, maker.Locked, q)
				return false
			}
			order.Locked -= amount
			f.locked = maker.Locked - q
			if (amount == maker.Amount || f.dust > 0) && f.locked > 0 {
				f.refund = f.locked
				f.locked = 0
				if walkErr = tx.credit(maker.Owner, quote, f.refund); walkErr != nil {
					return false
				}
			}
			walkErr = settle(tx, base, quote, maker.Owner, order.Owner, amount, q)
		}
		if walkErr != nil {
			return false
		}

		p.fills = append(p.fills, f)
		remaining -= amount
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}

	// a remainder that cannot trade for a non-zero quote does not rest
	if remaining > 0 && !stalled {
		d, err := dustOf(order.Price, remaining, decimals)
		if err != nil {
			return nil, err
		}
		stalled = d > 0
	}
	if stalled {
		p.cancelled = remaining
		remaining = 0
		if order.Side == Sell {
			if err := tx.credit(order.Owner, base, order.Locked); err != nil {
				return nil, err
			}
			order.Locked = 0
		}
	}

	order.Amount = remaining

	// a buy keeps only what its remainder needs at its own limit
	if order.Side == Buy {
		keep := uint64(0)
		if remaining > 0 {
			var err error
			keep, err = notional(order.Price, remaining, decimals)
			if err != nil {
				return nil, err
			}
		}
		if keep > order.Locked {
			return nil, fmt.Errorf("%w: escrow %d below remainder lock %d", ErrInternal, order.Locked, keep)
		}
		if err := tx.credit(order.Owner, quote, order.Locked-keep); err != nil {
			return nil, err
		}
		order.Locked = keep
	}

	return p, nil
}

// dustOf returns amount when it is worth zero quote at price, and 0 otherwise.
func dustOf(price, amount uint64, decimals uint8) (uint64, error) {
	q, err := notional(price, amount, decimals)
	if err != nil || q > 0 {
		return 0, err
	}
	return amount, nil
}

// settle moves base to the buyer and quote to the seller. Both legs were
// already taken out of escrow.
func settle(tx *ledgerTx, base, quote AssetID, buyer, seller AccountID, amount, quoteAmount uint64) error {
	if err := tx.credit(buyer, base, amount); err != nil {
		return err
	}
	return tx.credit(seller, quote, quoteAmount)
}

// apply mutates the book and the counters for a committed placement and builds
// the logs describing it. It cannot fail.
func (engine *Engine) apply(p *placement) []*BookLog {
	order := p.order
	logs := make([]*BookLog, 0, len(p.fills)+1)
	p.trades = make([]Trade, 0, len(p.fills))

	for _, f := range p.fills {
		maker := f.maker
		engine.tradeID++
		trade := Trade{
			TradeID:      engine.tradeID,
			MakerOrderID: maker.ID,
			TakerOrderID: order.ID,
			TakerOwner:   order.Owner,
			MakerOwner:   maker.Owner,
			TakerSide:    order.Side,
			Price:        maker.Price,
			Amount:       f.amount,
			QuoteAmount:  f.quote,
		}
		p.trades = append(p.trades, trade)

		maker.Locked = f.locked
		if _, err := engine.book.ReduceOrRemove(maker.ID, f.amount); err != nil {
			// plan only fills orders it found in the book with at most their amount
			panic(fmt.Sprintf("match: reduce planned maker %d: %v", maker.ID, err))
		}

		engine.logSeqID++
		logs = append(logs, NewMatchLog(engine.logSeqID, &trade))

		if f.dust > 0 {
			if _, err := engine.book.ReduceOrRemove(maker.ID, f.dust); err != nil {
				panic(fmt.Sprintf("match: cancel dust of maker %d: %v", maker.ID, err))
			}
			engine.logSeqID++
			logs = append(logs, NewCancelLog(engine.logSeqID, maker, f.dust))
		}
	}

	if order.Amount > 0 {
		engine.sequence++
		order.Sequence = engine.sequence
		if err := engine.book.Insert(order); err != nil {
			panic(fmt.Sprintf("match: rest order %d: %v", order.ID, err))
		}
		engine.logSeqID++
		logs = append(logs, NewOpenLog(engine.logSeqID, order))
	}

	return logs
}
