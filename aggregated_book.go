package match

import (
	"fmt"
	"sync"

	"github.com/igrmk/treemap/v2"
)

// AggregatedBook maintains a simplified view of the order book,
// tracking only price levels and their aggregated sizes (depth).
// Downstream services rebuild it from the BookLog stream.
type AggregatedBook struct {
	mu    sync.RWMutex
	seqID uint64 // Last applied SequenceID
	ask   *treemap.TreeMap[uint64, uint64]
	bid   *treemap.TreeMap[uint64, uint64]
}

// NewAggregatedBook creates a new AggregatedBook instance with empty ask and bid sides.
func NewAggregatedBook() *AggregatedBook {
	ab := &AggregatedBook{}
	ab.reset()
	return ab
}

func (ab *AggregatedBook) reset() {
	ab.seqID = 0
	ab.ask = treemap.NewWithKeyCompare[uint64, uint64](func(a, b uint64) bool {
		return a < b
	})
	// bids iterate from the highest price
	ab.bid = treemap.NewWithKeyCompare[uint64, uint64](func(a, b uint64) bool {
		return a > b
	})
}

func (ab *AggregatedBook) tree(side Side) *treemap.TreeMap[uint64, uint64] {
	if side == Buy {
		return ab.bid
	}
	return ab.ask
}

// SequenceID returns the last applied sequence ID.
func (ab *AggregatedBook) SequenceID() uint64 {
	ab.mu.RLock()
	defer ab.mu.RUnlock()
	return ab.seqID
}

// Replay applies a BookLog event. Logs at or below the current sequence are
// ignored; a log that skips a sequence returns ErrSequenceGap and leaves the book unchanged.
func (ab *AggregatedBook) Replay(log *BookLog) error {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	if log.SequenceID <= ab.seqID {
		return nil
	}
	if log.SequenceID != ab.seqID+1 {
		return fmt.Errorf("%w: expected %d, got %d", ErrSequenceGap, ab.seqID+1, log.SequenceID)
	}

	change := CalculateDepthChange(log)
	if change.Amount > 0 {
		if err := ab.apply(change); err != nil {
			return err
		}
	}

	ab.seqID = log.SequenceID
	return nil
}

func (ab *AggregatedBook) apply(change DepthChange) error {
	tree := ab.tree(change.Side)
	current, _ := tree.Get(change.Price)

	if !change.Remove {
		sum := current + change.Amount
		if sum < current {
			return fmt.Errorf("%w: level %d", ErrOverflow, change.Price)
		}
		tree.Set(change.Price, sum)
		return nil
	}

	if change.Amount > current {
		return fmt.Errorf("%w: level %d holds %d, cannot remove %d", ErrInvalidParam, change.Price, current, change.Amount)
	}
	if current == change.Amount {
		tree.Del(change.Price)
		return nil
	}
	tree.Set(change.Price, current-change.Amount)
	return nil
}

// OnRebuild resets the book to the given engine depth and sequence, so that
// replay can continue from a snapshot instead of from the first log.
func (ab *AggregatedBook) OnRebuild(depth *Depth, seqID uint64) {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	ab.reset()
	ab.seqID = seqID
	if depth == nil {
		return
	}
	for _, item := range depth.Bids {
		ab.bid.Set(item.Price, item.Amount)
	}
	for _, item := range depth.Asks {
		ab.ask.Set(item.Price, item.Amount)
	}
}

// Depth returns the aggregated size at a specific price level for the given side.
// Returns zero if the price level does not exist.
func (ab *AggregatedBook) Depth(side Side, price uint64) (uint64, error) {
	if !side.Valid() {
		return 0, ErrInvalidParam
	}
	ab.mu.RLock()
	defer ab.mu.RUnlock()

	amount, _ := ab.tree(side).Get(price)
	return amount, nil
}

// Levels returns the price levels of one side, best price first.
func (ab *AggregatedBook) Levels(side Side) ([]*DepthItem, error) {
	if !side.Valid() {
		return nil, ErrInvalidParam
	}
	ab.mu.RLock()
	defer ab.mu.RUnlock()

	tree := ab.tree(side)
	levels := make([]*DepthItem, 0, tree.Len())
	for it := tree.Iterator(); it.Valid(); it.Next() {
		levels = append(levels, &DepthItem{Price: it.Key(), Amount: it.Value()})
	}
	return levels, nil
}
