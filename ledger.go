package match

import (
	"bytes"
	"fmt"
	"math/bits"
	"slices"

	"github.com/shopspring/decimal"
)

type balanceKey struct {
	account AccountID
	asset   AssetID
}

// BalanceEntry is one (account, asset) balance as captured in snapshots.
type BalanceEntry struct {
	Account   AccountID `json:"account"`
	Asset     AssetID   `json:"asset"`
	Available uint64    `json:"available"`
}

// Ledger keeps the available balance of every (account, asset) pair.
// Funds backing resting orders are not part of it; they travel with the order (Order.Locked).
type Ledger struct {
	balances map[balanceKey]uint64
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[balanceKey]uint64),
	}
}

// Balance returns the available amount, 0 for an unknown entry. It never creates entries.
func (l *Ledger) Balance(account AccountID, asset AssetID) uint64 {
	return l.balances[balanceKey{account: account, asset: asset}]
}

// Deposit increases the available amount. It fails with ErrOverflow instead of wrapping.
func (l *Ledger) Deposit(account AccountID, asset AssetID, amount uint64) error {
	tx := l.begin()
	if err := tx.credit(account, asset, amount); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// Total returns the sum of available balances of an asset across accounts.
// The sum may exceed a uint64, so it is returned as a decimal.
func (l *Ledger) Total(asset AssetID) decimal.Decimal {
	total := decimal.Zero
	for key, amount := range l.balances {
		if key.asset == asset {
			total = total.Add(decimal.NewFromUint64(amount))
		}
	}
	return total
}

// entries returns all balances ordered by account then asset, so snapshots are deterministic.
func (l *Ledger) entries() []BalanceEntry {
	result := make([]BalanceEntry, 0, len(l.balances))
	for key, amount := range l.balances {
		result = append(result, BalanceEntry{Account: key.account, Asset: key.asset, Available: amount})
	}
	slices.SortFunc(result, func(a, b BalanceEntry) int {
		if c := bytes.Compare(a.Account[:], b.Account[:]); c != 0 {
			return c
		}
		return bytes.Compare(a.Asset[:], b.Asset[:])
	})
	return result
}

func (l *Ledger) restore(entries []BalanceEntry) error {
	balances := make(map[balanceKey]uint64, len(entries))
	for _, e := range entries {
		key := balanceKey{account: e.Account, asset: e.Asset}
		if _, dup := balances[key]; dup {
			return fmt.Errorf("%w: duplicate balance for %s/%s", ErrSnapshotCorrupted, e.Account, e.Asset)
		}
		balances[key] = e.Available
	}
	l.balances = balances
	return nil
}

// ledgerTx stages balance changes on top of a ledger. Nothing is visible to the
// ledger until commit; dropping the tx discards every change.
type ledgerTx struct {
	ledger *Ledger
	dirty  map[balanceKey]uint64
}

func (l *Ledger) begin() *ledgerTx {
	return &ledgerTx{
		ledger: l,
		dirty:  make(map[balanceKey]uint64, 4),
	}
}

func (tx *ledgerTx) balance(account AccountID, asset AssetID) uint64 {
	key := balanceKey{account: account, asset: asset}
	if v, ok := tx.dirty[key]; ok {
		return v
	}
	return tx.ledger.balances[key]
}

func (tx *ledgerTx) credit(account AccountID, asset AssetID, amount uint64) error {
	if amount == 0 {
		return nil
	}
	sum, carry := bits.Add64(tx.balance(account, asset), amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: credit %d of %s to %s", ErrOverflow, amount, asset, account)
	}
	tx.dirty[balanceKey{account: account, asset: asset}] = sum
	return nil
}

func (tx *ledgerTx) debit(account AccountID, asset AssetID, amount uint64) error {
	if amount == 0 {
		return nil
	}
	available := tx.balance(account, asset)
	if amount > available {
		return fmt.Errorf("%w: need %d of %s, %s has %d", ErrInsufficientBalance, amount, asset, account, available)
	}
	tx.dirty[balanceKey{account: account, asset: asset}] = available - amount
	return nil
}

func (tx *ledgerTx) commit() {
	for key, amount := range tx.dirty {
		tx.ledger.balances[key] = amount
	}
	tx.dirty = nil
}
