package match

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerDeposit(t *testing.T) {
	l := NewLedger()

	require.NoError(t, l.Deposit(alice, usdc, 100))
	require.NoError(t, l.Deposit(alice, usdc, 50))
	assert.Equal(t, uint64(150), l.Balance(alice, usdc))
	assert.Equal(t, uint64(0), l.Balance(alice, eth))
	assert.Equal(t, uint64(0), l.Balance(bob, usdc))

	t.Run("balance does not create entries", func(t *testing.T) {
		assert.Len(t, l.entries(), 1)
	})

	t.Run("overflow", func(t *testing.T) {
		require.NoError(t, l.Deposit(bob, eth, math.MaxUint64))
		err := l.Deposit(bob, eth, 1)
		assert.ErrorIs(t, err, ErrOverflow)
		assert.Equal(t, uint64(math.MaxUint64), l.Balance(bob, eth))
	})

	assert.Equal(t, "150", l.Total(usdc).String())
	assert.Equal(t, "18446744073709551615", l.Total(eth).String())
}

func TestLedgerTx(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Deposit(alice, usdc, 100))

	t.Run("discarded tx leaves ledger untouched", func(t *testing.T) {
		tx := l.begin()
		require.NoError(t, tx.debit(alice, usdc, 40))
		require.NoError(t, tx.credit(bob, usdc, 40))
		assert.Equal(t, uint64(60), tx.balance(alice, usdc))

		assert.Equal(t, uint64(100), l.Balance(alice, usdc))
		assert.Equal(t, uint64(0), l.Balance(bob, usdc))
	})

	t.Run("insufficient balance", func(t *testing.T) {
		tx := l.begin()
		require.NoError(t, tx.debit(alice, usdc, 60))
		err := tx.debit(alice, usdc, 41)
		assert.ErrorIs(t, err, ErrInsufficientBalance)
	})

	t.Run("commit", func(t *testing.T) {
		tx := l.begin()
		require.NoError(t, tx.debit(alice, usdc, 30))
		require.NoError(t, tx.credit(bob, usdc, 30))
		tx.commit()

		assert.Equal(t, uint64(70), l.Balance(alice, usdc))
		assert.Equal(t, uint64(30), l.Balance(bob, usdc))
	})

	t.Run("zero amounts are no-ops", func(t *testing.T) {
		tx := l.begin()
		require.NoError(t, tx.debit(carol, usdc, 0))
		require.NoError(t, tx.credit(carol, usdc, 0))
		tx.commit()
		assert.Len(t, l.entries(), 2)
	})
}

func TestLedgerRestore(t *testing.T) {
	l := NewLedger()
	err := l.restore([]BalanceEntry{
		{Account: alice, Asset: usdc, Available: 1},
		{Account: alice, Asset: usdc, Available: 2},
	})
	assert.ErrorIs(t, err, ErrSnapshotCorrupted)

	err = l.restore([]BalanceEntry{
		{Account: alice, Asset: usdc, Available: 1},
		{Account: bob, Asset: eth, Available: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), l.Balance(bob, eth))
}
