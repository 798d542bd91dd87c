package ledger

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceCache_DebitCredit(t *testing.T) {
	c := make(balanceCache)
	c.set(1, "pc", 100)

	newBal, err := c.debit(1, "pc", 30)
	require.NoError(t, err)
	assert.Equal(t, int64(70), newBal)

	newBal, err = c.credit(1, "pc", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(75), newBal)

	bal, ok := c.get(1, "pc")
	require.True(t, ok)
	assert.Equal(t, int64(75), bal)
}

func TestBalanceCache_NotEnough(t *testing.T) {
	c := make(balanceCache)
	c.set(1, "pc", 10)

	_, err := c.debit(1, "pc", 11)
	assert.ErrorIs(t, err, ErrNotEnough)

	// 失败后余额不变
	bal, ok := c.get(1, "pc")
	require.True(t, ok)
	assert.Equal(t, int64(10), bal)
}

func TestBalanceCache_ExactBalanceSpendable(t *testing.T) {
	c := make(balanceCache)
	c.set(1, "pc", 10)

	newBal, err := c.debit(1, "pc", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), newBal)
}

func TestBalanceCache_CreditOverflow(t *testing.T) {
	c := make(balanceCache)
	c.set(1, "pc", math.MaxInt64)

	_, err := c.credit(1, "pc", 1)
	assert.ErrorIs(t, err, ErrOverflow)

	bal, _ := c.get(1, "pc")
	assert.Equal(t, int64(math.MaxInt64), bal)
}

func TestBalanceCache_MissingParty(t *testing.T) {
	c := make(balanceCache)

	_, err := c.debit(42, "pc", 1)
	assert.Error(t, err)
	_, err = c.credit(42, "pc", 1)
	assert.Error(t, err)
}

func TestBalanceCache_CurrenciesIndependent(t *testing.T) {
	c := make(balanceCache)
	c.set(1, "pc", 100)
	c.set(1, "gen", 3)

	_, err := c.debit(1, "pc", 100)
	require.NoError(t, err)

	bal, ok := c.get(1, "gen")
	require.True(t, ok)
	assert.Equal(t, int64(3), bal)
}

func TestCheckedAddSub(t *testing.T) {
	v, ok := checkedAdd(math.MaxInt64-1, 1)
	require.True(t, ok)
	assert.Equal(t, int64(math.MaxInt64), v)

	_, ok = checkedAdd(math.MaxInt64, 1)
	assert.False(t, ok)

	_, ok = checkedSub(math.MinInt64, 1)
	assert.False(t, ok)

	v, ok = checkedSub(0, math.MaxInt64)
	require.True(t, ok)
	assert.Equal(t, int64(-math.MaxInt64), v)
}
