package ledger

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNthVoteCost_FirstVotesAtBase40(t *testing.T) {
	cases := []struct {
		n    int64
		cost int64
	}{
		{1, 40},
		{2, 42},
		{3, 44},
		{4, 46},
		{15, 79},
	}
	for _, c := range cases {
		cost, ok := NthVoteCost(40, c.n)
		require.True(t, ok, "n=%d", c.n)
		assert.Equal(t, c.cost, cost, "n=%d", c.n)
	}
}

func TestNthVoteCost_NonDecreasing(t *testing.T) {
	prev := int64(0)
	for n := int64(1); n <= 200; n++ {
		cost, ok := NthVoteCost(40, n)
		require.True(t, ok, "n=%d", n)
		assert.GreaterOrEqual(t, cost, prev, "n=%d", n)
		prev = cost
	}
}

func TestNthVoteCost_OverflowGuard(t *testing.T) {
	// 1.05^n 很快越过上界，必须显式失败而不是回绕
	_, ok := NthVoteCost(40, 2000)
	assert.False(t, ok)
}

func TestVotePurchaseCost_TwoVotesFromScratch(t *testing.T) {
	start, end, total, ok := VotePurchaseCost(40, 0, 2)
	require.True(t, ok)
	assert.Equal(t, int64(1), start)
	assert.Equal(t, int64(3), end)
	assert.Equal(t, int64(82), total) // 40 + 42
}

func TestVotePurchaseCost_ContinuesFromHeldVotes(t *testing.T) {
	start, end, total, ok := VotePurchaseCost(40, 1, 1)
	require.True(t, ok)
	assert.Equal(t, int64(2), start)
	assert.Equal(t, int64(3), end)
	assert.Equal(t, int64(42), total)
}

func TestVotePurchaseCost_SplitPurchaseCostsTheSame(t *testing.T) {
	// 一次买三张和分两次买的总价必须一致
	_, _, whole, ok := VotePurchaseCost(40, 0, 3)
	require.True(t, ok)

	_, _, first, ok := VotePurchaseCost(40, 0, 1)
	require.True(t, ok)
	_, _, rest, ok := VotePurchaseCost(40, 1, 2)
	require.True(t, ok)

	assert.Equal(t, whole, first+rest)
}

func TestVotePurchaseCost_Overflow(t *testing.T) {
	_, _, _, ok := VotePurchaseCost(40, math.MaxInt64-1, 10)
	assert.False(t, ok)

	_, _, _, ok = VotePurchaseCost(40, 0, 5000)
	assert.False(t, ok)
}
