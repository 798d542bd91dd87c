package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func i64(v int64) *int64 { return &v }

// occupied 在位领先者 10 号以公开价 price 领先，代理上限 max
func occupied(minimum, price, max, maxAvailable int64) *bidState {
	return &bidState{
		MinimumBid:    minimum,
		CurrentWinner: i64(10),
		CurrentBid:    i64(price),
		MaxBidUser:    i64(10),
		MaxBidAmount:  i64(max),
		MaxAvailable:  maxAvailable,
	}
}

// plainLeader 在位领先者 10 号以普通出价 price 领先，场上没有代理上限
func plainLeader(minimum, price int64) *bidState {
	return &bidState{
		MinimumBid:    minimum,
		CurrentWinner: i64(10),
		CurrentBid:    i64(price),
	}
}

func TestResolveBid_FirstMaxBidStopsAtMinimum(t *testing.T) {
	st := &bidState{MinimumBid: 5, ChallengerAvailable: 1000}

	d := resolveBid(st, 20, 30, true)
	require.True(t, d.Accepted)
	assert.Equal(t, int64(20), d.Winner)
	assert.Equal(t, int64(5), d.Price) // 公开价只到起拍价
	assert.Equal(t, i64(30), d.MaxAmount)
	assert.True(t, d.WinnerChanged)
}

func TestResolveBid_FirstPlainBidSetsPrice(t *testing.T) {
	st := &bidState{MinimumBid: 1, ChallengerAvailable: 1000}

	// 普通出价直接落在出价额，不留代理上限
	d := resolveBid(st, 20, 5, false)
	require.True(t, d.Accepted)
	assert.Equal(t, int64(20), d.Winner)
	assert.Equal(t, int64(5), d.Price)
	assert.Nil(t, d.MaxUser)
	assert.Nil(t, d.MaxAmount)
	assert.True(t, d.WinnerChanged)
}

func TestResolveBid_FirstBidBelowMinimumRejected(t *testing.T) {
	st := &bidState{MinimumBid: 5, ChallengerAvailable: 1000}

	d := resolveBid(st, 20, 4, true)
	assert.False(t, d.Accepted)
}

func TestResolveBid_MustBeatCurrentPlainPrice(t *testing.T) {
	st := plainLeader(1, 5)
	st.ChallengerAvailable = 1000

	// 等于当前公开价无效，必须至少 +1
	d := resolveBid(st, 20, 5, false)
	assert.False(t, d.Accepted)

	d = resolveBid(st, 20, 6, false)
	require.True(t, d.Accepted)
	assert.Equal(t, int64(20), d.Winner)
	assert.Equal(t, int64(6), d.Price)
	assert.Nil(t, d.MaxUser)
	assert.True(t, d.WinnerChanged)
}

func TestResolveBid_MaxBidOverPlainLeader(t *testing.T) {
	st := plainLeader(1, 5)
	st.ChallengerAvailable = 1000

	// 对手只是普通出价：代理价压过它只需 +1
	d := resolveBid(st, 20, 12, true)
	require.True(t, d.Accepted)
	assert.Equal(t, int64(20), d.Winner)
	assert.Equal(t, int64(6), d.Price)
	assert.Equal(t, i64(12), d.MaxAmount)
	assert.True(t, d.WinnerChanged)
}

func TestResolveBid_ProxyDefendsUpToMax(t *testing.T) {
	st := occupied(1, 5, 20, 1000)
	st.ChallengerAvailable = 1000

	// 挑战者上限不超过在位者上限：在位者跟到挑战者的价
	d := resolveBid(st, 20, 15, true)
	require.True(t, d.Accepted)
	assert.Equal(t, int64(10), d.Winner)
	assert.Equal(t, int64(15), d.Price)
	assert.Equal(t, i64(20), d.MaxAmount)
	assert.False(t, d.WinnerChanged) // 领先者没变，计时不重置
}

func TestResolveBid_ProxyDefendsAgainstPlainBid(t *testing.T) {
	st := occupied(1, 5, 20, 1000)
	st.ChallengerAvailable = 1000

	// 普通出价同样会被在位者的代理应价吃掉，上限保持原状
	d := resolveBid(st, 20, 15, false)
	require.True(t, d.Accepted)
	assert.Equal(t, int64(10), d.Winner)
	assert.Equal(t, int64(15), d.Price)
	assert.Equal(t, i64(10), d.MaxUser)
	assert.Equal(t, i64(20), d.MaxAmount)
	assert.False(t, d.WinnerChanged)
}

func TestResolveBid_TieGoesToIncumbent(t *testing.T) {
	st := occupied(1, 5, 20, 1000)
	st.ChallengerAvailable = 1000

	d := resolveBid(st, 20, 20, true)
	require.True(t, d.Accepted)
	assert.Equal(t, int64(10), d.Winner)
	assert.Equal(t, int64(20), d.Price)
	assert.False(t, d.WinnerChanged)
}

func TestResolveBid_OverbidTakesLeadAtMaxPlusOne(t *testing.T) {
	st := occupied(1, 5, 20, 1000)
	st.ChallengerAvailable = 1000

	d := resolveBid(st, 20, 25, true)
	require.True(t, d.Accepted)
	assert.Equal(t, int64(20), d.Winner)
	assert.Equal(t, int64(21), d.Price) // 刚好压过在位者上限
	assert.Equal(t, i64(25), d.MaxAmount)
	assert.True(t, d.WinnerChanged)
}

func TestResolveBid_PlainOverbidPaysFullAmount(t *testing.T) {
	st := occupied(1, 5, 20, 1000)
	st.ChallengerAvailable = 1000

	// 普通出价压过在位上限：公开价就是出价额，场上不再有代理
	d := resolveBid(st, 20, 25, false)
	require.True(t, d.Accepted)
	assert.Equal(t, int64(20), d.Winner)
	assert.Equal(t, int64(25), d.Price)
	assert.Nil(t, d.MaxUser)
	assert.Nil(t, d.MaxAmount)
	assert.True(t, d.WinnerChanged)
}

func TestResolveBid_IncumbentMaxClampedToFunds(t *testing.T) {
	// 在位者上限 20 但此刻只付得起 12（余额 7 + 冻结 5）
	st := occupied(1, 5, 20, 12)
	st.ChallengerAvailable = 1000

	d := resolveBid(st, 20, 15, true)
	require.True(t, d.Accepted)
	assert.Equal(t, int64(20), d.Winner)
	assert.Equal(t, int64(13), d.Price)
	assert.True(t, d.WinnerChanged)
}

func TestResolveBid_BidBeyondFundsRejected(t *testing.T) {
	st := occupied(1, 5, 20, 1000)
	st.ChallengerAvailable = 8

	// 喊 25 但只付得起 8：直接拒绝，不许以缩水后的数额参与比较
	d := resolveBid(st, 20, 25, true)
	assert.False(t, d.Accepted)
	assert.Equal(t, "余额不足", d.Reason)

	// 普通出价同样拒绝
	d = resolveBid(st, 20, 25, false)
	assert.False(t, d.Accepted)

	// 付得起的数额照常生效
	d = resolveBid(st, 20, 8, true)
	require.True(t, d.Accepted)
	assert.Equal(t, int64(10), d.Winner) // 仍被在位者的代理压住
	assert.Equal(t, int64(8), d.Price)
}

func TestResolveBid_ChallengerCannotAffordMinimum(t *testing.T) {
	st := occupied(1, 5, 20, 1000)
	st.ChallengerAvailable = 5 // 最低有效价是 6

	d := resolveBid(st, 20, 25, true)
	assert.False(t, d.Accepted)
}

func TestResolveBid_SelfRaiseKeepsPriceAndTimer(t *testing.T) {
	st := occupied(1, 5, 10, 1000)
	st.ChallengerAvailable = 1000

	d := resolveBid(st, 10, 20, true)
	require.True(t, d.Accepted)
	assert.Equal(t, int64(10), d.Winner)
	assert.Equal(t, int64(5), d.Price) // 公开价不动
	assert.Equal(t, i64(20), d.MaxAmount)
	assert.False(t, d.WinnerChanged) // 自调上限不重置计时
}

func TestResolveBid_SelfResetReplacesMax(t *testing.T) {
	st := occupied(1, 5, 30, 1000)
	st.ChallengerAvailable = 1000

	// 重设上限以新值为准，允许下调到公开价之上
	d := resolveBid(st, 10, 20, true)
	require.True(t, d.Accepted)
	assert.Equal(t, i64(20), d.MaxAmount)
	assert.Equal(t, int64(5), d.Price)
}

func TestResolveBid_SelfPlainRaiseLiftsPrice(t *testing.T) {
	st := occupied(1, 5, 30, 1000)
	st.ChallengerAvailable = 1000

	// 领先者亲自抬高公开价：价涨到出价额，上限不动，计时不重置
	d := resolveBid(st, 10, 20, false)
	require.True(t, d.Accepted)
	assert.Equal(t, int64(10), d.Winner)
	assert.Equal(t, int64(20), d.Price)
	assert.Equal(t, i64(30), d.MaxAmount)
	assert.False(t, d.WinnerChanged)
}
