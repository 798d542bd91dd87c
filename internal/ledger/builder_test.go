package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestBuilderValidate_Give(t *testing.T) {
	b := NewBuilder(10, "pc", testNow).Give(1, 2, false)
	assert.NoError(t, b.Validate())
}

func TestBuilderValidate_RejectsNegativeQuantity(t *testing.T) {
	b := NewBuilder(-1, "pc", testNow).Give(1, 2, false)
	assert.Error(t, b.Validate())
}

func TestBuilderValidate_RejectsMissingType(t *testing.T) {
	b := NewBuilder(10, "pc", testNow)
	assert.Error(t, b.Validate())
}

func TestBuilderValidate_RejectsMissingCurrency(t *testing.T) {
	b := NewBuilder(10, "", testNow).Give(1, 2, false)
	assert.Error(t, b.Validate())
}

func TestBuilderValidate_MotionPayload(t *testing.T) {
	b := NewBuilder(40, "pc", testNow).Motion(1, 7, 1, true)
	assert.NoError(t, b.Validate())

	// 类型被改写成 GIVE 后残留的动议信息必须被识破
	stale := NewBuilder(40, "pc", testNow).Motion(1, 7, 1, true).Give(1, 2, false)
	assert.Error(t, stale.Validate())
}

func TestBuilderValidate_AuctionPayload(t *testing.T) {
	assert.NoError(t, NewBuilder(1, "gen", testNow).AuctionCreate(1, 9).Validate())
	assert.NoError(t, NewBuilder(5, "pc", testNow).AuctionReserve(1, 9).Validate())
	assert.NoError(t, NewBuilder(5, "pc", testNow).AuctionRefund(1, 9).Validate())
	assert.NoError(t, NewBuilder(1, "gen", testNow).AuctionPayout(1, 9).Validate())
}

func TestBuilderValidate_Fabricate(t *testing.T) {
	assert.NoError(t, NewBuilder(100, "pc", testNow).Fabricate(1, false).Validate())
	assert.NoError(t, NewBuilder(3, "pc", testNow).Fabricate(1, true).Validate())
}

func TestBuilderParties(t *testing.T) {
	b := NewBuilder(10, "pc", testNow).Give(3, 5, false)
	assert.ElementsMatch(t, []int64{3, 5}, b.Parties())

	solo := NewBuilder(10, "pc", testNow).Fabricate(5, false)
	require.Len(t, solo.Parties(), 1)
	assert.Equal(t, int64(5), solo.Parties()[0])

	assert.Equal(t, "pc", b.CurrencyCode())
}
