package ledger

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ratFrom(t *testing.T, s string) *big.Rat {
	t.Helper()
	r, ok := new(big.Rat).SetString(s)
	require.True(t, ok, "power=%s", s)
	return r
}

func TestIsWin_SimpleMajority(t *testing.T) {
	one := ratFrom(t, "1")

	assert.True(t, IsWin(1, 0, one))
	assert.True(t, IsWin(6, 5, one))
	assert.False(t, IsWin(5, 5, one)) // 平局不通过
	assert.False(t, IsWin(0, 0, one)) // 无票不通过
	assert.False(t, IsWin(4, 5, one))
}

func TestIsWin_DoubleWeightedOpposition(t *testing.T) {
	two := ratFrom(t, "2")

	assert.True(t, IsWin(7, 3, two))  // 6 < 7
	assert.False(t, IsWin(7, 4, two)) // 8 >= 7
	assert.False(t, IsWin(6, 3, two)) // 6 >= 6
}

func TestIsWin_FractionalPower(t *testing.T) {
	half := ratFrom(t, "0.5")

	assert.True(t, IsWin(3, 5, half))  // 2.5 < 3
	assert.False(t, IsWin(2, 5, half)) // 2.5 >= 2
	assert.True(t, IsWin(3, 4, half))  // 2 < 3
}

func TestIsWin_NoFloatEdgeError(t *testing.T) {
	// 大数下 float64 会丢精度，有理数运算必须严格
	one := ratFrom(t, "1")
	huge := int64(math.MaxInt64)

	assert.True(t, IsWin(huge, huge-1, one))
	assert.False(t, IsWin(huge-1, huge, one))
	assert.False(t, IsWin(huge, huge, one))
}
