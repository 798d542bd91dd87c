package ledger

import (
	"math/big"
)

// IsWin 动议胜负判定：no*power < yes 时通过
// power 是反对票的权重乘数，用精确有理数运算避免浮点边界错判
func IsWin(yesVotes, noVotes int64, power *big.Rat) bool {
	weighted := new(big.Rat).Mul(power, new(big.Rat).SetInt64(noVotes))
	return weighted.Cmp(new(big.Rat).SetInt64(yesVotes)) < 0
}
