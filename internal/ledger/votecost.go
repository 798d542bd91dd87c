package ledger

import (
	"math"
)

// 单张选票成本的合法上界，超出即视为溢出
// 取 int64 上界的一半，保证后续求和仍有余量
const voteCostLimit = 4611686018427388000

// NthVoteCost 同一用户在同一动议上第 n 张选票的成本
// 等比数列：base * 1.05^(n-1)，向下取整
func NthVoteCost(baseCost, n int64) (int64, bool) {
	res := float64(baseCost) * math.Pow(1.05, float64(n-1))
	if !(res >= 0 && res < voteCostLimit) {
		return 0, false
	}
	return int64(res), true
}

// VotePurchaseCost 从当前已持票数出发，再买 count 张的总成本
// 返回本次购买覆盖的序数区间 [start, end)；任何中间结果越界则整体失败
func VotePurchaseCost(baseCost, votedSoFar, count int64) (start, end, total int64, ok bool) {
	start = votedSoFar + 1
	end, ok = checkedAdd(start, count)
	if !ok {
		return 0, 0, 0, false
	}
	for nth := start; nth < end; nth++ {
		cost, ok := NthVoteCost(baseCost, nth)
		if !ok {
			return 0, 0, 0, false
		}
		total, ok = checkedAdd(total, cost)
		if !ok {
			return 0, 0, 0, false
		}
	}
	return start, end, total, true
}
