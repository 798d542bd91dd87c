package ledger

import (
	"math"
)

type balanceKey struct {
	user     int64
	currency string
}

// balanceCache 事务期间的余额缓存
// 建缓存时逐对加行锁读出快照，之后所有读写都只走内存；
// 事务提交前缓存是唯一事实，提交后以追加的流水行为准
type balanceCache map[balanceKey]int64

func (c balanceCache) get(user int64, currency string) (int64, bool) {
	bal, ok := c[balanceKey{user: user, currency: currency}]
	return bal, ok
}

func (c balanceCache) set(user int64, currency string, balance int64) {
	c[balanceKey{user: user, currency: currency}] = balance
}

// debit 扣款：余额不足返回 ErrNotEnough，越界返回 ErrOverflow
// 缓存同步更新，返回扣款后的余额快照
func (c balanceCache) debit(user int64, currency string, quantity int64) (int64, error) {
	old, ok := c.get(user, currency)
	if !ok {
		return 0, errMissingParty(user, currency)
	}
	if old < quantity {
		return 0, ErrNotEnough
	}
	newBalance, ok := checkedSub(old, quantity)
	if !ok {
		return 0, ErrOverflow
	}
	c.set(user, currency, newBalance)
	return newBalance, nil
}

// credit 入账：只可能溢出，不存在余额不足
func (c balanceCache) credit(user int64, currency string, quantity int64) (int64, error) {
	old, ok := c.get(user, currency)
	if !ok {
		return 0, errMissingParty(user, currency)
	}
	newBalance, ok := checkedAdd(old, quantity)
	if !ok {
		return 0, ErrOverflow
	}
	c.set(user, currency, newBalance)
	return newBalance, nil
}

func checkedAdd(a, b int64) (int64, bool) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, false
	}
	if b < 0 && a < math.MinInt64-b {
		return 0, false
	}
	return a + b, true
}

func checkedSub(a, b int64) (int64, bool) {
	if b > 0 && a < math.MinInt64+b {
		return 0, false
	}
	if b < 0 && a > math.MaxInt64+b {
		return 0, false
	}
	return a - b, true
}
