package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockedBalances 行锁把同一用户的并发扣款串行化：先到的事务扣成，
// 后到的看见扣减后的余额。这里用互斥锁充当行锁，每个事务在锁内
// 取快照、经缓存扣款、写回
type lockedBalances struct {
	mu  sync.Mutex
	bal map[balanceKey]int64
}

func (s *lockedBalances) withdraw(user int64, currency string, quantity int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := balanceKey{user: user, currency: currency}
	cache := make(balanceCache)
	cache.set(user, currency, s.bal[key])
	newBal, err := cache.debit(user, currency, quantity)
	if err != nil {
		return err
	}
	s.bal[key] = newBal
	return nil
}

func TestConcurrentDebits_ExactlyOneSucceeds(t *testing.T) {
	key := balanceKey{user: 1, currency: "pc"}
	store := &lockedBalances{bal: map[balanceKey]int64{key: 10}}

	// 余额 10，两笔并发的 7 只能成一笔
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.withdraw(1, "pc", 7)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrNotEnough)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(3), store.bal[key])
}

func TestConcurrentDebits_NeverOverdraw(t *testing.T) {
	key := balanceKey{user: 1, currency: "pc"}
	store := &lockedBalances{bal: map[balanceKey]int64{key: 100}}

	const workers = 10
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.withdraw(1, "pc", 30)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	require.Equal(t, 3, succeeded)
	assert.Equal(t, int64(10), store.bal[key])
}
