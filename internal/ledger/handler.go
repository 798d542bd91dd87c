package ledger

import (
	"context"
	"fmt"
	"sort"

	"consortium/internal/model"
	"consortium/pkg/idgen"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ============================================================================
// 账本引擎
// ============================================================================
//
// 【核心约束】
// 1. 余额不落库，只从 (用户, 货币) 最新一条流水的快照推导
// 2. 建缓存时先对参与方排序去重，再按全局一致的顺序逐个加行锁，
//    所有调用方遵守同一加锁顺序，结构上杜绝死锁
// 3. 某 (用户, 货币) 还没有任何流水时无行可锁，此时必须锁整张流水表，
//    防止并发写入者用过期的零余额基线插入该用户的第一条流水
// 4. 一次逻辑操作 = 一个数据库事务，事务内缓存是唯一事实

// Handler 事务作用域内的账本句柄
// 必须在一个已开启的 gorm 事务内构造，生命周期不超过该事务
type Handler struct {
	tx    *gorm.DB
	cache balanceCache
}

func errMissingParty(user int64, currency string) error {
	return fmt.Errorf("余额缓存未包含参与方 user=%d currency=%s（调用方遗漏了加锁名单）", user, currency)
}

// New 为指定的用户与货币集合构造余额缓存，逐对加行锁
func New(ctx context.Context, tx *gorm.DB, users []int64, currencies []string) (*Handler, error) {
	users = append([]int64(nil), users...)
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	users = dedupInt64(users)

	currencies = append([]string(nil), currencies...)
	sort.Strings(currencies)
	currencies = dedupString(currencies)

	cache := make(balanceCache, len(users)*len(currencies))
	tableLocked := false

	for _, u := range users {
		for _, c := range currencies {
			var last model.Transfer
			err := tx.WithContext(ctx).
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("currency = ? AND (from_user = ? OR to_user = ?)", c, u, u).
				Order("happened_at DESC, id DESC").
				First(&last).Error
			if err != nil {
				if err != gorm.ErrRecordNotFound {
					return nil, fmt.Errorf("读取余额快照失败: %w", err)
				}
				// 没有流水行可锁，退化为表级锁
				if !tableLocked {
					if err := tx.WithContext(ctx).Exec("LOCK TABLE transfer IN EXCLUSIVE MODE").Error; err != nil {
						return nil, fmt.Errorf("锁定流水表失败: %w", err)
					}
					tableLocked = true
				}
				cache.set(u, c, 0)
				continue
			}
			bal, ok := last.BalanceFor(u)
			if !ok {
				return nil, fmt.Errorf("流水 %d 缺少 user=%d 的余额快照", last.ID, u)
			}
			cache.set(u, c, bal)
		}
	}

	return &Handler{tx: tx, cache: cache}, nil
}

// Single 单笔转账的一步到位入口：为该笔转账的参与方建缓存并立即执行
func Single(ctx context.Context, tx *gorm.DB, builder *Builder) error {
	if err := builder.Validate(); err != nil {
		return err
	}
	handle, err := New(ctx, tx, builder.Parties(), []string{builder.CurrencyCode()})
	if err != nil {
		return err
	}
	return handle.Transfer(ctx, builder)
}

// Balance 从缓存读余额，不再发生任何 I/O
// 返回 false 表示调用方建缓存时遗漏了该 (用户, 货币) 对
func (h *Handler) Balance(user int64, currency string) (int64, bool) {
	return h.cache.get(user, currency)
}

// Transfer 执行一笔转账：内存更新缓存，落一条不可变流水
// 扣款不足返回 ErrNotEnough，任一侧越过 int64 范围返回 ErrOverflow；
// 出错时缓存不会被部分修改
func (h *Handler) Transfer(ctx context.Context, builder *Builder) error {
	if err := builder.Validate(); err != nil {
		return err
	}

	var fromBalance, toBalance *int64

	if builder.source != nil {
		// 先校验再扣，避免失败时缓存留下半截状态
		old, ok := h.cache.get(*builder.source, builder.currency)
		if !ok {
			return errMissingParty(*builder.source, builder.currency)
		}
		if old < builder.quantity {
			return ErrNotEnough
		}
		if _, ok := checkedSub(old, builder.quantity); !ok {
			return ErrOverflow
		}
	}
	if builder.dest != nil {
		old, ok := h.cache.get(*builder.dest, builder.currency)
		if !ok {
			return errMissingParty(*builder.dest, builder.currency)
		}
		// 自己转给自己时入账基线是扣款后的余额
		if builder.source != nil && *builder.source == *builder.dest {
			old -= builder.quantity
		}
		if _, ok := checkedAdd(old, builder.quantity); !ok {
			return ErrOverflow
		}
	}

	if builder.source != nil {
		newBal, err := h.cache.debit(*builder.source, builder.currency, builder.quantity)
		if err != nil {
			return err
		}
		fromBalance = &newBal
	}
	if builder.dest != nil {
		newBal, err := h.cache.credit(*builder.dest, builder.currency, builder.quantity)
		if err != nil {
			return err
		}
		toBalance = &newBal
	}

	row := &model.Transfer{
		TransferNo:  idgen.GenerateTransferNo(),
		Currency:    builder.currency,
		FromUser:    builder.source,
		ToUser:      builder.dest,
		Quantity:    builder.quantity,
		FromBalance: fromBalance,
		ToBalance:   toBalance,
		Type:        builder.transferType,
		MotionID:    builder.motionID,
		VoteCount:   builder.voteCount,
		AuctionID:   builder.auctionID,
		Comment:     builder.comment,
		MessageID:   builder.messageID,
		HappenedAt:  builder.happenedAt,
	}
	if err := h.tx.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("写入流水失败: %w", err)
	}
	return nil
}

func dedupInt64(sorted []int64) []int64 {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}

func dedupString(sorted []string) []string {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}
