package repository

import (
	"context"
	"errors"
	"time"

	"consortium/internal/model"

	"gorm.io/gorm"
)

type TransferRepository struct {
	db *gorm.DB
}

func NewTransferRepository(db *gorm.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

// LatestBalance 不加锁地读取某 (用户, 货币) 的当前余额（用于展示）
// 真正要动钱时必须走账本引擎的加锁缓存，不能用这里的结果做判断
func (r *TransferRepository) LatestBalance(ctx context.Context, user int64, currency string) (int64, error) {
	var last model.Transfer
	err := r.db.WithContext(ctx).
		Where("currency = ? AND (from_user = ? OR to_user = ?)", currency, user, user).
		Order("happened_at DESC, id DESC").
		First(&last).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	bal, ok := last.BalanceFor(user)
	if !ok {
		return 0, errors.New("流水缺少余额快照")
	}
	return bal, nil
}

// BalanceAsOf 读取截至某时刻的余额快照（发电机补发产出时按计划时刻取余额）
func (r *TransferRepository) BalanceAsOf(ctx context.Context, tx *gorm.DB, user int64, currency string, before time.Time) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	var last model.Transfer
	err := tx.WithContext(ctx).
		Where("currency = ? AND (from_user = ? OR to_user = ?) AND happened_at < ?", currency, user, user, before).
		Order("happened_at DESC, id DESC").
		First(&last).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	bal, ok := last.BalanceFor(user)
	if !ok {
		return 0, errors.New("流水缺少余额快照")
	}
	return bal, nil
}

// LastReserve 某拍卖最新一条冻结流水，即当前领先者与公开价
// 没有任何出价时返回 nil
func (r *TransferRepository) LastReserve(ctx context.Context, tx *gorm.DB, auctionID int64) (*model.Transfer, error) {
	if tx == nil {
		tx = r.db
	}
	var last model.Transfer
	err := tx.WithContext(ctx).
		Where("auction_id = ? AND type = ?", auctionID, model.TransferTypeAuctionReserve).
		Order("happened_at DESC, id DESC").
		First(&last).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &last, nil
}

// GeneratorHolders 所有曾经持有过发电机货币的用户
func (r *TransferRepository) GeneratorHolders(ctx context.Context, tx *gorm.DB) ([]int64, error) {
	if tx == nil {
		tx = r.db
	}
	var users []int64
	err := tx.WithContext(ctx).
		Model(&model.Transfer{}).
		Distinct("to_user").
		Where("currency = ? AND to_user IS NOT NULL", model.CurrencyGenerator).
		Pluck("to_user", &users).Error
	return users, err
}

// ListByUser 分页查询某用户某货币的流水（新到旧）
func (r *TransferRepository) ListByUser(ctx context.Context, user int64, currency string, page, pageSize int) ([]*model.Transfer, int64, error) {
	var transfers []*model.Transfer
	var total int64

	query := r.db.WithContext(ctx).
		Model(&model.Transfer{}).
		Where("currency = ? AND (from_user = ? OR to_user = ?)", currency, user, user)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("happened_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&transfers).Error

	return transfers, total, err
}
