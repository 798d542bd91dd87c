package repository

import (
	"context"
	"errors"
	"time"

	"consortium/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrAuctionNotFound = errors.New("拍卖不存在")

type AuctionRepository struct {
	db *gorm.DB
}

func NewAuctionRepository(db *gorm.DB) *AuctionRepository {
	return &AuctionRepository{db: db}
}

func (r *AuctionRepository) Create(ctx context.Context, tx *gorm.DB, auction *model.Auction) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(auction).Error
}

func (r *AuctionRepository) GetByID(ctx context.Context, id int64) (*model.Auction, error) {
	var auction model.Auction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&auction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAuctionNotFound
		}
		return nil, err
	}
	return &auction, nil
}

// GetByIDForUpdate 锁住拍卖行，串行化同一拍卖上的并发出价
func (r *AuctionRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.Auction, error) {
	var auction model.Auction
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&auction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAuctionNotFound
		}
		return nil, err
	}
	return &auction, nil
}

// UpdateBidState 出价成功后更新防狙击计时与代理出价上限
// maxBidUser/maxBidAmount 为 nil 表示清除代理出价
func (r *AuctionRepository) UpdateBidState(ctx context.Context, tx *gorm.DB, id int64, lastTimerBump time.Time, maxBidUser, maxBidAmount *int64) error {
	return tx.WithContext(ctx).
		Model(&model.Auction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_timer_bump": lastTimerBump,
			"max_bid_user":    maxBidUser,
			"max_bid_amount":  maxBidAmount,
		}).Error
}

func (r *AuctionRepository) MarkFinished(ctx context.Context, tx *gorm.DB, id int64) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.Auction{}).
		Where("id = ?", id).
		Update("finished", true).Error
}

func (r *AuctionRepository) ListUnfinished(ctx context.Context) ([]*model.Auction, error) {
	var auctions []*model.Auction
	err := r.db.WithContext(ctx).
		Where("finished = ?", false).
		Order("created_at ASC").
		Find(&auctions).Error
	return auctions, err
}

func (r *AuctionRepository) List(ctx context.Context, page, pageSize int) ([]*model.Auction, int64, error) {
	var auctions []*model.Auction
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Auction{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&auctions).Error

	return auctions, total, err
}
