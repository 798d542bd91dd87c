package repository

import (
	"context"
	"errors"
	"time"

	"consortium/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrMotionNotFound = errors.New("动议不存在")

type MotionRepository struct {
	db *gorm.DB
}

func NewMotionRepository(db *gorm.DB) *MotionRepository {
	return &MotionRepository{db: db}
}

func (r *MotionRepository) Create(ctx context.Context, tx *gorm.DB, motion *model.Motion) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(motion).Error
}

func (r *MotionRepository) GetByID(ctx context.Context, id int64) (*model.Motion, error) {
	var motion model.Motion
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&motion).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMotionNotFound
		}
		return nil, err
	}
	return &motion, nil
}

// GetByIDForUpdate 锁住动议行；投票、结算都先过这把锁
func (r *MotionRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.Motion, error) {
	var motion model.Motion
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&motion).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMotionNotFound
		}
		return nil, err
	}
	return &motion, nil
}

// LockTable 发起动议时锁表，把"当日配额检查 + 插入"放进同一个临界区
func (r *MotionRepository) LockTable(ctx context.Context, tx *gorm.DB) error {
	return tx.WithContext(ctx).Exec("LOCK TABLE motion IN EXCLUSIVE MODE").Error
}

// CountByProposerSince 某用户自某时刻起发起的动议数（当日配额用）
func (r *MotionRepository) CountByProposerSince(ctx context.Context, tx *gorm.DB, proposer int64, since time.Time) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	var count int64
	err := tx.WithContext(ctx).
		Model(&model.Motion{}).
		Where("motioned_by = ? AND motioned_at >= ?", proposer, since).
		Count(&count).Error
	return count, err
}

// ListExpired 所有未定稿且结果稳定期已过的动议
func (r *MotionRepository) ListExpired(ctx context.Context, cutoff time.Time) ([]*model.Motion, error) {
	var motions []*model.Motion
	err := r.db.WithContext(ctx).
		Where("announcement_id IS NULL AND last_result_change < ?", cutoff).
		Order("last_result_change ASC").
		Find(&motions).Error
	return motions, err
}

// ListNeedsUpdate 计票有变动、公告待刷新的未定稿动议
func (r *MotionRepository) ListNeedsUpdate(ctx context.Context) ([]*model.Motion, error) {
	var motions []*model.Motion
	err := r.db.WithContext(ctx).
		Where("needs_update AND announcement_id IS NULL").
		Find(&motions).Error
	return motions, err
}

func (r *MotionRepository) SetAnnouncement(ctx context.Context, tx *gorm.DB, id int64, announcementID int64) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.Motion{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"announcement_id": announcementID,
			"needs_update":    false,
		}).Error
}

func (r *MotionRepository) SetLastResultChange(ctx context.Context, tx *gorm.DB, id int64, at time.Time) error {
	return tx.WithContext(ctx).
		Model(&model.Motion{}).
		Where("id = ?", id).
		Update("last_result_change", at).Error
}

func (r *MotionRepository) SetNeedsUpdate(ctx context.Context, tx *gorm.DB, id int64, needsUpdate bool) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.Motion{}).
		Where("id = ?", id).
		Update("needs_update", needsUpdate).Error
}

func (r *MotionRepository) List(ctx context.Context, page, pageSize int) ([]*model.Motion, int64, error) {
	var motions []*model.Motion
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Motion{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("motioned_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&motions).Error

	return motions, total, err
}

// ============================================================
// 动议投票
// ============================================================

// LockVotes 锁住某动议的全部投票行，串行化并发购票
func (r *MotionRepository) LockVotes(ctx context.Context, tx *gorm.DB, motionID int64) ([]*model.MotionVote, error) {
	var votes []*model.MotionVote
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("motion_id = ?", motionID).
		Find(&votes).Error
	return votes, err
}

func (r *MotionRepository) GetVote(ctx context.Context, tx *gorm.DB, motionID, userID int64) (*model.MotionVote, error) {
	if tx == nil {
		tx = r.db
	}
	var vote model.MotionVote
	err := tx.WithContext(ctx).
		Where("motion_id = ? AND user_id = ?", motionID, userID).
		First(&vote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vote, nil
}

func (r *MotionRepository) CreateVote(ctx context.Context, tx *gorm.DB, vote *model.MotionVote) error {
	return tx.WithContext(ctx).Create(vote).Error
}

func (r *MotionRepository) UpdateVoteAmount(ctx context.Context, tx *gorm.DB, motionID, userID, amount int64) error {
	return tx.WithContext(ctx).
		Model(&model.MotionVote{}).
		Where("motion_id = ? AND user_id = ?", motionID, userID).
		Update("amount", amount).Error
}

// ListVotes 某动议的全部投票行（不加锁，结算与展示用）
func (r *MotionRepository) ListVotes(ctx context.Context, tx *gorm.DB, motionID int64) ([]*model.MotionVote, error) {
	if tx == nil {
		tx = r.db
	}
	var votes []*model.MotionVote
	err := tx.WithContext(ctx).
		Where("motion_id = ?", motionID).
		Find(&votes).Error
	return votes, err
}
