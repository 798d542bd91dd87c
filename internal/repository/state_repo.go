package repository

import (
	"context"
	"time"

	"consortium/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StateRepository struct {
	db *gorm.DB
}

func NewStateRepository(db *gorm.DB) *StateRepository {
	return &StateRepository{db: db}
}

// GetForUpdate 锁住单行状态，同一任务的并发轮次只有一个能前进
func (r *StateRepository) GetForUpdate(ctx context.Context, tx *gorm.DB) (*model.SchedulerState, error) {
	var state model.SchedulerState
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", model.SchedulerStateID).
		First(&state).Error
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *StateRepository) SetLastGeneratorRun(ctx context.Context, tx *gorm.DB, at time.Time) error {
	return tx.WithContext(ctx).
		Model(&model.SchedulerState{}).
		Where("id = ?", model.SchedulerStateID).
		Update("last_generator_run", at).Error
}

func (r *StateRepository) SetLastAutoAuction(ctx context.Context, tx *gorm.DB, at time.Time) error {
	return tx.WithContext(ctx).
		Model(&model.SchedulerState{}).
		Where("id = ?", model.SchedulerStateID).
		Update("last_auto_auction", at).Error
}
