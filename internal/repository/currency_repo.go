package repository

import (
	"context"
	"errors"

	"consortium/internal/model"

	"gorm.io/gorm"
)

var ErrCurrencyNotFound = errors.New("货币不存在")

type CurrencyRepository struct {
	db *gorm.DB
}

func NewCurrencyRepository(db *gorm.DB) *CurrencyRepository {
	return &CurrencyRepository{db: db}
}

func (r *CurrencyRepository) GetByCode(ctx context.Context, code string) (*model.Currency, error) {
	var currency model.Currency
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&currency).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCurrencyNotFound
		}
		return nil, err
	}
	return &currency, nil
}

func (r *CurrencyRepository) List(ctx context.Context) ([]*model.Currency, error) {
	var currencies []*model.Currency
	err := r.db.WithContext(ctx).Order("code ASC").Find(&currencies).Error
	return currencies, err
}
