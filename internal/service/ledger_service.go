package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"consortium/internal/ledger"
	"consortium/internal/model"
	"consortium/internal/repository"

	"gorm.io/gorm"
)

var (
	ErrNotEnough    = errors.New("余额不足")
	ErrSameUser     = errors.New("不能转账给自己")
	ErrBadQuantity  = errors.New("数量必须大于0")
	ErrUnknownScrip = errors.New("货币不存在")
)

// LedgerService 账本的直接操作：转账、铸造、查余额、查流水
type LedgerService struct {
	db           *gorm.DB
	transferRepo *repository.TransferRepository
	currencyRepo *repository.CurrencyRepository
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{
		db:           db,
		transferRepo: repository.NewTransferRepository(db),
		currencyRepo: repository.NewCurrencyRepository(db),
	}
}

// GetBalance 查询余额（展示用，不加锁）
func (s *LedgerService) GetBalance(ctx context.Context, userID int64, currency string) (int64, error) {
	if _, err := s.currencyRepo.GetByCode(ctx, currency); err != nil {
		if errors.Is(err, repository.ErrCurrencyNotFound) {
			return 0, ErrUnknownScrip
		}
		return 0, err
	}
	return s.transferRepo.LatestBalance(ctx, userID, currency)
}

// ListTransfers 分页查流水
func (s *LedgerService) ListTransfers(ctx context.Context, userID int64, currency string, page, pageSize int) ([]*model.Transfer, int64, error) {
	return s.transferRepo.ListByUser(ctx, userID, currency, page, pageSize)
}

// GiveRequest 用户间转账请求
// Admin 表示管理员代转（记 ADMIN_GIVE 类型）；MessageID 关联外部平台消息
type GiveRequest struct {
	FromUser  int64
	ToUser    int64
	Currency  string
	Quantity  int64
	Comment   string
	Admin     bool
	MessageID *int64
}

// Give 用户间直接转账，单笔转账走一步到位入口
func (s *LedgerService) Give(ctx context.Context, req *GiveRequest) error {
	if req.Quantity <= 0 {
		return ErrBadQuantity
	}
	if req.FromUser == req.ToUser {
		return ErrSameUser
	}
	if _, err := s.currencyRepo.GetByCode(ctx, req.Currency); err != nil {
		if errors.Is(err, repository.ErrCurrencyNotFound) {
			return ErrUnknownScrip
		}
		return err
	}

	now := time.Now().UTC()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		builder := ledger.NewBuilder(req.Quantity, req.Currency, now).
			Give(req.FromUser, req.ToUser, req.Admin)
		if req.Comment != "" {
			builder = builder.Comment(req.Comment)
		}
		if req.MessageID != nil {
			builder = builder.MessageID(*req.MessageID)
		}
		return ledger.Single(ctx, tx, builder)
	})
	if err != nil {
		if errors.Is(err, ledger.ErrNotEnough) {
			return ErrNotEnough
		}
		return err
	}

	log.Printf("转账成功: from=%d, to=%d, currency=%s, quantity=%d",
		req.FromUser, req.ToUser, req.Currency, req.Quantity)
	return nil
}

// Fabricate 管理员凭空铸造货币
func (s *LedgerService) Fabricate(ctx context.Context, toUser int64, currency string, quantity int64, comment string) error {
	if quantity <= 0 {
		return ErrBadQuantity
	}
	if _, err := s.currencyRepo.GetByCode(ctx, currency); err != nil {
		if errors.Is(err, repository.ErrCurrencyNotFound) {
			return ErrUnknownScrip
		}
		return err
	}

	now := time.Now().UTC()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		builder := ledger.NewBuilder(quantity, currency, now).Fabricate(toUser, false)
		if comment != "" {
			builder = builder.Comment(comment)
		}
		return ledger.Single(ctx, tx, builder)
	})
	if err != nil {
		// 铸造只入账，余额不足不可能出现，溢出除外
		if errors.Is(err, ledger.ErrOverflow) {
			return fmt.Errorf("铸造失败: %w", err)
		}
		return err
	}

	log.Printf("铸造成功: to=%d, currency=%s, quantity=%d", toUser, currency, quantity)
	return nil
}

// ListCurrencies 货币列表
func (s *LedgerService) ListCurrencies(ctx context.Context) ([]*model.Currency, error) {
	return s.currencyRepo.List(ctx)
}
