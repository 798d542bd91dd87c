package service

import (
	"context"
	"errors"
	"log"
	"time"
	"unicode/utf8"

	"consortium/internal/config"
	"consortium/internal/ledger"
	"consortium/internal/model"
	"consortium/internal/repository"

	"gorm.io/gorm"
)

var (
	ErrMotionSettled   = errors.New("动议已定稿")
	ErrMotionQuota     = errors.New("今日动议次数已达上限")
	ErrMotionTooLong   = errors.New("动议内容过长")
	ErrBadPower        = errors.New("权重必须是正有理数")
	ErrVoteDirection   = errors.New("不能改投另一方向")
	ErrVoteNoDirection = errors.New("首次投票必须指定方向")
	ErrVoteCostTooHigh = errors.New("选票成本超出可计算范围")
)

// MotionService 加权动议投票
//
// 选票按二次成本递增：第 n 张票价 floor(base * 1.05^(n-1))，
// 同一动议内票价只与个人已购票数有关。通过判定 no*power < yes 用
// 精确有理数计算，结果翻转会重置结算倒计时
type MotionService struct {
	db           *gorm.DB
	cfg          *config.Config
	motionRepo   *repository.MotionRepository
	transferRepo *repository.TransferRepository
	outboxRepo   *repository.OutboxRepository
}

func NewMotionService(db *gorm.DB, cfg *config.Config) *MotionService {
	return &MotionService{
		db:           db,
		cfg:          cfg,
		motionRepo:   repository.NewMotionRepository(db),
		transferRepo: repository.NewTransferRepository(db),
		outboxRepo:   repository.NewOutboxRepository(db),
	}
}

// CreateMotionRequest 发起动议请求
// Power 是反对票权重的十进制表示，如 "1"、"2"、"0.5"
type CreateMotionRequest struct {
	Proposer int64
	Text     string
	Power    string
}

// CreateMotion 发起动议
// 发起人支付首张选票的价格并自动获得一张赞成票；每人每UTC日的动议
// 数量有上限，计数在表级锁下进行以防并发绕过
func (s *MotionService) CreateMotion(ctx context.Context, req *CreateMotionRequest) (*model.Motion, error) {
	if utf8.RuneCountInString(req.Text) > s.cfg.Business.MaxMotionLength {
		return nil, ErrMotionTooLong
	}
	if req.Power == "" {
		req.Power = "1"
	}
	trial := &model.Motion{Power: req.Power}
	if _, ok := trial.PowerRat(); !ok {
		return nil, ErrBadPower
	}

	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	motion := &model.Motion{
		Text:             req.Text,
		Power:            req.Power,
		MotionedBy:       req.Proposer,
		MotionedAt:       now,
		LastResultChange: now,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.motionRepo.LockTable(ctx, tx); err != nil {
			return err
		}
		count, err := s.motionRepo.CountByProposerSince(ctx, tx, req.Proposer, dayStart)
		if err != nil {
			return err
		}
		if count >= s.cfg.Business.MaxMotionsPerDay {
			return ErrMotionQuota
		}

		if err := s.motionRepo.Create(ctx, tx, motion); err != nil {
			return err
		}

		// 发起即含一张赞成票，价格是首张票价
		charge := ledger.NewBuilder(s.cfg.Business.VoteBaseCost, model.CurrencyCapital, now).
			Motion(req.Proposer, motion.ID, 1, true)
		if err := ledger.Single(ctx, tx, charge); err != nil {
			return err
		}
		if err := s.motionRepo.CreateVote(ctx, tx, &model.MotionVote{
			MotionID:  motion.ID,
			UserID:    req.Proposer,
			Direction: true,
			Amount:    1,
		}); err != nil {
			return err
		}

		return enqueueOutboxEvent(ctx, tx, s.outboxRepo, s.cfg.Kafka.Topic.MotionCreated, motion.ID, map[string]interface{}{
			"motion_id": motion.ID,
			"proposer":  req.Proposer,
			"power":     req.Power,
		})
	})
	if err != nil {
		if errors.Is(err, ledger.ErrNotEnough) {
			return nil, ErrNotEnough
		}
		return nil, err
	}

	log.Printf("动议创建成功: id=%d, proposer=%d, power=%s", motion.ID, req.Proposer, req.Power)
	return motion, nil
}

// VoteOutcome 投票结果
type VoteOutcome struct {
	MotionID     int64 `json:"motion_id"`
	Count        int64 `json:"count"`
	Cost         int64 `json:"cost"`          // 本次总扣款
	FirstOrdinal int64 `json:"first_ordinal"` // 本次购入的第一张票的序号
	LastOrdinal  int64 `json:"last_ordinal"`  // 本次购入的最后一张票的序号
	YesVotes     int64 `json:"yes_votes"`     // 投票后的赞成总票数
	NoVotes      int64 `json:"no_votes"`      // 投票后的反对总票数
	Passing      bool  `json:"passing"`       // 投票后是否处于通过状态
	ResultFlip   bool  `json:"result_flip"`   // 本次投票是否翻转了结果
}

// CastVote 购买选票
// wantDirection true=赞成 false=反对，nil=沿用此前选定的方向；
// 同一用户在同一动议上方向一经选定不可更改
func (s *MotionService) CastVote(ctx context.Context, motionID, voter int64, wantDirection *bool, count int64) (*VoteOutcome, error) {
	if count < 1 {
		return nil, ErrBadQuantity
	}

	now := time.Now().UTC()
	var outcome *VoteOutcome
	var direction bool

	err := s.db.Transaction(func(tx *gorm.DB) error {
		motion, err := s.motionRepo.GetByIDForUpdate(ctx, tx, motionID)
		if err != nil {
			return err
		}
		if motion.Settled() || now.After(motion.EndAt(s.cfg.Business.MotionExpiration())) {
			return ErrMotionSettled
		}
		power, ok := motion.PowerRat()
		if !ok {
			return ErrBadPower
		}

		votes, err := s.motionRepo.LockVotes(ctx, tx, motionID)
		if err != nil {
			return err
		}

		dir, votedSoFar, existing, err := resolveVoteDirection(votes, voter, wantDirection)
		if err != nil {
			return err
		}
		direction = dir

		first, last, cost, ok := ledger.VotePurchaseCost(s.cfg.Business.VoteBaseCost, votedSoFar, count)
		if !ok {
			return ErrVoteCostTooHigh
		}

		charge := ledger.NewBuilder(cost, model.CurrencyCapital, now).
			Motion(voter, motionID, count, false)
		if err := ledger.Single(ctx, tx, charge); err != nil {
			return err
		}

		if existing {
			if err := s.motionRepo.UpdateVoteAmount(ctx, tx, motionID, voter, votedSoFar+count); err != nil {
				return err
			}
		} else {
			if err := s.motionRepo.CreateVote(ctx, tx, &model.MotionVote{
				MotionID:  motionID,
				UserID:    voter,
				Direction: direction,
				Amount:    count,
			}); err != nil {
				return err
			}
		}

		yesBefore, noBefore := tallyVotes(votes)
		yesAfter, noAfter := yesBefore, noBefore
		if direction {
			yesAfter += count
		} else {
			noAfter += count
		}

		wasWin := ledger.IsWin(yesBefore, noBefore, power)
		isWin := ledger.IsWin(yesAfter, noAfter, power)
		if wasWin != isWin {
			if err := s.motionRepo.SetLastResultChange(ctx, tx, motionID, now); err != nil {
				return err
			}
		}
		if err := s.motionRepo.SetNeedsUpdate(ctx, tx, motionID, true); err != nil {
			return err
		}

		outcome = &VoteOutcome{
			MotionID:     motionID,
			Count:        count,
			Cost:         cost,
			FirstOrdinal: first,
			LastOrdinal:  last - 1,
			YesVotes:     yesAfter,
			NoVotes:      noAfter,
			Passing:      isWin,
			ResultFlip:   wasWin != isWin,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ledger.ErrNotEnough) {
			return nil, ErrNotEnough
		}
		return nil, err
	}

	log.Printf("投票成功: motion=%d, voter=%d, direction=%v, count=%d, cost=%d, flip=%v",
		motionID, voter, direction, count, outcome.Cost, outcome.ResultFlip)
	return outcome, nil
}

// GetMotion 动议详情与当前计票
func (s *MotionService) GetMotion(ctx context.Context, id int64) (*model.Motion, int64, int64, error) {
	motion, err := s.motionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, 0, 0, err
	}
	votes, err := s.motionRepo.ListVotes(ctx, s.db, id)
	if err != nil {
		return nil, 0, 0, err
	}
	yes, no := tallyVotes(votes)
	return motion, yes, no, nil
}

func (s *MotionService) ListMotions(ctx context.Context, page, pageSize int) ([]*model.Motion, int64, error) {
	return s.motionRepo.List(ctx, page, pageSize)
}

// resolveVoteDirection 确定本次购票的方向
// 已投过票的用户可以省略方向，沿用既有方向；给出的方向与既有方向冲突
// 时拒绝；首次投票必须明示方向
func resolveVoteDirection(votes []*model.MotionVote, voter int64, want *bool) (direction bool, votedSoFar int64, existing bool, err error) {
	for _, v := range votes {
		if v.UserID != voter {
			continue
		}
		if want != nil && *want != v.Direction {
			return false, 0, false, ErrVoteDirection
		}
		return v.Direction, v.Amount, true, nil
	}
	if want == nil {
		return false, 0, false, ErrVoteNoDirection
	}
	return *want, 0, false, nil
}

func tallyVotes(votes []*model.MotionVote) (yes, no int64) {
	for _, v := range votes {
		if v.Direction {
			yes += v.Amount
		} else {
			no += v.Amount
		}
	}
	return yes, no
}
