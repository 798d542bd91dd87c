package job

import (
	"context"
	"log"
	"time"

	"consortium/internal/config"
	"consortium/internal/infrastructure/lock"
	"consortium/internal/ledger"
	"consortium/internal/model"
	"consortium/internal/repository"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// GeneratorJob 发电机产出任务
// 每到产出时刻，按各用户当时持有的 gen 数量发放等量 pc。
// 基线时刻存在数据库单行状态表里，进程崩溃重启后从上次基线续跑
type GeneratorJob struct {
	db           *gorm.DB
	rdb          *redis.Client
	cfg          *config.Config
	stateRepo    *repository.StateRepository
	transferRepo *repository.TransferRepository
	stopCh       chan struct{}
	interval     time.Duration
}

func NewGeneratorJob(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *GeneratorJob {
	return &GeneratorJob{
		db:           db,
		rdb:          rdb,
		cfg:          cfg,
		stateRepo:    repository.NewStateRepository(db),
		transferRepo: repository.NewTransferRepository(db),
		stopCh:       make(chan struct{}),
		interval:     time.Minute,
	}
}

func (j *GeneratorJob) Start(ctx context.Context) {
	log.Println("[GeneratorJob] 发电机产出任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[GeneratorJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[GeneratorJob] 任务停止")
			return
		case <-ticker.C:
			j.runDuePayouts(ctx)
		}
	}
}

func (j *GeneratorJob) Stop() {
	close(j.stopCh)
}

func (j *GeneratorJob) runDuePayouts(ctx context.Context) {
	schedLock := lock.NewSchedulerLock(j.rdb, "generator_payout", "scheduler")
	ok, err := schedLock.TryLock(ctx)
	if err != nil {
		log.Printf("[GeneratorJob] 获取调度锁失败: %v", err)
		return
	}
	if !ok {
		return
	}
	defer func() {
		if err := schedLock.Unlock(ctx); err != nil {
			log.Printf("[GeneratorJob] 释放调度锁失败: %v", err)
		}
	}()

	now := time.Now().UTC()
	genInterval := j.cfg.Business.GeneratorInterval()

	// 逐个补齐错过的产出时刻，每个时刻一个独立事务
	for {
		done, err := j.payoutOnce(ctx, now, genInterval)
		if err != nil {
			log.Printf("[GeneratorJob] 产出失败: %v", err)
			return
		}
		if done {
			return
		}
	}
}

// payoutOnce 执行下一个到期的产出时刻，没有到期时刻时返回 done=true
func (j *GeneratorJob) payoutOnce(ctx context.Context, now time.Time, genInterval time.Duration) (done bool, err error) {
	err = j.db.Transaction(func(tx *gorm.DB) error {
		state, err := j.stateRepo.GetForUpdate(ctx, tx)
		if err != nil {
			return err
		}
		thisGen := state.LastGeneratorRun.Add(genInterval)
		if thisGen.After(now) {
			done = true
			return nil
		}

		// 产出必须基于 thisGen 时刻的静止快照：
		// 锁整张流水表，杜绝并发转账在读数和入账之间改变持仓
		if err := tx.WithContext(ctx).Exec("LOCK TABLE transfer IN EXCLUSIVE MODE").Error; err != nil {
			return err
		}

		holders, err := j.transferRepo.GeneratorHolders(ctx, tx)
		if err != nil {
			return err
		}

		paid := 0
		if len(holders) > 0 {
			handle, err := ledger.New(ctx, tx, holders, []string{model.CurrencyCapital})
			if err != nil {
				return err
			}
			for _, holder := range holders {
				count, err := j.transferRepo.BalanceAsOf(ctx, tx, holder, model.CurrencyGenerator, thisGen)
				if err != nil {
					return err
				}
				if count <= 0 {
					continue
				}
				credit := ledger.NewBuilder(count, model.CurrencyCapital, now).
					Fabricate(holder, true)
				if err := handle.Transfer(ctx, credit); err != nil {
					return err
				}
				paid++
			}
		}

		if err := j.stateRepo.SetLastGeneratorRun(ctx, tx, thisGen); err != nil {
			return err
		}
		log.Printf("[GeneratorJob] 产出完成: 时刻=%s, 发放人数=%d", thisGen.Format(time.RFC3339), paid)
		return nil
	})
	return done, err
}

// AutoAuctionJob 定期自动拍卖任务
// 每个周期挂出一台发电机（1 gen），以 pc 竞拍，起拍价 1
type AutoAuctionJob struct {
	db          *gorm.DB
	rdb         *redis.Client
	cfg         *config.Config
	stateRepo   *repository.StateRepository
	auctionRepo *repository.AuctionRepository
	outboxRepo  *repository.OutboxRepository
	stopCh      chan struct{}
	interval    time.Duration
}

func NewAutoAuctionJob(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *AutoAuctionJob {
	return &AutoAuctionJob{
		db:          db,
		rdb:         rdb,
		cfg:         cfg,
		stateRepo:   repository.NewStateRepository(db),
		auctionRepo: repository.NewAuctionRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
		stopCh:      make(chan struct{}),
		interval:    time.Minute,
	}
}

func (j *AutoAuctionJob) Start(ctx context.Context) {
	log.Println("[AutoAuctionJob] 自动拍卖任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[AutoAuctionJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[AutoAuctionJob] 任务停止")
			return
		case <-ticker.C:
			j.createDueAuction(ctx)
		}
	}
}

func (j *AutoAuctionJob) Stop() {
	close(j.stopCh)
}

func (j *AutoAuctionJob) createDueAuction(ctx context.Context) {
	schedLock := lock.NewSchedulerLock(j.rdb, "auto_auction", "scheduler")
	ok, err := schedLock.TryLock(ctx)
	if err != nil {
		log.Printf("[AutoAuctionJob] 获取调度锁失败: %v", err)
		return
	}
	if !ok {
		return
	}
	defer func() {
		if err := schedLock.Unlock(ctx); err != nil {
			log.Printf("[AutoAuctionJob] 释放调度锁失败: %v", err)
		}
	}()

	now := time.Now().UTC()

	err = j.db.Transaction(func(tx *gorm.DB) error {
		state, err := j.stateRepo.GetForUpdate(ctx, tx)
		if err != nil {
			return err
		}
		if now.Before(state.LastAutoAuction.Add(j.cfg.Business.AutoAuctionInterval())) {
			return nil
		}

		auction := &model.Auction{
			OfferCurrency: model.CurrencyGenerator,
			OfferAmount:   1,
			BidCurrency:   model.CurrencyCapital,
			BidMinimum:    1,
			LastTimerBump: now,
		}
		if err := j.auctionRepo.Create(ctx, tx, auction); err != nil {
			return err
		}
		if err := j.stateRepo.SetLastAutoAuction(ctx, tx, now); err != nil {
			return err
		}

		log.Printf("[AutoAuctionJob] 自动拍卖已创建: auction=%d", auction.ID)
		return enqueueEvent(ctx, tx, j.outboxRepo, j.cfg.Kafka.Topic.AuctionCreated, auction.ID, map[string]interface{}{
			"auction_id":     auction.ID,
			"offer_currency": auction.OfferCurrency,
			"offer_amount":   auction.OfferAmount,
			"bid_currency":   auction.BidCurrency,
			"bid_minimum":    auction.BidMinimum,
			"auto":           true,
		})
	})
	if err != nil {
		log.Printf("[AutoAuctionJob] 自动拍卖失败: %v", err)
	}
}
