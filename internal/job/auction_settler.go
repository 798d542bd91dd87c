package job

import (
	"context"
	"log"
	"time"

	"consortium/internal/config"
	"consortium/internal/infrastructure/lock"
	"consortium/internal/ledger"
	"consortium/internal/repository"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// AuctionSettleJob 拍卖落槌任务
// 领先者变化后超过过期窗口仍无新领先者的拍卖视为成交：
// 向胜者发放标的并关闭拍卖。胜者的冻结资金即成交价，不再退还
type AuctionSettleJob struct {
	db           *gorm.DB
	rdb          *redis.Client
	cfg          *config.Config
	auctionRepo  *repository.AuctionRepository
	transferRepo *repository.TransferRepository
	outboxRepo   *repository.OutboxRepository
	stopCh       chan struct{}
	interval     time.Duration
}

func NewAuctionSettleJob(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *AuctionSettleJob {
	return &AuctionSettleJob{
		db:           db,
		rdb:          rdb,
		cfg:          cfg,
		auctionRepo:  repository.NewAuctionRepository(db),
		transferRepo: repository.NewTransferRepository(db),
		outboxRepo:   repository.NewOutboxRepository(db),
		stopCh:       make(chan struct{}),
		interval:     30 * time.Second,
	}
}

func (j *AuctionSettleJob) Start(ctx context.Context) {
	log.Println("[AuctionSettleJob] 拍卖落槌任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[AuctionSettleJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[AuctionSettleJob] 任务停止")
			return
		case <-ticker.C:
			j.settleExpiredAuctions(ctx)
		}
	}
}

func (j *AuctionSettleJob) Stop() {
	close(j.stopCh)
}

func (j *AuctionSettleJob) settleExpiredAuctions(ctx context.Context) {
	// 多实例部署时同一轮只跑一个
	schedLock := lock.NewSchedulerLock(j.rdb, "auction_settle", "settler")
	ok, err := schedLock.TryLock(ctx)
	if err != nil {
		log.Printf("[AuctionSettleJob] 获取调度锁失败: %v", err)
		return
	}
	if !ok {
		return
	}
	defer func() {
		if err := schedLock.Unlock(ctx); err != nil {
			log.Printf("[AuctionSettleJob] 释放调度锁失败: %v", err)
		}
	}()

	auctions, err := j.auctionRepo.ListUnfinished(ctx)
	if err != nil {
		log.Printf("[AuctionSettleJob] 查询未结束拍卖失败: %v", err)
		return
	}

	now := time.Now().UTC()
	expiration := j.cfg.Business.AuctionExpiration()

	for _, a := range auctions {
		if !now.After(a.EndAt(expiration)) {
			continue
		}
		if err := j.settleOne(ctx, a.ID, now); err != nil {
			// 单个拍卖失败不影响本轮其他拍卖
			log.Printf("[AuctionSettleJob] 结算拍卖失败: auction=%d, err=%v", a.ID, err)
		}
	}
}

func (j *AuctionSettleJob) settleOne(ctx context.Context, auctionID int64, now time.Time) error {
	return j.db.Transaction(func(tx *gorm.DB) error {
		auction, err := j.auctionRepo.GetByIDForUpdate(ctx, tx, auctionID)
		if err != nil {
			return err
		}
		// 锁内复查：并发出价可能刚刚重置了计时
		if auction.Finished || !now.After(auction.EndAt(j.cfg.Business.AuctionExpiration())) {
			return nil
		}

		lastReserve, err := j.transferRepo.LastReserve(ctx, tx, auctionID)
		if err != nil {
			return err
		}

		if lastReserve == nil {
			// 流拍：无人出价，有发起人的把押入的标的退回去
			if auction.Auctioneer != nil {
				back := ledger.NewBuilder(auction.OfferAmount, auction.OfferCurrency, now).
					AuctionRefund(*auction.Auctioneer, auctionID)
				if err := ledger.Single(ctx, tx, back); err != nil {
					return err
				}
			}
			if err := j.auctionRepo.MarkFinished(ctx, tx, auctionID); err != nil {
				return err
			}
			log.Printf("[AuctionSettleJob] 拍卖流拍: auction=%d", auctionID)
			return enqueueEvent(ctx, tx, j.outboxRepo, j.cfg.Kafka.Topic.AuctionSettled, auctionID, map[string]interface{}{
				"auction_id": auctionID,
				"sold":       false,
			})
		}

		winner := *lastReserve.FromUser
		price := lastReserve.Quantity

		handle, err := ledger.New(ctx, tx, []int64{winner}, []string{auction.OfferCurrency})
		if err != nil {
			return err
		}
		payout := ledger.NewBuilder(auction.OfferAmount, auction.OfferCurrency, now).
			AuctionPayout(winner, auctionID)
		if err := handle.Transfer(ctx, payout); err != nil {
			return err
		}

		if err := j.auctionRepo.MarkFinished(ctx, tx, auctionID); err != nil {
			return err
		}

		log.Printf("[AuctionSettleJob] 拍卖成交: auction=%d, winner=%d, price=%d %s, offer=%d %s",
			auctionID, winner, price, auction.BidCurrency, auction.OfferAmount, auction.OfferCurrency)

		return enqueueEvent(ctx, tx, j.outboxRepo, j.cfg.Kafka.Topic.AuctionSettled, auctionID, map[string]interface{}{
			"auction_id": auctionID,
			"sold":       true,
			"winner":     winner,
			"price":      price,
		})
	})
}
