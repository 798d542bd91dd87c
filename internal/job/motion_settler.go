package job

import (
	"context"
	"log"
	"time"

	"consortium/internal/config"
	"consortium/internal/infrastructure/lock"
	"consortium/internal/ledger"
	"consortium/internal/repository"
	"consortium/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// MotionSettleJob 动议定稿任务
// 结果上次翻转后超过过期窗口仍未再翻转的动议按当前计票定稿，
// 定稿后写入公告ID，不再接受投票
type MotionSettleJob struct {
	db         *gorm.DB
	rdb        *redis.Client
	cfg        *config.Config
	motionRepo *repository.MotionRepository
	outboxRepo *repository.OutboxRepository
	stopCh     chan struct{}
	interval   time.Duration
}

func NewMotionSettleJob(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *MotionSettleJob {
	return &MotionSettleJob{
		db:         db,
		rdb:        rdb,
		cfg:        cfg,
		motionRepo: repository.NewMotionRepository(db),
		outboxRepo: repository.NewOutboxRepository(db),
		stopCh:     make(chan struct{}),
		interval:   30 * time.Second,
	}
}

func (j *MotionSettleJob) Start(ctx context.Context) {
	log.Println("[MotionSettleJob] 动议定稿任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[MotionSettleJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[MotionSettleJob] 任务停止")
			return
		case <-ticker.C:
			j.settleExpiredMotions(ctx)
		}
	}
}

func (j *MotionSettleJob) Stop() {
	close(j.stopCh)
}

func (j *MotionSettleJob) settleExpiredMotions(ctx context.Context) {
	schedLock := lock.NewSchedulerLock(j.rdb, "motion_settle", "settler")
	ok, err := schedLock.TryLock(ctx)
	if err != nil {
		log.Printf("[MotionSettleJob] 获取调度锁失败: %v", err)
		return
	}
	if !ok {
		return
	}
	defer func() {
		if err := schedLock.Unlock(ctx); err != nil {
			log.Printf("[MotionSettleJob] 释放调度锁失败: %v", err)
		}
	}()

	now := time.Now().UTC()
	cutoff := now.Add(-j.cfg.Business.MotionExpiration())

	motions, err := j.motionRepo.ListExpired(ctx, cutoff)
	if err != nil {
		log.Printf("[MotionSettleJob] 查询到期动议失败: %v", err)
		return
	}

	for _, m := range motions {
		if err := j.settleOne(ctx, m.ID, now); err != nil {
			log.Printf("[MotionSettleJob] 定稿动议失败: motion=%d, err=%v", m.ID, err)
		}
	}

	j.refreshTallies(ctx)
}

// refreshTallies 把投票后计票有变动的动议推一条最新计票事件
func (j *MotionSettleJob) refreshTallies(ctx context.Context) {
	motions, err := j.motionRepo.ListNeedsUpdate(ctx)
	if err != nil {
		log.Printf("[MotionSettleJob] 查询待刷新动议失败: %v", err)
		return
	}

	for _, m := range motions {
		err := j.db.Transaction(func(tx *gorm.DB) error {
			motion, err := j.motionRepo.GetByIDForUpdate(ctx, tx, m.ID)
			if err != nil {
				return err
			}
			if motion.Settled() || !motion.NeedsUpdate {
				return nil
			}
			power, ok := motion.PowerRat()
			if !ok {
				return nil
			}
			votes, err := j.motionRepo.ListVotes(ctx, tx, motion.ID)
			if err != nil {
				return err
			}
			var yes, no int64
			for _, v := range votes {
				if v.Direction {
					yes += v.Amount
				} else {
					no += v.Amount
				}
			}
			if err := j.motionRepo.SetNeedsUpdate(ctx, tx, motion.ID, false); err != nil {
				return err
			}
			return enqueueEvent(ctx, tx, j.outboxRepo, j.cfg.Kafka.Topic.MotionUpdated, motion.ID, map[string]interface{}{
				"motion_id": motion.ID,
				"yes_votes": yes,
				"no_votes":  no,
				"passing":   ledger.IsWin(yes, no, power),
			})
		})
		if err != nil {
			log.Printf("[MotionSettleJob] 刷新动议计票失败: motion=%d, err=%v", m.ID, err)
		}
	}
}

func (j *MotionSettleJob) settleOne(ctx context.Context, motionID int64, now time.Time) error {
	return j.db.Transaction(func(tx *gorm.DB) error {
		motion, err := j.motionRepo.GetByIDForUpdate(ctx, tx, motionID)
		if err != nil {
			return err
		}
		// 锁内复查：并发投票可能刚翻转结果并重置了倒计时
		if motion.Settled() || !now.After(motion.EndAt(j.cfg.Business.MotionExpiration())) {
			return nil
		}
		power, ok := motion.PowerRat()
		if !ok {
			log.Printf("[MotionSettleJob] 动议权重非法，跳过: motion=%d, power=%s", motionID, motion.Power)
			return nil
		}

		votes, err := j.motionRepo.ListVotes(ctx, tx, motionID)
		if err != nil {
			return err
		}
		var yes, no int64
		for _, v := range votes {
			if v.Direction {
				yes += v.Amount
			} else {
				no += v.Amount
			}
		}
		passed := ledger.IsWin(yes, no, power)

		announcementID := idgen.NextID()
		if err := j.motionRepo.SetAnnouncement(ctx, tx, motionID, announcementID); err != nil {
			return err
		}

		log.Printf("[MotionSettleJob] 动议定稿: motion=%d, yes=%d, no=%d, power=%s, passed=%v",
			motionID, yes, no, motion.Power, passed)

		return enqueueEvent(ctx, tx, j.outboxRepo, j.cfg.Kafka.Topic.MotionSettled, motionID, map[string]interface{}{
			"motion_id": motionID,
			"yes_votes": yes,
			"no_votes":  no,
			"power":     motion.Power,
			"passed":    passed,
		})
	})
}
