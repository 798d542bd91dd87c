package model

import (
	"time"
)

// SchedulerState 调度器状态表（单行）
// 定时任务每轮从库里读基线而不是依赖进程内记忆，崩溃重启后可以安全续跑
type SchedulerState struct {
	ID               int64     `gorm:"primaryKey" json:"id"`
	LastGeneratorRun time.Time `gorm:"not null" json:"last_generator_run"` // 上次发电机产出的基线时刻
	LastAutoAuction  time.Time `gorm:"not null" json:"last_auto_auction"`  // 上次自动拍卖的基线时刻
}

func (SchedulerState) TableName() string {
	return "scheduler_state"
}

const SchedulerStateID int64 = 1
