package model

import (
	"math/big"
	"time"
)

// Motion 动议表
// power 是"反对票权重"的十进制有理数：no*power < yes 时动议通过
// power=1 简单多数，power=2 约等于三分之二多数，power=0.5 放宽门槛
type Motion struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Text             string    `gorm:"type:varchar(1024);not null" json:"text"`
	Power            string    `gorm:"type:varchar(32);not null;default:1" json:"power"`
	MotionedBy       int64     `gorm:"index;not null" json:"motioned_by"`
	MotionedAt       time.Time `gorm:"not null" json:"motioned_at"`
	LastResultChange time.Time `gorm:"index;not null" json:"last_result_change"` // 通过/否决结果翻转时重置
	AnnouncementID   *int64    `json:"announcement_id"`                          // 结算公告的消息ID，非空即已定稿
	NeedsUpdate      bool      `gorm:"not null;default:false" json:"needs_update"`
}

func (Motion) TableName() string {
	return "motion"
}

// Settled 是否已结算定稿（定稿后不再接受投票）
func (m *Motion) Settled() bool {
	return m.AnnouncementID != nil
}

// EndAt 动议结算时刻：最后一次结果翻转 + 过期窗口
func (m *Motion) EndAt(expiration time.Duration) time.Time {
	return m.LastResultChange.Add(expiration)
}

// PowerRat 解析 power 为精确有理数
func (m *Motion) PowerRat() (*big.Rat, bool) {
	r, ok := new(big.Rat).SetString(m.Power)
	if !ok || r.Sign() <= 0 {
		return nil, false
	}
	return r, true
}

// MotionVote 动议投票表
// 每个 (动议, 用户) 一行，amount 累计；direction 一经选定不可更改
type MotionVote struct {
	MotionID  int64 `gorm:"primaryKey;autoIncrement:false" json:"motion_id"`
	UserID    int64 `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Direction bool  `gorm:"not null" json:"direction"` // true=赞成 false=反对
	Amount    int64 `gorm:"not null;default:0" json:"amount"`
}

func (MotionVote) TableName() string {
	return "motion_vote"
}
