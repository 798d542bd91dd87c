package model

import (
	"time"
)

// Auction 拍卖表
// current_winner / current_bid 不落库，由最新一条 AUCTION_RESERVE 流水推导；
// max_bid 是代理出价上限，可以高于当前公开价
type Auction struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt     time.Time `gorm:"autoCreateTime;not null" json:"created_at"`
	Auctioneer    *int64    `json:"auctioneer"` // 发起人，定时自动拍卖为空
	OfferCurrency string    `gorm:"type:varchar(16);not null" json:"offer_currency"`
	OfferAmount   int64     `gorm:"not null" json:"offer_amount"`
	BidCurrency   string    `gorm:"type:varchar(16);not null" json:"bid_currency"`
	BidMinimum    int64     `gorm:"not null" json:"bid_minimum"`
	Finished      bool      `gorm:"index;not null;default:false" json:"finished"`
	LastTimerBump time.Time `gorm:"not null" json:"last_timer_bump"` // 仅在领先者变化时重置（防狙击计时）
	MaxBidUser    *int64    `json:"max_bid_user"`
	MaxBidAmount  *int64    `json:"max_bid_amount"`
}

func (Auction) TableName() string {
	return "auction"
}

// EndAt 拍卖结束时刻：最后一次领先者变化 + 过期窗口
func (a *Auction) EndAt(expiration time.Duration) time.Time {
	return a.LastTimerBump.Add(expiration)
}

// CurrentMinBid 当前最低有效出价
// 已有人出价时必须高于当前公开价，否则为起拍价
func (a *Auction) CurrentMinBid(currentBid *int64) int64 {
	if currentBid != nil {
		return *currentBid + 1
	}
	return a.BidMinimum
}
