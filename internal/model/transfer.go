package model

import (
	"time"
)

// ============================================================================
// 转账类型常量
// ============================================================================

const (
	TransferTypeGive           = "GIVE"            // 用户间转账
	TransferTypeAdminGive      = "ADMIN_GIVE"      // 管理员代为转账
	TransferTypeFabricate      = "ADMIN_FABRICATE" // 管理员凭空铸造
	TransferTypeGenerated      = "GENERATED"       // 发电机定期产出
	TransferTypeMotionCreate   = "MOTION_CREATE"   // 发起动议
	TransferTypeMotionVote     = "MOTION_VOTE"     // 购买动议选票
	TransferTypeAuctionCreate  = "AUCTION_CREATE"  // 创建拍卖
	TransferTypeAuctionReserve = "AUCTION_RESERVE" // 出价冻结资金
	TransferTypeAuctionRefund  = "AUCTION_REFUND"  // 被超价后退还资金
	TransferTypeAuctionPayout  = "AUCTION_PAYOUT"  // 拍卖结算发放标的
)

// TransferSides 每种转账类型要求哪些参与方
// 至少有一方存在；只有入账方的类型等价于铸造货币
type TransferSides struct {
	NeedsFrom bool
	NeedsTo   bool
}

var transferSides = map[string]TransferSides{
	TransferTypeGive:           {NeedsFrom: true, NeedsTo: true},
	TransferTypeAdminGive:      {NeedsFrom: true, NeedsTo: true},
	TransferTypeFabricate:      {NeedsFrom: false, NeedsTo: true},
	TransferTypeGenerated:      {NeedsFrom: false, NeedsTo: true},
	TransferTypeMotionCreate:   {NeedsFrom: true, NeedsTo: false},
	TransferTypeMotionVote:     {NeedsFrom: true, NeedsTo: false},
	TransferTypeAuctionCreate:  {NeedsFrom: true, NeedsTo: false},
	TransferTypeAuctionReserve: {NeedsFrom: true, NeedsTo: false},
	TransferTypeAuctionRefund:  {NeedsFrom: false, NeedsTo: true},
	TransferTypeAuctionPayout:  {NeedsFrom: false, NeedsTo: true},
}

// SidesOf 返回转账类型的参与方要求，未知类型返回 false
func SidesOf(transferType string) (TransferSides, bool) {
	sides, ok := transferSides[transferType]
	return sides, ok
}

// NeedsMotion 该类型是否必须携带动议信息（动议ID+票数）
func NeedsMotion(transferType string) bool {
	return transferType == TransferTypeMotionCreate || transferType == TransferTypeMotionVote
}

// NeedsAuction 该类型是否必须携带拍卖ID
func NeedsAuction(transferType string) bool {
	switch transferType {
	case TransferTypeAuctionCreate, TransferTypeAuctionReserve,
		TransferTypeAuctionRefund, TransferTypeAuctionPayout:
		return true
	}
	return false
}

// ============================================================================
// 账本流水实体
// ============================================================================

// Transfer 账本流水表
// 余额不单独存储，完全由每个 (用户, 货币) 最新一条流水上的余额快照推导
//
// 【重要】流水表设计原则：
// 1. 只追加，不修改，不删除 —— 余额永远可以重放校验
// 2. 每条流水同时记录转出方与转入方的交易后余额快照
// 3. 排序按 (happened_at, id)；同一条流水既扣又入同一用户时，
//    以入账快照 to_balance 为最新（对应扣减在前、入账在后的计算顺序）
type Transfer struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TransferNo  string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"transfer_no"` // 流水号（全局唯一）
	Currency    string    `gorm:"type:varchar(16);index:idx_transfer_party;not null" json:"currency"`
	FromUser    *int64    `gorm:"index:idx_transfer_party,priority:2" json:"from_user"` // 转出方，铸造类流水为空
	ToUser      *int64    `gorm:"index:idx_transfer_party,priority:3" json:"to_user"`   // 转入方，扣款类流水为空
	Quantity    int64     `gorm:"not null" json:"quantity"`                             // 数量，恒为正
	FromBalance *int64    `json:"from_balance"`                                         // 转出方交易后余额快照
	ToBalance   *int64    `json:"to_balance"`                                           // 转入方交易后余额快照
	Type        string    `gorm:"type:varchar(20);not null" json:"type"`                // 转账类型
	MotionID    *int64    `gorm:"index" json:"motion_id"`                               // 动议类流水：动议ID
	VoteCount   *int64    `json:"vote_count"`                                           // 动议类流水：票数
	AuctionID   *int64    `gorm:"index" json:"auction_id"`                              // 拍卖类流水：拍卖ID
	Comment     *string   `gorm:"type:varchar(256)" json:"comment"`                     // 备注
	MessageID   *int64    `json:"message_id"`                                           // 外部聊天平台消息ID
	HappenedAt  time.Time `gorm:"index;not null" json:"happened_at"`
}

func (Transfer) TableName() string {
	return "transfer"
}

// BalanceFor 返回该条流水中 user 的交易后余额快照
// user 既是转出方又是转入方时返回入账快照（最终余额）
func (t *Transfer) BalanceFor(user int64) (int64, bool) {
	if t.ToUser != nil && *t.ToUser == user && t.ToBalance != nil {
		return *t.ToBalance, true
	}
	if t.FromUser != nil && *t.FromUser == user && t.FromBalance != nil {
		return *t.FromBalance, true
	}
	return 0, false
}
