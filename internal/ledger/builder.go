package ledger

import (
	"errors"
	"fmt"
	"time"

	"consortium/internal/model"
)

var (
	ErrNotEnough = errors.New("余额不足")
	ErrOverflow  = errors.New("数额溢出")
)

// Builder 描述一笔待执行的转账：goroutine 构造完毕后交给 Handler 落库
// 转账类型与参与方、附加信息的匹配关系在执行前统一校验
type Builder struct {
	currency     string
	quantity     int64
	happenedAt   time.Time
	source       *int64
	dest         *int64
	transferType string
	motionID     *int64
	voteCount    *int64
	auctionID    *int64
	messageID    *int64
	comment      *string
}

func NewBuilder(quantity int64, currency string, happenedAt time.Time) *Builder {
	return &Builder{
		currency:   currency,
		quantity:   quantity,
		happenedAt: happenedAt,
	}
}

// Give 用户间转账；admin 为管理员代转
func (b *Builder) Give(source, dest int64, admin bool) *Builder {
	b.source = &source
	b.dest = &dest
	if admin {
		b.transferType = model.TransferTypeAdminGive
	} else {
		b.transferType = model.TransferTypeGive
	}
	return b
}

// Motion 动议扣款；create 为发起动议，否则为购票
func (b *Builder) Motion(source, motionID, voteCount int64, create bool) *Builder {
	b.source = &source
	b.motionID = &motionID
	b.voteCount = &voteCount
	if create {
		b.transferType = model.TransferTypeMotionCreate
	} else {
		b.transferType = model.TransferTypeMotionVote
	}
	return b
}

// Fabricate 凭空铸造；generated 为发电机产出，否则为管理员操作
func (b *Builder) Fabricate(dest int64, generated bool) *Builder {
	b.dest = &dest
	if generated {
		b.transferType = model.TransferTypeGenerated
	} else {
		b.transferType = model.TransferTypeFabricate
	}
	return b
}

// AuctionCreate 发起人押入标的：创建拍卖时从其账上扣走拍品
func (b *Builder) AuctionCreate(source, auctionID int64) *Builder {
	b.source = &source
	b.auctionID = &auctionID
	b.transferType = model.TransferTypeAuctionCreate
	return b
}

// AuctionReserve 冻结出价资金：领先者的出价以扣款形式保留在流水里
func (b *Builder) AuctionReserve(source, auctionID int64) *Builder {
	b.source = &source
	b.auctionID = &auctionID
	b.transferType = model.TransferTypeAuctionReserve
	return b
}

// AuctionRefund 退还被超价者的冻结资金
func (b *Builder) AuctionRefund(dest, auctionID int64) *Builder {
	b.dest = &dest
	b.auctionID = &auctionID
	b.transferType = model.TransferTypeAuctionRefund
	return b
}

// AuctionPayout 拍卖结算，向胜者发放标的
func (b *Builder) AuctionPayout(dest, auctionID int64) *Builder {
	b.dest = &dest
	b.auctionID = &auctionID
	b.transferType = model.TransferTypeAuctionPayout
	return b
}

func (b *Builder) MessageID(messageID int64) *Builder {
	b.messageID = &messageID
	return b
}

func (b *Builder) Comment(comment string) *Builder {
	b.comment = &comment
	return b
}

// Validate 校验转账类型、参与方与附加信息是否匹配
func (b *Builder) Validate() error {
	if b.quantity < 0 {
		return fmt.Errorf("转账数量不能为负: %d", b.quantity)
	}
	if b.currency == "" {
		return errors.New("转账缺少货币类型")
	}
	if b.transferType == "" {
		return errors.New("转账缺少类型")
	}
	sides, ok := model.SidesOf(b.transferType)
	if !ok {
		return fmt.Errorf("未知的转账类型: %s", b.transferType)
	}
	if sides.NeedsFrom != (b.source != nil) {
		return fmt.Errorf("转账类型 %s 的转出方设置不匹配", b.transferType)
	}
	if sides.NeedsTo != (b.dest != nil) {
		return fmt.Errorf("转账类型 %s 的转入方设置不匹配", b.transferType)
	}
	if model.NeedsMotion(b.transferType) != (b.motionID != nil && b.voteCount != nil) {
		return fmt.Errorf("转账类型 %s 的动议信息设置不匹配", b.transferType)
	}
	if model.NeedsAuction(b.transferType) != (b.auctionID != nil) {
		return fmt.Errorf("转账类型 %s 的拍卖信息设置不匹配", b.transferType)
	}
	return nil
}

// Parties 返回该笔转账涉及的用户（用于单笔转账建缓存）
func (b *Builder) Parties() []int64 {
	var users []int64
	if b.source != nil {
		users = append(users, *b.source)
	}
	if b.dest != nil {
		users = append(users, *b.dest)
	}
	return users
}

func (b *Builder) CurrencyCode() string {
	return b.currency
}
