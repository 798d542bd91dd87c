package service

import (
	"context"
	"errors"
	"log"
	"time"

	"consortium/internal/config"
	"consortium/internal/ledger"
	"consortium/internal/model"
	"consortium/internal/repository"

	"gorm.io/gorm"
)

var ErrAuctionFinished = errors.New("拍卖已结束")

// AuctionService 代理出价拍卖
//
// 出价分两种：普通出价直接把公开价抬到出价额；代理出价提交的是心理上限
// （max bid），公开价只涨到压过对手所需的最低程度。领先者的公开价资金以
// AUCTION_RESERVE 流水冻结在账本里，被超价时以 AUCTION_REFUND 退还，
// 当前公开价由最新一条冻结流水推导
type AuctionService struct {
	db           *gorm.DB
	cfg          *config.Config
	auctionRepo  *repository.AuctionRepository
	transferRepo *repository.TransferRepository
	currencyRepo *repository.CurrencyRepository
	outboxRepo   *repository.OutboxRepository
}

func NewAuctionService(db *gorm.DB, cfg *config.Config) *AuctionService {
	return &AuctionService{
		db:           db,
		cfg:          cfg,
		auctionRepo:  repository.NewAuctionRepository(db),
		transferRepo: repository.NewTransferRepository(db),
		currencyRepo: repository.NewCurrencyRepository(db),
		outboxRepo:   repository.NewOutboxRepository(db),
	}
}

// CreateAuctionRequest 创建拍卖请求
// 有 auctioneer 的拍卖在创建时从其账上扣走标的，落槌时发放给胜者；
// auctioneer 为 nil 的系统拍卖不扣任何人，标的在落槌时凭空发放
type CreateAuctionRequest struct {
	Auctioneer    *int64
	OfferCurrency string
	OfferAmount   int64
	BidCurrency   string
	BidMinimum    int64
}

func (s *AuctionService) CreateAuction(ctx context.Context, req *CreateAuctionRequest) (*model.Auction, error) {
	if req.OfferAmount < 1 || req.BidMinimum < 1 {
		return nil, ErrBadQuantity
	}
	for _, code := range []string{req.OfferCurrency, req.BidCurrency} {
		if _, err := s.currencyRepo.GetByCode(ctx, code); err != nil {
			if errors.Is(err, repository.ErrCurrencyNotFound) {
				return nil, ErrUnknownScrip
			}
			return nil, err
		}
	}

	auction := &model.Auction{
		Auctioneer:    req.Auctioneer,
		OfferCurrency: req.OfferCurrency,
		OfferAmount:   req.OfferAmount,
		BidCurrency:   req.BidCurrency,
		BidMinimum:    req.BidMinimum,
		LastTimerBump: time.Now().UTC(),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.auctionRepo.Create(ctx, tx, auction); err != nil {
			return err
		}
		if auction.Auctioneer != nil {
			deposit := ledger.NewBuilder(auction.OfferAmount, auction.OfferCurrency, auction.LastTimerBump).
				AuctionCreate(*auction.Auctioneer, auction.ID)
			if err := ledger.Single(ctx, tx, deposit); err != nil {
				return err
			}
		}
		return enqueueOutboxEvent(ctx, tx, s.outboxRepo, s.cfg.Kafka.Topic.AuctionCreated, auction.ID, map[string]interface{}{
			"auction_id":     auction.ID,
			"offer_currency": auction.OfferCurrency,
			"offer_amount":   auction.OfferAmount,
			"bid_currency":   auction.BidCurrency,
			"bid_minimum":    auction.BidMinimum,
		})
	})
	if err != nil {
		if errors.Is(err, ledger.ErrNotEnough) {
			return nil, ErrNotEnough
		}
		return nil, err
	}

	log.Printf("拍卖创建成功: id=%d, offer=%d %s, min_bid=%d %s",
		auction.ID, auction.OfferAmount, auction.OfferCurrency, auction.BidMinimum, auction.BidCurrency)
	return auction, nil
}

// BidOutcome 出价结果
// Accepted=false 时 Reason 说明拒绝原因，账本无任何变化
type BidOutcome struct {
	Accepted      bool   `json:"accepted"`
	Reason        string `json:"reason,omitempty"`
	CurrentWinner int64  `json:"current_winner"`
	CurrentPrice  int64  `json:"current_price"`
	BecameWinner  bool   `json:"became_winner"`
	TimerBumped   bool   `json:"timer_bumped"`
}

// PlaceBid 出价
// 整个决策在一个事务内完成：锁拍卖行，推导当前公开价，为挑战者与
// 在位领先者建余额缓存，套用代理出价决策，最后按需退款、冻结、更新状态
func (s *AuctionService) PlaceBid(ctx context.Context, auctionID, bidder, amount int64, isMaxBid bool) (*BidOutcome, error) {
	if amount < 1 {
		return nil, ErrBadQuantity
	}

	now := time.Now().UTC()
	var outcome *BidOutcome

	err := s.db.Transaction(func(tx *gorm.DB) error {
		auction, err := s.auctionRepo.GetByIDForUpdate(ctx, tx, auctionID)
		if err != nil {
			return err
		}
		if auction.Finished || now.After(auction.EndAt(s.cfg.Business.AuctionExpiration())) {
			return ErrAuctionFinished
		}

		lastReserve, err := s.transferRepo.LastReserve(ctx, tx, auctionID)
		if err != nil {
			return err
		}

		st := bidState{MinimumBid: auction.BidMinimum}
		if lastReserve != nil {
			st.CurrentWinner = lastReserve.FromUser
			bid := lastReserve.Quantity
			st.CurrentBid = &bid
		}
		st.MaxBidUser = auction.MaxBidUser
		st.MaxBidAmount = auction.MaxBidAmount

		// 加锁名单：挑战者 + 在位领先者（退款、对比上限都要动他的余额）
		users := []int64{bidder}
		if st.CurrentWinner != nil {
			users = append(users, *st.CurrentWinner)
		}
		handle, err := ledger.New(ctx, tx, users, []string{auction.BidCurrency})
		if err != nil {
			return err
		}

		st.ChallengerAvailable = available(handle, auction.BidCurrency, bidder, st.CurrentWinner, st.CurrentBid)
		if st.MaxBidUser != nil {
			st.MaxAvailable = available(handle, auction.BidCurrency, *st.MaxBidUser, st.CurrentWinner, st.CurrentBid)
		}

		decision := resolveBid(&st, bidder, amount, isMaxBid)
		if !decision.Accepted {
			outcome = &BidOutcome{Accepted: false, Reason: decision.Reason}
			if st.CurrentWinner != nil {
				outcome.CurrentWinner = *st.CurrentWinner
				outcome.CurrentPrice = *st.CurrentBid
			}
			return nil
		}

		// (领先者, 公开价) 对变化时才动账本：退旧冻结、立新冻结
		pairChanged := st.CurrentWinner == nil ||
			*st.CurrentWinner != decision.Winner || *st.CurrentBid != decision.Price
		if pairChanged {
			if st.CurrentWinner != nil {
				refund := ledger.NewBuilder(*st.CurrentBid, auction.BidCurrency, now).
					AuctionRefund(*st.CurrentWinner, auctionID)
				if err := handle.Transfer(ctx, refund); err != nil {
					return err
				}
			}
			reserve := ledger.NewBuilder(decision.Price, auction.BidCurrency, now).
				AuctionReserve(decision.Winner, auctionID)
			if err := handle.Transfer(ctx, reserve); err != nil {
				return err
			}
		}

		timerBump := auction.LastTimerBump
		if decision.WinnerChanged {
			timerBump = now
		}
		if err := s.auctionRepo.UpdateBidState(ctx, tx, auctionID, timerBump, decision.MaxUser, decision.MaxAmount); err != nil {
			return err
		}

		outcome = &BidOutcome{
			Accepted:      true,
			CurrentWinner: decision.Winner,
			CurrentPrice:  decision.Price,
			BecameWinner:  decision.Winner == bidder,
			TimerBumped:   decision.WinnerChanged,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if outcome.Accepted {
		log.Printf("出价处理完成: auction=%d, bidder=%d, winner=%d, price=%d, bumped=%v",
			auctionID, bidder, outcome.CurrentWinner, outcome.CurrentPrice, outcome.TimerBumped)
	}
	return outcome, nil
}

func (s *AuctionService) GetAuction(ctx context.Context, id int64) (*model.Auction, *model.Transfer, error) {
	auction, err := s.auctionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	lastReserve, err := s.transferRepo.LastReserve(ctx, s.db, id)
	if err != nil {
		return nil, nil, err
	}
	return auction, lastReserve, nil
}

func (s *AuctionService) ListAuctions(ctx context.Context, page, pageSize int) ([]*model.Auction, int64, error) {
	return s.auctionRepo.List(ctx, page, pageSize)
}

// available 可支配资金 = 余额 + 本人已冻结的公开价（冻结可随新冻结原子置换）
func available(handle *ledger.Handler, currency string, user int64, currentWinner, currentBid *int64) int64 {
	balance, ok := handle.Balance(user, currency)
	if !ok {
		return 0
	}
	if currentWinner != nil && *currentWinner == user {
		balance += *currentBid
	}
	return balance
}

// ============================================================================
// 代理出价决策
// ============================================================================

// bidState 决策所需的全部事实，调用方在锁内收集
type bidState struct {
	MinimumBid          int64
	CurrentWinner       *int64 // 最新冻结流水的出资人
	CurrentBid          *int64 // 最新冻结流水的数额，即当前公开价
	MaxBidUser          *int64
	MaxBidAmount        *int64
	MaxAvailable        int64 // 在位上限持有者此刻的可支配资金
	ChallengerAvailable int64
}

type bidDecision struct {
	Accepted      bool
	Reason        string
	Winner        int64
	Price         int64
	MaxUser       *int64 // nil 表示场上不再有代理上限
	MaxAmount     *int64
	WinnerChanged bool
}

// resolveBid 出价决策表，纯函数
//
// 普通出价（isMaxBid=false）直接把公开价抬到出价额，不留代理上限；
// 代理出价与在位者的（按资金收缩后的）上限比较：
//   - 出价 <= 在位者上限：在位者继续领先，公开价涨到出价额
//   - 出价 >  在位者上限：挑战者领先，代理价时公开价 = 在位者上限 + 1
//
// 平局归在位者。领先者身份变化才重置防狙击计时
func resolveBid(st *bidState, challenger, bid int64, isMaxBid bool) bidDecision {
	minBid := st.MinimumBid
	if st.CurrentBid != nil {
		minBid = *st.CurrentBid + 1
	}
	if bid < minBid {
		return bidDecision{Reason: "出价低于当前最低有效价"}
	}

	// 资金检查必须先于与在位上限的比较：否则付不起的出价仍会顶高公开价
	if bid > st.ChallengerAvailable {
		return bidDecision{Reason: "余额不足"}
	}

	if st.MaxBidUser != nil {
		maxUser := *st.MaxBidUser
		attempted := *st.MaxBidAmount

		// 上限持有者的资金可能已不足以兑现其上限
		clampedMax := attempted
		if clampedMax > st.MaxAvailable {
			clampedMax = st.MaxAvailable
		}

		switch {
		case challenger == maxUser:
			if isMaxBid {
				// 重设自己的代理上限：公开价与计时都不动
				return bidDecision{
					Accepted:  true,
					Winner:    maxUser,
					Price:     *st.CurrentBid,
					MaxUser:   &maxUser,
					MaxAmount: &bid,
				}
			}
			// 领先者亲自抬高公开价，代理上限保持原状
			return bidDecision{
				Accepted:  true,
				Winner:    maxUser,
				Price:     bid,
				MaxUser:   &maxUser,
				MaxAmount: &attempted,
			}
		case bid <= clampedMax:
			// 在位者的代理自动跟到挑战者的出价额
			return bidDecision{
				Accepted:  true,
				Winner:    maxUser,
				Price:     bid,
				MaxUser:   &maxUser,
				MaxAmount: &attempted,
			}
		case isMaxBid:
			price := clampedMax + 1
			return bidDecision{
				Accepted:      true,
				Winner:        challenger,
				Price:         price,
				MaxUser:       &challenger,
				MaxAmount:     &bid,
				WinnerChanged: true,
			}
		default:
			return bidDecision{
				Accepted:      true,
				Winner:        challenger,
				Price:         bid,
				WinnerChanged: true,
			}
		}
	}

	if st.CurrentWinner != nil {
		// 场上是一笔普通出价，没有代理上限可应价
		if isMaxBid {
			if challenger == *st.CurrentWinner {
				return bidDecision{
					Accepted:  true,
					Winner:    challenger,
					Price:     *st.CurrentBid,
					MaxUser:   &challenger,
					MaxAmount: &bid,
				}
			}
			price := *st.CurrentBid + 1
			return bidDecision{
				Accepted:      true,
				Winner:        challenger,
				Price:         price,
				MaxUser:       &challenger,
				MaxAmount:     &bid,
				WinnerChanged: true,
			}
		}
		return bidDecision{
			Accepted:      true,
			Winner:        challenger,
			Price:         bid,
			WinnerChanged: challenger != *st.CurrentWinner,
		}
	}

	// 首次出价：代理价停在起拍价，普通出价直接落在出价额
	if isMaxBid {
		return bidDecision{
			Accepted:      true,
			Winner:        challenger,
			Price:         st.MinimumBid,
			MaxUser:       &challenger,
			MaxAmount:     &bid,
			WinnerChanged: true,
		}
	}
	return bidDecision{
		Accepted:      true,
		Winner:        challenger,
		Price:         bid,
		WinnerChanged: true,
	}
}
