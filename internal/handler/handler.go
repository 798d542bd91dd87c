package handler

import (
	"errors"
	"strconv"

	"consortium/internal/config"
	"consortium/internal/ledger"
	"consortium/internal/repository"
	"consortium/internal/service"
	"consortium/pkg/damm"
	"consortium/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	ledgerService  *service.LedgerService
	auctionService *service.AuctionService
	motionService  *service.MotionService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, cfg *config.Config) *Handler {
	return &Handler{
		ledgerService:  service.NewLedgerService(db),
		auctionService: service.NewAuctionService(db, cfg),
		motionService:  service.NewMotionService(db, cfg),
	}
}

// writeError 把业务错误翻译成响应码
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotEnough):
		response.BusinessError(c, response.CodeBalanceNotEnough, err.Error())
	case errors.Is(err, service.ErrUnknownScrip):
		response.BusinessError(c, response.CodeCurrencyUnknown, err.Error())
	case errors.Is(err, service.ErrBadQuantity), errors.Is(err, service.ErrSameUser),
		errors.Is(err, service.ErrMotionTooLong), errors.Is(err, service.ErrBadPower),
		errors.Is(err, service.ErrVoteNoDirection):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrAuctionFinished):
		response.BusinessError(c, response.CodeAuctionFinished, err.Error())
	case errors.Is(err, service.ErrMotionSettled):
		response.BusinessError(c, response.CodeMotionSettled, err.Error())
	case errors.Is(err, service.ErrMotionQuota):
		response.BusinessError(c, response.CodeMotionQuota, err.Error())
	case errors.Is(err, service.ErrVoteDirection):
		response.BusinessError(c, response.CodeVoteDirection, err.Error())
	case errors.Is(err, service.ErrVoteCostTooHigh), errors.Is(err, ledger.ErrOverflow):
		response.BusinessError(c, response.CodeAmountOverflow, err.Error())
	case errors.Is(err, repository.ErrAuctionNotFound):
		response.BusinessError(c, response.CodeAuctionNotFound, err.Error())
	case errors.Is(err, repository.ErrMotionNotFound):
		response.BusinessError(c, response.CodeMotionNotFound, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}

// publicID 对外展示编号：原始ID末尾带一位 Damm 校验位
func publicID(id int64) string {
	return damm.AddToInt64(id)
}

// parsePublicID 解析展示编号，校验位不对直接拒绝
func parsePublicID(c *gin.Context, param string) (int64, bool) {
	id, ok := damm.ValidateInt64(c.Param(param))
	if !ok {
		response.ParamError(c, param+" 编号校验失败")
		return 0, false
	}
	return id, true
}

// ============================================================
// 账本相关接口
// ============================================================

// GetBalance 查询余额
// GET /api/v1/ledger/balance?user_id=xxx&currency=pc
func (h *Handler) GetBalance(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "user_id 参数错误")
		return
	}
	currency := c.DefaultQuery("currency", "pc")

	balance, err := h.ledgerService.GetBalance(c.Request.Context(), userID, currency)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"user_id":  userID,
		"currency": currency,
		"balance":  balance,
	})
}

// GiveRequest 转账请求
// admin 为管理员代转；message_id 关联外部聊天平台的消息
type GiveRequest struct {
	FromUser  int64  `json:"from_user" binding:"required"`
	ToUser    int64  `json:"to_user" binding:"required"`
	Currency  string `json:"currency" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
	Comment   string `json:"comment"`
	Admin     bool   `json:"admin"`
	MessageID *int64 `json:"message_id"`
}

// Give 用户间转账
// POST /api/v1/ledger/give
func (h *Handler) Give(c *gin.Context) {
	var req GiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	err := h.ledgerService.Give(c.Request.Context(), &service.GiveRequest{
		FromUser:  req.FromUser,
		ToUser:    req.ToUser,
		Currency:  req.Currency,
		Quantity:  req.Quantity,
		Comment:   req.Comment,
		Admin:     req.Admin,
		MessageID: req.MessageID,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"message": "转账成功",
	})
}

// FabricateRequest 铸造请求（管理接口）
type FabricateRequest struct {
	ToUser   int64  `json:"to_user" binding:"required"`
	Currency string `json:"currency" binding:"required"`
	Quantity int64  `json:"quantity" binding:"required,gt=0"`
	Comment  string `json:"comment"`
}

// Fabricate 凭空铸造货币
// POST /api/v1/ledger/fabricate
func (h *Handler) Fabricate(c *gin.Context) {
	var req FabricateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	err := h.ledgerService.Fabricate(c.Request.Context(), req.ToUser, req.Currency, req.Quantity, req.Comment)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"message": "铸造成功",
	})
}

// ListTransfers 查询用户流水
// GET /api/v1/ledger/history?user_id=xxx&currency=pc&page=1&page_size=10
func (h *Handler) ListTransfers(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "user_id 参数错误")
		return
	}
	currency := c.DefaultQuery("currency", "pc")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	transfers, total, err := h.ledgerService.ListTransfers(c.Request.Context(), userID, currency, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      transfers,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ListCurrencies 货币列表
// GET /api/v1/ledger/currencies
func (h *Handler) ListCurrencies(c *gin.Context) {
	currencies, err := h.ledgerService.ListCurrencies(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, currencies)
}

// ============================================================
// 拍卖相关接口
// ============================================================

// CreateAuctionRequest 创建拍卖请求
type CreateAuctionRequest struct {
	Auctioneer    *int64 `json:"auctioneer"`
	OfferCurrency string `json:"offer_currency" binding:"required"`
	OfferAmount   int64  `json:"offer_amount" binding:"required,gt=0"`
	BidCurrency   string `json:"bid_currency" binding:"required"`
	BidMinimum    int64  `json:"bid_minimum" binding:"required,gt=0"`
}

// CreateAuction 创建拍卖
// POST /api/v1/auction/create
func (h *Handler) CreateAuction(c *gin.Context) {
	var req CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	auction, err := h.auctionService.CreateAuction(c.Request.Context(), &service.CreateAuctionRequest{
		Auctioneer:    req.Auctioneer,
		OfferCurrency: req.OfferCurrency,
		OfferAmount:   req.OfferAmount,
		BidCurrency:   req.BidCurrency,
		BidMinimum:    req.BidMinimum,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"auction_id": publicID(auction.ID),
		"offer":      gin.H{"currency": auction.OfferCurrency, "amount": auction.OfferAmount},
		"bid":        gin.H{"currency": auction.BidCurrency, "minimum": auction.BidMinimum},
	})
}

// PlaceBidRequest 出价请求
// is_max_bid=true 时 amount 是心理上限，否则是直接抬到的公开价
type PlaceBidRequest struct {
	UserID   int64 `json:"user_id" binding:"required"`
	Amount   int64 `json:"amount" binding:"required,gt=0"`
	IsMaxBid bool  `json:"is_max_bid"`
}

// PlaceBid 出价
// POST /api/v1/auction/:id/bid
func (h *Handler) PlaceBid(c *gin.Context) {
	auctionID, ok := parsePublicID(c, "id")
	if !ok {
		return
	}
	var req PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	outcome, err := h.auctionService.PlaceBid(c.Request.Context(), auctionID, req.UserID, req.Amount, req.IsMaxBid)
	if err != nil {
		writeError(c, err)
		return
	}
	if !outcome.Accepted {
		response.BusinessError(c, response.CodeBidTooLow, outcome.Reason)
		return
	}

	response.Success(c, outcome)
}

// GetAuction 拍卖详情
// GET /api/v1/auction/:id
func (h *Handler) GetAuction(c *gin.Context) {
	auctionID, ok := parsePublicID(c, "id")
	if !ok {
		return
	}

	auction, lastReserve, err := h.auctionService.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		writeError(c, err)
		return
	}

	data := gin.H{
		"auction_id":      publicID(auction.ID),
		"offer_currency":  auction.OfferCurrency,
		"offer_amount":    auction.OfferAmount,
		"bid_currency":    auction.BidCurrency,
		"bid_minimum":     auction.BidMinimum,
		"finished":        auction.Finished,
		"last_timer_bump": auction.LastTimerBump,
	}
	if lastReserve != nil {
		data["current_winner"] = *lastReserve.FromUser
		data["current_bid"] = lastReserve.Quantity
	}
	response.Success(c, data)
}

// ListAuctions 拍卖列表
// GET /api/v1/auction/list?page=1&page_size=10
func (h *Handler) ListAuctions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	auctions, total, err := h.auctionService.ListAuctions(c.Request.Context(), page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	list := make([]gin.H, 0, len(auctions))
	for _, a := range auctions {
		list = append(list, gin.H{
			"auction_id":     publicID(a.ID),
			"offer_currency": a.OfferCurrency,
			"offer_amount":   a.OfferAmount,
			"bid_currency":   a.BidCurrency,
			"bid_minimum":    a.BidMinimum,
			"finished":       a.Finished,
		})
	}
	response.Success(c, gin.H{
		"list":      list,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 动议相关接口
// ============================================================

// CreateMotionRequest 发起动议请求
type CreateMotionRequest struct {
	Proposer int64  `json:"proposer" binding:"required"`
	Text     string `json:"text" binding:"required"`
	Power    string `json:"power"`
}

// CreateMotion 发起动议
// POST /api/v1/motion/create
func (h *Handler) CreateMotion(c *gin.Context) {
	var req CreateMotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	motion, err := h.motionService.CreateMotion(c.Request.Context(), &service.CreateMotionRequest{
		Proposer: req.Proposer,
		Text:     req.Text,
		Power:    req.Power,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"motion_id": publicID(motion.ID),
		"power":     motion.Power,
	})
}

// CastVoteRequest 投票请求
// 已投过票的用户可省略 direction，沿用上次的方向
type CastVoteRequest struct {
	UserID    int64  `json:"user_id" binding:"required"`
	Direction string `json:"direction" binding:"omitempty,oneof=yes no"`
	Count     int64  `json:"count" binding:"required,gt=0"`
}

// CastVote 购买选票
// POST /api/v1/motion/:id/vote
func (h *Handler) CastVote(c *gin.Context) {
	motionID, ok := parsePublicID(c, "id")
	if !ok {
		return
	}
	var req CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	var direction *bool
	if req.Direction != "" {
		yes := req.Direction == "yes"
		direction = &yes
	}
	outcome, err := h.motionService.CastVote(c.Request.Context(), motionID, req.UserID, direction, req.Count)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, outcome)
}

// GetMotion 动议详情与计票
// GET /api/v1/motion/:id
func (h *Handler) GetMotion(c *gin.Context) {
	motionID, ok := parsePublicID(c, "id")
	if !ok {
		return
	}

	motion, yes, no, err := h.motionService.GetMotion(c.Request.Context(), motionID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"motion_id":          publicID(motion.ID),
		"text":               motion.Text,
		"power":              motion.Power,
		"motioned_by":        motion.MotionedBy,
		"motioned_at":        motion.MotionedAt,
		"last_result_change": motion.LastResultChange,
		"settled":            motion.Settled(),
		"yes_votes":          yes,
		"no_votes":           no,
	})
}

// ListMotions 动议列表
// GET /api/v1/motion/list?page=1&page_size=10
func (h *Handler) ListMotions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	motions, total, err := h.motionService.ListMotions(c.Request.Context(), page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	list := make([]gin.H, 0, len(motions))
	for _, m := range motions {
		list = append(list, gin.H{
			"motion_id":   publicID(m.ID),
			"text":        m.Text,
			"power":       m.Power,
			"motioned_by": m.MotionedBy,
			"settled":     m.Settled(),
		})
	}
	response.Success(c, gin.H{
		"list":      list,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
