package handler

import (
	"consortium/internal/config"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	// 创建处理器
	h := NewHandler(db, cfg)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 账本相关
		ledger := api.Group("/ledger")
		{
			ledger.GET("/balance", h.GetBalance)
			ledger.GET("/history", h.ListTransfers)
			ledger.GET("/currencies", h.ListCurrencies)
			ledger.POST("/give", h.Give)
			ledger.POST("/fabricate", h.Fabricate)
		}

		// 拍卖相关
		auction := api.Group("/auction")
		{
			auction.POST("/create", h.CreateAuction)
			auction.GET("/list", h.ListAuctions)
			auction.GET("/:id", h.GetAuction)
			auction.POST("/:id/bid", h.PlaceBid)
		}

		// 动议相关
		motion := api.Group("/motion")
		{
			motion.POST("/create", h.CreateMotion)
			motion.GET("/list", h.ListMotions)
			motion.GET("/:id", h.GetMotion)
			motion.POST("/:id/vote", h.CastVote)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
