package database

import (
	"fmt"
	"log"
	"time"

	"consortium/internal/config"
	"consortium/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitPostgres 初始化 PostgreSQL 连接
// 账本引擎依赖 Postgres 的行级锁和 LOCK TABLE ... IN EXCLUSIVE MODE
func InitPostgres(cfg *config.PostgresConfig) *gorm.DB {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Database,
		cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("连接 PostgreSQL 失败: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("获取底层 DB 失败: %v", err)
	}

	// 连接池配置
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	err = db.AutoMigrate(
		&model.Currency{},
		&model.Transfer{},
		&model.Auction{},
		&model.Motion{},
		&model.MotionVote{},
		&model.OutboxMessage{},
		&model.SchedulerState{},
	)
	if err != nil {
		log.Fatalf("自动迁移表结构失败: %v", err)
	}

	seedDefaults(db)

	DB = db
	log.Println("PostgreSQL 连接成功")
	return db
}

// seedDefaults 初始化默认货币与调度器状态行
func seedDefaults(db *gorm.DB) {
	currencies := []model.Currency{
		{Code: model.CurrencyCapital, SingularName: "political capital", PluralName: "political capital"},
		{Code: model.CurrencyGenerator, SingularName: "generator", PluralName: "generators"},
	}
	for i := range currencies {
		if err := db.Where("code = ?", currencies[i].Code).FirstOrCreate(&currencies[i]).Error; err != nil {
			log.Fatalf("初始化货币失败: %v", err)
		}
	}

	now := time.Now().UTC()
	state := model.SchedulerState{
		ID:               model.SchedulerStateID,
		LastGeneratorRun: now,
		LastAutoAuction:  now,
	}
	if err := db.Where("id = ?", model.SchedulerStateID).FirstOrCreate(&state).Error; err != nil {
		log.Fatalf("初始化调度器状态失败: %v", err)
	}
}
