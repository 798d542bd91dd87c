package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type PostgresConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SSLMode      string `mapstructure:"ssl_mode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	AuctionCreated string `mapstructure:"auction_created"`
	AuctionSettled string `mapstructure:"auction_settled"`
	MotionCreated  string `mapstructure:"motion_created"`
	MotionUpdated  string `mapstructure:"motion_updated"`
	MotionSettled  string `mapstructure:"motion_settled"`
}

// BusinessConfig 社区账本的业务参数
type BusinessConfig struct {
	VoteBaseCost             int64 `mapstructure:"vote_base_cost"`              // 首张选票成本，发起动议也收这个价
	MaxMotionsPerDay         int64 `mapstructure:"max_motions_per_day"`         // 每人每UTC日最多发起的动议数
	MaxMotionLength          int   `mapstructure:"max_motion_length"`           // 动议文本长度上限（码点）
	MotionExpirationHours    int   `mapstructure:"motion_expiration_hours"`     // 结果翻转后多久无再翻转即定稿
	AuctionExpirationHours   int   `mapstructure:"auction_expiration_hours"`    // 领先者变化后多久无新领先者即落槌
	GeneratorIntervalHours   int   `mapstructure:"generator_interval_hours"`    // 发电机产出周期
	AutoAuctionIntervalHours int   `mapstructure:"auto_auction_interval_hours"` // 自动拍卖周期
	MaxRetryCount            int   `mapstructure:"max_retry_count"`
}

func (b *BusinessConfig) MotionExpiration() time.Duration {
	return time.Duration(b.MotionExpirationHours) * time.Hour
}

func (b *BusinessConfig) AuctionExpiration() time.Duration {
	return time.Duration(b.AuctionExpirationHours) * time.Hour
}

func (b *BusinessConfig) GeneratorInterval() time.Duration {
	return time.Duration(b.GeneratorIntervalHours) * time.Hour
}

func (b *BusinessConfig) AutoAuctionInterval() time.Duration {
	return time.Duration(b.AutoAuctionIntervalHours) * time.Hour
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	GlobalConfig = config
	return config
}
