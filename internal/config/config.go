package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
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
	TransactionCompleted string `mapstructure:"transaction_completed"`
	SettlementRecorded   string `mapstructure:"settlement_recorded"`
}

type BusinessConfig struct {
	EditWindowMinutes      int     `mapstructure:"edit_window_minutes"`     // 交易创建/编辑后的可编辑窗口
	RateCacheSeconds       int     `mapstructure:"rate_cache_seconds"`      // 挂牌汇率在 Redis 中的缓存时长
	DefaultCommissionDest  float64 `mapstructure:"default_commission_dest"` // 目的国商户默认佣金比例
	DefaultCommissionOrig  float64 `mapstructure:"default_commission_orig"` // 来源国商户默认佣金比例
	MaxRetryCount          int     `mapstructure:"max_retry_count"`         // 发件箱消息最大重试次数
	RateRefreshIntervalSec int     `mapstructure:"rate_refresh_interval_sec"`
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
