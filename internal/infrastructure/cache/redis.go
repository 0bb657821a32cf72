package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"remitsystem/internal/config"

	"github.com/go-redis/redis/v8"
)

// KeyActiveSaleRate 当前生效挂牌汇率的缓存键
// 创建交易时优先读缓存，未命中回源数据库
const KeyActiveSaleRate = "rate:sale:active"

var RedisClient *redis.Client

func InitRedis(cfg *config.RedisConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("连接 Redis 失败: %v", err)
	}

	RedisClient = client
	log.Println("Redis 连接成功")
	return client
}
