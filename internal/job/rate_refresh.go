package job

import (
	"context"
	"errors"
	"log"
	"time"

	"remitsystem/internal/config"
	"remitsystem/internal/repository"
	"remitsystem/internal/service"
)

// RateRefreshJob 周期性把当前挂牌汇率刷进 Redis 缓存
// 纯降载手段：缓存缺失时交易创建会回源数据库，
// 该任务挂掉不影响正确性
type RateRefreshJob struct {
	rateService *service.RateService
	cfg         *config.Config
	stopCh      chan struct{}
	interval    time.Duration
}

func NewRateRefreshJob(rateService *service.RateService, cfg *config.Config) *RateRefreshJob {
	interval := time.Duration(cfg.Business.RateRefreshIntervalSec) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &RateRefreshJob{
		rateService: rateService,
		cfg:         cfg,
		stopCh:      make(chan struct{}),
		interval:    interval,
	}
}

func (j *RateRefreshJob) Start(ctx context.Context) {
	log.Println("[RateRefreshJob] 汇率缓存刷新任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[RateRefreshJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[RateRefreshJob] 任务停止")
			return
		case <-ticker.C:
			j.refresh(ctx)
		}
	}
}

func (j *RateRefreshJob) Stop() {
	close(j.stopCh)
}

func (j *RateRefreshJob) refresh(ctx context.Context) {
	err := j.rateService.RefreshCache(ctx)
	if err != nil {
		// 尚未挂牌不是异常
		if errors.Is(err, repository.ErrNoActiveRate) {
			return
		}
		log.Printf("[RateRefreshJob] 刷新汇率缓存失败: %v", err)
	}
}
