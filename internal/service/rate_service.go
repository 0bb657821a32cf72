package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"remitsystem/internal/config"
	"remitsystem/internal/infrastructure/cache"
	"remitsystem/internal/model"
	"remitsystem/internal/repository"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrStaleRate     = errors.New("当前没有可用的挂牌汇率")
	ErrRateFinalized = errors.New("成本汇率已锁定，不允许普通修改")
	ErrForbidden     = errors.New("当前角色无权执行该操作")
)

// RateService 汇率上下文
// 卖出汇率：挂牌发布，交易创建时快照；Redis 缓存只是降载手段，
// 未命中回源数据库，正确性不依赖缓存
// 成本汇率：来源国管理员事后按笔或按日期范围回填
type RateService struct {
	db              *gorm.DB
	redisClient     *redis.Client
	cfg             *config.Config
	rateRepo        *repository.RateRepository
	transactionRepo *repository.TransactionRepository
}

func NewRateService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *RateService {
	return &RateService{
		db:              db,
		redisClient:     redisClient,
		cfg:             cfg,
		rateRepo:        repository.NewRateRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
	}
}

// ActiveSaleRate 读取当前生效卖出汇率（缓存优先）
func (s *RateService) ActiveSaleRate(ctx context.Context) (decimal.Decimal, error) {
	if cached, err := s.redisClient.Get(ctx, cache.KeyActiveSaleRate).Result(); err == nil {
		if rate, parseErr := decimal.NewFromString(cached); parseErr == nil {
			return rate, nil
		}
	}

	rate, err := s.rateRepo.GetActive(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNoActiveRate) {
			return decimal.Zero, ErrStaleRate
		}
		return decimal.Zero, err
	}

	s.cacheRate(ctx, rate.Rate)
	return rate.Rate, nil
}

// PublishSaleRate 挂牌新卖出汇率（管理员操作）
func (s *RateService) PublishSaleRate(ctx context.Context, actor model.Actor, rate decimal.Decimal) (*model.SaleRate, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if !rate.IsPositive() {
		return nil, ErrInvalidAmount
	}

	saleRate := &model.SaleRate{
		Rate:        rate,
		PublishedBy: actor.ID,
	}
	if err := s.rateRepo.Publish(ctx, saleRate); err != nil {
		return nil, fmt.Errorf("挂牌汇率失败: %w", err)
	}

	s.cacheRate(ctx, rate)
	return saleRate, nil
}

// SetPurchaseRate 按笔回填成本汇率
// 只允许来源国管理员，交易必须已完成
// final=false 为暂估、可反复修订；final=true 后任何修改都会被拒绝
func (s *RateService) SetPurchaseRate(ctx context.Context, actor model.Actor, transactionID int64, rate decimal.Decimal, final bool) error {
	if actor.Role != model.RoleAdminOrigin {
		return ErrForbidden
	}
	if !rate.IsPositive() {
		return ErrInvalidAmount
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		trans, err := s.transactionRepo.GetByIDForUpdate(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		if trans.Status != model.StatusCompleted {
			return ErrIllegalTransition
		}
		if trans.IsPurchaseRateFinal {
			return ErrRateFinalized
		}

		return s.transactionRepo.UpdateFields(ctx, tx, transactionID, map[string]interface{}{
			"purchase_rate":          rate,
			"is_purchase_rate_final": final,
		})
	})
}

// ApplyPurchaseRateRange 按完成日期范围批量回填成本汇率
// 已锁定的交易自动跳过，返回实际生效笔数
func (s *RateService) ApplyPurchaseRateRange(ctx context.Context, actor model.Actor, from, to time.Time, rate decimal.Decimal, final bool) (int64, error) {
	if actor.Role != model.RoleAdminOrigin {
		return 0, ErrForbidden
	}
	if !rate.IsPositive() {
		return 0, ErrInvalidAmount
	}
	if !to.After(from) {
		return 0, errors.New("日期范围不合法")
	}

	return s.transactionRepo.BulkSetPurchaseRate(ctx, from, to, rate, final)
}

// ListRecentRates 最近挂牌历史
func (s *RateService) ListRecentRates(ctx context.Context, limit int) ([]*model.SaleRate, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.rateRepo.ListRecent(ctx, limit)
}

// RefreshCache 把当前生效汇率刷进缓存，由后台任务周期调用
func (s *RateService) RefreshCache(ctx context.Context) error {
	rate, err := s.rateRepo.GetActive(ctx)
	if err != nil {
		return err
	}
	s.cacheRate(ctx, rate.Rate)
	return nil
}

func (s *RateService) cacheRate(ctx context.Context, rate decimal.Decimal) {
	ttl := time.Duration(s.cfg.Business.RateCacheSeconds) * time.Second
	// 缓存写失败不影响主流程
	s.redisClient.Set(ctx, cache.KeyActiveSaleRate, rate.String(), ttl)
}
