package repository

import (
	"context"
	"errors"

	"remitsystem/internal/model"

	"gorm.io/gorm"
)

var ErrNoActiveRate = errors.New("当前没有生效的挂牌汇率")

type RateRepository struct {
	db *gorm.DB
}

func NewRateRepository(db *gorm.DB) *RateRepository {
	return &RateRepository{db: db}
}

func (r *RateRepository) GetActive(ctx context.Context) (*model.SaleRate, error) {
	var rate model.SaleRate
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id DESC").
		First(&rate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveRate
		}
		return nil, err
	}
	return &rate, nil
}

// Publish 挂牌新汇率：旧记录失效与新记录插入在同一事务内完成，
// 任意时刻最多一条生效记录
func (r *RateRepository) Publish(ctx context.Context, rate *model.SaleRate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.SaleRate{}).
			Where("is_active = ?", true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		rate.IsActive = true
		return tx.Create(rate).Error
	})
}

func (r *RateRepository) ListRecent(ctx context.Context, limit int) ([]*model.SaleRate, error) {
	var rates []*model.SaleRate
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&rates).Error
	return rates, err
}
