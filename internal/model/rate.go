package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleRate 公开卖出汇率表
// 同一时刻最多一条 is_active 记录；交易创建时从当前生效记录快照
// 历史记录保留，便于追溯某笔交易成交时的挂牌价
type SaleRate struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Rate        decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"rate"`
	IsActive    bool            `gorm:"index;not null;default:0" json:"is_active"`
	PublishedBy int64           `gorm:"not null" json:"published_by"`
	CreatedAt   time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

func (SaleRate) TableName() string {
	return "sale_rate"
}
