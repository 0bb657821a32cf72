package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 商户归属：决定默认常设佣金比例
const (
	VendorAffiliationDestination = "destination"
	VendorAffiliationOrigin      = "origin"
)

// Vendor 商户表
// 常设佣金比例在创建时按归属写入默认值（目的国 5%，来源国 2%），
// 单笔交易可在创建时用 commission_percent 覆盖
type Vendor struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name              string          `gorm:"type:varchar(128);not null" json:"name"`
	Phone             string          `gorm:"type:varchar(32)" json:"phone"`
	AdminID           int64           `gorm:"index;not null" json:"admin_id"` // 所属目的国管理员
	Affiliation       string          `gorm:"type:varchar(16);not null" json:"affiliation"`
	CommissionPercent decimal.Decimal `gorm:"type:decimal(8,6);not null" json:"commission_percent"`
	IsActive          bool            `gorm:"not null;default:1" json:"is_active"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Vendor) TableName() string {
	return "vendor"
}
