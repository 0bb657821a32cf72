package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DebtPayment 管理员间债务结算记录
// 目的国管理员向来源国管理员的一次（全额或部分）还款
// 创建后不可修改，只允许删除；删除后汇总债务由聚合重新推导
type DebtPayment struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentNo      string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"payment_no"`
	Amount         decimal.Decimal `gorm:"type:decimal(24,6);not null" json:"amount"` // 目的币计价
	Note           string          `gorm:"type:varchar(256)" json:"note"`
	ProofRef       string          `gorm:"type:varchar(256)" json:"proof_ref"` // 外部存储的付款凭证引用
	PaymentDate    time.Time       `gorm:"index;not null" json:"payment_date"` // 实际付款日期，可早于录入日期
	RecordedBy     int64           `gorm:"not null" json:"recorded_by"`
	RecordedByRole string          `gorm:"type:varchar(32);not null" json:"recorded_by_role"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (DebtPayment) TableName() string {
	return "debt_payment"
}
