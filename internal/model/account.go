package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 账户类型
const (
	AccountTypeCash = "CASH"
	AccountTypeBank = "BANK"
)

// Account 目的国管理员持有的现金/银行账户
// 余额变动走乐观锁版本号，当前余额必须等于最新一条流水的 balance_after
type Account struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	AdminID   int64           `gorm:"index;not null" json:"admin_id"`
	Name      string          `gorm:"type:varchar(64);not null" json:"name"`
	Type      string          `gorm:"type:varchar(16);not null" json:"type"`
	Balance   decimal.Decimal `gorm:"type:decimal(24,6);not null;default:0" json:"balance"`
	Version   int             `gorm:"not null;default:0" json:"version"` // 乐观锁版本号
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "account"
}

// ============================================================================
// 账户流水
// ============================================================================

const (
	FlowTypeDeposit  = "DEPOSIT"
	FlowTypeWithdraw = "WITHDRAW"
)

// AccountTransaction 账户流水表
//
// 流水表设计原则：
// 1. 只追加，不修改，不删除 —— 保证审计可追溯
// 2. 记录变动前后余额 —— 便于校验 balance_after = balance_before + amount
// 3. 可选关联一笔汇款交易 —— 便于对账
type AccountTransaction struct {
	ID                 int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	FlowNo             string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"flow_no"`
	AccountID          int64           `gorm:"index;not null" json:"account_id"`
	RemitTransactionID *int64          `gorm:"index" json:"remit_transaction_id"`
	Amount             decimal.Decimal `gorm:"type:decimal(24,6);not null" json:"amount"` // 正数入账，负数出账
	Type               string          `gorm:"type:varchar(16);not null" json:"type"`
	BalanceBefore      decimal.Decimal `gorm:"type:decimal(24,6);not null" json:"balance_before"`
	BalanceAfter       decimal.Decimal `gorm:"type:decimal(24,6);not null" json:"balance_after"`
	Remark             string          `gorm:"type:varchar(256)" json:"remark"`
	CreatedAt          time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

func (AccountTransaction) TableName() string {
	return "account_transaction"
}
