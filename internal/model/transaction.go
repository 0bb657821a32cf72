package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================================
// 汇款交易状态常量
// ============================================================================

const (
	StatusPending                  = "PENDING"                    // 商户已录入，等待提交审核
	StatusPendingDestinationReview = "PENDING_DESTINATION_REVIEW" // 等待目的国管理员审核
	StatusPendingOriginReview      = "PENDING_ORIGIN_REVIEW"      // 等待来源国管理员审核
	StatusCompleted                = "COMPLETED"                  // 已完成付款
	StatusRejected                 = "REJECTED"                   // 已驳回
	StatusCancelledByVendor        = "CANCELLED_BY_VENDOR"        // 商户取消
	StatusCancelledByAdmin         = "CANCELLED_BY_ADMIN"         // 管理员取消
)

// 操作者角色
const (
	RoleVendor           = "vendor"            // 商户（录入汇款请求）
	RoleAdminDestination = "admin_destination" // 目的国管理员（垫付、拥有商户）
	RoleAdminOrigin      = "admin_origin"      // 来源国管理员（事后确定成本汇率）
)

// 商户回款方式
const (
	VendorPaymentMethodCash         = "CASH"
	VendorPaymentMethodBankDepositA = "BANK_DEPOSIT_A"
	VendorPaymentMethodBankDepositB = "BANK_DEPOSIT_B"
)

// ValidStatusTransitions 状态机合法流转表
// 按 (当前状态, 操作角色) 查询允许到达的目标状态
// 主链路：PENDING -> PENDING_DESTINATION_REVIEW -> PENDING_ORIGIN_REVIEW -> COMPLETED
// 任意非终态均可进入 REJECTED / CANCELLED_BY_VENDOR / CANCELLED_BY_ADMIN
var ValidStatusTransitions = map[string]map[string][]string{
	StatusPending: {
		RoleVendor:           {StatusPendingDestinationReview, StatusCancelledByVendor},
		RoleAdminDestination: {StatusRejected, StatusCancelledByAdmin},
		RoleAdminOrigin:      {StatusRejected, StatusCancelledByAdmin},
	},
	StatusPendingDestinationReview: {
		RoleVendor:           {StatusCancelledByVendor},
		RoleAdminDestination: {StatusPendingOriginReview, StatusRejected, StatusCancelledByAdmin},
		RoleAdminOrigin:      {StatusRejected, StatusCancelledByAdmin},
	},
	StatusPendingOriginReview: {
		RoleVendor:           {StatusCancelledByVendor},
		RoleAdminDestination: {StatusRejected, StatusCancelledByAdmin},
		RoleAdminOrigin:      {StatusCompleted, StatusRejected, StatusCancelledByAdmin},
	},
}

// CanTransitionTo 校验指定角色能否将交易从 currentStatus 推进到 targetStatus
func CanTransitionTo(currentStatus, actorRole, targetStatus string) bool {
	byRole, exists := ValidStatusTransitions[currentStatus]
	if !exists {
		return false
	}
	allowedStatuses, exists := byRole[actorRole]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// IsTerminalStatus 终态判断：终态交易不可再被推进
func IsTerminalStatus(status string) bool {
	switch status {
	case StatusCompleted, StatusRejected, StatusCancelledByVendor, StatusCancelledByAdmin:
		return true
	}
	return false
}

// EditWindowOpen 编辑窗口判断
// 窗口从最近一次编辑时间起算，进入编辑模式不重置计时
func EditWindowOpen(lastEditedAt, now time.Time, window time.Duration) bool {
	return now.Sub(lastEditedAt) < window
}

// ValidVendorPaymentMethod 校验商户回款方式枚举值
func ValidVendorPaymentMethod(method string) bool {
	switch method {
	case VendorPaymentMethodCash, VendorPaymentMethodBankDepositA, VendorPaymentMethodBankDepositB:
		return true
	}
	return false
}

// ============================================================================
// 汇款交易实体
// ============================================================================

// RemitTransaction 汇款交易表
// 收款人信息在创建时快照，后续修改收款人档案不影响历史交易
//
// 汇率口径（与报表核对一致）：
//   - sale_rate：创建时快照的公开卖出汇率，目的币金额 = 来源币金额 / sale_rate
//   - purchase_rate：来源国管理员事后确定的真实成本汇率，可暂估修订，
//     锁定（is_purchase_rate_final）后不再允许普通修改
type RemitTransaction struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	TxNo     string `gorm:"type:varchar(64);uniqueIndex;not null" json:"tx_no"`
	VendorID int64  `gorm:"index;not null" json:"vendor_id"`
	AdminID  int64  `gorm:"index;not null" json:"admin_id"` // 商户所属目的国管理员

	// 收款人快照字段
	BeneficiaryName        string `gorm:"type:varchar(128);not null" json:"beneficiary_name"`
	BeneficiaryDocumentID  string `gorm:"type:varchar(64);not null" json:"beneficiary_document_id"`
	BeneficiaryBank        string `gorm:"type:varchar(128);not null" json:"beneficiary_bank"`
	BeneficiaryAccountNo   string `gorm:"type:varchar(64);not null" json:"beneficiary_account_no"`
	BeneficiaryAccountType string `gorm:"type:varchar(32)" json:"beneficiary_account_type"`
	BeneficiaryPhone       string `gorm:"type:varchar(32)" json:"beneficiary_phone"`

	// 金额与汇率
	AmountOrigin        decimal.Decimal  `gorm:"type:decimal(24,6);not null" json:"amount_origin"`      // 客户支付的来源币金额
	AmountDestination   decimal.Decimal  `gorm:"type:decimal(24,6);not null" json:"amount_destination"` // 付给收款人的目的币金额
	SaleRate            decimal.Decimal  `gorm:"type:decimal(20,8);not null" json:"sale_rate"`
	PurchaseRate        *decimal.Decimal `gorm:"type:decimal(20,8)" json:"purchase_rate"`
	IsPurchaseRateFinal bool             `gorm:"not null;default:0" json:"is_purchase_rate_final"`

	// 佣金字段：空值时回落到商户的常设佣金比例
	CommissionPercent *decimal.Decimal `gorm:"type:decimal(8,6)" json:"commission_percent"`
	IsCommissionPaid  bool             `gorm:"not null;default:0;column:is_commission_paid_to_vendor" json:"is_commission_paid_to_vendor"`
	CommissionPaidAt  *time.Time       `json:"commission_paid_at"`

	// 商户回款字段（商户实际收到客户款项后向上缴纳）
	IsPaidByVendor        bool       `gorm:"not null;default:0" json:"is_paid_by_vendor"`
	PaidByVendorAt        *time.Time `json:"paid_by_vendor_at"`
	VendorPaymentMethod   string     `gorm:"type:varchar(32)" json:"vendor_payment_method"`
	VendorPaymentProofRef string     `gorm:"type:varchar(256)" json:"vendor_payment_proof_ref"`

	// 管理员复核标记（与 is_paid_by_vendor 相互独立）
	AdminVerifiedPayment   bool       `gorm:"not null;default:0" json:"admin_verified_payment"`
	AdminVerifiedAt        *time.Time `json:"admin_verified_at"`
	PaymentRejectedByAdmin bool       `gorm:"not null;default:0" json:"payment_rejected_by_admin"`
	PaymentRejectedAt      *time.Time `json:"payment_rejected_at"`

	Status       string     `gorm:"type:varchar(32);index;not null" json:"status"`
	RejectReason string     `gorm:"type:varchar(256)" json:"reject_reason"` // 驳回/取消原因，与普通备注分开存储
	Note         string     `gorm:"type:varchar(256)" json:"note"`
	LastEditedAt time.Time  `gorm:"not null" json:"last_edited_at"` // 编辑窗口计时基准
	CompletedAt  *time.Time `gorm:"index" json:"completed_at"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (RemitTransaction) TableName() string {
	return "remit_transaction"
}

// HasFinalFigures 只有已完成且成本汇率已确定的交易才参与财务汇总
func (t *RemitTransaction) HasFinalFigures() bool {
	return t.Status == StatusCompleted && t.PurchaseRate != nil
}

// ============================================================================
// 状态流转历史
// ============================================================================

// TransactionStatusHistory 状态流转历史表
// 只追加不修改，是审计的事实来源；交易上缓存的 status 字段
// 必须始终等于最新一条历史的 to_status
type TransactionStatusHistory struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionID int64     `gorm:"index;not null" json:"transaction_id"`
	FromStatus    string    `gorm:"type:varchar(32);not null" json:"from_status"`
	ToStatus      string    `gorm:"type:varchar(32);not null" json:"to_status"`
	ActorID       int64     `gorm:"not null" json:"actor_id"`
	ActorRole     string    `gorm:"type:varchar(32);not null" json:"actor_role"`
	Note          string    `gorm:"type:varchar(256)" json:"note"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (TransactionStatusHistory) TableName() string {
	return "remit_transaction_history"
}
