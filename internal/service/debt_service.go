package service

import (
	"context"
	"time"

	"remitsystem/internal/model"
	"remitsystem/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ============================================================================
// 债务与佣金聚合
// ============================================================================
//
// 聚合是纯归约：同样的输入跑多少遍结果都一样，过程不做任何写入。
// 成本汇率为空的已完成交易整笔排除（不按零算），数量单独上报，
// 让消费方知道总数是暂定的。
// ============================================================================

// DebtSummary 管理员间债务汇总
type DebtSummary struct {
	TotalDebtToOrigin   decimal.Decimal `json:"total_debt_to_origin"`   // Σ 每笔应付来源国
	TotalPaidToOrigin   decimal.Decimal `json:"total_paid_to_origin"`   // Σ 还款记录
	PendingDebtToOrigin decimal.Decimal `json:"pending_debt_to_origin"` // 差额，负数表示超付，原样保留不截断
	DestinationEarnings decimal.Decimal `json:"destination_earnings"`   // 目的国管理员自身分润合计
	CompletedCount      int             `json:"completed_count"`        // 参与汇总的交易笔数
	PendingRateCount    int             `json:"pending_rate_count"`     // 成本汇率待定而被排除的笔数
}

// AggregateDebt 归约已完成交易与还款记录
// standings 为商户ID到常设佣金比例的映射（佣金覆盖比例优先在单笔上生效）
func AggregateDebt(txs []*model.RemitTransaction, standings map[int64]decimal.Decimal, payments []*model.DebtPayment) *DebtSummary {
	summary := &DebtSummary{
		TotalDebtToOrigin:   decimal.Zero,
		TotalPaidToOrigin:   decimal.Zero,
		PendingDebtToOrigin: decimal.Zero,
		DestinationEarnings: decimal.Zero,
	}

	for _, t := range txs {
		if t.Status != model.StatusCompleted {
			continue
		}
		if t.PurchaseRate == nil {
			summary.PendingRateCount++
			continue
		}
		figures, err := CalculateLedger(t, standings[t.VendorID])
		if err != nil {
			summary.PendingRateCount++
			continue
		}
		summary.TotalDebtToOrigin = summary.TotalDebtToOrigin.Add(figures.DebtOwedToOrigin)
		summary.DestinationEarnings = summary.DestinationEarnings.Add(figures.ProfitSplitPerAdmin)
		summary.CompletedCount++
	}

	for _, p := range payments {
		summary.TotalPaidToOrigin = summary.TotalPaidToOrigin.Add(p.Amount)
	}

	summary.PendingDebtToOrigin = summary.TotalDebtToOrigin.Sub(summary.TotalPaidToOrigin)
	return summary
}

// VendorCommissionSummary 单个商户的佣金汇总
// 佣金只依赖来源币金额与比例，不依赖成本汇率，
// 因此所有已完成交易都参与，与债务口径不同
type VendorCommissionSummary struct {
	VendorID          int64           `json:"vendor_id"`
	VendorName        string          `json:"vendor_name"`
	TotalCommission   decimal.Decimal `json:"total_commission"`
	CommissionPaid    decimal.Decimal `json:"commission_paid"`
	CommissionPending decimal.Decimal `json:"commission_pending"`
	TransactionCount  int             `json:"transaction_count"`
}

// AggregateVendorCommissions 按商户归约佣金
func AggregateVendorCommissions(txs []*model.RemitTransaction, vendors map[int64]*model.Vendor) map[int64]*VendorCommissionSummary {
	result := make(map[int64]*VendorCommissionSummary)

	for _, t := range txs {
		if t.Status != model.StatusCompleted {
			continue
		}
		vendor, ok := vendors[t.VendorID]
		if !ok {
			continue
		}

		summary, ok := result[t.VendorID]
		if !ok {
			summary = &VendorCommissionSummary{
				VendorID:          t.VendorID,
				VendorName:        vendor.Name,
				TotalCommission:   decimal.Zero,
				CommissionPaid:    decimal.Zero,
				CommissionPending: decimal.Zero,
			}
			result[t.VendorID] = summary
		}

		commission := VendorCommissionOf(t, vendor.CommissionPercent)
		summary.TotalCommission = summary.TotalCommission.Add(commission)
		if t.IsCommissionPaid {
			summary.CommissionPaid = summary.CommissionPaid.Add(commission)
		}
		summary.TransactionCount++
	}

	for _, summary := range result {
		summary.CommissionPending = summary.TotalCommission.Sub(summary.CommissionPaid)
	}
	return result
}

// ============================================================
// 加载层
// ============================================================

// DebtService 负责把数据库里的交易/还款/商户加载成聚合输入
// 所有读取在同一数据库事务的快照内完成，与并发的还款写入互不干扰，
// 绝不会读到写了一半的记录
type DebtService struct {
	db *gorm.DB
}

func NewDebtService(db *gorm.DB) *DebtService {
	return &DebtService{db: db}
}

// GetDebtSummary 计算指定日期范围（from/to 为空表示不限）的债务汇总
func (s *DebtService) GetDebtSummary(ctx context.Context, actor model.Actor, from, to *time.Time) (*DebtSummary, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	var summary *DebtSummary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txs, payments, vendors, err := loadAggregationInputs(ctx, tx, from, to)
		if err != nil {
			return err
		}
		standings := make(map[int64]decimal.Decimal, len(vendors))
		for id, v := range vendors {
			standings[id] = v.CommissionPercent
		}
		summary = AggregateDebt(txs, standings, payments)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// GetVendorCommissions 计算指定范围内各商户的佣金汇总
func (s *DebtService) GetVendorCommissions(ctx context.Context, actor model.Actor, from, to *time.Time) (map[int64]*VendorCommissionSummary, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	var result map[int64]*VendorCommissionSummary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txs, _, vendors, err := loadAggregationInputs(ctx, tx, from, to)
		if err != nil {
			return err
		}
		result = AggregateVendorCommissions(txs, vendors)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// loadAggregationInputs 在同一事务快照内加载聚合所需的全部输入
func loadAggregationInputs(ctx context.Context, tx *gorm.DB, from, to *time.Time) ([]*model.RemitTransaction, []*model.DebtPayment, map[int64]*model.Vendor, error) {
	transactionRepo := repository.NewTransactionRepository(tx)
	paymentRepo := repository.NewPaymentRepository(tx)
	vendorRepo := repository.NewVendorRepository(tx)

	txs, err := transactionRepo.ListCompleted(ctx, from, to)
	if err != nil {
		return nil, nil, nil, err
	}
	payments, err := paymentRepo.ListInRange(ctx, from, to)
	if err != nil {
		return nil, nil, nil, err
	}
	vendorList, err := vendorRepo.ListAll(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	vendors := make(map[int64]*model.Vendor, len(vendorList))
	for _, v := range vendorList {
		vendors[v.ID] = v
	}
	return txs, payments, vendors, nil
}
