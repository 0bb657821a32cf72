package service

import (
	"testing"

	"remitsystem/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedTransaction(t *testing.T, vendorID int64, amountOrigin, saleRate, purchaseRate string) *model.RemitTransaction {
	t.Helper()
	origin := mustDecimal(t, amountOrigin)
	rate := mustDecimal(t, saleRate)
	trans := &model.RemitTransaction{
		VendorID:          vendorID,
		AmountOrigin:      origin,
		AmountDestination: origin.Div(rate),
		SaleRate:          rate,
		Status:            model.StatusCompleted,
	}
	if purchaseRate != "" {
		pr := mustDecimal(t, purchaseRate)
		trans.PurchaseRate = &pr
	}
	return trans
}

func standings(percent string) map[int64]decimal.Decimal {
	return map[int64]decimal.Decimal{1: decimal.RequireFromString(percent)}
}

func TestAggregateDebt_SingleTransaction(t *testing.T) {
	txs := []*model.RemitTransaction{
		completedTransaction(t, 1, "1000000", "40", "38"),
	}

	summary := AggregateDebt(txs, standings("0.05"), nil)

	assert.Equal(t, 1, summary.CompletedCount)
	assert.Equal(t, 0, summary.PendingRateCount)
	assert.True(t, summary.TotalDebtToOrigin.Round(2).Equal(mustDecimal(t, "500328.95")), "debt=%s", summary.TotalDebtToOrigin)
	assert.True(t, summary.DestinationEarnings.Round(2).Equal(mustDecimal(t, "499671.05")))
	// 尚无还款，待付 = 总债务
	assert.True(t, summary.PendingDebtToOrigin.Equal(summary.TotalDebtToOrigin))
}

func TestAggregateDebt_Idempotent(t *testing.T) {
	txs := []*model.RemitTransaction{
		completedTransaction(t, 1, "1000000", "40", "38"),
		completedTransaction(t, 1, "500000", "40", "39"),
	}
	payments := []*model.DebtPayment{
		{Amount: mustDecimal(t, "300000")},
	}

	first := AggregateDebt(txs, standings("0.05"), payments)
	second := AggregateDebt(txs, standings("0.05"), payments)

	// 聚合是纯归约，重复执行结果不变
	assert.True(t, first.TotalDebtToOrigin.Equal(second.TotalDebtToOrigin))
	assert.True(t, first.PendingDebtToOrigin.Equal(second.PendingDebtToOrigin))
	assert.Equal(t, first.CompletedCount, second.CompletedCount)
}

func TestAggregateDebt_PendingRateExcluded(t *testing.T) {
	txs := []*model.RemitTransaction{
		completedTransaction(t, 1, "1000000", "40", "38"),
		completedTransaction(t, 1, "2000000", "40", ""), // 成本汇率待定
		completedTransaction(t, 1, "3000000", "40", ""),
	}

	summary := AggregateDebt(txs, standings("0.05"), nil)

	// 待定汇率的交易整笔排除，不按零计入
	assert.Equal(t, 1, summary.CompletedCount)
	assert.Equal(t, 2, summary.PendingRateCount)
	assert.True(t, summary.TotalDebtToOrigin.Round(2).Equal(mustDecimal(t, "500328.95")))
}

func TestAggregateDebt_NonCompletedSkipped(t *testing.T) {
	pending := completedTransaction(t, 1, "1000000", "40", "38")
	pending.Status = model.StatusPendingOriginReview
	rejected := completedTransaction(t, 1, "1000000", "40", "38")
	rejected.Status = model.StatusRejected

	summary := AggregateDebt([]*model.RemitTransaction{pending, rejected}, standings("0.05"), nil)

	assert.Equal(t, 0, summary.CompletedCount)
	assert.Equal(t, 0, summary.PendingRateCount)
	assert.True(t, summary.TotalDebtToOrigin.IsZero())
}

func TestAggregateDebt_OverpaymentGoesNegative(t *testing.T) {
	txs := []*model.RemitTransaction{
		completedTransaction(t, 1, "1000000", "40", "38"),
	}
	payments := []*model.DebtPayment{
		{Amount: mustDecimal(t, "600000")},
	}

	summary := AggregateDebt(txs, standings("0.05"), payments)

	// 超付时待付债务为负，原样保留
	assert.True(t, summary.PendingDebtToOrigin.IsNegative())
	expected := summary.TotalDebtToOrigin.Sub(mustDecimal(t, "600000"))
	assert.True(t, summary.PendingDebtToOrigin.Equal(expected))
}

func TestAggregateDebt_PaymentDeletionRestoresDebt(t *testing.T) {
	txs := []*model.RemitTransaction{
		completedTransaction(t, 1, "1000000", "40", "38"),
	}
	payment := &model.DebtPayment{Amount: mustDecimal(t, "200000")}

	withPayment := AggregateDebt(txs, standings("0.05"), []*model.DebtPayment{payment})
	afterDeletion := AggregateDebt(txs, standings("0.05"), nil)

	// 删除还款记录后重新聚合，债务回到还款前的数字
	assert.True(t, afterDeletion.PendingDebtToOrigin.Equal(withPayment.PendingDebtToOrigin.Add(payment.Amount)))
	assert.True(t, afterDeletion.PendingDebtToOrigin.Equal(afterDeletion.TotalDebtToOrigin))
}

func TestAggregateVendorCommissions(t *testing.T) {
	vendors := map[int64]*model.Vendor{
		1: {ID: 1, Name: "商户A", CommissionPercent: mustDecimal(t, "0.05")},
		2: {ID: 2, Name: "商户B", CommissionPercent: mustDecimal(t, "0.02")},
	}

	paid := completedTransaction(t, 1, "1000000", "40", "38")
	paid.IsCommissionPaid = true
	unpaid := completedTransaction(t, 1, "500000", "40", "")
	other := completedTransaction(t, 2, "200000", "40", "38")

	result := AggregateVendorCommissions([]*model.RemitTransaction{paid, unpaid, other}, vendors)
	require.Len(t, result, 2)

	a := result[1]
	require.NotNil(t, a)
	// 佣金不依赖成本汇率，汇率待定的已完成交易也计佣
	assert.Equal(t, 2, a.TransactionCount)
	assert.True(t, a.TotalCommission.Equal(mustDecimal(t, "75000")), "total=%s", a.TotalCommission)
	assert.True(t, a.CommissionPaid.Equal(mustDecimal(t, "50000")))
	assert.True(t, a.CommissionPending.Equal(mustDecimal(t, "25000")))

	b := result[2]
	require.NotNil(t, b)
	assert.True(t, b.TotalCommission.Equal(mustDecimal(t, "4000")))
	assert.True(t, b.CommissionPending.Equal(mustDecimal(t, "4000")))
}

func TestAggregateVendorCommissions_AllPaid(t *testing.T) {
	vendors := map[int64]*model.Vendor{
		1: {ID: 1, Name: "商户A", CommissionPercent: mustDecimal(t, "0.05")},
	}

	first := completedTransaction(t, 1, "1000000", "40", "38")
	first.IsCommissionPaid = true
	second := completedTransaction(t, 1, "500000", "40", "39")
	second.IsCommissionPaid = true

	result := AggregateVendorCommissions([]*model.RemitTransaction{first, second}, vendors)
	require.Len(t, result, 1)

	summary := result[1]
	assert.True(t, summary.CommissionPending.IsZero())
	assert.True(t, summary.TotalCommission.Equal(summary.CommissionPaid))
}

func TestAggregateVendorCommissions_StandingChangeIsRetroactive(t *testing.T) {
	// 佣金现算不落库：常设比例调整后重新聚合，无覆盖比例的
	// 历史交易按新比例推导，带覆盖比例的交易不受影响
	override := mustDecimal(t, "0.04")
	plain := completedTransaction(t, 1, "1000000", "40", "38")
	overridden := completedTransaction(t, 1, "1000000", "40", "38")
	overridden.CommissionPercent = &override
	txs := []*model.RemitTransaction{plain, overridden}

	before := AggregateVendorCommissions(txs, map[int64]*model.Vendor{
		1: {ID: 1, Name: "商户A", CommissionPercent: mustDecimal(t, "0.05")},
	})
	after := AggregateVendorCommissions(txs, map[int64]*model.Vendor{
		1: {ID: 1, Name: "商户A", CommissionPercent: mustDecimal(t, "0.03")},
	})

	require.Len(t, before, 1)
	require.Len(t, after, 1)
	// 0.05×1,000,000 + 0.04×1,000,000 = 90,000 -> 0.03×1,000,000 + 0.04×1,000,000 = 70,000
	assert.True(t, before[1].TotalCommission.Equal(mustDecimal(t, "90000")), "before=%s", before[1].TotalCommission)
	assert.True(t, after[1].TotalCommission.Equal(mustDecimal(t, "70000")), "after=%s", after[1].TotalCommission)
}

func TestAggregateVendorCommissions_OverrideTakesPriority(t *testing.T) {
	vendors := map[int64]*model.Vendor{
		1: {ID: 1, Name: "商户A", CommissionPercent: mustDecimal(t, "0.05")},
	}

	override := mustDecimal(t, "0.04")
	trans := completedTransaction(t, 1, "1000000", "40", "38")
	trans.CommissionPercent = &override

	result := AggregateVendorCommissions([]*model.RemitTransaction{trans}, vendors)
	require.Len(t, result, 1)
	assert.True(t, result[1].TotalCommission.Equal(mustDecimal(t, "40000")))
}
