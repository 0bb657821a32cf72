package service

import (
	"testing"

	"remitsystem/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestDeriveDestinationAmount(t *testing.T) {
	// 客户付 1,000,000 来源币，挂牌价 40 => 收款人拿 25,000 目的币
	got := DeriveDestinationAmount(mustDecimal(t, "1000000"), mustDecimal(t, "40"))
	assert.True(t, got.Equal(mustDecimal(t, "25000")), "got %s", got)
}

func TestDeriveOriginAmount(t *testing.T) {
	got := DeriveOriginAmount(mustDecimal(t, "25000"), mustDecimal(t, "40"))
	assert.True(t, got.Equal(mustDecimal(t, "1000000")), "got %s", got)
}

func TestDeriveAmounts_RoundTrip(t *testing.T) {
	origin := mustDecimal(t, "1000000")
	rate := mustDecimal(t, "40")
	dest := DeriveDestinationAmount(origin, rate)
	assert.True(t, DeriveOriginAmount(dest, rate).Equal(origin))
}

func TestCalculateLedger(t *testing.T) {
	// 卖出价 40、成本价 38 的一笔 1,000,000 汇款：
	//   目的币金额 = 1,000,000 / 40 = 25,000
	//   投资成本   = 25,000 / 38 ≈ 657.89
	//   系统利润   = 1,000,000 - 657.89 ≈ 999,342.11
	//   每人分润   ≈ 499,671.05
	//   应付来源国 = 投资成本 + 分润 ≈ 500,328.95
	purchaseRate := mustDecimal(t, "38")
	trans := &model.RemitTransaction{
		VendorID:          1,
		AmountOrigin:      mustDecimal(t, "1000000"),
		AmountDestination: mustDecimal(t, "25000"),
		SaleRate:          mustDecimal(t, "40"),
		PurchaseRate:      &purchaseRate,
		Status:            model.StatusCompleted,
	}

	figures, err := CalculateLedger(trans, mustDecimal(t, "0.05"))
	require.NoError(t, err)

	assert.True(t, figures.Investment.Round(2).Equal(mustDecimal(t, "657.89")), "investment=%s", figures.Investment)
	assert.True(t, figures.SystemProfit.Round(2).Equal(mustDecimal(t, "999342.11")), "profit=%s", figures.SystemProfit)
	assert.True(t, figures.ProfitSplitPerAdmin.Round(2).Equal(mustDecimal(t, "499671.05")), "split=%s", figures.ProfitSplitPerAdmin)
	assert.True(t, figures.DebtOwedToOrigin.Round(2).Equal(mustDecimal(t, "500328.95")), "debt=%s", figures.DebtOwedToOrigin)
	assert.True(t, figures.VendorCommission.Equal(mustDecimal(t, "50000")), "commission=%s", figures.VendorCommission)

	// 恒等式：投资成本 + 系统利润 = 来源币收款
	assert.True(t, figures.Investment.Add(figures.SystemProfit).Equal(trans.AmountOrigin))
	// 恒等式：应付来源国 = 投资成本 + 单人分润
	assert.True(t, figures.DebtOwedToOrigin.Equal(figures.Investment.Add(figures.ProfitSplitPerAdmin)))
}

func TestCalculateLedger_CommissionOverride(t *testing.T) {
	purchaseRate := mustDecimal(t, "38")
	override := mustDecimal(t, "0.04")
	trans := &model.RemitTransaction{
		AmountOrigin:      mustDecimal(t, "1000000"),
		AmountDestination: mustDecimal(t, "25000"),
		SaleRate:          mustDecimal(t, "40"),
		PurchaseRate:      &purchaseRate,
		CommissionPercent: &override,
		Status:            model.StatusCompleted,
	}

	// 单笔覆盖比例优先于常设比例
	figures, err := CalculateLedger(trans, mustDecimal(t, "0.05"))
	require.NoError(t, err)
	assert.True(t, figures.VendorCommission.Equal(mustDecimal(t, "40000")), "commission=%s", figures.VendorCommission)
}

func TestCalculateLedger_PendingPurchaseRate(t *testing.T) {
	trans := &model.RemitTransaction{
		AmountOrigin:      mustDecimal(t, "1000000"),
		AmountDestination: mustDecimal(t, "25000"),
		SaleRate:          mustDecimal(t, "40"),
		Status:            model.StatusCompleted,
	}

	_, err := CalculateLedger(trans, mustDecimal(t, "0.05"))
	assert.ErrorIs(t, err, ErrPendingPurchaseRate)
}

func TestCalculateLedger_NonPositivePurchaseRate(t *testing.T) {
	zero := decimal.Zero
	trans := &model.RemitTransaction{
		AmountOrigin:      mustDecimal(t, "1000000"),
		AmountDestination: mustDecimal(t, "25000"),
		SaleRate:          mustDecimal(t, "40"),
		PurchaseRate:      &zero,
		Status:            model.StatusCompleted,
	}

	_, err := CalculateLedger(trans, mustDecimal(t, "0.05"))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestEffectiveCommissionPercent(t *testing.T) {
	standing := mustDecimal(t, "0.05")

	trans := &model.RemitTransaction{}
	assert.True(t, EffectiveCommissionPercent(trans, standing).Equal(standing))

	override := mustDecimal(t, "0.03")
	trans.CommissionPercent = &override
	assert.True(t, EffectiveCommissionPercent(trans, standing).Equal(override))
}
