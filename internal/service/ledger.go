package service

import (
	"errors"

	"remitsystem/internal/model"

	"github.com/shopspring/decimal"
)

// ============================================================================
// 财务推导（纯函数，无副作用）
// ============================================================================
//
// 四个产出（投资成本、系统利润、管理员分润、应付来源国债务）一律现算不落库，
// 每次汇总都重新推导：事后修订 purchase_rate 时，下游所有数字自动跟着修正，
// 不需要人工对账。佣金/利润公式全系统只有这一份实现。
//
// 汇率口径与报表核对保持一致：
//   目的币金额 = 来源币金额 / sale_rate
//   投资成本   = 目的币金额 / purchase_rate（来源币计价）
// ============================================================================

var (
	ErrPendingPurchaseRate = errors.New("成本汇率尚未确定，无法推导财务数字")
	ErrInvalidAmount       = errors.New("金额必须为正数")
)

var two = decimal.NewFromInt(2)

// LedgerFigures 单笔交易的推导结果
type LedgerFigures struct {
	Investment          decimal.Decimal `json:"investment"`             // 投资成本（来源币）
	SystemProfit        decimal.Decimal `json:"system_profit"`          // 系统利润 = 来源币收款 - 投资成本
	ProfitSplitPerAdmin decimal.Decimal `json:"profit_split_per_admin"` // 两位管理员均分（固定规则）
	DebtOwedToOrigin    decimal.Decimal `json:"debt_owed_to_origin"`    // 目的国应付来源国 = 投资成本 + 来源国分润
	VendorCommission    decimal.Decimal `json:"vendor_commission"`      // 商户佣金
}

// DeriveDestinationAmount 按挂牌汇率推导目的币金额
func DeriveDestinationAmount(amountOrigin, saleRate decimal.Decimal) decimal.Decimal {
	return amountOrigin.Div(saleRate)
}

// DeriveOriginAmount 按挂牌汇率反推来源币金额
func DeriveOriginAmount(amountDestination, saleRate decimal.Decimal) decimal.Decimal {
	return amountDestination.Mul(saleRate)
}

// EffectiveCommissionPercent 单笔覆盖比例优先，否则回落到商户常设比例
// 覆盖比例在交易创建时确定，之后不再重算
func EffectiveCommissionPercent(t *model.RemitTransaction, standingPercent decimal.Decimal) decimal.Decimal {
	if t.CommissionPercent != nil {
		return *t.CommissionPercent
	}
	return standingPercent
}

// VendorCommissionOf 商户佣金 = 来源币金额 × 生效比例
// 佣金基数统一取来源币金额
func VendorCommissionOf(t *model.RemitTransaction, standingPercent decimal.Decimal) decimal.Decimal {
	return t.AmountOrigin.Mul(EffectiveCommissionPercent(t, standingPercent))
}

// CalculateLedger 推导一笔已完成交易的全部财务数字
// purchase_rate 为空的交易不参与推导（调用方应将其计入"待定汇率"数量，
// 而不是按零处理）
func CalculateLedger(t *model.RemitTransaction, standingPercent decimal.Decimal) (*LedgerFigures, error) {
	if t.PurchaseRate == nil {
		return nil, ErrPendingPurchaseRate
	}
	if !t.PurchaseRate.IsPositive() {
		return nil, ErrInvalidAmount
	}

	investment := t.AmountDestination.Div(*t.PurchaseRate)
	systemProfit := t.AmountOrigin.Sub(investment)
	profitSplit := systemProfit.Div(two)

	return &LedgerFigures{
		Investment:          investment,
		SystemProfit:        systemProfit,
		ProfitSplitPerAdmin: profitSplit,
		DebtOwedToOrigin:    investment.Add(profitSplit),
		VendorCommission:    VendorCommissionOf(t, standingPercent),
	}, nil
}
