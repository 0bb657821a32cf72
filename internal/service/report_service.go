package service

import (
	"context"
	"sort"
	"time"

	"remitsystem/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReportService 只读报表
// 所有财务数字现场经 CalculateLedger 推导，不读任何落库的派生值；
// CSV/导出格式化是外部关注点，这里只返回结构化数据
// 收益类视图只对管理员开放——可见性在服务端按角色校验
type ReportService struct {
	db *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

// DebtDetailRow 债务明细里的一笔交易
type DebtDetailRow struct {
	TransactionID     int64            `json:"transaction_id"`
	TxNo              string           `json:"tx_no"`
	VendorID          int64            `json:"vendor_id"`
	VendorName        string           `json:"vendor_name"`
	CompletedAt       *time.Time       `json:"completed_at"`
	AmountOrigin      decimal.Decimal  `json:"amount_origin"`
	AmountDestination decimal.Decimal  `json:"amount_destination"`
	SaleRate          decimal.Decimal  `json:"sale_rate"`
	PurchaseRate      *decimal.Decimal `json:"purchase_rate"`
	PendingRate       bool             `json:"pending_rate"` // 成本汇率待定，未计入合计
	Figures           *LedgerFigures   `json:"figures,omitempty"`
}

// DebtDetail 债务明细 = 逐笔数字 + 汇总
type DebtDetail struct {
	Rows    []*DebtDetailRow `json:"rows"`
	Summary *DebtSummary     `json:"summary"`
}

// GetDebtDetail 指定范围内的债务明细
func (s *ReportService) GetDebtDetail(ctx context.Context, actor model.Actor, from, to *time.Time) (*DebtDetail, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	var detail *DebtDetail
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txs, payments, vendors, err := loadAggregationInputs(ctx, tx, from, to)
		if err != nil {
			return err
		}

		standings := make(map[int64]decimal.Decimal, len(vendors))
		for id, v := range vendors {
			standings[id] = v.CommissionPercent
		}

		rows := make([]*DebtDetailRow, 0, len(txs))
		for _, t := range txs {
			row := &DebtDetailRow{
				TransactionID:     t.ID,
				TxNo:              t.TxNo,
				VendorID:          t.VendorID,
				CompletedAt:       t.CompletedAt,
				AmountOrigin:      t.AmountOrigin,
				AmountDestination: t.AmountDestination,
				SaleRate:          t.SaleRate,
				PurchaseRate:      t.PurchaseRate,
			}
			if v, ok := vendors[t.VendorID]; ok {
				row.VendorName = v.Name
			}
			if figures, err := CalculateLedger(t, standings[t.VendorID]); err == nil {
				row.Figures = figures
			} else {
				row.PendingRate = true
			}
			rows = append(rows, row)
		}

		detail = &DebtDetail{
			Rows:    rows,
			Summary: AggregateDebt(txs, standings, payments),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// GetVendorReport 各商户佣金汇总，按商户ID排序返回
func (s *ReportService) GetVendorReport(ctx context.Context, actor model.Actor, from, to *time.Time) ([]*VendorCommissionSummary, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	var summaries []*VendorCommissionSummary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txs, _, vendors, err := loadAggregationInputs(ctx, tx, from, to)
		if err != nil {
			return err
		}
		byVendor := AggregateVendorCommissions(txs, vendors)
		summaries = make([]*VendorCommissionSummary, 0, len(byVendor))
		for _, summary := range byVendor {
			summaries = append(summaries, summary)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].VendorID < summaries[j].VendorID
	})
	return summaries, nil
}

// MonthlyStat 按月统计
type MonthlyStat struct {
	Month               string          `json:"month"` // 形如 2026-08
	TransactionCount    int             `json:"transaction_count"`
	AmountOrigin        decimal.Decimal `json:"amount_origin"`
	AmountDestination   decimal.Decimal `json:"amount_destination"`
	SystemProfit        decimal.Decimal `json:"system_profit"`
	DestinationEarnings decimal.Decimal `json:"destination_earnings"`
	PendingRateCount    int             `json:"pending_rate_count"`
}

// GetMonthlyStats 全量已完成交易按完成月份分组统计
func (s *ReportService) GetMonthlyStats(ctx context.Context, actor model.Actor) ([]*MonthlyStat, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	var stats []*MonthlyStat
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txs, _, vendors, err := loadAggregationInputs(ctx, tx, nil, nil)
		if err != nil {
			return err
		}
		standings := make(map[int64]decimal.Decimal, len(vendors))
		for id, v := range vendors {
			standings[id] = v.CommissionPercent
		}

		byMonth := make(map[string]*MonthlyStat)
		for _, t := range txs {
			if t.CompletedAt == nil {
				continue
			}
			month := t.CompletedAt.Format("2006-01")
			stat, ok := byMonth[month]
			if !ok {
				stat = &MonthlyStat{
					Month:               month,
					AmountOrigin:        decimal.Zero,
					AmountDestination:   decimal.Zero,
					SystemProfit:        decimal.Zero,
					DestinationEarnings: decimal.Zero,
				}
				byMonth[month] = stat
			}

			stat.TransactionCount++
			stat.AmountOrigin = stat.AmountOrigin.Add(t.AmountOrigin)
			stat.AmountDestination = stat.AmountDestination.Add(t.AmountDestination)

			if figures, err := CalculateLedger(t, standings[t.VendorID]); err == nil {
				stat.SystemProfit = stat.SystemProfit.Add(figures.SystemProfit)
				stat.DestinationEarnings = stat.DestinationEarnings.Add(figures.ProfitSplitPerAdmin)
			} else {
				stat.PendingRateCount++
			}
		}

		stats = make([]*MonthlyStat, 0, len(byMonth))
		for _, stat := range byMonth {
			stats = append(stats, stat)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Month < stats[j].Month
	})
	return stats, nil
}
