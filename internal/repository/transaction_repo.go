package repository

import (
	"context"
	"errors"
	"time"

	"remitsystem/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTransactionNotFound = errors.New("交易不存在")
	ErrStatusConflict      = errors.New("交易状态已变化，请刷新后重试")
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *gorm.DB, trans *model.RemitTransaction) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(trans).Error
}

func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*model.RemitTransaction, error) {
	var trans model.RemitTransaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &trans, nil
}

// GetByIDForUpdate 加行锁读取，编辑/推进前必须在事务内拿到最新状态
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.RemitTransaction, error) {
	var trans model.RemitTransaction
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &trans, nil
}

func (r *TransactionRepository) GetByTxNo(ctx context.Context, txNo string) (*model.RemitTransaction, error) {
	var trans model.RemitTransaction
	err := r.db.WithContext(ctx).Where("tx_no = ?", txNo).First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &trans, nil
}

// UpdateStatus 条件更新状态
// WHERE status = fromStatus 保证并发推进时只有一个写者成功，
// 输家拿到 ErrStatusConflict 而不是把历史写花
func (r *TransactionRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, fromStatus, toStatus string, extra map[string]interface{}) error {
	if tx == nil {
		tx = r.db
	}

	updates := map[string]interface{}{
		"status": toStatus,
	}
	for k, v := range extra {
		updates[k] = v
	}

	result := tx.WithContext(ctx).
		Model(&model.RemitTransaction{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}

// UpdateFields 普通字段更新（金额、收款人快照、回款标记等）
func (r *TransactionRepository) UpdateFields(ctx context.Context, tx *gorm.DB, id int64, updates map[string]interface{}) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.RemitTransaction{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// AppendHistory 追加状态流转历史（只追加，绝不修改）
func (r *TransactionRepository) AppendHistory(ctx context.Context, tx *gorm.DB, h *model.TransactionStatusHistory) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(h).Error
}

func (r *TransactionRepository) ListHistory(ctx context.Context, transactionID int64) ([]*model.TransactionStatusHistory, error) {
	var rows []*model.TransactionStatusHistory
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// ListCompleted 按完成时间范围查询已完成交易（from/to 为空表示不限）
func (r *TransactionRepository) ListCompleted(ctx context.Context, from, to *time.Time) ([]*model.RemitTransaction, error) {
	query := r.db.WithContext(ctx).Where("status = ?", model.StatusCompleted)
	if from != nil {
		query = query.Where("completed_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("completed_at < ?", *to)
	}
	var rows []*model.RemitTransaction
	err := query.Order("completed_at ASC").Find(&rows).Error
	return rows, err
}

func (r *TransactionRepository) ListByVendor(ctx context.Context, vendorID int64, page, pageSize int) ([]*model.RemitTransaction, int64, error) {
	var rows []*model.RemitTransaction
	var total int64

	query := r.db.WithContext(ctx).Model(&model.RemitTransaction{}).Where("vendor_id = ?", vendorID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error

	return rows, total, err
}

func (r *TransactionRepository) ListByStatus(ctx context.Context, status string, page, pageSize int) ([]*model.RemitTransaction, int64, error) {
	var rows []*model.RemitTransaction
	var total int64

	query := r.db.WithContext(ctx).Model(&model.RemitTransaction{}).Where("status = ?", status)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error

	return rows, total, err
}

// GetUnpaidCommissionIDs 过滤出尚未标记佣金已付的交易ID
// 与 MarkCommissionPaid 配套在同一事务内使用，用于向调用方回报
// 实际生效的ID集合（已付的静默跳过）
func (r *TransactionRepository) GetUnpaidCommissionIDs(ctx context.Context, tx *gorm.DB, ids []int64) ([]int64, error) {
	if tx == nil {
		tx = r.db
	}
	var unpaid []int64
	err := tx.WithContext(ctx).
		Model(&model.RemitTransaction{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ? AND is_commission_paid_to_vendor = ?", ids, false).
		Pluck("id", &unpaid).Error
	return unpaid, err
}

// MarkCommissionPaid 批量标记佣金已付
// WHERE 条件带 is_commission_paid_to_vendor = 0，重复调用天然幂等：
// 已标记的行不会被二次更新，commission_paid_at 不会被覆盖
func (r *TransactionRepository) MarkCommissionPaid(ctx context.Context, tx *gorm.DB, ids []int64, paidAt time.Time) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.RemitTransaction{}).
		Where("id IN ? AND is_commission_paid_to_vendor = ?", ids, false).
		Updates(map[string]interface{}{
			"is_commission_paid_to_vendor": true,
			"commission_paid_at":           paidAt,
		})
	return result.RowsAffected, result.Error
}

// BulkSetPurchaseRate 按完成日期范围批量回填成本汇率
// 只覆盖尚未锁定的记录；final=true 时一并锁定
func (r *TransactionRepository) BulkSetPurchaseRate(ctx context.Context, from, to time.Time, rate decimal.Decimal, final bool) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.RemitTransaction{}).
		Where("status = ? AND completed_at >= ? AND completed_at < ? AND is_purchase_rate_final = ?",
			model.StatusCompleted, from, to, false).
		Updates(map[string]interface{}{
			"purchase_rate":          rate,
			"is_purchase_rate_final": final,
		})
	return result.RowsAffected, result.Error
}
