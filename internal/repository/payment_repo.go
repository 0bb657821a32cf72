package repository

import (
	"context"
	"errors"
	"time"

	"remitsystem/internal/model"

	"gorm.io/gorm"
)

var ErrPaymentNotFound = errors.New("还款记录不存在")

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, tx *gorm.DB, payment *model.DebtPayment) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(payment).Error
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*model.DebtPayment, error) {
	var payment model.DebtPayment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// Delete 物理删除还款记录
// RowsAffected = 0 说明记录已被删过（重复删除属于不可重入操作）
func (r *PaymentRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.DebtPayment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

// ListInRange 按付款日期范围查询（from/to 为空表示不限）
func (r *PaymentRepository) ListInRange(ctx context.Context, from, to *time.Time) ([]*model.DebtPayment, error) {
	query := r.db.WithContext(ctx).Model(&model.DebtPayment{})
	if from != nil {
		query = query.Where("payment_date >= ?", *from)
	}
	if to != nil {
		query = query.Where("payment_date < ?", *to)
	}
	var payments []*model.DebtPayment
	err := query.Order("payment_date ASC").Find(&payments).Error
	return payments, err
}
