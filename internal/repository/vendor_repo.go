package repository

import (
	"context"
	"errors"

	"remitsystem/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrVendorNotFound = errors.New("商户不存在")

type VendorRepository struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) *VendorRepository {
	return &VendorRepository{db: db}
}

func (r *VendorRepository) Create(ctx context.Context, vendor *model.Vendor) error {
	return r.db.WithContext(ctx).Create(vendor).Error
}

func (r *VendorRepository) GetByID(ctx context.Context, id int64) (*model.Vendor, error) {
	var vendor model.Vendor
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&vendor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVendorNotFound
		}
		return nil, err
	}
	return &vendor, nil
}

func (r *VendorRepository) ListByAdmin(ctx context.Context, adminID int64) ([]*model.Vendor, error) {
	var vendors []*model.Vendor
	err := r.db.WithContext(ctx).
		Where("admin_id = ?", adminID).
		Order("id ASC").
		Find(&vendors).Error
	return vendors, err
}

func (r *VendorRepository) ListAll(ctx context.Context) ([]*model.Vendor, error) {
	var vendors []*model.Vendor
	err := r.db.WithContext(ctx).Order("id ASC").Find(&vendors).Error
	return vendors, err
}

func (r *VendorRepository) UpdateCommissionPercent(ctx context.Context, id int64, percent decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&model.Vendor{}).
		Where("id = ?", id).
		Update("commission_percent", percent)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVendorNotFound
	}
	return nil
}
