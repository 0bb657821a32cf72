package service

import (
	"context"

	"remitsystem/internal/config"
	"remitsystem/internal/model"
	"remitsystem/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// VendorService 商户管理
type VendorService struct {
	cfg        *config.Config
	vendorRepo *repository.VendorRepository
}

func NewVendorService(db *gorm.DB, cfg *config.Config) *VendorService {
	return &VendorService{
		cfg:        cfg,
		vendorRepo: repository.NewVendorRepository(db),
	}
}

type CreateVendorRequest struct {
	Name              string
	Phone             string
	Affiliation       string
	CommissionPercent *decimal.Decimal // 缺省按归属取配置里的默认比例
}

func (s *VendorService) CreateVendor(ctx context.Context, actor model.Actor, req *CreateVendorRequest) (*model.Vendor, error) {
	if actor.Role != model.RoleAdminDestination {
		return nil, ErrForbidden
	}
	if req.Affiliation != model.VendorAffiliationDestination && req.Affiliation != model.VendorAffiliationOrigin {
		return nil, ErrInvalidAmount
	}

	percent := s.defaultCommission(req.Affiliation)
	if req.CommissionPercent != nil {
		if !req.CommissionPercent.IsPositive() || req.CommissionPercent.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return nil, ErrInvalidAmount
		}
		percent = *req.CommissionPercent
	}

	vendor := &model.Vendor{
		Name:              req.Name,
		Phone:             req.Phone,
		AdminID:           actor.ID,
		Affiliation:       req.Affiliation,
		CommissionPercent: percent,
		IsActive:          true,
	}
	if err := s.vendorRepo.Create(ctx, vendor); err != nil {
		return nil, err
	}
	return vendor, nil
}

func (s *VendorService) defaultCommission(affiliation string) decimal.Decimal {
	if affiliation == model.VendorAffiliationOrigin {
		return decimal.NewFromFloat(s.cfg.Business.DefaultCommissionOrig)
	}
	return decimal.NewFromFloat(s.cfg.Business.DefaultCommissionDest)
}

func (s *VendorService) GetVendor(ctx context.Context, actor model.Actor, id int64) (*model.Vendor, error) {
	if actor.Role == model.RoleVendor && actor.ID != id {
		return nil, ErrForbidden
	}
	return s.vendorRepo.GetByID(ctx, id)
}

func (s *VendorService) ListVendors(ctx context.Context, actor model.Actor) ([]*model.Vendor, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if actor.Role == model.RoleAdminDestination {
		return s.vendorRepo.ListByAdmin(ctx, actor.ID)
	}
	return s.vendorRepo.ListAll(ctx)
}

// UpdateCommissionPercent 调整商户常设佣金比例
// 佣金现算不落库：没有单笔覆盖比例的交易，聚合时一律按商户当前的
// 常设比例重新推导，调整会追溯影响它们；带覆盖比例的交易不受影响
func (s *VendorService) UpdateCommissionPercent(ctx context.Context, actor model.Actor, id int64, percent decimal.Decimal) error {
	if actor.Role != model.RoleAdminDestination {
		return ErrForbidden
	}
	if !percent.IsPositive() || percent.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return ErrInvalidAmount
	}
	return s.vendorRepo.UpdateCommissionPercent(ctx, id, percent)
}
