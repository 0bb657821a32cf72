package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"remitsystem/internal/config"
	"remitsystem/internal/infrastructure/lock"
	"remitsystem/internal/model"
	"remitsystem/internal/repository"
	"remitsystem/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrIllegalTransition = errors.New("不允许的状态流转")
	ErrEditWindowExpired = errors.New("编辑窗口已关闭")
	ErrReasonRequired    = errors.New("驳回/取消必须填写原因")
)

// TransactionService 交易状态机
// 每个外部动作都是一次原子单元：事务内读最新状态、校验合法性、
// 写新状态并追加一条审计历史
type TransactionService struct {
	db              *gorm.DB
	redisClient     *redis.Client
	cfg             *config.Config
	rateService     *RateService
	transactionRepo *repository.TransactionRepository
	vendorRepo      *repository.VendorRepository
	outboxRepo      *repository.OutboxRepository
}

func NewTransactionService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, rateService *RateService) *TransactionService {
	return &TransactionService{
		db:              db,
		redisClient:     redisClient,
		cfg:             cfg,
		rateService:     rateService,
		transactionRepo: repository.NewTransactionRepository(db),
		vendorRepo:      repository.NewVendorRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
	}
}

func (s *TransactionService) editWindow() time.Duration {
	return time.Duration(s.cfg.Business.EditWindowMinutes) * time.Minute
}

// ============================================================
// 创建
// ============================================================

type BeneficiarySnapshot struct {
	Name        string `json:"name" binding:"required"`
	DocumentID  string `json:"document_id" binding:"required"`
	Bank        string `json:"bank" binding:"required"`
	AccountNo   string `json:"account_no" binding:"required"`
	AccountType string `json:"account_type"`
	Phone       string `json:"phone"`
}

type CreateTransactionRequest struct {
	Beneficiary       BeneficiarySnapshot
	AmountOrigin      *decimal.Decimal
	AmountDestination *decimal.Decimal
	CommissionPercent *decimal.Decimal // 单笔覆盖比例（议价汇率时应低于常设比例），创建时一次性确定
	Note              string
}

// Create 商户录入汇款请求
// 挂牌汇率在此刻快照；只给定一侧金额时按快照汇率推导另一侧
func (s *TransactionService) Create(ctx context.Context, actor model.Actor, req *CreateTransactionRequest) (*model.RemitTransaction, error) {
	if actor.Role != model.RoleVendor {
		return nil, ErrForbidden
	}

	vendor, err := s.vendorRepo.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	saleRate, err := s.rateService.ActiveSaleRate(ctx)
	if err != nil {
		return nil, err
	}

	amountOrigin, amountDestination, err := resolveAmounts(req.AmountOrigin, req.AmountDestination, saleRate)
	if err != nil {
		return nil, err
	}

	if req.CommissionPercent != nil {
		if !req.CommissionPercent.IsPositive() || req.CommissionPercent.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return nil, ErrInvalidAmount
		}
	}

	now := time.Now()
	trans := &model.RemitTransaction{
		TxNo:                   idgen.GenerateTxNo(),
		VendorID:               vendor.ID,
		AdminID:                vendor.AdminID,
		BeneficiaryName:        req.Beneficiary.Name,
		BeneficiaryDocumentID:  req.Beneficiary.DocumentID,
		BeneficiaryBank:        req.Beneficiary.Bank,
		BeneficiaryAccountNo:   req.Beneficiary.AccountNo,
		BeneficiaryAccountType: req.Beneficiary.AccountType,
		BeneficiaryPhone:       req.Beneficiary.Phone,
		AmountOrigin:           amountOrigin,
		AmountDestination:      amountDestination,
		SaleRate:               saleRate,
		CommissionPercent:      req.CommissionPercent,
		Status:                 model.StatusPending,
		Note:                   req.Note,
		LastEditedAt:           now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("创建交易失败: %w", err)
		}
		return s.transactionRepo.AppendHistory(ctx, tx, &model.TransactionStatusHistory{
			TransactionID: trans.ID,
			FromStatus:    "",
			ToStatus:      model.StatusPending,
			ActorID:       actor.ID,
			ActorRole:     actor.Role,
			Note:          "创建",
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("交易创建成功: txNo=%s, vendorID=%d, origin=%s, dest=%s, rate=%s",
		trans.TxNo, vendor.ID, amountOrigin, amountDestination, saleRate)
	return trans, nil
}

// resolveAmounts 补齐缺失一侧的金额；两侧都给定时以来源币为准重新推导，
// 保证任何时刻两侧金额与快照汇率自洽
// 给定的任何一侧金额非正都整体拒绝，不做静默丢弃
func resolveAmounts(origin, destination *decimal.Decimal, saleRate decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if origin != nil && !origin.IsPositive() {
		return decimal.Zero, decimal.Zero, ErrInvalidAmount
	}
	if destination != nil && !destination.IsPositive() {
		return decimal.Zero, decimal.Zero, ErrInvalidAmount
	}

	if origin != nil {
		return *origin, DeriveDestinationAmount(*origin, saleRate), nil
	}
	if destination != nil {
		return DeriveOriginAmount(*destination, saleRate), *destination, nil
	}
	return decimal.Zero, decimal.Zero, ErrInvalidAmount
}

// ============================================================
// 编辑（5分钟窗口）
// ============================================================

// EnterEditMode 进入编辑模式
// 只做窗口判定，不重置计时；窗口从最近一次编辑起算
func (s *TransactionService) EnterEditMode(ctx context.Context, actor model.Actor, id int64) (*model.RemitTransaction, error) {
	trans, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanActOn(trans) {
		return nil, ErrForbidden
	}
	if trans.Status != model.StatusPending || !model.EditWindowOpen(trans.LastEditedAt, time.Now(), s.editWindow()) {
		return nil, ErrEditWindowExpired
	}
	return trans, nil
}

type EditTransactionRequest struct {
	AmountOrigin      *decimal.Decimal
	AmountDestination *decimal.Decimal
	Beneficiary       *BeneficiarySnapshot
	Note              *string
}

// Edit 编辑交易
// 同一笔交易的并发编辑经分布式锁串行化；拿到锁后在数据库事务内
// 重读最新行再校验窗口，不信任进锁前的快照
func (s *TransactionService) Edit(ctx context.Context, actor model.Actor, id int64, req *EditTransactionRequest) (*model.RemitTransaction, error) {
	trans, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanActOn(trans) {
		return nil, ErrForbidden
	}

	editLock := lock.NewEditLock(s.redisClient, id, fmt.Sprintf("%s:%d", actor.Role, actor.ID))
	if err := editLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer editLock.Unlock(ctx)

	var updated *model.RemitTransaction
	err = s.db.Transaction(func(tx *gorm.DB) error {
		fresh, err := s.transactionRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		now := time.Now()
		if fresh.Status != model.StatusPending || !model.EditWindowOpen(fresh.LastEditedAt, now, s.editWindow()) {
			return ErrEditWindowExpired
		}

		updates := map[string]interface{}{
			"last_edited_at": now,
		}

		if req.AmountOrigin != nil || req.AmountDestination != nil {
			amountOrigin, amountDestination, err := resolveAmounts(req.AmountOrigin, req.AmountDestination, fresh.SaleRate)
			if err != nil {
				return err
			}
			updates["amount_origin"] = amountOrigin
			updates["amount_destination"] = amountDestination
		}

		if req.Beneficiary != nil {
			applyBeneficiary(updates, req.Beneficiary)
		}
		if req.Note != nil {
			updates["note"] = *req.Note
		}

		if err := s.transactionRepo.UpdateFields(ctx, tx, id, updates); err != nil {
			return err
		}

		updated, err = s.transactionRepo.GetByIDForUpdate(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// applyBeneficiary 重新快照收款人字段
func applyBeneficiary(updates map[string]interface{}, b *BeneficiarySnapshot) {
	updates["beneficiary_name"] = b.Name
	updates["beneficiary_document_id"] = b.DocumentID
	updates["beneficiary_bank"] = b.Bank
	updates["beneficiary_account_no"] = b.AccountNo
	updates["beneficiary_account_type"] = b.AccountType
	updates["beneficiary_phone"] = b.Phone
}

// ============================================================
// 状态推进
// ============================================================

// Advance 按流转表推进状态
// 终态交易任何推进都同步拒绝，不排队不重试
func (s *TransactionService) Advance(ctx context.Context, actor model.Actor, id int64, targetStatus, note string) error {
	return s.transition(ctx, actor, id, targetStatus, note, nil)
}

// Reject 驳回（终态），原因必填且单独存储
func (s *TransactionService) Reject(ctx context.Context, actor model.Actor, id int64, reason string) error {
	if reason == "" {
		return ErrReasonRequired
	}
	return s.transition(ctx, actor, id, model.StatusRejected, reason, map[string]interface{}{
		"reject_reason": reason,
	})
}

// Cancel 取消（终态），目标状态按角色区分
func (s *TransactionService) Cancel(ctx context.Context, actor model.Actor, id int64, reason string) error {
	if reason == "" {
		return ErrReasonRequired
	}
	target := model.StatusCancelledByAdmin
	if actor.Role == model.RoleVendor {
		target = model.StatusCancelledByVendor
	}
	return s.transition(ctx, actor, id, target, reason, map[string]interface{}{
		"reject_reason": reason,
	})
}

// transition 状态流转的统一入口
// 条件更新 + 历史追加在同一事务内，缓存的 status 永远等于
// 最新一条历史的 to_status
func (s *TransactionService) transition(ctx context.Context, actor model.Actor, id int64, targetStatus, note string, extra map[string]interface{}) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		trans, err := s.transactionRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !actor.CanActOn(trans) {
			return ErrForbidden
		}
		if model.IsTerminalStatus(trans.Status) {
			return ErrIllegalTransition
		}
		if !model.CanTransitionTo(trans.Status, actor.Role, targetStatus) {
			return ErrIllegalTransition
		}

		if extra == nil {
			extra = map[string]interface{}{}
		}
		now := time.Now()
		if targetStatus == model.StatusCompleted {
			extra["completed_at"] = now
		}

		if err := s.transactionRepo.UpdateStatus(ctx, tx, id, trans.Status, targetStatus, extra); err != nil {
			return err
		}

		if err := s.transactionRepo.AppendHistory(ctx, tx, &model.TransactionStatusHistory{
			TransactionID: id,
			FromStatus:    trans.Status,
			ToStatus:      targetStatus,
			ActorID:       actor.ID,
			ActorRole:     actor.Role,
			Note:          note,
		}); err != nil {
			return fmt.Errorf("记录流转历史失败: %w", err)
		}

		if targetStatus == model.StatusCompleted {
			return s.writeCompletedEvent(ctx, tx, trans, now)
		}
		return nil
	})
}

// writeCompletedEvent 完成事件写入发件箱，随事务一起提交
func (s *TransactionService) writeCompletedEvent(ctx context.Context, tx *gorm.DB, trans *model.RemitTransaction, completedAt time.Time) error {
	payload := map[string]interface{}{
		"tx_no":              trans.TxNo,
		"vendor_id":          trans.VendorID,
		"admin_id":           trans.AdminID,
		"amount_origin":      trans.AmountOrigin.String(),
		"amount_destination": trans.AmountDestination.String(),
		"sale_rate":          trans.SaleRate.String(),
		"completed_at":       completedAt.Format(time.RFC3339),
	}
	payloadBytes, _ := json.Marshal(payload)

	return s.outboxRepo.Create(ctx, tx, &model.OutboxMessage{
		MessageKey: trans.TxNo,
		Topic:      s.cfg.Kafka.Topic.TransactionCompleted,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	})
}

// ============================================================
// 重新提交
// ============================================================

// Resend 被驳回的交易修正后重新提交
// 只允许从 REJECTED 回到 PENDING；原驳回原因保留在历史里不抹除
func (s *TransactionService) Resend(ctx context.Context, actor model.Actor, id int64, req *EditTransactionRequest) error {
	if actor.Role != model.RoleVendor {
		return ErrForbidden
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		trans, err := s.transactionRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !actor.CanActOn(trans) {
			return ErrForbidden
		}
		if trans.Status != model.StatusRejected {
			return ErrIllegalTransition
		}

		now := time.Now()
		extra := map[string]interface{}{
			"last_edited_at": now,
			"reject_reason":  "",
		}

		if req != nil {
			if req.AmountOrigin != nil || req.AmountDestination != nil {
				amountOrigin, amountDestination, err := resolveAmounts(req.AmountOrigin, req.AmountDestination, trans.SaleRate)
				if err != nil {
					return err
				}
				extra["amount_origin"] = amountOrigin
				extra["amount_destination"] = amountDestination
			}
			if req.Beneficiary != nil {
				applyBeneficiary(extra, req.Beneficiary)
			}
			if req.Note != nil {
				extra["note"] = *req.Note
			}
		}

		if err := s.transactionRepo.UpdateStatus(ctx, tx, id, model.StatusRejected, model.StatusPending, extra); err != nil {
			return err
		}

		return s.transactionRepo.AppendHistory(ctx, tx, &model.TransactionStatusHistory{
			TransactionID: id,
			FromStatus:    model.StatusRejected,
			ToStatus:      model.StatusPending,
			ActorID:       actor.ID,
			ActorRole:     actor.Role,
			Note:          "修正后重新提交",
		})
	})
}

// ============================================================
// 查询
// ============================================================

func (s *TransactionService) Get(ctx context.Context, actor model.Actor, id int64) (*model.RemitTransaction, error) {
	trans, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanActOn(trans) {
		return nil, ErrForbidden
	}
	return trans, nil
}

func (s *TransactionService) History(ctx context.Context, actor model.Actor, id int64) ([]*model.TransactionStatusHistory, error) {
	trans, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanActOn(trans) {
		return nil, ErrForbidden
	}
	return s.transactionRepo.ListHistory(ctx, id)
}

func (s *TransactionService) ListByVendor(ctx context.Context, actor model.Actor, vendorID int64, page, pageSize int) ([]*model.RemitTransaction, int64, error) {
	if actor.Role == model.RoleVendor && actor.ID != vendorID {
		return nil, 0, ErrForbidden
	}
	return s.transactionRepo.ListByVendor(ctx, vendorID, page, pageSize)
}

func (s *TransactionService) ListByStatus(ctx context.Context, actor model.Actor, status string, page, pageSize int) ([]*model.RemitTransaction, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, ErrForbidden
	}
	return s.transactionRepo.ListByStatus(ctx, status, page, pageSize)
}
