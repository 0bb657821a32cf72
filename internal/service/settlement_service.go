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
	ErrAlreadySettled         = errors.New("该操作已生效，请勿重复执行")
	ErrInvalidPaymentMethod   = errors.New("不支持的回款方式")
	ErrVendorPaymentNotMarked = errors.New("商户尚未标记回款，无法复核")
)

// SettlementService 结算记录器
// 还款记录、佣金标记、商户回款标记三类写入，全部走"事务内读最新
// 状态、校验、写入"的原子路径；金融写入失败只向上抛，绝不自动重试
type SettlementService struct {
	db              *gorm.DB
	redisClient     *redis.Client
	cfg             *config.Config
	paymentRepo     *repository.PaymentRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
}

func NewSettlementService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *SettlementService {
	return &SettlementService{
		db:              db,
		redisClient:     redisClient,
		cfg:             cfg,
		paymentRepo:     repository.NewPaymentRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
	}
}

// ============================================================
// 管理员间还款
// ============================================================

type RecordPaymentRequest struct {
	Amount      decimal.Decimal
	Note        string
	ProofRef    string
	PaymentDate *time.Time // 实际付款日，缺省取当前时间
}

// RecordPayment 录入一笔（全额或部分）还款
// 金额不设上限：超付允许，体现在待付债务为负
func (s *SettlementService) RecordPayment(ctx context.Context, actor model.Actor, req *RecordPaymentRequest) (*model.DebtPayment, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	paymentDate := time.Now()
	if req.PaymentDate != nil {
		paymentDate = *req.PaymentDate
	}

	payment := &model.DebtPayment{
		PaymentNo:      idgen.GeneratePaymentNo(),
		Amount:         req.Amount,
		Note:           req.Note,
		ProofRef:       req.ProofRef,
		PaymentDate:    paymentDate,
		RecordedBy:     actor.ID,
		RecordedByRole: actor.Role,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
			return fmt.Errorf("录入还款失败: %w", err)
		}

		payload := map[string]interface{}{
			"payment_no":   payment.PaymentNo,
			"amount":       payment.Amount.String(),
			"payment_date": paymentDate.Format(time.RFC3339),
			"recorded_by":  actor.ID,
		}
		payloadBytes, _ := json.Marshal(payload)

		return s.outboxRepo.Create(ctx, tx, &model.OutboxMessage{
			MessageKey: payment.PaymentNo,
			Topic:      s.cfg.Kafka.Topic.SettlementRecorded,
			Payload:    string(payloadBytes),
			Status:     model.OutboxStatusPending,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("还款录入成功: paymentNo=%s, amount=%s, actorID=%d", payment.PaymentNo, req.Amount, actor.ID)
	return payment, nil
}

// DeletePayment 删除还款记录
// 删除不受限但必须留痕；删除已删除的记录按重复结算处理
// 调用方删除后需重新跑债务聚合
func (s *SettlementService) DeletePayment(ctx context.Context, actor model.Actor, id int64) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}

	err := s.paymentRepo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return ErrAlreadySettled
		}
		return err
	}

	log.Printf("还款记录已删除: paymentID=%d, actorID=%d, actorRole=%s", id, actor.ID, actor.Role)
	return nil
}

// ============================================================
// 佣金标记
// ============================================================

// MarkCommissionPaidResult 实际生效与已付跳过的ID集合
// 重试或并发的同一批请求不会二次计账
type MarkCommissionPaidResult struct {
	Paid           []int64 `json:"paid"`
	AlreadySettled []int64 `json:"already_settled"`
}

// MarkCommissionPaid 批量标记佣金已付（幂等）
// 已标记的ID静默跳过而不是报错，at-least-once 重试安全；
// commission_paid_at 只在首次标记时写入，之后不变
func (s *SettlementService) MarkCommissionPaid(ctx context.Context, actor model.Actor, ids []int64) (*MarkCommissionPaidResult, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if len(ids) == 0 {
		return &MarkCommissionPaidResult{Paid: []int64{}, AlreadySettled: []int64{}}, nil
	}

	settleLock := lock.NewSettleLock(s.redisClient, actor.ID, fmt.Sprintf("commission:%d", time.Now().UnixNano()))
	if err := settleLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer settleLock.Unlock(ctx)

	result := &MarkCommissionPaidResult{Paid: []int64{}, AlreadySettled: []int64{}}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		unpaid, err := s.transactionRepo.GetUnpaidCommissionIDs(ctx, tx, ids)
		if err != nil {
			return err
		}

		if len(unpaid) > 0 {
			if _, err := s.transactionRepo.MarkCommissionPaid(ctx, tx, unpaid, time.Now()); err != nil {
				return fmt.Errorf("标记佣金失败: %w", err)
			}
		}

		unpaidSet := make(map[int64]bool, len(unpaid))
		for _, id := range unpaid {
			unpaidSet[id] = true
		}
		for _, id := range ids {
			if unpaidSet[id] {
				result.Paid = append(result.Paid, id)
			} else {
				result.AlreadySettled = append(result.AlreadySettled, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("佣金标记完成: actorID=%d, 生效=%d笔, 跳过=%d笔", actor.ID, len(result.Paid), len(result.AlreadySettled))
	return result, nil
}

// ============================================================
// 商户回款标记与复核
// ============================================================
//
// is_paid_by_vendor（商户实收客户款项并上缴）与
// is_commission_paid_to_vendor（应付商户的佣金）是同一笔交易上
// 两个互相独立的标记，撤销操作也各自独立
// ============================================================

// MarkPaidByVendor 商户标记已回款
func (s *SettlementService) MarkPaidByVendor(ctx context.Context, actor model.Actor, id int64, method, proofRef string) error {
	if actor.Role != model.RoleVendor {
		return ErrForbidden
	}
	if !model.ValidVendorPaymentMethod(method) {
		return ErrInvalidPaymentMethod
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		trans, err := s.transactionRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !actor.CanActOn(trans) {
			return ErrForbidden
		}
		if trans.IsPaidByVendor {
			return ErrAlreadySettled
		}

		return s.transactionRepo.UpdateFields(ctx, tx, id, map[string]interface{}{
			"is_paid_by_vendor":         true,
			"paid_by_vendor_at":         time.Now(),
			"vendor_payment_method":     method,
			"vendor_payment_proof_ref":  proofRef,
			"payment_rejected_by_admin": false,
			"payment_rejected_at":       nil,
		})
	})
}

// UnmarkPaid 撤销商户回款标记（纠错用）
// 只清回款标记，佣金标记保持不动
func (s *SettlementService) UnmarkPaid(ctx context.Context, actor model.Actor, id int64) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		trans, err := s.transactionRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !trans.IsPaidByVendor {
			return ErrAlreadySettled
		}

		log.Printf("撤销商户回款标记: transactionID=%d, actorID=%d, actorRole=%s", id, actor.ID, actor.Role)
		return s.transactionRepo.UpdateFields(ctx, tx, id, map[string]interface{}{
			"is_paid_by_vendor":      false,
			"paid_by_vendor_at":      nil,
			"admin_verified_payment": false,
			"admin_verified_at":      nil,
		})
	})
}

// VerifyVendorPayment 管理员复核商户回款
// 只设置独立的复核标记，不改动 is_paid_by_vendor
func (s *SettlementService) VerifyVendorPayment(ctx context.Context, actor model.Actor, id int64) error {
	if actor.Role != model.RoleAdminDestination {
		return ErrForbidden
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		trans, err := s.transactionRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !trans.IsPaidByVendor {
			return ErrVendorPaymentNotMarked
		}

		return s.transactionRepo.UpdateFields(ctx, tx, id, map[string]interface{}{
			"admin_verified_payment":    true,
			"admin_verified_at":         time.Now(),
			"payment_rejected_by_admin": false,
			"payment_rejected_at":       nil,
		})
	})
}

// RejectVendorPayment 管理员否决商户回款（凭证不符等）
func (s *SettlementService) RejectVendorPayment(ctx context.Context, actor model.Actor, id int64) error {
	if actor.Role != model.RoleAdminDestination {
		return ErrForbidden
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		trans, err := s.transactionRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !trans.IsPaidByVendor {
			return ErrVendorPaymentNotMarked
		}

		return s.transactionRepo.UpdateFields(ctx, tx, id, map[string]interface{}{
			"payment_rejected_by_admin": true,
			"payment_rejected_at":       time.Now(),
			"admin_verified_payment":    false,
			"admin_verified_at":         nil,
		})
	})
}

// GetPayment 查询单笔还款记录
func (s *SettlementService) GetPayment(ctx context.Context, actor model.Actor, id int64) (*model.DebtPayment, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.paymentRepo.GetByID(ctx, id)
}

// ListPayments 查询还款记录（from/to 为空表示不限）
func (s *SettlementService) ListPayments(ctx context.Context, actor model.Actor, from, to *time.Time) ([]*model.DebtPayment, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.paymentRepo.ListInRange(ctx, from, to)
}
