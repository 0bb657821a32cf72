package service

import (
	"context"
	"errors"
	"fmt"

	"remitsystem/internal/model"
	"remitsystem/internal/repository"
	"remitsystem/pkg/idgen"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrInvalidAccountType = errors.New("不支持的账户类型")

// AccountService 目的国管理员的现金/银行账户
// 每次出入账都在同一事务内：行锁读余额 -> 版本号条件更新 -> 写流水，
// 账户当前余额恒等于最新一条流水的 balance_after
type AccountService struct {
	db          *gorm.DB
	accountRepo *repository.AccountRepository
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{
		db:          db,
		accountRepo: repository.NewAccountRepository(db),
	}
}

func (s *AccountService) CreateAccount(ctx context.Context, actor model.Actor, name, accountType string) (*model.Account, error) {
	if actor.Role != model.RoleAdminDestination {
		return nil, ErrForbidden
	}
	if accountType != model.AccountTypeCash && accountType != model.AccountTypeBank {
		return nil, ErrInvalidAccountType
	}

	account := &model.Account{
		AdminID: actor.ID,
		Name:    name,
		Type:    accountType,
		Balance: decimal.Zero,
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Deposit 入账
// remitTransactionID 可选，用于把一笔现金变动挂到具体汇款交易上
func (s *AccountService) Deposit(ctx context.Context, actor model.Actor, accountID int64, amount decimal.Decimal, remark string, remitTransactionID *int64) (*model.AccountTransaction, error) {
	return s.applyFlow(ctx, actor, accountID, amount, model.FlowTypeDeposit, remark, remitTransactionID)
}

// Withdraw 出账，余额不足时拒绝
func (s *AccountService) Withdraw(ctx context.Context, actor model.Actor, accountID int64, amount decimal.Decimal, remark string, remitTransactionID *int64) (*model.AccountTransaction, error) {
	return s.applyFlow(ctx, actor, accountID, amount, model.FlowTypeWithdraw, remark, remitTransactionID)
}

func (s *AccountService) applyFlow(ctx context.Context, actor model.Actor, accountID int64, amount decimal.Decimal, flowType, remark string, remitTransactionID *int64) (*model.AccountTransaction, error) {
	if actor.Role != model.RoleAdminDestination {
		return nil, ErrForbidden
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var flow *model.AccountTransaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		account, err := s.accountRepo.GetByIDForUpdate(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if account.AdminID != actor.ID {
			return ErrForbidden
		}

		signed := amount
		if flowType == model.FlowTypeWithdraw {
			signed = amount.Neg()
			if err := s.accountRepo.Withdraw(ctx, tx, accountID, amount, account.Version); err != nil {
				return err
			}
		} else {
			if err := s.accountRepo.Deposit(ctx, tx, accountID, amount, account.Version); err != nil {
				return err
			}
		}

		flow = &model.AccountTransaction{
			FlowNo:             idgen.GenerateFlowNo(),
			AccountID:          accountID,
			RemitTransactionID: remitTransactionID,
			Amount:             signed,
			Type:               flowType,
			BalanceBefore:      account.Balance,
			BalanceAfter:       account.Balance.Add(signed),
			Remark:             remark,
		}
		if err := s.accountRepo.CreateFlow(ctx, tx, flow); err != nil {
			return fmt.Errorf("记录账户流水失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return flow, nil
}

func (s *AccountService) GetAccount(ctx context.Context, actor model.Actor, id int64) (*model.Account, error) {
	if actor.Role != model.RoleAdminDestination {
		return nil, ErrForbidden
	}
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account.AdminID != actor.ID {
		return nil, ErrForbidden
	}
	return account, nil
}

func (s *AccountService) ListAccounts(ctx context.Context, actor model.Actor) ([]*model.Account, error) {
	if actor.Role != model.RoleAdminDestination {
		return nil, ErrForbidden
	}
	return s.accountRepo.ListByAdmin(ctx, actor.ID)
}

func (s *AccountService) ListFlows(ctx context.Context, actor model.Actor, accountID int64, page, pageSize int) ([]*model.AccountTransaction, int64, error) {
	if _, err := s.GetAccount(ctx, actor, accountID); err != nil {
		return nil, 0, err
	}
	return s.accountRepo.ListFlows(ctx, accountID, page, pageSize)
}
