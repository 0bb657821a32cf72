package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo_MainFlow(t *testing.T) {
	// 主链路：商户提交 -> 目的国审核 -> 来源国审核 -> 完成
	assert.True(t, CanTransitionTo(StatusPending, RoleVendor, StatusPendingDestinationReview))
	assert.True(t, CanTransitionTo(StatusPendingDestinationReview, RoleAdminDestination, StatusPendingOriginReview))
	assert.True(t, CanTransitionTo(StatusPendingOriginReview, RoleAdminOrigin, StatusCompleted))
}

func TestCanTransitionTo_RoleGating(t *testing.T) {
	// 只有商户能提交审核
	assert.False(t, CanTransitionTo(StatusPending, RoleAdminDestination, StatusPendingDestinationReview))
	assert.False(t, CanTransitionTo(StatusPending, RoleAdminOrigin, StatusPendingDestinationReview))

	// 只有来源国管理员能完成付款
	assert.False(t, CanTransitionTo(StatusPendingOriginReview, RoleAdminDestination, StatusCompleted))
	assert.False(t, CanTransitionTo(StatusPendingOriginReview, RoleVendor, StatusCompleted))

	// 商户不能替管理员取消，管理员不能替商户取消
	assert.False(t, CanTransitionTo(StatusPending, RoleVendor, StatusCancelledByAdmin))
	assert.False(t, CanTransitionTo(StatusPending, RoleAdminDestination, StatusCancelledByVendor))
}

func TestCanTransitionTo_NoSkipping(t *testing.T) {
	// 不允许跳过中间审核环节
	assert.False(t, CanTransitionTo(StatusPending, RoleVendor, StatusPendingOriginReview))
	assert.False(t, CanTransitionTo(StatusPending, RoleAdminOrigin, StatusCompleted))
	assert.False(t, CanTransitionTo(StatusPendingDestinationReview, RoleAdminDestination, StatusCompleted))
}

func TestCanTransitionTo_CancelAndReject(t *testing.T) {
	// 任意非终态商户都可取消自己的交易
	for _, from := range []string{StatusPending, StatusPendingDestinationReview, StatusPendingOriginReview} {
		assert.True(t, CanTransitionTo(from, RoleVendor, StatusCancelledByVendor), "from=%s", from)
	}

	// 任意非终态两位管理员都可驳回或取消
	for _, from := range []string{StatusPending, StatusPendingDestinationReview, StatusPendingOriginReview} {
		for _, role := range []string{RoleAdminDestination, RoleAdminOrigin} {
			assert.True(t, CanTransitionTo(from, role, StatusRejected), "from=%s role=%s", from, role)
			assert.True(t, CanTransitionTo(from, role, StatusCancelledByAdmin), "from=%s role=%s", from, role)
		}
	}
}

func TestCanTransitionTo_TerminalStatesFrozen(t *testing.T) {
	terminals := []string{StatusCompleted, StatusRejected, StatusCancelledByVendor, StatusCancelledByAdmin}
	targets := []string{
		StatusPending, StatusPendingDestinationReview, StatusPendingOriginReview,
		StatusCompleted, StatusRejected, StatusCancelledByVendor, StatusCancelledByAdmin,
	}
	roles := []string{RoleVendor, RoleAdminDestination, RoleAdminOrigin}

	for _, from := range terminals {
		assert.True(t, IsTerminalStatus(from), "status=%s", from)
		for _, role := range roles {
			for _, to := range targets {
				assert.False(t, CanTransitionTo(from, role, to), "from=%s role=%s to=%s", from, role, to)
			}
		}
	}
}

func TestIsTerminalStatus(t *testing.T) {
	assert.False(t, IsTerminalStatus(StatusPending))
	assert.False(t, IsTerminalStatus(StatusPendingDestinationReview))
	assert.False(t, IsTerminalStatus(StatusPendingOriginReview))
	assert.True(t, IsTerminalStatus(StatusCompleted))
	assert.True(t, IsTerminalStatus(StatusRejected))
}

func TestEditWindowOpen(t *testing.T) {
	window := 5 * time.Minute
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)

	// 窗口内（4分钟）
	assert.True(t, EditWindowOpen(base, base.Add(4*time.Minute), window))
	// 窗口外（6分钟）
	assert.False(t, EditWindowOpen(base, base.Add(6*time.Minute), window))
	// 边界：恰好5分钟视为过期
	assert.False(t, EditWindowOpen(base, base.Add(5*time.Minute), window))
}

func TestValidVendorPaymentMethod(t *testing.T) {
	assert.True(t, ValidVendorPaymentMethod(VendorPaymentMethodCash))
	assert.True(t, ValidVendorPaymentMethod(VendorPaymentMethodBankDepositA))
	assert.True(t, ValidVendorPaymentMethod(VendorPaymentMethodBankDepositB))
	assert.False(t, ValidVendorPaymentMethod("WIRE"))
	assert.False(t, ValidVendorPaymentMethod(""))
}
