package handler

import (
	"time"

	"remitsystem/internal/service"
	"remitsystem/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ============================================================
// 结算相关接口：还款、佣金、商户打款
// ============================================================

// RecordPaymentRequest 录入还款请求
type RecordPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Note        string          `json:"note"`
	ProofRef    string          `json:"proof_ref"`
	PaymentDate string          `json:"payment_date"` // 2006-01-02，缺省取当前时间
}

// RecordPayment 录入一笔还款
// POST /api/v1/settlement/payment
func (h *Handler) RecordPayment(c *gin.Context) {
	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	svcReq := &service.RecordPaymentRequest{
		Amount:   req.Amount,
		Note:     req.Note,
		ProofRef: req.ProofRef,
	}
	if req.PaymentDate != "" {
		t, err := time.ParseInLocation("2006-01-02", req.PaymentDate, time.Local)
		if err != nil {
			response.ParamError(c, "payment_date 参数格式错误")
			return
		}
		svcReq.PaymentDate = &t
	}

	payment, err := h.settlementService.RecordPayment(c.Request.Context(), GetActor(c), svcReq)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, payment)
}

// GetPayment 查询还款记录
// GET /api/v1/settlement/payment/:id
func (h *Handler) GetPayment(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	payment, err := h.settlementService.GetPayment(c.Request.Context(), GetActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, payment)
}

// ListPayments 查询还款记录列表
// GET /api/v1/settlement/payment/list?from=2026-01-01&to=2026-01-31
func (h *Handler) ListPayments(c *gin.Context) {
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}

	payments, err := h.settlementService.ListPayments(c.Request.Context(), GetActor(c), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, payments)
}

// DeletePayment 删除还款记录（删除后债务聚合自动回升）
// DELETE /api/v1/settlement/payment/:id
func (h *Handler) DeletePayment(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.settlementService.DeletePayment(c.Request.Context(), GetActor(c), id); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "还款记录已删除"})
}

// MarkCommissionPaidRequest 批量标记佣金已付请求
type MarkCommissionPaidRequest struct {
	TransactionIDs []int64 `json:"transaction_ids" binding:"required"`
}

// MarkCommissionPaid 批量标记佣金已付（幂等）
// POST /api/v1/settlement/commission/mark-paid
func (h *Handler) MarkCommissionPaid(c *gin.Context) {
	var req MarkCommissionPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.settlementService.MarkCommissionPaid(c.Request.Context(), GetActor(c), req.TransactionIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, result)
}

// MarkPaidRequest 商户标记已打款请求
type MarkPaidRequest struct {
	Method   string `json:"method" binding:"required"`
	ProofRef string `json:"proof_ref"`
}

// MarkPaidByVendor 商户标记已向管理员打款
// POST /api/v1/settlement/vendor-payment/:id/mark
func (h *Handler) MarkPaidByVendor(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req MarkPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.settlementService.MarkPaidByVendor(c.Request.Context(), GetActor(c), id, req.Method, req.ProofRef); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "已标记打款"})
}

// UnmarkPaid 管理员撤销打款标记
// POST /api/v1/settlement/vendor-payment/:id/unmark
func (h *Handler) UnmarkPaid(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.settlementService.UnmarkPaid(c.Request.Context(), GetActor(c), id); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "打款标记已撤销"})
}

// VerifyVendorPayment 接收端管理员确认商户打款已到账
// POST /api/v1/settlement/vendor-payment/:id/verify
func (h *Handler) VerifyVendorPayment(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.settlementService.VerifyVendorPayment(c.Request.Context(), GetActor(c), id); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "打款已确认"})
}

// RejectVendorPayment 接收端管理员标记商户打款未到账
// POST /api/v1/settlement/vendor-payment/:id/reject
func (h *Handler) RejectVendorPayment(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.settlementService.RejectVendorPayment(c.Request.Context(), GetActor(c), id); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "已标记未到账"})
}
