package handler

import (
	"errors"
	"strconv"
	"time"

	"remitsystem/internal/config"
	"remitsystem/internal/repository"
	"remitsystem/internal/service"
	"remitsystem/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	rateService        *service.RateService
	transactionService *service.TransactionService
	debtService        *service.DebtService
	settlementService  *service.SettlementService
	accountService     *service.AccountService
	vendorService      *service.VendorService
	reportService      *service.ReportService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	rateService := service.NewRateService(db, rdb, cfg)
	return &Handler{
		rateService:        rateService,
		transactionService: service.NewTransactionService(db, rdb, cfg, rateService),
		debtService:        service.NewDebtService(db),
		settlementService:  service.NewSettlementService(db, rdb, cfg),
		accountService:     service.NewAccountService(db),
		vendorService:      service.NewVendorService(db, cfg),
		reportService:      service.NewReportService(db),
	}
}

// respondError 把领域错误映射为统一的业务错误码
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrReasonRequired),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrInvalidAccountType):
		response.BusinessError(c, response.CodeInvalidAmount, err.Error())
	case errors.Is(err, service.ErrIllegalTransition),
		errors.Is(err, repository.ErrStatusConflict):
		response.BusinessError(c, response.CodeIllegalTransition, err.Error())
	case errors.Is(err, service.ErrEditWindowExpired):
		response.BusinessError(c, response.CodeEditWindowExpired, err.Error())
	case errors.Is(err, service.ErrStaleRate):
		response.BusinessError(c, response.CodeStaleRate, err.Error())
	case errors.Is(err, service.ErrRateFinalized):
		response.BusinessError(c, response.CodeRateFinalized, err.Error())
	case errors.Is(err, service.ErrAlreadySettled),
		errors.Is(err, service.ErrVendorPaymentNotMarked):
		response.BusinessError(c, response.CodeAlreadySettled, err.Error())
	case errors.Is(err, repository.ErrTransactionNotFound),
		errors.Is(err, repository.ErrVendorNotFound):
		response.BusinessError(c, response.CodeTransactionNotFound, err.Error())
	case errors.Is(err, repository.ErrPaymentNotFound):
		response.BusinessError(c, response.CodePaymentNotFound, err.Error())
	case errors.Is(err, repository.ErrBalanceNotEnough):
		response.BusinessError(c, response.CodeInsufficientBalance, err.Error())
	case errors.Is(err, repository.ErrAccountNotFound):
		response.Error(c, response.CodeNotFound, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}

func parseIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, "id 参数错误")
		return 0, false
	}
	return id, true
}

// parseDateRange 解析 from/to 查询参数（格式 2006-01-02，可省略）
func parseDateRange(c *gin.Context) (*time.Time, *time.Time, bool) {
	var from, to *time.Time
	if v := c.Query("from"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			response.ParamError(c, "from 参数格式错误")
			return nil, nil, false
		}
		from = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			response.ParamError(c, "to 参数格式错误")
			return nil, nil, false
		}
		// to 为闭区间日期，换成次日零点的开区间
		end := t.AddDate(0, 0, 1)
		to = &end
	}
	return from, to, true
}

func parsePaging(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return page, pageSize
}

// ============================================================
// 汇率相关接口
// ============================================================

// PublishRateRequest 挂牌汇率请求
type PublishRateRequest struct {
	Rate decimal.Decimal `json:"rate" binding:"required"`
}

// PublishRate 挂牌新卖出汇率
// POST /api/v1/rate/publish
func (h *Handler) PublishRate(c *gin.Context) {
	var req PublishRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	rate, err := h.rateService.PublishSaleRate(c.Request.Context(), GetActor(c), req.Rate)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, rate)
}

// GetActiveRate 查询当前生效卖出汇率
// GET /api/v1/rate/active
func (h *Handler) GetActiveRate(c *gin.Context) {
	rate, err := h.rateService.ActiveSaleRate(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"rate": rate})
}

// ListRates 最近挂牌历史
// GET /api/v1/rate/history?limit=20
func (h *Handler) ListRates(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	rates, err := h.rateService.ListRecentRates(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, rates)
}

// SetPurchaseRateRequest 按笔回填成本汇率请求
type SetPurchaseRateRequest struct {
	Rate  decimal.Decimal `json:"rate" binding:"required"`
	Final bool            `json:"final"`
}

// SetPurchaseRate 按笔回填成本汇率
// POST /api/v1/rate/purchase/:id
func (h *Handler) SetPurchaseRate(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req SetPurchaseRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.rateService.SetPurchaseRate(c.Request.Context(), GetActor(c), id, req.Rate, req.Final); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "成本汇率已更新"})
}

// ApplyPurchaseRateRangeRequest 批量回填成本汇率请求
type ApplyPurchaseRateRangeRequest struct {
	From  string          `json:"from" binding:"required"` // 2006-01-02
	To    string          `json:"to" binding:"required"`
	Rate  decimal.Decimal `json:"rate" binding:"required"`
	Final bool            `json:"final"`
}

// ApplyPurchaseRateRange 按完成日期范围批量回填成本汇率
// POST /api/v1/rate/purchase/bulk
func (h *Handler) ApplyPurchaseRateRange(c *gin.Context) {
	var req ApplyPurchaseRateRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	from, err := time.ParseInLocation("2006-01-02", req.From, time.Local)
	if err != nil {
		response.ParamError(c, "from 参数格式错误")
		return
	}
	to, err := time.ParseInLocation("2006-01-02", req.To, time.Local)
	if err != nil {
		response.ParamError(c, "to 参数格式错误")
		return
	}

	affected, err := h.rateService.ApplyPurchaseRateRange(
		c.Request.Context(), GetActor(c), from, to.AddDate(0, 0, 1), req.Rate, req.Final)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"affected": affected})
}

// ============================================================
// 交易相关接口
// ============================================================

// CreateTransactionRequest 创建交易请求
type CreateTransactionRequest struct {
	Beneficiary       service.BeneficiarySnapshot `json:"beneficiary" binding:"required"`
	AmountOrigin      *decimal.Decimal            `json:"amount_origin"`
	AmountDestination *decimal.Decimal            `json:"amount_destination"`
	CommissionPercent *decimal.Decimal            `json:"commission_percent"`
	Note              string                      `json:"note"`
}

// CreateTransaction 商户录入汇款请求
// POST /api/v1/transaction/create
func (h *Handler) CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	trans, err := h.transactionService.Create(c.Request.Context(), GetActor(c), &service.CreateTransactionRequest{
		Beneficiary:       req.Beneficiary,
		AmountOrigin:      req.AmountOrigin,
		AmountDestination: req.AmountDestination,
		CommissionPercent: req.CommissionPercent,
		Note:              req.Note,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, trans)
}

// GetTransaction 查询交易详情
// GET /api/v1/transaction/:id
func (h *Handler) GetTransaction(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	trans, err := h.transactionService.Get(c.Request.Context(), GetActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, trans)
}

// GetTransactionHistory 查询交易流转历史
// GET /api/v1/transaction/:id/history
func (h *Handler) GetTransactionHistory(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	history, err := h.transactionService.History(c.Request.Context(), GetActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, history)
}

// ListTransactions 查询交易列表
// GET /api/v1/transaction/list?vendor_id=xxx&status=xxx&page=1&page_size=10
func (h *Handler) ListTransactions(c *gin.Context) {
	actor := GetActor(c)
	page, pageSize := parsePaging(c)

	if status := c.Query("status"); status != "" {
		rows, total, err := h.transactionService.ListByStatus(c.Request.Context(), actor, status, page, pageSize)
		if err != nil {
			respondError(c, err)
			return
		}
		response.Success(c, gin.H{"list": rows, "total": total, "page": page, "page_size": pageSize})
		return
	}

	vendorID := actor.ID
	if v := c.Query("vendor_id"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.ParamError(c, "vendor_id 参数错误")
			return
		}
		vendorID = parsed
	}

	rows, total, err := h.transactionService.ListByVendor(c.Request.Context(), actor, vendorID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"list": rows, "total": total, "page": page, "page_size": pageSize})
}

// EnterEditMode 进入编辑模式（只判定窗口，不重置计时）
// POST /api/v1/transaction/:id/edit-mode
func (h *Handler) EnterEditMode(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	trans, err := h.transactionService.EnterEditMode(c.Request.Context(), GetActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, trans)
}

// EditTransactionRequest 编辑交易请求
type EditTransactionRequest struct {
	AmountOrigin      *decimal.Decimal             `json:"amount_origin"`
	AmountDestination *decimal.Decimal             `json:"amount_destination"`
	Beneficiary       *service.BeneficiarySnapshot `json:"beneficiary"`
	Note              *string                      `json:"note"`
}

func (r *EditTransactionRequest) toService() *service.EditTransactionRequest {
	return &service.EditTransactionRequest{
		AmountOrigin:      r.AmountOrigin,
		AmountDestination: r.AmountDestination,
		Beneficiary:       r.Beneficiary,
		Note:              r.Note,
	}
}

// EditTransaction 编辑交易（5分钟窗口内）
// POST /api/v1/transaction/:id/edit
func (h *Handler) EditTransaction(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req EditTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	trans, err := h.transactionService.Edit(c.Request.Context(), GetActor(c), id, req.toService())
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, trans)
}

// AdvanceRequest 状态推进请求
type AdvanceRequest struct {
	TargetStatus string `json:"target_status" binding:"required"`
	Note         string `json:"note"`
}

// AdvanceTransaction 推进交易状态
// POST /api/v1/transaction/:id/advance
func (h *Handler) AdvanceTransaction(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req AdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.transactionService.Advance(c.Request.Context(), GetActor(c), id, req.TargetStatus, req.Note); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "状态已更新"})
}

// ReasonRequest 驳回/取消请求
type ReasonRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RejectTransaction 驳回交易
// POST /api/v1/transaction/:id/reject
func (h *Handler) RejectTransaction(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.transactionService.Reject(c.Request.Context(), GetActor(c), id, req.Reason); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "交易已驳回"})
}

// CancelTransaction 取消交易
// POST /api/v1/transaction/:id/cancel
func (h *Handler) CancelTransaction(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.transactionService.Cancel(c.Request.Context(), GetActor(c), id, req.Reason); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "交易已取消"})
}

// ResendTransaction 被驳回交易修正后重新提交
// POST /api/v1/transaction/:id/resend
func (h *Handler) ResendTransaction(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req EditTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.transactionService.Resend(c.Request.Context(), GetActor(c), id, req.toService()); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "已重新提交"})
}
