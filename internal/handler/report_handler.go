package handler

import (
	"remitsystem/internal/service"
	"remitsystem/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ============================================================
// 报表相关接口：债务汇总、明细、佣金、月度统计
// ============================================================

// GetDebtSummary 当前债务汇总
// GET /api/v1/report/debt/summary?from=2026-01-01&to=2026-01-31
func (h *Handler) GetDebtSummary(c *gin.Context) {
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}

	summary, err := h.debtService.GetDebtSummary(c.Request.Context(), GetActor(c), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, summary)
}

// GetDebtDetail 债务明细（逐笔 + 汇总）
// GET /api/v1/report/debt/detail?from=2026-01-01&to=2026-01-31
func (h *Handler) GetDebtDetail(c *gin.Context) {
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}

	detail, err := h.reportService.GetDebtDetail(c.Request.Context(), GetActor(c), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, detail)
}

// GetVendorCommissions 各商户佣金汇总
// GET /api/v1/report/commission?from=2026-01-01&to=2026-01-31
func (h *Handler) GetVendorCommissions(c *gin.Context) {
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}

	summaries, err := h.debtService.GetVendorCommissions(c.Request.Context(), GetActor(c), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, summaries)
}

// GetVendorReport 商户佣金报表（按商户排序）
// GET /api/v1/report/vendor?from=2026-01-01&to=2026-01-31
func (h *Handler) GetVendorReport(c *gin.Context) {
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}

	rows, err := h.reportService.GetVendorReport(c.Request.Context(), GetActor(c), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, rows)
}

// GetMonthlyStats 按完成月份的经营统计
// GET /api/v1/report/monthly
func (h *Handler) GetMonthlyStats(c *gin.Context) {
	stats, err := h.reportService.GetMonthlyStats(c.Request.Context(), GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, stats)
}

// ============================================================
// 资金账户相关接口
// ============================================================

// CreateAccountRequest 创建账户请求
type CreateAccountRequest struct {
	Name string `json:"name" binding:"required"`
	Type string `json:"type" binding:"required"`
}

// CreateAccount 创建资金账户
// POST /api/v1/account/create
func (h *Handler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	account, err := h.accountService.CreateAccount(c.Request.Context(), GetActor(c), req.Name, req.Type)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, account)
}

// GetAccount 查询账户
// GET /api/v1/account/:id
func (h *Handler) GetAccount(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	account, err := h.accountService.GetAccount(c.Request.Context(), GetActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, account)
}

// ListAccounts 查询本管理员名下账户
// GET /api/v1/account/list
func (h *Handler) ListAccounts(c *gin.Context) {
	accounts, err := h.accountService.ListAccounts(c.Request.Context(), GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, accounts)
}

// AccountFlowRequest 账户出入账请求
type AccountFlowRequest struct {
	Amount             decimal.Decimal `json:"amount" binding:"required"`
	Remark             string          `json:"remark"`
	RemitTransactionID *int64          `json:"remit_transaction_id"`
}

// DepositAccount 账户入账
// POST /api/v1/account/:id/deposit
func (h *Handler) DepositAccount(c *gin.Context) {
	h.accountFlow(c, true)
}

// WithdrawAccount 账户出账
// POST /api/v1/account/:id/withdraw
func (h *Handler) WithdrawAccount(c *gin.Context) {
	h.accountFlow(c, false)
}

func (h *Handler) accountFlow(c *gin.Context, deposit bool) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req AccountFlowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	apply := h.accountService.Withdraw
	if deposit {
		apply = h.accountService.Deposit
	}
	flow, err := apply(c.Request.Context(), GetActor(c), id, req.Amount, req.Remark, req.RemitTransactionID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, flow)
}

// ListAccountFlows 查询账户流水
// GET /api/v1/account/:id/flows?page=1&page_size=10
func (h *Handler) ListAccountFlows(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	page, pageSize := parsePaging(c)
	flows, total, err := h.accountService.ListFlows(c.Request.Context(), GetActor(c), id, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"list": flows, "total": total, "page": page, "page_size": pageSize})
}

// ============================================================
// 商户管理接口
// ============================================================

// CreateVendorRequest 创建商户请求
type CreateVendorRequest struct {
	Name              string           `json:"name" binding:"required"`
	Phone             string           `json:"phone"`
	Affiliation       string           `json:"affiliation" binding:"required"`
	CommissionPercent *decimal.Decimal `json:"commission_percent"`
}

// CreateVendor 创建商户
// POST /api/v1/vendor/create
func (h *Handler) CreateVendor(c *gin.Context) {
	var req CreateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	vendor, err := h.vendorService.CreateVendor(c.Request.Context(), GetActor(c), &service.CreateVendorRequest{
		Name:              req.Name,
		Phone:             req.Phone,
		Affiliation:       req.Affiliation,
		CommissionPercent: req.CommissionPercent,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, vendor)
}

// GetVendor 查询商户
// GET /api/v1/vendor/:id
func (h *Handler) GetVendor(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	vendor, err := h.vendorService.GetVendor(c.Request.Context(), GetActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, vendor)
}

// ListVendors 查询商户列表
// GET /api/v1/vendor/list
func (h *Handler) ListVendors(c *gin.Context) {
	vendors, err := h.vendorService.ListVendors(c.Request.Context(), GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, vendors)
}

// UpdateVendorCommissionRequest 调整商户佣金比例请求
type UpdateVendorCommissionRequest struct {
	CommissionPercent decimal.Decimal `json:"commission_percent" binding:"required"`
}

// UpdateVendorCommission 调整商户常设佣金比例
// POST /api/v1/vendor/:id/commission
func (h *Handler) UpdateVendorCommission(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req UpdateVendorCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.vendorService.UpdateCommissionPercent(c.Request.Context(), GetActor(c), id, req.CommissionPercent); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "佣金比例已更新"})
}
