package handler

import (
	acctapp "github.com/erp/acct/internal/application/accounting"
	"github.com/erp/acct/internal/domain/accounting"
	"github.com/erp/acct/internal/interfaces/http/dto"
	"github.com/erp/acct/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// ReportHandler handles report and outstanding-balance endpoints
type ReportHandler struct {
	BaseHandler
	reportService *acctapp.ReportService
	reconService  *acctapp.ReconciliationService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService *acctapp.ReportService, reconService *acctapp.ReconciliationService) *ReportHandler {
	return &ReportHandler{reportService: reportService, reconService: reconService}
}

// ReportResponse tags a report with its module so clients can pick the variant
type ReportResponse struct {
	Module accounting.ReportModule `json:"module"`
	From   string                  `json:"from"`
	To     string                  `json:"to"`
	Report accounting.Report       `json:"report"`
}

// Generate godoc
//
//	@Summary		Aggregate a report module over a date range
//	@Description	Dates are civil days in the service time zone; both bounds are inclusive
//	@Tags			reports
//	@Produce		json
//	@Param			module	path		string	true	"Report module"	Enums(invoices, quotations, sales, credit-notes, expenses, payments, income, income-expense)
//	@Param			from	query		string	true	"Start date (YYYY-MM-DD)"
//	@Param			to		query		string	true	"End date (YYYY-MM-DD)"
//	@Success		200		{object}	APIResponse[ReportResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/reports/{module} [get]
func (h *ReportHandler) Generate(c *gin.Context) {
	var q dto.DateRangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	module := c.Param("module")
	report, err := h.reportService.Generate(c.Request.Context(), module, q.From, q.To)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, ReportResponse{Module: report.Module(), From: q.From, To: q.To, Report: report})
}

// Outstanding godoc
//
//	@Summary	List every document with an open balance
//	@Tags		reports
//	@Produce	json
//	@Success	200	{object}	APIResponse[acctapp.OutstandingResponse]
//	@Security	BearerAuth
//	@Router		/outstanding [get]
func (h *ReportHandler) Outstanding(c *gin.Context) {
	out, err := h.reconService.Outstanding(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, out)
}
