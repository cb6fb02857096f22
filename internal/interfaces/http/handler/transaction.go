package handler

import (
	acctapp "github.com/erp/acct/internal/application/accounting"
	"github.com/gin-gonic/gin"
)

// TransactionHandler handles payment, sale and expense endpoints
type TransactionHandler struct {
	BaseHandler
	ledgerService *acctapp.LedgerService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(ledgerService *acctapp.LedgerService) *TransactionHandler {
	return &TransactionHandler{ledgerService: ledgerService}
}

// ==================== Payments ====================

// RecordPayment godoc
//
//	@Summary		Record a payment
//	@Description	A payment may reference an invoice or a quotation; with neither it stays unapplied
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Param			request	body		acctapp.PaymentRequest	true	"Payment"
//	@Success		201		{object}	APIResponse[accounting.Payment]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/payments [post]
func (h *TransactionHandler) RecordPayment(c *gin.Context) {
	var req acctapp.PaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	p, err := h.ledgerService.RecordPayment(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, p)
}

// ListPayments lists payments, latest date first
func (h *TransactionHandler) ListPayments(c *gin.Context) {
	payments, err := h.ledgerService.ListPayments(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	paginate(&h.BaseHandler, c, payments)
}

// GetPayment returns one payment
func (h *TransactionHandler) GetPayment(c *gin.Context) {
	id, ok := h.parseID(c, "payment")
	if !ok {
		return
	}
	p, err := h.ledgerService.GetPayment(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, p)
}

// DeletePayment removes a payment
func (h *TransactionHandler) DeletePayment(c *gin.Context) {
	id, ok := h.parseID(c, "payment")
	if !ok {
		return
	}
	if err := h.ledgerService.DeletePayment(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// ==================== Sales ====================

// RecordSale records a point-of-sale transaction
func (h *TransactionHandler) RecordSale(c *gin.Context) {
	var req acctapp.SaleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	s, err := h.ledgerService.RecordSale(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, s)
}

// ListSales lists sales
func (h *TransactionHandler) ListSales(c *gin.Context) {
	sales, err := h.ledgerService.ListSales(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	paginate(&h.BaseHandler, c, sales)
}

// GetSale returns one sale
func (h *TransactionHandler) GetSale(c *gin.Context) {
	id, ok := h.parseID(c, "sale")
	if !ok {
		return
	}
	s, err := h.ledgerService.GetSale(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, s)
}

// DeleteSale removes a sale
func (h *TransactionHandler) DeleteSale(c *gin.Context) {
	id, ok := h.parseID(c, "sale")
	if !ok {
		return
	}
	if err := h.ledgerService.DeleteSale(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// ==================== Expenses ====================

// RecordExpense records an expense
func (h *TransactionHandler) RecordExpense(c *gin.Context) {
	var req acctapp.ExpenseRequest
	if !h.bindJSON(c, &req) {
		return
	}
	e, err := h.ledgerService.RecordExpense(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, e)
}

// ListExpenses lists expenses
func (h *TransactionHandler) ListExpenses(c *gin.Context) {
	expenses, err := h.ledgerService.ListExpenses(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	paginate(&h.BaseHandler, c, expenses)
}

// GetExpense returns one expense
func (h *TransactionHandler) GetExpense(c *gin.Context) {
	id, ok := h.parseID(c, "expense")
	if !ok {
		return
	}
	e, err := h.ledgerService.GetExpense(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, e)
}

// DeleteExpense removes an expense
func (h *TransactionHandler) DeleteExpense(c *gin.Context) {
	id, ok := h.parseID(c, "expense")
	if !ok {
		return
	}
	if err := h.ledgerService.DeleteExpense(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// ==================== Settings ====================

// GetSettings returns the company settings
func (h *TransactionHandler) GetSettings(c *gin.Context) {
	settings, err := h.ledgerService.GetSettings(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, settings)
}

// SaveSettings godoc
//
//	@Summary	Replace the company settings
//	@Tags		settings
//	@Accept		json
//	@Produce	json
//	@Param		request	body		acctapp.SettingsRequest	true	"Settings"
//	@Success	200		{object}	APIResponse[accounting.CompanySettings]
//	@Failure	403		{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/settings [put]
func (h *TransactionHandler) SaveSettings(c *gin.Context) {
	var req acctapp.SettingsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	settings, err := h.ledgerService.SaveSettings(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, settings)
}
