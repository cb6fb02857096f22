package handler

import (
	acctapp "github.com/erp/acct/internal/application/accounting"
	"github.com/gin-gonic/gin"
)

// InvoiceHandler handles invoice endpoints
type InvoiceHandler struct {
	BaseHandler
	ledgerService *acctapp.LedgerService
	reconService  *acctapp.ReconciliationService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(ledgerService *acctapp.LedgerService, reconService *acctapp.ReconciliationService) *InvoiceHandler {
	return &InvoiceHandler{ledgerService: ledgerService, reconService: reconService}
}

// Create godoc
//
//	@Summary	Create an invoice
//	@Tags		invoices
//	@Accept		json
//	@Produce	json
//	@Param		request	body		acctapp.InvoiceRequest	true	"Invoice"
//	@Success	201		{object}	APIResponse[accounting.Invoice]
//	@Failure	400		{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req acctapp.InvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	inv, err := h.ledgerService.CreateInvoice(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, inv)
}

// List godoc
//
//	@Summary	List invoices, newest first
//	@Tags		invoices
//	@Produce	json
//	@Success	200	{object}	APIResponse[[]accounting.Invoice]
//	@Security	BearerAuth
//	@Router		/invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	invoices, err := h.ledgerService.ListInvoices(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	paginate(&h.BaseHandler, c, invoices)
}

// GetByID returns one invoice
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c, "invoice")
	if !ok {
		return
	}
	inv, err := h.ledgerService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, inv)
}

// Update replaces an invoice's editable fields
func (h *InvoiceHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "invoice")
	if !ok {
		return
	}
	var req acctapp.InvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	inv, err := h.ledgerService.UpdateInvoice(c.Request.Context(), id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, inv)
}

// Delete removes an invoice
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c, "invoice")
	if !ok {
		return
	}
	if err := h.ledgerService.DeleteInvoice(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// Balance godoc
//
//	@Summary		Get the open balance of an invoice
//	@Description	Subtotal less linked payments and applied credit, floored at zero
//	@Tags			invoices
//	@Produce		json
//	@Param			id	path		string	true	"Invoice ID"
//	@Success		200	{object}	APIResponse[accounting.Balance]
//	@Failure		404	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/invoices/{id}/balance [get]
func (h *InvoiceHandler) Balance(c *gin.Context) {
	id, ok := h.parseID(c, "invoice")
	if !ok {
		return
	}
	b, err := h.reconService.InvoiceBalance(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, b)
}

// QuotationHandler handles quotation endpoints
type QuotationHandler struct {
	BaseHandler
	ledgerService *acctapp.LedgerService
	reconService  *acctapp.ReconciliationService
}

// NewQuotationHandler creates a new QuotationHandler
func NewQuotationHandler(ledgerService *acctapp.LedgerService, reconService *acctapp.ReconciliationService) *QuotationHandler {
	return &QuotationHandler{ledgerService: ledgerService, reconService: reconService}
}

// Create creates a quotation
func (h *QuotationHandler) Create(c *gin.Context) {
	var req acctapp.QuotationRequest
	if !h.bindJSON(c, &req) {
		return
	}
	q, err := h.ledgerService.CreateQuotation(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, q)
}

// List lists quotations
func (h *QuotationHandler) List(c *gin.Context) {
	quotations, err := h.ledgerService.ListQuotations(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	paginate(&h.BaseHandler, c, quotations)
}

// GetByID returns one quotation
func (h *QuotationHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c, "quotation")
	if !ok {
		return
	}
	q, err := h.ledgerService.GetQuotation(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, q)
}

// Update replaces a quotation's editable fields
func (h *QuotationHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "quotation")
	if !ok {
		return
	}
	var req acctapp.QuotationRequest
	if !h.bindJSON(c, &req) {
		return
	}
	q, err := h.ledgerService.UpdateQuotation(c.Request.Context(), id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, q)
}

// Delete removes a quotation
func (h *QuotationHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c, "quotation")
	if !ok {
		return
	}
	if err := h.ledgerService.DeleteQuotation(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// Balance returns the open balance of a quotation
func (h *QuotationHandler) Balance(c *gin.Context) {
	id, ok := h.parseID(c, "quotation")
	if !ok {
		return
	}
	b, err := h.reconService.QuotationBalance(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, b)
}
