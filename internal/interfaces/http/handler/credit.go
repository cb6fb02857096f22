package handler

import (
	acctapp "github.com/erp/acct/internal/application/accounting"
	"github.com/gin-gonic/gin"
)

// CreditNoteHandler handles credit note endpoints
type CreditNoteHandler struct {
	BaseHandler
	creditService *acctapp.CreditService
}

// NewCreditNoteHandler creates a new CreditNoteHandler
func NewCreditNoteHandler(creditService *acctapp.CreditService) *CreditNoteHandler {
	return &CreditNoteHandler{creditService: creditService}
}

// Issue creates a credit note with nothing applied
func (h *CreditNoteHandler) Issue(c *gin.Context) {
	var req acctapp.CreditNoteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	note, err := h.creditService.Issue(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, note)
}

// List lists credit notes
func (h *CreditNoteHandler) List(c *gin.Context) {
	notes, err := h.creditService.List(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	paginate(&h.BaseHandler, c, notes)
}

// GetByID returns one credit note
func (h *CreditNoteHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c, "credit note")
	if !ok {
		return
	}
	note, err := h.creditService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, note)
}

// Delete removes a credit note
func (h *CreditNoteHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c, "credit note")
	if !ok {
		return
	}
	if err := h.creditService.Delete(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// Apply godoc
//
//	@Summary		Apply credit to invoices
//	@Description	Allocations to an invoice already credited are added to the existing allocation
//	@Tags			credit-notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Credit note ID"
//	@Param			request	body		acctapp.ApplyCreditRequest	true	"Allocations"
//	@Success		200		{object}	APIResponse[accounting.CreditNote]
//	@Failure		404		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/credit-notes/{id}/apply [post]
func (h *CreditNoteHandler) Apply(c *gin.Context) {
	id, ok := h.parseID(c, "credit note")
	if !ok {
		return
	}
	var req acctapp.ApplyCreditRequest
	if !h.bindJSON(c, &req) {
		return
	}
	note, err := h.creditService.Apply(c.Request.Context(), id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, note)
}
