package handler

import (
	acctapp "github.com/erp/acct/internal/application/accounting"
	"github.com/gin-gonic/gin"
)

// RecurringHandler handles recurring template endpoints
type RecurringHandler struct {
	BaseHandler
	recurringService *acctapp.RecurringService
}

// NewRecurringHandler creates a new RecurringHandler
func NewRecurringHandler(recurringService *acctapp.RecurringService) *RecurringHandler {
	return &RecurringHandler{recurringService: recurringService}
}

// Create godoc
//
//	@Summary		Create a recurring template
//	@Description	Validates the schedule and computes the first run
//	@Tags			recurring
//	@Accept			json
//	@Produce		json
//	@Param			request	body		acctapp.TemplateRequest	true	"Template"
//	@Success		201		{object}	APIResponse[accounting.RecurringTemplate]
//	@Failure		400		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/recurring [post]
func (h *RecurringHandler) Create(c *gin.Context) {
	var req acctapp.TemplateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	t, err := h.recurringService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, t)
}

// List godoc
//
//	@Summary	List recurring templates ordered by next run
//	@Tags		recurring
//	@Produce	json
//	@Param		page		query		int	false	"Page"
//	@Param		page_size	query		int	false	"Page size"
//	@Success	200			{object}	APIResponse[[]accounting.RecurringTemplate]
//	@Security	BearerAuth
//	@Router		/recurring [get]
func (h *RecurringHandler) List(c *gin.Context) {
	templates, err := h.recurringService.List(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	paginate(&h.BaseHandler, c, templates)
}

// GetByID godoc
//
//	@Summary	Get a recurring template
//	@Tags		recurring
//	@Produce	json
//	@Param		id	path		string	true	"Template ID"
//	@Success	200	{object}	APIResponse[accounting.RecurringTemplate]
//	@Failure	404	{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/recurring/{id} [get]
func (h *RecurringHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c, "template")
	if !ok {
		return
	}
	t, err := h.recurringService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, t)
}

// Update godoc
//
//	@Summary		Replace a recurring template
//	@Description	Replaces fields and recomputes the pending run; run history is kept
//	@Tags			recurring
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Template ID"
//	@Param			request	body		acctapp.TemplateRequest	true	"Template"
//	@Success		200		{object}	APIResponse[accounting.RecurringTemplate]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/recurring/{id} [put]
func (h *RecurringHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "template")
	if !ok {
		return
	}
	var req acctapp.TemplateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	t, err := h.recurringService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, t)
}

// Delete godoc
//
//	@Summary	Delete a recurring template
//	@Tags		recurring
//	@Param		id	path	string	true	"Template ID"
//	@Success	204
//	@Security	BearerAuth
//	@Router		/recurring/{id} [delete]
func (h *RecurringHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c, "template")
	if !ok {
		return
	}
	if err := h.recurringService.Delete(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// Run godoc
//
//	@Summary		Generate the next invoice now
//	@Description	Materializes an invoice from the template regardless of schedule. Requires billing:run.
//	@Tags			recurring
//	@Produce		json
//	@Param			id	path		string	true	"Template ID"
//	@Success		200	{object}	APIResponse[acctapp.RunResult]
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/recurring/{id}/run [post]
func (h *RecurringHandler) Run(c *gin.Context) {
	id, ok := h.parseID(c, "template")
	if !ok {
		return
	}
	result, err := h.recurringService.RunNow(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// Pause godoc
//
//	@Summary	Pause a recurring template
//	@Tags		recurring
//	@Produce	json
//	@Param		id	path		string	true	"Template ID"
//	@Success	200	{object}	APIResponse[accounting.RecurringTemplate]
//	@Security	BearerAuth
//	@Router		/recurring/{id}/pause [post]
func (h *RecurringHandler) Pause(c *gin.Context) {
	id, ok := h.parseID(c, "template")
	if !ok {
		return
	}
	t, err := h.recurringService.Pause(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, t)
}

// Resume godoc
//
//	@Summary		Resume a paused template
//	@Description	Resuming skips runs missed while paused
//	@Tags			recurring
//	@Produce		json
//	@Param			id	path		string	true	"Template ID"
//	@Success		200	{object}	APIResponse[accounting.RecurringTemplate]
//	@Security		BearerAuth
//	@Router			/recurring/{id}/resume [post]
func (h *RecurringHandler) Resume(c *gin.Context) {
	id, ok := h.parseID(c, "template")
	if !ok {
		return
	}
	t, err := h.recurringService.Resume(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, t)
}

// NextRun godoc
//
//	@Summary	Preview the pending run of a template
//	@Tags		recurring
//	@Produce	json
//	@Param		id	path		string	true	"Template ID"
//	@Success	200	{object}	APIResponse[acctapp.NextRunResponse]
//	@Security	BearerAuth
//	@Router		/recurring/{id}/next-run [get]
func (h *RecurringHandler) NextRun(c *gin.Context) {
	id, ok := h.parseID(c, "template")
	if !ok {
		return
	}
	next, err := h.recurringService.NextRun(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, next)
}
