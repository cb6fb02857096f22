package handler

import (
	"net/http"

	"github.com/erp/acct/internal/infrastructure/logger"
	"github.com/erp/acct/internal/interfaces/http/dto"
	"github.com/erp/acct/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// BaseHandler writes the response envelope shared by every endpoint
type BaseHandler struct{}

// Success sends 200 with data
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends 200 with one page of data
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends 201 with the new resource
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends 204
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error envelope with an explicit status and code
func (h *BaseHandler) Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.NewErrorResponse(code, message, middleware.RequestIDFrom(c)))
}

// BadRequest sends 400 ERR_BAD_REQUEST
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// HandleDomainError maps a service error onto its status and code. The
// resolved code is recorded on the request span; server side failures are
// logged with the underlying error since the client only sees a generic
// message.
func (h *BaseHandler) HandleDomainError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	resolved := dto.ResolveError(err)
	if span := trace.SpanFromContext(c.Request.Context()); span.IsRecording() {
		span.SetAttributes(attribute.String("acct.error_code", resolved.Code))
		if resolved.Status >= http.StatusInternalServerError {
			span.RecordError(err)
		}
	}
	if resolved.Status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("Request failed",
			zap.String("code", resolved.Code), zap.Error(err))
	}
	h.Error(c, resolved.Status, resolved.Code, resolved.Message)
}
