package dto

import (
	"context"
	"errors"
	"net/http"

	"github.com/erp/acct/internal/domain/accounting"
	"github.com/erp/acct/internal/domain/shared"
)

// API error codes carried in ErrorInfo.Code
const (
	ErrCodeInternal            = "ERR_INTERNAL"
	ErrCodeTimeout             = "ERR_TIMEOUT"
	ErrCodeValidation          = "ERR_VALIDATION"
	ErrCodeBadRequest          = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON         = "ERR_INVALID_JSON"
	ErrCodeInvalidInput        = "ERR_INVALID_INPUT"
	ErrCodeRequestTooLarge     = "ERR_REQUEST_TOO_LARGE"
	ErrCodeUnauthorized        = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired        = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid        = "ERR_TOKEN_INVALID"
	ErrCodeForbidden           = "ERR_FORBIDDEN"
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodeInsufficientBalance = "ERR_INSUFFICIENT_BALANCE"
	ErrCodeInvalidCadence      = "ERR_INVALID_CADENCE"
	ErrCodeRateLimited         = "ERR_RATE_LIMITED"
	ErrCodeStreamLimit         = "ERR_STREAM_LIMIT"
)

// APIError is the resolved wire form of an error
type APIError struct {
	Status  int
	Code    string
	Message string
}

type mapping struct {
	code   string
	status int
}

// domainCodes maps every DomainError code the services raise. A code missing
// here is a programming error and surfaces as 500.
var domainCodes = map[string]mapping{
	shared.ErrNotFound.Code:            {ErrCodeNotFound, http.StatusNotFound},
	shared.ErrAlreadyExists.Code:       {ErrCodeAlreadyExists, http.StatusConflict},
	shared.ErrInvalidInput.Code:        {ErrCodeInvalidInput, http.StatusBadRequest},
	shared.ErrConcurrencyConflict.Code: {ErrCodeConcurrencyConflict, http.StatusConflict},
	shared.ErrUnauthorized.Code:        {ErrCodeUnauthorized, http.StatusUnauthorized},
	shared.ErrForbidden.Code:           {ErrCodeForbidden, http.StatusForbidden},
	shared.ErrInvalidState.Code:        {ErrCodeInvalidState, http.StatusUnprocessableEntity},
	shared.ErrInsufficientBalance.Code: {ErrCodeInsufficientBalance, http.StatusUnprocessableEntity},
	accounting.CodeInvalidCadence:      {ErrCodeInvalidCadence, http.StatusBadRequest},
}

// ResolveError turns a service error into its API form. Deadline errors
// become 504 so a slow store is distinguishable from a crash; anything else
// without a known domain code is an opaque 500.
func ResolveError(err error) APIError {
	var de *shared.DomainError
	if errors.As(err, &de) {
		if m, ok := domainCodes[de.Code]; ok {
			return APIError{Status: m.status, Code: m.code, Message: de.Message}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return APIError{Status: http.StatusGatewayTimeout, Code: ErrCodeTimeout, Message: "The request took too long to complete"}
	}
	return APIError{Status: http.StatusInternalServerError, Code: ErrCodeInternal, Message: "An unexpected error occurred"}
}
