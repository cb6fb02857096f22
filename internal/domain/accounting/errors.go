package accounting

import "github.com/erp/acct/internal/domain/shared"

// Error codes specific to the accounting domain
const (
	CodeInvalidCadence = "INVALID_CADENCE"
)

var (
	// ErrInvalidCadence is returned when a template's recurrence rule cannot produce a schedule
	ErrInvalidCadence = shared.NewDomainError(CodeInvalidCadence, "Custom cadence requires a positive interval in days")
)

func invalidInput(message string) *shared.DomainError {
	return shared.NewDomainError("INVALID_INPUT", message)
}
