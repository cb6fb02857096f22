package accounting

import (
	"strings"

	"github.com/google/uuid"
)

// CustomerRef is the customer snapshot stored on templates, invoices, quotations and sales.
// Customers themselves live in a separate collection; ID may be uuid.Nil for walk-in customers.
type CustomerRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
}

// HasEmail reports whether documents can be mailed to this customer
func (c CustomerRef) HasEmail() bool {
	return strings.Contains(c.Email, "@")
}

func (c CustomerRef) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return invalidInput("Customer name cannot be empty")
	}
	return nil
}
