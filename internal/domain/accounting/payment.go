package accounting

import (
	"time"

	"github.com/erp/acct/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment records cash received. It targets at most one invoice or quotation;
// a payment with neither is unapplied.
type Payment struct {
	shared.BaseAggregateRoot
	Amount     decimal.Decimal `json:"amount"`
	Date       time.Time       `json:"date"`
	CustomerID uuid.UUID       `json:"customer_id"`
	InvoiceID  *uuid.UUID      `json:"invoice_id,omitempty"`
	QuoteID    *uuid.UUID      `json:"quote_id,omitempty"`
	Method     string          `json:"method"`
	Reference  string          `json:"reference"`
}

// NewPayment creates a payment
func NewPayment(
	amount decimal.Decimal,
	date time.Time,
	customerID uuid.UUID,
	invoiceID, quoteID *uuid.UUID,
	method, reference string,
	now time.Time,
) (*Payment, error) {
	if !amount.IsPositive() {
		return nil, invalidInput("Payment amount must be positive")
	}
	if date.IsZero() {
		return nil, invalidInput("Payment date is required")
	}
	if invoiceID != nil && quoteID != nil {
		return nil, invalidInput("Payment can target an invoice or a quotation, not both")
	}
	return &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(now),
		Amount:            amount,
		Date:              date,
		CustomerID:        customerID,
		InvoiceID:         invoiceID,
		QuoteID:           quoteID,
		Method:            method,
		Reference:         reference,
	}, nil
}

// IsUnapplied returns true if the payment targets no document
func (p *Payment) IsUnapplied() bool {
	return p.InvoiceID == nil && p.QuoteID == nil
}

// AppliesToInvoice returns true if the payment targets the invoice
func (p *Payment) AppliesToInvoice(id uuid.UUID) bool {
	return p.InvoiceID != nil && *p.InvoiceID == id
}

// AppliesToQuotation returns true if the payment targets the quotation
func (p *Payment) AppliesToQuotation(id uuid.UUID) bool {
	return p.QuoteID != nil && *p.QuoteID == id
}
