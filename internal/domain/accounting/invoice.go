package accounting

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/acct/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft InvoiceStatus = "draft"
	InvoiceStatusSent  InvoiceStatus = "sent"
	InvoiceStatusPaid  InvoiceStatus = "paid"
	InvoiceStatusVoid  InvoiceStatus = "void"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusVoid:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// Invoice is a billed document. Balance math uses the subtotal only;
// discount and shipping are carried for display.
type Invoice struct {
	shared.BaseAggregateRoot
	Number      string          `json:"number"`
	Customer    CustomerRef     `json:"customer"`
	Items       []LineItem      `json:"items"`
	Status      InvoiceStatus   `json:"status"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	Shipping    decimal.Decimal `json:"shipping"`
	TemplateID  *uuid.UUID      `json:"template_id,omitempty"` // Recurring template that materialized it
}

// NewInvoice creates a draft invoice
func NewInvoice(number string, customer CustomerRef, items []LineItem, now time.Time) (*Invoice, error) {
	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(now),
		Status:            InvoiceStatusDraft,
	}
	if err := inv.setContent(number, customer, items); err != nil {
		return nil, err
	}
	return inv, nil
}

func (i *Invoice) setContent(number string, customer CustomerRef, items []LineItem) error {
	if strings.TrimSpace(number) == "" {
		return invalidInput("Invoice number cannot be empty")
	}
	if err := customer.validate(); err != nil {
		return err
	}
	normalized, err := normalizeItems(items)
	if err != nil {
		return err
	}
	i.Number = number
	i.Customer = customer
	i.Items = normalized
	return nil
}

// Update replaces the editable content of the invoice
func (i *Invoice) Update(number string, customer CustomerRef, items []LineItem, now time.Time) error {
	if i.Status == InvoiceStatusVoid {
		return shared.NewDomainError("INVALID_STATE", "Cannot edit a void invoice")
	}
	if err := i.setContent(number, customer, items); err != nil {
		return err
	}
	i.Touch(now)
	i.IncrementVersion()
	return nil
}

// SetAdjustments sets the display-only discount percentage and shipping
func (i *Invoice) SetAdjustments(discountPct, shipping decimal.Decimal) error {
	if discountPct.IsNegative() || discountPct.GreaterThan(hundred) {
		return invalidInput("Discount must be between 0 and 100 percent")
	}
	if shipping.IsNegative() {
		return invalidInput("Shipping cannot be negative")
	}
	i.DiscountPct = discountPct
	i.Shipping = shipping
	return nil
}

// ChangeStatus moves the invoice to status. A void invoice stays void.
func (i *Invoice) ChangeStatus(status InvoiceStatus, now time.Time) error {
	if !status.IsValid() {
		return invalidInput(fmt.Sprintf("Invalid invoice status %q", status))
	}
	if i.Status == InvoiceStatusVoid && status != InvoiceStatusVoid {
		return shared.NewDomainError("INVALID_STATE", "Cannot reopen a void invoice")
	}
	i.Status = status
	i.Touch(now)
	i.IncrementVersion()
	return nil
}

// Subtotal returns Σ qty×price over the invoice items
func (i *Invoice) Subtotal() decimal.Decimal {
	return Subtotal(i.Items)
}
