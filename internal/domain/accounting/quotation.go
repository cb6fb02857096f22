package accounting

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/acct/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// QuotationStatus represents the status of a quotation
type QuotationStatus string

const (
	QuotationStatusDraft    QuotationStatus = "draft"
	QuotationStatusSent     QuotationStatus = "sent"
	QuotationStatusAccepted QuotationStatus = "accepted"
	QuotationStatusDeclined QuotationStatus = "declined"
)

// IsValid checks if the status is a valid QuotationStatus
func (s QuotationStatus) IsValid() bool {
	switch s {
	case QuotationStatusDraft, QuotationStatusSent, QuotationStatusAccepted, QuotationStatusDeclined:
		return true
	}
	return false
}

var hundred = decimal.NewFromInt(100)

// Quotation is a price offer to a customer
type Quotation struct {
	shared.BaseAggregateRoot
	Number      string          `json:"number"`
	Customer    CustomerRef     `json:"customer"`
	Items       []LineItem      `json:"items"`
	Status      QuotationStatus `json:"status"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	Shipping    decimal.Decimal `json:"shipping"`
}

// NewQuotation creates a draft quotation
func NewQuotation(number string, customer CustomerRef, items []LineItem, now time.Time) (*Quotation, error) {
	q := &Quotation{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(now),
		Status:            QuotationStatusDraft,
	}
	if err := q.setContent(number, customer, items); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *Quotation) setContent(number string, customer CustomerRef, items []LineItem) error {
	if strings.TrimSpace(number) == "" {
		return invalidInput("Quotation number cannot be empty")
	}
	if err := customer.validate(); err != nil {
		return err
	}
	normalized, err := normalizeItems(items)
	if err != nil {
		return err
	}
	q.Number = number
	q.Customer = customer
	q.Items = normalized
	return nil
}

// Update replaces the editable content of the quotation
func (q *Quotation) Update(number string, customer CustomerRef, items []LineItem, now time.Time) error {
	if err := q.setContent(number, customer, items); err != nil {
		return err
	}
	q.Touch(now)
	q.IncrementVersion()
	return nil
}

// SetAdjustments sets the discount percentage and shipping used by GrandTotal
func (q *Quotation) SetAdjustments(discountPct, shipping decimal.Decimal) error {
	if discountPct.IsNegative() || discountPct.GreaterThan(hundred) {
		return invalidInput("Discount must be between 0 and 100 percent")
	}
	if shipping.IsNegative() {
		return invalidInput("Shipping cannot be negative")
	}
	q.DiscountPct = discountPct
	q.Shipping = shipping
	return nil
}

// ChangeStatus moves the quotation to status
func (q *Quotation) ChangeStatus(status QuotationStatus, now time.Time) error {
	if !status.IsValid() {
		return invalidInput(fmt.Sprintf("Invalid quotation status %q", status))
	}
	q.Status = status
	q.Touch(now)
	q.IncrementVersion()
	return nil
}

// Subtotal returns Σ qty×price over the quotation items
func (q *Quotation) Subtotal() decimal.Decimal {
	return Subtotal(q.Items)
}

// GrandTotal returns max(0, subtotal - discount + shipping) plus tax at taxRate percent
func (q *Quotation) GrandTotal(taxRate decimal.Decimal) decimal.Decimal {
	subtotal := q.Subtotal()
	discount := subtotal.Mul(q.DiscountPct).Div(hundred)
	base := decimal.Max(decimal.Zero, subtotal.Sub(discount).Add(q.Shipping))
	return base.Add(base.Mul(taxRate).Div(hundred))
}
