package accounting

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/acct/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditApplication is the portion of a credit note applied to one invoice
type CreditApplication struct {
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// CreditAllocation requests amount of credit for an invoice
type CreditAllocation struct {
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// CreditNote is credit issued to a customer and allocated across invoices
type CreditNote struct {
	shared.BaseAggregateRoot
	Number     string              `json:"number"`
	Date       time.Time           `json:"date"`
	CustomerID uuid.UUID           `json:"customer_id"`
	Amount     decimal.Decimal     `json:"amount"`
	Applied    []CreditApplication `json:"applied"`
	Notes      string              `json:"notes"`
}

// NewCreditNote creates a credit note with nothing applied
func NewCreditNote(number string, date time.Time, customerID uuid.UUID, amount decimal.Decimal, notes string, now time.Time) (*CreditNote, error) {
	if strings.TrimSpace(number) == "" {
		return nil, invalidInput("Credit note number cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, invalidInput("Credit note amount must be positive")
	}
	if date.IsZero() {
		return nil, invalidInput("Credit note date is required")
	}
	return &CreditNote{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(now),
		Number:            number,
		Date:              date,
		CustomerID:        customerID,
		Amount:            amount,
		Applied:           make([]CreditApplication, 0),
		Notes:             notes,
	}, nil
}

// AppliedTotal returns Σ applied amounts
func (c *CreditNote) AppliedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, a := range c.Applied {
		total = total.Add(a.Amount)
	}
	return total
}

// Remaining returns amount - Σ applied. It is negative when the note is over-allocated.
func (c *CreditNote) Remaining() decimal.Decimal {
	return c.Amount.Sub(c.AppliedTotal())
}

// AppliedTo returns the credit applied to the invoice
func (c *CreditNote) AppliedTo(invoiceID uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, a := range c.Applied {
		if a.InvoiceID == invoiceID {
			total = total.Add(a.Amount)
		}
	}
	return total
}

// Apply merges allocations into the applied list. Non-positive amounts are skipped.
// An existing entry for the invoice is increased, otherwise a new entry is appended.
// With enforce set, an application whose merged total exceeds the note amount
// fails with ErrInsufficientBalance and leaves the note unchanged.
func (c *CreditNote) Apply(allocations []CreditAllocation, enforce bool, now time.Time) error {
	merged := make([]CreditApplication, len(c.Applied))
	copy(merged, c.Applied)

	changed := false
	for _, alloc := range allocations {
		if !alloc.Amount.IsPositive() {
			continue
		}
		changed = true
		found := false
		for i := range merged {
			if merged[i].InvoiceID == alloc.InvoiceID {
				merged[i].Amount = merged[i].Amount.Add(alloc.Amount)
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, CreditApplication{InvoiceID: alloc.InvoiceID, Amount: alloc.Amount})
		}
	}
	if !changed {
		return nil
	}

	if enforce {
		total := decimal.Zero
		for _, a := range merged {
			total = total.Add(a.Amount)
		}
		if total.GreaterThan(c.Amount) {
			return shared.NewDomainError("INSUFFICIENT_BALANCE",
				fmt.Sprintf("Credit note %s has %s remaining, cannot apply %s",
					c.Number, c.Remaining().String(), total.Sub(c.AppliedTotal()).String()))
		}
	}

	c.Applied = merged
	c.Touch(now)
	c.IncrementVersion()
	c.AddDomainEvent(NewCreditAppliedEvent(c, allocations))
	return nil
}
