package accounting

import (
	"strings"
	"time"

	"github.com/erp/acct/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Sale is a point-of-sale transaction. It counts as accrual income.
type Sale struct {
	shared.BaseAggregateRoot
	Number   string      `json:"number"`
	Date     time.Time   `json:"date"`
	Customer CustomerRef `json:"customer"`
	Items    []LineItem  `json:"items"`
}

// NewSale creates a sale
func NewSale(number string, date time.Time, customer CustomerRef, items []LineItem, now time.Time) (*Sale, error) {
	if strings.TrimSpace(number) == "" {
		return nil, invalidInput("Sale number cannot be empty")
	}
	if date.IsZero() {
		return nil, invalidInput("Sale date is required")
	}
	if len(items) == 0 {
		return nil, invalidInput("Sale must have at least one line item")
	}
	normalized, err := normalizeItems(items)
	if err != nil {
		return nil, err
	}
	return &Sale{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(now),
		Number:            number,
		Date:              date,
		Customer:          customer,
		Items:             normalized,
	}, nil
}

// Subtotal returns Σ qty×price over the sale items
func (s *Sale) Subtotal() decimal.Decimal {
	return Subtotal(s.Items)
}
