package accounting

import (
	"strings"
	"time"

	"github.com/erp/acct/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Expense is money spent by the business
type Expense struct {
	shared.BaseAggregateRoot
	Date     time.Time       `json:"date"`
	Category string          `json:"category"`
	Vendor   string          `json:"vendor"`
	Amount   decimal.Decimal `json:"amount"`
	Tax      decimal.Decimal `json:"tax"`
	Notes    string          `json:"notes"`
}

// NewExpense creates an expense
func NewExpense(date time.Time, category, vendor string, amount, tax decimal.Decimal, notes string, now time.Time) (*Expense, error) {
	if date.IsZero() {
		return nil, invalidInput("Expense date is required")
	}
	if strings.TrimSpace(category) == "" {
		return nil, invalidInput("Expense category cannot be empty")
	}
	if amount.IsNegative() || tax.IsNegative() {
		return nil, invalidInput("Expense amount and tax cannot be negative")
	}
	return &Expense{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(now),
		Date:              date,
		Category:          category,
		Vendor:            vendor,
		Amount:            amount,
		Tax:               tax,
		Notes:             notes,
	}, nil
}

// Total returns amount + tax
func (e *Expense) Total() decimal.Decimal {
	return e.Amount.Add(e.Tax)
}
