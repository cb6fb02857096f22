package accounting

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItem is a single billed line on a template, invoice, quotation or sale.
// Negative quantities are accepted and reduce the subtotal.
type LineItem struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Qty         decimal.Decimal `json:"qty"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
}

// NewLineItem creates a line item with a fresh id
func NewLineItem(name string, qty, price decimal.Decimal, description string) (LineItem, error) {
	item := LineItem{
		ID:          uuid.New(),
		Name:        name,
		Qty:         qty,
		Price:       price,
		Description: description,
	}
	if err := item.validate(); err != nil {
		return LineItem{}, err
	}
	return item, nil
}

// Amount returns qty * price
func (i LineItem) Amount() decimal.Decimal {
	return i.Qty.Mul(i.Price)
}

func (i LineItem) validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return invalidInput("Line item name cannot be empty")
	}
	return nil
}

// Subtotal sums the amounts of all items
func Subtotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount())
	}
	return total
}

// CopyItems returns a deep copy of items. When fresh is true every copy gets a new id,
// which is what materializing a template into an invoice needs.
func CopyItems(items []LineItem, fresh bool) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	if fresh {
		for i := range out {
			out[i].ID = uuid.New()
		}
	}
	return out
}

func normalizeItems(items []LineItem) ([]LineItem, error) {
	out := CopyItems(items, false)
	for i := range out {
		if out[i].ID == uuid.Nil {
			out[i].ID = uuid.New()
		}
		if err := out[i].validate(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
