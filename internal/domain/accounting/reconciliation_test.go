package accounting

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInvoice(t *testing.T, subtotal int64, createdAt time.Time) *Invoice {
	t.Helper()
	item, err := NewLineItem("Service", decimal.NewFromInt(1), decimal.NewFromInt(subtotal), "")
	require.NoError(t, err)
	inv, err := NewInvoice("INV-T", testCustomer(), []LineItem{item}, createdAt)
	require.NoError(t, err)
	return inv
}

func paymentFor(t *testing.T, amount int64, invoiceID, quoteID *uuid.UUID) Payment {
	t.Helper()
	p, err := NewPayment(decimal.NewFromInt(amount), time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), uuid.New(), invoiceID, quoteID, "cash", "", time.Now())
	require.NoError(t, err)
	return *p
}

func TestBalanceOf_Scenario(t *testing.T) {
	inv := newTestInvoice(t, 500, time.Now())
	payments := []Payment{paymentFor(t, 200, &inv.ID, nil)}

	note := newTestCreditNote(t, 400)
	require.NoError(t, note.Apply([]CreditAllocation{{InvoiceID: inv.ID, Amount: decimal.NewFromInt(150)}}, false, time.Now()))

	balance := BalanceOf(inv, payments, []CreditNote{*note})
	assert.True(t, balance.Equal(decimal.NewFromInt(150)), balance.String())
}

func TestBalanceOf_FloorsAtZero(t *testing.T) {
	inv := newTestInvoice(t, 100, time.Now())
	payments := []Payment{paymentFor(t, 60, &inv.ID, nil)}
	note := newTestCreditNote(t, 50)
	require.NoError(t, note.Apply([]CreditAllocation{{InvoiceID: inv.ID, Amount: decimal.NewFromInt(50)}}, false, time.Now()))

	b := Reconcile(inv, payments, []CreditNote{*note})
	assert.True(t, b.Balance.IsZero())
	assert.True(t, b.Paid.Equal(decimal.NewFromInt(60)))
	assert.True(t, b.Credited.Equal(decimal.NewFromInt(50)))
}

func TestBalanceOf_Monotonic(t *testing.T) {
	inv := newTestInvoice(t, 300, time.Now())
	payments := []Payment{}
	previous := BalanceOf(inv, payments, nil)
	for i := 0; i < 5; i++ {
		payments = append(payments, paymentFor(t, 80, &inv.ID, nil))
		current := BalanceOf(inv, payments, nil)
		assert.True(t, current.LessThanOrEqual(previous))
		assert.False(t, current.IsNegative())
		previous = current
	}
}

func TestBalanceOf_IgnoresOtherDocuments(t *testing.T) {
	inv := newTestInvoice(t, 100, time.Now())
	other := uuid.New()
	payments := []Payment{
		paymentFor(t, 40, &other, nil),
		paymentFor(t, 10, nil, nil),
		paymentFor(t, 25, nil, &inv.ID),
	}
	assert.True(t, BalanceOf(inv, payments, nil).Equal(decimal.NewFromInt(100)))
}

func TestBalanceOf_Quotation(t *testing.T) {
	item, err := NewLineItem("Design", decimal.NewFromInt(2), decimal.NewFromInt(50), "")
	require.NoError(t, err)
	q, err := NewQuotation("Q-1", testCustomer(), []LineItem{item}, time.Now())
	require.NoError(t, err)

	payments := []Payment{paymentFor(t, 30, nil, &q.ID)}
	note := newTestCreditNote(t, 100)
	require.NoError(t, note.Apply([]CreditAllocation{{InvoiceID: q.ID, Amount: decimal.NewFromInt(70)}}, false, time.Now()))

	b := Reconcile(q, payments, []CreditNote{*note})
	assert.True(t, b.Credited.IsZero(), "quotations do not receive credit")
	assert.True(t, b.Balance.Equal(decimal.NewFromInt(70)))
	assert.Equal(t, DocumentKindQuotation, b.Kind)
}

func TestQuotation_GrandTotal(t *testing.T) {
	item, err := NewLineItem("Work", decimal.NewFromInt(1), decimal.NewFromInt(200), "")
	require.NoError(t, err)
	q, err := NewQuotation("Q-2", testCustomer(), []LineItem{item}, time.Now())
	require.NoError(t, err)

	require.NoError(t, q.SetAdjustments(decimal.NewFromInt(10), decimal.NewFromInt(20)))
	// (200 - 20 + 20) * 1.05
	assert.True(t, q.GrandTotal(decimal.NewFromInt(5)).Equal(decimal.NewFromInt(210)))

	neg, err := NewLineItem("Refund", decimal.NewFromInt(-1), decimal.NewFromInt(500), "")
	require.NoError(t, err)
	q.Items = append(q.Items, neg)
	assert.True(t, q.GrandTotal(decimal.NewFromInt(5)).IsZero())

	assert.Error(t, q.SetAdjustments(decimal.NewFromInt(101), decimal.Zero))
}

func TestNewPayment_Validation(t *testing.T) {
	id := uuid.New()
	_, err := NewPayment(decimal.NewFromInt(10), time.Now(), uuid.New(), &id, &id, "cash", "", time.Now())
	assert.Error(t, err)
	_, err = NewPayment(decimal.Zero, time.Now(), uuid.New(), nil, nil, "cash", "", time.Now())
	assert.Error(t, err)

	p, err := NewPayment(decimal.NewFromInt(10), time.Now(), uuid.New(), nil, nil, "cash", "", time.Now())
	require.NoError(t, err)
	assert.True(t, p.IsUnapplied())
}
