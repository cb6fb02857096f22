package accounting

import (
	"testing"
	"time"

	"github.com/erp/acct/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDateRange(t *testing.T) {
	rng, err := NewDateRange("2024-03-01", "2024-03-31", time.UTC)
	require.NoError(t, err)

	assert.True(t, rng.Contains(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, rng.Contains(time.Date(2024, 3, 31, 23, 59, 59, 999999999, time.UTC)))
	assert.False(t, rng.Contains(time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)))
	assert.False(t, rng.Contains(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)))

	_, err = NewDateRange("2024-03-31", "2024-03-01", time.UTC)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = NewDateRange("03/01/2024", "2024-03-01", time.UTC)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func reportDataset(t *testing.T) Dataset {
	t.Helper()
	inMarch := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	inApril := time.Date(2024, 4, 2, 12, 0, 0, 0, time.UTC)

	invMarch := newTestInvoice(t, 500, inMarch)
	invApril := newTestInvoice(t, 900, inApril)
	invVoid := newTestInvoice(t, 50, inMarch)
	require.NoError(t, invVoid.ChangeStatus(InvoiceStatusVoid, inMarch))

	item, err := NewLineItem("Widget", decimal.NewFromInt(3), decimal.NewFromInt(40), "")
	require.NoError(t, err)
	sale, err := NewSale("S-1", inMarch, testCustomer(), []LineItem{item}, inMarch)
	require.NoError(t, err)

	q, err := NewQuotation("Q-1", testCustomer(), []LineItem{item}, inMarch)
	require.NoError(t, err)

	note, err := NewCreditNote("CN-1", inMarch, uuid.New(), decimal.NewFromInt(100), "", inMarch)
	require.NoError(t, err)
	require.NoError(t, note.Apply([]CreditAllocation{{InvoiceID: invMarch.ID, Amount: decimal.NewFromInt(60)}}, false, inMarch))

	expense, err := NewExpense(inMarch, "Rent", "Landlord", decimal.NewFromInt(200), decimal.NewFromInt(20), "", inMarch)
	require.NoError(t, err)
	lateExpense, err := NewExpense(inApril, "Rent", "Landlord", decimal.NewFromInt(200), decimal.Zero, "", inApril)
	require.NoError(t, err)

	// April payment against a March invoice still reduces the row balance
	payMarch, err := NewPayment(decimal.NewFromInt(100), inMarch, uuid.New(), &invMarch.ID, nil, "cash", "", inMarch)
	require.NoError(t, err)
	payApril, err := NewPayment(decimal.NewFromInt(40), inApril, uuid.New(), &invMarch.ID, nil, "bank", "", inApril)
	require.NoError(t, err)
	unapplied, err := NewPayment(decimal.NewFromInt(15), inMarch, uuid.New(), nil, nil, "cash", "", inMarch)
	require.NoError(t, err)

	return Dataset{
		Invoices:   []Invoice{*invMarch, *invApril, *invVoid},
		Quotations: []Quotation{*q},
		Sales:      []Sale{*sale},
		Credits:    []CreditNote{*note},
		Expenses:   []Expense{*expense, *lateExpense},
		Payments:   []Payment{*payMarch, *payApril, *unapplied},
		Settings:   CompanySettings{TaxRate: decimal.NewFromInt(10)},
	}
}

func TestAggregate(t *testing.T) {
	ds := reportDataset(t)
	march, err := NewDateRange("2024-03-01", "2024-03-31", time.UTC)
	require.NoError(t, err)

	t.Run("invoices", func(t *testing.T) {
		r, err := Aggregate(ReportInvoices, march, ds)
		require.NoError(t, err)
		rep, ok := r.(*InvoiceReport)
		require.True(t, ok)
		require.Len(t, rep.Rows, 2)
		// 500 - (100 + 40) - 60
		assert.True(t, rep.Rows[0].Balance.Equal(decimal.NewFromInt(300)), rep.Rows[0].Balance.String())
		assert.True(t, rep.TotalSubtotal.Equal(decimal.NewFromInt(550)))
	})

	t.Run("quotations", func(t *testing.T) {
		r, err := Aggregate(ReportQuotations, march, ds)
		require.NoError(t, err)
		rep := r.(*QuotationReport)
		require.Len(t, rep.Rows, 1)
		assert.True(t, rep.Rows[0].GrandTotal.Equal(decimal.NewFromInt(132)))
		assert.True(t, rep.Rows[0].Balance.Equal(decimal.NewFromInt(120)))
	})

	t.Run("sales", func(t *testing.T) {
		r, err := Aggregate(ReportSales, march, ds)
		require.NoError(t, err)
		assert.True(t, r.(*SalesReport).Total.Equal(decimal.NewFromInt(120)))
	})

	t.Run("credit notes", func(t *testing.T) {
		r, err := Aggregate(ReportCreditNotes, march, ds)
		require.NoError(t, err)
		rep := r.(*CreditNoteReport)
		assert.True(t, rep.TotalApplied.Equal(decimal.NewFromInt(60)))
		assert.True(t, rep.TotalRemaining.Equal(decimal.NewFromInt(40)))
	})

	t.Run("expenses", func(t *testing.T) {
		r, err := Aggregate(ReportExpenses, march, ds)
		require.NoError(t, err)
		rep := r.(*ExpenseReport)
		require.Len(t, rep.Rows, 1)
		assert.True(t, rep.Total.Equal(decimal.NewFromInt(220)))
	})

	t.Run("payments", func(t *testing.T) {
		r, err := Aggregate(ReportPayments, march, ds)
		require.NoError(t, err)
		rep := r.(*PaymentReport)
		require.Len(t, rep.Rows, 2)
		assert.True(t, rep.CashReceived.Equal(decimal.NewFromInt(115)))
		assert.True(t, rep.UnappliedTotal.Equal(decimal.NewFromInt(15)))
	})

	t.Run("income", func(t *testing.T) {
		r, err := Aggregate(ReportIncome, march, ds)
		require.NoError(t, err)
		rep := r.(*IncomeReport)
		// the void invoice counts in the invoice report but not as income
		assert.True(t, rep.InvoiceSubtotals.Equal(decimal.NewFromInt(500)))
		assert.True(t, rep.SaleSubtotals.Equal(decimal.NewFromInt(120)))
		assert.True(t, rep.Credits.Equal(decimal.NewFromInt(100)))
		assert.True(t, rep.Gross.Equal(decimal.NewFromInt(520)))
		assert.True(t, rep.Net.Equal(decimal.NewFromInt(520)))
	})

	t.Run("income vs expense", func(t *testing.T) {
		r, err := Aggregate(ReportIncomeExpense, march, ds)
		require.NoError(t, err)
		rep := r.(*IncomeExpenseReport)
		assert.Equal(t, ReportIncomeExpense, rep.Module())
		assert.True(t, rep.Profit.Equal(decimal.NewFromInt(300)))
		assert.True(t, rep.CashReceived.Equal(decimal.NewFromInt(115)))
	})

	t.Run("unknown module", func(t *testing.T) {
		_, err := Aggregate("payroll", march, ds)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestAggregate_NetIncomeFloors(t *testing.T) {
	day := time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC)
	note, err := NewCreditNote("CN-9", day, uuid.New(), decimal.NewFromInt(80), "", day)
	require.NoError(t, err)
	rng, err := NewDateRange("2024-05-01", "2024-05-31", time.UTC)
	require.NoError(t, err)

	r, err := Aggregate(ReportIncome, rng, Dataset{Credits: []CreditNote{*note}})
	require.NoError(t, err)
	rep := r.(*IncomeReport)
	assert.True(t, rep.Gross.Equal(decimal.NewFromInt(-80)))
	assert.True(t, rep.Net.IsZero())
}

func TestAggregate_EveryModuleHasVariant(t *testing.T) {
	rng, err := NewDateRange("2024-01-01", "2024-01-01", time.UTC)
	require.NoError(t, err)
	for _, m := range ReportModules {
		r, err := Aggregate(m, rng, Dataset{})
		require.NoError(t, err, m)
		assert.Equal(t, m, r.Module())
	}
}
