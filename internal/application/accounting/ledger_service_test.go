package accounting

import (
	"context"
	"testing"

	"github.com/erp/acct/internal/domain/accounting"
	"github.com/erp/acct/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedgerService(repos LedgerRepositories, clock *testClock) *LedgerService {
	return NewLedgerService(repos, WithClock(clock.Now))
}

func ledgerFixture() (LedgerRepositories, *testClock) {
	r := newTestRepos()
	return LedgerRepositories{
		Invoices:   r.Invoices,
		Quotations: r.Quotations,
		Payments:   r.Payments,
		Sales:      r.Sales,
		Expenses:   r.Expenses,
		Settings:   r.Settings,
	}, newTestClock(at("2024-03-01T10:00:00Z"))
}

func invoiceRequest(number string) InvoiceRequest {
	return InvoiceRequest{
		Number:   number,
		Customer: CustomerInput{Name: "Acme"},
		Items: []LineItemInput{
			{Name: "Consulting", Qty: decimal.NewFromInt(5), Price: decimal.NewFromInt(100)},
		},
	}
}

func TestLedgerService_Invoices(t *testing.T) {
	repos, clock := ledgerFixture()
	svc := newLedgerService(repos, clock)
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, invoiceRequest("INV-0100"))
	require.NoError(t, err)
	assert.Equal(t, accounting.InvoiceStatusDraft, inv.Status)
	assert.Equal(t, "500", inv.Subtotal().String())

	req := invoiceRequest("INV-0100")
	req.Status = "sent"
	req.DiscountPct = decimal.NewFromInt(10)
	updated, err := svc.UpdateInvoice(ctx, inv.ID, req)
	require.NoError(t, err)
	assert.Equal(t, accounting.InvoiceStatusSent, updated.Status)
	assert.True(t, decimal.NewFromInt(10).Equal(updated.DiscountPct))

	list, err := svc.ListInvoices(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	req.DiscountPct = decimal.NewFromInt(120)
	_, err = svc.UpdateInvoice(ctx, inv.ID, req)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = svc.UpdateInvoice(ctx, uuid.New(), invoiceRequest("INV-0101"))
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, svc.DeleteInvoice(ctx, inv.ID))
	require.NoError(t, svc.DeleteInvoice(ctx, inv.ID))
	_, err = svc.GetInvoice(ctx, inv.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestLedgerService_VoidInvoiceStaysVoid(t *testing.T) {
	repos, clock := ledgerFixture()
	svc := newLedgerService(repos, clock)
	ctx := context.Background()

	req := invoiceRequest("INV-0200")
	req.Status = "void"
	inv, err := svc.CreateInvoice(ctx, req)
	require.NoError(t, err)

	req.Status = "sent"
	_, err = svc.UpdateInvoice(ctx, inv.ID, req)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestLedgerService_Quotations(t *testing.T) {
	repos, clock := ledgerFixture()
	svc := newLedgerService(repos, clock)
	ctx := context.Background()

	q, err := svc.CreateQuotation(ctx, QuotationRequest{
		Number:   "Q-1",
		Customer: CustomerInput{Name: "Acme"},
		Items:    []LineItemInput{{Name: "Design", Qty: decimal.NewFromInt(1), Price: decimal.NewFromInt(800)}},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateQuotation(ctx, q.ID, QuotationRequest{
		Number:   "Q-1",
		Customer: CustomerInput{Name: "Acme"},
		Items:    []LineItemInput{{Name: "Design", Qty: decimal.NewFromInt(1), Price: decimal.NewFromInt(900)}},
		Status:   "accepted",
	})
	require.NoError(t, err)
	assert.Equal(t, accounting.QuotationStatusAccepted, updated.Status)
	assert.Equal(t, "900", updated.Subtotal().String())

	list, err := svc.ListQuotations(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestLedgerService_RecordPayment(t *testing.T) {
	repos, clock := ledgerFixture()
	svc := newLedgerService(repos, clock)
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, invoiceRequest("INV-0300"))
	require.NoError(t, err)

	p, err := svc.RecordPayment(ctx, PaymentRequest{Amount: decimal.NewFromInt(200), Date: "2024-03-02", InvoiceID: &inv.ID, Method: "card"})
	require.NoError(t, err)
	assert.Equal(t, at("2024-03-02T00:00:00Z"), p.Date)
	assert.False(t, p.IsUnapplied())

	unapplied, err := svc.RecordPayment(ctx, PaymentRequest{Amount: decimal.NewFromInt(50), Date: "2024-03-05"})
	require.NoError(t, err)
	assert.True(t, unapplied.IsUnapplied())

	list, err := svc.ListPayments(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, unapplied.ID, list[0].ID, "latest date first")

	missing := uuid.New()
	tests := []struct {
		name string
		req  PaymentRequest
		err  error
	}{
		{"unknown invoice", PaymentRequest{Amount: decimal.NewFromInt(1), Date: "2024-03-02", InvoiceID: &missing}, shared.ErrNotFound},
		{"bad date", PaymentRequest{Amount: decimal.NewFromInt(1), Date: "03/02/2024"}, shared.ErrInvalidInput},
		{"zero amount", PaymentRequest{Amount: decimal.Zero, Date: "2024-03-02"}, shared.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordPayment(ctx, tt.req)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestLedgerService_SalesAndExpenses(t *testing.T) {
	repos, clock := ledgerFixture()
	svc := newLedgerService(repos, clock)
	ctx := context.Background()

	sale, err := svc.RecordSale(ctx, SaleRequest{
		Number: "POS-1",
		Date:   "2024-03-01",
		Items:  []LineItemInput{{Name: "Coffee", Qty: decimal.NewFromInt(3), Price: decimal.RequireFromString("2.50")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "7.5", sale.Subtotal().String())

	exp, err := svc.RecordExpense(ctx, ExpenseRequest{
		Date:     "2024-03-01",
		Category: "Rent",
		Amount:   decimal.NewFromInt(1000),
		Tax:      decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.Equal(t, "1100", exp.Total().String())

	sales, err := svc.ListSales(ctx)
	require.NoError(t, err)
	assert.Len(t, sales, 1)
	expenses, err := svc.ListExpenses(ctx)
	require.NoError(t, err)
	assert.Len(t, expenses, 1)

	require.NoError(t, svc.DeleteSale(ctx, sale.ID))
	require.NoError(t, svc.DeleteExpense(ctx, exp.ID))
	_, err = svc.GetSale(ctx, sale.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestLedgerService_Settings(t *testing.T) {
	repos, clock := ledgerFixture()
	svc := newLedgerService(repos, clock)

	settings, err := svc.GetSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, accounting.DefaultCompanySettings().Name, settings.Name)

	req := SettingsRequest{Name: "Acme Ltd", Email: "billing@acme.test", TaxRate: decimal.NewFromInt(20)}
	_, err = svc.SaveSettings(clerkActor(context.Background()), req)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	admin := shared.WithActor(context.Background(), shared.Actor{UserID: "admin", Permissions: []string{"*"}})
	saved, err := svc.SaveSettings(admin, req)
	require.NoError(t, err)
	assert.Equal(t, "$", saved.CurrencySymbol)

	settings, err = svc.GetSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", settings.Name)
	assert.True(t, decimal.NewFromInt(20).Equal(settings.TaxRate))

	req.TaxRate = decimal.NewFromInt(-1)
	_, err = svc.SaveSettings(admin, req)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
