package accounting

import (
	"context"
	"sort"
	"time"

	"github.com/erp/acct/internal/domain/accounting"
	"github.com/erp/acct/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LedgerService stores the plain documents: invoices, quotations, payments,
// sales, expenses and the company settings
type LedgerService struct {
	serviceBase
	invoices   accounting.InvoiceRepository
	quotations accounting.QuotationRepository
	payments   accounting.PaymentRepository
	sales      accounting.SaleRepository
	expenses   accounting.ExpenseRepository
	settings   accounting.SettingsRepository
}

// LedgerRepositories groups the repositories of LedgerService
type LedgerRepositories struct {
	Invoices   accounting.InvoiceRepository
	Quotations accounting.QuotationRepository
	Payments   accounting.PaymentRepository
	Sales      accounting.SaleRepository
	Expenses   accounting.ExpenseRepository
	Settings   accounting.SettingsRepository
}

// NewLedgerService creates a LedgerService
func NewLedgerService(repos LedgerRepositories, opts ...Option) *LedgerService {
	return &LedgerService{
		serviceBase: newServiceBase(opts),
		invoices:    repos.Invoices,
		quotations:  repos.Quotations,
		payments:    repos.Payments,
		sales:       repos.Sales,
		expenses:    repos.Expenses,
		settings:    repos.Settings,
	}
}

// ==================== Invoices ====================

// CreateInvoice stores a new invoice. Status defaults to draft.
func (s *LedgerService) CreateInvoice(ctx context.Context, req InvoiceRequest) (*accounting.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "create_invoice", telemetry.SpanAttrInvoiceNumber, req.Number)
	defer span.End()

	now := s.now()
	inv, err := accounting.NewInvoice(req.Number, req.Customer.toRef(), toLineItems(req.Items), now)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.applyInvoiceFields(inv, req, now); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.invoices.Upsert(ctx, inv); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.log(ctx).Info("Invoice created", zap.String("invoice_id", inv.ID.String()), zap.String("number", inv.Number))
	return inv, nil
}

// UpdateInvoice replaces the content of an invoice
func (s *LedgerService) UpdateInvoice(ctx context.Context, id uuid.UUID, req InvoiceRequest) (*accounting.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "update_invoice", telemetry.SpanAttrInvoiceNumber, req.Number)
	defer span.End()

	now := s.now()
	inv, err := s.invoices.Update(ctx, id, func(inv *accounting.Invoice) error {
		if err := inv.Update(req.Number, req.Customer.toRef(), toLineItems(req.Items), now); err != nil {
			return err
		}
		return s.applyInvoiceFields(inv, req, now)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return inv, nil
}

func (s *LedgerService) applyInvoiceFields(inv *accounting.Invoice, req InvoiceRequest, now time.Time) error {
	if err := inv.SetAdjustments(req.DiscountPct, req.Shipping); err != nil {
		return err
	}
	if req.Status != "" && accounting.InvoiceStatus(req.Status) != inv.Status {
		return inv.ChangeStatus(accounting.InvoiceStatus(req.Status), now)
	}
	return nil
}

// GetInvoice returns one invoice
func (s *LedgerService) GetInvoice(ctx context.Context, id uuid.UUID) (*accounting.Invoice, error) {
	return s.invoices.Get(ctx, id)
}

// ListInvoices returns invoices, newest first
func (s *LedgerService) ListInvoices(ctx context.Context) ([]accounting.Invoice, error) {
	list, err := s.invoices.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

// DeleteInvoice removes an invoice
func (s *LedgerService) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	return s.invoices.Remove(ctx, id)
}

// ==================== Quotations ====================

// CreateQuotation stores a new quotation
func (s *LedgerService) CreateQuotation(ctx context.Context, req QuotationRequest) (*accounting.Quotation, error) {
	now := s.now()
	q, err := accounting.NewQuotation(req.Number, req.Customer.toRef(), toLineItems(req.Items), now)
	if err != nil {
		return nil, err
	}
	if err := applyQuotationFields(q, req, now); err != nil {
		return nil, err
	}
	if err := s.quotations.Upsert(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// UpdateQuotation replaces the content of a quotation
func (s *LedgerService) UpdateQuotation(ctx context.Context, id uuid.UUID, req QuotationRequest) (*accounting.Quotation, error) {
	now := s.now()
	return s.quotations.Update(ctx, id, func(q *accounting.Quotation) error {
		if err := q.Update(req.Number, req.Customer.toRef(), toLineItems(req.Items), now); err != nil {
			return err
		}
		return applyQuotationFields(q, req, now)
	})
}

func applyQuotationFields(q *accounting.Quotation, req QuotationRequest, now time.Time) error {
	if err := q.SetAdjustments(req.DiscountPct, req.Shipping); err != nil {
		return err
	}
	if req.Status != "" && accounting.QuotationStatus(req.Status) != q.Status {
		return q.ChangeStatus(accounting.QuotationStatus(req.Status), now)
	}
	return nil
}

// GetQuotation returns one quotation
func (s *LedgerService) GetQuotation(ctx context.Context, id uuid.UUID) (*accounting.Quotation, error) {
	return s.quotations.Get(ctx, id)
}

// ListQuotations returns quotations, newest first
func (s *LedgerService) ListQuotations(ctx context.Context) ([]accounting.Quotation, error) {
	list, err := s.quotations.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

// DeleteQuotation removes a quotation
func (s *LedgerService) DeleteQuotation(ctx context.Context, id uuid.UUID) error {
	return s.quotations.Remove(ctx, id)
}

// ==================== Payments ====================

// RecordPayment stores a payment. The targeted document must exist.
func (s *LedgerService) RecordPayment(ctx context.Context, req PaymentRequest) (*accounting.Payment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "record_payment")
	defer span.End()

	date, err := s.parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if req.InvoiceID != nil {
		if _, err := s.invoices.Get(ctx, *req.InvoiceID); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}
	if req.QuoteID != nil {
		if _, err := s.quotations.Get(ctx, *req.QuoteID); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}
	p, err := accounting.NewPayment(req.Amount, date, req.CustomerID, req.InvoiceID, req.QuoteID, req.Method, req.Reference, s.now())
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.payments.Upsert(ctx, p); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.log(ctx).Info("Payment recorded",
		zap.String("payment_id", p.ID.String()),
		zap.String("amount", p.Amount.String()),
		zap.Bool("unapplied", p.IsUnapplied()),
	)
	return p, nil
}

// GetPayment returns one payment
func (s *LedgerService) GetPayment(ctx context.Context, id uuid.UUID) (*accounting.Payment, error) {
	return s.payments.Get(ctx, id)
}

// ListPayments returns payments, latest date first
func (s *LedgerService) ListPayments(ctx context.Context) ([]accounting.Payment, error) {
	list, err := s.payments.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Date.After(list[j].Date) })
	return list, nil
}

// DeletePayment removes a payment
func (s *LedgerService) DeletePayment(ctx context.Context, id uuid.UUID) error {
	return s.payments.Remove(ctx, id)
}

// ==================== Sales ====================

// RecordSale stores a point-of-sale transaction
func (s *LedgerService) RecordSale(ctx context.Context, req SaleRequest) (*accounting.Sale, error) {
	date, err := s.parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	sale, err := accounting.NewSale(req.Number, date, req.Customer.toRef(), toLineItems(req.Items), s.now())
	if err != nil {
		return nil, err
	}
	if err := s.sales.Upsert(ctx, sale); err != nil {
		return nil, err
	}
	return sale, nil
}

// GetSale returns one sale
func (s *LedgerService) GetSale(ctx context.Context, id uuid.UUID) (*accounting.Sale, error) {
	return s.sales.Get(ctx, id)
}

// ListSales returns sales, latest date first
func (s *LedgerService) ListSales(ctx context.Context) ([]accounting.Sale, error) {
	list, err := s.sales.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Date.After(list[j].Date) })
	return list, nil
}

// DeleteSale removes a sale
func (s *LedgerService) DeleteSale(ctx context.Context, id uuid.UUID) error {
	return s.sales.Remove(ctx, id)
}

// ==================== Expenses ====================

// RecordExpense stores an expense
func (s *LedgerService) RecordExpense(ctx context.Context, req ExpenseRequest) (*accounting.Expense, error) {
	date, err := s.parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	e, err := accounting.NewExpense(date, req.Category, req.Vendor, req.Amount, req.Tax, req.Notes, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.expenses.Upsert(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// GetExpense returns one expense
func (s *LedgerService) GetExpense(ctx context.Context, id uuid.UUID) (*accounting.Expense, error) {
	return s.expenses.Get(ctx, id)
}

// ListExpenses returns expenses, latest date first
func (s *LedgerService) ListExpenses(ctx context.Context) ([]accounting.Expense, error) {
	list, err := s.expenses.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Date.After(list[j].Date) })
	return list, nil
}

// DeleteExpense removes an expense
func (s *LedgerService) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	return s.expenses.Remove(ctx, id)
}

// ==================== Settings ====================

// GetSettings returns the company settings
func (s *LedgerService) GetSettings(ctx context.Context) (accounting.CompanySettings, error) {
	return s.settings.Get(ctx)
}

// SaveSettings replaces the company settings. The caller needs settings:write.
func (s *LedgerService) SaveSettings(ctx context.Context, req SettingsRequest) (accounting.CompanySettings, error) {
	if err := requirePermission(ctx, accounting.PermissionSettingsWrite, "change company settings"); err != nil {
		return accounting.CompanySettings{}, err
	}
	settings := accounting.CompanySettings{
		Name:           req.Name,
		Email:          req.Email,
		CurrencySymbol: req.CurrencySymbol,
		TaxRate:        req.TaxRate,
	}
	if settings.CurrencySymbol == "" {
		settings.CurrencySymbol = accounting.DefaultCompanySettings().CurrencySymbol
	}
	if err := settings.Validate(); err != nil {
		return accounting.CompanySettings{}, err
	}
	if err := s.settings.Save(ctx, settings); err != nil {
		return accounting.CompanySettings{}, err
	}
	return settings, nil
}

func (s *serviceBase) parseDate(value string) (time.Time, error) {
	date, err := accounting.ParseDate(value, s.loc)
	if err != nil {
		return time.Time{}, invalidDate(value, err)
	}
	return date, nil
}
