package accounting

import (
	"context"

	"github.com/erp/acct/internal/domain/accounting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReconciliationService computes document balances from payments and applied credit
type ReconciliationService struct {
	serviceBase
	invoices   accounting.InvoiceRepository
	quotations accounting.QuotationRepository
	payments   accounting.PaymentRepository
	credits    accounting.CreditNoteRepository
}

// NewReconciliationService creates a ReconciliationService
func NewReconciliationService(
	invoices accounting.InvoiceRepository,
	quotations accounting.QuotationRepository,
	payments accounting.PaymentRepository,
	credits accounting.CreditNoteRepository,
	opts ...Option,
) *ReconciliationService {
	return &ReconciliationService{
		serviceBase: newServiceBase(opts),
		invoices:    invoices,
		quotations:  quotations,
		payments:    payments,
		credits:     credits,
	}
}

// InvoiceBalance reconciles one invoice against every payment and credit note
func (s *ReconciliationService) InvoiceBalance(ctx context.Context, id uuid.UUID) (accounting.Balance, error) {
	inv, err := s.invoices.Get(ctx, id)
	if err != nil {
		return accounting.Balance{}, err
	}
	payments, credits, err := s.sources(ctx)
	if err != nil {
		return accounting.Balance{}, err
	}
	return accounting.Reconcile(inv, payments, credits), nil
}

// QuotationBalance reconciles one quotation against its payments
func (s *ReconciliationService) QuotationBalance(ctx context.Context, id uuid.UUID) (accounting.Balance, error) {
	q, err := s.quotations.Get(ctx, id)
	if err != nil {
		return accounting.Balance{}, err
	}
	payments, err := s.payments.List(ctx)
	if err != nil {
		return accounting.Balance{}, err
	}
	return accounting.Reconcile(q, payments, nil), nil
}

// Outstanding lists the open balances of every non-void invoice and every
// quotation. Settled documents are left out.
func (s *ReconciliationService) Outstanding(ctx context.Context) (*OutstandingResponse, error) {
	invoices, err := s.invoices.List(ctx)
	if err != nil {
		return nil, err
	}
	quotations, err := s.quotations.List(ctx)
	if err != nil {
		return nil, err
	}
	payments, credits, err := s.sources(ctx)
	if err != nil {
		return nil, err
	}

	out := &OutstandingResponse{
		Invoices:   []accounting.Balance{},
		Quotations: []accounting.Balance{},
		Total:      decimal.Zero,
	}
	for i := range invoices {
		if invoices[i].Status == accounting.InvoiceStatusVoid {
			continue
		}
		b := accounting.Reconcile(&invoices[i], payments, credits)
		if b.Balance.IsPositive() {
			out.Invoices = append(out.Invoices, b)
			out.Total = out.Total.Add(b.Balance)
		}
	}
	for i := range quotations {
		b := accounting.Reconcile(&quotations[i], payments, credits)
		if b.Balance.IsPositive() {
			out.Quotations = append(out.Quotations, b)
			out.Total = out.Total.Add(b.Balance)
		}
	}
	return out, nil
}

func (s *ReconciliationService) sources(ctx context.Context) ([]accounting.Payment, []accounting.CreditNote, error) {
	payments, err := s.payments.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	credits, err := s.credits.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	return payments, credits, nil
}
