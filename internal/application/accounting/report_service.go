package accounting

import (
	"context"
	"fmt"

	"github.com/erp/acct/internal/domain/accounting"
	"github.com/erp/acct/internal/domain/shared"
	"github.com/erp/acct/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ReportService builds the aggregated reports
type ReportService struct {
	serviceBase
	repos ReportRepositories
}

// ReportRepositories are the collections a report reads
type ReportRepositories struct {
	Invoices   accounting.InvoiceRepository
	Quotations accounting.QuotationRepository
	Sales      accounting.SaleRepository
	Credits    accounting.CreditNoteRepository
	Expenses   accounting.ExpenseRepository
	Payments   accounting.PaymentRepository
	Settings   accounting.SettingsRepository
}

// NewReportService creates a ReportService
func NewReportService(repos ReportRepositories, opts ...Option) *ReportService {
	return &ReportService{serviceBase: newServiceBase(opts), repos: repos}
}

// Generate aggregates module over the civil days from..to (YYYY-MM-DD, inclusive)
func (s *ReportService) Generate(ctx context.Context, module, from, to string) (accounting.Report, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "generate", telemetry.SpanAttrReportKind, module)
	defer span.End()

	m := accounting.ReportModule(module)
	if !m.IsValid() {
		err := shared.NewDomainError(shared.ErrInvalidInput.Code, fmt.Sprintf("Unknown report module %q", module))
		telemetry.RecordError(span, err)
		return nil, err
	}
	rng, err := accounting.NewDateRange(from, to, s.loc)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	ds, err := s.dataset(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	report, err := accounting.Aggregate(m, rng, ds)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.log(ctx).Debug("Report generated", zap.String("module", module), zap.String("from", from), zap.String("to", to))
	return report, nil
}

func (s *ReportService) dataset(ctx context.Context) (accounting.Dataset, error) {
	var (
		ds  accounting.Dataset
		err error
	)
	if ds.Invoices, err = s.repos.Invoices.List(ctx); err != nil {
		return ds, err
	}
	if ds.Quotations, err = s.repos.Quotations.List(ctx); err != nil {
		return ds, err
	}
	if ds.Sales, err = s.repos.Sales.List(ctx); err != nil {
		return ds, err
	}
	if ds.Credits, err = s.repos.Credits.List(ctx); err != nil {
		return ds, err
	}
	if ds.Expenses, err = s.repos.Expenses.List(ctx); err != nil {
		return ds, err
	}
	if ds.Payments, err = s.repos.Payments.List(ctx); err != nil {
		return ds, err
	}
	if ds.Settings, err = s.repos.Settings.Get(ctx); err != nil {
		return ds, err
	}
	return ds, nil
}
