package accounting

import (
	"context"

	"github.com/erp/acct/internal/domain/shared"
)

// Storage keys of the accounting collections
const (
	KeyRecurring  = "acct.recurring"
	KeyInvoices   = "acct.invoices"
	KeyQuotations = "acct.quotations"
	KeyCredits    = "acct.credits"
	KeyPayments   = "acct.payments"
	KeySales      = "acct.sales"
	KeyExpenses   = "acct.expenses"
	KeySettings   = "acct.settings"
)

// KeyPrefix is shared by every accounting key
const KeyPrefix = "acct."

// RecurringTemplateRepository stores recurring templates
type RecurringTemplateRepository interface {
	shared.CollectionRepository[RecurringTemplate]
}

// InvoiceRepository stores invoices
type InvoiceRepository interface {
	shared.CollectionRepository[Invoice]
}

// QuotationRepository stores quotations
type QuotationRepository interface {
	shared.CollectionRepository[Quotation]
}

// PaymentRepository stores payments
type PaymentRepository interface {
	shared.CollectionRepository[Payment]
}

// CreditNoteRepository stores credit notes
type CreditNoteRepository interface {
	shared.CollectionRepository[CreditNote]
}

// SaleRepository stores sales
type SaleRepository interface {
	shared.CollectionRepository[Sale]
}

// ExpenseRepository stores expenses
type ExpenseRepository interface {
	shared.CollectionRepository[Expense]
}

// SettingsRepository stores the single company settings record
type SettingsRepository interface {
	// Get returns the saved settings, or DefaultCompanySettings when none were saved
	Get(ctx context.Context) (CompanySettings, error)
	Save(ctx context.Context, settings CompanySettings) error
}

// DocumentDispatcher delivers an invoice to its customer, e.g. by email
type DocumentDispatcher interface {
	DispatchInvoice(ctx context.Context, invoice *Invoice, settings CompanySettings) error
}

// DocumentArchiver keeps an immutable snapshot of a generated invoice and
// returns the key it was stored under
type DocumentArchiver interface {
	ArchiveInvoice(ctx context.Context, invoice *Invoice) (string, error)
}
