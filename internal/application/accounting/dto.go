package accounting

import (
	"time"

	"github.com/erp/acct/internal/domain/accounting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Shared inputs ====================

// CustomerInput is the customer snapshot of a document
type CustomerInput struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name" binding:"required,min=1,max=200"`
	Email string    `json:"email" binding:"omitempty,email"`
}

func (c CustomerInput) toRef() accounting.CustomerRef {
	return accounting.CustomerRef{ID: c.ID, Name: c.Name, Email: c.Email}
}

// LineItemInput is one billed line. Qty may be negative.
type LineItemInput struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name" binding:"required,min=1,max=200"`
	Qty         decimal.Decimal `json:"qty"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description" binding:"max=1000"`
}

func toLineItems(in []LineItemInput) []accounting.LineItem {
	items := make([]accounting.LineItem, len(in))
	for i, item := range in {
		items[i] = accounting.LineItem{
			ID:          item.ID,
			Name:        item.Name,
			Qty:         item.Qty,
			Price:       item.Price,
			Description: item.Description,
		}
	}
	return items
}

// ==================== Recurring templates ====================

// TemplateRequest creates or replaces a recurring template.
// Cadence is validated by the domain so an unknown value maps to INVALID_CADENCE.
type TemplateRequest struct {
	Name         string          `json:"name" binding:"required,min=1,max=200"`
	Customer     CustomerInput   `json:"customer" binding:"required"`
	Items        []LineItemInput `json:"items" binding:"required,min=1,dive"`
	Cadence      string          `json:"cadence" binding:"required"`
	IntervalDays *int            `json:"interval_days"`
	StartDate    string          `json:"start_date" binding:"required"`
	EndDate      string          `json:"end_date"`
	TimeOfDay    string          `json:"time_of_day" binding:"required"`
	AutoSend     bool            `json:"auto_send"`
	SeqPrefix    string          `json:"seq_prefix" binding:"max=20"`
}

func (r TemplateRequest) schedule() accounting.Schedule {
	return accounting.Schedule{
		Cadence:      accounting.Cadence(r.Cadence),
		IntervalDays: r.IntervalDays,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		TimeOfDay:    r.TimeOfDay,
	}
}

// DispatchOutcome reports the delivery attempt of an auto-send invoice.
// It is separate from the run: a failed dispatch never undoes the invoice.
type DispatchOutcome struct {
	Attempted bool   `json:"attempted"`
	Sent      bool   `json:"sent"`
	Error     string `json:"error,omitempty"`
}

// RunResult is the committed outcome of one template run
type RunResult struct {
	Invoice  *accounting.Invoice           `json:"invoice"`
	Template *accounting.RecurringTemplate `json:"template"`
	Dispatch DispatchOutcome               `json:"dispatch"`

	ArchiveKey string `json:"archive_key,omitempty"` // Object key of the archived snapshot
}

// NextRunResponse shows the pending run and the one after it
type NextRunResponse struct {
	TemplateID    uuid.UUID `json:"template_id"`
	Active        bool      `json:"active"`
	NextRunAt     time.Time `json:"next_run_at"`
	FollowingRun  time.Time `json:"following_run_at"`
	NextNumber    string    `json:"next_number"`
	Due           bool      `json:"due"`
	PendingRunKey string    `json:"pending_run_key"`
}

// RunDueResult summarizes one scan of due templates
type RunDueResult struct {
	Runs    []RunResult `json:"runs"`
	Skipped []string    `json:"skipped"` // Run keys already processed or no longer pending
	Failed  []RunError  `json:"failed"`
}

// RunError is a template run that failed during a scan
type RunError struct {
	TemplateID uuid.UUID `json:"template_id"`
	RunKey     string    `json:"run_key"`
	Error      string    `json:"error"`
}

// ==================== Ledger documents ====================

// InvoiceRequest creates or replaces an invoice
type InvoiceRequest struct {
	Number      string          `json:"number" binding:"required,min=1,max=50"`
	Customer    CustomerInput   `json:"customer" binding:"required"`
	Items       []LineItemInput `json:"items" binding:"dive"`
	Status      string          `json:"status" binding:"omitempty,oneof=draft sent paid void"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	Shipping    decimal.Decimal `json:"shipping"`
}

// QuotationRequest creates or replaces a quotation
type QuotationRequest struct {
	Number      string          `json:"number" binding:"required,min=1,max=50"`
	Customer    CustomerInput   `json:"customer" binding:"required"`
	Items       []LineItemInput `json:"items" binding:"dive"`
	Status      string          `json:"status" binding:"omitempty,oneof=draft sent accepted declined"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	Shipping    decimal.Decimal `json:"shipping"`
}

// PaymentRequest records a payment. Dates are YYYY-MM-DD in the service time zone.
type PaymentRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	Date       string          `json:"date" binding:"required"`
	CustomerID uuid.UUID       `json:"customer_id"`
	InvoiceID  *uuid.UUID      `json:"invoice_id"`
	QuoteID    *uuid.UUID      `json:"quote_id"`
	Method     string          `json:"method" binding:"max=50"`
	Reference  string          `json:"reference" binding:"max=100"`
}

// SaleRequest records a point-of-sale transaction
type SaleRequest struct {
	Number   string          `json:"number" binding:"required,min=1,max=50"`
	Date     string          `json:"date" binding:"required"`
	Customer CustomerInput   `json:"customer"`
	Items    []LineItemInput `json:"items" binding:"required,min=1,dive"`
}

// ExpenseRequest records an expense
type ExpenseRequest struct {
	Date     string          `json:"date" binding:"required"`
	Category string          `json:"category" binding:"required,min=1,max=100"`
	Vendor   string          `json:"vendor" binding:"max=200"`
	Amount   decimal.Decimal `json:"amount"`
	Tax      decimal.Decimal `json:"tax"`
	Notes    string          `json:"notes" binding:"max=1000"`
}

// SettingsRequest replaces the company settings
type SettingsRequest struct {
	Name           string          `json:"name" binding:"required,min=1,max=200"`
	Email          string          `json:"email" binding:"omitempty,email"`
	CurrencySymbol string          `json:"currency_symbol" binding:"max=5"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
}

// ==================== Credit notes ====================

// CreditNoteRequest issues a credit note
type CreditNoteRequest struct {
	Number     string          `json:"number" binding:"required,min=1,max=50"`
	Date       string          `json:"date" binding:"required"`
	CustomerID uuid.UUID       `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
	Notes      string          `json:"notes" binding:"max=1000"`
}

// AllocationInput requests credit for one invoice
type AllocationInput struct {
	InvoiceID uuid.UUID       `json:"invoice_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
}

// ApplyCreditRequest allocates credit across invoices
type ApplyCreditRequest struct {
	Allocations []AllocationInput `json:"allocations" binding:"required,min=1,dive"`
}

// ==================== Reconciliation ====================

// OutstandingResponse lists every open balance
type OutstandingResponse struct {
	Invoices   []accounting.Balance `json:"invoices"`
	Quotations []accounting.Balance `json:"quotations"`
	Total      decimal.Decimal      `json:"total"`
}
