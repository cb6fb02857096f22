package accounting

import (
	"time"

	"github.com/erp/acct/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeRecurringTemplate = "RecurringTemplate"
	AggregateTypeInvoice           = "Invoice"
	AggregateTypeCreditNote        = "CreditNote"
)

// Event type constants
const (
	EventTypeRecurringTemplateCreated = "RecurringTemplateCreated"
	EventTypeRecurringInvoiceCreated  = "RecurringInvoiceGenerated"
	EventTypeCreditApplied            = "CreditApplied"
)

// RecurringTemplateCreatedEvent is raised when a template is created
type RecurringTemplateCreatedEvent struct {
	shared.BaseDomainEvent
	TemplateID uuid.UUID `json:"template_id"`
	Name       string    `json:"name"`
	Cadence    Cadence   `json:"cadence"`
	NextRunAt  time.Time `json:"next_run_at"`
}

// NewRecurringTemplateCreatedEvent creates a new RecurringTemplateCreatedEvent
func NewRecurringTemplateCreatedEvent(t *RecurringTemplate) *RecurringTemplateCreatedEvent {
	return &RecurringTemplateCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRecurringTemplateCreated, AggregateTypeRecurringTemplate, t.ID),
		TemplateID:      t.ID,
		Name:            t.Name,
		Cadence:         t.Cadence,
		NextRunAt:       t.NextRunAt,
	}
}

// RecurringInvoiceGeneratedEvent is raised when a template run materializes an invoice
type RecurringInvoiceGeneratedEvent struct {
	shared.BaseDomainEvent
	TemplateID    uuid.UUID       `json:"template_id"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerName  string          `json:"customer_name"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

// NewRecurringInvoiceGeneratedEvent creates a new RecurringInvoiceGeneratedEvent
func NewRecurringInvoiceGeneratedEvent(t *RecurringTemplate, inv *Invoice) *RecurringInvoiceGeneratedEvent {
	return &RecurringInvoiceGeneratedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRecurringInvoiceCreated, AggregateTypeInvoice, inv.ID),
		TemplateID:      t.ID,
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.Number,
		CustomerName:    inv.Customer.Name,
		Subtotal:        inv.Subtotal(),
	}
}

// CreditAppliedEvent is raised when credit is allocated to invoices
type CreditAppliedEvent struct {
	shared.BaseDomainEvent
	CreditNoteID uuid.UUID          `json:"credit_note_id"`
	Number       string             `json:"number"`
	Allocations  []CreditAllocation `json:"allocations"`
	Remaining    decimal.Decimal    `json:"remaining"`
}

// NewCreditAppliedEvent creates a new CreditAppliedEvent
func NewCreditAppliedEvent(c *CreditNote, allocations []CreditAllocation) *CreditAppliedEvent {
	applied := make([]CreditAllocation, 0, len(allocations))
	for _, a := range allocations {
		if a.Amount.IsPositive() {
			applied = append(applied, a)
		}
	}
	return &CreditAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCreditApplied, AggregateTypeCreditNote, c.ID),
		CreditNoteID:    c.ID,
		Number:          c.Number,
		Allocations:     applied,
		Remaining:       c.Remaining(),
	}
}
