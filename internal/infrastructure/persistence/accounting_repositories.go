package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/erp/acct/internal/domain/accounting"
	"github.com/erp/acct/internal/domain/shared"
)

// Repositories groups every accounting repository over one store
type Repositories struct {
	Templates  accounting.RecurringTemplateRepository
	Invoices   accounting.InvoiceRepository
	Quotations accounting.QuotationRepository
	Payments   accounting.PaymentRepository
	Credits    accounting.CreditNoteRepository
	Sales      accounting.SaleRepository
	Expenses   accounting.ExpenseRepository
	Settings   accounting.SettingsRepository
}

// NewRepositories builds the accounting repositories over store
func NewRepositories(store shared.KeyValueStore, defaults accounting.CompanySettings, opts ...CollectionOption) *Repositories {
	return &Repositories{
		Templates:  NewCollection[accounting.RecurringTemplate](store, accounting.KeyRecurring, "Recurring template", opts...),
		Invoices:   NewCollection[accounting.Invoice](store, accounting.KeyInvoices, "Invoice", opts...),
		Quotations: NewCollection[accounting.Quotation](store, accounting.KeyQuotations, "Quotation", opts...),
		Payments:   NewCollection[accounting.Payment](store, accounting.KeyPayments, "Payment", opts...),
		Credits:    NewCollection[accounting.CreditNote](store, accounting.KeyCredits, "Credit note", opts...),
		Sales:      NewCollection[accounting.Sale](store, accounting.KeySales, "Sale", opts...),
		Expenses:   NewCollection[accounting.Expense](store, accounting.KeyExpenses, "Expense", opts...),
		Settings:   NewSettingsStore(store, defaults, opts...),
	}
}

// SettingsStore keeps the company settings object under acct.settings
type SettingsStore struct {
	store     shared.KeyValueStore
	defaults  accounting.CompanySettings
	publisher shared.EventPublisher
	origin    string
	mu        sync.Mutex
}

// NewSettingsStore creates a SettingsStore returning defaults until settings are saved
func NewSettingsStore(store shared.KeyValueStore, defaults accounting.CompanySettings, opts ...CollectionOption) *SettingsStore {
	var o collectionOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &SettingsStore{store: store, defaults: defaults, publisher: o.publisher, origin: o.origin}
}

// Get returns the saved settings or the defaults
func (s *SettingsStore) Get(ctx context.Context) (accounting.CompanySettings, error) {
	raw, found, err := s.store.Get(ctx, accounting.KeySettings)
	if err != nil {
		return accounting.CompanySettings{}, err
	}
	if !found {
		return s.defaults, nil
	}
	settings := s.defaults
	if err := json.Unmarshal(raw, &settings); err != nil {
		return accounting.CompanySettings{}, fmt.Errorf("failed to decode %s: %w", accounting.KeySettings, err)
	}
	return settings, nil
}

// Save replaces the settings
func (s *SettingsStore) Save(ctx context.Context, settings accounting.CompanySettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", accounting.KeySettings, err)
	}
	if err := s.store.Set(ctx, accounting.KeySettings, raw); err != nil {
		return err
	}
	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, shared.NewCollectionChangedEvent(accounting.KeySettings, s.origin))
	}
	return nil
}

var (
	_ accounting.RecurringTemplateRepository = (*Collection[accounting.RecurringTemplate, *accounting.RecurringTemplate])(nil)
	_ accounting.InvoiceRepository           = (*Collection[accounting.Invoice, *accounting.Invoice])(nil)
	_ accounting.CreditNoteRepository        = (*Collection[accounting.CreditNote, *accounting.CreditNote])(nil)
	_ accounting.SettingsRepository          = (*SettingsStore)(nil)
)
