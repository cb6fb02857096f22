package accounting

import (
	"context"
	"sort"

	"github.com/erp/acct/internal/domain/accounting"
	"github.com/erp/acct/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreditService issues credit notes and allocates them to invoices
type CreditService struct {
	serviceBase
	credits  accounting.CreditNoteRepository
	invoices accounting.InvoiceRepository
}

// NewCreditService creates a CreditService. WithCreditLimit turns on
// rejection of over-allocation.
func NewCreditService(credits accounting.CreditNoteRepository, invoices accounting.InvoiceRepository, opts ...Option) *CreditService {
	return &CreditService{
		serviceBase: newServiceBase(opts),
		credits:     credits,
		invoices:    invoices,
	}
}

// Issue stores a new credit note with nothing applied
func (s *CreditService) Issue(ctx context.Context, req CreditNoteRequest) (*accounting.CreditNote, error) {
	date, err := s.parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	note, err := accounting.NewCreditNote(req.Number, date, req.CustomerID, req.Amount, req.Notes, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.credits.Upsert(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

// Get returns one credit note
func (s *CreditService) Get(ctx context.Context, id uuid.UUID) (*accounting.CreditNote, error) {
	return s.credits.Get(ctx, id)
}

// List returns credit notes, latest date first
func (s *CreditService) List(ctx context.Context) ([]accounting.CreditNote, error) {
	list, err := s.credits.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Date.After(list[j].Date) })
	return list, nil
}

// Delete removes a credit note and with it every allocation it carried
func (s *CreditService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.credits.Remove(ctx, id)
}

// Apply merges allocations into the note. The note is read, merged and saved
// as one step, so concurrent applications accumulate and the optional limit is
// checked against the latest stored total. The note and every targeted invoice
// must exist.
func (s *CreditService) Apply(ctx context.Context, id uuid.UUID, req ApplyCreditRequest) (*accounting.CreditNote, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "credit", "apply", "credit_note_id", id.String())
	defer span.End()

	allocations := make([]accounting.CreditAllocation, 0, len(req.Allocations))
	for _, a := range req.Allocations {
		if _, err := s.invoices.Get(ctx, a.InvoiceID); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		allocations = append(allocations, accounting.CreditAllocation{InvoiceID: a.InvoiceID, Amount: a.Amount})
	}

	now := s.now()
	note, err := s.credits.Update(ctx, id, func(n *accounting.CreditNote) error {
		return n.Apply(allocations, s.enforce, now)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, note)
	s.metrics.RecordCreditApplied(ctx)

	s.log(ctx).Info("Credit applied",
		zap.String("credit_note", note.Number),
		zap.Int("allocations", len(allocations)),
		zap.String("remaining", note.Remaining().String()),
	)
	return note, nil
}
