package accounting

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/acct/internal/domain/shared"
)

// DefaultSeqPrefix is the invoice number prefix used when a template has none
const DefaultSeqPrefix = "INV-"

// Schedule holds the recurrence fields of a template
type Schedule struct {
	Cadence      Cadence `json:"cadence"`
	IntervalDays *int    `json:"interval_days,omitempty"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date,omitempty"`
	TimeOfDay    string  `json:"time_of_day"`
}

// Validate checks that the schedule can produce run times.
// A customDays cadence with an explicit interval below one day fails with ErrInvalidCadence.
func (s Schedule) Validate(loc *time.Location) error {
	if !s.Cadence.IsValid() {
		return shared.NewDomainError(CodeInvalidCadence, fmt.Sprintf("Unknown cadence %q", s.Cadence))
	}
	if s.Cadence == CadenceCustomDays && s.IntervalDays != nil && *s.IntervalDays < 1 {
		return ErrInvalidCadence
	}
	start, err := CombineDateTime(s.StartDate, s.TimeOfDay, loc)
	if err != nil {
		return invalidInput(fmt.Sprintf("Invalid start date or time of day: %v", err))
	}
	if s.EndDate != "" {
		end, err := ParseDate(s.EndDate, loc)
		if err != nil {
			return invalidInput(fmt.Sprintf("Invalid end date: %v", err))
		}
		if EndOfDay(end).Before(start) {
			return invalidInput("End date cannot be before start date")
		}
	}
	return nil
}

// intervalDays returns the effective custom interval
func (s Schedule) intervalDays() int {
	if s.IntervalDays == nil || *s.IntervalDays <= 0 {
		return DefaultIntervalDays
	}
	return *s.IntervalDays
}

// RecurringTemplate is the aggregate root that periodically materializes invoices
type RecurringTemplate struct {
	shared.BaseAggregateRoot
	Name     string      `json:"name"`
	Customer CustomerRef `json:"customer"`
	Items    []LineItem  `json:"items"`
	Schedule
	NextRunAt  time.Time  `json:"next_run_at"`
	Active     bool       `json:"active"`
	AutoSend   bool       `json:"auto_send"`
	SeqPrefix  string     `json:"seq_prefix,omitempty"`
	NextNumber int        `json:"next_number,omitempty"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
}

// NewRecurringTemplate creates an active template whose first run is the earliest
// cadence step at or after now
func NewRecurringTemplate(
	name string,
	customer CustomerRef,
	items []LineItem,
	schedule Schedule,
	autoSend bool,
	seqPrefix string,
	now time.Time,
	loc *time.Location,
) (*RecurringTemplate, error) {
	if strings.TrimSpace(name) == "" {
		return nil, invalidInput("Template name cannot be empty")
	}
	if err := customer.validate(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, invalidInput("Template must have at least one line item")
	}
	normalized, err := normalizeItems(items)
	if err != nil {
		return nil, err
	}

	t := &RecurringTemplate{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(now),
		Name:              name,
		Customer:          customer,
		Items:             normalized,
		Schedule:          schedule,
		Active:            true,
		AutoSend:          autoSend,
		SeqPrefix:         seqPrefix,
		NextNumber:        1,
	}

	next, err := t.ComputeInitialNextRun(now, loc)
	if err != nil {
		return nil, err
	}
	t.NextRunAt = next
	t.applyEndDate(loc)

	t.AddDomainEvent(NewRecurringTemplateCreatedEvent(t))
	return t, nil
}

// Anchor returns startDate combined with timeOfDay in loc
func (t *RecurringTemplate) Anchor(loc *time.Location) (time.Time, error) {
	anchor, err := CombineDateTime(t.StartDate, t.TimeOfDay, loc)
	if err != nil {
		return time.Time{}, invalidInput(fmt.Sprintf("Invalid start date or time of day: %v", err))
	}
	return anchor, nil
}

// ComputeNextRun applies exactly one cadence step to the later of NextRunAt and the anchor.
// It never loops to catch up with the present.
func (t *RecurringTemplate) ComputeNextRun(loc *time.Location) (time.Time, error) {
	from, err := t.Anchor(loc)
	if err != nil {
		return time.Time{}, err
	}
	if !t.NextRunAt.IsZero() && t.NextRunAt.After(from) {
		from = t.NextRunAt.In(from.Location())
	}
	return t.Cadence.Step(from, t.intervalDays()), nil
}

// ComputeInitialNextRun starts at the anchor and steps until the candidate is not before now
func (t *RecurringTemplate) ComputeInitialNextRun(now time.Time, loc *time.Location) (time.Time, error) {
	if err := t.Schedule.Validate(loc); err != nil {
		return time.Time{}, err
	}
	candidate, err := t.Anchor(loc)
	if err != nil {
		return time.Time{}, err
	}
	for candidate.Before(now) {
		candidate = t.Cadence.Step(candidate, t.intervalDays())
	}
	return candidate, nil
}

// InvoiceNumber composes the number of the next invoice: prefix plus the counter padded to 4 digits
func (t *RecurringTemplate) InvoiceNumber() string {
	prefix := t.SeqPrefix
	if prefix == "" {
		prefix = DefaultSeqPrefix
	}
	return fmt.Sprintf("%s%04d", prefix, t.currentNumber())
}

func (t *RecurringTemplate) currentNumber() int {
	if t.NextNumber < 1 {
		return 1
	}
	return t.NextNumber
}

// Materialize creates the invoice for the current run. Items are copied, never shared.
func (t *RecurringTemplate) Materialize(now time.Time) *Invoice {
	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(now),
		Number:            t.InvoiceNumber(),
		Customer:          t.Customer,
		Items:             CopyItems(t.Items, true),
		Status:            InvoiceStatusSent,
	}
	templateID := t.ID
	inv.TemplateID = &templateID
	inv.AddDomainEvent(NewRecurringInvoiceGeneratedEvent(t, inv))
	return inv
}

// RecordRun advances the template cursor after a run at now
func (t *RecurringTemplate) RecordRun(now time.Time, loc *time.Location) error {
	next, err := t.ComputeNextRun(loc)
	if err != nil {
		return err
	}
	ranAt := now
	t.LastRunAt = &ranAt
	t.NextRunAt = next
	t.NextNumber = t.currentNumber() + 1
	t.applyEndDate(loc)
	t.UpdatedAt = now
	t.IncrementVersion()
	return nil
}

// applyEndDate deactivates the template once its next run falls after the end date
func (t *RecurringTemplate) applyEndDate(loc *time.Location) {
	if t.EndDate == "" {
		return
	}
	end, err := ParseDate(t.EndDate, loc)
	if err != nil {
		return
	}
	if t.NextRunAt.After(EndOfDay(end)) {
		t.Active = false
	}
}

// IsDue reports whether the template should run at now
func (t *RecurringTemplate) IsDue(now time.Time) bool {
	return t.Active && !t.NextRunAt.IsZero() && !t.NextRunAt.After(now)
}

// RunKey identifies the scheduled occurrence currently pending.
// Two triggers for the same occurrence produce the same key.
func (t *RecurringTemplate) RunKey() string {
	return fmt.Sprintf("%s:%s", t.ID, t.NextRunAt.UTC().Format(time.RFC3339))
}

// Update replaces the descriptive fields and, when the schedule changed, recomputes the next run
func (t *RecurringTemplate) Update(
	name string,
	customer CustomerRef,
	items []LineItem,
	schedule Schedule,
	autoSend bool,
	seqPrefix string,
	now time.Time,
	loc *time.Location,
) error {
	if strings.TrimSpace(name) == "" {
		return invalidInput("Template name cannot be empty")
	}
	if err := customer.validate(); err != nil {
		return err
	}
	if len(items) == 0 {
		return invalidInput("Template must have at least one line item")
	}
	normalized, err := normalizeItems(items)
	if err != nil {
		return err
	}
	if err := schedule.Validate(loc); err != nil {
		return err
	}

	scheduleChanged := !sameSchedule(t.Schedule, schedule)
	t.Name = name
	t.Customer = customer
	t.Items = normalized
	t.AutoSend = autoSend
	t.SeqPrefix = seqPrefix
	if scheduleChanged {
		t.Schedule = schedule
		next, err := t.ComputeInitialNextRun(now, loc)
		if err != nil {
			return err
		}
		t.NextRunAt = next
		t.Active = true
		t.applyEndDate(loc)
	}
	t.UpdatedAt = now
	t.IncrementVersion()
	return nil
}

// Pause stops the template from running
func (t *RecurringTemplate) Pause(now time.Time) {
	t.Active = false
	t.UpdatedAt = now
	t.IncrementVersion()
}

// Resume reactivates the template; missed occurrences are skipped, not replayed
func (t *RecurringTemplate) Resume(now time.Time, loc *time.Location) error {
	next, err := t.ComputeInitialNextRun(now, loc)
	if err != nil {
		return err
	}
	if next.Before(t.NextRunAt) {
		next = t.NextRunAt
	}
	t.NextRunAt = next
	t.Active = true
	t.applyEndDate(loc)
	t.UpdatedAt = now
	t.IncrementVersion()
	return nil
}

func sameSchedule(a, b Schedule) bool {
	if a.Cadence != b.Cadence || a.StartDate != b.StartDate || a.EndDate != b.EndDate || a.TimeOfDay != b.TimeOfDay {
		return false
	}
	if (a.IntervalDays == nil) != (b.IntervalDays == nil) {
		return false
	}
	return a.IntervalDays == nil || *a.IntervalDays == *b.IntervalDays
}
