package accounting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/erp/acct/internal/domain/accounting"
	"github.com/erp/acct/internal/domain/shared"
	"github.com/erp/acct/internal/infrastructure/scheduler"
	"github.com/erp/acct/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Run triggers, recorded on metrics and logs
const (
	TriggerManual    = "manual"
	TriggerScheduler = "scheduler"
)

// RecurringService manages recurring templates and materializes their invoices
type RecurringService struct {
	serviceBase
	templates accounting.RecurringTemplateRepository
	invoices  accounting.InvoiceRepository
	settings  accounting.SettingsRepository
	runs      shared.IdempotencyStore

	// runMu serializes every template write so a run never reads an invoice
	// counter that another write is about to replace
	runMu sync.Mutex
}

// NewRecurringService creates a RecurringService. runs remembers processed
// scheduled occurrences.
func NewRecurringService(
	templates accounting.RecurringTemplateRepository,
	invoices accounting.InvoiceRepository,
	settings accounting.SettingsRepository,
	runs shared.IdempotencyStore,
	opts ...Option,
) *RecurringService {
	return &RecurringService{
		serviceBase: newServiceBase(opts),
		templates:   templates,
		invoices:    invoices,
		settings:    settings,
		runs:        runs,
	}
}

// Create validates req and stores a new active template
func (s *RecurringService) Create(ctx context.Context, req TemplateRequest) (*accounting.RecurringTemplate, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "recurring", "create")
	defer span.End()

	t, err := accounting.NewRecurringTemplate(
		req.Name,
		req.Customer.toRef(),
		toLineItems(req.Items),
		req.schedule(),
		req.AutoSend,
		req.SeqPrefix,
		s.now(),
		s.loc,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.templates.Upsert(ctx, t); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrTemplateID, t.ID.String())
	s.publish(ctx, t)

	s.log(ctx).Info("Recurring template created",
		zap.String("template_id", t.ID.String()),
		zap.String("cadence", t.Cadence.String()),
		zap.Time("next_run_at", t.NextRunAt),
	)
	return t, nil
}

// Update replaces the template fields. A changed schedule recomputes the next run.
func (s *RecurringService) Update(ctx context.Context, id uuid.UUID, req TemplateRequest) (*accounting.RecurringTemplate, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "recurring", "update", telemetry.SpanAttrTemplateID, id.String())
	defer span.End()

	s.runMu.Lock()
	defer s.runMu.Unlock()

	now := s.now()
	t, err := s.templates.Update(ctx, id, func(t *accounting.RecurringTemplate) error {
		return t.Update(
			req.Name,
			req.Customer.toRef(),
			toLineItems(req.Items),
			req.schedule(),
			req.AutoSend,
			req.SeqPrefix,
			now,
			s.loc,
		)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return t, nil
}

// Get returns one template
func (s *RecurringService) Get(ctx context.Context, id uuid.UUID) (*accounting.RecurringTemplate, error) {
	return s.templates.Get(ctx, id)
}

// List returns every template ordered by next run
func (s *RecurringService) List(ctx context.Context) ([]accounting.RecurringTemplate, error) {
	list, err := s.templates.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].NextRunAt.Before(list[j].NextRunAt)
	})
	return list, nil
}

// Delete removes a template. Invoices it produced are kept.
func (s *RecurringService) Delete(ctx context.Context, id uuid.UUID) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.templates.Remove(ctx, id)
}

// Pause stops a template from running
func (s *RecurringService) Pause(ctx context.Context, id uuid.UUID) (*accounting.RecurringTemplate, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	now := s.now()
	return s.templates.Update(ctx, id, func(t *accounting.RecurringTemplate) error {
		t.Pause(now)
		return nil
	})
}

// Resume reactivates a template from now; missed occurrences are not replayed
func (s *RecurringService) Resume(ctx context.Context, id uuid.UUID) (*accounting.RecurringTemplate, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	now := s.now()
	return s.templates.Update(ctx, id, func(t *accounting.RecurringTemplate) error {
		return t.Resume(now, s.loc)
	})
}

// NextRun reports the pending run and the one a run would schedule after it
func (s *RecurringService) NextRun(ctx context.Context, id uuid.UUID) (*NextRunResponse, error) {
	t, err := s.templates.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	following, err := t.ComputeNextRun(s.loc)
	if err != nil {
		return nil, err
	}
	return &NextRunResponse{
		TemplateID:    t.ID,
		Active:        t.Active,
		NextRunAt:     t.NextRunAt,
		FollowingRun:  following,
		NextNumber:    t.InvoiceNumber(),
		Due:           t.IsDue(s.now()),
		PendingRunKey: t.RunKey(),
	}, nil
}

// RunNow materializes the next invoice of a template immediately.
// The caller needs elevated billing access. Each call creates a new invoice.
func (s *RecurringService) RunNow(ctx context.Context, id uuid.UUID) (*RunResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "recurring", "run_now", telemetry.SpanAttrTemplateID, id.String())
	defer span.End()

	start := s.now()
	if err := requirePermission(ctx, accounting.PermissionBillingRun, "run a recurring template"); err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordRun(ctx, telemetry.RunForbidden, TriggerManual, 0)
		return nil, err
	}

	result, err := s.commitManual(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordRun(ctx, telemetry.RunFailed, TriggerManual, s.now().Sub(start))
		return nil, err
	}
	s.deliver(ctx, result)
	s.metrics.RecordRun(ctx, telemetry.RunGenerated, TriggerManual, s.now().Sub(start))
	return result, nil
}

func (s *RecurringService) commitManual(ctx context.Context, id uuid.UUID) (*RunResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	t, err := s.templates.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, t, TriggerManual)
}

// commit stores the invoice and the advanced template. Callers hold runMu.
// Delivery happens after the lock is released so a slow mail relay or object
// store never holds up other runs.
func (s *RecurringService) commit(ctx context.Context, t *accounting.RecurringTemplate, trigger string) (*RunResult, error) {
	now := s.now()
	inv := t.Materialize(now)
	if err := s.invoices.Upsert(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to save invoice %s: %w", inv.Number, err)
	}
	advanced, err := s.templates.Update(ctx, t.ID, func(cur *accounting.RecurringTemplate) error {
		return cur.RecordRun(now, s.loc)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to advance template %s: %w", t.ID, err)
	}
	t = advanced
	s.publish(ctx, inv, t)

	s.log(ctx).Info("Recurring invoice generated",
		zap.String("template_id", t.ID.String()),
		zap.String("invoice_number", inv.Number),
		zap.String("trigger", trigger),
		zap.Time("next_run_at", t.NextRunAt),
		zap.Bool("active", t.Active),
	)

	return &RunResult{Invoice: inv, Template: t}, nil
}

// deliver dispatches and archives a committed run and records the outcome on it
func (s *RecurringService) deliver(ctx context.Context, r *RunResult) {
	r.Dispatch = s.dispatch(ctx, r.Template, r.Invoice)
	r.ArchiveKey = s.archive(ctx, r.Invoice)
}

// archive snapshots inv. The invoice is already committed, so a failure is logged only.
func (s *RecurringService) archive(ctx context.Context, inv *accounting.Invoice) string {
	if s.archiver == nil {
		return ""
	}
	key, err := s.archiver.ArchiveInvoice(ctx, inv)
	if err != nil {
		s.log(ctx).Warn("Invoice archive failed", zap.String("invoice_number", inv.Number), zap.Error(err))
		return ""
	}
	return key
}

// dispatch mails auto-send invoices. Failures are reported, not returned.
func (s *RecurringService) dispatch(ctx context.Context, t *accounting.RecurringTemplate, inv *accounting.Invoice) DispatchOutcome {
	if !t.AutoSend || !inv.Customer.HasEmail() || s.dispatcher == nil {
		s.metrics.RecordDispatch(ctx, telemetry.DispatchSkipped)
		return DispatchOutcome{}
	}

	out := DispatchOutcome{Attempted: true}
	settings, err := s.settings.Get(ctx)
	if err == nil {
		err = s.dispatcher.DispatchInvoice(ctx, inv, settings)
	}
	if err != nil {
		out.Error = err.Error()
		s.metrics.RecordDispatch(ctx, telemetry.DispatchFailed)
		s.log(ctx).Warn("Invoice dispatch failed",
			zap.String("invoice_number", inv.Number),
			zap.String("email", inv.Customer.Email),
			zap.Error(err),
		)
		return out
	}
	out.Sent = true
	s.metrics.RecordDispatch(ctx, telemetry.DispatchSent)
	return out
}

// DueRuns lists the active templates whose next run is at or before now.
// It implements scheduler.DueSource.
func (s *RecurringService) DueRuns(ctx context.Context, now time.Time) ([]scheduler.DueRun, error) {
	list, err := s.templates.List(ctx)
	if err != nil {
		return nil, err
	}
	var due []scheduler.DueRun
	for i := range list {
		t := &list[i]
		if t.IsDue(now) {
			due = append(due, scheduler.DueRun{TemplateID: t.ID, RunKey: t.RunKey(), DueAt: t.NextRunAt})
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].DueAt.Before(due[j].DueAt) })
	return due, nil
}

// Execute runs one scheduled occurrence. It implements scheduler.JobExecutor.
func (s *RecurringService) Execute(ctx context.Context, job *scheduler.Job) error {
	_, err := s.runScheduled(ctx, job.TemplateID, job.RunKey, s.now())
	if errors.Is(err, errRunSkipped) {
		return nil
	}
	return err
}

// RunDue runs every template due at now once per occurrence as the system
// actor. now may differ from the service clock.
func (s *RecurringService) RunDue(ctx context.Context, now time.Time) (*RunDueResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "recurring", "run_due")
	defer span.End()

	due, err := s.DueRuns(ctx, now)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &RunDueResult{Runs: []RunResult{}, Skipped: []string{}, Failed: []RunError{}}
	for _, d := range due {
		run, err := s.runScheduled(ctx, d.TemplateID, d.RunKey, now)
		switch {
		case errors.Is(err, errRunSkipped):
			result.Skipped = append(result.Skipped, d.RunKey)
		case err != nil:
			result.Failed = append(result.Failed, RunError{TemplateID: d.TemplateID, RunKey: d.RunKey, Error: err.Error()})
		default:
			result.Runs = append(result.Runs, *run)
		}
	}
	telemetry.SetAttributes(span, "ran", len(result.Runs), "skipped", len(result.Skipped), "failed", len(result.Failed))
	return result, nil
}

var errRunSkipped = errors.New("run skipped")

// runScheduled runs the occurrence identified by runKey at most once if it is
// due at the given instant. The template is reloaded so an edited or paused
// template is not billed for a stale occurrence.
func (s *RecurringService) runScheduled(ctx context.Context, templateID uuid.UUID, runKey string, at time.Time) (*RunResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "recurring", "run_scheduled",
		telemetry.SpanAttrTemplateID, templateID.String(),
		telemetry.SpanAttrRunKey, runKey,
	)
	defer span.End()
	start := s.now()

	ctx = shared.WithActor(ctx, shared.SystemActor())
	result, err := s.commitScheduled(ctx, templateID, runKey, at)
	switch {
	case errors.Is(err, errRunSkipped):
		s.metrics.RecordRun(ctx, telemetry.RunSkipped, TriggerScheduler, 0)
		return nil, err
	case err != nil:
		telemetry.RecordError(span, err)
		s.metrics.RecordRun(ctx, telemetry.RunFailed, TriggerScheduler, s.now().Sub(start))
		s.log(ctx).Error("Scheduled run failed", zap.String("run_key", runKey), zap.Error(err))
		return nil, err
	}
	s.deliver(ctx, result)
	s.metrics.RecordRun(ctx, telemetry.RunGenerated, TriggerScheduler, s.now().Sub(start))
	return result, nil
}

func (s *RecurringService) commitScheduled(ctx context.Context, templateID uuid.UUID, runKey string, at time.Time) (*RunResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	t, err := s.templates.Get(ctx, templateID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, errRunSkipped
		}
		return nil, err
	}
	if !t.IsDue(at) || t.RunKey() != runKey {
		s.log(ctx).Debug("Scheduled run no longer pending", zap.String("run_key", runKey))
		return nil, errRunSkipped
	}

	marked, err := s.runs.MarkProcessed(ctx, runKey, s.runTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to mark run %s: %w", runKey, err)
	}
	if !marked {
		s.log(ctx).Info("Scheduled run already processed", zap.String("run_key", runKey))
		return nil, errRunSkipped
	}
	return s.commit(ctx, t, TriggerScheduler)
}

// CountActive returns the number of active templates for the metrics gauge
func (s *RecurringService) CountActive(ctx context.Context) (int64, error) {
	list, err := s.templates.List(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	for i := range list {
		if list[i].Active {
			n++
		}
	}
	return n, nil
}

var (
	_ scheduler.DueSource   = (*RecurringService)(nil)
	_ scheduler.JobExecutor = (*RecurringService)(nil)
)
