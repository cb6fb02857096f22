package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Run outcomes
const (
	RunGenerated = "generated"
	RunSkipped   = "skipped"
	RunForbidden = "forbidden"
	RunFailed    = "failed"
)

// Dispatch results
const (
	DispatchSent    = "sent"
	DispatchFailed  = "failed"
	DispatchSkipped = "skipped"
)

// Metric attribute keys
var (
	AttrOutcome = attribute.Key("outcome")
	AttrResult  = attribute.Key("result")
	AttrTrigger = attribute.Key("trigger")
)

// RunDurationBuckets are histogram boundaries for a recurring run, in seconds
var RunDurationBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// BillingMetrics records recurring billing and ledger activity.
// A nil *BillingMetrics records nothing.
type BillingMetrics struct {
	meter            metric.Meter
	runs             metric.Int64Counter
	runDuration      metric.Float64Histogram
	invoices         metric.Int64Counter
	dispatches       metric.Int64Counter
	creditsApplied   metric.Int64Counter
	changesPublished metric.Int64Counter
}

// NewBillingMetrics creates the billing instruments on meter
func NewBillingMetrics(meter metric.Meter) (*BillingMetrics, error) {
	m := &BillingMetrics{meter: meter}
	var err error

	if m.runs, err = meter.Int64Counter("acct.recurring.runs",
		metric.WithDescription("Recurring template runs by outcome"),
		metric.WithUnit("{run}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create runs counter: %w", err)
	}
	if m.runDuration, err = meter.Float64Histogram("acct.recurring.run.duration",
		metric.WithDescription("Time to generate one recurring invoice"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(RunDurationBuckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create run duration histogram: %w", err)
	}
	if m.invoices, err = meter.Int64Counter("acct.invoices.generated",
		metric.WithDescription("Invoices produced from recurring templates"),
		metric.WithUnit("{invoice}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create invoices counter: %w", err)
	}
	if m.dispatches, err = meter.Int64Counter("acct.dispatch.attempts",
		metric.WithDescription("Invoice dispatch attempts by result"),
		metric.WithUnit("{dispatch}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create dispatch counter: %w", err)
	}
	if m.creditsApplied, err = meter.Int64Counter("acct.credits.applied",
		metric.WithDescription("Credit note applications"),
		metric.WithUnit("{application}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create credits counter: %w", err)
	}
	if m.changesPublished, err = meter.Int64Counter("acct.collection.changes",
		metric.WithDescription("Collection change signals published"),
		metric.WithUnit("{signal}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create changes counter: %w", err)
	}
	return m, nil
}

// RecordRun counts one run attempt and its duration
func (m *BillingMetrics) RecordRun(ctx context.Context, outcome, trigger string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(AttrOutcome.String(outcome), AttrTrigger.String(trigger))
	m.runs.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, elapsed.Seconds(), attrs)
	if outcome == RunGenerated {
		m.invoices.Add(ctx, 1)
	}
}

// RecordDispatch counts one dispatch attempt
func (m *BillingMetrics) RecordDispatch(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.dispatches.Add(ctx, 1, metric.WithAttributes(AttrResult.String(result)))
}

// RecordCreditApplied counts one credit application
func (m *BillingMetrics) RecordCreditApplied(ctx context.Context) {
	if m == nil {
		return
	}
	m.creditsApplied.Add(ctx, 1)
}

// RecordChange counts one change signal for key
func (m *BillingMetrics) RecordChange(ctx context.Context, key string) {
	if m == nil {
		return
	}
	m.changesPublished.Add(ctx, 1, metric.WithAttributes(attribute.String("key", key)))
}

// ActiveTemplateCounter reports how many recurring templates are active
type ActiveTemplateCounter interface {
	CountActive(ctx context.Context) (int64, error)
}

// ObserveActiveTemplates registers a gauge read from counter at every collection.
// The returned function unregisters it.
func (m *BillingMetrics) ObserveActiveTemplates(counter ActiveTemplateCounter) (func() error, error) {
	if m == nil {
		return func() error { return nil }, nil
	}
	gauge, err := m.meter.Int64ObservableGauge("acct.recurring.templates.active",
		metric.WithDescription("Active recurring templates"),
		metric.WithUnit("{template}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active templates gauge: %w", err)
	}
	reg, err := m.meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		n, err := counter.CountActive(ctx)
		if err != nil {
			return err
		}
		o.ObserveInt64(gauge, n)
		return nil
	}, gauge)
	if err != nil {
		return nil, fmt.Errorf("failed to register active templates callback: %w", err)
	}
	return reg.Unregister, nil
}
