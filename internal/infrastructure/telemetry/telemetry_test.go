package telemetry_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/acct/internal/infrastructure/config"
	"github.com/erp/acct/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func TestSetup_Disabled(t *testing.T) {
	p, err := telemetry.Setup(context.Background(), config.TelemetryConfig{Enabled: false}, "acct-test", zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, p.IsEnabled())
	assert.NotNil(t, p.Meter("acct"))

	l := zap.NewNop()
	assert.Same(t, l, p.BridgeLogger(l, "acct"))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, span := telemetry.StartServiceSpan(context.Background(), "recurring", "run_now",
		telemetry.SpanAttrTemplateID, "tpl-1",
		"count", 3,
	)
	assert.NotEmpty(t, telemetry.TraceID(ctx))
	telemetry.AddEvent(span, "invoice_saved", "number", "INV-0001")
	telemetry.RecordError(span, errors.New("dispatch failed"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	s := spans[0]
	assert.Equal(t, "recurring.run_now", s.Name())
	assert.Equal(t, codes.Error, s.Status().Code)
	assert.Equal(t, "dispatch failed", s.Status().Description)

	attrs := map[string]string{}
	for _, kv := range s.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "tpl-1", attrs[telemetry.SpanAttrTemplateID])
	assert.Equal(t, "3", attrs["count"])

	require.Len(t, s.Events(), 2) // invoice_saved + the recorded exception
	assert.Equal(t, "invoice_saved", s.Events()[0].Name)
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, telemetry.TraceID(context.Background()))
}

func TestRecordError_NilSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.RecordError(nil, errors.New("x"))
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.AddEvent(nil, "e")
	})
}

type activeCount int64

func (c activeCount) CountActive(context.Context) (int64, error) { return int64(c), nil }

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestBillingMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := telemetry.NewBillingMetrics(mp.Meter("acct"))
	require.NoError(t, err)
	unregister, err := m.ObserveActiveTemplates(activeCount(4))
	require.NoError(t, err)
	defer func() { _ = unregister() }()

	ctx := context.Background()
	m.RecordRun(ctx, telemetry.RunGenerated, "scheduler", 20*time.Millisecond)
	m.RecordRun(ctx, telemetry.RunGenerated, "manual", 10*time.Millisecond)
	m.RecordRun(ctx, telemetry.RunSkipped, "scheduler", time.Millisecond)
	m.RecordDispatch(ctx, telemetry.DispatchFailed)
	m.RecordCreditApplied(ctx)

	data := collect(t, reader)

	invoices, ok := data["acct.invoices.generated"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, invoices.DataPoints, 1)
	assert.Equal(t, int64(2), invoices.DataPoints[0].Value)

	runs, ok := data["acct.recurring.runs"].(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, runs.DataPoints, 3) // generated/scheduler, generated/manual, skipped/scheduler

	gauge, ok := data["acct.recurring.templates.active"].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(4), gauge.DataPoints[0].Value)

	credits, ok := data["acct.credits.applied"].(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(1), credits.DataPoints[0].Value)
}

func TestBillingMetrics_NilRecordsNothing(t *testing.T) {
	var m *telemetry.BillingMetrics
	assert.NotPanics(t, func() {
		m.RecordRun(context.Background(), telemetry.RunFailed, "manual", time.Second)
		m.RecordDispatch(context.Background(), telemetry.DispatchSent)
		m.RecordCreditApplied(context.Background())
		m.RecordChange(context.Background(), "acct.invoices")
		unregister, err := m.ObserveActiveTemplates(activeCount(1))
		require.NoError(t, err)
		require.NoError(t, unregister())
	})
}

type memoryExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *memoryExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *memoryExporter) Shutdown(context.Context) error   { return nil }
func (e *memoryExporter) ForceFlush(context.Context) error { return nil }

func TestTeeLogger(t *testing.T) {
	exp := &memoryExporter{}
	lp := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exp)))
	t.Cleanup(func() { _ = lp.Shutdown(context.Background()) })

	base := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	l := telemetry.TeeLogger(base, "acct", lp)
	l.Debug("dropped")
	l.With(zap.String("node", "a")).Info("Recurring run complete", zap.String("template_id", "tpl-1"))

	exp.mu.Lock()
	defer exp.mu.Unlock()
	require.Len(t, exp.records, 1)
	assert.Equal(t, "Recurring run complete", exp.records[0].Body().AsString())
}

type kvRow struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

func TestInstrumentDB(t *testing.T) {
	sr := setupTestTracer(t)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&kvRow{}))
	require.NoError(t, telemetry.InstrumentDB(db, "sqlite", zaptest.NewLogger(t)))

	ctx, parent := otel.Tracer("test").Start(context.Background(), "parent")
	require.NoError(t, db.WithContext(ctx).Create(&kvRow{Key: "acct.invoices", Value: "[]"}).Error)
	var row kvRow
	require.NoError(t, db.WithContext(ctx).First(&row, "key = ?", "acct.invoices").Error)
	parent.End()

	var dbSpans int
	for _, s := range sr.Ended() {
		if s.Parent().SpanID() == parent.SpanContext().SpanID() {
			dbSpans++
		}
	}
	assert.GreaterOrEqual(t, dbSpans, 2)
}
