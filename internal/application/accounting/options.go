// Package accounting holds the use cases of the accounting module: recurring
// billing, the document ledgers, credit reconciliation and reporting.
package accounting

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/acct/internal/domain/accounting"
	"github.com/erp/acct/internal/domain/shared"
	"github.com/erp/acct/internal/infrastructure/logger"
	"github.com/erp/acct/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultRunTTL is how long a processed run key is remembered
const DefaultRunTTL = 7 * 24 * time.Hour

// Option configures the services of this package
type Option func(*serviceBase)

// serviceBase carries the collaborators every service may use
type serviceBase struct {
	now        func() time.Time
	loc        *time.Location
	logger     *zap.Logger
	publisher  shared.EventPublisher
	metrics    *telemetry.BillingMetrics
	dispatcher accounting.DocumentDispatcher
	archiver   accounting.DocumentArchiver
	runTTL     time.Duration
	enforce    bool
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(b *serviceBase) {
		b.now = now
	}
}

// WithLocation sets the service time zone for civil dates
func WithLocation(loc *time.Location) Option {
	return func(b *serviceBase) {
		if loc != nil {
			b.loc = loc
		}
	}
}

// WithLogger sets the fallback logger used when the context carries none
func WithLogger(l *zap.Logger) Option {
	return func(b *serviceBase) {
		b.logger = l
	}
}

// WithEventPublisher publishes domain events after each commit
func WithEventPublisher(p shared.EventPublisher) Option {
	return func(b *serviceBase) {
		b.publisher = p
	}
}

// WithMetrics records billing metrics
func WithMetrics(m *telemetry.BillingMetrics) Option {
	return func(b *serviceBase) {
		b.metrics = m
	}
}

// WithDispatcher sets the collaborator that mails auto-send invoices
func WithDispatcher(d accounting.DocumentDispatcher) Option {
	return func(b *serviceBase) {
		b.dispatcher = d
	}
}

// WithArchiver stores a snapshot of every generated invoice
func WithArchiver(a accounting.DocumentArchiver) Option {
	return func(b *serviceBase) {
		b.archiver = a
	}
}

// WithRunTTL sets how long processed run keys are remembered
func WithRunTTL(ttl time.Duration) Option {
	return func(b *serviceBase) {
		if ttl > 0 {
			b.runTTL = ttl
		}
	}
}

// WithCreditLimit rejects credit applications beyond the note amount
func WithCreditLimit(enforce bool) Option {
	return func(b *serviceBase) {
		b.enforce = enforce
	}
}

func newServiceBase(opts []Option) serviceBase {
	b := serviceBase{
		now:    time.Now,
		loc:    time.UTC,
		logger: zap.NewNop(),
		runTTL: DefaultRunTTL,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// log returns the request logger when one is in ctx
func (b *serviceBase) log(ctx context.Context) *zap.Logger {
	if _, ok := logger.Lookup(ctx); ok {
		return logger.L(ctx)
	}
	return logger.Enrich(ctx, b.logger)
}

// publish delivers the pending events of aggregates and clears them.
// Publishing happens after the write; a failure is logged, never returned.
func (b *serviceBase) publish(ctx context.Context, aggregates ...shared.AggregateRoot) {
	for _, agg := range aggregates {
		events := agg.GetDomainEvents()
		agg.ClearDomainEvents()
		if b.publisher == nil || len(events) == 0 {
			continue
		}
		if err := b.publisher.Publish(ctx, events...); err != nil {
			b.log(ctx).Warn("Failed to publish domain events", zap.Error(err))
		}
	}
}

// requirePermission fails with FORBIDDEN unless the context actor holds permission
func requirePermission(ctx context.Context, permission, action string) error {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok || !actor.HasPermission(permission) {
		return shared.NewDomainError(shared.ErrForbidden.Code, "Elevated billing access is required to "+action)
	}
	return nil
}

func invalidDate(value string, err error) error {
	return shared.NewDomainError(shared.ErrInvalidInput.Code, fmt.Sprintf("Invalid date %q: %v", value, err))
}
