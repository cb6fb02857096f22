package event

import (
	"context"

	"github.com/erp/acct/internal/domain/shared"
	"github.com/erp/acct/internal/infrastructure/telemetry"
)

// ChangeCounter counts collection change signals seen on the bus, including
// those relayed from other instances
type ChangeCounter struct {
	metrics *telemetry.BillingMetrics
}

// NewChangeCounter creates a ChangeCounter. A nil metrics value counts nothing.
func NewChangeCounter(m *telemetry.BillingMetrics) *ChangeCounter {
	return &ChangeCounter{metrics: m}
}

// EventTypes subscribes to every event
func (c *ChangeCounter) EventTypes() []string {
	return nil
}

// Handle records one change per signal
func (c *ChangeCounter) Handle(ctx context.Context, e shared.DomainEvent) error {
	if changed, ok := e.(*shared.CollectionChangedEvent); ok {
		c.metrics.RecordChange(ctx, changed.Key)
	}
	return nil
}
