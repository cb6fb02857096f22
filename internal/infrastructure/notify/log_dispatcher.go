package notify

import (
	"context"

	"github.com/erp/acct/internal/domain/accounting"
	"github.com/erp/acct/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// LogDispatcher records dispatches in the log instead of sending them.
// It is the dispatcher when no mail host is configured.
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher creates a LogDispatcher
func NewLogDispatcher(l *zap.Logger) *LogDispatcher {
	if l == nil {
		l = zap.NewNop()
	}
	return &LogDispatcher{logger: l}
}

// DispatchInvoice logs the invoice that would have been sent
func (d *LogDispatcher) DispatchInvoice(ctx context.Context, inv *accounting.Invoice, settings accounting.CompanySettings) error {
	logger.Enrich(ctx, d.logger).Info("Invoice dispatch (log only)",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("number", inv.Number),
		zap.String("to", inv.Customer.Email),
		zap.String("from", settings.Email),
		zap.String("subtotal", inv.Subtotal().StringFixed(2)),
	)
	return nil
}

var _ accounting.DocumentDispatcher = (*LogDispatcher)(nil)
