package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/erp/acct/internal/domain/accounting"
	"go.uber.org/zap"
)

const jsonContentType = "application/json"

var _ accounting.DocumentArchiver = (*Archive)(nil)

// Archive writes JSON snapshots of invoices and reports to an ObjectStorage.
//
// Layout under the prefix:
//
//	invoices/<yyyy>/<mm>/<number>_<id>.json
//	reports/<module>/<from>_<to>_<unix>.json
type Archive struct {
	store  ObjectStorage
	prefix string
	logger *zap.Logger
	now    func() time.Time
}

// ArchiveOption configures an Archive
type ArchiveOption func(*Archive)

// WithArchiveLogger sets the logger
func WithArchiveLogger(l *zap.Logger) ArchiveOption {
	return func(a *Archive) {
		a.logger = l
	}
}

// WithArchiveClock overrides time.Now for report keys
func WithArchiveClock(now func() time.Time) ArchiveOption {
	return func(a *Archive) {
		a.now = now
	}
}

// NewArchive creates an Archive over store. prefix is prepended to every key.
func NewArchive(store ObjectStorage, prefix string, opts ...ArchiveOption) *Archive {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	a := &Archive{store: store, prefix: prefix, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// InvoiceKey is the object key of an invoice snapshot
func (a *Archive) InvoiceKey(inv *accounting.Invoice) string {
	created := inv.CreatedAt.UTC()
	name := fmt.Sprintf("%s_%s.json", safeSegment(inv.Number), inv.ID)
	return a.prefix + path.Join("invoices", created.Format("2006"), created.Format("01"), name)
}

// ArchiveInvoice stores inv. Archiving the same invoice twice overwrites the snapshot.
func (a *Archive) ArchiveInvoice(ctx context.Context, inv *accounting.Invoice) (string, error) {
	data, err := json.Marshal(inv)
	if err != nil {
		return "", fmt.Errorf("failed to encode invoice %s: %w", inv.Number, err)
	}
	key := a.InvoiceKey(inv)
	if err := a.store.Upload(ctx, key, data, jsonContentType); err != nil {
		return "", err
	}
	a.logger.Debug("Invoice archived", zap.String("invoice_number", inv.Number), zap.String("key", key))
	return key, nil
}

// ArchiveReport stores a generated report. Each call writes a new object.
func (a *Archive) ArchiveReport(ctx context.Context, module accounting.ReportModule, from, to string, report any) (string, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s report: %w", module, err)
	}
	name := fmt.Sprintf("%s_%s_%d.json", safeSegment(from), safeSegment(to), a.now().Unix())
	key := a.prefix + path.Join("reports", safeSegment(string(module)), name)
	if err := a.store.Upload(ctx, key, data, jsonContentType); err != nil {
		return "", err
	}
	a.logger.Debug("Report archived", zap.String("module", string(module)), zap.String("key", key))
	return key, nil
}

// DownloadURL returns a time-limited link to key. A non-positive expiresIn uses the store default.
func (a *Archive) DownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	return a.store.GenerateDownloadURL(ctx, key, expiresIn)
}

// safeSegment keeps a value from adding path levels to a key
func safeSegment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "_"
	}
	return strings.NewReplacer("/", "-", "\\", "-", " ", "-").Replace(s)
}
