package telemetry

import (
	"errors"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InstrumentDB adds otelgorm spans to db plus a callback that tags each
// span with the kv key table and marks failures. Query variables are never
// recorded since values hold customer data.
func InstrumentDB(db *gorm.DB, dbSystem string, logger *zap.Logger) error {
	cb := db.Callback()
	for _, reg := range []func() error{
		func() error { return cb.Create().After("gorm:create").Register("acct_trace:create", annotateSpan) },
		func() error { return cb.Query().After("gorm:query").Register("acct_trace:query", annotateSpan) },
		func() error { return cb.Delete().After("gorm:delete").Register("acct_trace:delete", annotateSpan) },
		func() error { return cb.Raw().After("gorm:raw").Register("acct_trace:raw", annotateSpan) },
	} {
		if err := reg(); err != nil {
			return err
		}
	}
	// Registered after the annotations so they run while the span is still open
	if err := db.Use(otelgorm.NewPlugin(
		otelgorm.WithDBName(dbSystem),
		otelgorm.WithoutQueryVariables(),
	)); err != nil {
		return err
	}

	if logger != nil {
		logger.Info("Database tracing enabled", zap.String("db_system", dbSystem))
	}
	return nil
}

func annotateSpan(db *gorm.DB) {
	if db.Statement == nil || db.Statement.Context == nil {
		return
	}
	span := trace.SpanFromContext(db.Statement.Context)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.RecordError(db.Error)
		span.SetStatus(codes.Error, db.Error.Error())
	}
}
