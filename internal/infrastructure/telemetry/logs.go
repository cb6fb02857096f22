package telemetry

import (
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// BridgeLogger tees l into the OTLP log exporter. Records below the
// logger's own level never reach the exporter. Without an installed
// provider l is returned unchanged.
func (p *Providers) BridgeLogger(l *zap.Logger, name string) *zap.Logger {
	if p.logs == nil {
		return l
	}
	return TeeLogger(l, name, p.logs)
}

// TeeLogger duplicates every record of l into provider
func TeeLogger(l *zap.Logger, name string, provider log.LoggerProvider) *zap.Logger {
	otelCore := otelzap.NewCore(name, otelzap.WithLoggerProvider(provider))
	return l.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, &levelFilterCore{Core: otelCore, enabler: c})
	}))
}

// levelFilterCore applies the wrapped logger's level to the bridge core,
// which has no minimum level of its own.
type levelFilterCore struct {
	zapcore.Core
	enabler zapcore.LevelEnabler
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	return c.enabler.Enabled(lvl)
}

func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{Core: c.Core.With(fields), enabler: c.enabler}
}

func (c *levelFilterCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(ent.Level) {
		return ce
	}
	return c.Core.Check(ent, ce)
}
