// Package notify delivers accounting documents to customers.
package notify

import (
	"github.com/erp/acct/internal/domain/accounting"
	"github.com/erp/acct/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewDispatcher returns the SMTP dispatcher when a mail host is configured,
// else the log-only dispatcher
func NewDispatcher(cfg config.MailConfig, l *zap.Logger) (accounting.DocumentDispatcher, error) {
	if cfg.Host == "" {
		return NewLogDispatcher(l), nil
	}
	return NewSMTPDispatcher(cfg)
}
