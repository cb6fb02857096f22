package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry(t *testing.T) {
	exact := newTestHandler()
	prefix := newTestHandler()
	wildcard := newTestHandler()

	r := NewHandlerRegistry()
	r.Register(exact, "acct.invoices-changed")
	r.Register(prefix, "acct.*")
	r.Register(wildcard)

	tests := []struct {
		eventType string
		expected  int
	}{
		{"acct.invoices-changed", 3},
		{"acct.sales-changed", 2},
		{"CreditApplied", 1},
	}
	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			assert.Len(t, r.GetHandlers(tt.eventType), tt.expected)
		})
	}
	assert.Equal(t, 3, r.Len())
}

func TestHandlerRegistry_NoDuplicates(t *testing.T) {
	h := newTestHandler()
	r := NewHandlerRegistry()
	r.Register(h, "acct.invoices-changed", "acct.*", "*")
	r.Register(h, "acct.invoices-changed")

	handlers := r.GetHandlers("acct.invoices-changed")
	assert.Len(t, handlers, 1)
	assert.Equal(t, 1, r.Len())
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	keep := newTestHandler()
	drop := newTestHandler()
	r := NewHandlerRegistry()
	r.Register(keep, "X")
	r.Register(drop, "X", "acct.*")
	r.Register(drop)

	r.Unregister(drop)

	assert.Equal(t, 1, r.Len())
	assert.Len(t, r.GetHandlers("X"), 1)
	assert.Empty(t, r.GetHandlers("acct.sales-changed"))
}
