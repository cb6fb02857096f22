package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChangeSignalType(t *testing.T) {
	assert.Equal(t, "acct.recurring-changed", ChangeSignalType("acct.recurring"))
	assert.True(t, IsChangeSignal("acct.recurring-changed"))
	assert.False(t, IsChangeSignal("RecurringTemplateCreated"))
}

func TestCollectionChangedEvent(t *testing.T) {
	e := NewCollectionChangedEvent("acct.invoices", "node-1")
	assert.Equal(t, "acct.invoices-changed", e.EventType())
	assert.Equal(t, AggregateTypeCollection, e.AggregateType())
	assert.Equal(t, "node-1", e.Origin)

	assert.True(t, e.MatchesPrefix(""))
	assert.True(t, e.MatchesPrefix("acct."))
	assert.False(t, e.MatchesPrefix("crm."))
}
