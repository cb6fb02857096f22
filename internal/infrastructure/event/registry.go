package event

import (
	"strings"
	"sync"

	"github.com/erp/acct/internal/domain/shared"
)

// PatternWildcard ends a subscription pattern that matches by prefix,
// e.g. "acct.*" receives "acct.invoices-changed".
const PatternWildcard = "*"

// HandlerRegistry maps event types to handlers. A handler registered with no
// types receives every event.
type HandlerRegistry struct {
	mu       sync.RWMutex
	exact    map[string][]shared.EventHandler
	prefixes map[string][]shared.EventHandler
	wildcard []shared.EventHandler
}

// NewHandlerRegistry creates an empty registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		exact:    make(map[string][]shared.EventHandler),
		prefixes: make(map[string][]shared.EventHandler),
	}
}

// Register adds handler for the given types or "prefix*" patterns
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(eventTypes) == 0 {
		r.wildcard = appendUnique(r.wildcard, handler)
		return
	}
	for _, t := range eventTypes {
		if t == PatternWildcard {
			r.wildcard = appendUnique(r.wildcard, handler)
			continue
		}
		if prefix, ok := strings.CutSuffix(t, PatternWildcard); ok {
			r.prefixes[prefix] = appendUnique(r.prefixes[prefix], handler)
			continue
		}
		r.exact[t] = appendUnique(r.exact[t], handler)
	}
}

// Unregister removes handler everywhere
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.wildcard = removeHandler(r.wildcard, handler)
	for _, m := range []map[string][]shared.EventHandler{r.exact, r.prefixes} {
		for k, hs := range m {
			if hs = removeHandler(hs, handler); len(hs) == 0 {
				delete(m, k)
			} else {
				m[k] = hs
			}
		}
	}
}

// GetHandlers returns the handlers for eventType, each at most once:
// exact matches, then prefix matches, then wildcards
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]shared.EventHandler, 0, len(r.exact[eventType])+len(r.wildcard))
	for _, h := range r.exact[eventType] {
		result = appendUnique(result, h)
	}
	for prefix, hs := range r.prefixes {
		if strings.HasPrefix(eventType, prefix) {
			for _, h := range hs {
				result = appendUnique(result, h)
			}
		}
	}
	for _, h := range r.wildcard {
		result = appendUnique(result, h)
	}
	return result
}

// Len returns the number of distinct registered handlers
func (r *HandlerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[shared.EventHandler]struct{})
	for _, h := range r.wildcard {
		seen[h] = struct{}{}
	}
	for _, m := range []map[string][]shared.EventHandler{r.exact, r.prefixes} {
		for _, hs := range m {
			for _, h := range hs {
				seen[h] = struct{}{}
			}
		}
	}
	return len(seen)
}

func appendUnique(handlers []shared.EventHandler, h shared.EventHandler) []shared.EventHandler {
	for _, existing := range handlers {
		if existing == h {
			return handlers
		}
	}
	return append(handlers, h)
}

func removeHandler(handlers []shared.EventHandler, target shared.EventHandler) []shared.EventHandler {
	result := make([]shared.EventHandler, 0, len(handlers))
	for _, h := range handlers {
		if h != target {
			result = append(result, h)
		}
	}
	return result
}
