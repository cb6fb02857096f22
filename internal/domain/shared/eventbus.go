package shared

import "context"

// EventHandler reacts to events published after a write, such as
// collection change signals or a generated invoice.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the types the handler wants when it is subscribed
	// without explicit types. Empty means every type.
	EventTypes() []string
}

// EventPublisher is what repositories and services publish through.
// Publishing happens after the write is stored; a failed handler never
// undoes the write.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber manages handlers
type EventSubscriber interface {
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus is a publisher and subscriber with a lifecycle owned by the process
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
