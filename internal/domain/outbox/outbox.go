// Package outbox declares the event ports shared by the bounded contexts.
package outbox

import "context"

// Event is a domain event identified by a dotted name such as "meal.completed".
type Event interface {
	EventName() string
}

type Handler func(ctx context.Context, e Event) error

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Subscriber interface {
	Subscribe(eventName string, h Handler)
}

// Bus is both sides; the in-memory implementation satisfies it.
type Bus interface {
	Publisher
	Subscriber
}
