package port

import (
	"context"
)

// EventPublisher defines the interface for publishing events to a message broker
type EventPublisher interface {
	// PublishEvent publishes an event to the specified subject
	PublishEvent(ctx context.Context, subject string, event interface{}) error

	// Close closes the connection to the message broker
	Close() error
}

// EventHandler processes one raw message payload received from a subject.
type EventHandler func(ctx context.Context, subject string, payload []byte) error

// EventSubscriber defines the interface for consuming events from a message broker
type EventSubscriber interface {
	// Subscribe registers handler for subject (wildcards allowed) until ctx is done
	Subscribe(ctx context.Context, subject string, handler EventHandler) error

	// Close drains subscriptions
	Close() error
}
