package transport

import (
	"context"

	"github.com/c360/docstreams/conditional"
)

// Handler processes one delivered event. A returned error marks the
// delivery as failed; redelivery is the transport's concern.
type Handler func(ctx context.Context, data []byte, attrs map[string]string) error

// Publisher pushes serialized events to a topic. Publish must not
// return until the transport has acknowledged the message; a producing
// middleware's invocation is incomplete until every forward is
// acknowledged.
type Publisher interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) error
}

// Subscriber registers handlers for a topic. The filter policy is the
// compiled conditional of the subscribing edge; events failing it are
// never delivered to the handler.
type Subscriber interface {
	Subscribe(topic string, policy conditional.Policy, handler Handler) (Subscription, error)
}

// Subscription is an active topic registration.
type Subscription interface {
	Unsubscribe() error
}

// Transport combines both halves.
type Transport interface {
	Publisher
	Subscriber
}
