package middleware

import (
	"sync"
	"time"

	"github.com/c360/docstreams/conditional"
)

// EventKind classifies a graph lifecycle notification.
type EventKind string

// Graph lifecycle notification kinds.
const (
	ConsumerAdded EventKind = "consumer-added"
	SourceAdded   EventKind = "source-added"
)

// GraphEvent describes one change to the pipeline graph. Notifications
// exist for monitoring and visualization tooling; delivery correctness
// never depends on them.
type GraphEvent struct {
	Kind     EventKind          `json:"kind"`
	Producer string             `json:"producer"`
	Consumer string             `json:"consumer"`
	Policy   conditional.Policy `json:"policy,omitempty"`
	Time     time.Time          `json:"time"`
}

// Listener receives graph lifecycle notifications.
type Listener func(GraphEvent)

// Notifier fans graph lifecycle notifications out to listeners.
// Listeners are invoked synchronously in subscription order.
type Notifier struct {
	mu        sync.RWMutex
	listeners []Listener
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe registers a listener for subsequent notifications.
func (n *Notifier) Subscribe(l Listener) {
	if l == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, l)
}

// Notify delivers the event to every listener.
func (n *Notifier) Notify(evt GraphEvent) {
	if n == nil {
		return
	}
	n.mu.RLock()
	listeners := make([]Listener, len(n.listeners))
	copy(listeners, n.listeners)
	n.mu.RUnlock()

	for _, l := range listeners {
		l(evt)
	}
}
