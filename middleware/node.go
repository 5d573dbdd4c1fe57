package middleware

import (
	"fmt"
	"sync"
	"time"

	"github.com/c360/docstreams/conditional"
	"github.com/c360/docstreams/errors"
	"github.com/c360/docstreams/event"
)

// MarkerPath is the attribute path branching middlewares set to route
// an event to their match or mismatch continuation.
const MarkerPath = "data.metadata.custom.conditional"

// Edge is an owning reference to a routing rule toward a consumer. The
// conditional is the AND of the consumer's default conditional and
// every filter supplied when the edge was created; the policy is its
// compiled filter-policy document.
type Edge struct {
	Consumer    *Node
	Conditional *conditional.Conditional
	Policy      conditional.Policy
}

// Node is a vertex in the pipeline graph. Consumers hold the routing
// rules for downstream delivery; sources are back-references used for
// introspection and validation, with no ownership.
type Node struct {
	mw       Middleware
	notifier *Notifier

	mu        sync.Mutex
	consumers []Edge
	sources   []*Node
}

// NewNode wraps a middleware implementation as a graph vertex. The
// notifier may be nil when no monitoring is attached.
func NewNode(mw Middleware, notifier *Notifier) (*Node, error) {
	if mw == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingMiddleware, "Node", "NewNode", "middleware required")
	}
	if err := ValidateName(mw.Name()); err != nil {
		return nil, errors.Wrap(err, "Node", "NewNode", "validate name")
	}
	return &Node{mw: mw, notifier: notifier}, nil
}

// Name returns the wrapped middleware's name.
func (n *Node) Name() string {
	return n.mw.Name()
}

// Middleware returns the wrapped implementation.
func (n *Node) Middleware() Middleware {
	return n.mw
}

// Pipe connects this node to a consumer. The consumer's default
// conditional is narrowed by every supplied filter via logical AND.
// Producer output types must intersect consumer input types; an
// incompatible pair is a build error, never a runtime condition.
// Both adjacency sets are updated before any notification fires.
func (n *Node) Pipe(consumer *Node, filters ...*conditional.Conditional) error {
	if consumer == nil {
		return errors.WrapInvalid(errors.ErrMissingMiddleware, "Node", "Pipe", "consumer required")
	}
	if consumer == n {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Node", "Pipe",
			n.Name()+" cannot consume its own output")
	}

	produced := n.mw.SupportedOutputTypes()
	accepted := consumer.mw.SupportedInputTypes()
	if !event.MIMEIntersects(produced, accepted) {
		return errors.WrapInvalid(errors.ErrIncompatibleTypes, "Node", "Pipe",
			fmt.Sprintf("%s produces %v, %s accepts %v", n.Name(), produced, consumer.Name(), accepted))
	}

	merged := DefaultConditional(consumer.mw)
	for _, filter := range filters {
		merged = merged.And(filter)
	}
	if err := merged.Validate(); err != nil {
		return errors.Wrap(err, "Node", "Pipe", "validate conditional")
	}
	policy, err := merged.Policy()
	if err != nil {
		return errors.Wrap(err, "Node", "Pipe", "compile filter policy")
	}

	first, second := n, consumer
	if second.Name() < first.Name() {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	for _, edge := range n.consumers {
		if edge.Consumer == consumer {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Node", "Pipe",
				fmt.Sprintf("%s already consumes from %s", consumer.Name(), n.Name()))
		}
	}

	n.consumers = append(n.consumers, Edge{
		Consumer:    consumer,
		Conditional: merged,
		Policy:      policy,
	})
	consumer.sources = append(consumer.sources, n)

	now := time.Now().UTC()
	n.notifier.Notify(GraphEvent{
		Kind:     ConsumerAdded,
		Producer: n.Name(),
		Consumer: consumer.Name(),
		Policy:   policy,
		Time:     now,
	})
	consumer.notifier.Notify(GraphEvent{
		Kind:     SourceAdded,
		Producer: n.Name(),
		Consumer: consumer.Name(),
		Time:     now,
	})
	return nil
}

// OnMatch connects a continuation that receives events this node
// flagged as matching its runtime condition.
func (n *Node) OnMatch(consumer *Node, filters ...*conditional.Conditional) error {
	marker := conditional.When(MarkerPath).Equals("true")
	return n.Pipe(consumer, append([]*conditional.Conditional{marker}, filters...)...)
}

// OnMismatch connects a continuation that receives events this node
// flagged as failing its runtime condition.
func (n *Node) OnMismatch(consumer *Node, filters ...*conditional.Conditional) error {
	marker := conditional.When(MarkerPath).Equals("false")
	return n.Pipe(consumer, append([]*conditional.Conditional{marker}, filters...)...)
}

// Consumers returns the node's outgoing edges in connection order.
func (n *Node) Consumers() []Edge {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Edge, len(n.consumers))
	copy(out, n.consumers)
	return out
}

// Sources returns the producers feeding this node.
func (n *Node) Sources() []*Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*Node, len(n.sources))
	copy(out, n.sources)
	return out
}

// MatchingConsumers evaluates every outgoing edge against an event
// projection and returns the consumers whose conditionals it
// satisfies. Each edge is evaluated independently; an event may match
// zero, one or many consumers.
func (n *Node) MatchingConsumers(projection map[string]any) ([]*Node, error) {
	var matched []*Node
	for _, edge := range n.Consumers() {
		ok, err := edge.Conditional.Predicate(projection)
		if err != nil {
			return nil, errors.Wrap(err, "Node", "MatchingConsumers", "evaluate edge to "+edge.Consumer.Name())
		}
		if ok {
			matched = append(matched, edge.Consumer)
		}
	}
	return matched, nil
}
