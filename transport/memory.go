package transport

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/c360/docstreams/conditional"
	"github.com/c360/docstreams/errors"
)

// Memory is an in-process transport. Delivery is synchronous: Publish
// returns after every matching subscriber's handler has run, and fails
// if any handler failed.
type Memory struct {
	mu   sync.RWMutex
	subs map[string][]*memorySub
}

type memorySub struct {
	owner   *Memory
	topic   string
	policy  conditional.Policy
	handler Handler
}

// NewMemory creates an empty in-memory transport.
func NewMemory() *Memory {
	return &Memory{subs: make(map[string][]*memorySub)}
}

// Subscribe registers a handler for a topic behind a filter policy.
func (m *Memory) Subscribe(topic string, policy conditional.Policy, handler Handler) (Subscription, error) {
	if topic == "" || handler == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Memory", "Subscribe", "topic and handler required")
	}

	sub := &memorySub{owner: m, topic: topic, policy: policy, handler: handler}
	m.mu.Lock()
	m.subs[topic] = append(m.subs[topic], sub)
	m.mu.Unlock()
	return sub, nil
}

// Publish delivers the event to every subscriber of the topic whose
// policy it satisfies, in registration order. Delivery is not atomic:
// when a handler fails, Publish stops and returns its error, but
// earlier matching handlers have already run.
func (m *Memory) Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) error {
	var projection map[string]any
	if err := json.Unmarshal(data, &projection); err != nil {
		return errors.WrapInvalid(err, "Memory", "Publish", "decode event for filtering")
	}

	m.mu.RLock()
	subs := make([]*memorySub, len(m.subs[topic]))
	copy(subs, m.subs[topic])
	m.mu.RUnlock()

	for _, sub := range subs {
		if !conditional.Match(sub.policy, projection) {
			continue
		}
		if err := sub.handler(ctx, data, attrs); err != nil {
			return errors.WrapTransient(errors.ErrDeliveryError, "Memory", "Publish",
				topic+": "+err.Error())
		}
	}
	return nil
}

// Unsubscribe removes the registration.
func (s *memorySub) Unsubscribe() error {
	s.owner.mu.Lock()
	defer s.owner.mu.Unlock()

	subs := s.owner.subs[s.topic]
	for i, sub := range subs {
		if sub == s {
			s.owner.subs[s.topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	return nil
}
