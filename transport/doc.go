// Package transport carries events between middlewares.
//
// A Publisher pushes serialized events to a topic with string
// attributes; a Subscriber registers a handler together with the
// compiled filter policy of its graph edge. Policies are applied at
// delivery time so a consumer never sees an event that fails its edge
// conditional.
//
// Two implementations exist: a JetStream-backed NATS transport for
// deployments, where publishes await the stream's acknowledgment and
// durable consumers nak failed deliveries for redelivery, and an
// in-memory transport used by tests and local runs.
package transport
