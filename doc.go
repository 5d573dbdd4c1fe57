// Package docstreams provides a declarative framework for composing
// document-processing pipelines as a directed graph of middlewares
// connected through a message-bus fabric.
//
// # Architecture
//
// A pipeline is a graph of independently deployable middlewares. Each
// middleware declares the document MIME types it consumes and produces,
// the compute it supports, and a routing conditional. Middlewares
// exchange CloudEvents - envelopes describing a document, its original
// source, structured metadata, and the call stack of middlewares that
// have touched it.
//
//	┌───────────┐     conditional     ┌───────────┐
//	│ Producer  │────────filter──────▶│ Consumer  │
//	│middleware │                     │middleware │
//	└───────────┘                     └───────────┘
//	      │                                 │
//	      └────────── NATS subjects ────────┘
//
// Delivery between middlewares is gated twice: at subscription time by
// a declarative filter policy compiled from the conditional DSL, and in
// process by the equivalent compiled predicate. Non-matching events are
// never delivered, so a middleware is only invoked for work it can do.
//
// # Data out of band
//
// Large or computed values (embeddings, tag sets, ontology fragments)
// never travel in the event envelope. They are written once to a
// content-addressable cache store and referenced by a Pointer - a URI
// plus a type tag - which consumers resolve lazily and exactly once.
// References generalize this further: a pipeline definition can declare
// "use the content of the current document" or "use this literal" and
// the value is obtained against the live event at processing time.
//
// # Packages
//
// Core model:
//   - event: CloudEvent envelope, document descriptors, kind-tagged metadata
//   - pointer: lazy Pointer resolution, Reference indirection, data sources
//   - cachestore: content-addressable blob storage returning Pointers
//   - conditional: the filter DSL and its two compilation targets
//   - middleware: graph composition (Pipe, OnMatch/OnMismatch, lifecycle events)
//   - ontology: property-graph derivation from event metadata
//
// Infrastructure:
//   - transport: publish/subscribe abstraction with policy-filtered delivery
//   - natsclient: NATS connection management
//   - runner: hosts one middleware instance end to end
//   - pipelinestore: declarative pipeline definitions persisted in NATS KV
//   - monitor: WebSocket feed of graph lifecycle notifications
//   - errors: classified error handling (transient/invalid/fatal)
//   - pkg/retry: exponential backoff with jitter
//
// # Processing contract
//
// A middleware invocation is complete only once every matching forward
// has been acknowledged by the transport. A failure at any point -
// validation, resolution, domain logic, forwarding - fails the whole
// invocation so the transport can redeliver. Mutating operations
// (cache writes, graph merges) are idempotent, making redelivery safe.
package docstreams
