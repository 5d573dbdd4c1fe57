// Package middleware implements the pipeline graph: nodes wrapping
// middleware implementations, the Pipe connection model that wires
// producers to consumers with merged routing conditionals, and the
// registry middleware factories register with.
//
// Graphs are built once at pipeline-definition time and are read-only
// while events flow. Connecting a producer to a consumer performs a
// static MIME compatibility check, merges the consumer's default
// conditional with any connection-time filters via logical AND,
// updates both adjacency sets and emits consumer-added and
// source-added notifications for monitoring tooling.
package middleware
