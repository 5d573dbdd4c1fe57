// Package natsclient wraps the NATS connection used by the transport,
// cache store and pipeline store.
//
// The client owns connection lifecycle: reconnect with backoff,
// disconnect and reconnect callbacks, and lazy JetStream
// initialization. Components receive the client through dependency
// injection; nothing in this module holds a package-level connection.
package natsclient
