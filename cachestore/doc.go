// Package cachestore implements the content-addressable blob store
// middlewares use to keep large payloads out of the message bus.
//
// Put serializes a value, derives a deterministic key from the caller's
// key and the serialized bytes, persists the blob and returns a pointer
// handle for it. Identical (key, value) pairs always map to the same
// URI, so repeated writes are idempotent and concurrent writers of the
// same content never conflict.
//
// Blob persistence is pluggable through the BlobStore interface: a
// NATS JetStream ObjectStore backend for deployments and an in-memory
// backend for tests.
package cachestore
