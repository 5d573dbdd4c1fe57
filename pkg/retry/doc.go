// Package retry provides exponential backoff retry logic with jitter.
//
// It is used by the transport layer to make event forwarding resilient
// to transient failures. Errors wrapped with NonRetryable short-circuit
// the loop immediately; everything else is retried until MaxAttempts or
// context cancellation.
package retry
