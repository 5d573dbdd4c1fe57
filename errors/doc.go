// Package errors provides classified error handling for docstreams.
//
// Every error in the system belongs to one of three classes, which map
// directly onto the retry semantics of the surrounding transport:
//
//   - Transient: the operation may succeed on retry (network failures,
//     storage unavailability, delivery timeouts). The hosting transport
//     redelivers the triggering event.
//   - Invalid: the input itself is wrong (malformed CloudEvent, missing
//     attribute path, incompatible graph connection). Retrying cannot
//     help; the error is surfaced to the caller or deployment tool.
//   - Fatal: an unrecoverable condition that should stop processing.
//
// Errors are wrapped with component and operation context using the
// WrapTransient, WrapInvalid and WrapFatal helpers so that a failure
// anywhere in a pipeline reads as "component.method: action failed: cause".
package errors
