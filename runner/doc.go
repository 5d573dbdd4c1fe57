// Package runner hosts one middleware instance at event-processing
// time.
//
// A runner subscribes to its node's topic, parses and validates each
// inbound envelope, invokes the middleware's handler on a clone,
// prepends the middleware's name to the call stack and forwards the
// result to every consumer edge the event matches. Forwarding is
// all-or-fail: the invocation is not complete until every matching
// forward is acknowledged, so a partial forward surfaces as a failed
// invocation and the transport redelivers.
//
// Runners are stateless across events; horizontal concurrency comes
// from the transport invoking many runners in parallel.
package runner
