// Package conditional implements the routing expression language that
// gates event delivery between middlewares.
//
// A conditional is built fluently from When(path) and terminal
// predicates (Equals, OneOf, Gte, Lt, Exists, HasPrefix), combined
// conjunctively with And. Each conditional compiles two ways: into a
// pure in-process predicate evaluated against an event's JSON
// projection, and into a declarative filter policy attached to a
// consumer's subscription so non-matching events are never delivered.
// The two compilations are semantically equivalent for every
// supported operator.
//
// Comparisons are strictly typed. Comparing values of mismatched
// primitive types is rejected when the conditional is built, never
// coerced at evaluation time.
package conditional
