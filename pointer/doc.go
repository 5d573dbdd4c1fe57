// Package pointer provides lazy, memoized references to externally
// stored data and the declarative Reference indirection used to
// parameterize middlewares at pipeline-definition time.
//
// A Pointer pairs a URI with a type tag. Resolving it fetches the bytes
// through a scheme-dispatched DataSource, decodes them, and caches the
// result: subsequent resolutions return the same in-memory value with
// no further I/O. Failed resolutions are not cached, so transient fetch
// errors remain retryable.
//
// A Reference describes where a runtime value comes from without
// embedding it in the pipeline definition: a URL to fetch, an attribute
// path into the live event, a literal value, or a path whose value is
// itself a stored pointer.
package pointer
