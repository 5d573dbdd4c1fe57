// Package event defines the CloudEvent envelope exchanged between
// middlewares, the document descriptors it carries, and the kind-tagged
// metadata describing document content.
//
// Events are parsed with FromJSON, which validates the raw envelope
// against a JSON schema and reports every violated field at once.
// A received event is cloned before mutation so the original stays
// untouched for redelivery, and serialized back with ToJSON.
//
// Two invariants hold for the lifetime of a chain: the chain identifier
// assigned at ingestion never changes, and the source descriptor is
// never mutated after creation. The current document may be replaced
// wholesale by any middleware.
package event
