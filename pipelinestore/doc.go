// Package pipelinestore persists declarative pipeline definitions and
// materializes them into middleware graphs.
//
// A pipeline is a document: nodes naming middleware factories with
// their configuration, and connections carrying optional filter
// expressions. Definitions load from YAML or JSON, validate before
// deployment, and persist in a NATS JetStream key-value bucket with
// optimistic versioning so concurrent editors cannot silently clobber
// each other.
package pipelinestore
