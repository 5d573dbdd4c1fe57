// Package ontology derives a directed property graph from a document
// event for knowledge-graph use cases.
//
// The resolver always adds a node for the current document, links the
// original source when it differs, and fans metadata fields out into
// typed nodes and edges (language, topics, publisher, authors,
// classes, kind). Custom ontology fragments referenced from metadata
// through a pointer are fetched and merged in, with head nodes linked
// to the document.
//
// Node identifiers are unique within a graph. Re-adding an existing
// node or edge unions its attributes instead of duplicating or
// overwriting.
package ontology
