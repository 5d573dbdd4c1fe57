package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/c360/docstreams/errors"
)

// SpecVersion is the envelope version emitted and accepted on the wire.
const SpecVersion = "1.0"

// EventType classifies the lifecycle stage an event describes.
type EventType string

// Event lifecycle types consumers filter on.
const (
	TypeDocumentCreated EventType = "document-created"
	TypeDocumentDeleted EventType = "document-deleted"
)

// CloudEvent is the canonical envelope carried between middlewares.
type CloudEvent struct {
	SpecVersion string      `json:"specversion"`
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	Time        time.Time   `json:"time"`
	Data        DataPayload `json:"data"`
}

// DataPayload is the document-bearing body of a CloudEvent.
//
// ChainID groups every event descending from one original ingestion and
// never changes once assigned. Source is the originally ingested
// document and is never mutated; Document is the current document and
// may be replaced wholesale by any middleware. CallStack records the
// names of the middlewares that have touched the event, most recent
// first.
type DataPayload struct {
	ChainID   string   `json:"chainId"`
	Source    Document `json:"source"`
	Document  Document `json:"document"`
	Metadata  Metadata `json:"metadata"`
	CallStack []string `json:"callStack"`
}

// New creates a document-created event for a freshly ingested document.
// The document starts out identical to its source and a new chain is
// opened for it.
func New(doc Document) (*CloudEvent, error) {
	if err := doc.Validate(); err != nil {
		return nil, errors.Wrap(err, "CloudEvent", "New", "validate document")
	}
	return &CloudEvent{
		SpecVersion: SpecVersion,
		ID:          uuid.NewString(),
		Type:        TypeDocumentCreated,
		Time:        time.Now().UTC(),
		Data: DataPayload{
			ChainID:   uuid.NewString(),
			Source:    doc,
			Document:  doc,
			CallStack: []string{},
		},
	}, nil
}

// Clone produces a deep, independent copy safe for mutation before
// forwarding. The envelope is fully JSON-representable, so a round
// trip through the wire form is an exact deep copy.
func (e *CloudEvent) Clone() (*CloudEvent, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, errors.WrapInvalid(err, "CloudEvent", "Clone", "encode")
	}
	var clone CloudEvent
	if err := json.Unmarshal(raw, &clone); err != nil {
		return nil, errors.WrapInvalid(err, "CloudEvent", "Clone", "decode")
	}
	return &clone, nil
}

// PushCall prepends a middleware name to the call stack, leaving prior
// entries undisturbed.
func (e *CloudEvent) PushCall(name string) {
	e.Data.CallStack = append([]string{name}, e.Data.CallStack...)
}

// ToJSON produces the canonical wire form.
func (e *CloudEvent) ToJSON() ([]byte, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, errors.WrapInvalid(err, "CloudEvent", "ToJSON", "encode")
	}
	return raw, nil
}

// Project returns the event as a generic JSON object tree. Conditional
// predicates and reference resolution evaluate attribute paths against
// this projection rather than the typed structs.
func (e *CloudEvent) Project() (map[string]any, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, errors.WrapInvalid(err, "CloudEvent", "Project", "encode")
	}
	var projection map[string]any
	if err := json.Unmarshal(raw, &projection); err != nil {
		return nil, errors.WrapInvalid(err, "CloudEvent", "Project", "decode")
	}
	return projection, nil
}

// Validate checks envelope-level invariants beyond what the schema
// enforces structurally.
func (e *CloudEvent) Validate() error {
	if e.SpecVersion != SpecVersion {
		return errors.WrapInvalid(errors.ErrInvalidEvent, "CloudEvent", "Validate",
			"specversion must be "+SpecVersion)
	}
	if e.ID == "" {
		return errors.WrapInvalid(errors.ErrInvalidEvent, "CloudEvent", "Validate", "id is required")
	}
	if e.Data.ChainID == "" {
		return errors.WrapInvalid(errors.ErrInvalidEvent, "CloudEvent", "Validate", "data.chainId is required")
	}
	if err := e.Data.Source.Validate(); err != nil {
		return errors.Wrap(err, "CloudEvent", "Validate", "validate source")
	}
	if err := e.Data.Document.Validate(); err != nil {
		return errors.Wrap(err, "CloudEvent", "Validate", "validate document")
	}
	return nil
}
