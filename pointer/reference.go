package pointer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/c360/docstreams/errors"
)

// SubjectKind discriminates the tagged union of reference subjects.
type SubjectKind string

// Reference subject kinds.
const (
	SubjectURL       SubjectKind = "url"       // fetch the literal URL
	SubjectAttribute SubjectKind = "attribute" // look up a path in the event
	SubjectValue     SubjectKind = "value"     // return the literal value
	SubjectPointer   SubjectKind = "pointer"   // look up a path holding a stored pointer
)

// Reference declares where a middleware obtains a runtime value without
// baking the value into the pipeline definition. References are written
// by pipeline authors ("use the content of the current document as the
// prompt") and resolved against the live event at processing time.
type Reference struct {
	Subject Subject `json:"subject"`
}

// Subject is the tagged payload of a reference.
type Subject struct {
	Type  SubjectKind `json:"type"`
	URL   string      `json:"url,omitempty"`
	Path  string      `json:"path,omitempty"`
	Value any         `json:"value,omitempty"`
}

// URLReference declares a value fetched from a literal URL.
func URLReference(url string) Reference {
	return Reference{Subject: Subject{Type: SubjectURL, URL: url}}
}

// AttributeReference declares a value read from an attribute path in
// the event's JSON projection, e.g. "data.document.url".
func AttributeReference(path string) Reference {
	return Reference{Subject: Subject{Type: SubjectAttribute, Path: path}}
}

// ValueReference declares a literal constant value.
func ValueReference(value any) Reference {
	return Reference{Subject: Subject{Type: SubjectValue, Value: value}}
}

// PointerReference declares a value fetched through a pointer stored at
// the given attribute path, e.g. "data.metadata.properties.text.embeddings".
func PointerReference(path string) Reference {
	return Reference{Subject: Subject{Type: SubjectPointer, Path: path}}
}

// Validate checks the reference for structural correctness.
func (r Reference) Validate() error {
	switch r.Subject.Type {
	case SubjectURL:
		if r.Subject.URL == "" {
			return errors.WrapInvalid(errors.ErrResolutionFailed, "Reference", "Validate", "url subject requires url")
		}
	case SubjectAttribute, SubjectPointer:
		if r.Subject.Path == "" {
			return errors.WrapInvalid(errors.ErrResolutionFailed, "Reference", "Validate",
				fmt.Sprintf("%s subject requires path", r.Subject.Type))
		}
	case SubjectValue:
		// Literal nil is allowed.
	default:
		return errors.WrapInvalid(errors.ErrResolutionFailed, "Reference", "Validate",
			fmt.Sprintf("unknown subject type %q", r.Subject.Type))
	}
	return nil
}

// Resolver resolves references against the JSON projection of a live
// event. URL and pointer subjects return raw bytes; attribute subjects
// return the projected value; value subjects return the literal.
type Resolver struct {
	sources *SourceRegistry
}

// NewResolver creates a resolver backed by the given data sources.
func NewResolver(sources *SourceRegistry) *Resolver {
	return &Resolver{sources: sources}
}

// Resolve dispatches on the reference's subject kind. A missing
// attribute path is an invalid (non-retryable) error, not a nil value.
func (r *Resolver) Resolve(ctx context.Context, projection map[string]any, ref Reference) (any, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	switch ref.Subject.Type {
	case SubjectURL:
		data, err := r.sources.Fetch(ctx, ref.Subject.URL)
		if err != nil {
			return nil, errors.Wrap(err, "Resolver", "Resolve", "fetch url subject")
		}
		return data, nil

	case SubjectAttribute:
		value, ok := LookupPath(projection, ref.Subject.Path)
		if !ok {
			return nil, errors.WrapInvalid(errors.ErrAttributeMissing, "Resolver", "Resolve", ref.Subject.Path)
		}
		return value, nil

	case SubjectValue:
		return ref.Subject.Value, nil

	case SubjectPointer:
		value, ok := LookupPath(projection, ref.Subject.Path)
		if !ok {
			return nil, errors.WrapInvalid(errors.ErrAttributeMissing, "Resolver", "Resolve", ref.Subject.Path)
		}
		handle, err := handleFromProjection(value)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Resolver", "Resolve", "pointer subject at "+ref.Subject.Path)
		}
		data, err := r.sources.Fetch(ctx, handle.URI)
		if err != nil {
			return nil, errors.Wrap(err, "Resolver", "Resolve", "fetch pointer subject")
		}
		return data, nil

	default:
		return nil, errors.WrapInvalid(errors.ErrResolutionFailed, "Resolver", "Resolve",
			fmt.Sprintf("unknown subject type %q", ref.Subject.Type))
	}
}

// handleFromProjection reconstructs a Handle from a projected JSON value.
func handleFromProjection(value any) (Handle, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return Handle{}, err
	}
	var h Handle
	if err := json.Unmarshal(raw, &h); err != nil {
		return Handle{}, err
	}
	if h.URI == "" {
		return Handle{}, fmt.Errorf("value at path is not a pointer handle")
	}
	return h, nil
}
