package pointer

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/c360/docstreams/errors"
)

// Handle is the wire form of a pointer: the URI of the stored blob and
// a logical type tag consumers use to pick a deserialization target.
// Handles travel inside event metadata; the data they point at does not.
type Handle struct {
	URI  string `json:"uri"`
	Type string `json:"type"`
}

// Validate checks the handle for required fields.
func (h Handle) Validate() error {
	if h.URI == "" {
		return errors.WrapInvalid(errors.ErrResolutionFailed, "Handle", "Validate", "pointer URI cannot be empty")
	}
	return nil
}

// Pointer is a lazily resolved, memoized reference to externally stored
// data of type T. The zero value is not usable; construct with Bind.
type Pointer[T any] struct {
	handle  Handle
	sources *SourceRegistry

	mu       sync.Mutex
	resolved bool
	value    T
}

// Bind attaches a handle to a source registry, producing a resolvable
// pointer. The type parameter fixes the deserialization target.
func Bind[T any](h Handle, sources *SourceRegistry) *Pointer[T] {
	return &Pointer[T]{handle: h, sources: sources}
}

// Handle returns the pointer's wire form.
func (p *Pointer[T]) Handle() Handle {
	return p.handle
}

// URI returns the URI of the stored blob.
func (p *Pointer[T]) URI() string {
	return p.handle.URI
}

// Resolve fetches and decodes the referenced data. The first successful
// call performs the fetch; every later call returns the cached value
// without I/O. A failed resolution is not cached, so callers may retry
// transient failures.
func (p *Pointer[T]) Resolve(ctx context.Context) (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.resolved {
		return p.value, nil
	}

	var zero T
	if err := p.handle.Validate(); err != nil {
		return zero, err
	}
	if p.sources == nil {
		return zero, errors.WrapInvalid(errors.ErrResolutionFailed, "Pointer", "Resolve", "no source registry bound")
	}

	data, err := p.sources.Fetch(ctx, p.handle.URI)
	if err != nil {
		return zero, errors.Wrap(err, "Pointer", "Resolve", "fetch "+p.handle.URI)
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return zero, errors.WrapInvalid(err, "Pointer", "Resolve", "decode "+p.handle.URI)
	}

	p.value = value
	p.resolved = true
	return p.value, nil
}

// LookupPath walks a dot-separated path through nested JSON objects.
// It returns the value at the path and whether the full path existed.
func LookupPath(data map[string]any, path string) (any, bool) {
	var current any = data
	start := 0
	for i := 0; i <= len(path); i++ {
		if i < len(path) && path[i] != '.' {
			continue
		}
		key := path[start:i]
		start = i + 1
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
