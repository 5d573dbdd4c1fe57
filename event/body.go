package event

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/c360/docstreams/errors"
	"github.com/c360/docstreams/pointer"
)

// Body gives middleware handlers access to a document's raw content.
// The bytes are fetched through the data-source registry on first
// access and memoized; failed fetches are not cached, so a transient
// storage error stays retryable.
type Body struct {
	doc     Document
	sources *pointer.SourceRegistry

	mu     sync.Mutex
	data   []byte
	loaded bool
}

// Body creates a content accessor for the document.
func (d Document) Body(sources *pointer.SourceRegistry) (*Body, error) {
	if err := d.Validate(); err != nil {
		return nil, errors.Wrap(err, "Body", "Body", "validate document")
	}
	if sources == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Body", "Body", "source registry required")
	}
	return &Body{doc: d, sources: sources}, nil
}

func (b *Body) fetch(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loaded {
		return b.data, nil
	}

	data, err := b.sources.Fetch(ctx, b.doc.URL)
	if err != nil {
		return nil, errors.Wrap(err, "Body", "fetch", "fetch "+b.doc.URL)
	}
	b.data = data
	b.loaded = true
	return data, nil
}

// AsBuffer returns the full content. The returned slice is the
// caller's to mutate.
func (b *Body) AsBuffer(ctx context.Context) ([]byte, error) {
	data, err := b.fetch(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// AsReadStream returns the content as a reader.
func (b *Body) AsReadStream(ctx context.Context) (io.Reader, error) {
	data, err := b.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// AsFile writes the content to a file under dir (the system temp
// directory when empty) and returns its path. The file is named by the
// document's deterministic ID, so repeated calls for the same content
// land on the same path.
func (b *Body) AsFile(ctx context.Context, dir string) (string, error) {
	data, err := b.fetch(ctx)
	if err != nil {
		return "", err
	}

	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, b.doc.ID())
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", errors.WrapTransient(err, "Body", "AsFile", "write "+path)
	}
	return path, nil
}
