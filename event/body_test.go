package event

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/docstreams/pointer"
)

// blobSource serves fixed content and counts fetches.
type blobSource struct {
	mu      sync.Mutex
	data    map[string][]byte
	fetches int
	fail    bool
}

func (s *blobSource) Fetch(_ context.Context, uri string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.fail {
		return nil, fmt.Errorf("storage offline")
	}
	data, ok := s.data[uri]
	if !ok {
		return nil, fmt.Errorf("no blob at %s", uri)
	}
	return data, nil
}

func newBodyFixture(t *testing.T) (Document, *blobSource, *pointer.SourceRegistry) {
	t.Helper()
	doc := Document{URL: "blob://docs/report", Type: "text/plain", Etag: "v1"}
	source := &blobSource{data: map[string][]byte{doc.URL: []byte("document content")}}
	registry := pointer.NewSourceRegistry()
	require.NoError(t, registry.Register("blob", source))
	return doc, source, registry
}

func TestBodyAsBuffer(t *testing.T) {
	doc, source, registry := newBodyFixture(t)
	body, err := doc.Body(registry)
	require.NoError(t, err)

	buf, err := body.AsBuffer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("document content"), buf)

	// Content is memoized and the returned buffer is a private copy.
	buf[0] = 'X'
	again, err := body.AsBuffer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("document content"), again)
	assert.Equal(t, 1, source.fetches)
}

func TestBodyAsReadStream(t *testing.T) {
	doc, _, registry := newBodyFixture(t)
	body, err := doc.Body(registry)
	require.NoError(t, err)

	stream, err := body.AsReadStream(context.Background())
	require.NoError(t, err)
	content, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "document content", string(content))
}

func TestBodyAsFile(t *testing.T) {
	doc, _, registry := newBodyFixture(t)
	body, err := doc.Body(registry)
	require.NoError(t, err)

	path, err := body.AsFile(context.Background(), t.TempDir())
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "document content", string(content))

	again, err := body.AsFile(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.NotEqual(t, path, again)
}

func TestBodyFailedFetchIsNotCached(t *testing.T) {
	doc, source, registry := newBodyFixture(t)
	body, err := doc.Body(registry)
	require.NoError(t, err)

	source.fail = true
	_, err = body.AsBuffer(context.Background())
	require.Error(t, err)

	source.fail = false
	buf, err := body.AsBuffer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("document content"), buf)
	assert.Equal(t, 2, source.fetches)
}

func TestBodyValidation(t *testing.T) {
	_, _, registry := newBodyFixture(t)

	_, err := Document{}.Body(registry)
	require.Error(t, err)

	doc := Document{URL: "blob://docs/report", Type: "text/plain", Etag: "v1"}
	_, err = doc.Body(nil)
	require.Error(t, err)
}

func TestBodyUnknownScheme(t *testing.T) {
	registry := pointer.NewSourceRegistry()
	doc := Document{URL: "s3://bucket/key", Type: "text/plain", Etag: "v1"}
	body, err := doc.Body(registry)
	require.NoError(t, err)

	_, err = body.AsBuffer(context.Background())
	require.Error(t, err)
}
