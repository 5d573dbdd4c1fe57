package cachestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/c360/docstreams/errors"
	"github.com/c360/docstreams/pointer"
)

// Scheme is the URI scheme of cached blobs.
const Scheme = "cache"

// Storage is the cache facade handed to middlewares. Blobs are written
// under the owning service's namespace with content-derived keys.
type Storage struct {
	namespace string
	blobs     BlobStore
}

// NewStorage creates a cache rooted at the given namespace, typically
// the owning middleware's name.
func NewStorage(namespace string, blobs BlobStore) (*Storage, error) {
	if namespace == "" || strings.ContainsAny(namespace, "/ ") {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Storage", "NewStorage",
			fmt.Sprintf("namespace %q must be non-empty without slashes or spaces", namespace))
	}
	if blobs == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Storage", "NewStorage", "blob store required")
	}
	return &Storage{namespace: namespace, blobs: blobs}, nil
}

// Put serializes value, persists it under a content-derived key and
// returns a pointer handle to the stored blob. The same (key, value)
// pair always yields the same URI. Backend unavailability propagates
// as a transient error; the caller's invocation fails and the
// transport redelivers.
func (s *Storage) Put(ctx context.Context, key string, value any) (pointer.Handle, error) {
	if key == "" {
		return pointer.Handle{}, errors.WrapInvalid(errors.ErrInvalidConfig, "Storage", "Put", "key cannot be empty")
	}

	data, typeTag, err := serialize(value)
	if err != nil {
		return pointer.Handle{}, errors.WrapInvalid(err, "Storage", "Put", "serialize value for "+key)
	}

	digest := sha256.Sum256(append([]byte(key), data...))
	blobKey := s.namespace + "/" + hex.EncodeToString(digest[:])

	if err := s.blobs.Put(ctx, blobKey, data); err != nil {
		return pointer.Handle{}, errors.Wrap(err, "Storage", "Put", "persist "+blobKey)
	}

	return pointer.Handle{
		URI:  Scheme + "://" + blobKey,
		Type: typeTag,
	}, nil
}

// serialize maps a value onto blob bytes and a type tag consumers use
// to pick a deserialization target. Raw bytes and strings pass through
// unencoded; everything else is JSON.
func serialize(value any) ([]byte, string, error) {
	switch v := value.(type) {
	case []byte:
		return v, "bytes", nil
	case string:
		return []byte(v), "string", nil
	case json.RawMessage:
		return v, "json", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return data, fmt.Sprintf("%T", v), nil
	}
}

// Source adapts a BlobStore into a pointer data source for cache://
// URIs. Register it on the source registry under Scheme.
type Source struct {
	blobs BlobStore
}

// NewSource creates the cache data source.
func NewSource(blobs BlobStore) *Source {
	return &Source{blobs: blobs}
}

// Fetch retrieves the blob a cache URI addresses.
func (s *Source) Fetch(ctx context.Context, uri string) ([]byte, error) {
	key, ok := strings.CutPrefix(uri, Scheme+"://")
	if !ok || key == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("not a cache uri: %q", uri),
			"Source", "Fetch", "uri parse")
	}
	data, err := s.blobs.Get(ctx, key)
	if err != nil {
		return nil, errors.Wrap(err, "Source", "Fetch", key)
	}
	return data, nil
}
