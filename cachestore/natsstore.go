package cachestore

import (
	"context"
	"sort"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/docstreams/errors"
)

// ObjectStoreBackend persists blobs in a NATS JetStream ObjectStore
// bucket.
type ObjectStoreBackend struct {
	bucket jetstream.ObjectStore
}

// NewObjectStoreBackend creates the bucket if it does not exist yet
// and returns a BlobStore backed by it.
func NewObjectStoreBackend(ctx context.Context, js jetstream.JetStream, bucket string) (*ObjectStoreBackend, error) {
	if bucket == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "ObjectStoreBackend", "NewObjectStoreBackend",
			"bucket name required")
	}

	store, err := js.CreateOrUpdateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:      bucket,
		Description: "docstreams cache blobs",
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "ObjectStoreBackend", "NewObjectStoreBackend",
			"create bucket "+bucket)
	}
	return &ObjectStoreBackend{bucket: store}, nil
}

// Put stores the blob. Object names in the bucket are the blob keys.
func (b *ObjectStoreBackend) Put(ctx context.Context, key string, data []byte) error {
	if _, err := b.bucket.PutBytes(ctx, key, data); err != nil {
		return errors.WrapTransient(errors.ErrStorageUnavailable, "ObjectStoreBackend", "Put",
			key+": "+err.Error())
	}
	return nil
}

// Get retrieves the blob at the given key.
func (b *ObjectStoreBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.bucket.GetBytes(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			return nil, errors.WrapInvalid(errors.ErrBlobNotFound, "ObjectStoreBackend", "Get", key)
		}
		return nil, errors.WrapTransient(errors.ErrStorageUnavailable, "ObjectStoreBackend", "Get",
			key+": "+err.Error())
	}
	return data, nil
}

// List returns all keys with the given prefix in lexicographic order.
func (b *ObjectStoreBackend) List(ctx context.Context, prefix string) ([]string, error) {
	objects, err := b.bucket.List(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoObjectsFound) {
			return nil, nil
		}
		return nil, errors.WrapTransient(errors.ErrStorageUnavailable, "ObjectStoreBackend", "List", prefix)
	}

	var keys []string
	for _, obj := range objects {
		if strings.HasPrefix(obj.Name, prefix) {
			keys = append(keys, obj.Name)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
