package pipelinestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/docstreams/errors"
	"github.com/c360/docstreams/natsclient"
)

const bucketName = "docstreams_pipelines"

// Store persists pipeline definitions in a JetStream key-value bucket,
// keyed by pipeline ID. Updates use the definition's Version field for
// optimistic concurrency: a stale writer gets an invalid error instead
// of overwriting a newer revision.
type Store struct {
	bucket jetstream.KeyValue
}

// NewStore opens (creating if needed) the pipeline bucket.
func NewStore(ctx context.Context, client *natsclient.Client) (*Store, error) {
	if client == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Store", "NewStore", "nats client required")
	}

	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      bucketName,
		Description: "Pipeline definitions",
		History:     10,
	})
	if err != nil {
		return nil, errors.Wrap(err, "Store", "NewStore", "open bucket")
	}
	return &Store{bucket: bucket}, nil
}

// Create stores a new definition. The pipeline must not already exist.
func (s *Store) Create(ctx context.Context, p *Pipeline) error {
	if p == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Store", "Create", "pipeline required")
	}
	if err := p.Validate(); err != nil {
		return errors.Wrap(err, "Store", "Create", "validate "+p.ID)
	}

	now := time.Now().UTC()
	p.Version = 1
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.State == "" {
		p.State = StateDraft
	}

	data, err := json.Marshal(p)
	if err != nil {
		return errors.WrapInvalid(err, "Store", "Create", "encode "+p.ID)
	}
	if _, err := s.bucket.Create(ctx, p.ID, data); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return errors.WrapInvalid(err, "Store", "Create", "pipeline "+p.ID+" already exists")
		}
		return errors.WrapTransient(err, "Store", "Create", "store "+p.ID)
	}
	return nil
}

// Get retrieves a definition by ID.
func (s *Store) Get(ctx context.Context, id string) (*Pipeline, error) {
	if id == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Store", "Get", "pipeline id required")
	}

	entry, err := s.bucket.Get(ctx, id)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, errors.WrapInvalid(err, "Store", "Get", "pipeline "+id+" not found")
		}
		return nil, errors.WrapTransient(err, "Store", "Get", "fetch "+id)
	}

	var p Pipeline
	if err := json.Unmarshal(entry.Value(), &p); err != nil {
		return nil, errors.WrapFatal(err, "Store", "Get", "decode "+id)
	}
	return &p, nil
}

// Update replaces an existing definition. The caller's Version must
// match the stored one; on success the version is incremented.
func (s *Store) Update(ctx context.Context, p *Pipeline) error {
	if p == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Store", "Update", "pipeline required")
	}
	if err := p.Validate(); err != nil {
		return errors.Wrap(err, "Store", "Update", "validate "+p.ID)
	}

	current, err := s.Get(ctx, p.ID)
	if err != nil {
		return errors.Wrap(err, "Store", "Update", "load current revision")
	}
	if current.Version != p.Version {
		return errors.WrapInvalid(
			fmt.Errorf("version mismatch: stored %d, submitted %d", current.Version, p.Version),
			"Store", "Update", "pipeline "+p.ID+" was modified concurrently")
	}

	p.Version++
	p.CreatedAt = current.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(p)
	if err != nil {
		return errors.WrapInvalid(err, "Store", "Update", "encode "+p.ID)
	}
	if _, err := s.bucket.Put(ctx, p.ID, data); err != nil {
		return errors.WrapTransient(err, "Store", "Update", "store "+p.ID)
	}
	return nil
}

// Delete removes a definition.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Store", "Delete", "pipeline id required")
	}
	if err := s.bucket.Delete(ctx, id); err != nil {
		return errors.WrapTransient(err, "Store", "Delete", "delete "+id)
	}
	return nil
}

// List retrieves every stored definition.
func (s *Store) List(ctx context.Context) ([]*Pipeline, error) {
	keys, err := s.bucket.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, errors.WrapTransient(err, "Store", "List", "list keys")
	}

	pipelines := make([]*Pipeline, 0, len(keys))
	for _, key := range keys {
		p, err := s.Get(ctx, key)
		if err != nil {
			return nil, errors.Wrap(err, "Store", "List", "fetch "+key)
		}
		pipelines = append(pipelines, p)
	}
	return pipelines, nil
}
