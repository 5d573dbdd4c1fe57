package pointer

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/docstreams/errors"
)

// DataSource fetches raw bytes for a URI. Implementations are
// scheme-specific: object storage, HTTP, inline data.
type DataSource interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// SourceRegistry dispatches fetches to the DataSource registered for
// the URI's scheme. Registration happens at startup; lookups are
// concurrent-safe.
type SourceRegistry struct {
	mu      sync.RWMutex
	sources map[string]DataSource
}

// NewSourceRegistry creates an empty registry.
func NewSourceRegistry() *SourceRegistry {
	return &SourceRegistry{sources: make(map[string]DataSource)}
}

// Register associates a URI scheme with a data source. Registering a
// scheme twice is a configuration error.
func (r *SourceRegistry) Register(scheme string, source DataSource) error {
	if scheme == "" || source == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "SourceRegistry", "Register", "scheme and source required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[scheme]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("scheme %q already registered", scheme),
			"SourceRegistry", "Register", "duplicate scheme check")
	}
	r.sources[scheme] = source
	return nil
}

// Fetch resolves the URI's scheme and delegates to its data source.
func (r *SourceRegistry) Fetch(ctx context.Context, uri string) ([]byte, error) {
	scheme, _, found := strings.Cut(uri, ":")
	if !found || scheme == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("uri %q has no scheme", uri),
			"SourceRegistry", "Fetch", "scheme parse")
	}

	r.mu.RLock()
	source, ok := r.sources[scheme]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.WrapInvalid(errors.ErrUnknownScheme, "SourceRegistry", "Fetch", scheme)
	}
	return source.Fetch(ctx, uri)
}

// HTTPSource fetches documents over http(s). Outbound requests are
// rate limited to keep pointer resolution from hammering origin
// servers during fan-out bursts.
type HTTPSource struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPSource creates an HTTP data source allowing rps requests per
// second with the given burst.
func NewHTTPSource(rps float64, burst int) *HTTPSource {
	return &HTTPSource{
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Fetch performs a rate-limited GET and returns the response body.
func (s *HTTPSource) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, errors.WrapTransient(err, "HTTPSource", "Fetch", "rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, errors.WrapInvalid(err, "HTTPSource", "Fetch", "build request")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.WrapTransient(err, "HTTPSource", "Fetch", "request "+uri)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, errors.WrapTransient(
			fmt.Errorf("status %d", resp.StatusCode),
			"HTTPSource", "Fetch", "request "+uri)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.WrapInvalid(
			fmt.Errorf("status %d", resp.StatusCode),
			"HTTPSource", "Fetch", "request "+uri)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapTransient(err, "HTTPSource", "Fetch", "read body")
	}
	return body, nil
}

// InlineSource resolves data: URIs without any I/O. Both plain and
// base64-encoded payloads are supported.
type InlineSource struct{}

// Fetch decodes the payload embedded in a data URI.
func (InlineSource) Fetch(_ context.Context, uri string) ([]byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, errors.WrapInvalid(
			fmt.Errorf("not a data uri: %q", uri),
			"InlineSource", "Fetch", "uri parse")
	}

	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return nil, errors.WrapInvalid(
			fmt.Errorf("data uri missing payload separator"),
			"InlineSource", "Fetch", "uri parse")
	}

	if strings.HasSuffix(meta, ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, errors.WrapInvalid(err, "InlineSource", "Fetch", "base64 decode")
		}
		return decoded, nil
	}
	return []byte(payload), nil
}
