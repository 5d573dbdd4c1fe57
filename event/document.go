package event

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/c360/docstreams/errors"
)

// Document describes a single document: where its bytes live, what they
// are, and a version token identifying the exact content.
//
// The URL is an opaque, scheme-dependent locator - typically an object
// storage URI such as cache://bucket/key, but http(s) and data URIs are
// equally valid. The Etag is a content hash or version token supplied
// by whichever store produced the document.
type Document struct {
	URL  string `json:"url"`
	Type string `json:"type"`
	Size int64  `json:"size,omitempty"`
	Etag string `json:"etag"`
}

// ID returns a deterministic identifier derived from the document's URL
// and etag. Identical (url, etag) pairs always yield the same ID, which
// downstream stores use as a cache and index key.
func (d Document) ID() string {
	h := sha256.Sum256([]byte(d.URL + d.Etag))
	return hex.EncodeToString(h[:])
}

// Equal reports whether two descriptors refer to the same content.
func (d Document) Equal(other Document) bool {
	return d.URL == other.URL && d.Etag == other.Etag
}

// Validate checks the descriptor for required fields.
func (d Document) Validate() error {
	var missing []string
	if d.URL == "" {
		missing = append(missing, "url")
	}
	if d.Type == "" {
		missing = append(missing, "type")
	}
	if d.Etag == "" {
		missing = append(missing, "etag")
	}
	if len(missing) > 0 {
		return errors.WrapInvalid(errors.ErrInvalidEvent, "Document", "Validate",
			fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")))
	}
	return nil
}

// MatchesMIME reports whether the document's MIME type matches the given
// pattern. Patterns are exact types ("image/png"), wildcard subtypes
// ("image/*") or the universal wildcard ("*/*").
func (d Document) MatchesMIME(pattern string) bool {
	return MIMEMatch(d.Type, pattern)
}

// MIMEMatch reports whether mimeType matches pattern, honoring the
// "type/*" and "*/*" wildcard forms.
func MIMEMatch(mimeType, pattern string) bool {
	if pattern == "*/*" || pattern == mimeType {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		return strings.HasPrefix(mimeType, prefix+"/")
	}
	return false
}

// MIMEIntersects reports whether any type in produced matches any
// pattern in accepted, in either direction of wildcarding. It is the
// static compatibility check run when two middlewares are connected.
func MIMEIntersects(produced, accepted []string) bool {
	for _, p := range produced {
		for _, a := range accepted {
			if MIMEMatch(p, a) || MIMEMatch(a, p) {
				return true
			}
		}
	}
	return false
}
