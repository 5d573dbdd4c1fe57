package middleware

import (
	"github.com/c360/docstreams/conditional"
	"github.com/c360/docstreams/errors"
)

// ComputeType names the compute platforms a middleware can run on.
type ComputeType string

// Supported compute platforms.
const (
	ComputeCPU          ComputeType = "cpu"
	ComputeGPU          ComputeType = "gpu"
	ComputeAcceleration ComputeType = "acceleration"
)

// Middleware is the capability set every processing unit exposes so
// graph composition and filter-policy generation can operate over any
// implementation generically.
type Middleware interface {
	// Name identifies the middleware instance. It is prepended to
	// each event's call stack and used in graph notifications.
	Name() string

	// SupportedInputTypes lists the MIME types (exact or wildcard
	// patterns) the middleware accepts.
	SupportedInputTypes() []string

	// SupportedOutputTypes lists the MIME types the middleware can
	// produce.
	SupportedOutputTypes() []string

	// SupportedComputeTypes lists the compute platforms the
	// middleware can be scheduled on.
	SupportedComputeTypes() []ComputeType

	// Conditional returns the middleware's own routing conditional,
	// or nil to use the default derived from its input types.
	Conditional() *conditional.Conditional
}

// DefaultConditional derives a middleware's default routing rule:
// the current document's MIME type is one of its supported inputs.
// A middleware-declared conditional narrows that default further; it
// never widens routing past the input types. Declaring "*/*" as an
// input is the only way to accept every document type.
func DefaultConditional(m Middleware) *conditional.Conditional {
	inputs := m.SupportedInputTypes()
	base := conditional.Always()
	if len(inputs) > 0 {
		base = conditional.MIMEIn(inputs...)
	}
	if c := m.Conditional(); c != nil {
		return base.And(c)
	}
	return base
}

// ValidateName checks a middleware name for use in subjects and call
// stacks: non-empty, alphanumeric plus dash, underscore and dot.
func ValidateName(name string) error {
	if name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Middleware", "ValidateName", "empty name")
	}
	for _, r := range name {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.') {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Middleware", "ValidateName",
				"invalid characters in name "+name)
		}
	}
	return nil
}
