package conditional

import (
	"fmt"
	"strings"

	"github.com/c360/docstreams/errors"
	"github.com/c360/docstreams/pointer"
)

type ruleKind int

const (
	ruleExact ruleKind = iota
	rulePrefix
	ruleNumeric
	ruleExists
)

// bound is one side of a numeric comparison.
type bound struct {
	value     float64
	inclusive bool
}

// rule is a single match alternative for a path. Within a leaf, rules
// are disjunctive: any one matching satisfies the leaf.
type rule struct {
	kind   ruleKind
	value  any // string, bool or float64 for exact matches
	prefix string
	lower  *bound
	upper  *bound
}

// leaf constrains one attribute path.
type leaf struct {
	path  string
	rules []rule
}

// Conditional is a conjunctive routing expression over event attribute
// paths. The zero value matches every event; build constraints with
// When and combine them with And.
type Conditional struct {
	leaves []leaf
	err    error
}

// Builder starts a constraint on a single attribute path.
type Builder struct {
	path string
}

// When begins a fluent constraint on the given dot-separated attribute
// path, e.g. When("data.document.type").
func When(path string) *Builder {
	return &Builder{path: path}
}

// Always returns a conditional that matches every event.
func Always() *Conditional {
	return &Conditional{}
}

func buildError(format string, args ...any) *Conditional {
	return &Conditional{err: errors.WrapInvalid(errors.ErrInvalidConditional, "Conditional", "build",
		fmt.Sprintf(format, args...))}
}

func (b *Builder) invalidPath() *Conditional {
	if b.path == "" {
		return buildError("attribute path cannot be empty")
	}
	return nil
}

// Equals constrains the path to exactly the given value. Accepted
// value types are string, bool and numbers.
func (b *Builder) Equals(value any) *Conditional {
	return b.OneOf(value)
}

// OneOf constrains the path to any of the given values. All values
// must share one primitive type.
func (b *Builder) OneOf(values ...any) *Conditional {
	if c := b.invalidPath(); c != nil {
		return c
	}
	if len(values) == 0 {
		return buildError("OneOf on %q requires at least one value", b.path)
	}

	rules := make([]rule, 0, len(values))
	firstType := ""
	for _, v := range values {
		normalized, typeName, err := normalize(v)
		if err != nil {
			return buildError("OneOf on %q: %v", b.path, err)
		}
		if firstType == "" {
			firstType = typeName
		} else if typeName != firstType {
			return &Conditional{err: errors.WrapInvalid(errors.ErrIncompatibleTypes, "Conditional", "build",
				fmt.Sprintf("OneOf on %q mixes %s and %s values", b.path, firstType, typeName))}
		}
		rules = append(rules, rule{kind: ruleExact, value: normalized})
	}
	return &Conditional{leaves: []leaf{{path: b.path, rules: rules}}}
}

// Gte constrains the path to numeric values >= the given number.
func (b *Builder) Gte(value any) *Conditional {
	return b.numeric(value, "Gte", func(n float64) rule {
		return rule{kind: ruleNumeric, lower: &bound{value: n, inclusive: true}}
	})
}

// Lt constrains the path to numeric values < the given number.
func (b *Builder) Lt(value any) *Conditional {
	return b.numeric(value, "Lt", func(n float64) rule {
		return rule{kind: ruleNumeric, upper: &bound{value: n}}
	})
}

func (b *Builder) numeric(value any, op string, make func(float64) rule) *Conditional {
	if c := b.invalidPath(); c != nil {
		return c
	}
	n, ok := toNumber(value)
	if !ok {
		return &Conditional{err: errors.WrapInvalid(errors.ErrIncompatibleTypes, "Conditional", "build",
			fmt.Sprintf("%s on %q requires a numeric value, got %T", op, b.path, value))}
	}
	return &Conditional{leaves: []leaf{{path: b.path, rules: []rule{make(n)}}}}
}

// Exists constrains the path to be present, regardless of value.
func (b *Builder) Exists() *Conditional {
	if c := b.invalidPath(); c != nil {
		return c
	}
	return &Conditional{leaves: []leaf{{path: b.path, rules: []rule{{kind: ruleExists}}}}}
}

// HasPrefix constrains the path to string values with the given prefix.
func (b *Builder) HasPrefix(prefix string) *Conditional {
	if c := b.invalidPath(); c != nil {
		return c
	}
	if prefix == "" {
		return buildError("HasPrefix on %q requires a non-empty prefix", b.path)
	}
	return &Conditional{leaves: []leaf{{path: b.path, rules: []rule{{kind: rulePrefix, prefix: prefix}}}}}
}

// And conjoins two conditionals: an event matches only if it matches
// both. Build errors from either side propagate.
func (c *Conditional) And(other *Conditional) *Conditional {
	if c == nil {
		return other
	}
	if other == nil {
		return c
	}
	if c.err != nil {
		return c
	}
	if other.err != nil {
		return other
	}

	merged := make([]leaf, 0, len(c.leaves)+len(other.leaves))
	merged = append(merged, c.leaves...)
	merged = append(merged, other.leaves...)
	return &Conditional{leaves: merged}
}

// Validate reports any error accumulated while building.
func (c *Conditional) Validate() error {
	if c == nil {
		return nil
	}
	return c.err
}

// Predicate evaluates the conditional against an event's JSON
// projection. Evaluation is strictly typed: a value of the wrong
// primitive type fails the match, it is never coerced.
func (c *Conditional) Predicate(projection map[string]any) (bool, error) {
	if c == nil {
		return true, nil
	}
	if c.err != nil {
		return false, c.err
	}

	for _, l := range c.leaves {
		value, present := pointer.LookupPath(projection, l.path)
		if !matchLeaf(l, value, present) {
			return false, nil
		}
	}
	return true, nil
}

func matchLeaf(l leaf, value any, present bool) bool {
	for _, r := range l.rules {
		switch r.kind {
		case ruleExists:
			if present {
				return true
			}
		case ruleExact:
			if present && matchExact(r.value, value) {
				return true
			}
		case rulePrefix:
			if s, ok := value.(string); present && ok && strings.HasPrefix(s, r.prefix) {
				return true
			}
		case ruleNumeric:
			if n, ok := toNumber(value); present && ok && matchBounds(r, n) {
				return true
			}
		}
	}
	return false
}

func matchExact(want, got any) bool {
	switch w := want.(type) {
	case string:
		g, ok := got.(string)
		return ok && g == w
	case bool:
		g, ok := got.(bool)
		return ok && g == w
	case float64:
		g, ok := toNumber(got)
		return ok && g == w
	default:
		return false
	}
}

func matchBounds(r rule, n float64) bool {
	if r.lower != nil {
		if r.lower.inclusive {
			if n < r.lower.value {
				return false
			}
		} else if n <= r.lower.value {
			return false
		}
	}
	if r.upper != nil {
		if r.upper.inclusive {
			if n > r.upper.value {
				return false
			}
		} else if n >= r.upper.value {
			return false
		}
	}
	return true
}

// normalize maps a build-time value onto its wire representation and
// names its primitive type.
func normalize(value any) (any, string, error) {
	switch v := value.(type) {
	case string:
		return v, "string", nil
	case bool:
		return v, "bool", nil
	default:
		if n, ok := toNumber(value); ok {
			return n, "number", nil
		}
		return nil, "", fmt.Errorf("unsupported value type %T", v)
	}
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}
