package conditional

import (
	"fmt"
	"strings"

	"github.com/c360/docstreams/errors"
	"github.com/c360/docstreams/pointer"
)

// Policy is the declarative filter-policy document attached to a
// consumer's subscription. Nested objects mirror the event's attribute
// paths; each constrained path holds a list of match rules evaluated
// disjunctively. The transport applies policies at delivery time so
// non-matching events never reach the consumer.
type Policy map[string]any

// Policy compiles the conditional into its filter-policy document.
// Conjunctions that the policy format cannot express, such as two
// contradictory exact-match sets on one path, fail with
// ErrPolicyUnsupported at build time.
func (c *Conditional) Policy() (Policy, error) {
	if c == nil {
		return Policy{}, nil
	}
	if c.err != nil {
		return nil, c.err
	}

	grouped := make(map[string][]leaf)
	order := make([]string, 0, len(c.leaves))
	for _, l := range c.leaves {
		if _, seen := grouped[l.path]; !seen {
			order = append(order, l.path)
		}
		grouped[l.path] = append(grouped[l.path], l.Clone())
	}

	policy := Policy{}
	for _, path := range order {
		rules, err := combineLeaves(path, grouped[path])
		if err != nil {
			return nil, err
		}
		encoded := make([]any, 0, len(rules))
		for _, r := range rules {
			encoded = append(encoded, encodeRule(r))
		}
		if err := insertPath(policy, path, encoded); err != nil {
			return nil, err
		}
	}
	return policy, nil
}

// Value returns the conditional's plain structural representation,
// which is its compiled filter-policy document.
func (c *Conditional) Value() (map[string]any, error) {
	policy, err := c.Policy()
	if err != nil {
		return nil, err
	}
	return map[string]any(policy), nil
}

// Clone returns an independent copy of the leaf.
func (l leaf) Clone() leaf {
	out := leaf{path: l.path, rules: make([]rule, len(l.rules))}
	copy(out.rules, l.rules)
	return out
}

// combineLeaves folds the conjunction of several leaves on one path
// into a single disjunctive rule list, or reports that the policy
// format cannot express it.
func combineLeaves(path string, leaves []leaf) ([]rule, error) {
	if len(leaves) == 1 {
		return leaves[0].rules, nil
	}

	// Exists adds nothing next to a stronger constraint on the path.
	filtered := leaves[:0:0]
	for _, l := range leaves {
		if len(l.rules) == 1 && l.rules[0].kind == ruleExists {
			continue
		}
		filtered = append(filtered, l)
	}
	switch len(filtered) {
	case 0:
		return []rule{{kind: ruleExists}}, nil
	case 1:
		return filtered[0].rules, nil
	}

	if rules, ok := combineNumeric(filtered); ok {
		return rules, nil
	}
	if rules, err := combineExact(path, filtered); err != nil || rules != nil {
		return rules, err
	}
	return nil, errors.WrapInvalid(errors.ErrPolicyUnsupported, "Conditional", "Policy",
		fmt.Sprintf("conjunction on %q is not expressible as a filter policy", path))
}

// combineNumeric tightens several single-bound numeric leaves into one
// range rule.
func combineNumeric(leaves []leaf) ([]rule, bool) {
	combined := rule{kind: ruleNumeric}
	for _, l := range leaves {
		if len(l.rules) != 1 || l.rules[0].kind != ruleNumeric {
			return nil, false
		}
		r := l.rules[0]
		if r.lower != nil && (combined.lower == nil || r.lower.value > combined.lower.value) {
			combined.lower = r.lower
		}
		if r.upper != nil && (combined.upper == nil || r.upper.value < combined.upper.value) {
			combined.upper = r.upper
		}
	}
	return []rule{combined}, true
}

// combineExact intersects several exact-match leaves. An empty
// intersection is a contradiction the policy format cannot carry.
func combineExact(path string, leaves []leaf) ([]rule, error) {
	intersection := leaves[0].rules
	for _, l := range leaves[1:] {
		for _, r := range l.rules {
			if r.kind != ruleExact {
				return nil, nil
			}
		}
		var kept []rule
		for _, existing := range intersection {
			if existing.kind != ruleExact {
				return nil, nil
			}
			for _, incoming := range l.rules {
				if matchExact(existing.value, incoming.value) {
					kept = append(kept, existing)
					break
				}
			}
		}
		intersection = kept
	}
	if len(intersection) == 0 {
		return nil, errors.WrapInvalid(errors.ErrPolicyUnsupported, "Conditional", "Policy",
			fmt.Sprintf("contradictory exact-match constraints on %q", path))
	}
	return intersection, nil
}

func encodeRule(r rule) any {
	switch r.kind {
	case ruleExact:
		return r.value
	case rulePrefix:
		return map[string]any{"prefix": r.prefix}
	case ruleExists:
		return map[string]any{"exists": true}
	case ruleNumeric:
		var terms []any
		if r.lower != nil {
			op := ">"
			if r.lower.inclusive {
				op = ">="
			}
			terms = append(terms, op, r.lower.value)
		}
		if r.upper != nil {
			op := "<"
			if r.upper.inclusive {
				op = "<="
			}
			terms = append(terms, op, r.upper.value)
		}
		return map[string]any{"numeric": terms}
	default:
		return nil
	}
}

// insertPath places a rule list at a dot-separated path inside the
// nested policy document.
func insertPath(policy Policy, path string, rules []any) error {
	segments := strings.Split(path, ".")
	current := map[string]any(policy)
	for _, segment := range segments[:len(segments)-1] {
		next, exists := current[segment]
		if !exists {
			child := map[string]any{}
			current[segment] = child
			current = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return errors.WrapInvalid(errors.ErrPolicyUnsupported, "Conditional", "Policy",
				fmt.Sprintf("path %q conflicts with a shorter constrained path", path))
		}
		current = child
	}
	last := segments[len(segments)-1]
	if _, exists := current[last]; exists {
		return errors.WrapInvalid(errors.ErrPolicyUnsupported, "Conditional", "Policy",
			fmt.Sprintf("path %q conflicts with a longer constrained path", path))
	}
	current[last] = rules
	return nil
}

// Match applies a compiled filter policy to an event's JSON
// projection, the way the transport does at delivery time.
func Match(policy Policy, projection map[string]any) bool {
	return matchPolicyNode(map[string]any(policy), "", projection)
}

func matchPolicyNode(node map[string]any, prefix string, projection map[string]any) bool {
	for key, constraint := range node {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		switch c := constraint.(type) {
		case map[string]any:
			if !matchPolicyNode(c, path, projection) {
				return false
			}
		case []any:
			value, present := pointer.LookupPath(projection, path)
			if !matchRuleList(c, value, present) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func matchRuleList(rules []any, value any, present bool) bool {
	for _, raw := range rules {
		if matchEncodedRule(raw, value, present) {
			return true
		}
	}
	return false
}

func matchEncodedRule(raw any, value any, present bool) bool {
	switch r := raw.(type) {
	case string, bool, float64, int:
		normalized, _, err := normalize(r)
		if err != nil {
			return false
		}
		return present && matchExact(normalized, value)
	case map[string]any:
		if p, ok := r["prefix"].(string); ok {
			s, isString := value.(string)
			return present && isString && strings.HasPrefix(s, p)
		}
		if _, ok := r["exists"]; ok {
			return present
		}
		if terms, ok := r["numeric"].([]any); ok {
			n, isNumber := toNumber(value)
			return present && isNumber && matchNumericTerms(terms, n)
		}
		return false
	default:
		return false
	}
}

func matchNumericTerms(terms []any, n float64) bool {
	for i := 0; i+1 < len(terms); i += 2 {
		op, ok := terms[i].(string)
		if !ok {
			return false
		}
		threshold, ok := toNumber(terms[i+1])
		if !ok {
			return false
		}
		switch op {
		case ">=":
			if n < threshold {
				return false
			}
		case ">":
			if n <= threshold {
				return false
			}
		case "<=":
			if n > threshold {
				return false
			}
		case "<":
			if n >= threshold {
				return false
			}
		default:
			return false
		}
	}
	return true
}
