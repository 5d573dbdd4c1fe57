package conditional

// Helper constructors producing the plain structural parameter values
// middlewares accept in their builders. They are not routing
// conditionals; they parameterize middleware behavior declaratively.

// Limit caps the number of results a middleware produces.
func Limit(n int) map[string]any {
	return map[string]any{"limit": n}
}

// Exclude names fields or entities a middleware must skip.
func Exclude(names ...string) map[string]any {
	return map[string]any{"exclude": names}
}

// Categories restricts a middleware to the given categories.
func Categories(categories ...string) map[string]any {
	return map[string]any{"categories": categories}
}

// Between bounds a middleware's operating range.
func Between(lhs, rhs float64) map[string]any {
	return map[string]any{"range": map[string]any{"lhs": lhs, "rhs": rhs}}
}

// Confidence sets the minimum confidence a middleware accepts.
func Confidence(min float64) map[string]any {
	return map[string]any{"minConfidence": min}
}

// Filter restricts a middleware to the given values.
func Filter(values ...string) map[string]any {
	return map[string]any{"filter": values}
}

// DocumentTypePath is the attribute path routing conditionals use to
// constrain the current document's MIME type.
const DocumentTypePath = "data.document.type"

// MIMEIn builds the conditional "document MIME type is one of types".
// Wildcard subtypes ("image/*") compile to prefix rules; the universal
// wildcard "*/*" yields a conditional matching every event.
func MIMEIn(types ...string) *Conditional {
	if len(types) == 0 {
		return buildError("MIMEIn requires at least one MIME type")
	}

	var rules []rule
	for _, t := range types {
		switch {
		case t == "*/*":
			return Always()
		case len(t) > 2 && t[len(t)-2:] == "/*":
			rules = append(rules, rule{kind: rulePrefix, prefix: t[:len(t)-1]})
		default:
			rules = append(rules, rule{kind: ruleExact, value: t})
		}
	}
	return &Conditional{leaves: []leaf{{path: DocumentTypePath, rules: rules}}}
}
