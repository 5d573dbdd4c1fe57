package conditional

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/docstreams/errors"
)

func TestPolicyExactMatch(t *testing.T) {
	policy, err := When("data.document.type").OneOf("text/plain", "text/markdown").Policy()
	require.NoError(t, err)

	want := Policy{
		"data": map[string]any{
			"document": map[string]any{
				"type": []any{"text/plain", "text/markdown"},
			},
		},
	}
	if diff := cmp.Diff(want, policy); diff != "" {
		t.Errorf("policy mismatch (-want +got):\n%s", diff)
	}
}

func TestPolicyNumericRange(t *testing.T) {
	cond := When("data.document.size").Gte(0).And(When("data.document.size").Lt(10))
	policy, err := cond.Policy()
	require.NoError(t, err)

	want := Policy{
		"data": map[string]any{
			"document": map[string]any{
				"size": []any{map[string]any{"numeric": []any{">=", float64(0), "<", float64(10)}}},
			},
		},
	}
	if diff := cmp.Diff(want, policy); diff != "" {
		t.Errorf("policy mismatch (-want +got):\n%s", diff)
	}
}

func TestPolicyExists(t *testing.T) {
	policy, err := When("data.metadata.language").Exists().Policy()
	require.NoError(t, err)

	want := Policy{
		"data": map[string]any{
			"metadata": map[string]any{
				"language": []any{map[string]any{"exists": true}},
			},
		},
	}
	if diff := cmp.Diff(want, policy); diff != "" {
		t.Errorf("policy mismatch (-want +got):\n%s", diff)
	}
}

func TestPolicyContradictionRejected(t *testing.T) {
	cond := When("data.document.type").Equals("text/plain").
		And(When("data.document.type").Equals("image/png"))

	_, err := cond.Policy()
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.ErrorIs(t, err, errors.ErrPolicyUnsupported)
}

func TestPolicyExactIntersection(t *testing.T) {
	cond := When("data.document.type").OneOf("text/plain", "text/markdown").
		And(When("data.document.type").OneOf("text/markdown", "text/html"))

	policy, err := cond.Policy()
	require.NoError(t, err)

	want := Policy{
		"data": map[string]any{
			"document": map[string]any{
				"type": []any{"text/markdown"},
			},
		},
	}
	if diff := cmp.Diff(want, policy); diff != "" {
		t.Errorf("policy mismatch (-want +got):\n%s", diff)
	}
}

func TestPolicyExistsAbsorbedByStrongerConstraint(t *testing.T) {
	cond := When("data.document.type").Exists().
		And(When("data.document.type").Equals("text/plain"))

	policy, err := cond.Policy()
	require.NoError(t, err)

	want := Policy{
		"data": map[string]any{
			"document": map[string]any{
				"type": []any{"text/plain"},
			},
		},
	}
	if diff := cmp.Diff(want, policy); diff != "" {
		t.Errorf("policy mismatch (-want +got):\n%s", diff)
	}
}

// A conjunction constraining both a path and one of its descendants
// has no policy-document form: nesting under the short path would drop
// one side's rules. Both compile orders must be rejected.
func TestPolicyOverlappingPathsRejected(t *testing.T) {
	conds := map[string]*Conditional{
		"short after long": When("data.document.type").Equals("text/plain").
			And(When("data.document").Exists()),
		"long after short": When("data.document").Exists().
			And(When("data.document.type").Equals("text/plain")),
	}

	for name, cond := range conds {
		t.Run(name, func(t *testing.T) {
			_, err := cond.Policy()
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
			assert.ErrorIs(t, err, errors.ErrPolicyUnsupported)
		})
	}
}

func TestAlwaysPolicyIsEmpty(t *testing.T) {
	policy, err := Always().Policy()
	require.NoError(t, err)
	assert.Empty(t, policy)
	assert.True(t, Match(policy, map[string]any{}))
}

// Predicate and compiled policy must agree for every supported
// operator over a grid of events.
func TestPredicatePolicyEquivalence(t *testing.T) {
	conds := map[string]*Conditional{
		"equals string": When("data.document.type").Equals("text/plain"),
		"one of":        When("data.document.type").OneOf("text/plain", "image/png"),
		"prefix":        When("data.document.type").HasPrefix("image/"),
		"gte":           When("data.document.size").Gte(100),
		"lt":            When("data.document.size").Lt(1000),
		"range":         When("data.document.size").Gte(100).And(When("data.document.size").Lt(1000)),
		"exists":        When("data.metadata.language").Exists(),
		"nested exists": When("data.document").Exists(),
		"conjunction":   When("data.document.type").Equals("text/plain").And(When("data.metadata.language").Equals("en")),
		"mime wildcard": MIMEIn("image/*", "text/plain"),
		"always":        Always(),
	}

	events := []map[string]any{
		projection("text/plain", 50, ""),
		projection("text/plain", 100, "en"),
		projection("text/plain", 5000, "fr"),
		projection("image/png", 100, "en"),
		projection("image/jpeg", 999, ""),
		projection("application/pdf", 0, "en"),
		{},
	}

	for name, cond := range conds {
		t.Run(name, func(t *testing.T) {
			policy, err := cond.Policy()
			require.NoError(t, err)
			for i, evt := range events {
				predicate, err := cond.Predicate(evt)
				require.NoError(t, err)
				assert.Equal(t, predicate, Match(policy, evt),
					"event %d: predicate and policy disagree", i)
			}
		})
	}
}

func TestMIMEIn(t *testing.T) {
	cond := MIMEIn("image/*", "text/plain")

	for mime, want := range map[string]bool{
		"image/png":       true,
		"image/jpeg":      true,
		"text/plain":      true,
		"text/markdown":   false,
		"application/pdf": false,
	} {
		match, err := cond.Predicate(projection(mime, 0, ""))
		require.NoError(t, err)
		assert.Equal(t, want, match, mime)
	}

	match, err := MIMEIn("*/*").Predicate(projection("anything/else", 0, ""))
	require.NoError(t, err)
	assert.True(t, match)

	require.Error(t, MIMEIn().Validate())
}
