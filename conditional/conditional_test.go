package conditional

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/docstreams/errors"
)

func projection(docType string, size float64, language string) map[string]any {
	data := map[string]any{
		"document": map[string]any{
			"type": docType,
			"size": size,
		},
		"metadata": map[string]any{},
	}
	if language != "" {
		data["metadata"] = map[string]any{"language": language}
	}
	return map[string]any{"data": data}
}

func TestWhenEquals(t *testing.T) {
	cond := When("data.document.type").Equals("text/plain")
	require.NoError(t, cond.Validate())

	match, err := cond.Predicate(projection("text/plain", 100, ""))
	require.NoError(t, err)
	assert.True(t, match)

	match, err = cond.Predicate(projection("image/png", 100, ""))
	require.NoError(t, err)
	assert.False(t, match)
}

func TestWhenOneOf(t *testing.T) {
	cond := When("data.document.type").OneOf("text/plain", "text/markdown")
	require.NoError(t, cond.Validate())

	for mime, want := range map[string]bool{
		"text/plain":    true,
		"text/markdown": true,
		"text/html":     false,
	} {
		match, err := cond.Predicate(projection(mime, 0, ""))
		require.NoError(t, err)
		assert.Equal(t, want, match, mime)
	}
}

func TestNumericComparators(t *testing.T) {
	cond := When("data.document.size").Gte(100).And(When("data.document.size").Lt(1000))
	require.NoError(t, cond.Validate())

	tests := []struct {
		size float64
		want bool
	}{
		{99, false},
		{100, true},
		{500, true},
		{999, true},
		{1000, false},
	}
	for _, tt := range tests {
		match, err := cond.Predicate(projection("text/plain", tt.size, ""))
		require.NoError(t, err)
		assert.Equal(t, tt.want, match, "size %v", tt.size)
	}
}

func TestExists(t *testing.T) {
	cond := When("data.metadata.language").Exists()

	match, err := cond.Predicate(projection("text/plain", 0, "en"))
	require.NoError(t, err)
	assert.True(t, match)

	match, err = cond.Predicate(projection("text/plain", 0, ""))
	require.NoError(t, err)
	assert.False(t, match)
}

func TestHasPrefix(t *testing.T) {
	cond := When("data.document.type").HasPrefix("image/")

	match, err := cond.Predicate(projection("image/png", 0, ""))
	require.NoError(t, err)
	assert.True(t, match)

	match, err = cond.Predicate(projection("text/plain", 0, ""))
	require.NoError(t, err)
	assert.False(t, match)
}

func TestStrictTypingAtBuildTime(t *testing.T) {
	cond := When("data.document.size").Gte("large")
	err := cond.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.ErrorIs(t, err, errors.ErrIncompatibleTypes)

	cond = When("data.document.type").OneOf("text/plain", 42)
	err = cond.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrIncompatibleTypes)

	cond = When("").Equals("x")
	require.Error(t, cond.Validate())

	cond = When("data.document.type").OneOf()
	require.Error(t, cond.Validate())
}

func TestStrictTypingAtEvaluationTime(t *testing.T) {
	cond := When("data.document.size").Equals(100)

	match, err := cond.Predicate(map[string]any{
		"data": map[string]any{"document": map[string]any{"size": "100"}},
	})
	require.NoError(t, err)
	assert.False(t, match, "string value never matches a numeric comparison")
}

func TestAndIsConjunctive(t *testing.T) {
	a := When("data.document.type").Equals("text/plain")
	b := When("data.metadata.language").Equals("en")
	both := a.And(b)

	tests := []struct {
		docType  string
		language string
		want     bool
	}{
		{"text/plain", "en", true},
		{"text/plain", "fr", false},
		{"image/png", "en", false},
		{"image/png", "fr", false},
	}
	for _, tt := range tests {
		match, err := both.Predicate(projection(tt.docType, 0, tt.language))
		require.NoError(t, err)
		assert.Equal(t, tt.want, match, "%s %s", tt.docType, tt.language)
	}
}

func TestAndPropagatesBuildErrors(t *testing.T) {
	bad := When("data.document.size").Gte("nope")
	combined := When("data.document.type").Equals("text/plain").And(bad)
	require.Error(t, combined.Validate())

	_, err := combined.Predicate(projection("text/plain", 0, ""))
	require.Error(t, err)
}

func TestAlwaysMatchesEverything(t *testing.T) {
	match, err := Always().Predicate(map[string]any{})
	require.NoError(t, err)
	assert.True(t, match)

	var nilCond *Conditional
	match, err = nilCond.Predicate(map[string]any{})
	require.NoError(t, err)
	assert.True(t, match)
}

func TestMissingPathFailsMatch(t *testing.T) {
	cond := When("data.metadata.publisher").Equals("acme")
	match, err := cond.Predicate(projection("text/plain", 0, ""))
	require.NoError(t, err)
	assert.False(t, match)
}
