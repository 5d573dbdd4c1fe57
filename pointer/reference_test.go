package pointer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/docstreams/errors"
)

func testProjection() map[string]any {
	return map[string]any{
		"data": map[string]any{
			"document": map[string]any{
				"url":  "cache://documents/report.txt",
				"type": "text/plain",
			},
			"metadata": map[string]any{
				"properties": map[string]any{
					"text": map[string]any{
						"embeddings": map[string]any{
							"uri":  "cache://embeddings/report",
							"type": "embedding",
						},
					},
				},
			},
		},
	}
}

func TestResolverAttributeSubject(t *testing.T) {
	resolver := NewResolver(NewSourceRegistry())

	value, err := resolver.Resolve(context.Background(), testProjection(), AttributeReference("data.document.url"))
	require.NoError(t, err)
	assert.Equal(t, "cache://documents/report.txt", value)
}

func TestResolverAttributeMissing(t *testing.T) {
	resolver := NewResolver(NewSourceRegistry())

	_, err := resolver.Resolve(context.Background(), testProjection(), AttributeReference("data.document.language"))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.ErrorIs(t, err, errors.ErrAttributeMissing)
}

func TestResolverValueSubject(t *testing.T) {
	resolver := NewResolver(NewSourceRegistry())

	value, err := resolver.Resolve(context.Background(), nil, ValueReference("summarize the document"))
	require.NoError(t, err)
	assert.Equal(t, "summarize the document", value)

	value, err = resolver.Resolve(context.Background(), nil, ValueReference(nil))
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestResolverURLSubject(t *testing.T) {
	src := &countingSource{data: map[string][]byte{
		"cache://documents/report.txt": []byte("quarterly results"),
	}}
	resolver := NewResolver(newTestRegistry(t, src))

	value, err := resolver.Resolve(context.Background(), nil, URLReference("cache://documents/report.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("quarterly results"), value)
}

func TestResolverPointerSubject(t *testing.T) {
	src := &countingSource{data: map[string][]byte{
		"cache://embeddings/report": []byte(`[0.1,0.2]`),
	}}
	resolver := NewResolver(newTestRegistry(t, src))

	value, err := resolver.Resolve(context.Background(), testProjection(),
		PointerReference("data.metadata.properties.text.embeddings"))
	require.NoError(t, err)
	assert.Equal(t, []byte(`[0.1,0.2]`), value)
}

func TestResolverPointerSubjectNotAHandle(t *testing.T) {
	resolver := NewResolver(NewSourceRegistry())

	_, err := resolver.Resolve(context.Background(), testProjection(), PointerReference("data.document.type"))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestReferenceValidate(t *testing.T) {
	tests := []struct {
		name    string
		ref     Reference
		wantErr bool
	}{
		{name: "url ok", ref: URLReference("cache://a/b")},
		{name: "url empty", ref: Reference{Subject: Subject{Type: SubjectURL}}, wantErr: true},
		{name: "attribute ok", ref: AttributeReference("data.document.url")},
		{name: "attribute empty path", ref: Reference{Subject: Subject{Type: SubjectAttribute}}, wantErr: true},
		{name: "pointer empty path", ref: Reference{Subject: Subject{Type: SubjectPointer}}, wantErr: true},
		{name: "value nil ok", ref: ValueReference(nil)},
		{name: "unknown kind", ref: Reference{Subject: Subject{Type: "oracle"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ref.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsInvalid(err))
				return
			}
			require.NoError(t, err)
		})
	}
}
