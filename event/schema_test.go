package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/docstreams/errors"
)

func TestFromJSONValidEnvelope(t *testing.T) {
	raw := []byte(`{
		"specversion": "1.0",
		"id": "5f2bd389-0f0f-4b6b-9a3a-2b1df37f7c4d",
		"type": "document-created",
		"time": "2025-06-01T12:00:00Z",
		"data": {
			"chainId": "0f9a62b4-43ce-4c86-9d2f-8b6f3c3e6f10",
			"source": {"url": "cache://inbox/report.pdf", "type": "application/pdf", "size": 4096, "etag": "e1"},
			"document": {"url": "cache://inbox/report.pdf", "type": "application/pdf", "size": 4096, "etag": "e1"},
			"metadata": {
				"language": "en",
				"properties": {"kind": "text", "text": {"pages": 4}}
			},
			"callStack": ["pdf-text-converter"]
		}
	}`)

	evt, err := FromJSON(raw)
	require.NoError(t, err)

	assert.Equal(t, TypeDocumentCreated, evt.Type)
	assert.Equal(t, "0f9a62b4-43ce-4c86-9d2f-8b6f3c3e6f10", evt.Data.ChainID)
	assert.Equal(t, []string{"pdf-text-converter"}, evt.Data.CallStack)
	require.NotNil(t, evt.Data.Metadata.Properties)
	assert.Equal(t, KindText, evt.Data.Metadata.Properties.Kind)
	require.NotNil(t, evt.Data.Metadata.Properties.Text)
	assert.Equal(t, int64(4), evt.Data.Metadata.Properties.Text.Pages)
}

func TestFromJSONEnumeratesEveryViolation(t *testing.T) {
	raw := []byte(`{
		"specversion": "0.3",
		"type": "document-created",
		"time": "2025-06-01T12:00:00Z",
		"data": {
			"source": {"url": "cache://inbox/report.pdf", "type": "application/pdf", "etag": "e1"},
			"document": {"url": "cache://inbox/report.pdf"},
			"callStack": []
		}
	}`)

	_, err := FromJSON(raw)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.ErrorIs(t, err, errors.ErrSchemaViolation)

	msg := err.Error()
	assert.Contains(t, msg, "specversion")
	assert.Contains(t, msg, "id")
	assert.Contains(t, msg, "chainId")
	assert.Contains(t, msg, "type")
}

func TestFromJSONRejectsUnknownEventType(t *testing.T) {
	raw := []byte(`{
		"specversion": "1.0",
		"id": "x",
		"type": "document-exploded",
		"time": "2025-06-01T12:00:00Z",
		"data": {
			"chainId": "c",
			"source": {"url": "u", "type": "t", "etag": "e"},
			"document": {"url": "u", "type": "t", "etag": "e"},
			"callStack": []
		}
	}`)

	_, err := FromJSON(raw)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestFromJSONRejectsUnknownMetadataKind(t *testing.T) {
	raw := []byte(`{
		"specversion": "1.0",
		"id": "x",
		"type": "document-created",
		"time": "2025-06-01T12:00:00Z",
		"data": {
			"chainId": "c",
			"source": {"url": "u", "type": "t", "etag": "e"},
			"document": {"url": "u", "type": "t", "etag": "e"},
			"metadata": {"properties": {"kind": "hologram"}},
			"callStack": []
		}
	}`)

	_, err := FromJSON(raw)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestFromJSONNotJSON(t *testing.T) {
	_, err := FromJSON([]byte("not json at all"))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}
