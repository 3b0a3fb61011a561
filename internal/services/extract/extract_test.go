package extract

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) interface{} {
	t.Helper()
	var payload interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return payload
}

func TestText(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{
			name:    "empty object",
			payload: `{}`,
			want:    "",
		},
		{
			name:    "inline response is trimmed",
			payload: `{"response": " hi "}`,
			want:    "hi",
		},
		{
			name:    "message content deduplicated in order",
			payload: `{"result":{"data":{"message":{"content":[{"text":"a"},{"text":"a"},{"text":"b"}]}}}}`,
			want:    "a\nb",
		},
		{
			name:    "message content beats inline response",
			payload: `{"response":"fallback","result":{"data":{"message":{"content":[{"text":"primary"}]}}}}`,
			want:    "primary",
		},
		{
			name:    "non-text content items are skipped",
			payload: `{"result":{"data":{"message":{"content":[{"type":"image"},{"text":42},"raw",{"text":"kept"}]}}}}`,
			want:    "kept",
		},
		{
			name:    "whitespace-only message content falls through",
			payload: `{"result":{"data":{"message":{"content":[{"text":"  "}]}}},"response":"next"}`,
			want:    "next",
		},
		{
			name:    "broken message path falls through to response",
			payload: `{"result":{"data":"not-an-object"},"response":"ok"}`,
			want:    "ok",
		},
		{
			name:    "content that is not a list falls through",
			payload: `{"result":{"data":{"message":{"content":"plain"}}},"content":[{"text":"x"}]}`,
			want:    "x",
		},
		{
			name:    "blank response falls through to top-level content",
			payload: `{"response":"   ","content":[{"text":"one"},{"text":"two"},{"text":"one"}]}`,
			want:    "one\ntwo",
		},
		{
			name:    "non-string response is ignored",
			payload: `{"response":{"text":"nested"}}`,
			want:    "",
		},
		{
			name:    "joined result is trimmed",
			payload: `{"content":[{"text":"\n lead"},{"text":"tail \n"}]}`,
			want:    "lead\ntail",
		},
		{
			name:    "array payload",
			payload: `[{"text":"a"}]`,
			want:    "",
		},
		{
			name:    "scalar payload",
			payload: `"just a string"`,
			want:    "",
		},
		{
			name:    "null payload",
			payload: `null`,
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := decode(t, tt.payload)
			assert.Equal(t, tt.want, Text(payload))
			assert.Equal(t, tt.want, Text(payload), "extraction must be deterministic")
		})
	}
}

func TestTextNilPayload(t *testing.T) {
	assert.Equal(t, "", Text(nil))
}

func TestField(t *testing.T) {
	var payload interface{}
	decoder := json.NewDecoder(strings.NewReader(`{"status":"queued","attempt":3,"thread_id":null,"nested":{"a":1}}`))
	decoder.UseNumber()
	require.NoError(t, decoder.Decode(&payload))

	assert.Equal(t, "queued", Field(payload, "status"))
	assert.Equal(t, "3", Field(payload, "attempt"))
	assert.Equal(t, "", Field(payload, "thread_id"))
	assert.Equal(t, "", Field(payload, "nested"))
	assert.Equal(t, "", Field(payload, "missing"))
	assert.Equal(t, "", Field([]interface{}{}, "status"))
	assert.Equal(t, "1.5", Field(map[string]interface{}{"v": 1.5}, "v"))
}

func TestFieldOfParsedDocument(t *testing.T) {
	doc := Parse(map[string]interface{}{"run_id": "r1", "state": "RUNNING"})

	assert.Equal(t, "r1", FieldOf(doc, "run_id"))
	assert.Equal(t, "RUNNING", FieldOf(doc, "state"))
	assert.Equal(t, "", FieldOf(Parse(func() {}), "run_id"))
}

func TestStrategiesOnParsedDocument(t *testing.T) {
	doc := Parse(decode(t, `{"response":"inline","content":[{"text":"x"},{"text":"y"},{"text":"x"}]}`))

	text, ok := InlineResponse(doc)
	assert.True(t, ok)
	assert.Equal(t, "inline", text)

	text, ok = TopLevelContent(doc)
	assert.True(t, ok)
	assert.Equal(t, "x\ny", text)

	_, ok = MessageContent(doc)
	assert.False(t, ok)
}
