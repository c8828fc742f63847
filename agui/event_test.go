package agui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvent(t *testing.T) {
	data := []byte(`{"type":"TOOL_CALL_START","callId":"c1","toolName":"get_quiz_history","args":{"page":1}}`)

	ev, err := ParseEvent(data)
	require.NoError(t, err)
	assert.Equal(t, EventToolCallStart, ev.Type)
	assert.Equal(t, "c1", ev.CallID)
	assert.Equal(t, "get_quiz_history", ev.ToolName)
	assert.Equal(t, float64(1), ev.Args["page"])
}

func TestParseEventMalformed(t *testing.T) {
	_, err := ParseEvent([]byte(`{"type":`))
	assert.Error(t, err)
}

func TestParseEventUnknownType(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"type":"SOMETHING_NEW"}`))
	require.NoError(t, err)
	assert.False(t, ev.Type.Known())
}

func TestKnownTypes(t *testing.T) {
	for _, typ := range []EventType{
		EventRunStart, EventTextMessageContent, EventToolCallStart,
		EventToolCallResult, EventStateDelta, EventRunComplete, EventError,
	} {
		assert.True(t, typ.Known(), string(typ))
	}
}

func TestTextHelpers(t *testing.T) {
	delta := TextDelta("xin ")
	assert.Equal(t, EventTextMessageContent, delta.Type)
	assert.True(t, delta.Delta)
	require.NotNil(t, delta.Content)
	assert.Equal(t, "xin ", *delta.Content)

	full := TextFull("xin chào")
	assert.False(t, full.Delta)
	require.NotNil(t, full.Content)
	assert.Equal(t, "xin chào", *full.Content)
}
