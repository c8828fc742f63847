package agent

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"

	"vstep-prep-backend/agui"
)

func newTestEmitter(t *testing.T) (*AGUIEmitter, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	return NewAGUIEmitter(c, "run-test"), rec
}

func recordedEvents(t *testing.T, rec *httptest.ResponseRecorder) []agui.Event {
	t.Helper()
	var events []agui.Event
	for _, record := range strings.Split(rec.Body.String(), "\n\n") {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}
		data, ok := strings.CutPrefix(record, "data: ")
		require.True(t, ok, "unexpected record: %q", record)
		ev, err := agui.ParseEvent([]byte(data))
		require.NoError(t, err)
		events = append(events, ev)
	}
	return events
}

func TestEmitterSwallowsReasoningBeforeMarker(t *testing.T) {
	e, rec := newTestEmitter(t)
	ctx := context.Background()

	e.Begin()
	for _, chunk := range []string{"Thought: cần xem lịch sử.", " Mình sẽ trả lời. AI", ": Xin", " chào bạn!"} {
		e.HandleStreamingFunc(ctx, []byte(chunk))
	}

	assert.Equal(t, " Xin chào bạn!", e.FinalAnswer())

	events := recordedEvents(t, rec)
	require.NotEmpty(t, events)
	assert.Equal(t, agui.EventRunStart, events[0].Type)
	assert.Equal(t, "run-test", events[0].RunID)

	var streamed strings.Builder
	for _, ev := range events[1:] {
		require.Equal(t, agui.EventTextMessageContent, ev.Type)
		assert.True(t, ev.Delta)
		require.NotNil(t, ev.Content)
		streamed.WriteString(*ev.Content)
	}
	assert.Equal(t, " Xin chào bạn!", streamed.String())
	assert.NotContains(t, rec.Body.String(), "Thought", "reasoning never reaches the wire")
}

func TestEmitterMarkerSplitInsideToken(t *testing.T) {
	e, _ := newTestEmitter(t)
	ctx := context.Background()

	e.HandleStreamingFunc(ctx, []byte("suy nghĩ dài dòng về câu hỏi A"))
	e.HandleStreamingFunc(ctx, []byte("I:đáp án"))

	assert.Equal(t, "đáp án", e.FinalAnswer())
}

func TestEmitterToolLifecycle(t *testing.T) {
	e, rec := newTestEmitter(t)
	ctx := context.Background()

	e.HandleAgentAction(ctx, schema.AgentAction{Tool: "get_quiz_history", ToolInput: `{"page":1}`})
	e.HandleToolEnd(ctx, `{"data":[],"pagination":{"total":0}}`)

	events := recordedEvents(t, rec)
	require.Len(t, events, 2)

	start, result := events[0], events[1]
	assert.Equal(t, agui.EventToolCallStart, start.Type)
	assert.Equal(t, "get_quiz_history", start.ToolName)
	assert.NotEmpty(t, start.CallID)
	assert.Equal(t, map[string]any{"page": float64(1)}, start.Args)

	assert.Equal(t, agui.EventToolCallResult, result.Type)
	assert.Equal(t, start.CallID, result.CallID, "result correlates with its start")
	assert.True(t, result.Success)
	assert.JSONEq(t, `{"data":[],"pagination":{"total":0}}`, string(result.Result))

	records := e.Calls()
	require.Len(t, records, 1)
	assert.Equal(t, start.CallID, records[0].ID)
}

func TestEmitterToolError(t *testing.T) {
	e, rec := newTestEmitter(t)
	ctx := context.Background()

	e.HandleAgentAction(ctx, schema.AgentAction{Tool: "get_attempt_detail", ToolInput: "7"})
	e.HandleToolError(ctx, errors.New("attempt not found"))

	events := recordedEvents(t, rec)
	require.Len(t, events, 2)
	assert.Equal(t, map[string]any{"input": "7"}, events[0].Args)
	assert.False(t, events[1].Success)
	assert.Equal(t, "attempt not found", events[1].Error)
}

func TestEmitterToolEndWithoutStart(t *testing.T) {
	e, rec := newTestEmitter(t)

	e.HandleToolEnd(context.Background(), "orphan output")

	assert.Empty(t, recordedEvents(t, rec))
}

func TestEmitterFinishFallsBackToResult(t *testing.T) {
	e, rec := newTestEmitter(t)

	e.Finish("Bạn nên luyện kỹ năng Nghe.", false)

	events := recordedEvents(t, rec)
	require.Len(t, events, 2)
	assert.Equal(t, agui.EventTextMessageContent, events[0].Type)
	assert.False(t, events[0].Delta)
	assert.Equal(t, "Bạn nên luyện kỹ năng Nghe.", *events[0].Content)
	assert.Equal(t, agui.EventRunComplete, events[1].Type)
	assert.Equal(t, "run-test", events[1].RunID)
}

func TestEmitterFinishDoesNotOverrideStreamedAnswer(t *testing.T) {
	e, rec := newTestEmitter(t)
	e.HandleStreamingFunc(context.Background(), []byte("AI:Đã trả lời."))

	e.Finish("Đã trả lời.", false)

	events := recordedEvents(t, rec)
	require.Len(t, events, 2)
	assert.Equal(t, agui.EventTextMessageContent, events[0].Type)
	assert.True(t, events[0].Delta)
	assert.Equal(t, agui.EventRunComplete, events[1].Type)
}

func TestEmitterFinishSuppressText(t *testing.T) {
	e, rec := newTestEmitter(t)

	e.Finish("", true)

	events := recordedEvents(t, rec)
	require.Len(t, events, 2)
	assert.Equal(t, agui.EventStateDelta, events[0].Type)
	assert.Equal(t, true, events[0].State["suppressAssistantText"])
	assert.Equal(t, agui.EventRunComplete, events[1].Type)
}

func TestEmitterFail(t *testing.T) {
	e, rec := newTestEmitter(t)

	e.Fail(errors.New("llm unavailable"), "agent_error")

	events := recordedEvents(t, rec)
	require.Len(t, events, 2)
	assert.Equal(t, agui.EventError, events[0].Type)
	assert.Equal(t, "llm unavailable", events[0].Error)
	assert.Equal(t, "agent_error", events[0].Code)
	assert.Equal(t, agui.EventRunComplete, events[1].Type)
}
