package assistant

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vstep-prep-backend/agui"
)

func newTestReducer(t *testing.T) (*ChatState, *Reducer, string) {
	t.Helper()
	state := NewChatState(0)
	activeID := newMessageID()
	state.Append(&ChatMessage{
		ID:        activeID,
		Role:      RoleAssistant,
		Content:   PlaceholderContent,
		Type:      MessageText,
		Timestamp: time.Now(),
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return state, NewReducer(state, logger), activeID
}

func TestReducerRunStart(t *testing.T) {
	state, r, _ := newTestReducer(t)

	r.Apply(agui.Event{Type: agui.EventRunStart, RunID: "run-1"}, "")

	assert.Equal(t, "run-1", state.SharedState["runId"])
}

func TestReducerTextDeltaAccumulates(t *testing.T) {
	state, r, activeID := newTestReducer(t)
	r.Apply(agui.Event{Type: agui.EventRunStart, RunID: "run-1"}, activeID)

	r.Apply(agui.TextDelta("Xin "), activeID)
	r.Apply(agui.TextDelta("chào "), activeID)
	r.Apply(agui.TextDelta("bạn"), activeID)

	assert.Equal(t, "Xin chào bạn", state.MessageByID(activeID).Content)
}

func TestReducerFullContentReplacesAccumulated(t *testing.T) {
	state, r, activeID := newTestReducer(t)
	r.Apply(agui.Event{Type: agui.EventRunStart, RunID: "run-1"}, activeID)

	r.Apply(agui.TextDelta("nháp cũ"), activeID)
	r.Apply(agui.TextFull("Câu trả lời cuối."), activeID)

	assert.Equal(t, "Câu trả lời cuối.", state.MessageByID(activeID).Content)

	// Later deltas extend the replaced content, not the discarded draft.
	r.Apply(agui.TextDelta(" Thêm."), activeID)
	assert.Equal(t, "Câu trả lời cuối. Thêm.", state.MessageByID(activeID).Content)
}

func TestReducerTextForUnknownMessageIgnored(t *testing.T) {
	state, r, _ := newTestReducer(t)
	r.Apply(agui.Event{Type: agui.EventRunStart, RunID: "run-1"}, "")

	assert.NotPanics(t, func() {
		r.Apply(agui.TextDelta("rơi xuống sàn"), "no-such-message")
	})
	assert.Equal(t, WelcomeContent, state.Messages[0].Content)
}

func TestReducerToolCallLifecycle(t *testing.T) {
	state, r, activeID := newTestReducer(t)
	r.Apply(agui.Event{Type: agui.EventRunStart, RunID: "run-1"}, activeID)

	r.Apply(agui.Event{
		Type:     agui.EventToolCallStart,
		CallID:   "call-1",
		ToolName: "search_study_material",
		Args:     map[string]any{"query": "mệnh đề quan hệ"},
	}, activeID)

	msg := state.MessageByID(activeID)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, ToolPending, msg.ToolCalls[0].Status)
	assert.False(t, msg.ToolCalls[0].Terminal())

	result := json.RawMessage(`{"documents":[]}`)
	r.Apply(agui.Event{
		Type:    agui.EventToolCallResult,
		CallID:  "call-1",
		Success: true,
		Result:  result,
	}, activeID)

	call := msg.ToolCalls[0]
	assert.Equal(t, ToolComplete, call.Status)
	assert.Equal(t, result, call.Result)
	assert.False(t, call.EndTime.IsZero())

	done := r.TakeCompleted()
	require.Len(t, done, 1)
	assert.Equal(t, "call-1", done[0].ID)
	assert.Empty(t, r.TakeCompleted(), "drained queue stays empty")
}

func TestReducerToolCallFailure(t *testing.T) {
	state, r, activeID := newTestReducer(t)
	r.Apply(agui.Event{Type: agui.EventRunStart, RunID: "run-1"}, activeID)
	r.Apply(agui.Event{Type: agui.EventToolCallStart, CallID: "call-1", ToolName: "get_attempt_detail"}, activeID)

	r.Apply(agui.Event{Type: agui.EventToolCallResult, CallID: "call-1", Success: false, Error: "timeout"}, activeID)

	call := state.MessageByID(activeID).ToolCalls[0]
	assert.Equal(t, ToolError, call.Status)
	assert.Equal(t, "timeout", call.Error)
}

func TestReducerDuplicateTerminalResultIgnored(t *testing.T) {
	state, r, activeID := newTestReducer(t)
	r.Apply(agui.Event{Type: agui.EventRunStart, RunID: "run-1"}, activeID)
	r.Apply(agui.Event{Type: agui.EventToolCallStart, CallID: "call-1", ToolName: "search_study_material"}, activeID)
	r.Apply(agui.Event{
		Type:    agui.EventToolCallResult,
		CallID:  "call-1",
		Success: true,
		Result:  json.RawMessage(`{"first":true}`),
	}, activeID)
	r.TakeCompleted()

	// A second terminal event for the same call must not overwrite the
	// recorded outcome or re-enqueue a completion.
	r.Apply(agui.Event{Type: agui.EventToolCallResult, CallID: "call-1", Success: false, Error: "late failure"}, activeID)

	call := state.MessageByID(activeID).ToolCalls[0]
	assert.Equal(t, ToolComplete, call.Status)
	assert.Equal(t, json.RawMessage(`{"first":true}`), call.Result)
	assert.Empty(t, call.Error)
	assert.Empty(t, r.TakeCompleted())
}

func TestReducerResultForUnknownCallIgnored(t *testing.T) {
	_, r, activeID := newTestReducer(t)
	r.Apply(agui.Event{Type: agui.EventRunStart, RunID: "run-1"}, activeID)

	assert.NotPanics(t, func() {
		r.Apply(agui.Event{Type: agui.EventToolCallResult, CallID: "ghost", Success: true}, activeID)
	})
	assert.Empty(t, r.TakeCompleted())
}

func TestReducerStateDeltaMerges(t *testing.T) {
	state, r, activeID := newTestReducer(t)
	state.SharedState["keep"] = "old"
	state.SharedState["replace"] = 1

	r.Apply(agui.Event{Type: agui.EventStateDelta, State: map[string]any{
		"replace": 2,
		"new":     "value",
	}}, activeID)

	assert.Equal(t, "old", state.SharedState["keep"])
	assert.Equal(t, 2, state.SharedState["replace"])
	assert.Equal(t, "value", state.SharedState["new"])
}

func TestReducerRunCompleteSuppressesText(t *testing.T) {
	state, r, activeID := newTestReducer(t)
	state.IsStreaming = true
	r.Apply(agui.Event{Type: agui.EventRunStart, RunID: "run-1"}, activeID)
	r.Apply(agui.TextDelta("phân tích nội bộ"), activeID)
	r.Apply(agui.Event{Type: agui.EventStateDelta, State: map[string]any{suppressTextKey: true}}, activeID)

	r.Apply(agui.Event{Type: agui.EventRunComplete, RunID: "run-1"}, activeID)

	assert.False(t, state.IsStreaming)
	assert.Empty(t, state.MessageByID(activeID).Content)
}

func TestReducerRunCompleteFallbackForPlaceholder(t *testing.T) {
	state, r, activeID := newTestReducer(t)
	state.IsStreaming = true
	r.Apply(agui.Event{Type: agui.EventRunStart, RunID: "run-1"}, activeID)

	// No text ever arrived; the placeholder must not leak to the user.
	r.Apply(agui.Event{Type: agui.EventRunComplete, RunID: "run-1"}, activeID)

	assert.False(t, state.IsStreaming)
	assert.Equal(t, FallbackPanelContent, state.MessageByID(activeID).Content)
}

func TestReducerRunCompleteKeepsStreamedText(t *testing.T) {
	state, r, activeID := newTestReducer(t)
	r.Apply(agui.Event{Type: agui.EventRunStart, RunID: "run-1"}, activeID)
	r.Apply(agui.TextDelta("Bạn nên luyện Reading trước."), activeID)

	r.Apply(agui.Event{Type: agui.EventRunComplete, RunID: "run-1"}, activeID)

	assert.Equal(t, "Bạn nên luyện Reading trước.", state.MessageByID(activeID).Content)
}

func TestReducerErrorKeepsStreamAlive(t *testing.T) {
	state, r, activeID := newTestReducer(t)
	state.IsStreaming = true
	r.Apply(agui.Event{Type: agui.EventRunStart, RunID: "run-1"}, activeID)

	r.Apply(agui.Event{Type: agui.EventError, Error: "model quá tải"}, activeID)

	assert.Equal(t, "model quá tải", state.Err)
	assert.True(t, state.IsStreaming, "an ERROR event does not end the run")

	msg := state.MessageByID(activeID)
	assert.Equal(t, errorContentPrefix+"model quá tải", msg.Content)
	assert.Equal(t, MessageError, msg.Type)
}

func TestReducerErrorPreservesStreamedText(t *testing.T) {
	state, r, activeID := newTestReducer(t)
	r.Apply(agui.Event{Type: agui.EventRunStart, RunID: "run-1"}, activeID)
	r.Apply(agui.TextDelta("Một phần câu trả lời"), activeID)

	r.Apply(agui.Event{Type: agui.EventError, Error: "mất kết nối"}, activeID)

	msg := state.MessageByID(activeID)
	assert.Equal(t, "Một phần câu trả lời", msg.Content, "partial text is kept")
	assert.Equal(t, MessageError, msg.Type)
	assert.Equal(t, "mất kết nối", state.Err)
}

func TestReducerUnknownEventTypeSkipped(t *testing.T) {
	state, r, activeID := newTestReducer(t)

	assert.NotPanics(t, func() {
		r.Apply(agui.Event{Type: "CUSTOM_EXTENSION"}, activeID)
	})
	assert.Equal(t, PlaceholderContent, state.MessageByID(activeID).Content)
}
