package assistant

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectPanelPrecedence(t *testing.T) {
	history := json.RawMessage(`{"data":[]}`)
	detail := json.RawMessage(`{"attemptId":1}`)
	writing := json.RawMessage(`{"answer":"..."}`)

	sel := SelectPanel(map[PanelKind]json.RawMessage{
		PanelWriting:       writing,
		PanelQuizHistory:   history,
		PanelAttemptDetail: detail,
	})
	require.NotNil(t, sel)
	assert.Equal(t, PanelAttemptDetail, sel.Kind)
	assert.Equal(t, detail, sel.Data)

	sel = SelectPanel(map[PanelKind]json.RawMessage{
		PanelWriting:     writing,
		PanelQuizHistory: history,
	})
	require.NotNil(t, sel)
	assert.Equal(t, PanelQuizHistory, sel.Kind, "history outranks writing for display")

	assert.Nil(t, SelectPanel(nil))
	assert.Nil(t, SelectPanel(map[PanelKind]json.RawMessage{PanelSpeaking: nil}))
}

func TestBuildDisplayModes(t *testing.T) {
	view := BuildDisplay(nil, nil)
	assert.True(t, view.Empty)

	sel := &PanelSelection{Kind: PanelWriting, Data: json.RawMessage(`{}`)}
	view = BuildDisplay(nil, sel)
	assert.False(t, view.Empty)
	assert.Equal(t, sel, view.Panel)
	assert.Nil(t, view.Groups)

	calls := []*ToolCall{
		{ID: "a", Name: "get_quiz_history", Status: ToolPending},
		{ID: "b", Name: "get_attempt_detail", Status: ToolComplete},
		{ID: "c", Name: "search_study_material", Status: ToolError},
	}
	view = BuildDisplay(calls, nil)
	require.NotNil(t, view.Groups)
	require.Len(t, view.Groups.Pending, 1)
	assert.Equal(t, "a", view.Groups.Pending[0].ID)
	require.Len(t, view.Groups.Finished, 2)
	assert.Equal(t, "b", view.Groups.Finished[0].ID)
	assert.Equal(t, "c", view.Groups.Finished[1].ID)

	// An external selection beats the grouped list.
	view = BuildDisplay(calls, sel)
	assert.Equal(t, sel, view.Panel)
	assert.Nil(t, view.Groups)
}

func TestSummarizeToolCallsClassPriority(t *testing.T) {
	msg := &ChatMessage{ToolCalls: []*ToolCall{
		{ID: "h", Name: "get_quiz_history", Status: ToolComplete, Result: json.RawMessage(`{"data":[]}`)},
		{ID: "w", Name: "get_writing_data", Status: ToolComplete, Result: json.RawMessage(`{"answer":"x"}`)},
	}}

	sum := SummarizeToolCalls(msg)
	require.NotNil(t, sum)
	assert.Equal(t, "Xem bài viết", sum.Label, "writing outranks history for the chip")
	assert.Equal(t, PanelWriting, sum.Panel)
	assert.True(t, sum.Clickable)
	assert.Equal(t, json.RawMessage(`{"answer":"x"}`), sum.Result)
	assert.Equal(t, 2, sum.Count)
}

func TestSummarizeToolCallsGenericFallback(t *testing.T) {
	msg := &ChatMessage{ToolCalls: []*ToolCall{
		{ID: "p", Name: "get_attempt_detail", Status: ToolPending},
		{ID: "f", Name: "get_writing_data", Status: ToolError, Error: "boom"},
		{ID: "o", Name: "search_study_material", Status: ToolComplete, Result: json.RawMessage(`{}`)},
	}}

	sum := SummarizeToolCalls(msg)
	require.NotNil(t, sum)
	assert.Equal(t, "3 công cụ đã chạy", sum.Label)
	assert.False(t, sum.Clickable)
	assert.Equal(t, 3, sum.Count)
}

func TestSummarizeToolCallsEmpty(t *testing.T) {
	assert.Nil(t, SummarizeToolCalls(nil))
	assert.Nil(t, SummarizeToolCalls(&ChatMessage{}))
}

func TestAutoOpenTrackerLatestWins(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	calls := []*ToolCall{
		{ID: "old", Name: "get_attempt_detail", Status: ToolComplete, Result: json.RawMessage(`{}`), EndTime: base},
		{ID: "new", Name: "get_quiz_history", Status: ToolComplete, Result: json.RawMessage(`{}`), EndTime: base.Add(time.Second)},
	}

	tr := NewAutoOpenTracker()
	got := tr.Next(calls)
	require.NotNil(t, got)
	assert.Equal(t, "new", got.ID, "recency beats class priority")

	got = tr.Next(calls)
	require.NotNil(t, got)
	assert.Equal(t, "old", got.ID)

	assert.Nil(t, tr.Next(calls), "every call is handled at most once")
}

func TestAutoOpenTrackerTieBreaksOnClass(t *testing.T) {
	end := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	calls := []*ToolCall{
		{ID: "h", Name: "get_quiz_history", Status: ToolComplete, Result: json.RawMessage(`{}`), EndTime: end},
		{ID: "d", Name: "get_attempt_detail", Status: ToolComplete, Result: json.RawMessage(`{}`), EndTime: end},
	}

	tr := NewAutoOpenTracker()
	got := tr.Next(calls)
	require.NotNil(t, got)
	assert.Equal(t, "d", got.ID, "attempt detail wins the tie")
}

func TestAutoOpenTrackerSkipsNonOpenable(t *testing.T) {
	end := time.Now()
	calls := []*ToolCall{
		{ID: "pending", Name: "get_attempt_detail", Status: ToolPending},
		{ID: "failed", Name: "get_writing_data", Status: ToolError, EndTime: end},
		{ID: "empty", Name: "get_quiz_history", Status: ToolComplete, EndTime: end},
	}

	assert.Nil(t, NewAutoOpenTracker().Next(calls))
}
