package agent

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vstep-prep-backend/model"
)

func TestAttemptToDetail(t *testing.T) {
	submitted := time.Date(2025, 3, 2, 9, 30, 0, 0, time.UTC)
	attempt := &model.QuizAttempt{
		ID:         7,
		QuizType:   model.QuizTypeFull,
		TotalScore: 6.5,
		Scores:     json.RawMessage(`{"reading":6.5,"writing":6.0}`),
		Sections: json.RawMessage(`[
			{"id": "sec-r", "skill": "reading", "questions": [{"id": "q1"}, {"id": "q2"}]},
			{"id": "sec-w", "skill": "writing", "prompt": "Describe a chart", "questions": [{"id": "q3"}]}
		]`),
		Answers:     json.RawMessage(`{"q1": "B", "q3": "The chart shows..."}`),
		SubmittedAt: &submitted,
	}

	detail := attemptToDetail(attempt)

	assert.Equal(t, uint(7), detail["attemptId"])
	assert.Equal(t, "FULL", detail["quizType"])
	assert.Equal(t, 6.5, detail["totalScore"])
	assert.Equal(t, "2025-03-02T09:30:00Z", detail["submittedAt"])
	assert.Equal(t, map[string]float64{"reading": 6.5, "writing": 6.0}, detail["scores"])
	assert.Equal(t, 3, detail["questionCount"])
	assert.Equal(t, 2, detail["answerCount"])

	sections, ok := detail["sections"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, sections, 2)
	assert.Equal(t, "reading", sections[0]["skill"])
	assert.NotContains(t, sections[0], "answer", "only answered sections carry an answer")
	assert.Equal(t, "Describe a chart", sections[1]["prompt"])
	assert.Equal(t, "The chart shows...", sections[1]["answer"])
}

func TestAttemptToDetailUnsubmitted(t *testing.T) {
	detail := attemptToDetail(&model.QuizAttempt{ID: 1, QuizType: model.QuizTypeReading})

	assert.Equal(t, "", detail["submittedAt"])
	assert.NotContains(t, detail, "scores")
	assert.NotContains(t, detail, "sections")
}

func TestFormatSubmittedAt(t *testing.T) {
	assert.Equal(t, "", formatSubmittedAt(nil))

	ts := time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-01-15T08:00:00Z", formatSubmittedAt(&ts))
}

func TestParseToolInput(t *testing.T) {
	assert.Equal(t, map[string]any{"page": float64(2), "quizType": "READING"},
		parseToolInput(`{"page": 2, "quizType": "READING"}`))

	// Non-JSON input is wrapped instead of dropped.
	assert.Equal(t, map[string]any{"input": "attempt 7"}, parseToolInput("attempt 7"))
}

func TestToRawResult(t *testing.T) {
	assert.Equal(t, json.RawMessage(`{"a":1}`), toRawResult(` {"a":1} `))
	assert.Equal(t, json.RawMessage(`[1,2]`), toRawResult("[1,2]"))
	assert.Equal(t, json.RawMessage(`"plain text"`), toRawResult("plain text"))
	assert.Equal(t, json.RawMessage(`""`), toRawResult(""))
}
