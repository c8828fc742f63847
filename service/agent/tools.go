package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"vstep-prep-backend/dao"
	"vstep-prep-backend/model"

	"github.com/tmc/langchaingo/tools"
	"github.com/tmc/langchaingo/vectorstores"
)

const (
	defaultHistoryPageSize = 10
	maxSearchResults       = 4
)

// builtinTools are the exam-data tools every agent run carries. The
// vector store is nil when milvus is not configured; the search tool is
// then left out.
func builtinTools(email string, store vectorstores.VectorStore) []tools.Tool {
	ts := []tools.Tool{
		&quizHistoryTool{email: email},
		&attemptDetailTool{email: email},
		&writingDataTool{email: email},
		&speakingDataTool{email: email},
	}
	if store != nil {
		ts = append(ts, &materialSearchTool{store: store})
	}
	return ts
}

type historyToolInput struct {
	QuizType string `json:"quizType"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

type historyToolAttempt struct {
	AttemptID   uint    `json:"attemptId"`
	QuizType    string  `json:"quizType"`
	TotalScore  float64 `json:"totalScore"`
	SubmittedAt string  `json:"submittedAt"`
}

type quizHistoryTool struct {
	email string
}

var _ tools.Tool = &quizHistoryTool{}

func (t *quizHistoryTool) Name() string {
	return "get_quiz_history"
}

func (t *quizHistoryTool) Description() string {
	return `Lấy lịch sử các bài thi đã nộp của học viên, mới nhất trước.
Input is a JSON object: {"quizType": "LISTENING|READING|WRITING|SPEAKING|FULL", "page": 1, "pageSize": 10}. All fields optional.`
}

func (t *quizHistoryTool) Call(ctx context.Context, input string) (string, error) {
	var in historyToolInput
	_ = json.Unmarshal([]byte(input), &in)
	if in.Page < 1 {
		in.Page = 1
	}
	if in.PageSize < 1 {
		in.PageSize = defaultHistoryPageSize
	}

	attempts, total, err := dao.GetQuizHistory(t.email, model.QuizType(in.QuizType), in.Page, in.PageSize)
	if err != nil {
		return "", fmt.Errorf("failed to load quiz history: %w", err)
	}

	data := make([]historyToolAttempt, 0, len(attempts))
	for _, a := range attempts {
		data = append(data, historyToolAttempt{
			AttemptID:   a.ID,
			QuizType:    string(a.QuizType),
			TotalScore:  a.TotalScore,
			SubmittedAt: formatSubmittedAt(a.SubmittedAt),
		})
	}

	return marshalToolResult(map[string]any{
		"data": data,
		"pagination": map[string]any{
			"page":     in.Page,
			"pageSize": in.PageSize,
			"total":    total,
		},
	})
}

type attemptDetailTool struct {
	email string
}

var _ tools.Tool = &attemptDetailTool{}

func (t *attemptDetailTool) Name() string {
	return "get_attempt_detail"
}

func (t *attemptDetailTool) Description() string {
	return `Lấy chi tiết một bài làm: điểm từng kỹ năng, số câu đã trả lời, đề bài và bài làm viết.
Input is a JSON object: {"attemptId": 123}.`
}

func (t *attemptDetailTool) Call(ctx context.Context, input string) (string, error) {
	var in struct {
		AttemptID uint `json:"attemptId"`
	}
	if err := json.Unmarshal([]byte(input), &in); err != nil || in.AttemptID == 0 {
		return "", fmt.Errorf("attemptId is required")
	}

	attempt, err := dao.GetQuizAttempt(t.email, in.AttemptID)
	if err != nil {
		return "", fmt.Errorf("failed to load attempt: %w", err)
	}
	if attempt == nil {
		return "", fmt.Errorf("attempt %d not found", in.AttemptID)
	}

	return marshalToolResult(map[string]any{"data": attemptToDetail(attempt)})
}

type writingDataTool struct {
	email string
}

var _ tools.Tool = &writingDataTool{}

func (t *writingDataTool) Name() string {
	return "get_writing_data"
}

func (t *writingDataTool) Description() string {
	return "Lấy bài viết mới nhất đã nộp của học viên kèm đề bài và điểm. Input is ignored."
}

func (t *writingDataTool) Call(ctx context.Context, input string) (string, error) {
	attempt, err := dao.GetLatestAttemptByType(t.email, model.QuizTypeWriting)
	if err != nil {
		return "", fmt.Errorf("failed to load writing attempt: %w", err)
	}
	if attempt == nil {
		return marshalToolResult(map[string]any{"data": nil})
	}
	return marshalToolResult(map[string]any{"data": attemptToDetail(attempt)})
}

type speakingDataTool struct {
	email string
}

var _ tools.Tool = &speakingDataTool{}

func (t *speakingDataTool) Name() string {
	return "get_speaking_data"
}

func (t *speakingDataTool) Description() string {
	return "Lấy bài nói mới nhất của học viên kèm bản ghi âm đã chuyển thành văn bản. Input is ignored."
}

func (t *speakingDataTool) Call(ctx context.Context, input string) (string, error) {
	attempt, err := dao.GetLatestAttemptByType(t.email, model.QuizTypeSpeaking)
	if err != nil {
		return "", fmt.Errorf("failed to load speaking attempt: %w", err)
	}
	if attempt == nil {
		return marshalToolResult(map[string]any{"data": nil})
	}

	recordings, err := dao.GetRecordingsByAttempt(t.email, attempt.ID)
	if err != nil {
		return "", fmt.Errorf("failed to load recordings: %w", err)
	}

	type recording struct {
		Part       int    `json:"part"`
		Status     string `json:"status"`
		Transcript string `json:"transcript,omitempty"`
	}
	recs := make([]recording, 0, len(recordings))
	for _, r := range recordings {
		recs = append(recs, recording{
			Part:       r.Part,
			Status:     string(r.Status),
			Transcript: r.Transcript,
		})
	}

	detail := attemptToDetail(attempt)
	detail["recordings"] = recs
	return marshalToolResult(map[string]any{"data": detail})
}

type materialSearchTool struct {
	store vectorstores.VectorStore
}

var _ tools.Tool = &materialSearchTool{}

func (t *materialSearchTool) Name() string {
	return "search_study_material"
}

func (t *materialSearchTool) Description() string {
	return "Tìm kiếm trong tài liệu ôn thi đã tải lên. Input is the search query as plain text."
}

func (t *materialSearchTool) Call(ctx context.Context, input string) (string, error) {
	docs, err := t.store.SimilaritySearch(ctx, input, maxSearchResults)
	if err != nil {
		return "", fmt.Errorf("failed to search study material: %w", err)
	}

	var b strings.Builder
	for i, doc := range docs {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		b.WriteString(doc.PageContent)
	}
	if b.Len() == 0 {
		return "Không tìm thấy tài liệu phù hợp.", nil
	}
	return b.String(), nil
}

// attemptToDetail flattens a QuizAttempt row into the detail payload the
// context synthesizer understands.
func attemptToDetail(attempt *model.QuizAttempt) map[string]any {
	detail := map[string]any{
		"attemptId":   attempt.ID,
		"quizType":    string(attempt.QuizType),
		"totalScore":  attempt.TotalScore,
		"submittedAt": formatSubmittedAt(attempt.SubmittedAt),
	}

	var scores map[string]float64
	if len(attempt.Scores) > 0 && json.Unmarshal(attempt.Scores, &scores) == nil {
		detail["scores"] = scores
	}

	var sections []map[string]any
	if len(attempt.Sections) > 0 && json.Unmarshal(attempt.Sections, &sections) == nil {
		var answers map[string]string
		if len(attempt.Answers) > 0 {
			_ = json.Unmarshal(attempt.Answers, &answers)
		}

		questionCount, answerCount := 0, 0
		for _, sec := range sections {
			if qs, ok := sec["questions"].([]any); ok {
				questionCount += len(qs)
				for _, q := range qs {
					if qm, ok := q.(map[string]any); ok {
						if id, ok := qm["id"].(string); ok && answers[id] != "" {
							answerCount++
						}
					}
				}
			}
		}
		detail["questionCount"] = questionCount
		detail["answerCount"] = answerCount
		detail["sections"] = buildDetailSections(sections, answers)
	}

	return detail
}

func buildDetailSections(sections []map[string]any, answers map[string]string) []map[string]any {
	out := make([]map[string]any, 0, len(sections))
	for _, sec := range sections {
		skill, _ := sec["skill"].(string)
		prompt, _ := sec["prompt"].(string)

		entry := map[string]any{"skill": skill, "prompt": prompt}
		if id, ok := sec["id"].(string); ok {
			if answer, ok := answers[id]; ok {
				entry["answer"] = answer
			}
		}
		out = append(out, entry)
	}
	return out
}

func formatSubmittedAt(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func marshalToolResult(payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return string(data), nil
}
