package assistant

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Synthesized context messages live in a reserved id namespace so a
// re-fired tool within the same run stays a no-op.
const contextIDPrefix = "ctx-"

const (
	historyContextPrefix = "[Lịch sử làm bài]"
	attemptContextPrefix = "[Chi tiết bài làm]"

	noHistoryData = "Không có dữ liệu lịch sử làm bài."
	noAttemptData = "Không có dữ liệu chi tiết bài làm."
)

// synthesizeContext derives a hidden textual summary from a completed
// history- or attempt-detail-class tool result so later model turns can
// reference it without re-fetching. At most one per class per run.
func (r *Reducer) synthesizeContext(call *ToolCall) {
	var text string
	switch call.Class() {
	case ClassQuizHistory:
		text = BuildHistoryContext(call.Result)
	case ClassAttemptDetail:
		text = BuildAttemptDetailContext(call.Result)
	default:
		return
	}

	id := contextIDPrefix + string(call.Class()) + "-" + r.runID
	if r.hasContextMessage(call.Class(), id) {
		return
	}

	r.state.Append(&ChatMessage{
		ID:        id,
		Role:      RoleAssistant,
		Content:   text,
		Type:      MessageText,
		Timestamp: time.Now(),
		Hidden:    true,
	})
}

func (r *Reducer) hasContextMessage(class ToolClass, id string) bool {
	prefix := historyContextPrefix
	if class == ClassAttemptDetail {
		prefix = attemptContextPrefix
	}

	for _, m := range r.state.Messages {
		if !m.Hidden {
			continue
		}
		if m.ID == id {
			return true
		}
		if strings.HasPrefix(m.ID, contextIDPrefix+string(class)+"-"+r.runID) &&
			strings.HasPrefix(m.Content, prefix) {
			return true
		}
	}
	return false
}

type historyAttempt struct {
	AttemptID   int64   `json:"attemptId"`
	QuizType    string  `json:"quizType"`
	TotalScore  float64 `json:"totalScore"`
	SubmittedAt string  `json:"submittedAt"`
}

type historyData struct {
	Total    int
	Attempts []historyAttempt
}

// detectHistoryEnvelope recognizes the two historical response shapes of
// the history tool: the paginated {data, pagination} envelope and the
// legacy {attempts, totalCount} envelope. Anything else is unrecognized.
func detectHistoryEnvelope(raw json.RawMessage) (historyData, bool) {
	var paged struct {
		Data       []historyAttempt `json:"data"`
		Pagination *struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(raw, &paged); err == nil && paged.Data != nil {
		total := len(paged.Data)
		if paged.Pagination != nil {
			total = paged.Pagination.Total
		}
		return historyData{Total: total, Attempts: paged.Data}, true
	}

	var legacy struct {
		Attempts   []historyAttempt `json:"attempts"`
		TotalCount *int             `json:"totalCount"`
	}
	if err := json.Unmarshal(raw, &legacy); err == nil && legacy.Attempts != nil {
		total := len(legacy.Attempts)
		if legacy.TotalCount != nil {
			total = *legacy.TotalCount
		}
		return historyData{Total: total, Attempts: legacy.Attempts}, true
	}

	return historyData{}, false
}

// BuildHistoryContext renders a quiz-history tool result as plain text:
// total count plus one type/score/date line per attempt.
func BuildHistoryContext(raw json.RawMessage) string {
	data, ok := detectHistoryEnvelope(raw)
	if !ok {
		return historyContextPrefix + " " + noHistoryData
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s Học viên có %d bài thi đã làm.", historyContextPrefix, data.Total)
	for _, a := range data.Attempts {
		fmt.Fprintf(&b, "\n- Bài thi #%d", a.AttemptID)
		if a.QuizType != "" {
			fmt.Fprintf(&b, " (%s)", a.QuizType)
		}
		fmt.Fprintf(&b, ": %.1f điểm", a.TotalScore)
		if a.SubmittedAt != "" {
			fmt.Fprintf(&b, ", nộp lúc %s", a.SubmittedAt)
		}
	}
	return b.String()
}

type attemptSection struct {
	Skill         string `json:"skill"`
	Prompt        string `json:"prompt"`
	Answer        string `json:"answer"`
	QuestionCount int    `json:"questionCount"`
	AnswerCount   int    `json:"answerCount"`
}

type attemptDetail struct {
	AttemptID     int64              `json:"attemptId"`
	QuizType      string             `json:"quizType"`
	Scores        map[string]float64 `json:"scores"`
	TotalScore    float64            `json:"totalScore"`
	SubmittedAt   string             `json:"submittedAt"`
	QuestionCount int                `json:"questionCount"`
	AnswerCount   int                `json:"answerCount"`
	Sections      []attemptSection   `json:"sections"`
}

func detectAttemptEnvelope(raw json.RawMessage) (attemptDetail, bool) {
	// Newer responses wrap the detail in a data envelope.
	var wrapped struct {
		Data *attemptDetail `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Data != nil {
		return *wrapped.Data, true
	}

	var bare attemptDetail
	if err := json.Unmarshal(raw, &bare); err == nil && (bare.AttemptID != 0 || len(bare.Sections) > 0) {
		return bare, true
	}

	return attemptDetail{}, false
}

// BuildAttemptDetailContext renders an attempt-detail tool result:
// per-skill scores, submission time, question/answer counts, and for
// writing sections the prompt paired with the submitted answer.
func BuildAttemptDetailContext(raw json.RawMessage) string {
	detail, ok := detectAttemptEnvelope(raw)
	if !ok {
		return attemptContextPrefix + " " + noAttemptData
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s Bài thi #%d", attemptContextPrefix, detail.AttemptID)
	if detail.QuizType != "" {
		fmt.Fprintf(&b, " (%s)", detail.QuizType)
	}
	fmt.Fprintf(&b, ", tổng điểm %.1f.", detail.TotalScore)
	if detail.SubmittedAt != "" {
		fmt.Fprintf(&b, "\nNộp lúc: %s", detail.SubmittedAt)
	}
	for _, skill := range sortedSkills(detail.Scores) {
		fmt.Fprintf(&b, "\nĐiểm %s: %.1f", skill, detail.Scores[skill])
	}
	if detail.QuestionCount > 0 || detail.AnswerCount > 0 {
		fmt.Fprintf(&b, "\nSố câu hỏi: %d, số câu đã trả lời: %d", detail.QuestionCount, detail.AnswerCount)
	}
	for _, sec := range detail.Sections {
		if !strings.EqualFold(sec.Skill, string(TopicWriting)) {
			continue
		}
		fmt.Fprintf(&b, "\nĐề bài: %s\nBài làm: %s", sec.Prompt, sec.Answer)
	}
	return b.String()
}

// sortedSkills orders skills canonically so the context text stays
// deterministic.
func sortedSkills(scores map[string]float64) []string {
	order := []string{"listening", "reading", "writing", "speaking"}

	var skills []string
	seen := make(map[string]bool, len(scores))
	for _, skill := range order {
		if _, ok := scores[skill]; ok {
			skills = append(skills, skill)
			seen[skill] = true
		}
	}

	var extra []string
	for skill := range scores {
		if !seen[skill] {
			extra = append(extra, skill)
		}
	}
	sort.Strings(extra)
	return append(skills, extra...)
}
