package response

import (
	"encoding/json"
	"time"
)

type AttemptResponse struct {
	ID          uint            `json:"id"`
	QuizCode    string          `json:"quiz_code"`
	QuizType    string          `json:"quiz_type"`
	Status      string          `json:"status"`
	Sections    json.RawMessage `json:"sections,omitempty"`
	Answers     json.RawMessage `json:"answers,omitempty"`
	Scores      json.RawMessage `json:"scores,omitempty"`
	TotalScore  float64         `json:"total_score"`
	CreatedAt   time.Time       `json:"created_at"`
	SubmittedAt *time.Time      `json:"submitted_at,omitempty"`
}

type AttemptSummaryResponse struct {
	ID          uint       `json:"id"`
	QuizCode    string     `json:"quiz_code"`
	QuizType    string     `json:"quiz_type"`
	Status      string     `json:"status"`
	TotalScore  float64    `json:"total_score"`
	CreatedAt   time.Time  `json:"created_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

type AttemptHistoryResponse struct {
	Attempts   []AttemptSummaryResponse `json:"attempts"`
	Pagination Pagination               `json:"pagination"`
}

type ValidateAttemptResponse struct {
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems,omitempty"`
}
