package request

import "encoding/json"

type CreateAttemptRequest struct {
	QuizCode string `json:"quiz_code" binding:"required"`
	QuizType string `json:"quiz_type" binding:"required"`

	// Section/question structure served by the exam bank
	Sections json.RawMessage `json:"sections"`
}

type UpdateAnswersRequest struct {
	Answers json.RawMessage `json:"answers" binding:"required"`
}

type SubmitAttemptRequest struct {
	Answers json.RawMessage `json:"answers"`

	// Per-skill scores computed by the exam engine
	Scores     json.RawMessage `json:"scores"`
	TotalScore float64         `json:"total_score"`
}
