package model

import (
	"encoding/json"
	"time"
)

type QuizType string

const (
	QuizTypeListening QuizType = "LISTENING"
	QuizTypeReading   QuizType = "READING"
	QuizTypeWriting   QuizType = "WRITING"
	QuizTypeSpeaking  QuizType = "SPEAKING"
	QuizTypeFull      QuizType = "FULL"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "IN_PROGRESS"
	AttemptSubmitted  AttemptStatus = "SUBMITTED"
)

// QuizAttempt is one exam run by a learner.
// Composite index (user_email, created_at) backs the history listing.
type QuizAttempt struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_email_created" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserEmail string    `gorm:"not null;index:idx_email_created" json:"user_email"`

	// Exam paper code the learner picked, e.g. "123"
	QuizCode string        `gorm:"not null" json:"quiz_code"`
	QuizType QuizType      `gorm:"not null" json:"quiz_type"`
	Status   AttemptStatus `gorm:"not null;default:IN_PROGRESS" json:"status"`

	// Section/question structure as served to the learner
	Sections json.RawMessage `gorm:"type:json" json:"sections"`

	// Learner answers keyed by question id
	Answers json.RawMessage `gorm:"type:json" json:"answers"`

	// Per-skill scores, filled on submit
	Scores     json.RawMessage `gorm:"type:json" json:"scores"`
	TotalScore float64         `json:"total_score"`

	// Generated feedback on the writing answers, filled asynchronously
	// after submission
	Feedback string `gorm:"type:text" json:"feedback"`

	SubmittedAt *time.Time `json:"submitted_at"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempt"
}
