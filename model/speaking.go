package model

import "time"

type RecordingStatus string

const (
	RecordingUploaded         RecordingStatus = "UPLOADED"
	RecordingTranscribed      RecordingStatus = "TRANSCRIBED"
	RecordingTranscribeFailed RecordingStatus = "TRANSCRIBE_FAILED"
)

// SpeakingRecording is one uploaded speaking response awaiting
// transcription and review.
type SpeakingRecording struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_attempt_created" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserEmail string    `gorm:"not null;index" json:"user_email"`
	AttemptID uint      `gorm:"not null;index:idx_attempt_created" json:"attempt_id"`

	// Speaking part the recording answers (1, 2 or 3)
	Part int `gorm:"not null" json:"part"`

	// Full object path on OSS, bucket name excluded
	ObjectName string `gorm:"not null" json:"object_name"`

	DurationSeconds int             `json:"duration_seconds"`
	Status          RecordingStatus `gorm:"not null;default:UPLOADED" json:"status"`
	Transcript      string          `gorm:"type:text" json:"transcript"`
}

func (SpeakingRecording) TableName() string {
	return "speaking_recording"
}
