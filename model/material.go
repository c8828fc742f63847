package model

import "time"

type FileType string

const (
	FileTypePDF      FileType = "pdf"
	FileTypeMarkdown FileType = "md"
	FileTypeText     FileType = "txt"
)

type Status string

const (
	// File landed on object storage
	StatusUploaded Status = "UPLOADED"

	// Vectorization finished
	StatusProcessed Status = "PROCESSED"

	// Vectorization failed
	StatusProcessedFailed Status = "PROCESSED_FAILED"
)

// StudyMaterial is the metadata of one uploaded prep document (tip
// sheets, sample essays, band descriptors) searchable by the assistant.
// Composite index (user_email, created_at); full-text index on file_name.
type StudyMaterial struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"not null;index:idx_email_created" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
	UserEmail string    `gorm:"not null;index:idx_email_created" json:"user_email"`
	FileName  string    `gorm:"not null;index:idx_fulltext_file_name,class:FULLTEXT,option:WITH PARSER ngram" json:"file_name"`
	FileType  FileType  `gorm:"not null" json:"file_type"`
	FileSize  int64     `gorm:"not null" json:"file_size"`

	// Full object path on OSS, bucket name excluded
	ObjectName string `gorm:"not null" json:"object_name"`

	Status Status `gorm:"not null;default:UPLOADED" json:"status"`
}

func (StudyMaterial) TableName() string {
	return "study_material"
}
