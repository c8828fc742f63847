package dao

import (
	"vstep-prep-backend/model"
)

func CreateSpeakingRecording(recording *model.SpeakingRecording) error {
	return DB.Create(recording).Error
}

func GetRecordingsByAttempt(email string, attemptID uint) ([]model.SpeakingRecording, error) {
	var recordings []model.SpeakingRecording
	if err := DB.Where("user_email = ? AND attempt_id = ?", email, attemptID).
		Order("part ASC, created_at ASC").
		Find(&recordings).Error; err != nil {
		return nil, err
	}
	return recordings, nil
}

func UpdateRecordingTranscript(id uint, status model.RecordingStatus, transcript string) error {
	return DB.Model(&model.SpeakingRecording{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"transcript": transcript,
		}).Error
}
