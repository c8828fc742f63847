package dao

import (
	"encoding/json"
	"errors"
	"time"

	"vstep-prep-backend/model"

	"gorm.io/gorm"
)

func CreateQuizAttempt(attempt *model.QuizAttempt) error {
	return DB.Create(attempt).Error
}

func GetQuizAttempt(email string, attemptID uint) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	if err := DB.Where("user_email = ? AND id = ?", email, attemptID).
		First(&attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attempt, nil
}

func UpdateQuizAnswers(email string, attemptID uint, answers json.RawMessage) error {
	return DB.Model(&model.QuizAttempt{}).
		Where("user_email = ? AND id = ? AND status = ?", email, attemptID, model.AttemptInProgress).
		Update("answers", answers).Error
}

func SubmitQuizAttempt(email string, attemptID uint, scores json.RawMessage, totalScore float64) error {
	now := time.Now()
	return DB.Model(&model.QuizAttempt{}).
		Where("user_email = ? AND id = ? AND status = ?", email, attemptID, model.AttemptInProgress).
		Updates(map[string]any{
			"status":       model.AttemptSubmitted,
			"scores":       scores,
			"total_score":  totalScore,
			"submitted_at": &now,
		}).Error
}

// GetQuizHistory lists submitted attempts newest first, paginated.
func GetQuizHistory(email string, quizType model.QuizType, page, pageSize int) ([]model.QuizAttempt, int64, error) {
	query := DB.Model(&model.QuizAttempt{}).
		Where("user_email = ? AND status = ?", email, model.AttemptSubmitted)
	if quizType != "" {
		query = query.Where("quiz_type = ?", quizType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var attempts []model.QuizAttempt
	if err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&attempts).Error; err != nil {
		return nil, 0, err
	}
	return attempts, total, nil
}

// GetLatestAttemptByType returns the newest submitted attempt of a skill,
// or nil when the learner has none.
func GetLatestAttemptByType(email string, quizType model.QuizType) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	if err := DB.Where("user_email = ? AND quiz_type = ? AND status = ?",
		email, quizType, model.AttemptSubmitted).
		Order("created_at DESC").
		First(&attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attempt, nil
}
