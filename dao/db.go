package dao

import (
	"fmt"
	"log/slog"

	"vstep-prep-backend/config"
	"vstep-prep-backend/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init() error {
	db, err := gorm.Open(mysql.Open(config.Cfg.DB.DSN), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.QuizAttempt{},
		&model.Session{},
		&model.Message{},
		&model.StudyMaterial{},
		&model.SpeakingRecording{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	DB = db
	slog.Info("database initialized")
	return nil
}
