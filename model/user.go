package model

import "time"

type User struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Email        string    `gorm:"not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Name         string    `json:"name"`
	Avatar       string    `json:"avatar"`

	// Target VSTEP level, e.g. "B1", "B2", "C1"
	TargetLevel string `json:"target_level"`
}

func (User) TableName() string {
	return "user"
}
