package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Email        string    `json:"email" gorm:"type:varchar(64);not null;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"column:password;type:varchar(64);not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null;autoCreateTime"`
}

func (User) TableName() string {
	return "users"
}
