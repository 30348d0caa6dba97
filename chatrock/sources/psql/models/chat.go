package models

import (
	"chatrock/chatrock/utils/types"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Chat struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	User      User      `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	Title     string    `json:"title" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;index"`
}

func (Chat) TableName() string {
	return "chats"
}

// Message rows are ordered per chat by (created_at, position).
type Message struct {
	ID        uuid.UUID                               `json:"id" gorm:"type:uuid;primaryKey"`
	ChatID    uuid.UUID                               `json:"chat_id" gorm:"type:uuid;not null;index:idx_messages_chat_order,priority:1"`
	Chat      Chat                                    `json:"-" gorm:"foreignKey:ChatID;references:ID;constraint:OnDelete:CASCADE"`
	Role      string                                  `json:"role" gorm:"type:varchar(32);not null"`
	Content   datatypes.JSONSlice[types.ContentBlock] `json:"content" gorm:"not null"`
	CreatedAt time.Time                               `json:"created_at" gorm:"not null;index:idx_messages_chat_order,priority:2"`
	Position  int64                                   `json:"position" gorm:"not null;default:0;index:idx_messages_chat_order,priority:3"`
}

func (Message) TableName() string {
	return "messages"
}
