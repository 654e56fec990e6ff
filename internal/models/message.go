package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MessageTypeText = "text"
	MessageTypeFile = "file"
)

// Message не меняется после создания, кроме ReadBy
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoomID    uuid.UUID `gorm:"type:uuid;not null;index:idx_messages_room_created"`
	SenderID  uuid.UUID `gorm:"type:uuid;not null"`
	Content   string
	Type      string `gorm:"default:'text'"`
	FileURL   string
	FileName  string
	FileSize  int64
	CreatedAt time.Time `gorm:"index:idx_messages_room_created"`

	Sender User          `gorm:"foreignKey:SenderID"`
	ReadBy []MessageRead `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// MessageRead отметка о прочтении сообщения пользователем
type MessageRead struct {
	MessageID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	ReadAt    time.Time
}

func (m *Message) IsReadBy(userID uuid.UUID) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}
