package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/chatflow/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (d *Database) CreateMessage(ctx context.Context, message *models.Message) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	return d.db.WithContext(ctx).Omit("Sender", "ReadBy").Create(message).Error
}

func (d *Database) GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var message models.Message
	err := d.db.WithContext(ctx).Preload("Sender").Preload("ReadBy").First(&message, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, ErrMessageNotFound)
	}
	return &message, nil
}

// GetRoomMessages получает сообщения комнаты с пагинацией
func (d *Database) GetRoomMessages(ctx context.Context, roomID uuid.UUID, limit int, beforeID *uuid.UUID) ([]models.Message, error) {
	var messages []models.Message

	db := d.db.WithContext(ctx)
	query := db.Where("room_id = ?", roomID)

	if beforeID != nil {
		var beforeMsg models.Message
		if err := db.First(&beforeMsg, "id = ?", *beforeID).Error; err == nil {
			query = query.Where("created_at < ?", beforeMsg.CreatedAt)
		}
	}

	err := query.
		Order("created_at DESC").
		Limit(limit).
		Preload("Sender").
		Preload("ReadBy").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (d *Database) DeleteMessagesForRoom(ctx context.Context, roomID uuid.UUID) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteMessagesForRoom(tx, roomID)
	})
}

func deleteMessagesForRoom(tx *gorm.DB, roomID uuid.UUID) error {
	ids := tx.Model(&models.Message{}).Select("id").Where("room_id = ?", roomID)
	if err := tx.Where("message_id IN (?)", ids).Delete(&models.MessageRead{}).Error; err != nil {
		return err
	}
	return tx.Where("room_id = ?", roomID).Delete(&models.Message{}).Error
}

// MarkRead отмечает сообщение прочитанным. Повторный вызов ничего не меняет.
func (d *Database) MarkRead(ctx context.Context, messageID, userID uuid.UUID) error {
	read := models.MessageRead{MessageID: messageID, UserID: userID, ReadAt: time.Now()}
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&read).Error
}
