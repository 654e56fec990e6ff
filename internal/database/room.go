package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/chatflow/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (d *Database) CreateRoom(ctx context.Context, room *models.Room) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createRoom(tx, room)
	})
}

func createRoom(tx *gorm.DB, room *models.Room) error {
	if err := tx.Omit("Members").Create(room).Error; err != nil {
		return err
	}
	return insertMembers(tx, room)
}

func insertMembers(tx *gorm.DB, room *models.Room) error {
	if len(room.Members) == 0 {
		return nil
	}
	for i := range room.Members {
		room.Members[i].RoomID = room.ID
		if room.Members[i].JoinedAt.IsZero() {
			room.Members[i].JoinedAt = time.Now()
		}
	}
	return tx.Omit("User").Create(&room.Members).Error
}

func (d *Database) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	var room models.Room
	if err := d.db.WithContext(ctx).Preload("Members").First(&room, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ErrRoomNotFound)
	}
	return &room, nil
}

// ListRoomsForUser комнаты пользователя, сначала самые активные
func (d *Database) ListRoomsForUser(ctx context.Context, userID uuid.UUID) ([]models.Room, error) {
	var rooms []models.Room
	err := d.db.WithContext(ctx).
		Preload("Members").
		Where("id IN (?)", d.db.Model(&models.RoomMember{}).Select("room_id").Where("user_id = ?", userID)).
		Order("last_activity DESC").
		Find(&rooms).Error
	return rooms, err
}

// SaveRoom сохраняет название и время активности. Состав участников
// меняется только построчно через AddMembers, RemoveMember и SetAdmin.
func (d *Database) SaveRoom(ctx context.Context, room *models.Room) error {
	res := d.db.WithContext(ctx).Model(&models.Room{}).Where("id = ?", room.ID).Updates(map[string]interface{}{
		"name":          room.Name,
		"last_activity": room.LastActivity,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// AddMembers добавляет участников. Уже состоящие в комнате пропускаются.
func (d *Database) AddMembers(ctx context.Context, roomID uuid.UUID, members []models.RoomMember) error {
	if len(members) == 0 {
		return nil
	}
	for i := range members {
		members[i].RoomID = roomID
		if members[i].JoinedAt.IsZero() {
			members[i].JoinedAt = time.Now()
		}
	}
	return d.db.WithContext(ctx).
		Omit("User").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&members).Error
}

// RemoveMember удаляет одного участника. Создателя удалить нельзя.
func (d *Database) RemoveMember(ctx context.Context, roomID, userID uuid.UUID) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.Select("id", "created_by").First(&room, "id = ?", roomID).Error; err != nil {
			return notFound(err, ErrRoomNotFound)
		}
		if room.CreatedBy == userID {
			return models.ErrCreatorProtected
		}
		res := tx.Where("room_id = ? AND user_id = ?", roomID, userID).Delete(&models.RoomMember{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrNotParticipant
		}
		return nil
	})
}

// SetAdmin меняет флаг админа одного участника
func (d *Database) SetAdmin(ctx context.Context, roomID, userID uuid.UUID, isAdmin bool) error {
	res := d.db.WithContext(ctx).
		Model(&models.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("is_admin", isAdmin)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrNotParticipant
	}
	return nil
}

func (d *Database) TouchRoom(ctx context.Context, id uuid.UUID, at time.Time) error {
	return d.db.WithContext(ctx).Model(&models.Room{}).Where("id = ?", id).Update("last_activity", at).Error
}

// DeleteRoom удаляет комнату вместе с участниками и сообщениями
func (d *Database) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.First(&room, "id = ?", id).Error; err != nil {
			return notFound(err, ErrRoomNotFound)
		}
		if err := deleteMessagesForRoom(tx, id); err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", id).Delete(&models.RoomMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&room).Error
	})
}

// GetOrCreatePrivateRoom ищет личную комнату пары или создает ее
func (d *Database) GetOrCreatePrivateRoom(ctx context.Context, a, b uuid.UUID) (*models.Room, bool, error) {
	key := models.PrivateRoomKey(a, b)

	if room, err := d.findPrivateRoom(ctx, key); err == nil {
		return room, false, nil
	} else if err != ErrRoomNotFound {
		return nil, false, err
	}

	room := models.NewPrivateRoom(a, b)
	if err := d.CreateRoom(ctx, room); err != nil {
		// Комнату уже создал параллельный запрос
		if existing, findErr := d.findPrivateRoom(ctx, key); findErr == nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	return room, true, nil
}

func (d *Database) findPrivateRoom(ctx context.Context, key string) (*models.Room, error) {
	var room models.Room
	err := d.db.WithContext(ctx).
		Preload("Members").
		Where("is_private = ? AND private_key = ?", true, key).
		First(&room).Error
	if err != nil {
		return nil, notFound(err, ErrRoomNotFound)
	}
	return &room, nil
}
