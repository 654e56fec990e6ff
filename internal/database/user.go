package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/chatflow/internal/models"
)

func (d *Database) SaveUser(ctx context.Context, user *models.User) error {
	return d.db.WithContext(ctx).Create(user).Error
}

// UpdateUser сохраняет только поля профиля. Статус онлайн пишет SetPresence.
func (d *Database) UpdateUser(ctx context.Context, user *models.User) error {
	return d.db.WithContext(ctx).Model(user).Select("username", "avatar_url").Updates(user).Error
}

func (d *Database) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := models.User{}
	if err := d.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return &user, nil
}

func (d *Database) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := models.User{}
	if err := d.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return &user, nil
}

func (d *Database) SearchUsersByUsername(ctx context.Context, query string, limit int) ([]models.User, error) {
	var users []models.User
	err := d.db.WithContext(ctx).
		Where("LOWER(username) LIKE LOWER(?)", "%"+query+"%").
		Order("username").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// ListUsers все пользователи по алфавиту
func (d *Database) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	var users []models.User
	err := d.db.WithContext(ctx).
		Order("username").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	return users, err
}

// SetPresence сохраняет статус онлайн и время последнего визита
func (d *Database) SetPresence(ctx context.Context, userID uuid.UUID, online bool, lastSeen time.Time) error {
	return d.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{"is_online": online, "last_seen_at": lastSeen}).Error
}
