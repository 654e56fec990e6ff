package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/chatflow/internal/models"
)

// RoomStore хранилище комнат. GetRoom возвращает database.ErrRoomNotFound,
// если комнаты нет.
type RoomStore interface {
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	ListRoomsForUser(ctx context.Context, userID uuid.UUID) ([]models.Room, error)
	CreateRoom(ctx context.Context, room *models.Room) error
	SaveRoom(ctx context.Context, room *models.Room) error
	AddMembers(ctx context.Context, roomID uuid.UUID, members []models.RoomMember) error
	RemoveMember(ctx context.Context, roomID, userID uuid.UUID) error
	SetAdmin(ctx context.Context, roomID, userID uuid.UUID, isAdmin bool) error
	DeleteRoom(ctx context.Context, id uuid.UUID) error
	GetOrCreatePrivateRoom(ctx context.Context, a, b uuid.UUID) (*models.Room, bool, error)
	TouchRoom(ctx context.Context, id uuid.UUID, at time.Time) error
}

type MessageStore interface {
	CreateMessage(ctx context.Context, message *models.Message) error
	GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error)
	GetRoomMessages(ctx context.Context, roomID uuid.UUID, limit int, beforeID *uuid.UUID) ([]models.Message, error)
	DeleteMessagesForRoom(ctx context.Context, roomID uuid.UUID) error
	MarkRead(ctx context.Context, messageID, userID uuid.UUID) error
}

type UserStore interface {
	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	SearchUsersByUsername(ctx context.Context, query string, limit int) ([]models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, error)
}

type PresenceStore interface {
	SetPresence(ctx context.Context, userID uuid.UUID, online bool, lastSeen time.Time) error
}

// Store все, что серверу нужно от базы
type Store interface {
	RoomStore
	MessageStore
	UserStore
	PresenceStore
}
