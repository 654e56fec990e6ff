package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/thereayou/chatflow/internal/models"
)

// StoreMock реализует services.Store
type StoreMock struct {
	mock.Mock
}

func (m *StoreMock) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	args := m.Called(ctx, id)
	var room *models.Room
	if val := args.Get(0); val != nil {
		room = val.(*models.Room)
	}
	return room, args.Error(1)
}

func (m *StoreMock) ListRoomsForUser(ctx context.Context, userID uuid.UUID) ([]models.Room, error) {
	args := m.Called(ctx, userID)
	var rooms []models.Room
	if val := args.Get(0); val != nil {
		rooms = val.([]models.Room)
	}
	return rooms, args.Error(1)
}

func (m *StoreMock) CreateRoom(ctx context.Context, room *models.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *StoreMock) SaveRoom(ctx context.Context, room *models.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *StoreMock) AddMembers(ctx context.Context, roomID uuid.UUID, members []models.RoomMember) error {
	args := m.Called(ctx, roomID, members)
	return args.Error(0)
}

func (m *StoreMock) RemoveMember(ctx context.Context, roomID, userID uuid.UUID) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

func (m *StoreMock) SetAdmin(ctx context.Context, roomID, userID uuid.UUID, isAdmin bool) error {
	args := m.Called(ctx, roomID, userID, isAdmin)
	return args.Error(0)
}

func (m *StoreMock) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *StoreMock) GetOrCreatePrivateRoom(ctx context.Context, a, b uuid.UUID) (*models.Room, bool, error) {
	args := m.Called(ctx, a, b)
	var room *models.Room
	if val := args.Get(0); val != nil {
		room = val.(*models.Room)
	}
	return room, args.Bool(1), args.Error(2)
}

func (m *StoreMock) TouchRoom(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *StoreMock) CreateMessage(ctx context.Context, message *models.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *StoreMock) GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	args := m.Called(ctx, id)
	var message *models.Message
	if val := args.Get(0); val != nil {
		message = val.(*models.Message)
	}
	return message, args.Error(1)
}

func (m *StoreMock) GetRoomMessages(ctx context.Context, roomID uuid.UUID, limit int, beforeID *uuid.UUID) ([]models.Message, error) {
	args := m.Called(ctx, roomID, limit, beforeID)
	var messages []models.Message
	if val := args.Get(0); val != nil {
		messages = val.([]models.Message)
	}
	return messages, args.Error(1)
}

func (m *StoreMock) DeleteMessagesForRoom(ctx context.Context, roomID uuid.UUID) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *StoreMock) MarkRead(ctx context.Context, messageID, userID uuid.UUID) error {
	args := m.Called(ctx, messageID, userID)
	return args.Error(0)
}

func (m *StoreMock) SaveUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *StoreMock) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	var user *models.User
	if val := args.Get(0); val != nil {
		user = val.(*models.User)
	}
	return user, args.Error(1)
}

func (m *StoreMock) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	var user *models.User
	if val := args.Get(0); val != nil {
		user = val.(*models.User)
	}
	return user, args.Error(1)
}

func (m *StoreMock) UpdateUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *StoreMock) SearchUsersByUsername(ctx context.Context, query string, limit int) ([]models.User, error) {
	args := m.Called(ctx, query, limit)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *StoreMock) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	args := m.Called(ctx, limit, offset)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *StoreMock) SetPresence(ctx context.Context, userID uuid.UUID, online bool, lastSeen time.Time) error {
	args := m.Called(ctx, userID, online, lastSeen)
	return args.Error(0)
}

type VerifierMock struct {
	mock.Mock
}

func (m *VerifierMock) VerifyCredential(ctx context.Context, token string) (uuid.UUID, error) {
	args := m.Called(ctx, token)
	var id uuid.UUID
	if val := args.Get(0); val != nil {
		id = val.(uuid.UUID)
	}
	return id, args.Error(1)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
