package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/chatflow/internal/database"
	"github.com/thereayou/chatflow/internal/handlers/dto"
	"github.com/thereayou/chatflow/internal/models"
)

func TestSendMessageOverHTTP(t *testing.T) {
	me := uuid.New()
	room := models.NewGroupRoom("r", me, nil)
	env := newTestEnv(me)
	env.store.On("GetRoom", mock.Anything, room.ID).Return(room, nil)
	env.store.On("CreateMessage", mock.Anything, mock.AnythingOfType("*models.Message")).Return(nil)
	env.store.On("GetUser", mock.Anything, me).Return(&models.User{ID: me, Username: "alice"}, nil)
	env.store.On("TouchRoom", mock.Anything, room.ID, mock.Anything).Return(nil)

	w := env.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID.String()+"/messages", dto.SendMessageRequest{Content: "  hello  "})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp dto.MessageResponse
	decode(t, w, &resp)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, me, resp.SenderID)
	require.NotNil(t, resp.Sender)
	assert.Equal(t, "alice", resp.Sender.Username)
}

func TestSendMessageByOutsiderIsForbidden(t *testing.T) {
	me := uuid.New()
	room := models.NewGroupRoom("r", uuid.New(), nil)
	env := newTestEnv(me)
	env.store.On("GetRoom", mock.Anything, room.ID).Return(room, nil)

	w := env.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID.String()+"/messages", dto.SendMessageRequest{Content: "hi"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	env.store.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestSendMessageStoreFailure(t *testing.T) {
	me := uuid.New()
	room := models.NewGroupRoom("r", me, nil)
	env := newTestEnv(me)
	env.store.On("GetRoom", mock.Anything, room.ID).Return(room, nil)
	env.store.On("CreateMessage", mock.Anything, mock.Anything).Return(errors.New("db down"))

	w := env.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID.String()+"/messages", dto.SendMessageRequest{Content: "hi"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSendMessageWhenRoomLookupFails(t *testing.T) {
	me := uuid.New()
	roomID := uuid.New()
	env := newTestEnv(me)
	env.store.On("GetRoom", mock.Anything, roomID).Return(nil, errors.New("timeout"))

	w := env.do(t, http.MethodPost, "/api/v1/rooms/"+roomID.String()+"/messages", dto.SendMessageRequest{Content: "hi"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetRoomMessages(t *testing.T) {
	me := uuid.New()
	room := models.NewGroupRoom("r", me, nil)
	env := newTestEnv(me)
	env.store.On("GetRoom", mock.Anything, room.ID).Return(room, nil)
	messages := []models.Message{
		{ID: uuid.New(), RoomID: room.ID, SenderID: me, Content: "one", Type: models.MessageTypeText},
		{ID: uuid.New(), RoomID: room.ID, SenderID: me, Content: "two", Type: models.MessageTypeText},
	}
	env.store.On("GetRoomMessages", mock.Anything, room.ID, 2, (*uuid.UUID)(nil)).Return(messages, nil)

	w := env.do(t, http.MethodGet, "/api/v1/rooms/"+room.ID.String()+"/messages?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Messages []dto.MessageResponse `json:"messages"`
		HasMore  bool                  `json:"has_more"`
	}
	decode(t, w, &resp)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "one", resp.Messages[0].Content)
	assert.True(t, resp.HasMore)
}

func TestMarkRead(t *testing.T) {
	me := uuid.New()
	room := models.NewGroupRoom("r", me, nil)
	message := &models.Message{ID: uuid.New(), RoomID: room.ID, SenderID: me}
	env := newTestEnv(me)
	env.store.On("GetMessage", mock.Anything, message.ID).Return(message, nil)
	env.store.On("GetRoom", mock.Anything, room.ID).Return(room, nil)
	env.store.On("MarkRead", mock.Anything, message.ID, me).Return(nil)

	w := env.do(t, http.MethodPost, "/api/v1/messages/"+message.ID.String()+"/read", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	missing := uuid.New()
	env.store.On("GetMessage", mock.Anything, missing).Return(nil, database.ErrMessageNotFound)
	w = env.do(t, http.MethodPost, "/api/v1/messages/"+missing.String()+"/read", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
