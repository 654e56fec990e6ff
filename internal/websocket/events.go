package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/chatflow/internal/handlers/dto"
)

type MessageType string

const (
	TypePing MessageType = "ping"
	TypePong MessageType = "pong"

	// Входящие
	TypeJoinRooms    MessageType = "join_rooms"
	TypeJoinRoom     MessageType = "join_room"
	TypeLeaveRoom    MessageType = "leave_room"
	TypeSendMessage  MessageType = "send_message"
	TypeFileUploaded MessageType = "file_uploaded"
	TypeTypingStart  MessageType = "typing_start"
	TypeTypingStop   MessageType = "typing_stop"

	// Исходящие
	TypeRoomJoined       MessageType = "room_joined"
	TypeRoomUsers        MessageType = "room_users"
	TypeUserJoinedRoom   MessageType = "user_joined_room"
	TypeUserLeftRoom     MessageType = "user_left_room"
	TypeNewMessage       MessageType = "new_message"
	TypeMessageRead      MessageType = "message_read"
	TypeTypingUpdate     MessageType = "typing_update"
	TypeUserStatusChange MessageType = "user_status_change"
	TypeRoomDeleted      MessageType = "room_deleted"
	TypeError            MessageType = "error"
)

// Message конверт для всех сообщений
type Message struct {
	Type      MessageType     `json:"type"`
	RoomID    *uuid.UUID      `json:"room_id,omitempty"`
	UserID    uuid.UUID       `json:"user_id"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type TypingPayload struct {
	RoomID   uuid.UUID `json:"room_id"`
	UserID   uuid.UUID `json:"user_id"`
	IsTyping bool      `json:"is_typing"`
}

type StatusPayload struct {
	UserID   uuid.UUID `json:"user_id"`
	IsOnline bool      `json:"is_online"`
	LastSeen time.Time `json:"last_seen"`
}

type ErrorPayload struct {
	Error  string     `json:"error"`
	Code   string     `json:"code,omitempty"`
	RoomID *uuid.UUID `json:"room_id,omitempty"`
}

type ReadPayload struct {
	MessageID uuid.UUID `json:"message_id"`
	UserID    uuid.UUID `json:"user_id"`
}

// SendPayload данные send_message
type SendPayload struct {
	Content string `json:"content"`
}

// FilePayload данные file_uploaded
type FilePayload struct {
	MessageID *uuid.UUID `json:"message_id,omitempty"`
	FileURL   string     `json:"file_url"`
	FileName  string     `json:"file_name"`
	FileSize  int64      `json:"file_size"`
	MimeType  string     `json:"mime_type,omitempty"`
}

// RoomUsersPayload пользователи, подписанные на комнату
type RoomUsersPayload struct {
	Users []uuid.UUID `json:"users"`
}

// MemberPayload данные user_joined_room / user_left_room
type MemberPayload struct {
	RoomID uuid.UUID `json:"room_id"`
	UserID uuid.UUID `json:"user_id"`
}

type NewMessagePayload struct {
	Message dto.MessageResponse `json:"message"`
}

func encode(msgType MessageType, roomID *uuid.UUID, userID uuid.UUID, data interface{}) ([]byte, error) {
	msg := Message{
		Type:      msgType,
		RoomID:    roomID,
		UserID:    userID,
		Timestamp: time.Now(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		msg.Data = raw
	}
	return json.Marshal(msg)
}

func roomRef(id uuid.UUID) *uuid.UUID {
	return &id
}

func errorFrame(message, code string, roomID *uuid.UUID) []byte {
	data, _ := encode(TypeError, roomID, uuid.Nil, ErrorPayload{Error: message, Code: code, RoomID: roomID})
	return data
}
