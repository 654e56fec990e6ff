package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/chatflow/internal/handlers/dto"
	"github.com/thereayou/chatflow/internal/middleware"
	"github.com/thereayou/chatflow/internal/models"
	"github.com/thereayou/chatflow/internal/services"
	"github.com/thereayou/chatflow/internal/websocket"
)

type RoomHandler struct {
	store  services.Store
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewRoomHandler(store services.Store, hub *websocket.Hub, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{store: store, hub: hub, logger: logger}
}

// CreateRoom создает групповую комнату. Создатель становится админом.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room := models.NewGroupRoom(req.Name, userID, req.Participants)
	if err := h.store.CreateRoom(c.Request.Context(), room); err != nil {
		h.logger.Error("create room failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}

	c.JSON(http.StatusCreated, h.roomResponse(room))
}

// CreatePrivateRoom создает или получает личную комнату двух пользователей
func (h *RoomHandler) CreatePrivateRoom(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var req dto.PrivateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if userID == req.UserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot create private room with yourself"})
		return
	}

	if _, err := h.store.GetUser(c.Request.Context(), req.UserID); err != nil {
		respondError(c, err, "failed to create private room")
		return
	}

	room, created, err := h.store.GetOrCreatePrivateRoom(c.Request.Context(), userID, req.UserID)
	if err != nil {
		h.logger.Error("private room failed", "user_id", userID, "peer_id", req.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create private room"})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, h.roomResponse(room))
}

// GetMyRooms получает список комнат пользователя с количеством участников онлайн
func (h *RoomHandler) GetMyRooms(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	rooms, err := h.store.ListRoomsForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get rooms"})
		return
	}

	response := make([]dto.RoomResponse, len(rooms))
	for i := range rooms {
		response[i] = h.roomResponse(&rooms[i])
	}

	c.JSON(http.StatusOK, gin.H{"rooms": response})
}

// GetRoom получает информацию о конкретной комнате
func (h *RoomHandler) GetRoom(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	roomID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	room, err := h.hub.Gate.Authorize(c.Request.Context(), userID, roomID, websocket.ActionRead, uuid.Nil)
	if err != nil {
		respondError(c, err, "failed to get room")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room":         h.roomResponse(room),
		"online_users": h.hub.GetRoomUsers(room.ID),
		"typing_users": h.hub.Typing.TypingUsers(room.ID),
	})
}

// UpdateRoom переименовывает комнату (только админ)
func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	roomID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.hub.Gate.Authorize(c.Request.Context(), userID, roomID, websocket.ActionEdit, uuid.Nil)
	if err != nil {
		respondError(c, err, "failed to update room")
		return
	}

	room.Name = req.Name
	if err := h.store.SaveRoom(c.Request.Context(), room); err != nil {
		respondError(c, err, "failed to update room")
		return
	}

	c.JSON(http.StatusOK, h.roomResponse(room))
}

// DeleteRoom удаляет комнату вместе с сообщениями (только админ)
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	roomID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.hub.Lifecycle.CloseRoom(c.Request.Context(), userID, roomID); err != nil {
		respondError(c, err, "failed to delete room")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "room deleted successfully"})
}

// AddParticipants добавляет участников в групповую комнату
func (h *RoomHandler) AddParticipants(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	roomID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req dto.AddParticipantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.hub.Gate.Authorize(c.Request.Context(), userID, roomID, websocket.ActionPost, uuid.Nil)
	if err != nil {
		respondError(c, err, "failed to add participants")
		return
	}

	// В личной комнате всегда ровно два участника
	if room.IsPrivate {
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrPrivateRoomFull.Error()})
		return
	}

	var added []models.RoomMember
	for _, id := range req.UserIDs {
		if room.AddParticipant(id) {
			added = append(added, models.RoomMember{RoomID: room.ID, UserID: id, JoinedAt: time.Now()})
		}
	}

	if len(added) > 0 {
		if err := h.store.AddMembers(c.Request.Context(), room.ID, added); err != nil {
			respondError(c, err, "failed to add participants")
			return
		}
		for _, m := range added {
			h.hub.Lifecycle.AnnounceMember(m.UserID, room.ID)
		}
	}

	c.JSON(http.StatusOK, h.roomResponse(room))
}

// JoinRoom добавляет текущего пользователя в групповую комнату
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	roomID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	room, err := h.store.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, err, "failed to join room")
		return
	}

	// В личную комнату вступить нельзя
	if room.IsPrivate {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot join private room"})
		return
	}
	if !room.AddParticipant(userID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "already a participant"})
		return
	}

	member := models.RoomMember{RoomID: room.ID, UserID: userID, JoinedAt: time.Now()}
	if err := h.store.AddMembers(c.Request.Context(), room.ID, []models.RoomMember{member}); err != nil {
		respondError(c, err, "failed to join room")
		return
	}
	h.hub.Lifecycle.AnnounceMember(userID, room.ID)

	c.JSON(http.StatusOK, h.roomResponse(room))
}

// LeaveRoom удаляет пользователя из комнаты и снимает его подписки
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	roomID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	room, err := h.hub.Gate.Authorize(c.Request.Context(), userID, roomID, websocket.ActionRead, uuid.Nil)
	if err != nil {
		respondError(c, err, "failed to leave room")
		return
	}

	// Нельзя покинуть личную комнату
	if room.IsPrivate {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot leave private room"})
		return
	}

	// Создатель не может покинуть комнату
	if err := room.RemoveParticipant(userID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room creator cannot leave room"})
		return
	}

	if err := h.store.RemoveMember(c.Request.Context(), roomID, userID); err != nil {
		respondError(c, err, "failed to leave room")
		return
	}
	h.hub.Lifecycle.EvictUser(userID, roomID)

	c.JSON(http.StatusOK, gin.H{"message": "left room successfully"})
}

// PromoteAdmin назначает участника админом
func (h *RoomHandler) PromoteAdmin(c *gin.Context) {
	h.manage(c, websocket.ActionPromote, (*models.Room).Promote, func(ctx context.Context, roomID, target uuid.UUID) error {
		return h.store.SetAdmin(ctx, roomID, target, true)
	})
}

// DemoteAdmin снимает права админа. Создателя понизить нельзя.
func (h *RoomHandler) DemoteAdmin(c *gin.Context) {
	h.manage(c, websocket.ActionDemote, (*models.Room).Demote, func(ctx context.Context, roomID, target uuid.UUID) error {
		return h.store.SetAdmin(ctx, roomID, target, false)
	})
}

// KickParticipant исключает участника из комнаты
func (h *RoomHandler) KickParticipant(c *gin.Context) {
	room, target, ok := h.applyManage(c, websocket.ActionKick, (*models.Room).RemoveParticipant, h.store.RemoveMember)
	if !ok {
		return
	}
	h.hub.Lifecycle.EvictUser(target, room.ID)

	c.JSON(http.StatusOK, h.roomResponse(room))
}

// GetRoomMembers получает список участников комнаты
func (h *RoomHandler) GetRoomMembers(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	roomID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	room, err := h.hub.Gate.Authorize(c.Request.Context(), userID, roomID, websocket.ActionRead, uuid.Nil)
	if err != nil {
		respondError(c, err, "failed to get members")
		return
	}

	// Форматируем список участников
	members := make([]gin.H, len(room.Members))
	for i, member := range room.Members {
		entry := gin.H{
			"id":         member.UserID,
			"is_admin":   member.IsAdmin,
			"is_creator": member.UserID == room.CreatedBy,
			"is_online":  h.hub.IsUserOnline(member.UserID),
			"joined_at":  member.JoinedAt,
		}
		if user, err := h.store.GetUser(c.Request.Context(), member.UserID); err == nil {
			entry["username"] = user.Username
			entry["avatar_url"] = user.AvatarURL
			entry["last_seen_at"] = user.LastSeenAt
		}
		members[i] = entry
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

// memberWrite построчная запись изменения участника в базу
type memberWrite func(ctx context.Context, roomID, target uuid.UUID) error

func (h *RoomHandler) manage(c *gin.Context, action websocket.Action, apply func(*models.Room, uuid.UUID) error, persist memberWrite) {
	room, _, ok := h.applyManage(c, action, apply, persist)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.roomResponse(room))
}

// applyManage проверяет права на действие над участником, применяет его к
// снимку комнаты для ответа и пишет в базу только измененную строку
func (h *RoomHandler) applyManage(c *gin.Context, action websocket.Action, apply func(*models.Room, uuid.UUID) error, persist memberWrite) (*models.Room, uuid.UUID, bool) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	roomID, ok := paramUUID(c, "id")
	if !ok {
		return nil, uuid.Nil, false
	}
	target, ok := paramUUID(c, "userId")
	if !ok {
		return nil, uuid.Nil, false
	}

	room, err := h.hub.Gate.Authorize(c.Request.Context(), userID, roomID, action, target)
	if err != nil {
		respondError(c, err, "failed to update room")
		return nil, uuid.Nil, false
	}

	if err := apply(room, target); err != nil {
		respondError(c, err, "failed to update room")
		return nil, uuid.Nil, false
	}

	if err := persist(c.Request.Context(), room.ID, target); err != nil {
		respondError(c, err, "failed to update room")
		return nil, uuid.Nil, false
	}
	return room, target, true
}

func (h *RoomHandler) roomResponse(room *models.Room) dto.RoomResponse {
	resp := dto.NewRoomResponse(room)
	resp.OnlineCount = h.hub.Presence.CountOnline(resp.Participants)
	return resp
}
