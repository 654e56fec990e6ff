package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/chatflow/internal/handlers/dto"
	"github.com/thereayou/chatflow/internal/middleware"
	"github.com/thereayou/chatflow/internal/services"
	"github.com/thereayou/chatflow/internal/websocket"
)

type UserHandler struct {
	users services.UserStore
	hub   *websocket.Hub
}

func NewUserHandler(users services.UserStore, hub *websocket.Hub) *UserHandler {
	return &UserHandler{users: users, hub: hub}
}

// GetMe возвращает информацию о текущем пользователе
func (h *UserHandler) GetMe(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to get user")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           user.ID,
		"username":     user.Username,
		"email":        user.Email,
		"avatar_url":   user.AvatarURL,
		"is_online":    h.hub.IsUserOnline(user.ID),
		"created_at":   user.CreatedAt,
		"last_seen_at": user.LastSeenAt,
	})
}

// UpdateMe обновляет информацию текущего пользователя
func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var req struct {
		Username  string `json:"username" binding:"omitempty,min=3,max=50"`
		AvatarURL string `json:"avatar_url" binding:"omitempty,url"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to get user")
		return
	}

	// Обновляем только переданные поля
	if req.Username != "" {
		user.Username = req.Username
	}
	if req.AvatarURL != "" {
		user.AvatarURL = req.AvatarURL
	}

	if err := h.users.UpdateUser(c.Request.Context(), user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"avatar_url": user.AvatarURL,
	})
}

// GetUser возвращает информацию о пользователе по ID
func (h *UserHandler) GetUser(c *gin.Context) {
	userID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to get user")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           user.ID,
		"username":     user.Username,
		"avatar_url":   user.AvatarURL,
		"is_online":    h.hub.IsUserOnline(user.ID),
		"last_seen_at": user.LastSeenAt,
	})
}

// SearchUsers поиск пользователей по username
func (h *UserHandler) SearchUsers(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter is required"})
		return
	}

	limit := 20
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 50 {
			limit = parsed
		}
	}

	users, err := h.users.SearchUsersByUsername(c.Request.Context(), query, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search users"})
		return
	}

	result := make([]*dto.UserInfo, len(users))
	for i := range users {
		users[i].IsOnline = h.hub.IsUserOnline(users[i].ID)
		result[i] = dto.NewUserInfo(&users[i])
	}

	c.JSON(http.StatusOK, gin.H{"users": result})
}

// ListUsers возвращает всех пользователей постранично
func (h *UserHandler) ListUsers(c *gin.Context) {
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	offset := 0
	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	users, err := h.users.ListUsers(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get users"})
		return
	}

	result := make([]*dto.UserInfo, len(users))
	for i := range users {
		users[i].IsOnline = h.hub.IsUserOnline(users[i].ID)
		result[i] = dto.NewUserInfo(&users[i])
	}

	c.JSON(http.StatusOK, gin.H{"users": result})
}

// GetOnlineUsers возвращает пользователей онлайн
func (h *UserHandler) GetOnlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": h.hub.Presence.OnlineUsers()})
}
