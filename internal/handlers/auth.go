package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/thereayou/chatflow/internal/database"
	"github.com/thereayou/chatflow/internal/handlers/dto"
	"github.com/thereayou/chatflow/internal/middleware"
	"github.com/thereayou/chatflow/internal/models"
	"github.com/thereayou/chatflow/internal/services"
	"github.com/thereayou/chatflow/internal/websocket"
	"github.com/thereayou/chatflow/pkg/auth"
)

// TokenRevoker отзывает токен при выходе
type TokenRevoker interface {
	Revoke(ctx context.Context, token string) error
}

type AuthHandler struct {
	users      services.UserStore
	jwtManager *auth.JWTManager
	revoker    TokenRevoker
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewAuthHandler(users services.UserStore, jwtMgr *auth.JWTManager, revoker TokenRevoker, hub *websocket.Hub, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, jwtManager: jwtMgr, revoker: revoker, hub: hub, logger: logger}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot hash password"})
		return
	}

	user := &models.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(req.Email),
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}

	if err := h.users.SaveUser(c.Request.Context(), user); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to create user"})
		return
	}

	h.issueToken(c, http.StatusCreated, user.ID)
}

// Login выдаёт JWT
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.FindUserByEmail(c.Request.Context(), strings.ToLower(req.Email))
	if err != nil {
		if !errors.Is(err, database.ErrUserNotFound) {
			h.logger.Error("find user failed", "error", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	h.issueToken(c, http.StatusOK, user.ID)
}

// Logout ставит токен в черный список в Redis до истечения и закрывает
// WebSocket соединения пользователя
func (h *AuthHandler) Logout(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	rawToken, err := auth.ExtractTokenFromHeader(c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.revoker.Revoke(c.Request.Context(), rawToken); err != nil {
		if errors.Is(err, services.ErrAuthFailure) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		h.logger.Error("revoke token failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not revoke token"})
		return
	}

	h.hub.Lifecycle.DisconnectUser(userID)
	c.Status(http.StatusOK)
}

func (h *AuthHandler) issueToken(c *gin.Context, status int, userID uuid.UUID) {
	token, expiresAt, err := h.jwtManager.Generate(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}

	c.JSON(status, dto.TokenResponse{UserID: userID, Token: token, TokenExpiresAt: expiresAt})
}
