package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/chatflow/internal/database"
	"github.com/thereayou/chatflow/internal/models"
	"github.com/thereayou/chatflow/internal/websocket"
)

// respondError переводит ошибку в HTTP статус
func respondError(c *gin.Context, err error, fallback string) {
	if d, ok := websocket.IsDenial(err); ok {
		status := http.StatusForbidden
		switch d.Kind {
		case websocket.DenialNotFound:
			status = http.StatusNotFound
		case websocket.DenialUnavailable:
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": d.Message})
		return
	}

	switch {
	case errors.Is(err, database.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
	case errors.Is(err, database.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
	case errors.Is(err, database.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, models.ErrCreatorProtected):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotParticipant):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
