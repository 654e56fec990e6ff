package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/chatflow/internal/handlers"
	"github.com/thereayou/chatflow/internal/middleware"
	"github.com/thereayou/chatflow/internal/observability"
	"github.com/thereayou/chatflow/internal/services"
)

type Handlers struct {
	Auth        *handlers.AuthHandler
	User        *handlers.UserHandler
	Room        *handlers.RoomHandler
	HTTPMessage *handlers.HTTPMessageHandler
	WebSocket   *handlers.WebSocketHandler
}

func APIEndpoints(r *gin.Engine, h Handlers, verifier services.IdentityVerifier) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", observability.MetricsHandler())

	// WebSocket проверяет токен сам, до апгрейда
	r.GET("/ws", h.WebSocket.HandleWebSocket)

	// Auth endpoints
	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/logout", middleware.AuthMiddleware(verifier), h.Auth.Logout)
	}

	// API endpoints
	api := r.Group("/api/v1", middleware.AuthMiddleware(verifier))
	{
		api.GET("/users", h.User.ListUsers)
		api.GET("/users/me", h.User.GetMe)
		api.PATCH("/users/me", h.User.UpdateMe)
		api.GET("/users/search", h.User.SearchUsers)
		api.GET("/users/online", h.User.GetOnlineUsers)
		api.GET("/users/:id", h.User.GetUser)

		api.GET("/rooms", h.Room.GetMyRooms)
		api.POST("/rooms", h.Room.CreateRoom)
		api.POST("/rooms/private", h.Room.CreatePrivateRoom)
		api.GET("/rooms/:id", h.Room.GetRoom)
		api.PATCH("/rooms/:id", h.Room.UpdateRoom)
		api.DELETE("/rooms/:id", h.Room.DeleteRoom)
		api.GET("/rooms/:id/participants", h.Room.GetRoomMembers)
		api.POST("/rooms/:id/participants", h.Room.AddParticipants)
		api.DELETE("/rooms/:id/participants/:userId", h.Room.KickParticipant)
		api.POST("/rooms/:id/join", h.Room.JoinRoom)
		api.POST("/rooms/:id/leave", h.Room.LeaveRoom)
		api.POST("/rooms/:id/admins/:userId", h.Room.PromoteAdmin)
		api.DELETE("/rooms/:id/admins/:userId", h.Room.DemoteAdmin)
		api.GET("/rooms/:id/messages", h.HTTPMessage.GetRoomMessages)
		api.POST("/rooms/:id/messages", h.HTTPMessage.SendMessage)

		api.POST("/messages/:id/read", h.HTTPMessage.MarkRead)
	}
}
