package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/chatflow/internal/middleware"
	"github.com/thereayou/chatflow/internal/mocks"
	"github.com/thereayou/chatflow/internal/observability"
	"github.com/thereayou/chatflow/internal/websocket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	router   *gin.Engine
	hub      *websocket.Hub
	store    *mocks.StoreMock
	verifier *mocks.VerifierMock
}

// newTestEnv собирает роутер, где запросы выполняются от имени userID
func newTestEnv(userID uuid.UUID) *testEnv {
	gin.SetMode(gin.TestMode)

	store := &mocks.StoreMock{}
	verifier := &mocks.VerifierMock{}
	hub := websocket.NewHub(store, verifier, observability.NoopPublisher{}, websocket.DefaultPumpConfig(), testLogger())

	messageH := NewMessageHandler(store, hub, testLogger())
	roomH := NewRoomHandler(store, hub, testLogger())
	httpH := NewHTTPMessageHandler(messageH, hub)
	userH := NewUserHandler(store, hub)
	wsH := NewWebSocketHandler(hub, messageH, nil, testLogger())

	r := gin.New()
	r.GET("/ws", wsH.HandleWebSocket)

	api := r.Group("/api/v1", func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	})
	api.GET("/rooms", roomH.GetMyRooms)
	api.POST("/rooms", roomH.CreateRoom)
	api.POST("/rooms/private", roomH.CreatePrivateRoom)
	api.GET("/rooms/:id", roomH.GetRoom)
	api.PATCH("/rooms/:id", roomH.UpdateRoom)
	api.DELETE("/rooms/:id", roomH.DeleteRoom)
	api.POST("/rooms/:id/participants", roomH.AddParticipants)
	api.DELETE("/rooms/:id/participants/:userId", roomH.KickParticipant)
	api.POST("/rooms/:id/leave", roomH.LeaveRoom)
	api.POST("/rooms/:id/join", roomH.JoinRoom)
	api.POST("/rooms/:id/admins/:userId", roomH.PromoteAdmin)
	api.DELETE("/rooms/:id/admins/:userId", roomH.DemoteAdmin)
	api.GET("/rooms/:id/messages", httpH.GetRoomMessages)
	api.POST("/rooms/:id/messages", httpH.SendMessage)
	api.POST("/messages/:id/read", httpH.MarkRead)
	api.GET("/users", userH.ListUsers)
	api.GET("/users/online", userH.GetOnlineUsers)

	return &testEnv{router: r, hub: hub, store: store, verifier: verifier}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}
