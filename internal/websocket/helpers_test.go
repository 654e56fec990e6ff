package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/chatflow/internal/mocks"
	"github.com/thereayou/chatflow/internal/models"
	"github.com/thereayou/chatflow/internal/observability"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHub(store *mocks.StoreMock) *Hub {
	return NewHub(store, &mocks.VerifierMock{}, observability.NoopPublisher{}, DefaultPumpConfig(), testLogger())
}

// fakeClient соединение без сокета, события копятся в send
func fakeClient(h *Hub, userID uuid.UUID) *Client {
	return NewClient(h, nil, userID)
}

func attach(t *testing.T, h *Hub, userID uuid.UUID) *Client {
	t.Helper()
	c := fakeClient(h, userID)
	require.NoError(t, h.Lifecycle.Attach(c))
	return c
}

// drain забирает все накопленные события клиента
func drain(t *testing.T, c *Client) []Message {
	t.Helper()
	var out []Message
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return out
			}
			var msg Message
			require.NoError(t, json.Unmarshal(data, &msg))
			out = append(out, msg)
		default:
			return out
		}
	}
}

func ofType(msgs []Message, t MessageType) []Message {
	var out []Message
	for _, m := range msgs {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func typesOf(msgs []Message) []MessageType {
	out := make([]MessageType, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Type)
	}
	return out
}

func expectRoom(store *mocks.StoreMock, room *models.Room) {
	store.On("GetRoom", mock.Anything, room.ID).Return(room, nil).Maybe()
}
