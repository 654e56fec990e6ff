package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ConnState состояние соединения
type ConnState int

const (
	StateConnecting ConnState = iota
	StateAuthenticated
	StateSubscribed
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateSubscribed:
		return "subscribed"
	case StateDisconnected:
		return "disconnected"
	default:
		return "connecting"
	}
}

// ClientMessageHandler обрабатывает входящие сообщения клиента
type ClientMessageHandler interface {
	HandleMessage(ctx context.Context, client *Client, msg *Message) error
}

// PumpConfig таймауты для ReadPump и WritePump
type PumpConfig struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

func DefaultPumpConfig() PumpConfig {
	return PumpConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		MaxMessageSize: 512 * 1024,
		SendBuffer:     256,
	}
}

// Client одно живое соединение. По ID после долгой операции проверяется,
// что соединение еще зарегистрировано.
type Client struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Conn        *websocket.Conn
	ConnectedAt time.Time

	hub  *Hub
	send chan []byte

	mu     sync.Mutex
	state  ConnState
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID) *Client {
	buffer := DefaultPumpConfig().SendBuffer
	if hub != nil {
		buffer = hub.pump.SendBuffer
	}
	return &Client{
		ID:          uuid.New(),
		UserID:      userID,
		Conn:        conn,
		ConnectedAt: time.Now(),
		hub:         hub,
		send:        make(chan []byte, buffer),
	}
}

func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s ConnState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateDisconnected {
		c.state = s
	}
}

// markDisconnected возвращает false, если клиент уже отключен
func (c *Client) markDisconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDisconnected {
		return false
	}
	c.state = StateDisconnected
	return true
}

// enqueue не блокируется и не пишет в закрытый канал
func (c *Client) enqueue(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrClientQueueFull
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump читает сообщения из WebSocket до ошибки, затем выполняет отключение
func (c *Client) ReadPump(handler ClientMessageHandler) {
	pump := c.hub.pump
	defer func() {
		c.hub.Lifecycle.Disconnect(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(pump.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pump.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pump.PongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read ended", "conn_id", c.ID, "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.Lifecycle.NotifyError(c, nil, ErrInvalidMessage)
			continue
		}
		msg.UserID = c.UserID

		if msg.Type == TypePong || msg.Type == TypePing {
			continue
		}

		if handler != nil {
			if err := handler.HandleMessage(context.Background(), c, &msg); err != nil {
				c.hub.logger.Debug("inbound event rejected", "conn_id", c.ID, "type", msg.Type, "error", err)
			}
		}
	}
}

// WritePump отправляет сообщения из очереди и пинги
func (c *Client) WritePump() {
	pump := c.hub.pump
	ticker := time.NewTicker(pump.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(pump.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(pump.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
