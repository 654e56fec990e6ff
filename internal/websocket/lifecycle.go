package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/chatflow/internal/handlers/dto"
	"github.com/thereayou/chatflow/internal/models"
	"github.com/thereayou/chatflow/internal/observability"
	"github.com/thereayou/chatflow/internal/services"
)

// Lifecycle связывает компоненты хаба: подключение, подписки, отправку
// сообщений и очистку при отключении. Используется и сокетом, и REST.
type Lifecycle struct {
	registry  *Registry
	subs      *Subscriptions
	router    *Router
	gate      *Gate
	presence  *Presence
	typing    *Typing
	store     services.Store
	verifier  services.IdentityVerifier
	publisher observability.Publisher
	logger    *slog.Logger
}

// Authenticate проверяет токен до апгрейда соединения
func (l *Lifecycle) Authenticate(ctx context.Context, token string) (uuid.UUID, error) {
	userID, err := l.verifier.VerifyCredential(ctx, token)
	if err != nil {
		if errors.Is(err, services.ErrAuthFailure) {
			return uuid.Nil, err
		}
		return uuid.Nil, fmt.Errorf("%w: %v", services.ErrAuthFailure, err)
	}
	return userID, nil
}

// Attach регистрирует аутентифицированное соединение
func (l *Lifecycle) Attach(c *Client) error {
	if _, err := l.registry.Register(c); err != nil {
		return err
	}
	c.setState(StateAuthenticated)
	observability.IncWSActive()
	l.presence.Sync(c.UserID)

	l.logger.Info("client connected", "conn_id", c.ID, "user_id", c.UserID, "connections", l.registry.Count(c.UserID))
	return nil
}

// JoinAllRooms подписывает соединение на все комнаты пользователя
func (l *Lifecycle) JoinAllRooms(ctx context.Context, c *Client) error {
	rooms, err := l.store.ListRoomsForUser(ctx, c.UserID)
	if err != nil {
		l.logger.Error("list rooms failed", "user_id", c.UserID, "error", err)
		return &DenialError{Kind: DenialUnavailable, Action: ActionRead, Message: "rooms temporarily unavailable", Err: err}
	}
	if !l.registry.Has(c.ID) {
		return ErrConnectionClosed
	}

	joined := make([]uuid.UUID, 0, len(rooms))
	for _, room := range rooms {
		l.subs.Subscribe(c, room.ID)
		joined = append(joined, room.ID)
	}

	// Соединение могло закрыться, пока шел запрос к базе
	if !l.registry.Has(c.ID) {
		l.subs.UnsubscribeAll(c.ID)
		return ErrConnectionClosed
	}
	if len(joined) > 0 {
		c.setState(StateSubscribed)
	}

	events := make([][]byte, 0, len(joined))
	for _, roomID := range joined {
		data, err := encode(TypeRoomJoined, roomRef(roomID), c.UserID, nil)
		if err != nil {
			continue
		}
		events = append(events, data)
	}
	l.router.DeliverToConn(c, events...)

	l.logger.Debug("joined rooms", "conn_id", c.ID, "user_id", c.UserID, "rooms", len(joined))
	return nil
}

// JoinRoom подписывает соединение на одну комнату после проверки доступа
func (l *Lifecycle) JoinRoom(ctx context.Context, c *Client, roomID uuid.UUID) error {
	if _, err := l.gate.Authorize(ctx, c.UserID, roomID, ActionRead, uuid.Nil); err != nil {
		return err
	}
	if !l.registry.Has(c.ID) {
		return ErrConnectionClosed
	}

	l.subs.Subscribe(c, roomID)
	if !l.registry.Has(c.ID) {
		l.subs.Unsubscribe(c.ID, roomID)
		return ErrConnectionClosed
	}
	c.setState(StateSubscribed)

	joined, _ := encode(TypeRoomJoined, roomRef(roomID), c.UserID, nil)
	l.router.DeliverToConn(c, joined)

	notice, _ := encode(TypeUserJoinedRoom, roomRef(roomID), c.UserID, MemberPayload{RoomID: roomID, UserID: c.UserID})
	l.router.DeliverToRoom(roomID, c.ID, notice)

	users, _ := encode(TypeRoomUsers, roomRef(roomID), c.UserID, RoomUsersPayload{Users: l.subs.UsersIn(roomID)})
	l.router.DeliverToConn(c, users)
	return nil
}

// LeaveRoom отписывает соединение от комнаты. Если у пользователя не осталось
// подписанных соединений в комнате, его индикатор набора снимается.
func (l *Lifecycle) LeaveRoom(c *Client, roomID uuid.UUID) {
	if !l.subs.Unsubscribe(c.ID, roomID) {
		return
	}
	if len(l.subs.RoomsOf(c.ID)) == 0 {
		c.setState(StateAuthenticated)
	}

	if !l.subs.UserSubscribed(roomID, c.UserID) {
		l.typing.Stop(c.UserID, roomID, uuid.Nil)
	}

	notice, _ := encode(TypeUserLeftRoom, roomRef(roomID), c.UserID, MemberPayload{RoomID: roomID, UserID: c.UserID})
	l.router.DeliverToRoom(roomID, c.ID, notice)
}

// AnnounceMember сообщает комнате о новом участнике
func (l *Lifecycle) AnnounceMember(userID, roomID uuid.UUID) {
	notice, _ := encode(TypeUserJoinedRoom, roomRef(roomID), userID, MemberPayload{RoomID: roomID, UserID: userID})
	l.router.DeliverToRoom(roomID, uuid.Nil, notice)
}

// EvictUser убирает все соединения пользователя из комнаты (выход или исключение)
func (l *Lifecycle) EvictUser(userID, roomID uuid.UUID) {
	l.typing.Stop(userID, roomID, uuid.Nil)

	for _, c := range l.subs.UnsubscribeUser(roomID, userID) {
		if len(l.subs.RoomsOf(c.ID)) == 0 {
			c.setState(StateAuthenticated)
		}
	}

	notice, _ := encode(TypeUserLeftRoom, roomRef(roomID), userID, MemberPayload{RoomID: roomID, UserID: userID})
	l.router.DeliverToRoom(roomID, uuid.Nil, notice)
	l.router.DeliverToUser(userID, notice)
}

// Disconnect выполняет полную очистку соединения. Повторные вызовы ничего не делают.
// Индикаторы набора снимаются до рассылки offline.
func (l *Lifecycle) Disconnect(c *Client) {
	if !c.markDisconnected() {
		return
	}

	removed, last := l.registry.Unregister(c.ID)
	l.cleanup(c, last)

	c.close()
	if removed != nil {
		observability.DecWSActive()
		l.logger.Info("client disconnected", "conn_id", c.ID, "user_id", c.UserID, "last", last)
	}
}

// cleanup снимает подписки соединения. Индикаторы набора и offline рассылает
// только то отключение, после которого у пользователя не осталось соединений.
func (l *Lifecycle) cleanup(c *Client, last bool) {
	l.subs.UnsubscribeAll(c.ID)
	if !last {
		return
	}
	l.typing.OnUserFullyDisconnected(c.UserID)
	l.presence.Sync(c.UserID)
}

// DisconnectUser закрывает все соединения пользователя (logout)
func (l *Lifecycle) DisconnectUser(userID uuid.UUID) {
	for _, c := range l.registry.ConnectionsOf(userID) {
		l.Disconnect(c)
	}
}

// SendMessage сохраняет и рассылает сообщение. origin равен nil для REST.
func (l *Lifecycle) SendMessage(ctx context.Context, senderID, roomID uuid.UUID, origin *Client, content string) (*models.Message, error) {
	if _, err := l.gate.Authorize(ctx, senderID, roomID, ActionPost, uuid.Nil); err != nil {
		return nil, err
	}
	if origin != nil && !l.registry.Has(origin.ID) {
		return nil, ErrConnectionClosed
	}

	message := &models.Message{
		ID:        uuid.New(),
		RoomID:    roomID,
		SenderID:  senderID,
		Content:   content,
		Type:      models.MessageTypeText,
		CreatedAt: time.Now(),
	}
	if err := l.store.CreateMessage(ctx, message); err != nil {
		l.logger.Error("save message failed", "room_id", roomID, "sender_id", senderID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	if sender, err := l.store.GetUser(ctx, senderID); err == nil {
		message.Sender = *sender
	} else {
		l.logger.Warn("load sender failed", "user_id", senderID, "error", err)
	}

	resp := dto.NewMessageResponse(message)
	event, err := encode(TypeNewMessage, roomRef(roomID), senderID, NewMessagePayload{Message: resp})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	l.typing.OnMessageSent(senderID, roomID, event)

	if err := l.store.TouchRoom(ctx, roomID, message.CreatedAt); err != nil {
		l.logger.Warn("touch room failed", "room_id", roomID, "error", err)
	}
	if err := l.publisher.Publish(ctx, observability.RoutingMessageCreated, resp); err != nil {
		l.logger.Debug("publish message failed", "message_id", message.ID, "error", err)
	}
	return message, nil
}

// FileNotice пересылает уведомление о загруженном файле остальным участникам
func (l *Lifecycle) FileNotice(ctx context.Context, c *Client, roomID uuid.UUID, file FilePayload) error {
	if _, err := l.gate.Authorize(ctx, c.UserID, roomID, ActionPost, uuid.Nil); err != nil {
		return err
	}
	if !l.registry.Has(c.ID) {
		return ErrConnectionClosed
	}

	event, err := encode(TypeFileUploaded, roomRef(roomID), c.UserID, file)
	if err != nil {
		return err
	}
	l.router.DeliverToRoom(roomID, c.ID, event)
	return nil
}

func (l *Lifecycle) TypingStart(ctx context.Context, c *Client, roomID uuid.UUID) error {
	if _, err := l.gate.Authorize(ctx, c.UserID, roomID, ActionPost, uuid.Nil); err != nil {
		return err
	}
	if !l.typing.Start(c.UserID, roomID, c.ID) && !l.registry.Has(c.ID) {
		return ErrConnectionClosed
	}
	return nil
}

func (l *Lifecycle) TypingStop(c *Client, roomID uuid.UUID) {
	l.typing.Stop(c.UserID, roomID, c.ID)
}

// CloseRoom удаляет комнату вместе с сообщениями и закрывает ее рассылку
func (l *Lifecycle) CloseRoom(ctx context.Context, userID, roomID uuid.UUID) error {
	if _, err := l.gate.Authorize(ctx, userID, roomID, ActionDelete, uuid.Nil); err != nil {
		return err
	}
	if err := l.store.DeleteRoom(ctx, roomID); err != nil {
		return err
	}

	event, _ := encode(TypeRoomDeleted, roomRef(roomID), userID, nil)
	l.router.DeliverToRoom(roomID, uuid.Nil, event)
	l.typing.ClearRoom(roomID)
	for _, c := range l.subs.DropRoom(roomID) {
		if len(l.subs.RoomsOf(c.ID)) == 0 {
			c.setState(StateAuthenticated)
		}
	}

	if err := l.publisher.Publish(ctx, observability.RoutingRoomDeleted, MemberPayload{RoomID: roomID, UserID: userID}); err != nil {
		l.logger.Debug("publish room deleted failed", "room_id", roomID, "error", err)
	}
	return nil
}

// MarkRead отмечает сообщение прочитанным и уведомляет комнату
func (l *Lifecycle) MarkRead(ctx context.Context, userID, messageID uuid.UUID) error {
	message, err := l.store.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if _, err := l.gate.Authorize(ctx, userID, message.RoomID, ActionRead, uuid.Nil); err != nil {
		return err
	}
	if err := l.store.MarkRead(ctx, messageID, userID); err != nil {
		return err
	}

	event, _ := encode(TypeMessageRead, roomRef(message.RoomID), userID, ReadPayload{MessageID: messageID, UserID: userID})
	l.router.DeliverToRoom(message.RoomID, uuid.Nil, event)
	return nil
}

// NotifyError отправляет ошибку только запросившему соединению.
// Ошибки уже закрытого соединения не отправляются.
func (l *Lifecycle) NotifyError(c *Client, roomID *uuid.UUID, err error) {
	if d, ok := IsDenial(err); ok {
		l.router.DeliverToConn(c, errorFrame(d.Message, d.Kind.String(), roomID))
		return
	}
	code := "internal"
	message := "request failed"
	switch {
	case errors.Is(err, ErrDeliveryFailed):
		code, message = "delivery_failed", ErrDeliveryFailed.Error()
	case errors.Is(err, ErrInvalidMessage):
		code, message = "invalid_message", ErrInvalidMessage.Error()
	case errors.Is(err, ErrConnectionClosed):
		return
	}
	l.router.DeliverToConn(c, errorFrame(message, code, roomID))
}
