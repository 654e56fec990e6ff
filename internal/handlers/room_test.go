package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/chatflow/internal/database"
	"github.com/thereayou/chatflow/internal/handlers/dto"
	"github.com/thereayou/chatflow/internal/models"
	"github.com/thereayou/chatflow/internal/websocket"
)

func TestCreateRoomMakesCreatorAdmin(t *testing.T) {
	me, friend := uuid.New(), uuid.New()
	env := newTestEnv(me)
	env.store.On("CreateRoom", mock.Anything, mock.AnythingOfType("*models.Room")).Return(nil)

	w := env.do(t, http.MethodPost, "/api/v1/rooms", dto.CreateRoomRequest{
		Name:         "team",
		Participants: []uuid.UUID{friend, friend, me},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp dto.RoomResponse
	decode(t, w, &resp)
	assert.Equal(t, "team", resp.Name)
	assert.ElementsMatch(t, []uuid.UUID{me, friend}, resp.Participants)
	assert.Equal(t, []uuid.UUID{me}, resp.Admins)
	assert.Equal(t, me, resp.CreatedBy)
}

func TestCreatePrivateRoomIsIdempotent(t *testing.T) {
	me, friend := uuid.New(), uuid.New()
	env := newTestEnv(me)
	room := models.NewPrivateRoom(me, friend)
	env.store.On("GetUser", mock.Anything, friend).Return(&models.User{ID: friend}, nil)
	env.store.On("GetOrCreatePrivateRoom", mock.Anything, me, friend).Return(room, true, nil).Once()
	env.store.On("GetOrCreatePrivateRoom", mock.Anything, me, friend).Return(room, false, nil).Once()

	first := env.do(t, http.MethodPost, "/api/v1/rooms/private", dto.PrivateRoomRequest{UserID: friend})
	second := env.do(t, http.MethodPost, "/api/v1/rooms/private", dto.PrivateRoomRequest{UserID: friend})
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusOK, second.Code)

	var a, b dto.RoomResponse
	decode(t, first, &a)
	decode(t, second, &b)
	assert.Equal(t, a.ID, b.ID)
	assert.True(t, a.IsPrivate)
}

func TestCreatePrivateRoomWithSelfIsRejected(t *testing.T) {
	me := uuid.New()
	env := newTestEnv(me)

	w := env.do(t, http.MethodPost, "/api/v1/rooms/private", dto.PrivateRoomRequest{UserID: me})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env.store.AssertNotCalled(t, "GetOrCreatePrivateRoom", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetRoomDeniesOutsider(t *testing.T) {
	me := uuid.New()
	env := newTestEnv(me)
	room := models.NewGroupRoom("closed", uuid.New(), nil)
	env.store.On("GetRoom", mock.Anything, room.ID).Return(room, nil)

	w := env.do(t, http.MethodGet, "/api/v1/rooms/"+room.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetRoomNotFound(t *testing.T) {
	env := newTestEnv(uuid.New())
	missing := uuid.New()
	env.store.On("GetRoom", mock.Anything, missing).Return(nil, database.ErrRoomNotFound)

	w := env.do(t, http.MethodGet, "/api/v1/rooms/"+missing.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/rooms/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateRoomRequiresAdmin(t *testing.T) {
	owner, member := uuid.New(), uuid.New()
	room := models.NewGroupRoom("old", owner, []uuid.UUID{member})

	env := newTestEnv(member)
	env.store.On("GetRoom", mock.Anything, room.ID).Return(room, nil)
	w := env.do(t, http.MethodPatch, "/api/v1/rooms/"+room.ID.String(), dto.UpdateRoomRequest{Name: "new"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	env.store.AssertNotCalled(t, "SaveRoom", mock.Anything, mock.Anything)

	env = newTestEnv(owner)
	env.store.On("GetRoom", mock.Anything, room.ID).Return(room, nil)
	env.store.On("SaveRoom", mock.Anything, room).Return(nil)
	w = env.do(t, http.MethodPatch, "/api/v1/rooms/"+room.ID.String(), dto.UpdateRoomRequest{Name: "new"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.RoomResponse
	decode(t, w, &resp)
	assert.Equal(t, "new", resp.Name)
}

func TestKickCreatorIsForbidden(t *testing.T) {
	creator, admin := uuid.New(), uuid.New()
	room := models.NewGroupRoom("r", creator, []uuid.UUID{admin})
	require.NoError(t, room.Promote(admin))

	env := newTestEnv(admin)
	env.store.On("GetRoom", mock.Anything, room.ID).Return(room, nil)

	w := env.do(t, http.MethodDelete, "/api/v1/rooms/"+room.ID.String()+"/participants/"+creator.String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodDelete, "/api/v1/rooms/"+room.ID.String()+"/admins/"+creator.String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.True(t, room.HasParticipant(creator))
	assert.True(t, room.IsAdmin(creator))
}

func TestKickRemovesParticipant(t *testing.T) {
	creator, member := uuid.New(), uuid.New()
	room := models.NewGroupRoom("r", creator, []uuid.UUID{member})

	env := newTestEnv(creator)
	env.store.On("GetRoom", mock.Anything, room.ID).Return(room, nil)
	env.store.On("RemoveMember", mock.Anything, room.ID, member).Return(nil).Once()

	w := env.do(t, http.MethodDelete, "/api/v1/rooms/"+room.ID.String()+"/participants/"+member.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.RoomResponse
	decode(t, w, &resp)
	assert.Equal(t, []uuid.UUID{creator}, resp.Participants)
}

func TestPromoteThenDemote(t *testing.T) {
	creator, member := uuid.New(), uuid.New()
	room := models.NewGroupRoom("r", creator, []uuid.UUID{member})

	env := newTestEnv(creator)
	env.store.On("GetRoom", mock.Anything, room.ID).Return(room, nil)
	env.store.On("SetAdmin", mock.Anything, room.ID, member, true).Return(nil).Once()
	env.store.On("SetAdmin", mock.Anything, room.ID, member, false).Return(nil).Once()

	w := env.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID.String()+"/admins/"+member.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, room.IsAdmin(member))

	w = env.do(t, http.MethodDelete, "/api/v1/rooms/"+room.ID.String()+"/admins/"+member.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, room.IsAdmin(member))
	env.store.AssertExpectations(t)
	env.store.AssertNotCalled(t, "SaveRoom", mock.Anything, mock.Anything)
}

func TestLeaveRoomRules(t *testing.T) {
	creator, member := uuid.New(), uuid.New()

	t.Run("creator cannot leave", func(t *testing.T) {
		room := models.NewGroupRoom("r", creator, []uuid.UUID{member})
		env := newTestEnv(creator)
		env.store.On("GetRoom", mock.Anything, room.ID).Return(room, nil)

		w := env.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID.String()+"/leave", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("private room cannot be left", func(t *testing.T) {
		room := models.NewPrivateRoom(creator, member)
		env := newTestEnv(member)
		env.store.On("GetRoom", mock.Anything, room.ID).Return(room, nil)

		w := env.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID.String()+"/leave", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("member leaves", func(t *testing.T) {
		room := models.NewGroupRoom("r", creator, []uuid.UUID{member})
		env := newTestEnv(member)
		env.store.On("GetRoom", mock.Anything, room.ID).Return(room, nil)
		env.store.On("RemoveMember", mock.Anything, room.ID, member).Return(nil).Once()

		w := env.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID.String()+"/leave", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, room.HasParticipant(member))
	})
}

func TestAddParticipantsRejectsPrivateRoom(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	room := models.NewPrivateRoom(a, b)
	env := newTestEnv(a)
	env.store.On("GetRoom", mock.Anything, room.ID).Return(room, nil)

	w := env.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID.String()+"/participants", dto.AddParticipantsRequest{
		UserIDs: []uuid.UUID{uuid.New()},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, room.Members, 2)
}

func TestDeleteRoomCascades(t *testing.T) {
	creator := uuid.New()
	room := models.NewGroupRoom("r", creator, nil)
	env := newTestEnv(creator)
	env.store.On("GetRoom", mock.Anything, room.ID).Return(room, nil)
	env.store.On("DeleteRoom", mock.Anything, room.ID).Return(nil)

	w := env.do(t, http.MethodDelete, "/api/v1/rooms/"+room.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	env.store.AssertCalled(t, "DeleteRoom", mock.Anything, room.ID)
}

func TestJoinRoom(t *testing.T) {
	creator, me := uuid.New(), uuid.New()

	t.Run("joins group room", func(t *testing.T) {
		room := models.NewGroupRoom("r", creator, nil)
		env := newTestEnv(me)
		env.store.On("GetRoom", mock.Anything, room.ID).Return(room, nil)
		env.store.On("AddMembers", mock.Anything, room.ID, mock.MatchedBy(func(m []models.RoomMember) bool {
			return len(m) == 1 && m[0].UserID == me && !m[0].IsAdmin
		})).Return(nil).Once()

		w := env.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID.String()+"/join", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.RoomResponse
		decode(t, w, &resp)
		assert.ElementsMatch(t, []uuid.UUID{creator, me}, resp.Participants)
		env.store.AssertExpectations(t)
	})

	t.Run("already a participant", func(t *testing.T) {
		room := models.NewGroupRoom("r", creator, []uuid.UUID{me})
		env := newTestEnv(me)
		env.store.On("GetRoom", mock.Anything, room.ID).Return(room, nil)

		w := env.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID.String()+"/join", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		env.store.AssertNotCalled(t, "AddMembers", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("private room", func(t *testing.T) {
		room := models.NewPrivateRoom(creator, uuid.New())
		env := newTestEnv(me)
		env.store.On("GetRoom", mock.Anything, room.ID).Return(room, nil)

		w := env.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID.String()+"/join", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		env.store.AssertNotCalled(t, "AddMembers", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown room", func(t *testing.T) {
		missing := uuid.New()
		env := newTestEnv(me)
		env.store.On("GetRoom", mock.Anything, missing).Return(nil, database.ErrRoomNotFound)

		w := env.do(t, http.MethodPost, "/api/v1/rooms/"+missing.String()+"/join", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestJoinRoomNotifiesSubscribers(t *testing.T) {
	creator, me := uuid.New(), uuid.New()
	room := models.NewGroupRoom("r", creator, nil)
	env := newTestEnv(me)
	env.verifier.On("VerifyCredential", mock.Anything, "creator").Return(creator, nil)
	env.store.On("GetRoom", mock.Anything, room.ID).Return(room, nil)
	env.store.On("AddMembers", mock.Anything, room.ID, mock.Anything).Return(nil)

	srv := httptest.NewServer(env.router)
	defer srv.Close()
	conn, _, err := dial(t, srv, "creator")
	require.NoError(t, err)
	defer conn.Close()

	roomID := room.ID
	require.NoError(t, conn.WriteJSON(websocket.Message{Type: websocket.TypeJoinRoom, RoomID: &roomID}))
	readUntil(t, conn, websocket.TypeRoomJoined)

	w := env.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID.String()+"/join", nil)
	require.Equal(t, http.StatusOK, w.Code)

	msg := readUntil(t, conn, websocket.TypeUserJoinedRoom)
	var joined websocket.MemberPayload
	require.NoError(t, json.Unmarshal(msg.Data, &joined))
	assert.Equal(t, me, joined.UserID)
	assert.Equal(t, room.ID, joined.RoomID)
}

func TestAddParticipantsWritesOnlyNewMembers(t *testing.T) {
	creator, existing, added := uuid.New(), uuid.New(), uuid.New()
	room := models.NewGroupRoom("r", creator, []uuid.UUID{existing})
	env := newTestEnv(creator)
	env.store.On("GetRoom", mock.Anything, room.ID).Return(room, nil)
	env.store.On("AddMembers", mock.Anything, room.ID, mock.MatchedBy(func(m []models.RoomMember) bool {
		return len(m) == 1 && m[0].UserID == added
	})).Return(nil).Once()

	w := env.do(t, http.MethodPost, "/api/v1/rooms/"+room.ID.String()+"/participants", dto.AddParticipantsRequest{
		UserIDs: []uuid.UUID{existing, added},
	})
	require.Equal(t, http.StatusOK, w.Code)
	env.store.AssertExpectations(t)
	env.store.AssertNotCalled(t, "SaveRoom", mock.Anything, mock.Anything)
}
