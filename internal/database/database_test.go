package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/chatflow/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB открывает SQLite в памяти на одном соединении
func setupTestDB(t *testing.T) *Database {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	d := NewDatabase(db)
	require.NoError(t, d.Migrate())
	return d
}

func createUser(t *testing.T, d *Database, name string) *models.User {
	t.Helper()
	user := &models.User{Username: name, Email: name + "@example.com", PasswordHash: "x", CreatedAt: time.Now()}
	require.NoError(t, d.SaveUser(context.Background(), user))
	return user
}

func TestCreateAndGetRoom(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	alice, bob := createUser(t, d, "alice"), createUser(t, d, "bob")

	room := models.NewGroupRoom("team", alice.ID, []uuid.UUID{bob.ID})
	require.NoError(t, d.CreateRoom(ctx, room))

	got, err := d.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, "team", got.Name)
	assert.ElementsMatch(t, []uuid.UUID{alice.ID, bob.ID}, got.ParticipantIDs())
	assert.True(t, got.IsAdmin(alice.ID))
	assert.False(t, got.IsAdmin(bob.ID))

	_, err = d.GetRoom(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestSaveRoomKeepsMembers(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	alice, bob := createUser(t, d, "alice"), createUser(t, d, "bob")

	room := models.NewGroupRoom("team", alice.ID, []uuid.UUID{bob.ID})
	require.NoError(t, d.CreateRoom(ctx, room))

	stale, err := d.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	require.NoError(t, d.RemoveMember(ctx, room.ID, bob.ID))

	stale.Name = "renamed"
	require.NoError(t, d.SaveRoom(ctx, stale))

	got, err := d.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, []uuid.UUID{alice.ID}, got.ParticipantIDs())

	assert.ErrorIs(t, d.SaveRoom(ctx, &models.Room{ID: uuid.New()}), ErrRoomNotFound)
}

// Параллельные правки состава пишутся построчно и не затирают друг друга
func TestMemberWritesDoNotUndoEachOther(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	alice, bob, carol := createUser(t, d, "alice"), createUser(t, d, "bob"), createUser(t, d, "carol")

	room := models.NewGroupRoom("team", alice.ID, []uuid.UUID{bob.ID})
	require.NoError(t, d.CreateRoom(ctx, room))

	require.NoError(t, d.AddMembers(ctx, room.ID, []models.RoomMember{{UserID: carol.ID}}))
	require.NoError(t, d.RemoveMember(ctx, room.ID, bob.ID))
	require.NoError(t, d.SetAdmin(ctx, room.ID, carol.ID, true))
	// повторное добавление ничего не меняет
	require.NoError(t, d.AddMembers(ctx, room.ID, []models.RoomMember{{UserID: carol.ID}, {UserID: alice.ID}}))

	got, err := d.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{alice.ID, carol.ID}, got.ParticipantIDs())
	assert.ElementsMatch(t, []uuid.UUID{alice.ID, carol.ID}, got.AdminIDs())
}

func TestMemberWriteErrors(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	alice, bob := createUser(t, d, "alice"), createUser(t, d, "bob")

	room := models.NewGroupRoom("team", alice.ID, nil)
	require.NoError(t, d.CreateRoom(ctx, room))

	assert.ErrorIs(t, d.RemoveMember(ctx, room.ID, alice.ID), models.ErrCreatorProtected)
	assert.ErrorIs(t, d.RemoveMember(ctx, room.ID, bob.ID), models.ErrNotParticipant)
	assert.ErrorIs(t, d.RemoveMember(ctx, uuid.New(), bob.ID), ErrRoomNotFound)
	assert.ErrorIs(t, d.SetAdmin(ctx, room.ID, bob.ID, true), models.ErrNotParticipant)
}

func TestListRoomsForUser(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	alice, bob := createUser(t, d, "alice"), createUser(t, d, "bob")

	require.NoError(t, d.CreateRoom(ctx, models.NewGroupRoom("one", alice.ID, []uuid.UUID{bob.ID})))
	require.NoError(t, d.CreateRoom(ctx, models.NewGroupRoom("two", alice.ID, nil)))

	rooms, err := d.ListRoomsForUser(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "one", rooms[0].Name)

	rooms, err = d.ListRoomsForUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, rooms, 2)
}

func TestGetOrCreatePrivateRoomIsIdempotent(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	alice, bob := createUser(t, d, "alice"), createUser(t, d, "bob")

	first, created, err := d.GetOrCreatePrivateRoom(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := d.GetOrCreatePrivateRoom(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.ElementsMatch(t, []uuid.UUID{alice.ID, bob.ID}, second.ParticipantIDs())
}

func TestDeleteRoomCascadesMessages(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	alice, bob := createUser(t, d, "alice"), createUser(t, d, "bob")

	room := models.NewGroupRoom("team", alice.ID, []uuid.UUID{bob.ID})
	require.NoError(t, d.CreateRoom(ctx, room))

	msg := &models.Message{RoomID: room.ID, SenderID: alice.ID, Content: "hi", Type: models.MessageTypeText}
	require.NoError(t, d.CreateMessage(ctx, msg))
	require.NoError(t, d.MarkRead(ctx, msg.ID, bob.ID))

	require.NoError(t, d.DeleteRoom(ctx, room.ID))

	_, err := d.GetMessage(ctx, msg.ID)
	assert.ErrorIs(t, err, ErrMessageNotFound)
	_, err = d.GetRoom(ctx, room.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.ErrorIs(t, d.DeleteRoom(ctx, room.ID), ErrRoomNotFound)
}

func TestMarkReadAccumulates(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	alice, bob := createUser(t, d, "alice"), createUser(t, d, "bob")
	room := models.NewGroupRoom("team", alice.ID, []uuid.UUID{bob.ID})
	require.NoError(t, d.CreateRoom(ctx, room))

	msg := &models.Message{RoomID: room.ID, SenderID: alice.ID, Content: "hi"}
	require.NoError(t, d.CreateMessage(ctx, msg))

	require.NoError(t, d.MarkRead(ctx, msg.ID, bob.ID))
	require.NoError(t, d.MarkRead(ctx, msg.ID, bob.ID))

	got, err := d.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Len(t, got.ReadBy, 1)
	assert.True(t, got.IsReadBy(bob.ID))
	assert.Equal(t, "alice", got.Sender.Username)
}

func TestGetRoomMessagesPaginates(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	alice := createUser(t, d, "alice")
	room := models.NewGroupRoom("team", alice.ID, nil)
	require.NoError(t, d.CreateRoom(ctx, room))

	base := time.Now().Add(-time.Hour)
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		msg := &models.Message{RoomID: room.ID, SenderID: alice.ID, Content: "m", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, d.CreateMessage(ctx, msg))
		ids = append(ids, msg.ID)
	}

	latest, err := d.GetRoomMessages(ctx, room.ID, 2, nil)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, ids[3], latest[0].ID)
	assert.Equal(t, ids[4], latest[1].ID)

	older, err := d.GetRoomMessages(ctx, room.ID, 10, &ids[3])
	require.NoError(t, err)
	assert.Len(t, older, 3)
}

func TestSetPresence(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	alice := createUser(t, d, "alice")

	seen := time.Now().Truncate(time.Second)
	require.NoError(t, d.SetPresence(ctx, alice.ID, true, seen))

	got, err := d.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOnline)
	assert.WithinDuration(t, seen, got.LastSeenAt, time.Second)
}

func TestUpdateUserKeepsPresence(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	alice := createUser(t, d, "alice")

	stale, err := d.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	require.False(t, stale.IsOnline)

	seen := time.Now().Truncate(time.Second)
	require.NoError(t, d.SetPresence(ctx, alice.ID, true, seen))

	stale.Username = "alice2"
	stale.AvatarURL = "https://example.com/a.png"
	require.NoError(t, d.UpdateUser(ctx, stale))

	got, err := d.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice2", got.Username)
	assert.Equal(t, "https://example.com/a.png", got.AvatarURL)
	assert.True(t, got.IsOnline)
	assert.WithinDuration(t, seen, got.LastSeenAt, time.Second)
}

func TestListUsers(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	for _, name := range []string{"carol", "alice", "bob"} {
		createUser(t, d, name)
	}

	users, err := d.ListUsers(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)

	users, err = d.ListUsers(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "carol", users[0].Username)
}
