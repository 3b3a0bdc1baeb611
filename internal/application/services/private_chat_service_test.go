package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casamapa/casamapa/internal/core/domain/chat"
)

func TestCreateRoomStartsWaiting(t *testing.T) {
	store := newFakePresenceStore()
	svc := newTestPresence(store)

	room, err := svc.CreateRoom(context.Background(), 40.4168, -3.7038)
	require.NoError(t, err)
	assert.Equal(t, chat.StatusWaiting, room.Status)
	assert.Equal(t, 1, room.UserCount)
	assert.NotEmpty(t, room.ID)
}

func TestCreateAndJoinRoomIsDiscoverable(t *testing.T) {
	store := newFakePresenceStore()
	svc := newTestPresence(store)

	ctx := context.Background()
	room, session, err := svc.CreateAndJoinRoom(ctx, 40.4168, -3.7038, chat.Profile{Username: "ana", Gender: "f"})
	require.NoError(t, err)
	assert.Equal(t, chat.StatusWaiting, room.Status)
	assert.Equal(t, chat.StatusWaiting, session.Status)
	assert.Equal(t, room.ID, session.RoomID)
	require.Len(t, session.Users, 1)
	assert.Equal(t, "ana", session.Users[0].Username)

	// The waiting room shows up on the map with its creator counted.
	zones, err := svc.ListActiveZones(ctx)
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, room.ID, zones[0].ZoneID)
	assert.Equal(t, 1, zones[0].UserCount)
	assert.InDelta(t, 40.4168, zones[0].Lat, 1e-9)
}

func TestJoinRoomActivatesAndHidesMarker(t *testing.T) {
	store := newFakePresenceStore()
	svc := newTestPresence(store)

	ctx := context.Background()
	room, _, err := svc.CreateAndJoinRoom(ctx, 40.4168, -3.7038, chat.Profile{Username: "ana"})
	require.NoError(t, err)

	session, err := svc.JoinRoom(ctx, room.ID, chat.Profile{Username: "ben", Gender: "m"})
	require.NoError(t, err)
	assert.Equal(t, chat.StatusActive, session.Status)
	require.Len(t, session.Users, 2)
	assert.Equal(t, "ana", session.Users[0].Username)
	assert.Equal(t, "ben", session.Users[1].Username)

	// Paired rooms disappear from the map.
	zones, err := svc.ListActiveZones(ctx)
	require.NoError(t, err)
	assert.Empty(t, zones)
}

func TestJoinRoomMissing(t *testing.T) {
	store := newFakePresenceStore()
	svc := newTestPresence(store)

	_, err := svc.JoinRoom(context.Background(), "room_nope", chat.Profile{Username: "ben"})
	assert.ErrorIs(t, err, chat.ErrRoomNotFound)
}

func TestJoinRoomAlreadyActive(t *testing.T) {
	store := newFakePresenceStore()
	svc := newTestPresence(store)

	ctx := context.Background()
	room, _, err := svc.CreateAndJoinRoom(ctx, 40.4168, -3.7038, chat.Profile{Username: "ana"})
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, room.ID, chat.Profile{Username: "ben"})
	require.NoError(t, err)

	_, err = svc.JoinRoom(ctx, room.ID, chat.Profile{Username: "carl"})
	assert.ErrorIs(t, err, chat.ErrRoomNotAvailable, "a third participant is rejected")
}

func TestPrivateMessagingLifecycle(t *testing.T) {
	store := newFakePresenceStore()
	svc := newTestPresence(store)

	ctx := context.Background()
	room, session, err := svc.CreateAndJoinRoom(ctx, 40.4168, -3.7038, chat.Profile{Username: "ana"})
	require.NoError(t, err)

	// Waiting session: sending is blocked, polling returns an empty log.
	_, err = svc.PostPrivateMessage(ctx, session.ID, chat.Profile{Username: "ana"}, "anyone?")
	assert.ErrorIs(t, err, chat.ErrSessionEnded)
	msgs, err := svc.ListPrivateMessages(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, err = svc.JoinRoom(ctx, room.ID, chat.Profile{Username: "ben"})
	require.NoError(t, err)

	_, err = svc.PostPrivateMessage(ctx, session.ID, chat.Profile{Username: "ana"}, "hola")
	require.NoError(t, err)
	_, err = svc.PostPrivateMessage(ctx, session.ID, chat.Profile{Username: "ben"}, "hey")
	require.NoError(t, err)

	msgs, err = svc.ListPrivateMessages(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hola", msgs[0].Text)
	assert.Equal(t, "hey", msgs[1].Text)
	assert.Equal(t, session.ID, msgs[0].SessionID)
}

func TestLeaveRoomHardTeardown(t *testing.T) {
	store := newFakePresenceStore()
	svc := newTestPresence(store)

	ctx := context.Background()
	room, session, err := svc.CreateAndJoinRoom(ctx, 40.4168, -3.7038, chat.Profile{Username: "ana"})
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, room.ID, chat.Profile{Username: "ben"})
	require.NoError(t, err)
	_, err = svc.PostPrivateMessage(ctx, session.ID, chat.Profile{Username: "ana"}, "hola")
	require.NoError(t, err)

	require.NoError(t, svc.LeaveRoom(ctx, session.ID))

	// One party leaving ends the conversation for both, with no recovery.
	_, err = svc.ListPrivateMessages(ctx, session.ID)
	assert.ErrorIs(t, err, chat.ErrSessionEnded)
	_, err = svc.PostPrivateMessage(ctx, session.ID, chat.Profile{Username: "ben"}, "gone?")
	assert.ErrorIs(t, err, chat.ErrSessionEnded)
	_, err = svc.JoinRoom(ctx, room.ID, chat.Profile{Username: "carl"})
	assert.ErrorIs(t, err, chat.ErrRoomNotFound)

	zones, err := svc.ListActiveZones(ctx)
	require.NoError(t, err)
	assert.Empty(t, zones)
}

func TestLeaveRoomUnknownSession(t *testing.T) {
	store := newFakePresenceStore()
	svc := newTestPresence(store)

	err := svc.LeaveRoom(context.Background(), "session_nope")
	assert.ErrorIs(t, err, chat.ErrSessionEnded)
}

func TestExpiredRoomLooksEnded(t *testing.T) {
	store := newFakePresenceStore()
	svc := newTestPresence(store)

	ctx := context.Background()
	_, session, err := svc.CreateAndJoinRoom(ctx, 40.4168, -3.7038, chat.Profile{Username: "ana"})
	require.NoError(t, err)

	// The room TTL fired; natural expiry is indistinguishable from teardown.
	require.NoError(t, store.Del(ctx, "private_chat_session:"+session.ID))

	_, err = svc.ListPrivateMessages(ctx, session.ID)
	assert.ErrorIs(t, err, chat.ErrSessionEnded)
}
