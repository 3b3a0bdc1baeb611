package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/casamapa/casamapa/internal/core/domain/chat"
	"github.com/casamapa/casamapa/internal/core/ports"
)

// Private 1:1 chat lifecycle: waiting → active → ended. Ended is reached by
// either participant leaving (or operating on a missing session) and tears
// down room, session and message log for both sides at once.

func (s *PresenceService) CreateRoom(ctx context.Context, lat, lng float64) (*chat.Room, error) {
	store, err := s.store()
	if err != nil {
		return nil, err
	}
	room := &chat.Room{
		ID:        s.newID("room"),
		Lat:       lat,
		Lng:       lng,
		CreatedAt: s.now().UTC(),
		UserCount: 1,
		Status:    chat.StatusWaiting,
	}
	if err := s.putJSON(ctx, store, privateRoomPrefix+room.ID, room, s.cfg.PrivateRoomTTL); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *PresenceService) CreateAndJoinRoom(ctx context.Context, lat, lng float64, profile chat.Profile) (*chat.Room, *chat.PrivateSession, error) {
	store, err := s.store()
	if err != nil {
		return nil, nil, err
	}

	room := &chat.Room{
		ID:        s.newID("room"),
		Lat:       lat,
		Lng:       lng,
		CreatedAt: s.now().UTC(),
		UserCount: 1,
		Status:    chat.StatusWaiting,
	}
	session := &chat.PrivateSession{
		ID:     s.newID("session"),
		RoomID: room.ID,
		Users: []chat.Participant{{
			Username: profile.Username,
			Gender:   profile.Gender,
			JoinedAt: s.now().UTC(),
		}},
		CreatedAt: s.now().UTC(),
		Status:    chat.StatusWaiting,
	}

	if err := s.putJSON(ctx, store, privateRoomPrefix+room.ID, room, s.cfg.PrivateRoomTTL); err != nil {
		return nil, nil, err
	}
	if err := s.putJSON(ctx, store, privateSessionPrefix+session.ID, session, s.cfg.PrivateRoomTTL); err != nil {
		return nil, nil, err
	}

	// A placeholder zone entry makes the waiting room show up on the map
	// immediately; it is removed when the second participant joins.
	zoneKey := zonePrefix + room.ID
	if err := store.SetAdd(ctx, zoneKey, roomPlaceholderMember); err != nil {
		return nil, nil, err
	}
	if err := store.Expire(ctx, zoneKey, s.cfg.PrivateRoomTTL); err != nil {
		return nil, nil, err
	}

	return room, session, nil
}

func (s *PresenceService) JoinRoom(ctx context.Context, roomID string, profile chat.Profile) (*chat.PrivateSession, error) {
	store, err := s.store()
	if err != nil {
		return nil, err
	}

	roomKey := privateRoomPrefix + roomID
	data, ok, err := store.Get(ctx, roomKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, chat.ErrRoomNotFound
	}
	var room chat.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, chat.ErrRoomNotFound
	}
	if room.Status != chat.StatusWaiting {
		return nil, chat.ErrRoomNotAvailable
	}

	session, err := s.findWaitingSession(ctx, store, roomID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, chat.ErrRoomNotFound
	}

	session.Users = append(session.Users, chat.Participant{
		Username: profile.Username,
		Gender:   profile.Gender,
		JoinedAt: s.now().UTC(),
	})
	session.Status = chat.StatusActive
	room.UserCount = 2
	room.Status = chat.StatusActive

	if err := s.putJSON(ctx, store, roomKey, &room, s.cfg.PrivateRoomTTL); err != nil {
		return nil, err
	}
	if err := s.putJSON(ctx, store, privateSessionPrefix+session.ID, session, s.cfg.PrivateRoomTTL); err != nil {
		return nil, err
	}

	// The room is paired now; its map marker disappears.
	if err := store.Del(ctx, zonePrefix+roomID); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *PresenceService) PostPrivateMessage(ctx context.Context, sessionID string, profile chat.Profile, text string) (*chat.Message, error) {
	store, err := s.store()
	if err != nil {
		return nil, err
	}
	session, err := s.getPrivateSession(ctx, store, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != chat.StatusActive {
		return nil, chat.ErrSessionEnded
	}

	msg := chat.Message{
		ID:        s.newID("msg"),
		Username:  profile.Username,
		Gender:    profile.Gender,
		Text:      truncate(text, s.cfg.MaxMessageLength),
		Timestamp: s.now().UTC(),
		SessionID: sessionID,
	}
	if err := s.appendMessage(ctx, store, privateMsgPrefix+sessionID, &msg, s.cfg.PrivateRoomTTL); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListPrivateMessages distinguishes "still waiting" (empty list, solo
// session) from "ended" (ErrSessionEnded) so pollers can drive their UI.
func (s *PresenceService) ListPrivateMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	store, err := s.store()
	if err != nil {
		return nil, err
	}
	session, err := s.getPrivateSession(ctx, store, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == chat.StatusEnded {
		return nil, chat.ErrSessionEnded
	}
	return s.readMessages(ctx, store, privateMsgPrefix+sessionID, s.cfg.MessageLogCapacity)
}

// LeaveRoom is the hard teardown: one party leaving ends the conversation
// for both. Session, message log, room and any leftover map marker are
// deleted immediately; the state is terminal and not resumable.
func (s *PresenceService) LeaveRoom(ctx context.Context, sessionID string) error {
	store, err := s.store()
	if err != nil {
		return err
	}
	session, err := s.getPrivateSession(ctx, store, sessionID)
	if err != nil {
		return err
	}
	return store.Del(ctx,
		privateSessionPrefix+sessionID,
		privateMsgPrefix+sessionID,
		privateRoomPrefix+session.RoomID,
		zonePrefix+session.RoomID,
	)
}

// getPrivateSession maps a missing or expired session to ErrSessionEnded:
// callers cannot distinguish natural expiry from explicit teardown, and
// both mean the conversation is over.
func (s *PresenceService) getPrivateSession(ctx context.Context, store ports.PresenceStore, sessionID string) (*chat.PrivateSession, error) {
	data, ok, err := store.Get(ctx, privateSessionPrefix+sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, chat.ErrSessionEnded
	}
	var session chat.PrivateSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, chat.ErrSessionEnded
	}
	return &session, nil
}

// findWaitingSession scans session records for the one attached to roomID.
func (s *PresenceService) findWaitingSession(ctx context.Context, store ports.PresenceStore, roomID string) (*chat.PrivateSession, error) {
	keys, err := store.ScanKeys(ctx, privateSessionPrefix+"*", 500)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		data, ok, err := store.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		var session chat.PrivateSession
		if err := json.Unmarshal(data, &session); err != nil {
			continue
		}
		if session.RoomID == roomID && session.Status == chat.StatusWaiting {
			return &session, nil
		}
	}
	return nil, nil
}

func (s *PresenceService) putJSON(ctx context.Context, store ports.PresenceStore, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return store.Set(ctx, key, data, ttl)
}
