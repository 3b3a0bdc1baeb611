package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/casamapa/casamapa/internal/core/domain/chat"
	"github.com/casamapa/casamapa/internal/core/domain/geo"
	"github.com/casamapa/casamapa/internal/core/ports"
)

// Key prefixes in the presence backend.
const (
	zonePrefix           = "chat_zone:"
	zoneMessagesPrefix   = "chat_messages:"
	sessionPrefix        = "user_session:"
	privateRoomPrefix    = "private_chat_room:"
	privateSessionPrefix = "private_chat_session:"
	privateMsgPrefix     = "private_chat_messages:"

	// roomPlaceholderMember keeps a freshly created private room visible
	// in the zone listing until a second participant joins.
	roomPlaceholderMember = "creator_placeholder"
)

// PresenceConfig groups the TTL and capacity tuning for presence state.
type PresenceConfig struct {
	SessionTTL         time.Duration
	MessageLogTTL      time.Duration
	MessageLogCapacity int64
	MaxMessageLength   int
	PrivateRoomTTL     time.Duration
}

// PresenceService implements ports.PresenceDirectory on the first reachable
// backend of a pool. Presence state is inherently cross-process, so unlike
// the query cache it has no in-memory fallback: with no live backend every
// operation fails loudly with chat.ErrPresenceUnavailable.
//
// Zone membership and session records carry independent TTLs refreshed at
// different triggers; they may drift and readers tolerate that by skipping
// members whose session has expired.
type PresenceService struct {
	stores []ports.PresenceStore
	cfg    PresenceConfig
	logger *logrus.Logger
	now    func() time.Time
	newID  func(prefix string) string
}

func NewPresenceService(stores []ports.PresenceStore, cfg PresenceConfig, logger *logrus.Logger) *PresenceService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.MessageLogTTL <= 0 {
		cfg.MessageLogTTL = 24 * time.Hour
	}
	if cfg.MessageLogCapacity <= 0 {
		cfg.MessageLogCapacity = 100
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = 200
	}
	if cfg.PrivateRoomTTL <= 0 {
		cfg.PrivateRoomTTL = time.Hour
	}
	return &PresenceService{
		stores: stores,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		newID: func(prefix string) string {
			return prefix + "_" + uuid.NewString()
		},
	}
}

// store returns the first healthy backend or ErrPresenceUnavailable.
func (s *PresenceService) store() (ports.PresenceStore, error) {
	for _, st := range s.stores {
		if st.Healthy() {
			return st, nil
		}
	}
	return nil, chat.ErrPresenceUnavailable
}

func (s *PresenceService) Join(ctx context.Context, zoneID, userID string, profile chat.Profile) (string, []chat.Member, error) {
	store, err := s.store()
	if err != nil {
		return "", nil, err
	}
	if userID == "" {
		userID = s.newID("user")
	}

	session := chat.Session{
		Username: profile.Username,
		Gender:   profile.Gender,
		ZoneID:   zoneID,
		JoinedAt: s.now().UTC(),
	}
	data, err := json.Marshal(session)
	if err != nil {
		return "", nil, err
	}
	if err := store.Set(ctx, sessionPrefix+userID, data, s.cfg.SessionTTL); err != nil {
		return "", nil, err
	}
	if err := store.SetAdd(ctx, zonePrefix+zoneID, userID); err != nil {
		return "", nil, err
	}
	// Join refreshes the zone-set TTL; nothing else does. Long-lived
	// silent members get evicted by the backend's TTL sweep.
	if err := store.Expire(ctx, zonePrefix+zoneID, s.cfg.SessionTTL); err != nil {
		return "", nil, err
	}

	members, err := s.resolveMembers(ctx, store, zoneID)
	if err != nil {
		return "", nil, err
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"zone_id": zoneID, "user_id": userID}).Debug("presence: user joined zone")
	}
	return userID, members, nil
}

// Leave is idempotent: removing an absent member or deleting an absent
// session are both no-ops on the backend.
func (s *PresenceService) Leave(ctx context.Context, zoneID, userID string) error {
	store, err := s.store()
	if err != nil {
		return err
	}
	if err := store.SetRemove(ctx, zonePrefix+zoneID, userID); err != nil {
		return err
	}
	return store.Del(ctx, sessionPrefix+userID)
}

func (s *PresenceService) PostMessage(ctx context.Context, zoneID, userID, text string) (*chat.Message, error) {
	store, err := s.store()
	if err != nil {
		return nil, err
	}

	// Authorization is membership, checked fresh on every send.
	isMember, err := store.SetIsMember(ctx, zonePrefix+zoneID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, chat.ErrNotAMember
	}

	session, ok, err := s.getSession(ctx, store, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, chat.ErrSessionExpired
	}

	msg := chat.Message{
		ID:        s.newID("msg"),
		UserID:    userID,
		Username:  session.Username,
		Gender:    session.Gender,
		Text:      truncate(text, s.cfg.MaxMessageLength),
		Timestamp: s.now().UTC(),
		ZoneID:    zoneID,
	}
	if err := s.appendMessage(ctx, store, zoneMessagesPrefix+zoneID, &msg, s.cfg.MessageLogTTL); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *PresenceService) ListMessages(ctx context.Context, zoneID, userID string, limit int64) (*chat.MessagePage, error) {
	store, err := s.store()
	if err != nil {
		return nil, err
	}
	isMember, err := store.SetIsMember(ctx, zonePrefix+zoneID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, chat.ErrNotAMember
	}
	if limit <= 0 {
		limit = s.cfg.MessageLogCapacity
	}

	key := zoneMessagesPrefix + zoneID
	messages, err := s.readMessages(ctx, store, key, limit)
	if err != nil {
		return nil, err
	}
	total, err := store.ListLen(ctx, key)
	if err != nil {
		return nil, err
	}
	return &chat.MessagePage{
		Messages: messages,
		Total:    total,
		HasMore:  total > limit,
		ZoneID:   zoneID,
	}, nil
}

func (s *PresenceService) ListMembers(ctx context.Context, zoneID string) ([]chat.Member, error) {
	store, err := s.store()
	if err != nil {
		return nil, err
	}
	return s.resolveMembers(ctx, store, zoneID)
}

// ListActiveZones surfaces populated coordinate-bucket zones together with
// private rooms still waiting for a second participant, so both kinds of
// conversation are discoverable on the shared map.
func (s *PresenceService) ListActiveZones(ctx context.Context) ([]chat.ActiveZone, error) {
	store, err := s.store()
	if err != nil {
		return nil, err
	}

	zones := []chat.ActiveZone{}

	zoneKeys, err := store.ScanKeys(ctx, zonePrefix+"*", 500)
	if err != nil {
		return nil, err
	}
	for _, key := range zoneKeys {
		zoneID := key[len(zonePrefix):]
		lat, lng, ok := geo.ParseZoneID(zoneID)
		if !ok {
			// Private-room placeholder entries are surfaced through the
			// room records below.
			continue
		}
		members, err := store.SetMembers(ctx, key)
		if err != nil {
			return nil, err
		}
		if len(members) == 0 {
			continue
		}
		zones = append(zones, chat.ActiveZone{
			ZoneID:    zoneID,
			Lat:       lat,
			Lng:       lng,
			UserCount: len(members),
		})
	}

	roomKeys, err := store.ScanKeys(ctx, privateRoomPrefix+"*", 500)
	if err != nil {
		return nil, err
	}
	for _, key := range roomKeys {
		data, ok, err := store.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		var room chat.Room
		if err := json.Unmarshal(data, &room); err != nil {
			// Malformed room records are skipped, not fatal.
			continue
		}
		if room.Status != chat.StatusWaiting {
			continue
		}
		count := room.UserCount
		if count == 0 {
			count = 1
		}
		zones = append(zones, chat.ActiveZone{
			ZoneID:    room.ID,
			Lat:       room.Lat,
			Lng:       room.Lng,
			UserCount: count,
		})
	}

	return zones, nil
}

// resolveMembers maps member ids to profiles via their session records.
// Members whose session expired separately are silently skipped, not
// repaired; the membership entry outliving the session is an accepted
// TTL-skew edge case.
func (s *PresenceService) resolveMembers(ctx context.Context, store ports.PresenceStore, zoneID string) ([]chat.Member, error) {
	userIDs, err := store.SetMembers(ctx, zonePrefix+zoneID)
	if err != nil {
		return nil, err
	}
	members := []chat.Member{}
	for _, userID := range userIDs {
		session, ok, err := s.getSession(ctx, store, userID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		members = append(members, chat.Member{
			UserID:   userID,
			Username: session.Username,
			Gender:   session.Gender,
			JoinedAt: session.JoinedAt,
		})
	}
	return members, nil
}

func (s *PresenceService) getSession(ctx context.Context, store ports.PresenceStore, userID string) (*chat.Session, bool, error) {
	data, ok, err := store.Get(ctx, sessionPrefix+userID)
	if err != nil || !ok {
		return nil, false, err
	}
	var session chat.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, false, nil
	}
	return &session, true, nil
}

// appendMessage pushes most-recent-first, trims the log to capacity and
// refreshes the log TTL on every send.
func (s *PresenceService) appendMessage(ctx context.Context, store ports.PresenceStore, key string, msg *chat.Message, ttl time.Duration) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := store.ListPush(ctx, key, data); err != nil {
		return err
	}
	if err := store.ListTrim(ctx, key, 0, s.cfg.MessageLogCapacity-1); err != nil {
		return err
	}
	return store.Expire(ctx, key, ttl)
}

// readMessages returns the newest entries of a most-recent-first log in
// chronological order.
func (s *PresenceService) readMessages(ctx context.Context, store ports.PresenceStore, key string, limit int64) ([]chat.Message, error) {
	raw, err := store.ListRange(ctx, key, 0, limit-1)
	if err != nil {
		return nil, err
	}
	messages := make([]chat.Message, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var msg chat.Message
		if err := json.Unmarshal(raw[i], &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
