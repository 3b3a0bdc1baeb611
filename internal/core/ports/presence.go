package ports

import (
	"context"

	"github.com/casamapa/casamapa/internal/core/domain/chat"
)

// PresenceDirectory tracks zone membership, ephemeral user sessions and
// short-lived message logs, plus the 1:1 private chat lifecycle. All state
// lives in a single remote backend; if that backend is unreachable every
// operation returns chat.ErrPresenceUnavailable rather than degrading.
type PresenceDirectory interface {
	// Join adds userID to the zone's member set, upserts the session
	// record and refreshes both TTLs. An empty userID is generated.
	// Returns the assigned id and the current resolved member list.
	Join(ctx context.Context, zoneID, userID string, profile chat.Profile) (string, []chat.Member, error)
	// Leave removes the user from the zone and deletes the session.
	// Idempotent: leaving twice is not an error.
	Leave(ctx context.Context, zoneID, userID string) error
	// PostMessage appends to the zone's capped, most-recent-first log.
	// Membership is checked fresh on every send.
	PostMessage(ctx context.Context, zoneID, userID, text string) (*chat.Message, error)
	// ListMessages returns up to limit most recent messages in
	// chronological order with total count and a has-more flag.
	ListMessages(ctx context.Context, zoneID, userID string, limit int64) (*chat.MessagePage, error)
	// ListMembers resolves member ids to profiles, skipping users whose
	// session has separately expired.
	ListMembers(ctx context.Context, zoneID string) ([]chat.Member, error)
	// ListActiveZones enumerates populated coordinate-bucket zones plus
	// private rooms still waiting for a second participant.
	ListActiveZones(ctx context.Context) ([]chat.ActiveZone, error)

	// Private chat lifecycle.
	CreateRoom(ctx context.Context, lat, lng float64) (*chat.Room, error)
	CreateAndJoinRoom(ctx context.Context, lat, lng float64, profile chat.Profile) (*chat.Room, *chat.PrivateSession, error)
	JoinRoom(ctx context.Context, roomID string, profile chat.Profile) (*chat.PrivateSession, error)
	PostPrivateMessage(ctx context.Context, sessionID string, profile chat.Profile, text string) (*chat.Message, error)
	ListPrivateMessages(ctx context.Context, sessionID string) ([]chat.Message, error)
	// LeaveRoom tears down session, message log and room for both
	// participants. Terminal and irreversible.
	LeaveRoom(ctx context.Context, sessionID string) error
}
