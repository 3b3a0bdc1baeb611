package chat

import "errors"

// Domain errors callers are expected to branch on with errors.Is. These are
// ordinary, display-worthy outcomes, not crashes.
var (
	// ErrPresenceUnavailable means no live backend exists for presence
	// state. Presence has no local fallback: one instance's in-memory view
	// would not match another's, so the feature fails loudly instead.
	ErrPresenceUnavailable = errors.New("presence backend unavailable")

	// ErrNotAMember rejects a message or poll from a user who is not in
	// the zone's member set. Checked fresh on every send, never cached.
	ErrNotAMember = errors.New("user not in zone")

	// ErrSessionExpired means the user's session record expired while the
	// membership entry survived (the two carry independent TTLs).
	ErrSessionExpired = errors.New("user session expired")

	// ErrRoomNotFound means the private room does not exist or its TTL
	// elapsed.
	ErrRoomNotFound = errors.New("chat room not found or expired")

	// ErrRoomNotAvailable rejects joining a room that is no longer waiting
	// for a second participant.
	ErrRoomNotAvailable = errors.New("chat room is not available")

	// ErrSessionEnded is terminal: the private session was torn down by
	// either participant leaving, or never existed. Not resumable.
	ErrSessionEnded = errors.New("chat session has ended")
)
