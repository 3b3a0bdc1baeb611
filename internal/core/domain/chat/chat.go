package chat

import (
	"time"
)

// Profile is the self-reported identity a user joins with. There is no
// account behind it; userId is the only stable handle.
type Profile struct {
	Username string `json:"username"`
	Gender   string `json:"gender"`
}

// Session is the ephemeral per-user record created on join and deleted on
// explicit leave. It carries its own TTL, independent of the zone member
// set, so the two may expire at different times.
type Session struct {
	Username string    `json:"username"`
	Gender   string    `json:"gender"`
	ZoneID   string    `json:"zoneId"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Member is a resolved zone member as returned to pollers.
type Member struct {
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	Gender   string    `json:"gender"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Message is one entry of a zone or private message log. Logs are stored
// most-recent-first, capped, and expire with the log's TTL.
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Username  string    `json:"username"`
	Gender    string    `json:"gender"`
	Text      string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	ZoneID    string    `json:"zoneId,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
}

// MessagePage is the poll result for a zone log.
type MessagePage struct {
	Messages []Message `json:"messages"`
	Total    int64     `json:"total"`
	HasMore  bool      `json:"hasMore"`
	ZoneID   string    `json:"zoneId"`
}

// ActiveZone is one map marker: either a populated coordinate-bucket zone
// or a private room still waiting for its second participant.
type ActiveZone struct {
	ZoneID    string  `json:"zoneId"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	UserCount int     `json:"userCount"`
}

// RoomStatus is the private room / session lifecycle state.
type RoomStatus string

const (
	StatusWaiting RoomStatus = "waiting"
	StatusActive  RoomStatus = "active"
	StatusEnded   RoomStatus = "ended"
)

// Room is a 1:1 private chat room pinned to a coordinate. Occupancy moves
// 1→2 in lockstep with the waiting→active transition.
type Room struct {
	ID        string     `json:"id"`
	Lat       float64    `json:"lat"`
	Lng       float64    `json:"lng"`
	CreatedAt time.Time  `json:"createdAt"`
	UserCount int        `json:"userCount"`
	Status    RoomStatus `json:"status"`
}

// Participant is one of the at most two users of a private session.
type Participant struct {
	Username string    `json:"username"`
	Gender   string    `json:"gender"`
	JoinedAt time.Time `json:"joinedAt"`
}

// PrivateSession tracks the conversation attached to a Room. Either
// participant leaving ends it for both; ended is terminal.
type PrivateSession struct {
	ID        string        `json:"id"`
	RoomID    string        `json:"chatRoomId"`
	Users     []Participant `json:"users"`
	CreatedAt time.Time     `json:"createdAt"`
	EndedAt   *time.Time    `json:"endedAt,omitempty"`
	Status    RoomStatus    `json:"status"`
}
