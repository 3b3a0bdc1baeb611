package ports

import (
	"context"
	"time"
)

// KeyValueBackend abstracts one remote cache/store instance. Multiple
// backends may be configured as a redundant pool; each is independent and
// no replication is attempted between them.
//
// Implementations must not fail hard at construction: a backend that cannot
// connect simply reports Healthy() == false and is skipped by callers.
type KeyValueBackend interface {
	// Name identifies the backend for logging and stats.
	Name() string
	// Connect establishes the connection. An error marks the backend
	// unhealthy; it is reported, not fatal.
	Connect(ctx context.Context) error
	// Get returns the raw bytes for key. ok=false if not found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for key with TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Del removes keys; absence is not an error.
	Del(ctx context.Context, keys ...string) error
	// Incr atomically increments the counter at key, creating it at 1.
	Incr(ctx context.Context, key string) (int64, error)
	// Expire attaches a TTL to an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// ScanKeys returns all keys matching a glob pattern, scanned in
	// cursor batches of batchSize to avoid blocking the backend.
	ScanKeys(ctx context.Context, pattern string, batchSize int64) ([]string, error)
	// Healthy reports whether the backend is currently reachable.
	Healthy() bool
	// Close releases the underlying connection.
	Close() error
}

// PresenceStore exposes the set and list primitives the presence directory
// needs on top of a single backend. The backend must guarantee atomicity of
// set-membership mutation and list pushes; all cross-process coordination
// is delegated to it.
type PresenceStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error

	SetAdd(ctx context.Context, key string, members ...string) error
	SetRemove(ctx context.Context, key string, members ...string) error
	SetIsMember(ctx context.Context, key, member string) (bool, error)
	SetMembers(ctx context.Context, key string) ([]string, error)

	ListPush(ctx context.Context, key string, value []byte) error
	ListTrim(ctx context.Context, key string, start, stop int64) error
	ListRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	ListLen(ctx context.Context, key string) (int64, error)

	ScanKeys(ctx context.Context, pattern string, batchSize int64) ([]string, error)
	Healthy() bool
}
