package ports

import "context"

// AbuseLimiter bounds abuse per opaque client token. It only counts: every
// method returns the updated count for the relevant window and the caller
// compares it against its own threshold to decide allow/deny. Counting
// failures fail open (count 0, error logged by the implementation).
//
// Identity is a long-lived client-side token, not an authenticated user; a
// client that regenerates its token resets its quotas. That is the trust
// model, not a bug.
type AbuseLimiter interface {
	// DailyCount increments the UTC-calendar-day window for (identity,
	// action). The window self-expires at UTC midnight.
	DailyCount(ctx context.Context, identity, action string) (int64, error)
	// MinuteCount increments a fixed 60s window.
	MinuteCount(ctx context.Context, identity, action string) (int64, error)
	// HourCount increments a fixed 3600s window.
	HourCount(ctx context.Context, identity, action string) (int64, error)
	// CooldownCount increments a short fixed window; any count above 1 is
	// a violation of the 1-per-N-seconds gate.
	CooldownCount(ctx context.Context, identity, action string) (int64, error)
	// DuplicateCount increments a window keyed by a stable hash of the
	// normalized content fields.
	DuplicateCount(ctx context.Context, fields ...string) (int64, error)
}
