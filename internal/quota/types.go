// Package quota enforces the per-user daily message quota and records usage.
//
// DESIGN: Three collaborators, each behind an interface:
//   - TierResolver: user -> subscription tier
//   - Store:        daily message count (read) and usage increment (write)
//   - Recorder:     detached, best-effort usage writes
//
// Store implementations:
//   - SQLiteStore: local database, for single-instance deployments
//   - RPCStore:    database functions behind a PostgREST endpoint
package quota

import (
	"context"
	"time"

	"github.com/starnote/ai-gateway/internal/routing"
)

// DateLayout is the day key used by every store.
const DateLayout = "2006-01-02"

// UsageRecord is one usage increment.
type UsageRecord struct {
	UserID        string
	Date          string
	Model         string
	Provider      string
	InputTokens   int
	OutputTokens  int
	RequestCount  int
	EstimatedCost float64
}

// Store reads and increments per-user daily usage.
type Store interface {
	// DailyCount returns how many requests the user made today.
	DailyCount(ctx context.Context, userID string) (int, error)

	// RecordUsage adds one usage increment.
	RecordUsage(ctx context.Context, rec UsageRecord) error

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// TierResolver returns a user's subscription tier.
type TierResolver interface {
	ResolveTier(ctx context.Context, userID string) (routing.Tier, error)
}

// Status is the result of a quota check.
type Status struct {
	Tier      routing.Tier
	Limit     int
	Count     int
	Remaining int
	ResetAt   time.Time
}

// Exceeded reports whether the caller has no messages left today.
func (s Status) Exceeded() bool {
	return s.Remaining <= 0
}
