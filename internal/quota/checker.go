package quota

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/starnote/ai-gateway/internal/config"
	"github.com/starnote/ai-gateway/internal/routing"
)

// Checker computes the remaining daily quota for a user.
type Checker struct {
	store   Store
	tiers   TierResolver
	loc     *time.Location
	timeout time.Duration
	now     func() time.Time
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithClock overrides the time source.
func WithClock(now func() time.Time) CheckerOption {
	return func(c *Checker) {
		c.now = now
	}
}

// WithLookupTimeout bounds the collaborator calls of one Check.
// Non-positive values keep the default.
func WithLookupTimeout(d time.Duration) CheckerOption {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewChecker creates a checker. loc is the zone whose midnight resets quotas.
func NewChecker(store Store, tiers TierResolver, loc *time.Location, opts ...CheckerOption) *Checker {
	if loc == nil {
		loc = time.Local
	}
	c := &Checker{
		store:   store,
		tiers:   tiers,
		loc:     loc,
		timeout: config.DefaultCollaboratorTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check never fails: a tier lookup error falls back to free and a count
// read error counts as zero. Both are logged.
func (c *Checker) Check(ctx context.Context, userID string) Status {
	lookupCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	tier, err := c.tiers.ResolveTier(lookupCtx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("quota: tier lookup failed, using free")
		tier = routing.TierFree
	}

	count, err := c.store.DailyCount(lookupCtx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("quota: daily count read failed, assuming 0")
		count = 0
	}

	limit := tier.DailyLimit()
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	return Status{
		Tier:      tier,
		Limit:     limit,
		Count:     count,
		Remaining: remaining,
		ResetAt:   NextReset(c.now(), c.loc),
	}
}

// Today returns the current day key in the checker's zone.
func (c *Checker) Today() string {
	return c.now().In(c.loc).Format(DateLayout)
}

// NextReset returns the next midnight after now in loc.
func NextReset(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}
