package quota

import (
	"context"

	"github.com/starnote/ai-gateway/internal/routing"
)

// StaticTierResolver assigns the same tier to every user.
type StaticTierResolver struct {
	Tier routing.Tier
}

// ResolveTier implements TierResolver.
func (r StaticTierResolver) ResolveTier(context.Context, string) (routing.Tier, error) {
	if r.Tier == "" {
		return routing.TierFree, nil
	}
	return r.Tier, nil
}

// MapTierResolver looks users up in a fixed table and falls back to Default.
type MapTierResolver struct {
	Overrides map[string]routing.Tier
	Default   routing.Tier
}

// NewTierResolver builds a resolver from config values.
// Without overrides it is a StaticTierResolver.
func NewTierResolver(defaultTier string, overrides map[string]string) TierResolver {
	def := routing.TierFromString(defaultTier)
	if len(overrides) == 0 {
		return StaticTierResolver{Tier: def}
	}
	m := make(map[string]routing.Tier, len(overrides))
	for user, tier := range overrides {
		m[user] = routing.TierFromString(tier)
	}
	return MapTierResolver{Overrides: m, Default: def}
}

// ResolveTier implements TierResolver.
func (r MapTierResolver) ResolveTier(_ context.Context, userID string) (routing.Tier, error) {
	if t, ok := r.Overrides[userID]; ok {
		return t, nil
	}
	if r.Default == "" {
		return routing.TierFree, nil
	}
	return r.Default, nil
}
