// Package routing chooses the backend model for a request.
//
// DESIGN: Selection is a pure function of (task type, tier). It never fails
// and never does I/O. Three model slots exist:
//   - cheap:    every free request, premium requests outside the hard tasks
//   - upgraded: premium math_advanced and ocr_complex
//   - top:      every premiumPlus request
//
// Slots default to OpenAI models and can be re-pointed through config.
// The token budgets and temperatures are fixed policy.
package routing

import (
	"strings"

	"github.com/starnote/ai-gateway/internal/adapters"
	"github.com/starnote/ai-gateway/internal/config"
)

// TaskType is the kind of work the client asks for.
// Unknown values are accepted and routed by the same rules.
type TaskType string

const (
	TaskChat           TaskType = "chat"
	TaskMathSimple     TaskType = "math_simple"
	TaskMathAdvanced   TaskType = "math_advanced"
	TaskOCRSimple      TaskType = "ocr_simple"
	TaskOCRComplex     TaskType = "ocr_complex"
	TaskSummarizeShort TaskType = "summarize_short"
	TaskSummarizeLong  TaskType = "summarize_long"
)

// Tier is the caller's subscription level.
type Tier string

const (
	TierFree        Tier = "free"
	TierPremium     Tier = "premium"
	TierPremiumPlus Tier = "premiumPlus"
)

// DailyLimit returns the daily message quota for a tier.
// Unknown tiers get the free quota.
func (t Tier) DailyLimit() int {
	switch t {
	case TierPremium:
		return config.DailyLimitPremium
	case TierPremiumPlus:
		return config.DailyLimitPremiumPlus
	default:
		return config.DailyLimitFree
	}
}

// TierFromString converts a string to a Tier, defaulting to free.
func TierFromString(s string) Tier {
	switch Tier(s) {
	case TierPremium:
		return TierPremium
	case TierPremiumPlus:
		return TierPremiumPlus
	default:
		return TierFree
	}
}

// Slot is one routable backend.
type Slot struct {
	Provider adapters.Provider
	Model    string
}

// Selector holds the model for each routing slot.
type Selector struct {
	Cheap    Slot
	Upgraded Slot
	Top      Slot
}

// DefaultSelector routes to gpt-4o-mini and gpt-4o.
func DefaultSelector() Selector {
	return Selector{
		Cheap:    Slot{Provider: adapters.ProviderOpenAI, Model: config.DefaultCheapModel},
		Upgraded: Slot{Provider: adapters.ProviderOpenAI, Model: config.DefaultUpgradedModel},
		Top:      Slot{Provider: adapters.ProviderOpenAI, Model: config.DefaultTopModel},
	}
}

// NewSelector builds a Selector from routing config.
func NewSelector(cfg config.RoutingConfig) Selector {
	slot := func(s config.ModelSlot) Slot {
		return Slot{Provider: adapters.ProviderFromString(s.Provider), Model: s.Model}
	}
	return Selector{
		Cheap:    slot(cfg.Models.Cheap),
		Upgraded: slot(cfg.Models.Upgraded),
		Top:      slot(cfg.Models.Top),
	}
}

// Select returns the backend config for a task and tier using the default slots.
func Select(task TaskType, tier Tier) adapters.BackendConfig {
	return DefaultSelector().Select(task, tier)
}

// Select returns the backend config for a task and tier.
func (s Selector) Select(task TaskType, tier Tier) adapters.BackendConfig {
	switch tier {
	case TierPremium:
		if task == TaskMathAdvanced || task == TaskOCRComplex {
			return s.Upgraded.config(4096, 0.2)
		}
		return s.Cheap.config(2048, temperature(task))
	case TierPremiumPlus:
		if task == TaskMathAdvanced {
			return s.Top.config(8192, 0.2)
		}
		return s.Top.config(4096, temperature(task))
	default:
		maxTokens := 1024
		if strings.HasPrefix(string(task), "summarize") {
			maxTokens = 2048
		}
		return s.Cheap.config(maxTokens, temperature(task))
	}
}

func (s Slot) config(maxTokens int, temp float64) adapters.BackendConfig {
	return adapters.BackendConfig{
		Provider:        s.Provider,
		Model:           s.Model,
		MaxOutputTokens: maxTokens,
		Temperature:     temp,
	}
}

// temperature is low for tasks whose output is checked or transcribed.
func temperature(task TaskType) float64 {
	t := string(task)
	if strings.Contains(t, "math") || strings.Contains(t, "ocr") {
		return 0.2
	}
	return 0.7
}
