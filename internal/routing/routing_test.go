package routing

import (
	"testing"

	"github.com/starnote/ai-gateway/internal/adapters"
	"github.com/starnote/ai-gateway/internal/config"
	"github.com/stretchr/testify/assert"
)

var allTasks = []TaskType{
	TaskChat, TaskMathSimple, TaskMathAdvanced, TaskOCRSimple,
	TaskOCRComplex, TaskSummarizeShort, TaskSummarizeLong,
}

var allTiers = []Tier{TierFree, TierPremium, TierPremiumPlus}

func TestSelect_Policy(t *testing.T) {
	tests := []struct {
		task  TaskType
		tier  Tier
		model string
		max   int
		temp  float64
	}{
		{TaskChat, TierFree, "gpt-4o-mini", 1024, 0.7},
		{TaskMathSimple, TierFree, "gpt-4o-mini", 1024, 0.2},
		{TaskMathAdvanced, TierFree, "gpt-4o-mini", 1024, 0.2},
		{TaskOCRSimple, TierFree, "gpt-4o-mini", 1024, 0.2},
		{TaskOCRComplex, TierFree, "gpt-4o-mini", 1024, 0.2},
		{TaskSummarizeShort, TierFree, "gpt-4o-mini", 2048, 0.7},
		{TaskSummarizeLong, TierFree, "gpt-4o-mini", 2048, 0.7},

		{TaskChat, TierPremium, "gpt-4o-mini", 2048, 0.7},
		{TaskMathSimple, TierPremium, "gpt-4o-mini", 2048, 0.2},
		{TaskMathAdvanced, TierPremium, "gpt-4o", 4096, 0.2},
		{TaskOCRSimple, TierPremium, "gpt-4o-mini", 2048, 0.2},
		{TaskOCRComplex, TierPremium, "gpt-4o", 4096, 0.2},
		{TaskSummarizeShort, TierPremium, "gpt-4o-mini", 2048, 0.7},
		{TaskSummarizeLong, TierPremium, "gpt-4o-mini", 2048, 0.7},

		{TaskChat, TierPremiumPlus, "gpt-4o", 4096, 0.7},
		{TaskMathSimple, TierPremiumPlus, "gpt-4o", 4096, 0.2},
		{TaskMathAdvanced, TierPremiumPlus, "gpt-4o", 8192, 0.2},
		{TaskOCRSimple, TierPremiumPlus, "gpt-4o", 4096, 0.2},
		{TaskOCRComplex, TierPremiumPlus, "gpt-4o", 4096, 0.2},
		{TaskSummarizeShort, TierPremiumPlus, "gpt-4o", 4096, 0.7},
		{TaskSummarizeLong, TierPremiumPlus, "gpt-4o", 4096, 0.7},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier)+"/"+string(tt.task), func(t *testing.T) {
			got := Select(tt.task, tt.tier)
			assert.Equal(t, adapters.ProviderOpenAI, got.Provider)
			assert.Equal(t, tt.model, got.Model)
			assert.Equal(t, tt.max, got.MaxOutputTokens)
			assert.Equal(t, tt.temp, got.Temperature)
		})
	}
}

func TestSelect_TotalAndDeterministic(t *testing.T) {
	for _, tier := range allTiers {
		for _, task := range allTasks {
			a := Select(task, tier)
			b := Select(task, tier)
			assert.Equal(t, a, b)
			assert.NotEmpty(t, a.Model)
			assert.Positive(t, a.MaxOutputTokens)
			assert.GreaterOrEqual(t, a.Temperature, 0.0)
			assert.LessOrEqual(t, a.Temperature, 2.0)
		}
	}
}

func TestSelect_UnknownInputs(t *testing.T) {
	// Unknown task strings follow the substring rules.
	got := Select("summarize_chapter", TierFree)
	assert.Equal(t, 2048, got.MaxOutputTokens)
	assert.Equal(t, 0.7, got.Temperature)

	got = Select("handwriting_ocr", TierPremium)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 0.2, got.Temperature)

	// Unknown tiers route like free.
	assert.Equal(t, Select(TaskChat, TierFree), Select(TaskChat, "gold"))
}

func TestNewSelector_ConfiguredSlots(t *testing.T) {
	var cfg config.RoutingConfig
	cfg.Models.Cheap = config.ModelSlot{Provider: "google", Model: "gemini-2.0-flash"}
	cfg.Models.Upgraded = config.ModelSlot{Provider: "openai", Model: "gpt-4o"}
	cfg.Models.Top = config.ModelSlot{Provider: "openai", Model: "gpt-4.1"}
	s := NewSelector(cfg)

	got := s.Select(TaskChat, TierFree)
	assert.Equal(t, adapters.ProviderGoogle, got.Provider)
	assert.Equal(t, "gemini-2.0-flash", got.Model)
	assert.Equal(t, 1024, got.MaxOutputTokens)

	got = s.Select(TaskMathAdvanced, TierPremiumPlus)
	assert.Equal(t, "gpt-4.1", got.Model)
	assert.Equal(t, 8192, got.MaxOutputTokens)
}

func TestTier(t *testing.T) {
	assert.Equal(t, 15, TierFree.DailyLimit())
	assert.Equal(t, 150, TierPremium.DailyLimit())
	assert.Equal(t, 1000, TierPremiumPlus.DailyLimit())
	assert.Equal(t, 15, Tier("gold").DailyLimit())

	assert.Equal(t, TierPremiumPlus, TierFromString("premiumPlus"))
	assert.Equal(t, TierFree, TierFromString("PREMIUM"))
}
