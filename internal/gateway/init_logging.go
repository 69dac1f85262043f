package gateway

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/starnote/ai-gateway/internal/config"
	"github.com/starnote/ai-gateway/internal/utils"
)

// initProvider describes one configured provider at startup.
type initProvider struct {
	Name      string
	BaseURL   string
	HasAPIKey bool
	APIKey    string // masked
}

func buildInitProviders(cfg *config.Config) []initProvider {
	byName := map[string]config.ProviderConfig{
		"openai": cfg.Providers.OpenAI,
		"google": cfg.Providers.Gemini,
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]initProvider, 0, len(names))
	for _, name := range names {
		p := byName[name]
		out = append(out, initProvider{
			Name:      name,
			BaseURL:   p.BaseURL,
			HasAPIKey: strings.TrimSpace(p.APIKey) != "",
			APIKey:    utils.MaskKey(p.APIKey),
		})
	}
	return out
}

// logInit writes one structured line describing the effective configuration.
// Secrets are masked.
func logInit(cfg *config.Config, addr string) {
	providers := zerolog.Arr()
	for _, p := range buildInitProviders(cfg) {
		providers.Dict(zerolog.Dict().
			Str("name", p.Name).
			Str("base_url", p.BaseURL).
			Bool("has_api_key", p.HasAPIKey).
			Str("api_key", p.APIKey))
	}

	slots := cfg.Routing.Models
	log.Info().
		Str("event", "gateway_init").
		Str("addr", addr).
		Array("providers", providers).
		Str("cheap", slots.Cheap.Provider+"/"+slots.Cheap.Model).
		Str("upgraded", slots.Upgraded.Provider+"/"+slots.Upgraded.Model).
		Str("top", slots.Top.Provider+"/"+slots.Top.Model).
		Str("auth_mode", cfg.Auth.Mode).
		Str("quota_store", cfg.Quota.Store).
		Str("quota_timezone", cfg.Quota.Timezone).
		Str("token_counter", cfg.Usage.TokenCounter).
		Int("rate_limit", cfg.Server.RateLimit).
		Dur("read_timeout", cfg.Server.ReadTimeout).
		Dur("write_timeout", cfg.Server.WriteTimeout).
		Bool("telemetry", cfg.Monitoring.Telemetry.Enabled).
		Msg("gateway listening")
}
