package main

import (
	"fmt"
	"io"

	"github.com/starnote/ai-gateway/internal/config"
	"github.com/starnote/ai-gateway/internal/utils"
)

// Print helper functions for consistent output formatting.
func printHeader(w io.Writer, title string) {
	_, _ = fmt.Fprintf(w, "\033[1m\033[0;36m========================================\033[0m\n")
	_, _ = fmt.Fprintf(w, "\033[1m\033[0;36m       %s\033[0m\n", title)
	_, _ = fmt.Fprintf(w, "\033[1m\033[0;36m========================================\033[0m\n")
}

func printSuccess(w io.Writer, msg string) {
	_, _ = fmt.Fprintf(w, "\033[0;32m[OK]\033[0m %s\n", msg)
}

func printInfo(w io.Writer, msg string) {
	_, _ = fmt.Fprintf(w, "\033[0;34m[INFO]\033[0m %s\n", msg)
}

func printError(w io.Writer, msg string) {
	_, _ = fmt.Fprintf(w, "\033[0;31m[ERROR]\033[0m %s\n", msg)
}

// printSummary prints the effective config. API keys are masked.
func printSummary(w io.Writer, cfg *config.Config) {
	printHeader(w, "ai-gateway config")
	printInfo(w, fmt.Sprintf("port: %d", cfg.Server.Port))
	printInfo(w, fmt.Sprintf("openai: %s (key %s)", cfg.Providers.OpenAI.BaseURL, utils.MaskKey(cfg.Providers.OpenAI.APIKey)))
	printInfo(w, fmt.Sprintf("gemini: %s (key %s)", cfg.Providers.Gemini.BaseURL, utils.MaskKey(cfg.Providers.Gemini.APIKey)))

	m := cfg.Routing.Models
	printInfo(w, fmt.Sprintf("models: cheap=%s/%s upgraded=%s/%s top=%s/%s",
		m.Cheap.Provider, m.Cheap.Model, m.Upgraded.Provider, m.Upgraded.Model, m.Top.Provider, m.Top.Model))
	printInfo(w, fmt.Sprintf("auth: %s", cfg.Auth.Mode))
	printInfo(w, fmt.Sprintf("quota: store=%s timezone=%s default_tier=%s overrides=%d",
		cfg.Quota.Store, cfg.Quota.Timezone, cfg.Quota.DefaultTier, len(cfg.Quota.TierOverrides)))
	printInfo(w, fmt.Sprintf("usage: counter=%s", cfg.Usage.TokenCounter))
}
