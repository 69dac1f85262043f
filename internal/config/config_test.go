package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnvWithDefaults(t *testing.T) {
	t.Setenv("GW_TEST_SET", "value")
	t.Setenv("GW_TEST_EMPTY", "")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"set", "key: ${GW_TEST_SET}", "key: value"},
		{"unset no default", "key: ${GW_TEST_UNSET}", "key: "},
		{"unset with default", "key: ${GW_TEST_UNSET:-fallback}", "key: fallback"},
		{"empty uses default", "key: ${GW_TEST_EMPTY:-fallback}", "key: fallback"},
		{"set ignores default", "key: ${GW_TEST_SET:-fallback}", "key: value"},
		{"plain dollar untouched", "price: $5", "price: $5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandEnvWithDefaults(tt.in))
		})
	}
}

func TestLoadFromBytes_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("GOOGLE_AI_API_KEY", "")

	cfg, err := LoadFromBytes([]byte("auth:\n  mode: none\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultServerWriteTimeout, cfg.Server.WriteTimeout)
	assert.Equal(t, "sk-env", cfg.Providers.OpenAI.APIKey)
	assert.Empty(t, cfg.Providers.Gemini.APIKey)
	assert.Equal(t, DefaultOpenAIBaseURL, cfg.Providers.OpenAI.BaseURL)
	assert.Equal(t, ModelSlot{Provider: "openai", Model: "gpt-4o-mini"}, cfg.Routing.Models.Cheap)
	assert.Equal(t, ModelSlot{Provider: "openai", Model: "gpt-4o"}, cfg.Routing.Models.Top)
	assert.Equal(t, QuotaStoreSQLite, cfg.Quota.Store)
	assert.Equal(t, "free", cfg.Quota.DefaultTier)
	assert.Equal(t, DefaultCollaboratorTimeout, cfg.Quota.LookupTimeout)
	assert.Equal(t, TokenCounterChars, cfg.Usage.TokenCounter)
	assert.Equal(t, DefaultSystemPrompt, cfg.Prompt.System)
	assert.Equal(t, "*", cfg.CORS.AllowedOrigin)
	assert.Equal(t, "POST, OPTIONS", cfg.CORS.AllowedMethods)
}

func TestLoadFromBytes_FullFile(t *testing.T) {
	t.Setenv("GW_TEST_SECRET", "s3cret")

	yml := `
server:
  port: 9090
  write_timeout: 2m
  rate_limit: 5
routing:
  models:
    cheap:
      provider: google
      model: gemini-2.0-flash
auth:
  mode: jwt
  jwt_secret: ${GW_TEST_SECRET}
quota:
  store: rpc
  rpc_url: https://db.example.com
  timezone: Europe/Istanbul
  tier_overrides:
    user-1: premiumPlus
usage:
  token_counter: tiktoken
  log_timeout: 3s
`
	cfg, err := LoadFromBytes([]byte(yml))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, 5, cfg.Server.RateLimit)
	assert.Equal(t, ModelSlot{Provider: "google", Model: "gemini-2.0-flash"}, cfg.Routing.Models.Cheap)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "premiumPlus", cfg.Quota.TierOverrides["user-1"])
	assert.Equal(t, 3*time.Second, cfg.Usage.LogTimeout)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Istanbul", loc.String())
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		yml  string
		msg  string
	}{
		{"bad port", "auth: {mode: none}\nserver: {port: 70000}", "server.port"},
		{"jwt without secret", "auth: {mode: jwt, jwt_secret: ''}", "auth.jwt_secret"},
		{"remote without url", "auth: {mode: remote}", "auth.url"},
		{"unknown auth", "auth: {mode: oauth}", "unknown auth.mode"},
		{"unknown store", "auth: {mode: none}\nquota: {store: redis}", "unknown quota.store"},
		{"bad tier", "auth: {mode: none}\nquota: {default_tier: gold}", "quota.default_tier"},
		{"bad override", "auth: {mode: none}\nquota: {tier_overrides: {u: gold}}", "tier_overrides"},
		{"bad zone", "auth: {mode: none}\nquota: {timezone: Mars/Base}", "quota.timezone"},
		{"bad counter", "auth: {mode: none}\nusage: {token_counter: words}", "usage.token_counter"},
		{"bad provider", "auth: {mode: none}\nrouting: {models: {top: {provider: anthropic}}}", "routing.models.top"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SUPABASE_JWT_SECRET", "")
			t.Setenv("SUPABASE_URL", "")
			_, err := LoadFromBytes([]byte(tt.yml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  mode: none\nserver:\n  port: 8181\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.Server.Port)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
