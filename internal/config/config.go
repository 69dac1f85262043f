// Package config loads the gateway configuration from YAML.
//
// DESIGN: One Config struct mirrors the YAML file section by section.
// Load expands ${VAR} and ${VAR:-default} references, applies defaults for
// every field left empty, then validates. Secrets are only ever read from the
// environment through those references.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/starnote/ai-gateway/internal/monitoring"
	"gopkg.in/yaml.v3"
)

// Config is the root gateway configuration.
type Config struct {
	Server     ServerConfig            `yaml:"server"`
	Providers  ProvidersConfig         `yaml:"providers"`
	Routing    RoutingConfig           `yaml:"routing"`
	Auth       AuthConfig              `yaml:"auth"`
	Quota      QuotaConfig             `yaml:"quota"`
	Usage      UsageConfig             `yaml:"usage"`
	Analyze    AnalyzeConfig           `yaml:"analyze"`
	Prompt     PromptConfig            `yaml:"prompt"`
	CORS       CORSConfig              `yaml:"cors"`
	Logging    monitoring.LoggerConfig `yaml:"logging"`
	Monitoring MonitoringConfig        `yaml:"monitoring"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// RateLimit is requests per second per client IP. Zero disables throttling.
	RateLimit int `yaml:"rate_limit"`
}

// ProviderConfig holds credentials and endpoint for one LLM provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// ProvidersConfig lists the supported providers.
type ProvidersConfig struct {
	OpenAI ProviderConfig `yaml:"openai"`
	Gemini ProviderConfig `yaml:"gemini"`
}

// ModelSlot binds a routing slot to a provider and model.
type ModelSlot struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// RoutingConfig overrides which backend serves each routing slot.
type RoutingConfig struct {
	Models struct {
		Cheap    ModelSlot `yaml:"cheap"`
		Upgraded ModelSlot `yaml:"upgraded"`
		Top      ModelSlot `yaml:"top"`
	} `yaml:"models"`
}

// Auth modes.
const (
	AuthModeJWT    = "jwt"
	AuthModeRemote = "remote"
	AuthModeNone   = "none"
)

// AuthConfig selects how bearer credentials are verified.
type AuthConfig struct {
	Mode      string `yaml:"mode"`
	JWTSecret string `yaml:"jwt_secret"`
	URL       string `yaml:"url"`
	AnonKey   string `yaml:"anon_key"`
}

// Quota stores.
const (
	QuotaStoreSQLite = "sqlite"
	QuotaStoreRPC    = "rpc"
)

// QuotaConfig configures the daily message quota.
type QuotaConfig struct {
	Store         string            `yaml:"store"`
	SQLitePath    string            `yaml:"sqlite_path"`
	RPCURL        string            `yaml:"rpc_url"`
	ServiceKey    string            `yaml:"service_key"`
	Timezone      string            `yaml:"timezone"`
	DefaultTier   string            `yaml:"default_tier"`
	TierOverrides map[string]string `yaml:"tier_overrides"`
	// LookupTimeout bounds the tier and daily-count reads of one request.
	LookupTimeout time.Duration     `yaml:"lookup_timeout"`
}

// UsageConfig configures the detached usage log.
type UsageConfig struct {
	TokenCounter string        `yaml:"token_counter"`
	LogTimeout   time.Duration `yaml:"log_timeout"`
}

// AnalyzeConfig configures the analyze delegate.
type AnalyzeConfig struct {
	// ChatURL is where analyze requests are forwarded. Empty means this
	// server's own chat endpoint.
	ChatURL string `yaml:"chat_url"`
}

// PromptConfig holds the system prompt prepended to every conversation.
type PromptConfig struct {
	System string `yaml:"system"`
}

// CORSConfig holds the headers attached to every public endpoint response.
type CORSConfig struct {
	AllowedOrigin  string `yaml:"allowed_origin"`
	AllowedHeaders string `yaml:"allowed_headers"`
	AllowedMethods string `yaml:"allowed_methods"`
}

// MonitoringConfig configures telemetry.
type MonitoringConfig struct {
	Telemetry monitoring.TelemetryConfig `yaml:"telemetry"`
}

// Load reads, expands and validates a YAML config file.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config path is supplied by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses a YAML config, applies defaults and validates it.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := ExpandEnvWithDefaults(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config built only from defaults and the environment.
func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

// ApplyDefaults fills every empty field with its default.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultServerWriteTimeout
	}

	if c.Providers.OpenAI.APIKey == "" {
		c.Providers.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Providers.OpenAI.BaseURL == "" {
		c.Providers.OpenAI.BaseURL = DefaultOpenAIBaseURL
	}
	if c.Providers.Gemini.APIKey == "" {
		c.Providers.Gemini.APIKey = os.Getenv("GOOGLE_AI_API_KEY")
	}
	if c.Providers.Gemini.BaseURL == "" {
		c.Providers.Gemini.BaseURL = DefaultGeminiBaseURL
	}

	fillSlot(&c.Routing.Models.Cheap, DefaultCheapModel)
	fillSlot(&c.Routing.Models.Upgraded, DefaultUpgradedModel)
	fillSlot(&c.Routing.Models.Top, DefaultTopModel)

	if c.Auth.Mode == "" {
		c.Auth.Mode = AuthModeJWT
	}
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = os.Getenv("SUPABASE_JWT_SECRET")
	}
	if c.Auth.URL == "" {
		c.Auth.URL = os.Getenv("SUPABASE_URL")
	}
	if c.Auth.AnonKey == "" {
		c.Auth.AnonKey = os.Getenv("SUPABASE_ANON_KEY")
	}

	if c.Quota.Store == "" {
		c.Quota.Store = QuotaStoreSQLite
	}
	if c.Quota.SQLitePath == "" {
		c.Quota.SQLitePath = DefaultSQLitePath
	}
	if c.Quota.RPCURL == "" {
		c.Quota.RPCURL = os.Getenv("SUPABASE_URL")
	}
	if c.Quota.ServiceKey == "" {
		c.Quota.ServiceKey = os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	}
	if c.Quota.Timezone == "" {
		c.Quota.Timezone = DefaultQuotaTimezone
	}
	if c.Quota.DefaultTier == "" {
		c.Quota.DefaultTier = DefaultTier
	}
	if c.Quota.LookupTimeout == 0 {
		c.Quota.LookupTimeout = DefaultCollaboratorTimeout
	}

	if c.Usage.TokenCounter == "" {
		c.Usage.TokenCounter = TokenCounterChars
	}
	if c.Usage.LogTimeout == 0 {
		c.Usage.LogTimeout = DefaultUsageLogTimeout
	}

	if c.Prompt.System == "" {
		c.Prompt.System = DefaultSystemPrompt
	}

	if c.CORS.AllowedOrigin == "" {
		c.CORS.AllowedOrigin = "*"
	}
	if c.CORS.AllowedHeaders == "" {
		c.CORS.AllowedHeaders = "authorization, x-client-info, apikey, content-type"
	}
	if c.CORS.AllowedMethods == "" {
		c.CORS.AllowedMethods = "POST, OPTIONS"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "auto"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stderr"
	}
}

func fillSlot(s *ModelSlot, model string) {
	if s.Provider == "" {
		s.Provider = DefaultRoutingProvider
	}
	if s.Model == "" {
		s.Model = model
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}

	for name, slot := range map[string]ModelSlot{
		"cheap":    c.Routing.Models.Cheap,
		"upgraded": c.Routing.Models.Upgraded,
		"top":      c.Routing.Models.Top,
	} {
		switch slot.Provider {
		case "openai", "google":
		default:
			return fmt.Errorf("routing.models.%s.provider must be openai or google, got %q", name, slot.Provider)
		}
	}

	switch c.Auth.Mode {
	case AuthModeJWT:
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret is required for auth mode %q", AuthModeJWT)
		}
	case AuthModeRemote:
		if c.Auth.URL == "" {
			return fmt.Errorf("auth.url is required for auth mode %q", AuthModeRemote)
		}
	case AuthModeNone:
	default:
		return fmt.Errorf("unknown auth.mode %q", c.Auth.Mode)
	}

	switch c.Quota.Store {
	case QuotaStoreSQLite:
		if c.Quota.SQLitePath == "" {
			return fmt.Errorf("quota.sqlite_path is required")
		}
	case QuotaStoreRPC:
		if c.Quota.RPCURL == "" {
			return fmt.Errorf("quota.rpc_url is required for quota store %q", QuotaStoreRPC)
		}
	default:
		return fmt.Errorf("unknown quota.store %q", c.Quota.Store)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if !validTier(c.Quota.DefaultTier) {
		return fmt.Errorf("quota.default_tier %q is not a known tier", c.Quota.DefaultTier)
	}
	for user, tier := range c.Quota.TierOverrides {
		if !validTier(tier) {
			return fmt.Errorf("quota.tier_overrides[%s]: unknown tier %q", user, tier)
		}
	}

	switch c.Usage.TokenCounter {
	case TokenCounterChars, TokenCounterTiktoken:
	default:
		return fmt.Errorf("unknown usage.token_counter %q", c.Usage.TokenCounter)
	}

	return nil
}

// Location resolves the quota reset time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Quota.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid quota.timezone %q: %w", c.Quota.Timezone, err)
	}
	return loc, nil
}

func validTier(t string) bool {
	switch strings.TrimSpace(t) {
	case "free", "premium", "premiumPlus":
		return true
	}
	return false
}
