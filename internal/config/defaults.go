// Package config - defaults.go centralizes magic numbers and default values.
//
// DESIGN: All default values that appear in multiple places should be defined here.
// This makes configuration more maintainable and auditable.
package config

import "time"

// =============================================================================
// TOKEN ESTIMATION
// =============================================================================

// TokenEstimateRatio is the approximate number of characters per token.
// Used for rough token counting when exact counts aren't available.
const TokenEstimateRatio = 4

// TokenCounterChars estimates tokens as ceil(len/TokenEstimateRatio).
const TokenCounterChars = "chars"

// TokenCounterTiktoken counts tokens with the model's BPE encoding.
const TokenCounterTiktoken = "tiktoken"

// =============================================================================
// QUOTA DEFAULTS
// =============================================================================

// Daily message limits per subscription tier.
const (
	DailyLimitFree        = 15
	DailyLimitPremium     = 150
	DailyLimitPremiumPlus = 1000
)

// DefaultTier is assigned when no tier lookup is configured.
const DefaultTier = "free"

// DefaultQuotaTimezone is the zone whose midnight resets the daily quota.
const DefaultQuotaTimezone = "Local"

// DefaultSQLitePath is the local quota database.
const DefaultSQLitePath = "ai_usage.db"

// DefaultUsageLogTimeout bounds one detached usage-log write.
const DefaultUsageLogTimeout = 10 * time.Second

// =============================================================================
// ROUTING DEFAULTS
// =============================================================================

// Model identifiers used by the selection policy.
const (
	DefaultCheapModel    = "gpt-4o-mini"
	DefaultUpgradedModel = "gpt-4o"
	DefaultTopModel      = "gpt-4o"
)

// DefaultRoutingProvider serves every routing slot unless overridden.
const DefaultRoutingProvider = "openai"

// =============================================================================
// PROVIDER ENDPOINTS
// =============================================================================

// DefaultOpenAIBaseURL is the OpenAI API root.
const DefaultOpenAIBaseURL = "https://api.openai.com"

// DefaultGeminiBaseURL is the Generative Language API root.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// =============================================================================
// CLEANUP AND MAINTENANCE
// =============================================================================

// DefaultCleanupInterval is the frequency for background cleanup goroutines.
const DefaultCleanupInterval = 5 * time.Minute

// DefaultStaleTimeout is when entries are considered stale for cleanup.
const DefaultStaleTimeout = 10 * time.Minute

// =============================================================================
// RATE LIMITING
// =============================================================================

// DefaultRateLimit is requests per second per IP.
const DefaultRateLimit = 100

// MaxRateLimitBuckets prevents memory exhaustion from too many IP buckets.
const MaxRateLimitBuckets = 10000

// =============================================================================
// HTTP AND NETWORKING
// =============================================================================

// DefaultPort is the gateway listen port.
const DefaultPort = 18080

// DefaultBufferSize is the standard I/O buffer size.
const DefaultBufferSize = 4096

// DefaultDialTimeout is the TCP dial timeout.
const DefaultDialTimeout = 30 * time.Second

// DefaultCollaboratorTimeout bounds calls to identity and quota services.
const DefaultCollaboratorTimeout = 10 * time.Second

// MaxRequestBodySize is the maximum allowed request body (50MB).
const MaxRequestBodySize = 50 * 1024 * 1024

// MaxErrorBodyLogLen limits error response body in logs to prevent bloat.
const MaxErrorBodyLogLen = 500

// DefaultServerReadTimeout for HTTP server.
const DefaultServerReadTimeout = 30 * time.Second

// DefaultServerWriteTimeout for HTTP server (safe for streaming).
const DefaultServerWriteTimeout = 10 * time.Minute

// DefaultShutdownTimeout is how long in-flight streams get on shutdown.
const DefaultShutdownTimeout = 15 * time.Second
