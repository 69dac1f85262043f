// Package monitoring - types.go defines shared types.
//
// DESIGN: These types are used by both gateway/ and monitoring/ packages.
// Defined here ONCE to avoid duplication and circular imports.
//
// TYPES:
//   - Outcome:       How a request through the gateway ended
//   - RequestEvent:  Telemetry data for each request
//   - Config types:  TelemetryConfig, LoggerConfig
package monitoring

import "time"

// =============================================================================
// OUTCOMES - Terminal states of a gateway request
// =============================================================================

// Outcome identifies where a request left the gateway state machine.
type Outcome string

const (
	OutcomeCompleted    Outcome = "completed"
	OutcomeRejected     Outcome = "rejected"
	OutcomeRateLimited  Outcome = "rate_limited"
	OutcomeBadRequest   Outcome = "bad_request"
	OutcomeUpstreamFail Outcome = "upstream_error"
	OutcomeInternal     Outcome = "internal_error"
	OutcomeDelegated    Outcome = "delegated"
)

// =============================================================================
// EVENT TYPES - Structured data for telemetry recording
// =============================================================================

// RequestEvent captures a request through the gateway.
type RequestEvent struct {
	RequestID        string    `json:"request_id"`
	Timestamp        time.Time `json:"timestamp"`
	Method           string    `json:"method"`
	Path             string    `json:"path"`
	ClientIP         string    `json:"client_ip"`
	UserID           string    `json:"user_id,omitempty"`
	Tier             string    `json:"tier,omitempty"`
	TaskType         string    `json:"task_type,omitempty"`
	Provider         string    `json:"provider,omitempty"`
	Model            string    `json:"model,omitempty"`
	RequestBodySize  int       `json:"request_body_size"`
	ResponseBodySize int       `json:"response_body_size"`
	StatusCode       int       `json:"status_code"`
	Outcome          Outcome   `json:"outcome"`
	Success          bool      `json:"success"`
	Error            string    `json:"error,omitempty"`
	QuotaLimit       int       `json:"quota_limit,omitempty"`
	QuotaRemaining   int       `json:"quota_remaining,omitempty"`
	ForwardLatencyMs int64     `json:"forward_latency_ms"`
	TotalLatencyMs   int64     `json:"total_latency_ms"`
	// Usage reported by the terminal stream event
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
	StreamEvents int `json:"stream_events,omitempty"`
}

// =============================================================================
// CONFIG TYPES
// =============================================================================

// TelemetryConfig contains telemetry configuration.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	LogPath     string `yaml:"log_path"`
	LogToStdout bool   `yaml:"log_to_stdout"`
}

// LoggerConfig contains logging configuration.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console, auto
	Output string `yaml:"output"` // stdout, stderr, or file path
}
