// Package monitoring - metrics.go provides simple counters.
//
// DESIGN: Lightweight in-memory counters for operational metrics:
//   - requests/successes: Total and successfully streamed request counts
//   - rejections:         Unauthorized, rate-limited and malformed requests
//   - upstream:           Provider failures and missing credentials
//   - usage log:          Detached usage-log writes that failed
//   - tokens:             Input/output tokens reported by terminal stream events
//
// For production, export these to Prometheus or similar.
package monitoring

import (
	"fmt"
	"sync/atomic"
	"time"
)

// MetricsCollector collects operational metrics.
type MetricsCollector struct {
	startedAt time.Time

	// Request counters
	requests     atomic.Int64
	successes    atomic.Int64
	unauthorized atomic.Int64
	rateLimited  atomic.Int64
	badRequests  atomic.Int64
	throttled    atomic.Int64
	delegated    atomic.Int64

	// Provider counters
	upstreamErrors atomic.Int64
	internalErrors atomic.Int64

	// Usage log counters
	usageLogged       atomic.Int64
	usageLogFailures  atomic.Int64
	streamEvents      atomic.Int64
	totalInputTokens  atomic.Int64
	totalOutputTokens atomic.Int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		startedAt: time.Now(),
	}
}

// RecordRequest records a request.
func (mc *MetricsCollector) RecordRequest(success bool, _ time.Duration) {
	mc.requests.Add(1)
	if success {
		mc.successes.Add(1)
	}
}

// RecordOutcome bumps the counter matching a terminal gateway state.
func (mc *MetricsCollector) RecordOutcome(o Outcome) {
	switch o {
	case OutcomeRejected:
		mc.unauthorized.Add(1)
	case OutcomeRateLimited:
		mc.rateLimited.Add(1)
	case OutcomeBadRequest:
		mc.badRequests.Add(1)
	case OutcomeUpstreamFail:
		mc.upstreamErrors.Add(1)
	case OutcomeInternal:
		mc.internalErrors.Add(1)
	case OutcomeDelegated:
		mc.delegated.Add(1)
	}
}

// RecordThrottled records a request dropped by the per-IP limiter.
func (mc *MetricsCollector) RecordThrottled() { mc.throttled.Add(1) }

// RecordUsageLog records the result of one detached usage-log write.
func (mc *MetricsCollector) RecordUsageLog(err error) {
	if err != nil {
		mc.usageLogFailures.Add(1)
		return
	}
	mc.usageLogged.Add(1)
}

// RecordStream records the events and usage of one transcoded stream.
func (mc *MetricsCollector) RecordStream(events, inputTokens, outputTokens int) {
	mc.streamEvents.Add(int64(events))
	mc.totalInputTokens.Add(int64(inputTokens))
	mc.totalOutputTokens.Add(int64(outputTokens))
}

// StartedAt returns when the metrics collector was created.
func (mc *MetricsCollector) StartedAt() time.Time { return mc.startedAt }

// Stats returns current metrics as a flat map.
func (mc *MetricsCollector) Stats() map[string]int64 {
	return map[string]int64{
		"requests":           mc.requests.Load(),
		"successes":          mc.successes.Load(),
		"unauthorized":       mc.unauthorized.Load(),
		"rate_limited":       mc.rateLimited.Load(),
		"bad_requests":       mc.badRequests.Load(),
		"throttled":          mc.throttled.Load(),
		"delegated":          mc.delegated.Load(),
		"upstream_errors":    mc.upstreamErrors.Load(),
		"internal_errors":    mc.internalErrors.Load(),
		"usage_logged":       mc.usageLogged.Load(),
		"usage_log_failures": mc.usageLogFailures.Load(),
	}
}

// FullStats returns all metrics in a structured format for the /stats endpoint.
func (mc *MetricsCollector) FullStats() StatsResponse {
	uptime := time.Since(mc.startedAt)
	requests := mc.requests.Load()
	successes := mc.successes.Load()

	return StatsResponse{
		Uptime:        formatDuration(uptime),
		UptimeSeconds: int64(uptime.Seconds()),
		StartedAt:     mc.startedAt.Format(time.RFC3339),
		Requests: RequestStats{
			Total:        requests,
			Successful:   successes,
			Failed:       requests - successes,
			Unauthorized: mc.unauthorized.Load(),
			RateLimited:  mc.rateLimited.Load(),
			BadRequests:  mc.badRequests.Load(),
			Throttled:    mc.throttled.Load(),
			Delegated:    mc.delegated.Load(),
		},
		Upstream: UpstreamStats{
			Errors:         mc.upstreamErrors.Load(),
			InternalErrors: mc.internalErrors.Load(),
		},
		Usage: UsageStats{
			Logged:       mc.usageLogged.Load(),
			LogFailures:  mc.usageLogFailures.Load(),
			StreamEvents: mc.streamEvents.Load(),
			InputTokens:  mc.totalInputTokens.Load(),
			OutputTokens: mc.totalOutputTokens.Load(),
		},
	}
}

// StatsResponse is the structured response for the /stats endpoint.
type StatsResponse struct {
	Uptime        string        `json:"uptime"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartedAt     string        `json:"started_at"`
	Requests      RequestStats  `json:"requests"`
	Upstream      UpstreamStats `json:"upstream"`
	Usage         UsageStats    `json:"usage"`
}

// RequestStats holds request count metrics.
type RequestStats struct {
	Total        int64 `json:"total"`
	Successful   int64 `json:"successful"`
	Failed       int64 `json:"failed"`
	Unauthorized int64 `json:"unauthorized"`
	RateLimited  int64 `json:"rate_limited"`
	BadRequests  int64 `json:"bad_requests"`
	Throttled    int64 `json:"throttled"`
	Delegated    int64 `json:"delegated"`
}

// UpstreamStats holds provider failure metrics.
type UpstreamStats struct {
	Errors         int64 `json:"errors"`
	InternalErrors int64 `json:"internal_errors"`
}

// UsageStats holds usage-log and token metrics.
type UsageStats struct {
	Logged       int64 `json:"logged"`
	LogFailures  int64 `json:"log_failures"`
	StreamEvents int64 `json:"stream_events"`
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
