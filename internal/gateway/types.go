// Package gateway types - inbound request shapes and response headers.
//
// DESIGN: Types used by the gateway for:
//   - Request decoding (ChatRequest)
//   - Error bodies returned to the client
//   - Per-request state carried through the chat state machine
//
// Types are defined here to keep handler files focused on flow.
package gateway

import (
	"encoding/json"
	"time"

	"github.com/starnote/ai-gateway/internal/adapters"
	"github.com/starnote/ai-gateway/internal/monitoring"
	"github.com/starnote/ai-gateway/internal/quota"
)

// =============================================================================
// HEADERS
// =============================================================================

const (
	HeaderRequestID          = "X-Request-ID"
	HeaderModel              = "X-Model"
	HeaderProvider           = "X-Provider"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
)

// =============================================================================
// REQUEST / RESPONSE BODIES
// =============================================================================

// ChatRequest is the body accepted by the chat endpoint.
// Messages stays raw until validated so a non-array value can be rejected.
type ChatRequest struct {
	Messages       json.RawMessage `json:"messages"`
	TaskType       string          `json:"taskType,omitempty"`
	ConversationID string          `json:"conversationId,omitempty"`
	Image          string          `json:"image,omitempty"`
}

// errorBody is the JSON shape of every gateway error.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

// rateLimitBody is returned with 429.
type rateLimitBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	ResetAt   string `json:"resetAt"`
}

// Error codes written in the "error" field.
const (
	codeUnauthorized  = "unauthorized"
	codeRateLimited   = "rate_limit_exceeded"
	codeBadMessages   = "messages array required"
	codeProviderError = "ai_provider_error"
	codeInternal      = "internal_error"
	codeThrottled     = "too_many_requests"
)

// =============================================================================
// REQUEST STATE
// =============================================================================

// chatState carries data through one chat request.
type chatState struct {
	requestID string
	startTime time.Time
	userID    string
	quota     quota.Status
	taskType  string
	backend   adapters.BackendConfig
	messages  []adapters.Message

	forwardLatency time.Duration
	inputEstimate  int
	event          *monitoring.RequestEvent
}
