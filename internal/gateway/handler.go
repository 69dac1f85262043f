// HTTP request handling for the chat endpoint.
//
// DESIGN: Main request flow (handleChat):
//   - authenticate():  Authorization header -> user, else 401
//   - quota check:     remaining <= 0 -> 429 with resetAt
//   - normalize:       validate messages, prepend prompt, merge image (400)
//   - dispatch():      select backend, call adapter (502 on failure)
//   - streamResponse(): transcode upstream bytes to the client with flushing
//
// Also includes health check, preflight and telemetry helpers.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/starnote/ai-gateway/internal/adapters"
	"github.com/starnote/ai-gateway/internal/config"
	"github.com/starnote/ai-gateway/internal/monitoring"
	"github.com/starnote/ai-gateway/internal/quota"
	"github.com/starnote/ai-gateway/internal/routing"
	"github.com/starnote/ai-gateway/internal/transcode"
	"github.com/starnote/ai-gateway/internal/utils"
)

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := utils.MarshalNoEscape(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode response")
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal_error","message":"internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// handlePreflight answers CORS preflight requests. CORS headers are added by
// the middleware.
func handlePreflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleHealth returns gateway health status.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	}

	status := http.StatusOK
	if err := g.store.Ping(r.Context()); err != nil {
		log.Warn().Err(err).Msg("health: quota store unreachable")
		health["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

// handleChat runs one chat request through the state machine.
func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	st := &chatState{
		requestID: requestIDFromContext(r.Context()),
		startTime: time.Now(),
	}
	st.event = &monitoring.RequestEvent{
		RequestID: st.requestID,
		Timestamp: st.startTime,
		Method:    r.Method,
		Path:      r.URL.Path,
		ClientIP:  clientIP(r),
	}
	defer g.recordRequestTelemetry(st)

	// 1. Auth
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		g.reject(w, st, http.StatusUnauthorized, monitoring.OutcomeRejected, errorBody{Error: codeUnauthorized}, "missing authorization")
		return
	}
	user, err := g.verifier.Verify(r.Context(), authHeader)
	if err != nil {
		log.Debug().Err(err).Str("request_id", st.requestID).Msg("credential rejected")
		g.reject(w, st, http.StatusUnauthorized, monitoring.OutcomeRejected, errorBody{Error: codeUnauthorized}, err.Error())
		return
	}
	st.userID = user.ID
	st.event.UserID = user.ID

	// 2. Quota
	st.quota = g.quota.Check(r.Context(), user.ID)
	st.event.Tier = string(st.quota.Tier)
	st.event.QuotaLimit = st.quota.Limit
	st.event.QuotaRemaining = st.quota.Remaining
	if st.quota.Exceeded() {
		g.reject(w, st, http.StatusTooManyRequests, monitoring.OutcomeRateLimited, rateLimitBody{
			Error:     codeRateLimited,
			Message:   config.RateLimitMessage,
			Limit:     st.quota.Limit,
			Remaining: 0,
			ResetAt:   st.quota.ResetAt.UTC().Format(time.RFC3339),
		}, "daily quota exhausted")
		return
	}

	// 3. Parse request
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxRequestBodySize)
	req, raw, err := decodeChatRequest(r.Body)
	st.event.RequestBodySize = len(raw)
	var msgs []adapters.Message
	if err == nil {
		msgs, err = parseMessages(req.Messages)
	}
	if err != nil {
		g.reject(w, st, http.StatusBadRequest, monitoring.OutcomeBadRequest, errorBody{Error: codeBadMessages}, err.Error())
		return
	}

	// 4. Normalize
	st.messages = buildConversation(g.config.Prompt.System, msgs, req.Image)
	st.taskType = req.TaskType
	if st.taskType == "" {
		st.taskType = string(routing.TaskChat)
	}
	st.event.TaskType = st.taskType

	// 5. Select and dispatch
	st.backend = g.selector.Select(routing.TaskType(st.taskType), st.quota.Tier)
	st.event.Provider = st.backend.Provider.String()
	st.event.Model = st.backend.Model

	adapter, resp, ok := g.dispatch(w, r, st)
	if !ok {
		return
	}
	defer func() { _ = resp.Body.Close() }()

	// 6. Usage log, detached
	st.inputEstimate = g.estimateInput(st)
	g.usage.RecordAsync(quota.UsageRecord{
		UserID:       st.userID,
		Date:         g.quota.Today(),
		Model:        st.backend.Model,
		Provider:     st.backend.Provider.String(),
		InputTokens:  st.inputEstimate,
		OutputTokens: 0,
		RequestCount: 1,
	})

	// 7. Stream
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set(HeaderModel, st.backend.Model)
	h.Set(HeaderProvider, st.backend.Provider.String())
	h.Set(HeaderRateLimitRemaining, strconv.Itoa(st.quota.Remaining))
	h.Set(HeaderRateLimitLimit, strconv.Itoa(st.quota.Limit))
	w.WriteHeader(http.StatusOK)

	reader := transcode.NewReader(resp.Body, adapter.NewTranscoder())
	written := g.streamResponse(w, reader)

	stats := reader.Stats()
	st.event.StatusCode = http.StatusOK
	st.event.Outcome = monitoring.OutcomeCompleted
	st.event.Success = true
	st.event.ResponseBodySize = written
	st.event.StreamEvents = stats.Events
	if stats.Done {
		if stats.Usage.InputTokens != nil {
			st.event.InputTokens = *stats.Usage.InputTokens
		}
		st.event.OutputTokens = stats.Usage.OutputTokens
	}
	g.metrics.RecordStream(stats.Events, st.event.InputTokens, st.event.OutputTokens)
}

// dispatch resolves the adapter and sends the upstream request. On failure it
// writes the 502 response and returns ok=false.
func (g *Gateway) dispatch(w http.ResponseWriter, r *http.Request, st *chatState) (adapters.Adapter, *http.Response, bool) {
	provider := st.backend.Provider.String()

	adapter, err := g.registry.Lookup(st.backend.Provider)
	if err != nil {
		g.upstreamError(w, st, provider+" provider not available", err)
		return nil, nil, false
	}

	forwardStart := time.Now()
	resp, err := adapter.Send(r.Context(), st.backend, st.messages)
	st.forwardLatency = time.Since(forwardStart)
	if err != nil {
		details := provider + " request failed"
		if errors.Is(err, adapters.ErrProviderAuthMissing) {
			details = provider + " API key not configured"
		}
		g.upstreamError(w, st, details, err)
		return nil, nil, false
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, config.MaxErrorBodyLogLen))
		_ = resp.Body.Close()
		log.Error().
			Str("request_id", st.requestID).
			Str("provider", provider).
			Str("model", st.backend.Model).
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("AI provider error")
		g.upstreamError(w, st, fmt.Sprintf("%s returned %d", provider, resp.StatusCode), nil)
		return nil, nil, false
	}
	return adapter, resp, true
}

func (g *Gateway) upstreamError(w http.ResponseWriter, st *chatState, details string, err error) {
	if err != nil {
		log.Error().Err(err).
			Str("request_id", st.requestID).
			Str("provider", st.backend.Provider.String()).
			Str("model", st.backend.Model).
			Msg("AI provider call failed")
	}
	g.reject(w, st, http.StatusBadGateway, monitoring.OutcomeUpstreamFail,
		errorBody{Error: codeProviderError, Details: details}, details)
}

// reject writes an error response and fills the telemetry event.
func (g *Gateway) reject(w http.ResponseWriter, st *chatState, status int, outcome monitoring.Outcome, body any, reason string) {
	st.event.StatusCode = status
	st.event.Outcome = outcome
	st.event.Error = reason
	writeJSON(w, status, body)
}

// estimateInput approximates the prompt size from the serialized messages.
func (g *Gateway) estimateInput(st *chatState) int {
	data, err := json.Marshal(st.messages)
	if err != nil {
		return 0
	}
	return g.counter.Count(st.backend.Model, string(data))
}

// streamResponse copies the transcoded stream to the client, flushing after
// every chunk. Returns the number of bytes written.
func (g *Gateway) streamResponse(w http.ResponseWriter, reader io.Reader) int {
	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Warn().Msg("streaming not supported, falling back to buffered")
		n, _ := io.Copy(w, reader)
		return int(n)
	}

	written := 0
	buf := make([]byte, config.DefaultBufferSize)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				log.Debug().Err(writeErr).Msg("client disconnected")
				break
			}
			written += n
			flusher.Flush()
		}
		if err != nil {
			if err != io.EOF {
				log.Debug().Err(err).Msg("error reading stream")
			}
			break
		}
	}
	return written
}

// =============================================================================
// TELEMETRY HELPERS
// =============================================================================

// recordRequestTelemetry records the terminal state of a chat request.
func (g *Gateway) recordRequestTelemetry(st *chatState) {
	ev := st.event
	if ev.Outcome == "" {
		// Panicked before reaching a terminal state; the recovery middleware
		// counts it.
		return
	}
	ev.ForwardLatencyMs = st.forwardLatency.Milliseconds()
	ev.TotalLatencyMs = time.Since(st.startTime).Milliseconds()

	g.metrics.RecordRequest(ev.Success, time.Since(st.startTime))
	g.metrics.RecordOutcome(ev.Outcome)
	g.tracker.RecordRequest(ev)

	logEvent := log.Info()
	if !ev.Success {
		logEvent = log.Warn()
	}
	logEvent.
		Str("request_id", ev.RequestID).
		Str("user_id", ev.UserID).
		Str("outcome", string(ev.Outcome)).
		Int("status", ev.StatusCode).
		Str("provider", ev.Provider).
		Str("model", ev.Model).
		Int64("latency_ms", ev.TotalLatencyMs).
		Msg("chat request")
}
