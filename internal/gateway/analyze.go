// Analyze endpoint: a thin wrapper that fills in taskType and hands the
// request to the chat endpoint. Without analyze.chat_url the chat handler runs
// in-process on a copy of the request; otherwise the body is POSTed to the
// configured URL and the response relayed.
package gateway

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/starnote/ai-gateway/internal/config"
	"github.com/starnote/ai-gateway/internal/monitoring"
	"github.com/starnote/ai-gateway/internal/routing"
)

// hopHeaders are not relayed from the chat response.
var hopHeaders = map[string]bool{
	"Connection":        true,
	"Keep-Alive":        true,
	"Transfer-Encoding": true,
	"Content-Length":    true,
}

// analyzeTaskType picks the default task for an analyze body.
func analyzeTaskType(body []byte) string {
	if gjson.GetBytes(body, "image").String() != "" {
		return string(routing.TaskOCRSimple)
	}
	return string(routing.TaskChat)
}

// withDefaultTaskType sets taskType when the body has none.
func withDefaultTaskType(body []byte) ([]byte, error) {
	if gjson.GetBytes(body, "taskType").String() != "" {
		return body, nil
	}
	return sjson.SetBytes(body, "taskType", analyzeTaskType(body))
}

// handleAnalyze forwards the request to the chat endpoint and relays the
// response unchanged.
func (g *Gateway) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := requestIDFromContext(r.Context())
	event := &monitoring.RequestEvent{
		RequestID: requestID,
		Timestamp: start,
		Method:    r.Method,
		Path:      r.URL.Path,
		ClientIP:  clientIP(r),
		Outcome:   monitoring.OutcomeDelegated,
	}
	defer func() {
		event.TotalLatencyMs = time.Since(start).Milliseconds()
		g.metrics.RecordOutcome(event.Outcome)
		g.tracker.RecordRequest(event)
	}()

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxRequestBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil || !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		event.Outcome = monitoring.OutcomeBadRequest
		event.StatusCode = http.StatusBadRequest
		writeJSON(w, http.StatusBadRequest, errorBody{Error: codeBadMessages})
		return
	}
	event.RequestBodySize = len(body)

	forward, err := withDefaultTaskType(body)
	if err != nil {
		event.Outcome = monitoring.OutcomeBadRequest
		event.StatusCode = http.StatusBadRequest
		writeJSON(w, http.StatusBadRequest, errorBody{Error: codeBadMessages})
		return
	}
	event.TaskType = gjson.GetBytes(forward, "taskType").String()

	target := strings.TrimSpace(g.config.Analyze.ChatURL)
	if target == "" {
		g.delegateChat(w, r, forward, event)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, target, bytes.NewReader(forward))
	if err != nil {
		g.analyzeFailed(w, event, target, err)
		return
	}
	req.Header.Set("Authorization", r.Header.Get("Authorization"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderRequestID, requestID)

	resp, err := g.analyzeClient.Do(req)
	if err != nil {
		g.analyzeFailed(w, event, target, err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	for k, v := range resp.Header {
		if hopHeaders[http.CanonicalHeaderKey(k)] {
			continue
		}
		w.Header()[k] = v
	}
	w.WriteHeader(resp.StatusCode)
	event.StatusCode = resp.StatusCode
	event.Success = resp.StatusCode < 400
	event.ResponseBodySize = g.streamResponse(w, resp.Body)
}

// delegateChat serves body through handleChat on a clone of r, keeping the
// caller's context, headers and remote address.
func (g *Gateway) delegateChat(w http.ResponseWriter, r *http.Request, body []byte, event *monitoring.RequestEvent) {
	req := r.Clone(r.Context())
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", "application/json")
	req.URL.Path = PathChat
	req.RequestURI = PathChat

	rec := &statusRecorder{ResponseWriter: w}
	g.handleChat(rec, req)

	event.StatusCode = rec.status
	event.Success = rec.status < 400
	event.ResponseBodySize = rec.written
}

func (g *Gateway) analyzeFailed(w http.ResponseWriter, event *monitoring.RequestEvent, target string, err error) {
	log.Error().Err(err).Str("request_id", event.RequestID).Str("target", target).Msg("analyze forward failed")
	event.Outcome = monitoring.OutcomeUpstreamFail
	event.StatusCode = http.StatusBadGateway
	event.Error = err.Error()
	writeJSON(w, http.StatusBadGateway, errorBody{Error: codeProviderError, Details: "chat endpoint unreachable"})
}
