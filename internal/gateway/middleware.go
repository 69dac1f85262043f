// HTTP middleware shared by every route.
//
// Order (outermost first): recovery -> request ID -> CORS -> throttle.
package gateway

import (
	"context"
	"net/http"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/starnote/ai-gateway/internal/monitoring"
)

type requestIDKey struct{}

// requestIDFromContext returns the ID set by withRequestID.
func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// withRequestID reuses the client's X-Request-ID or generates one, and
// echoes it on the response.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// withCORS attaches the CORS headers to every response.
func (g *Gateway) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", g.config.CORS.AllowedOrigin)
		h.Set("Access-Control-Allow-Headers", g.config.CORS.AllowedHeaders)
		h.Set("Access-Control-Allow-Methods", g.config.CORS.AllowedMethods)
		next.ServeHTTP(w, r)
	})
}

// withThrottle rejects clients exceeding the per-IP request rate.
func (g *Gateway) withThrottle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodOptions && !g.limiter.Allow(clientIP(r)) {
			g.metrics.RecordThrottled()
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: codeThrottled, Message: "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder tracks the status sent and the body bytes written.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	written     int
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if !s.wroteHeader {
		s.status = http.StatusOK
		s.wroteHeader = true
	}
	n, err := s.ResponseWriter.Write(b)
	s.written += n
	return n, err
}

// Flush forwards to the underlying writer so streaming keeps working.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// withRecovery turns a handler panic into a generic 500. The stack is only
// logged.
func (g *Gateway) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if p == http.ErrAbortHandler {
				panic(p)
			}
			log.Error().
				Interface("panic", p).
				Str("path", r.URL.Path).
				Str("request_id", requestIDFromContext(r.Context())).
				Bytes("stack", debug.Stack()).
				Msg("handler panic")
			g.metrics.RecordOutcome(monitoring.OutcomeInternal)
			if !rec.wroteHeader {
				writeJSON(rec, http.StatusInternalServerError, errorBody{Error: codeInternal, Message: "internal server error"})
			}
		}()
		next.ServeHTTP(rec, r)
	})
}
