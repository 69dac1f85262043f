package supabase

import "fmt"

// Request headers sent on every call.
const (
	HeaderAuthorization = "Authorization"
	// HeaderAPIKey carries the project key (anon or service role).
	HeaderAPIKey        = "apikey"
)

// User is the subset of the GoTrue user object the gateway reads.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// APIError is a non-2xx response from Supabase.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase: unexpected status %d: %s", e.StatusCode, e.Body)
}

// =============================================================================
// Quota RPC parameters
// =============================================================================

// DailyCountParams are the arguments of get_daily_ai_message_count.
type DailyCountParams struct {
	UserID string `json:"p_user_id"`
}

// IncrementUsageParams are the arguments of increment_token_usage.
type IncrementUsageParams struct {
	UserID        string  `json:"p_user_id"`
	Date          string  `json:"p_date"`
	Model         string  `json:"p_model"`
	Provider      string  `json:"p_provider"`
	InputTokens   int     `json:"p_input_tokens"`
	OutputTokens  int     `json:"p_output_tokens"`
	RequestCount  int     `json:"p_request_count"`
	EstimatedCost float64 `json:"p_estimated_cost"`
}
