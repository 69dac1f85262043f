// Package adapters types - unified types for provider-specific request handling.
//
// DESIGN: Every supported provider is one Adapter (builds the native request
// and opens the streaming call). Its response is decoded by the matching
// transcoder in internal/transcode. The pair is selected at dispatch time by
// BackendConfig.Provider through a Registry.
//
// All types needed by adapters, routing, and gateway are defined here.
// This eliminates circular imports and provides clear contracts.
package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/starnote/ai-gateway/internal/transcode"
)

// =============================================================================
// PROVIDER TYPES - Used for identification and routing
// =============================================================================

// Provider identifies which LLM provider serves a request.
type Provider string

const (
	ProviderOpenAI  Provider = "openai"
	ProviderGoogle  Provider = "google"
	ProviderUnknown Provider = "unknown"
)

// String returns the provider name.
func (p Provider) String() string {
	return string(p)
}

// ProviderFromString converts a string to a Provider type.
func ProviderFromString(s string) Provider {
	switch s {
	case "openai":
		return ProviderOpenAI
	case "google", "gemini":
		return ProviderGoogle
	default:
		return ProviderUnknown
	}
}

// =============================================================================
// BACKEND CONFIG - Output of model selection
// =============================================================================

// BackendConfig is the resolved provider, model and sampling parameters for one request.
type BackendConfig struct {
	Provider        Provider
	Model           string
	MaxOutputTokens int
	Temperature     float64
}

// =============================================================================
// MESSAGE TYPES - Inbound conversation, OpenAI-style
// =============================================================================

// Roles accepted in a conversation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn. Content is either a JSON string or an
// array of content parts, kept raw so it can be forwarded unchanged.
//
// A message decoded from a client body remembers its original JSON, so fields
// other than role and content (name, tool_call_id, ...) reach OpenAI unchanged.
type Message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`

	raw json.RawMessage
}

// UnmarshalJSON accepts any JSON value. Non-object elements keep an empty
// role and are forwarded as received.
func (m *Message) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return errInvalidMessage
	}
	*m = Message{raw: append(json.RawMessage(nil), data...)}

	v := gjson.ParseBytes(data)
	if !v.IsObject() {
		return nil
	}
	m.Role = v.Get("role").String()
	if c := v.Get("content"); c.Exists() {
		m.Content = json.RawMessage(c.Raw)
	}
	return nil
}

// MarshalJSON writes role and content over the original message.
func (m Message) MarshalJSON() ([]byte, error) {
	if len(m.raw) == 0 {
		type plain Message
		return json.Marshal(plain(m))
	}
	if !gjson.ParseBytes(m.raw).IsObject() {
		return m.raw, nil
	}
	out, err := sjson.SetBytes(m.raw, "role", m.Role)
	if err != nil {
		return nil, err
	}
	if m.Content != nil {
		out, err = sjson.SetRawBytes(out, "content", m.Content)
	}
	return out, err
}

// ContentPart is one element of a multi-part message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL carries an image reference, normally a data URI.
type ImageURL struct {
	URL string `json:"url"`
}

// Part type tags.
const (
	PartText     = "text"
	PartImageURL = "image_url"
)

// TextMessage builds a message with plain string content.
func TextMessage(role, text string) Message {
	raw, _ := json.Marshal(text)
	return Message{Role: role, Content: raw}
}

// PartsMessage builds a message with multi-part content.
func PartsMessage(role string, parts []ContentPart) Message {
	raw, _ := json.Marshal(parts)
	return Message{Role: role, Content: raw}
}

// StringContent returns the content when it is a plain string.
func (m Message) StringContent() (string, bool) {
	var s string
	if err := json.Unmarshal(m.Content, &s); err != nil {
		return "", false
	}
	return s, true
}

// RawParts returns the content parts when content is an array.
// Each element is kept raw so untranslatable parts can be preserved verbatim.
func (m Message) RawParts() ([]json.RawMessage, bool) {
	var parts []json.RawMessage
	if err := json.Unmarshal(m.Content, &parts); err != nil {
		return nil, false
	}
	return parts, true
}

// LeadText returns the string content, or the text of the first part, or "".
func (m Message) LeadText() string {
	if s, ok := m.StringContent(); ok {
		return s
	}
	parts, ok := m.RawParts()
	if !ok || len(parts) == 0 {
		return ""
	}
	var first ContentPart
	if err := json.Unmarshal(parts[0], &first); err != nil {
		return ""
	}
	return first.Text
}

// =============================================================================
// ADAPTER INTERFACE
// =============================================================================

// Adapter builds a provider-native streaming request and issues it.
type Adapter interface {
	// Provider returns the provider this adapter serves.
	Provider() Provider

	// Send opens the streaming call. The caller owns the response body.
	// A non-2xx response is returned as-is, not as an error.
	Send(ctx context.Context, cfg BackendConfig, messages []Message) (*http.Response, error)

	// NewTranscoder returns a fresh decoder for this provider's stream format.
	NewTranscoder() transcode.Transcoder
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrProviderAuthMissing means no credential is configured for the provider.
	ErrProviderAuthMissing = errors.New("provider API key not configured")

	// ErrProviderUnreachable means the outbound call failed at the transport level.
	ErrProviderUnreachable = errors.New("provider unreachable")

	// ErrUnknownProvider means no adapter is registered for the provider.
	ErrUnknownProvider = errors.New("unknown provider")

	errInvalidMessage = errors.New("invalid message JSON")
)
