package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/starnote/ai-gateway/internal/config"
	"github.com/starnote/ai-gateway/internal/transcode"
	"github.com/tidwall/sjson"
)

// OpenAIAdapter calls the Chat Completions API in stream mode.
// Inbound messages are already in OpenAI format and are forwarded unchanged,
// including image parts as data-URI image_url objects.
type OpenAIAdapter struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewOpenAIAdapter creates an OpenAI adapter. An empty apiKey is allowed;
// Send then fails with ErrProviderAuthMissing.
func NewOpenAIAdapter(cfg config.ProviderConfig, client *http.Client) *OpenAIAdapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultOpenAIBaseURL
	}
	if client == nil {
		client = NewStreamingClient()
	}
	return &OpenAIAdapter{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
}

// Provider implements Adapter.
func (a *OpenAIAdapter) Provider() Provider { return ProviderOpenAI }

// NewTranscoder implements Adapter.
func (a *OpenAIAdapter) NewTranscoder() transcode.Transcoder { return transcode.NewOpenAI() }

// Send implements Adapter.
func (a *OpenAIAdapter) Send(ctx context.Context, cfg BackendConfig, messages []Message) (*http.Response, error) {
	if a.apiKey == "" {
		return nil, authMissing(ProviderOpenAI)
	}

	body, err := BuildOpenAIRequest(cfg, messages)
	if err != nil {
		return nil, err
	}

	return postStream(ctx, a.client, ProviderOpenAI, a.baseURL+"/v1/chat/completions", body, map[string]string{
		"Authorization": "Bearer " + a.apiKey,
	})
}

// BuildOpenAIRequest renders the streaming chat completion body:
//
//	{"model":..,"messages":[..],"max_tokens":..,"temperature":..,"stream":true}
func BuildOpenAIRequest(cfg BackendConfig, messages []Message) ([]byte, error) {
	rawMessages, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal messages: %w", err)
	}

	body := []byte(`{}`)
	steps := []struct {
		path  string
		value any
	}{
		{"model", cfg.Model},
		{"messages", json.RawMessage(rawMessages)},
		{"max_tokens", cfg.MaxOutputTokens},
		{"temperature", cfg.Temperature},
		{"stream", true},
	}
	for _, s := range steps {
		if raw, ok := s.value.(json.RawMessage); ok {
			body, err = sjson.SetRawBytes(body, s.path, raw)
		} else {
			body, err = sjson.SetBytes(body, s.path, s.value)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", s.path, err)
		}
	}
	return body, nil
}

var _ Adapter = (*OpenAIAdapter)(nil)
