package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/starnote/ai-gateway/external"
	"github.com/starnote/ai-gateway/internal/config"
	"github.com/starnote/ai-gateway/internal/transcode"
)

// GeminiAdapter calls streamGenerateContent in SSE mode.
//
// Translation from the inbound OpenAI-style conversation:
//   - the system message becomes systemInstruction (first text part only)
//   - assistant becomes model, every other role becomes user
//   - data:<mime>;base64,<data> image URLs become inlineData parts
//   - any other part is sent as a text part holding its raw JSON
type GeminiAdapter struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

var dataURIPattern = regexp.MustCompile(`^data:([^;]+);base64,(.+)$`)

// NewGeminiAdapter creates a Gemini adapter. An empty apiKey is allowed;
// Send then fails with ErrProviderAuthMissing.
func NewGeminiAdapter(cfg config.ProviderConfig, client *http.Client) *GeminiAdapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultGeminiBaseURL
	}
	if client == nil {
		client = NewStreamingClient()
	}
	return &GeminiAdapter{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
}

// Provider implements Adapter.
func (a *GeminiAdapter) Provider() Provider { return ProviderGoogle }

// NewTranscoder implements Adapter.
func (a *GeminiAdapter) NewTranscoder() transcode.Transcoder { return transcode.NewGemini() }

// Send implements Adapter.
func (a *GeminiAdapter) Send(ctx context.Context, cfg BackendConfig, messages []Message) (*http.Response, error) {
	if a.apiKey == "" {
		return nil, authMissing(ProviderGoogle)
	}

	body, err := json.Marshal(BuildGeminiRequest(cfg, messages))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", a.baseURL, url.PathEscape(cfg.Model))
	return postStream(ctx, a.client, ProviderGoogle, endpoint, body, map[string]string{
		"x-goog-api-key": a.apiKey,
	})
}

// BuildGeminiRequest translates the conversation into a generateContent body.
func BuildGeminiRequest(cfg BackendConfig, messages []Message) *external.GeminiRequest {
	req := &external.GeminiRequest{
		Contents: make([]external.GeminiContent, 0, len(messages)),
		GenerationConfig: &external.GeminiGenerationConfig{
			MaxOutputTokens: cfg.MaxOutputTokens,
			Temperature:     cfg.Temperature,
		},
	}

	systemSeen := false
	for _, m := range messages {
		if m.Role == RoleSystem {
			if !systemSeen {
				systemSeen = true
				req.SystemInstruction = &external.GeminiContent{
					Parts: []external.GeminiPart{{Text: m.LeadText()}},
				}
			}
			continue
		}

		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		req.Contents = append(req.Contents, external.GeminiContent{
			Role:  role,
			Parts: geminiParts(m),
		})
	}
	return req
}

func geminiParts(m Message) []external.GeminiPart {
	if s, ok := m.StringContent(); ok {
		return []external.GeminiPart{{Text: s}}
	}

	raw, ok := m.RawParts()
	if !ok {
		// Neither string nor array: keep the raw JSON as text.
		return []external.GeminiPart{{Text: string(m.Content)}}
	}

	parts := make([]external.GeminiPart, 0, len(raw))
	for _, r := range raw {
		parts = append(parts, geminiPart(r))
	}
	return parts
}

func geminiPart(raw json.RawMessage) external.GeminiPart {
	var p ContentPart
	if err := json.Unmarshal(raw, &p); err == nil {
		switch p.Type {
		case PartText:
			return external.GeminiPart{Text: p.Text}
		case PartImageURL:
			if p.ImageURL != nil {
				if m := dataURIPattern.FindStringSubmatch(p.ImageURL.URL); m != nil {
					return external.GeminiPart{InlineData: &external.GeminiInlineData{MimeType: m[1], Data: m[2]}}
				}
			}
		}
	}
	return external.GeminiPart{Text: compactJSON(raw)}
}

// compactJSON strips insignificant whitespace so the fallback text part
// matches what a JSON serializer would produce.
func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

var _ Adapter = (*GeminiAdapter)(nil)
