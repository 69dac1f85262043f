// LLM provider wire types for the Gemini generateContent API.
//
// These types are used by:
//   - internal/adapters/gemini.go: request body for streamGenerateContent
//
// OpenAI requests are built directly from the inbound messages (they are
// already in OpenAI format), and stream frames of both providers are read
// with gjson, so neither needs typed structs here.
package external

import "encoding/json"

// =============================================================================
// Gemini Types
// =============================================================================

// GeminiInlineData is base64 media embedded in a request.
type GeminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// GeminiPart represents a content part in Gemini format.
// A part is either text or inline data, never both.
type GeminiPart struct {
	Text       string
	InlineData *GeminiInlineData
}

// MarshalJSON emits exactly one of "text" or "inlineData".
func (p GeminiPart) MarshalJSON() ([]byte, error) {
	if p.InlineData != nil {
		return json.Marshal(struct {
			InlineData *GeminiInlineData `json:"inlineData"`
		}{p.InlineData})
	}
	return json.Marshal(struct {
		Text string `json:"text"`
	}{p.Text})
}

// UnmarshalJSON accepts either part shape.
func (p *GeminiPart) UnmarshalJSON(data []byte) error {
	var raw struct {
		Text       string            `json:"text"`
		InlineData *GeminiInlineData `json:"inlineData"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Text = raw.Text
	p.InlineData = raw.InlineData
	return nil
}

// GeminiContent represents a content block in Gemini format.
type GeminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GeminiPart `json:"parts"`
}

// GeminiGenerationConfig contains generation parameters.
type GeminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature"`
}

// GeminiRequest is the request body for Gemini generateContent API.
type GeminiRequest struct {
	SystemInstruction *GeminiContent          `json:"systemInstruction,omitempty"`
	Contents          []GeminiContent         `json:"contents"`
	GenerationConfig  *GeminiGenerationConfig `json:"generationConfig,omitempty"`
}
