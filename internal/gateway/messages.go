// Message normalization for the chat endpoint.
//
// DESIGN: Runs between the quota check and dispatch:
//   - decodeChatRequest(): body -> ChatRequest, 400 on any decode failure
//   - parseMessages():     messages must be a non-empty JSON array
//   - buildConversation(): prepend the system prompt, merge an attached image
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tidwall/gjson"

	"github.com/starnote/ai-gateway/internal/adapters"
)

// errBadMessages covers every validation failure of the request body.
var errBadMessages = errors.New(codeBadMessages)

// imageDataURIPrefix is prepended to the base64 image payload.
const imageDataURIPrefix = "data:image/png;base64,"

// decodeChatRequest reads and decodes the chat body.
func decodeChatRequest(body io.Reader) (*ChatRequest, []byte, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read body: %v", errBadMessages, err)
	}
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return nil, raw, fmt.Errorf("%w: body is not a JSON object", errBadMessages)
	}
	var req ChatRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, raw, fmt.Errorf("%w: %v", errBadMessages, err)
	}
	return &req, raw, nil
}

// parseMessages validates the messages field. Elements are kept as sent.
func parseMessages(raw json.RawMessage) ([]adapters.Message, error) {
	field := gjson.ParseBytes(raw)
	if !field.IsArray() || len(field.Array()) == 0 {
		return nil, errBadMessages
	}
	var msgs []adapters.Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadMessages, err)
	}
	return msgs, nil
}

// buildConversation returns the message list sent upstream: the system
// prompt followed by the client messages. When image is set, the last user
// message becomes a text part plus an image part. Without a user message the
// image is dropped.
func buildConversation(systemPrompt string, msgs []adapters.Message, image string) []adapters.Message {
	out := make([]adapters.Message, 0, len(msgs)+1)
	out = append(out, adapters.TextMessage(adapters.RoleSystem, systemPrompt))
	out = append(out, msgs...)

	if image == "" {
		return out
	}
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Role != adapters.RoleUser {
			continue
		}
		// The text part keeps an explicit "text" key even when empty.
		content, _ := json.Marshal([]any{
			map[string]string{"type": adapters.PartText, "text": out[i].LeadText()},
			adapters.ContentPart{Type: adapters.PartImageURL, ImageURL: &adapters.ImageURL{URL: imageDataURIPrefix + image}},
		})
		out[i].Content = content
		return out
	}
	return out
}
