package transcode

import (
	"github.com/starnote/ai-gateway/internal/tokens"
	"github.com/tidwall/gjson"
)

// Gemini transcodes streamGenerateContent?alt=sse streams.
//
// Every frame is a full GenerateContentResponse. Text comes from the first
// part of the first candidate; a finishReason on that candidate ends the
// stream. One frame may carry both. Token counts from usageMetadata win over
// the running estimate of ceil(chars/4) per delta.
type Gemini struct {
	lines    lineStream
	estimate int
}

// NewGemini creates a Gemini stream transcoder.
func NewGemini() *Gemini {
	return &Gemini{lines: newLineStream()}
}

// Feed implements Transcoder.
func (t *Gemini) Feed(chunk []byte) []Event {
	return t.lines.feed(chunk, false, t.frame)
}

// Finish implements Transcoder.
func (t *Gemini) Finish() []Event {
	events := t.lines.feed(nil, true, t.frame)
	if !t.lines.done {
		t.lines.done = true
		events = append(events, Event{
			Done:  true,
			Usage: Usage{InputTokens: intPtr(0), OutputTokens: t.estimate},
		})
	}
	return events
}

func (t *Gemini) frame(payload []byte) []Event {
	if !gjson.ValidBytes(payload) {
		return nil
	}

	var events []Event
	text := gjson.GetBytes(payload, "candidates.0.content.parts.0.text")
	if text.Type == gjson.String && text.Str != "" {
		t.estimate += tokens.Estimate(text.Str)
		events = append(events, Event{Content: text.Str})
	}

	if finish := gjson.GetBytes(payload, "candidates.0.finishReason"); finish.Exists() && finish.String() != "" {
		input := int(gjson.GetBytes(payload, "usageMetadata.promptTokenCount").Int())
		output := int(gjson.GetBytes(payload, "usageMetadata.candidatesTokenCount").Int())
		if output == 0 {
			output = t.estimate
		}
		events = append(events, Event{
			Done:  true,
			Usage: Usage{InputTokens: intPtr(input), OutputTokens: output},
		})
	}
	return events
}

var _ Transcoder = (*Gemini)(nil)
