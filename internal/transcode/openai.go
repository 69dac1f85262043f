package transcode

import (
	"github.com/tidwall/gjson"
)

var openAIDoneMarker = []byte("[DONE]")

// OpenAI transcodes Chat Completions streams.
//
// Frames look like
//
//	data: {"choices":[{"delta":{"content":"Hel"}}]}
//	data: [DONE]
//
// The provider sends no usage in stream mode, so output tokens are
// approximated as one per emitted delta and input tokens are omitted.
type OpenAI struct {
	lines  lineStream
	deltas int
}

// NewOpenAI creates an OpenAI stream transcoder.
func NewOpenAI() *OpenAI {
	return &OpenAI{lines: newLineStream()}
}

// Feed implements Transcoder.
func (t *OpenAI) Feed(chunk []byte) []Event {
	return t.lines.feed(chunk, false, t.frame)
}

// Finish implements Transcoder.
func (t *OpenAI) Finish() []Event {
	events := t.lines.feed(nil, true, t.frame)
	if !t.lines.done {
		t.lines.done = true
		events = append(events, t.doneEvent())
	}
	return events
}

func (t *OpenAI) frame(payload []byte) []Event {
	if string(payload) == string(openAIDoneMarker) {
		return []Event{t.doneEvent()}
	}
	if !gjson.ValidBytes(payload) {
		return nil
	}
	content := gjson.GetBytes(payload, "choices.0.delta.content")
	if content.Type != gjson.String || content.Str == "" {
		return nil
	}
	t.deltas++
	return []Event{{Content: content.Str}}
}

func (t *OpenAI) doneEvent() Event {
	return Event{Done: true, Usage: Usage{OutputTokens: t.deltas}}
}

var _ Transcoder = (*OpenAI)(nil)
