// Package transcode converts provider-native streaming responses into the
// gateway's unified event stream.
//
// DESIGN: Each provider has one Transcoder. All of them share the same
// incremental line framing:
//   - bytes are appended to a buffer as they arrive
//   - complete lines are processed, the trailing partial line is held back
//   - only lines starting with "data: " are considered
//   - a payload that is not valid JSON is dropped, the stream continues
//
// The output contract is provider agnostic:
//
//	data: {"content":"..."}\n\n                                  (zero or more)
//	data: {"done":true,"usage":{"input_tokens":N,"output_tokens":N}}\n\n  (exactly one, last)
//
// Transcoders are not safe for concurrent use. Each request owns one.
package transcode

import (
	"bytes"

	"github.com/starnote/ai-gateway/internal/config"
	"github.com/starnote/ai-gateway/internal/utils"
)

// Event is one normalized stream event: a content delta or the terminal Done.
type Event struct {
	Content string
	Done    bool
	Usage   Usage
}

// Usage is the token usage carried by the Done event.
// InputTokens is nil when the provider variant does not report it.
type Usage struct {
	InputTokens  *int `json:"input_tokens,omitempty"`
	OutputTokens int  `json:"output_tokens"`
}

type contentFrame struct {
	Content string `json:"content"`
}

type doneFrame struct {
	Done  bool  `json:"done"`
	Usage Usage `json:"usage"`
}

var dataPrefix = []byte("data: ")

// Encode renders the event as one SSE frame.
func (e Event) Encode() []byte {
	var v any = contentFrame{Content: e.Content}
	if e.Done {
		v = doneFrame{Done: true, Usage: e.Usage}
	}
	out, err := utils.SSEData(v)
	if err != nil {
		// Both frame types contain only strings and ints.
		return nil
	}
	return out
}

// Transcoder turns raw provider bytes into normalized events.
type Transcoder interface {
	// Feed consumes the next chunk of upstream bytes. Chunk boundaries may
	// fall anywhere, including inside a line or a multi-byte character.
	Feed(chunk []byte) []Event

	// Finish is called once at end of upstream. It processes any held-back
	// fragment and guarantees a terminal Done if none was produced.
	Finish() []Event
}

// frameFunc handles one "data: " payload and returns the events it yields.
type frameFunc func(payload []byte) []Event

// lineStream is the shared framing state embedded by every transcoder.
type lineStream struct {
	buf  []byte
	done bool
}

func newLineStream() lineStream {
	return lineStream{buf: make([]byte, 0, config.DefaultBufferSize)}
}

// feed appends chunk and runs handle over every complete line. With final set,
// the trailing fragment is treated as a complete line too. Nothing is emitted
// once a Done event has been produced.
func (s *lineStream) feed(chunk []byte, final bool, handle frameFunc) []Event {
	if s.done {
		return nil
	}
	s.buf = append(s.buf, chunk...)

	var events []Event
	off := 0
	for !s.done {
		line, next, ok := nextLine(s.buf, off, final)
		if !ok {
			break
		}
		off = next

		payload, ok := dataPayload(line)
		if !ok {
			continue
		}
		for _, ev := range handle(payload) {
			events = append(events, ev)
			if ev.Done {
				s.done = true
				break
			}
		}
	}

	if s.done {
		s.buf = s.buf[:0]
		return events
	}
	n := copy(s.buf, s.buf[off:])
	s.buf = s.buf[:n]
	return events
}

// nextLine returns the line starting at off and the offset after it.
func nextLine(buf []byte, off int, final bool) ([]byte, int, bool) {
	if idx := bytes.IndexByte(buf[off:], '\n'); idx >= 0 {
		return buf[off : off+idx], off + idx + 1, true
	}
	if final && off < len(buf) {
		return buf[off:], len(buf), true
	}
	return nil, off, false
}

// dataPayload returns the trimmed payload of a "data: " line.
func dataPayload(line []byte) ([]byte, bool) {
	if !bytes.HasPrefix(line, dataPrefix) {
		return nil, false
	}
	return bytes.TrimSpace(line[len(dataPrefix):]), true
}

func intPtr(n int) *int { return &n }
