package transcode

import (
	"bytes"
	"errors"
	"io"

	"github.com/starnote/ai-gateway/internal/config"
)

// Stats summarizes what a Reader has produced so far.
type Stats struct {
	Events int
	Done   bool
	Usage  Usage
}

// Reader exposes a transcoded stream as an io.Reader. Upstream is read only
// when the encoded output of previous reads has been fully consumed, so the
// downstream consumer paces the upstream connection.
type Reader struct {
	src   io.Reader
	t     Transcoder
	chunk []byte
	out   bytes.Buffer
	err   error
	stats Stats
}

// NewReader wraps upstream with transcoder t.
func NewReader(upstream io.Reader, t Transcoder) *Reader {
	return &Reader{
		src:   upstream,
		t:     t,
		chunk: make([]byte, config.DefaultBufferSize),
	}
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	for r.out.Len() == 0 {
		if r.err != nil {
			return 0, r.err
		}
		r.fill()
	}
	return r.out.Read(p)
}

// fill pulls one upstream chunk and encodes the events it yields.
func (r *Reader) fill() {
	n, err := r.src.Read(r.chunk)
	var events []Event
	if n > 0 {
		events = r.t.Feed(r.chunk[:n])
	}
	switch {
	case errors.Is(err, io.EOF):
		events = append(events, r.t.Finish()...)
		r.err = io.EOF
	case err != nil:
		r.err = err
	}

	for _, ev := range events {
		r.out.Write(ev.Encode())
		r.stats.Events++
		if ev.Done {
			r.stats.Done = true
			r.stats.Usage = ev.Usage
		}
	}
}

// Stats returns the events emitted so far and the terminal usage, if any.
func (r *Reader) Stats() Stats {
	return r.stats
}
