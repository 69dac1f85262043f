// Package tokens estimates token counts for usage accounting.
//
// Two counters are available:
//   - CharCounter:     ceil(chars / TokenEstimateRatio), no dependencies, always available
//   - TiktokenCounter: BPE count with the model's encoding (cl100k_base fallback)
//
// Both are estimates used for the usage log only. Provider-reported usage,
// when present in the stream, is always preferred by the transcoders.
package tokens

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"github.com/starnote/ai-gateway/internal/config"
)

// Counter counts tokens in a text for a model.
type Counter interface {
	Count(model, text string) int
}

// Estimate returns ceil(chars / TokenEstimateRatio). Characters are counted
// as runes so multi-byte scripts are not over-counted.
func Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + config.TokenEstimateRatio - 1) / config.TokenEstimateRatio
}

// CharCounter is the character-ratio estimator.
type CharCounter struct{}

// Count implements Counter.
func (CharCounter) Count(_ string, text string) int {
	return Estimate(text)
}

// fallbackEncoding is used for models tiktoken does not know.
const fallbackEncoding = "cl100k_base"

// TiktokenCounter counts BPE tokens. Encodings are loaded once per model.
// If an encoding cannot be loaded the character estimate is used instead.
type TiktokenCounter struct {
	mu        sync.Mutex
	encodings map[string]*tiktoken.Tiktoken
}

// NewTiktokenCounter creates a counter and eagerly loads the fallback encoding.
func NewTiktokenCounter() (*TiktokenCounter, error) {
	enc, err := tiktoken.GetEncoding(fallbackEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", fallbackEncoding, err)
	}
	return &TiktokenCounter{
		encodings: map[string]*tiktoken.Tiktoken{"": enc},
	}, nil
}

// Count implements Counter.
func (c *TiktokenCounter) Count(model, text string) int {
	enc := c.encodingFor(model)
	if enc == nil {
		return Estimate(text)
	}
	return len(enc.Encode(text, nil, nil))
}

func (c *TiktokenCounter) encodingFor(model string) *tiktoken.Tiktoken {
	c.mu.Lock()
	defer c.mu.Unlock()

	if enc, ok := c.encodings[model]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc = c.encodings[""]
	}
	c.encodings[model] = enc
	return enc
}

// NewCounter returns the counter named by config.TokenCounter*.
func NewCounter(kind string) (Counter, error) {
	switch kind {
	case "", config.TokenCounterChars:
		return CharCounter{}, nil
	case config.TokenCounterTiktoken:
		return NewTiktokenCounter()
	default:
		return nil, fmt.Errorf("unknown token counter %q", kind)
	}
}
