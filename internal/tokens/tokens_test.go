package tokens

import (
	"strings"
	"testing"

	"github.com/starnote/ai-gateway/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"one char", "a", 1},
		{"exact multiple", "abcd", 1},
		{"rounds up", "abcde", 2},
		{"multibyte counted as runes", "çğış", 1},
		{"long", strings.Repeat("x", 401), 101},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Estimate(tt.text))
			assert.Equal(t, tt.want, CharCounter{}.Count("gpt-4o", tt.text))
		})
	}
}

func TestNewCounter(t *testing.T) {
	c, err := NewCounter(config.TokenCounterChars)
	require.NoError(t, err)
	assert.IsType(t, CharCounter{}, c)

	c, err = NewCounter("")
	require.NoError(t, err)
	assert.IsType(t, CharCounter{}, c)

	_, err = NewCounter("words")
	assert.Error(t, err)
}

func TestTiktokenCounter(t *testing.T) {
	c, err := NewTiktokenCounter()
	if err != nil {
		// Encodings are fetched on first use; skip when offline.
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}

	n := c.Count("gpt-4o-mini", "hello world")
	assert.Greater(t, n, 0)
	assert.Less(t, n, 5)

	// Unknown models fall back to cl100k_base.
	assert.Equal(t, c.Count("", "hello world"), c.Count("not-a-model", "hello world"))
}
