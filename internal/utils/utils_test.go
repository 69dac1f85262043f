package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", "(empty)"},
		{"short key", "sk-proj-123", "****"},
		{"openai key", "sk-proj-123456789abcdef", "sk-proj-...cdef"},
		{"gemini key", "AIzaSyA1234567890abcdefghij", "AIzaSyA1...ghij"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskKey(tt.input))
		})
	}
}

func TestMarshalNoEscape(t *testing.T) {
	out, err := MarshalNoEscape(map[string]string{"details": "<openai> returned 500 & more"})
	require.NoError(t, err)
	assert.Equal(t, `{"details":"<openai> returned 500 & more"}`, string(out))
}

func TestSSEData(t *testing.T) {
	out, err := SSEData(map[string]string{"content": "x < y"})
	require.NoError(t, err)
	assert.Equal(t, "data: {\"content\":\"x < y\"}\n\n", string(out))

	_, err = SSEData(func() {})
	assert.Error(t, err)
}
