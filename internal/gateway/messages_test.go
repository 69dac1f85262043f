package gateway

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starnote/ai-gateway/internal/adapters"
)

func TestParseMessages(t *testing.T) {
	msgs, err := parseMessages(json.RawMessage(`[{"role":"user","content":"a"},{"role":"assistant","content":[{"type":"text","text":"b"}]}]`))
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "b", msgs[1].LeadText())

	for _, raw := range []string{``, `null`, `"x"`, `{}`, `[]`} {
		_, err := parseMessages(json.RawMessage(raw))
		assert.True(t, errors.Is(err, errBadMessages), "input %q", raw)
	}
}

func TestDecodeChatRequest(t *testing.T) {
	req, raw, err := decodeChatRequest(strings.NewReader(`{"messages":[],"taskType":"math_simple","conversationId":"c1","image":"QUJD"}`))
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.Equal(t, "math_simple", req.TaskType)
	assert.Equal(t, "c1", req.ConversationID)
	assert.Equal(t, "QUJD", req.Image)

	_, _, err = decodeChatRequest(strings.NewReader(`[]`))
	assert.ErrorIs(t, err, errBadMessages)
}

func TestBuildConversation(t *testing.T) {
	user := adapters.TextMessage(adapters.RoleUser, "soru")
	assistant := adapters.TextMessage(adapters.RoleAssistant, "cevap")

	t.Run("prompt prepended", func(t *testing.T) {
		out := buildConversation("PROMPT", []adapters.Message{user}, "")
		require.Len(t, out, 2)
		assert.Equal(t, adapters.RoleSystem, out[0].Role)
		assert.Equal(t, "PROMPT", out[0].LeadText())
		assert.Equal(t, user, out[1])
	})

	t.Run("image replaces last user content", func(t *testing.T) {
		out := buildConversation("P", []adapters.Message{user, assistant, user, assistant}, "AAAA")
		require.Len(t, out, 5)
		assert.Equal(t, user, out[1])
		assert.JSONEq(t,
			`[{"type":"text","text":"soru"},{"type":"image_url","image_url":{"url":"data:image/png;base64,AAAA"}}]`,
			string(out[3].Content))
	})

	t.Run("multi-part user keeps first text", func(t *testing.T) {
		parts := adapters.PartsMessage(adapters.RoleUser, []adapters.ContentPart{{Type: adapters.PartText, Text: "ilk"}, {Type: adapters.PartText, Text: "ikinci"}})
		out := buildConversation("P", []adapters.Message{parts}, "AAAA")
		assert.JSONEq(t,
			`[{"type":"text","text":"ilk"},{"type":"image_url","image_url":{"url":"data:image/png;base64,AAAA"}}]`,
			string(out[1].Content))
	})

	t.Run("non-text user content becomes empty text", func(t *testing.T) {
		odd := adapters.Message{Role: adapters.RoleUser, Content: json.RawMessage(`42`)}
		out := buildConversation("P", []adapters.Message{odd}, "AAAA")
		assert.JSONEq(t,
			`[{"type":"text","text":""},{"type":"image_url","image_url":{"url":"data:image/png;base64,AAAA"}}]`,
			string(out[1].Content))
	})

	t.Run("no user message drops image", func(t *testing.T) {
		in := []adapters.Message{assistant}
		out := buildConversation("P", in, "AAAA")
		require.Len(t, out, 2)
		assert.Equal(t, assistant, out[1])
	})

	t.Run("input slice untouched", func(t *testing.T) {
		in := []adapters.Message{user}
		_ = buildConversation("P", in, "AAAA")
		assert.Equal(t, user, in[0])
	})
}

func TestIPRateLimiter(t *testing.T) {
	assert.True(t, (*ipRateLimiter)(nil).Allow("1.2.3.4"))
	assert.Nil(t, newIPRateLimiter(0))

	rl := newIPRateLimiter(2)
	defer rl.Stop()

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
	assert.Equal(t, 2, rl.size())

	rl.sweep(time.Now().Add(time.Hour), time.Minute)
	assert.Equal(t, 0, rl.size())
}

func TestIsLoopback(t *testing.T) {
	assert.True(t, isLoopback("127.0.0.1:8080"))
	assert.True(t, isLoopback("[::1]:8080"))
	assert.True(t, isLoopback("localhost:1"))
	assert.False(t, isLoopback("192.0.2.1:1234"))
	assert.False(t, isLoopback("garbage"))
}
