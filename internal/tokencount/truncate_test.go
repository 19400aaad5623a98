package tokencount

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n0madic/go-vertexproxy/internal/types"
)

func messageRun(n int, size int) []types.ChatMessage {
	msgs := make([]types.ChatMessage, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, types.ChatMessage{
			Role:    "user",
			Content: strings.Repeat("word ", size),
		})
	}
	return msgs
}

func TestTruncateNoopUnderBudget(t *testing.T) {
	msgs := messageRun(5, 10)
	out, dropped := Truncate(msgs, 200000, 4096)
	assert.Equal(t, 0, dropped)
	assert.Len(t, out, 5)
}

func TestTruncateDropsOldestFirst(t *testing.T) {
	msgs := []types.ChatMessage{
		{Role: "user", Content: strings.Repeat("old ", 400)},
		{Role: "user", Content: strings.Repeat("mid ", 400)},
		{Role: "user", Content: "tail-1"},
		{Role: "user", Content: "tail-2"},
		{Role: "user", Content: "tail-3"},
		{Role: "user", Content: "tail-4"},
	}

	out, dropped := Truncate(msgs, 600, 100)
	require.Greater(t, dropped, 0)

	// The last 4 messages survive verbatim and in order.
	require.GreaterOrEqual(t, len(out), 4)
	tail := out[len(out)-4:]
	assert.Equal(t, "tail-1", tail[0].Content)
	assert.Equal(t, "tail-2", tail[1].Content)
	assert.Equal(t, "tail-3", tail[2].Content)
	assert.Equal(t, "tail-4", tail[3].Content)
}

func TestTruncateNeverDropsLastFour(t *testing.T) {
	// Even an impossible budget keeps the trailing 4 messages.
	msgs := messageRun(6, 500)
	out, dropped := Truncate(msgs, 10, 5)
	assert.Equal(t, 2, dropped)
	assert.Len(t, out, 4)
}

func TestTruncateSkipsSystemMessages(t *testing.T) {
	msgs := []types.ChatMessage{
		{Role: "system", Content: strings.Repeat("rules ", 300)},
		{Role: "user", Content: strings.Repeat("old ", 300)},
		{Role: "user", Content: "a"},
		{Role: "user", Content: "b"},
		{Role: "user", Content: "c"},
		{Role: "user", Content: "d"},
	}

	out, dropped := Truncate(msgs, 500, 50)
	require.Greater(t, dropped, 0)
	assert.Equal(t, "system", out[0].Role, "system messages are never truncated")
}

func TestTruncatePreservesOrder(t *testing.T) {
	msgs := []types.ChatMessage{
		{Role: "user", Content: strings.Repeat("x", 4000)},
		{Role: "assistant", Content: "r1"},
		{Role: "user", Content: "q2"},
		{Role: "assistant", Content: "r2"},
		{Role: "user", Content: "q3"},
	}
	out, _ := Truncate(msgs, 500, 100)
	roles := make([]string, len(out))
	for i, m := range out {
		roles[i] = m.Role
	}
	assert.Equal(t, []string{"assistant", "user", "assistant", "user"}, roles)
}

func TestEstimateGrowsWithText(t *testing.T) {
	small := Estimate("hi")
	large := Estimate(strings.Repeat("hello world ", 100))
	assert.Greater(t, large, small)
	assert.Equal(t, 0, Estimate(""))
}

func TestEstimateMessagesCountsToolCalls(t *testing.T) {
	plain := EstimateMessages([]types.ChatMessage{{Role: "assistant", Content: "ok"}})
	withTool := EstimateMessages([]types.ChatMessage{{
		Role:    "assistant",
		Content: "ok",
		ToolCalls: []types.ToolCall{{
			Function: types.FunctionCall{Name: "f", Arguments: strings.Repeat(`{"k":"v"}`, 50)},
		}},
	}})
	assert.Greater(t, withTool, plain)
}
