// Package tokencount estimates token usage for auto-truncation. It prefers a
// tiktoken encoding when one can be loaded and falls back to a chars/4
// heuristic otherwise.
package tokencount

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/n0madic/go-vertexproxy/internal/types"
)

// messageOverhead approximates per-message framing cost (role plus structure).
const messageOverhead = 5

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

func encoding() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		// cl100k_base tracks Claude and Gemini tokenizers closely enough
		// for a truncation budget. Init failure (no BPE data available)
		// leaves enc nil and the heuristic takes over.
		e, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			enc = e
		}
	})
	return enc
}

// Estimate returns the approximate token count of text.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	if e := encoding(); e != nil {
		return len(e.Encode(text, nil, nil))
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}

// EstimateMessage returns the approximate token count of one message,
// including structural overhead.
func EstimateMessage(m types.ChatMessage) int {
	return messageOverhead + Estimate(messageText(m))
}

// EstimateMessages returns the approximate token count of a conversation.
func EstimateMessages(messages []types.ChatMessage) int {
	total := 0
	for _, m := range messages {
		total += EstimateMessage(m)
	}
	return total
}

func messageText(m types.ChatMessage) string {
	text := contentText(m.Content)
	for _, tc := range m.ToolCalls {
		text += tc.Function.Name + tc.Function.Arguments
	}
	return text
}

func contentText(content any) string {
	switch c := content.(type) {
	case string:
		return c
	case []any:
		var text string
		for _, part := range c {
			p, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := p["text"].(string); ok {
				text += t
			}
		}
		return text
	}
	return ""
}
