package translate

import (
	"strings"

	"github.com/n0madic/go-vertexproxy/internal/types"
)

// LiftPrompt converts a legacy text-completion request into a chat request
// with a single user message; the remaining translation is shared with chat.
func LiftPrompt(req *types.CompletionRequest) types.ChatCompletionRequest {
	return types.ChatCompletionRequest{
		Model: req.Model,
		Messages: []types.ChatMessage{
			{Role: "user", Content: PromptText(req.Prompt)},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      req.Stream,
		Stop:        req.Stop,
	}
}

// PromptText flattens the legacy prompt field (string or list of strings).
func PromptText(prompt any) string {
	switch p := prompt.(type) {
	case string:
		return p
	case []any:
		var parts []string
		for _, item := range p {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	}
	return ""
}
