package translate

import (
	"encoding/json"
	"strings"

	"github.com/n0madic/go-vertexproxy/internal/types"
)

// OpenAIChatToAnthropic converts an OpenAI chat request into the
// Anthropic-on-Vertex messages body. maxTokens must already be resolved by
// the caller (Anthropic requires it).
func OpenAIChatToAnthropic(req *types.ChatCompletionRequest, maxTokens int) types.AnthropicRequest {
	out := types.AnthropicRequest{
		AnthropicVersion: types.AnthropicVersionVertex,
		MaxTokens:        maxTokens,
		Temperature:      req.Temperature,
		Stream:           req.Stream,
		StopSequences:    stopSequences(req.Stop),
		System:           MergeSystemMessages(req.Messages),
	}

	for _, m := range req.Messages {
		if m.Role == "system" {
			continue
		}
		switch m.Role {
		case "tool":
			out.Messages = append(out.Messages, types.AnthropicMessage{
				Role: "user",
				Content: []types.AnthropicContentBlock{{
					Type:      "tool_result",
					ToolUseID: m.ToolCallID,
					Content:   ContentText(m.Content),
				}},
			})
		case "assistant":
			if len(m.ToolCalls) > 0 {
				out.Messages = append(out.Messages, types.AnthropicMessage{
					Role:    "assistant",
					Content: assistantToolUseBlocks(m),
				})
				continue
			}
			out.Messages = append(out.Messages, types.AnthropicMessage{
				Role:    "assistant",
				Content: convertContent(m.Content),
			})
		default:
			out.Messages = append(out.Messages, types.AnthropicMessage{
				Role:    "user",
				Content: convertContent(m.Content),
			})
		}
	}

	out.Tools = convertTools(req.Tools)
	out.ToolChoice = convertToolChoice(req.ToolChoice)

	return out
}

// MergeSystemMessages joins all system-role message texts with a blank line,
// in order.
func MergeSystemMessages(messages []types.ChatMessage) string {
	var parts []string
	for _, m := range messages {
		if m.Role != "system" {
			continue
		}
		if text := ContentText(m.Content); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// ContentText flattens string-or-parts content into plain text.
func ContentText(content any) string {
	switch c := content.(type) {
	case string:
		return c
	case []any:
		var texts []string
		for _, part := range c {
			p, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := p["text"].(string); ok && t != "" {
				texts = append(texts, t)
			}
		}
		return strings.Join(texts, "\n")
	}
	return ""
}

// convertContent passes string content through and rewrites part lists into
// Anthropic content blocks. data: image URLs are inlined as base64 source
// blocks; remote URLs become url source blocks.
func convertContent(content any) any {
	parts, ok := content.([]any)
	if !ok {
		if s, ok := content.(string); ok {
			return s
		}
		return ""
	}

	var blocks []types.AnthropicContentBlock
	for _, part := range parts {
		p, ok := part.(map[string]any)
		if !ok {
			continue
		}
		ptype, _ := p["type"].(string)
		switch ptype {
		case "text":
			if t, ok := p["text"].(string); ok {
				blocks = append(blocks, types.AnthropicContentBlock{Type: "text", Text: t})
			}
		case "image_url":
			url := imagePartURL(p)
			if url == "" {
				continue
			}
			if mediaType, data, ok := ParseDataURI(url); ok {
				blocks = append(blocks, types.AnthropicContentBlock{
					Type: "image",
					Source: &types.AnthropicImageSource{
						Type:      "base64",
						MediaType: mediaType,
						Data:      data,
					},
				})
				continue
			}
			blocks = append(blocks, types.AnthropicContentBlock{
				Type:   "image",
				Source: &types.AnthropicImageSource{Type: "url", URL: url},
			})
		}
	}
	if blocks == nil {
		return ""
	}
	return blocks
}

func assistantToolUseBlocks(m types.ChatMessage) []types.AnthropicContentBlock {
	var blocks []types.AnthropicContentBlock
	if text := ContentText(m.Content); text != "" {
		blocks = append(blocks, types.AnthropicContentBlock{Type: "text", Text: text})
	}
	for _, tc := range m.ToolCalls {
		if tc.Type != "" && tc.Type != "function" {
			continue
		}
		input := map[string]any{}
		if tc.Function.Arguments != "" {
			// Malformed arguments degrade to an empty input object rather
			// than failing the request.
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &input)
		}
		blocks = append(blocks, types.AnthropicContentBlock{
			Type:  "tool_use",
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: input,
		})
	}
	return blocks
}

func convertTools(tools []types.ChatTool) []types.AnthropicTool {
	var out []types.AnthropicTool
	for _, t := range tools {
		if t.Type != "function" || t.Function == nil || t.Function.Name == "" {
			continue
		}
		schema := t.Function.Parameters
		if schema == nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out = append(out, types.AnthropicTool{
			Type:        "custom",
			Name:        t.Function.Name,
			Description: t.Function.Description,
			InputSchema: schema,
		})
	}
	return out
}

func convertToolChoice(choice any) *types.AnthropicToolChoice {
	switch v := choice.(type) {
	case string:
		switch v {
		case "auto", "none":
			return &types.AnthropicToolChoice{Type: v}
		}
	case map[string]any:
		if kind, _ := v["type"].(string); kind == "function" {
			if fn, ok := v["function"].(map[string]any); ok {
				if name, _ := fn["name"].(string); name != "" {
					return &types.AnthropicToolChoice{Type: "tool", Name: name}
				}
			}
		}
	}
	return nil
}

func stopSequences(stop any) []string {
	switch v := stop.(type) {
	case string:
		if v != "" {
			return []string{v}
		}
	case []any:
		var out []string
		for _, s := range v {
			if str, ok := s.(string); ok && str != "" {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

func imagePartURL(p map[string]any) string {
	switch img := p["image_url"].(type) {
	case map[string]any:
		u, _ := img["url"].(string)
		return u
	case string:
		return img
	}
	return ""
}
