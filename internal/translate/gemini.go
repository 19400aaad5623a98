package translate

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/n0madic/go-vertexproxy/internal/types"
)

// imageFailurePlaceholder replaces an image part whose remote fetch failed.
// The request still proceeds; the model just sees the placeholder text.
const imageFailurePlaceholder = "[Image could not be loaded]"

// OpenAIChatToGemini converts an OpenAI chat request into the Gemini
// generateContent body. Remote image URLs are fetched and inlined; a fetch
// failure substitutes a placeholder text part and never fails the request.
func OpenAIChatToGemini(ctx context.Context, req *types.ChatCompletionRequest, fetcher *ImageFetcher) types.GeminiRequest {
	out := types.GeminiRequest{}

	if system := MergeSystemMessages(req.Messages); system != "" {
		out.SystemInstruction = &types.GeminiContent{
			Parts: []types.GeminiPart{{Text: system}},
		}
	}

	for _, m := range req.Messages {
		if m.Role == "system" {
			continue
		}
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}

		var parts []types.GeminiPart
		if m.Role == "assistant" && len(m.ToolCalls) > 0 {
			if text := ContentText(m.Content); text != "" {
				parts = append(parts, types.GeminiPart{Text: text})
			}
			for _, tc := range m.ToolCalls {
				args := map[string]any{}
				if tc.Function.Arguments != "" {
					_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
				}
				parts = append(parts, types.GeminiPart{
					FunctionCall: &types.GeminiFunctionCall{Name: tc.Function.Name, Args: args},
				})
			}
		} else {
			parts = geminiParts(ctx, m.Content, fetcher)
		}
		if len(parts) == 0 {
			continue
		}
		out.Contents = append(out.Contents, types.GeminiContent{Role: role, Parts: parts})
	}

	cfg := &types.GeminiGenerationConfig{
		MaxOutputTokens: req.EffectiveMaxTokens(),
		Temperature:     req.Temperature,
		StopSequences:   stopSequences(req.Stop),
	}
	out.GenerationConfig = cfg

	if decls := geminiFunctionDecls(req.Tools); len(decls) > 0 {
		out.Tools = []types.GeminiTool{{FunctionDeclarations: decls}}
	}

	return out
}

func geminiParts(ctx context.Context, content any, fetcher *ImageFetcher) []types.GeminiPart {
	switch c := content.(type) {
	case string:
		if c == "" {
			return nil
		}
		return []types.GeminiPart{{Text: c}}
	case []any:
		var parts []types.GeminiPart
		for _, part := range c {
			p, ok := part.(map[string]any)
			if !ok {
				continue
			}
			ptype, _ := p["type"].(string)
			switch ptype {
			case "text":
				if t, ok := p["text"].(string); ok && t != "" {
					parts = append(parts, types.GeminiPart{Text: t})
				}
			case "image_url":
				parts = append(parts, geminiImagePart(ctx, imagePartURL(p), fetcher))
			}
		}
		return parts
	}
	return nil
}

func geminiImagePart(ctx context.Context, url string, fetcher *ImageFetcher) types.GeminiPart {
	if url == "" {
		return types.GeminiPart{Text: imageFailurePlaceholder}
	}
	if mediaType, data, ok := ParseDataURI(url); ok {
		return types.GeminiPart{
			InlineData: &types.GeminiInlineData{MimeType: mediaType, Data: data},
		}
	}
	if fetcher == nil {
		slog.Warn("no image fetcher configured, substituting placeholder", "url", url)
		return types.GeminiPart{Text: imageFailurePlaceholder}
	}
	mimeType, data, err := fetcher.Fetch(ctx, url)
	if err != nil {
		slog.Warn("remote image fetch failed, substituting placeholder", "url", url, "error", err)
		return types.GeminiPart{Text: imageFailurePlaceholder}
	}
	return types.GeminiPart{
		InlineData: &types.GeminiInlineData{MimeType: mimeType, Data: data},
	}
}

func geminiFunctionDecls(tools []types.ChatTool) []types.GeminiFunctionDecl {
	var out []types.GeminiFunctionDecl
	for _, t := range tools {
		if t.Type != "function" || t.Function == nil || t.Function.Name == "" {
			continue
		}
		out = append(out, types.GeminiFunctionDecl{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  t.Function.Parameters,
		})
	}
	return out
}
