package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/n0madic/go-vertexproxy/internal/catalog"
	"github.com/n0madic/go-vertexproxy/internal/sse"
	"github.com/n0madic/go-vertexproxy/internal/types"
	"github.com/n0madic/go-vertexproxy/internal/upstream"
)

// respondChat collects a non-streaming upstream body and translates it into
// the OpenAI response shape the caller asked for.
func (s *Server) respondChat(w http.ResponseWriter, r *http.Request, resp *upstream.Response, res catalog.Resolution, legacy bool, created int64) {
	defer resp.Body.Body.Close()

	body, err := io.ReadAll(resp.Body.Body)
	if err != nil {
		writeError(w, r, http.StatusBadGateway, "proxy_error", "failed to read upstream response")
		return
	}

	var out any
	if res.Provider == catalog.ProviderGoogle {
		out, err = geminiToOpenAI(body, res.Canonical, created, legacy)
	} else {
		out, err = anthropicToOpenAI(body, res.Canonical, created, legacy)
	}
	if err != nil {
		writeError(w, r, http.StatusBadGateway, "proxy_error", "failed to parse upstream response: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// anthropicToOpenAI translates a non-streaming Anthropic messages response.
func anthropicToOpenAI(body []byte, model string, created int64, legacy bool) (any, error) {
	var up types.AnthropicResponse
	if err := json.Unmarshal(body, &up); err != nil {
		return nil, err
	}

	var text strings.Builder
	var toolCalls []types.ToolCall
	for _, block := range up.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			args := "{}"
			if block.Input != nil {
				if data, err := json.Marshal(block.Input); err == nil {
					args = string(data)
				}
			}
			toolCalls = append(toolCalls, types.ToolCall{
				Index: len(toolCalls),
				ID:    block.ID,
				Type:  "function",
				Function: types.FunctionCall{
					Name:      block.Name,
					Arguments: args,
				},
			})
		}
	}

	finish := "stop"
	if up.StopReason != nil {
		finish = sse.MapStopReason(*up.StopReason)
	}
	usage := &types.Usage{
		PromptTokens:     up.Usage.InputTokens,
		CompletionTokens: up.Usage.OutputTokens,
		TotalTokens:      up.Usage.InputTokens + up.Usage.OutputTokens,
	}

	if legacy {
		return types.CompletionResponse{
			ID:      "cmpl-" + uuid.NewString(),
			Object:  "text_completion",
			Created: created,
			Model:   model,
			Choices: []types.CompletionChoice{
				{Text: text.String(), Index: 0, FinishReason: finish},
			},
			Usage: usage,
		}, nil
	}

	return types.ChatCompletionResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: created,
		Model:   model,
		Choices: []types.ChatChoice{{
			Index: 0,
			Message: types.AssistantMessage{
				Role:      "assistant",
				Content:   text.String(),
				ToolCalls: toolCalls,
			},
			FinishReason: finish,
		}},
		Usage: usage,
	}, nil
}

// geminiToOpenAI translates a non-streaming generateContent response.
func geminiToOpenAI(body []byte, model string, created int64, legacy bool) (any, error) {
	var up types.GeminiResponse
	if err := json.Unmarshal(body, &up); err != nil {
		return nil, err
	}

	var text strings.Builder
	var toolCalls []types.ToolCall
	finish := "stop"
	if len(up.Candidates) > 0 {
		candidate := up.Candidates[0]
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				text.WriteString(part.Text)
			}
			if part.FunctionCall != nil {
				args := "{}"
				if data, err := json.Marshal(part.FunctionCall.Args); err == nil && part.FunctionCall.Args != nil {
					args = string(data)
				}
				toolCalls = append(toolCalls, types.ToolCall{
					Index: len(toolCalls),
					ID:    "call_" + uuid.NewString(),
					Type:  "function",
					Function: types.FunctionCall{
						Name:      part.FunctionCall.Name,
						Arguments: args,
					},
				})
			}
		}
		switch candidate.FinishReason {
		case "", "STOP":
			finish = "stop"
		case "MAX_TOKENS":
			finish = "length"
		default:
			finish = strings.ToLower(candidate.FinishReason)
		}
	}
	if len(toolCalls) > 0 {
		finish = "tool_calls"
	}

	var usage *types.Usage
	if up.UsageMetadata != nil {
		usage = &types.Usage{
			PromptTokens:     up.UsageMetadata.PromptTokenCount,
			CompletionTokens: up.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      up.UsageMetadata.TotalTokenCount,
		}
	}

	if legacy {
		return types.CompletionResponse{
			ID:      "cmpl-" + uuid.NewString(),
			Object:  "text_completion",
			Created: created,
			Model:   model,
			Choices: []types.CompletionChoice{
				{Text: text.String(), Index: 0, FinishReason: finish},
			},
			Usage: usage,
		}, nil
	}

	return types.ChatCompletionResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: created,
		Model:   model,
		Choices: []types.ChatChoice{{
			Index: 0,
			Message: types.AssistantMessage{
				Role:      "assistant",
				Content:   text.String(),
				ToolCalls: toolCalls,
			},
			FinishReason: finish,
		}},
		Usage: usage,
	}, nil
}

// respondImages translates an Imagen :predict response into the OpenAI
// images shape, echoing the prompt as revised_prompt.
func (s *Server) respondImages(w http.ResponseWriter, r *http.Request, resp *upstream.Response, req *types.ImageGenerationRequest) {
	defer resp.Body.Body.Close()

	body, err := io.ReadAll(resp.Body.Body)
	if err != nil {
		writeError(w, r, http.StatusBadGateway, "proxy_error", "failed to read upstream response")
		return
	}

	var up types.ImagenPredictResponse
	if err := json.Unmarshal(body, &up); err != nil {
		writeError(w, r, http.StatusBadGateway, "proxy_error", "failed to parse upstream response: "+err.Error())
		return
	}

	out := types.ImageGenerationResponse{Created: time.Now().Unix()}
	for _, p := range up.Predictions {
		out.Data = append(out.Data, types.ImageDatum{
			B64JSON:       p.BytesBase64Encoded,
			RevisedPrompt: req.Prompt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// pipeSSE forwards an upstream SSE body verbatim, flushing per read. Used by
// the Anthropic messages passthrough where no translation applies.
func pipeSSE(w http.ResponseWriter, body io.ReadCloser) error {
	defer body.Close()
	flusher, _ := w.(http.Flusher)

	buf := make([]byte, 32*1024)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
