package sse

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/n0madic/go-vertexproxy/internal/types"
)

// mapGeminiFinishReason converts a Gemini finishReason to an OpenAI
// finish_reason.
func mapGeminiFinishReason(reason string) string {
	switch reason {
	case "STOP":
		return "stop"
	case "MAX_TOKENS":
		return "length"
	case "":
		return "stop"
	default:
		return strings.ToLower(reason)
	}
}

// TranslateGeminiChat consumes a streamGenerateContent SSE stream and
// re-emits OpenAI chat completion chunks. Stream end is the implicit
// terminal for Gemini; a scanner error is a fault and closes silently.
func TranslateGeminiChat(w http.ResponseWriter, body io.ReadCloser, model string, created int64, requestID string) *StreamState {
	defer body.Close()

	st := NewStreamState()
	cw := newChunkWriter(w, st, requestID)

	makeChunk := func(delta types.ChatDelta, finish *string) types.ChatCompletionChunk {
		return types.ChatCompletionChunk{
			ID:      st.CompletionID,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   model,
			Choices: []types.ChatChunkChoice{
				{Index: 0, Delta: delta, FinishReason: finish},
			},
		}
	}

	cw.writeChunk(makeChunk(types.ChatDelta{Role: "assistant"}, nil))
	st.RoleFrameSent = true

	reader := NewReader(body)
	for !cw.failed {
		evt, err := reader.Next()
		if err != nil {
			if err != io.EOF {
				slog.Error("upstream stream read failed",
					"request_id", requestID, "error", err)
				return st
			}
			st.ReceivedTerminalUp = true
			break
		}

		text, finishReason := geminiChunkText(evt.Data)
		if text != "" {
			cw.writeChunk(makeChunk(types.ChatDelta{Content: text}, nil))
		}
		if finishReason != "" {
			st.CapturedFinishReason = mapGeminiFinishReason(finishReason)
		}
	}

	if !st.ReceivedTerminalUp || cw.failed {
		return st
	}

	finish := st.CapturedFinishReason
	if finish == "" {
		finish = "stop"
	}
	cw.writeChunk(makeChunk(types.ChatDelta{}, types.StringPtr(finish)))
	if !cw.failed {
		st.FinalFrameSent = true
		cw.writeDone()
	}
	return st
}

// TranslateGeminiText is the legacy text-completions variant.
func TranslateGeminiText(w http.ResponseWriter, body io.ReadCloser, model string, created int64, requestID string) *StreamState {
	defer body.Close()

	st := NewStreamState()
	st.CompletionID = "cmpl-" + st.CompletionID[len("chatcmpl-"):]
	cw := newChunkWriter(w, st, requestID)

	makeChunk := func(text string, finish *string) types.CompletionChunk {
		return types.CompletionChunk{
			ID:      st.CompletionID,
			Object:  "text_completion",
			Created: created,
			Model:   model,
			Choices: []types.CompletionChunkChoice{
				{Text: text, Index: 0, FinishReason: finish},
			},
		}
	}

	reader := NewReader(body)
	for !cw.failed {
		evt, err := reader.Next()
		if err != nil {
			if err != io.EOF {
				slog.Error("upstream stream read failed",
					"request_id", requestID, "error", err)
				return st
			}
			st.ReceivedTerminalUp = true
			break
		}

		text, finishReason := geminiChunkText(evt.Data)
		if text != "" {
			cw.writeChunk(makeChunk(text, nil))
		}
		if finishReason != "" {
			st.CapturedFinishReason = mapGeminiFinishReason(finishReason)
		}
	}

	if !st.ReceivedTerminalUp || cw.failed {
		return st
	}

	finish := st.CapturedFinishReason
	if finish == "" {
		finish = "stop"
	}
	cw.writeChunk(makeChunk("", types.StringPtr(finish)))
	if !cw.failed {
		st.FinalFrameSent = true
		cw.writeDone()
	}
	return st
}

// geminiChunkText extracts the first candidate's concatenated part text and
// finishReason from one streamed chunk.
func geminiChunkText(data map[string]any) (text, finishReason string) {
	candidates, _ := data["candidates"].([]any)
	if len(candidates) == 0 {
		return "", ""
	}
	candidate, _ := candidates[0].(map[string]any)
	if candidate == nil {
		return "", ""
	}
	finishReason, _ = candidate["finishReason"].(string)
	content, _ := candidate["content"].(map[string]any)
	if content == nil {
		return "", finishReason
	}
	parts, _ := content["parts"].([]any)
	var sb strings.Builder
	for _, part := range parts {
		p, ok := part.(map[string]any)
		if !ok {
			continue
		}
		if t, ok := p["text"].(string); ok {
			sb.WriteString(t)
		}
	}
	return sb.String(), finishReason
}
