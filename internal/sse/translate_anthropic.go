package sse

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/n0madic/go-vertexproxy/internal/types"
)

// MapStopReason converts an Anthropic stop_reason to an OpenAI
// finish_reason. Unrecognized values pass through verbatim.
func MapStopReason(stopReason string) string {
	switch stopReason {
	case "end_turn":
		return "stop"
	case "tool_use":
		return "tool_calls"
	default:
		return stopReason
	}
}

// TranslateAnthropicChat consumes an Anthropic-on-Vertex SSE stream and
// re-emits OpenAI chat completion chunks: a role frame first, then content
// and tool-call deltas in upstream order, then one finish_reason frame and
// the [DONE] sentinel. A broken upstream closes the response with no further
// frames. Returns the final stream state.
func TranslateAnthropicChat(w http.ResponseWriter, body io.ReadCloser, model string, created int64, requestID string) *StreamState {
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
	for !st.ReceivedTerminalUp && !cw.failed {
		evt, err := reader.Next()
		if err != nil {
			if err != io.EOF {
				slog.Error("upstream stream read failed",
					"request_id", requestID, "error", err)
				return st
			}
			break
		}

		switch evt.Type {
		case "content_block_start":
			block, _ := evt.Data["content_block"].(map[string]any)
			if blockType, _ := block["type"].(string); blockType == "tool_use" {
				id, _ := block["id"].(string)
				name, _ := block["name"].(string)
				st.SawToolCall = true
				cw.writeChunk(makeChunk(types.ChatDelta{
					ToolCalls: []types.ToolCall{{
						Index: 0,
						ID:    id,
						Type:  "function",
						Function: types.FunctionCall{
							Name:      name,
							Arguments: "",
						},
					}},
				}, nil))
			}

		case "content_block_delta":
			delta, _ := evt.Data["delta"].(map[string]any)
			switch deltaType, _ := delta["type"].(string); deltaType {
			case "text_delta":
				if text, _ := delta["text"].(string); text != "" {
					cw.writeChunk(makeChunk(types.ChatDelta{Content: text}, nil))
				}
			case "input_json_delta":
				if partial, _ := delta["partial_json"].(string); partial != "" {
					cw.writeChunk(makeChunk(types.ChatDelta{
						ToolCalls: []types.ToolCall{{
							Index:    0,
							Function: types.FunctionCall{Arguments: partial},
						}},
					}, nil))
				}
			}

		case "message_delta":
			delta, _ := evt.Data["delta"].(map[string]any)
			if reason, _ := delta["stop_reason"].(string); reason != "" {
				st.CapturedFinishReason = MapStopReason(reason)
			}

		case "message_stop":
			st.ReceivedTerminalUp = true

		case "error":
			// Post-headers upstream fault: never convert to a JSON body,
			// close silently after logging.
			slog.Error("upstream emitted error event mid-stream",
				"request_id", requestID, "event", string(evt.Raw))
			return st
		}
	}

	if !st.ReceivedTerminalUp {
		// Truncated upstream without an explicit fault: the client must
		// observe a broken stream, not a fabricated clean close.
		slog.Error("upstream stream ended without message_stop",
			"request_id", requestID, "chunks", st.ChunkCount)
		return st
	}
	if cw.failed {
		return st
	}

	finish := st.CapturedFinishReason
	if finish == "" {
		finish = "stop"
		if st.SawToolCall {
			finish = "tool_calls"
		}
	}
	cw.writeChunk(makeChunk(types.ChatDelta{}, types.StringPtr(finish)))
	if !cw.failed {
		st.FinalFrameSent = true
		cw.writeDone()
	}
	return st
}

// TranslateAnthropicText is the legacy text-completions variant: the same
// upstream consumption, emitted as text_completion chunks (no role frame).
func TranslateAnthropicText(w http.ResponseWriter, body io.ReadCloser, model string, created int64, requestID string) *StreamState {
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
	for !st.ReceivedTerminalUp && !cw.failed {
		evt, err := reader.Next()
		if err != nil {
			if err != io.EOF {
				slog.Error("upstream stream read failed",
					"request_id", requestID, "error", err)
				return st
			}
			break
		}

		switch evt.Type {
		case "content_block_delta":
			delta, _ := evt.Data["delta"].(map[string]any)
			if deltaType, _ := delta["type"].(string); deltaType == "text_delta" {
				if text, _ := delta["text"].(string); text != "" {
					cw.writeChunk(makeChunk(text, nil))
				}
			}
		case "message_delta":
			delta, _ := evt.Data["delta"].(map[string]any)
			if reason, _ := delta["stop_reason"].(string); reason != "" {
				st.CapturedFinishReason = MapStopReason(reason)
			}
		case "message_stop":
			st.ReceivedTerminalUp = true
		case "error":
			slog.Error("upstream emitted error event mid-stream",
				"request_id", requestID, "event", string(evt.Raw))
			return st
		}
	}

	if !st.ReceivedTerminalUp || cw.failed {
		if !st.ReceivedTerminalUp {
			slog.Error("upstream stream ended without message_stop",
				"request_id", requestID, "chunks", st.ChunkCount)
		}
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
