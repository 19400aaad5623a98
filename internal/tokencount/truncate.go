package tokencount

import (
	"log/slog"

	"github.com/n0madic/go-vertexproxy/internal/types"
)

// keepTail is the number of trailing messages always retained verbatim.
const keepTail = 4

// Truncate drops the oldest non-system messages until the estimated token
// count plus reserve fits within contextWindow. Message order is preserved
// and the last keepTail messages are never dropped. Returns the (possibly
// shorter) slice and the number of messages removed.
func Truncate(messages []types.ChatMessage, contextWindow, reserve int) ([]types.ChatMessage, int) {
	if contextWindow <= 0 {
		return messages, 0
	}
	budget := contextWindow - reserve
	if budget <= 0 || EstimateMessages(messages) <= budget {
		return messages, 0
	}

	out := make([]types.ChatMessage, len(messages))
	copy(out, messages)
	dropped := 0

	for EstimateMessages(out) > budget {
		idx := -1
		for i := 0; i < len(out)-keepTail; i++ {
			if out[i].Role != "system" {
				idx = i
				break
			}
		}
		if idx < 0 {
			break
		}
		out = append(out[:idx], out[idx+1:]...)
		dropped++
	}

	if dropped > 0 {
		slog.Info("auto-truncated conversation",
			"dropped", dropped,
			"remaining", len(out),
			"budget", budget,
		)
	}
	return out, dropped
}
