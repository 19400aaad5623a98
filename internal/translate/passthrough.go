package translate

import (
	"encoding/json"
	"fmt"

	"github.com/n0madic/go-vertexproxy/internal/types"
)

// defaultPassthroughMaxTokens is applied when a messages body omits
// max_tokens (the field is mandatory upstream).
const defaultPassthroughMaxTokens = 4096

// NormalizeAnthropicBody prepares an Anthropic messages body for Vertex:
// injects anthropic_version, defaults max_tokens, forces the stream flag,
// and drops the model field (Vertex takes the model from the URL). All
// other fields pass through untouched.
func NormalizeAnthropicBody(raw []byte, stream bool) ([]byte, string, error) {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, "", fmt.Errorf("invalid JSON body: %w", err)
	}
	if _, ok := body["messages"]; !ok {
		return nil, "", fmt.Errorf("messages field is required")
	}

	model, _ := body["model"].(string)
	delete(body, "model")

	body["anthropic_version"] = types.AnthropicVersionVertex
	if _, ok := body["max_tokens"]; !ok {
		body["max_tokens"] = defaultPassthroughMaxTokens
	}
	if stream {
		body["stream"] = true
	} else {
		delete(body, "stream")
	}

	out, err := json.Marshal(body)
	if err != nil {
		return nil, "", err
	}
	return out, model, nil
}
