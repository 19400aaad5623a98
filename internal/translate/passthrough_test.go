package translate

import (
	"encoding/json"
	"testing"
)

func TestNormalizeAnthropicBody(t *testing.T) {
	raw := []byte(`{"model":"sonnet","messages":[{"role":"user","content":"hi"}],"metadata":{"user_id":"u1"}}`)

	out, model, err := NormalizeAnthropicBody(raw, true)
	if err != nil {
		t.Fatal(err)
	}
	if model != "sonnet" {
		t.Fatalf("model must be extracted: %q", model)
	}

	var body map[string]any
	if err := json.Unmarshal(out, &body); err != nil {
		t.Fatal(err)
	}
	if body["anthropic_version"] != "vertex-2023-10-16" {
		t.Fatalf("anthropic_version must be injected: %v", body["anthropic_version"])
	}
	if _, ok := body["model"]; ok {
		t.Fatal("model must be stripped; Vertex takes it from the URL")
	}
	if body["max_tokens"] != float64(4096) {
		t.Fatalf("max_tokens must default: %v", body["max_tokens"])
	}
	if body["stream"] != true {
		t.Fatalf("stream flag must be forced: %v", body["stream"])
	}
	if _, ok := body["metadata"]; !ok {
		t.Fatal("unrelated fields must pass through")
	}
}

func TestNormalizeAnthropicBodyKeepsMaxTokens(t *testing.T) {
	raw := []byte(`{"messages":[],"max_tokens":77}`)
	out, _, err := NormalizeAnthropicBody(raw, false)
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]any
	json.Unmarshal(out, &body)
	if body["max_tokens"] != float64(77) {
		t.Fatalf("explicit max_tokens must survive: %v", body["max_tokens"])
	}
	if _, ok := body["stream"]; ok {
		t.Fatal("stream must be absent on non-streaming requests")
	}
}

func TestNormalizeAnthropicBodyRejectsMissingMessages(t *testing.T) {
	if _, _, err := NormalizeAnthropicBody([]byte(`{"model":"sonnet"}`), false); err == nil {
		t.Fatal("missing messages must be rejected")
	}
	if _, _, err := NormalizeAnthropicBody([]byte(`not json`), false); err == nil {
		t.Fatal("malformed JSON must be rejected")
	}
}
