package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

func newSDKSmokeHTTPServer(t *testing.T, up *mockUpstream) *httptest.Server {
	t.Helper()

	s := newTestServer(t, up, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", s.handleChatCompletions)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIGoSDKSmokeChatCompletions(t *testing.T) {
	up := &mockUpstream{results: []mockResult{{body: anthropicOKBody}}}
	httpSrv := newSDKSmokeHTTPServer(t, up)

	client := openai.NewClient(
		option.WithBaseURL(httpSrv.URL+"/v1"),
		option.WithAPIKey("test-key"),
	)

	out, err := client.Chat.Completions.New(context.Background(), openai.ChatCompletionNewParams{
		Model: shared.ChatModel("sonnet"),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("hello from sdk"),
		},
	})
	if err != nil {
		t.Fatalf("sdk chat completion failed: %v", err)
	}

	if len(out.Choices) == 0 {
		t.Fatalf("expected non-empty choices, got: %+v", out)
	}
	if got := out.Choices[0].Message.Content; !strings.Contains(got, "hello there") {
		t.Fatalf("unexpected content: %q", got)
	}
	if len(up.requests()) != 1 {
		t.Fatalf("upstream call count: got %d want 1", len(up.requests()))
	}
}

func TestOpenAIGoSDKSmokeChatCompletionsStreaming(t *testing.T) {
	streamBody := `event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"SDK "}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"streams"}}

event: message_delta
data: {"type":"message_delta","delta":{"stop_reason":"end_turn"}}

event: message_stop
data: {"type":"message_stop"}
`
	up := &mockUpstream{results: []mockResult{{body: streamBody}}}
	httpSrv := newSDKSmokeHTTPServer(t, up)

	client := openai.NewClient(
		option.WithBaseURL(httpSrv.URL+"/v1"),
		option.WithAPIKey("test-key"),
	)

	stream := client.Chat.Completions.NewStreaming(context.Background(), openai.ChatCompletionNewParams{
		Model: shared.ChatModel("claude-sonnet-4-5@20250929"),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("stream please"),
		},
	})

	var text strings.Builder
	var finish string
	var ids []string
	for stream.Next() {
		chunk := stream.Current()
		ids = append(ids, chunk.ID)
		if len(chunk.Choices) == 0 {
			continue
		}
		text.WriteString(chunk.Choices[0].Delta.Content)
		if chunk.Choices[0].FinishReason != "" {
			finish = chunk.Choices[0].FinishReason
		}
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("sdk stream failed: %v", err)
	}

	if text.String() != "SDK streams" {
		t.Fatalf("unexpected streamed text: %q", text.String())
	}
	if finish != "stop" {
		t.Fatalf("unexpected finish reason: %q", finish)
	}
	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("chunk ids must be stable across the stream: %v", ids)
		}
	}
}
