package upstream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/n0madic/go-vertexproxy/internal/catalog"
	"github.com/n0madic/go-vertexproxy/internal/gcpauth"
)

// regionServer wires fake per-region responses behind the endpointHost hook.
type regionServer struct {
	mu       sync.Mutex
	servers  map[string]*httptest.Server
	requests []string // regions in hit order
}

func newRegionServer(t *testing.T, responses map[string]func(w http.ResponseWriter, r *http.Request)) *regionServer {
	t.Helper()
	rs := &regionServer{servers: map[string]*httptest.Server{}}
	for region, handler := range responses {
		region, handler := region, handler
		rs.servers[region] = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rs.mu.Lock()
			rs.requests = append(rs.requests, region)
			rs.mu.Unlock()
			handler(w, r)
		}))
	}

	prev := endpointHost
	endpointHost = func(region string) string {
		if srv, ok := rs.servers[region]; ok {
			return srv.URL
		}
		return "http://127.0.0.1:1" // unroutable for unknown regions
	}
	t.Cleanup(func() {
		endpointHost = prev
		for _, srv := range rs.servers {
			srv.Close()
		}
	})
	return rs
}

func (rs *regionServer) hits() []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]string(nil), rs.requests...)
}

func testClient() *Client {
	return NewClient(gcpauth.StaticSource("test-token"), "test-project", false)
}

func testRequest() *Request {
	return &Request{
		Model:    "claude-sonnet-4-5@20250929",
		Provider: catalog.ProviderAnthropic,
		Body:     []byte(`{"anthropic_version":"vertex-2023-10-16"}`),
	}
}

func TestFailoverSecondRegionSucceeds(t *testing.T) {
	rs := newRegionServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"us-east5": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			io.WriteString(w, "overloaded")
		},
		"us-central1": func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"content":[{"type":"text","text":"ok"}]}`)
		},
	})

	c := testClient()
	resp, region, attempts, upErr := c.DoWithFailover(context.Background(), testRequest(),
		[]string{"us-east5", "us-central1"}, "req-1")
	if upErr != nil {
		t.Fatalf("unexpected error: %v", upErr)
	}
	defer resp.Body.Body.Close()

	if region != "us-central1" {
		t.Fatalf("expected success from us-central1, got %q", region)
	}
	if got := rs.hits(); len(got) != 2 || got[0] != "us-east5" || got[1] != "us-central1" {
		t.Fatalf("regions must be visited in plan order: %v", got)
	}
	if len(attempts) != 2 || attempts[0].Outcome != "retryable" || attempts[1].Outcome != "success" {
		t.Fatalf("unexpected attempts: %+v", attempts)
	}
}

func TestFailoverTerminalStopsImmediately(t *testing.T) {
	rs := newRegionServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"us-east5": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, "bad request")
		},
		"us-central1": func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "{}")
		},
	})

	c := testClient()
	_, _, attempts, upErr := c.DoWithFailover(context.Background(), testRequest(),
		[]string{"us-east5", "us-central1"}, "req-2")

	if upErr == nil {
		t.Fatal("expected a terminal error")
	}
	if !upErr.Terminal {
		t.Fatal("terminal classification must be marked")
	}
	if upErr.StatusCode != http.StatusBadRequest || upErr.Message() != "bad request" {
		t.Fatalf("terminal error must carry the upstream status and body: %+v", upErr)
	}
	if got := rs.hits(); len(got) != 1 {
		t.Fatalf("terminal errors must not try further regions: %v", got)
	}
	if len(attempts) != 1 || attempts[0].Outcome != "terminal" {
		t.Fatalf("unexpected attempts: %+v", attempts)
	}
}

func TestFailoverExhaustionSurfacesLastError(t *testing.T) {
	rs := newRegionServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"us-east5": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			io.WriteString(w, "rate limited")
		},
		"europe-west1": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			io.WriteString(w, "no capacity")
		},
	})

	c := testClient()
	_, _, attempts, upErr := c.DoWithFailover(context.Background(), testRequest(),
		[]string{"us-east5", "europe-west1"}, "req-3")

	if upErr == nil {
		t.Fatal("expected exhaustion error")
	}
	if upErr.Terminal {
		t.Fatal("exhaustion is not terminal; fallback chains may still apply")
	}
	if upErr.StatusCode != http.StatusServiceUnavailable || upErr.Message() != "no capacity" {
		t.Fatalf("exhaustion must surface the last retryable error: %+v", upErr)
	}
	if got := rs.hits(); len(got) != 2 {
		t.Fatalf("all regions must be tried: %v", got)
	}
	if len(attempts) != 2 {
		t.Fatalf("unexpected attempts: %+v", attempts)
	}
}

func TestFailoverNoCredentials(t *testing.T) {
	c := NewClient(gcpauth.StaticSource(""), "test-project", false)
	_, _, _, upErr := c.DoWithFailover(context.Background(), testRequest(),
		[]string{"us-east5", "us-central1"}, "req-4")

	if upErr == nil || upErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("missing credentials must surface a 500: %+v", upErr)
	}
	if !upErr.Terminal {
		t.Fatal("credential refusal must not trigger region or model fallback")
	}
}

func TestFailoverHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := testClient()
	_, _, attempts, upErr := c.DoWithFailover(ctx, testRequest(), []string{"us-east5"}, "req-5")
	if upErr == nil {
		t.Fatal("cancelled context must produce an error")
	}
	if len(attempts) != 0 {
		t.Fatalf("no region may start after cancellation: %+v", attempts)
	}
}

func TestClientURLShapes(t *testing.T) {
	c := testClient()

	cases := []struct {
		req  *Request
		want string
	}{
		{
			&Request{Model: "claude-sonnet-4-5@20250929", Provider: catalog.ProviderAnthropic},
			"https://us-east5-aiplatform.googleapis.com/v1/projects/test-project/locations/us-east5/publishers/anthropic/models/claude-sonnet-4-5@20250929:rawPredict",
		},
		{
			&Request{Model: "claude-sonnet-4-5@20250929", Provider: catalog.ProviderAnthropic, Stream: true},
			"https://us-east5-aiplatform.googleapis.com/v1/projects/test-project/locations/us-east5/publishers/anthropic/models/claude-sonnet-4-5@20250929:streamRawPredict",
		},
		{
			&Request{Model: "imagen-4.0-generate-001", Provider: catalog.ProviderImagen},
			"https://us-east5-aiplatform.googleapis.com/v1/projects/test-project/locations/us-east5/publishers/google/models/imagen-4.0-generate-001:predict",
		},
	}
	for _, tc := range cases {
		if got := c.URL("us-east5", tc.req); got != tc.want {
			t.Errorf("URL mismatch:\n got %s\nwant %s", got, tc.want)
		}
	}

	global := c.URL("global", &Request{Model: "gemini-2.5-flash", Provider: catalog.ProviderGoogle, Stream: true})
	if !strings.HasPrefix(global, "https://aiplatform.googleapis.com/v1/projects/test-project/locations/global/") {
		t.Fatalf("global location must use the cross-region host: %s", global)
	}
	if !strings.HasSuffix(global, ":streamGenerateContent?alt=sse") {
		t.Fatalf("streaming Gemini must use streamGenerateContent with alt=sse: %s", global)
	}
}
