package proxy

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/n0madic/go-vertexproxy/internal/catalog"
	"github.com/n0madic/go-vertexproxy/internal/config"
	"github.com/n0madic/go-vertexproxy/internal/regions"
	"github.com/n0madic/go-vertexproxy/internal/stats"
	"github.com/n0madic/go-vertexproxy/internal/translate"
	"github.com/n0madic/go-vertexproxy/internal/upstream"
)

// mockResult is one scripted verdict of the mock failover loop.
type mockResult struct {
	body   string
	region string
	err    *upstream.Error
}

// mockUpstream replaces the failover loop with scripted results, recording
// every translated request it receives.
type mockUpstream struct {
	mu      sync.Mutex
	reqs    []*upstream.Request
	plans   [][]string
	results []mockResult
}

func (m *mockUpstream) DoWithFailover(ctx context.Context, req *upstream.Request, plan []string, requestIDVal string) (*upstream.Response, string, []upstream.Attempt, *upstream.Error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reqs = append(m.reqs, req)
	m.plans = append(m.plans, plan)

	idx := len(m.reqs) - 1
	if idx >= len(m.results) {
		idx = len(m.results) - 1
	}
	r := m.results[idx]
	if r.err != nil {
		return nil, "", nil, r.err
	}
	region := r.region
	if region == "" {
		region = plan[0]
	}
	resp := &upstream.Response{
		StatusCode: http.StatusOK,
		Body: &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(r.body)),
		},
	}
	return resp, region, []upstream.Attempt{{Region: region, Outcome: "success"}}, nil
}

func (m *mockUpstream) requests() []*upstream.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*upstream.Request(nil), m.reqs...)
}

func newTestServer(t *testing.T, doer upstreamDoer, mutate func(cfg *config.ServerConfig)) *Server {
	t.Helper()

	cfg := &config.ServerConfig{
		Host:                "127.0.0.1",
		ProjectID:           "test-project",
		DefaultRegion:       "us-east5",
		GoogleRegion:        "us-central1",
		DefaultModel:        "claude-sonnet-4-5@20250929",
		ReserveOutputTokens: 1024,
		DataDir:             t.TempDir(),
	}
	if mutate != nil {
		mutate(cfg)
	}

	return &Server{
		Config:         cfg,
		Resolver:       catalog.NewResolver(cfg.ModelAliases),
		Planner:        regions.NewPlanner(nil, cfg.DefaultRegion),
		Stats:          stats.New(cfg.StatsPath(), cfg.Port),
		upstreamClient: doer,
		fetcher:        translate.NewImageFetcher(),
	}
}

const anthropicOKBody = `{"id":"msg_1","type":"message","role":"assistant","content":[{"type":"text","text":"hello there"}],"stop_reason":"end_turn","stop_sequence":null,"usage":{"input_tokens":12,"output_tokens":5}}`
