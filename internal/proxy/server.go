package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/n0madic/go-vertexproxy/internal/catalog"
	"github.com/n0madic/go-vertexproxy/internal/config"
	"github.com/n0madic/go-vertexproxy/internal/gcpauth"
	"github.com/n0madic/go-vertexproxy/internal/regions"
	"github.com/n0madic/go-vertexproxy/internal/stats"
	"github.com/n0madic/go-vertexproxy/internal/translate"
	"github.com/n0madic/go-vertexproxy/internal/upstream"
)

// Version is reported on the status document.
const Version = "1.0.0"

// upstreamDoer abstracts the Vertex upstream client so the proxy handlers
// can be tested with a mock without a real network connection.
type upstreamDoer interface {
	DoWithFailover(ctx context.Context, req *upstream.Request, plan []string, requestID string) (*upstream.Response, string, []upstream.Attempt, *upstream.Error)
}

// Server is the main proxy HTTP server.
type Server struct {
	Config         *config.ServerConfig
	Resolver       *catalog.Resolver
	Planner        *regions.Planner
	Stats          *stats.Stats
	httpServer     *http.Server
	upstreamClient upstreamDoer
	fetcher        *translate.ImageFetcher
}

// New creates a new proxy server with all routes registered.
func New(cfg *config.ServerConfig, tokens gcpauth.TokenSource) *Server {
	s := &Server{
		Config:         cfg,
		Resolver:       catalog.NewResolver(cfg.ModelAliases),
		Planner:        regions.NewPlanner(regions.LoadDiscoveryCache(cfg.RegionsCachePath()), cfg.DefaultRegion),
		Stats:          stats.New(cfg.StatsPath(), cfg.Port),
		upstreamClient: upstream.NewClient(tokens, cfg.ProjectID, cfg.Verbose),
		fetcher:        translate.NewImageFetcher(),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleStatus)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", stats.MetricsHandler())

	mux.HandleFunc("GET /v1/models", s.handleListModels)
	mux.HandleFunc("POST /v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("POST /v1/completions", s.handleCompletions)
	mux.HandleFunc("POST /v1/images/generations", s.handleImages)

	// Anthropic messages passthrough, with and without the /v1 prefix.
	mux.HandleFunc("POST /v1/messages", s.handleMessages)
	mux.HandleFunc("POST /messages", s.handleMessages)

	mux.HandleFunc("OPTIONS /", s.handleOptions)

	handler := s.corsMiddleware(s.requestIDMiddleware(mux))

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: handler,
		// ReadTimeout covers only reading the request (headers and body).
		ReadTimeout: 30 * time.Second,
		// WriteTimeout must outlast the upstream SSE timeout plus
		// translation overhead.
		WriteTimeout: 660 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// ListenAndServe starts the proxy server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type ctxKey int

const requestIDKey ctxKey = 0

// requestID returns the opaque id assigned at ingress.
func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey).(string)
	return id
}

// requestIDMiddleware assigns every request an opaque id, bumps the
// counters for POST requests, and logs the request lifecycle with the id
// attached.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, id))

		start := time.Now()
		slog.Info("request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
		)
		if r.Method == http.MethodPost {
			s.Stats.RecordRequest()
		}

		next.ServeHTTP(w, r)

		slog.Info("request done",
			"request_id", id,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware allows requests from any origin. The proxy is designed for
// local use; wildcard CORS lets browser-based IDE extensions reach it
// without a per-origin allowlist.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqHeaders := r.Header.Get("Access-Control-Request-Headers")
		if reqHeaders == "" {
			reqHeaders = "Authorization, Content-Type, Accept"
		}
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", reqHeaders)
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
