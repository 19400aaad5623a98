package proxy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/n0madic/go-vertexproxy/internal/catalog"
	"github.com/n0madic/go-vertexproxy/internal/config"
	"github.com/n0madic/go-vertexproxy/internal/types"
)

func getJSON(t *testing.T, handler http.HandlerFunc, path string, dst any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	handler(w, req)
	if dst != nil {
		if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
			t.Fatalf("response is not valid JSON: %v: %s", err, w.Body.String())
		}
	}
	return w
}

func TestListModelsIncludesCatalogAndAliases(t *testing.T) {
	s := newTestServer(t, &mockUpstream{results: []mockResult{{}}}, func(cfg *config.ServerConfig) {
		cfg.ModelAliases = map[string]string{"fast": "claude-haiku-4-5@20251001"}
	})

	var list types.ModelList
	w := getJSON(t, s.handleListModels, "/v1/models", &list)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if list.Object != "list" {
		t.Fatalf("unexpected envelope object: %q", list.Object)
	}

	byID := map[string]types.ModelEntry{}
	for _, entry := range list.Data {
		byID[entry.ID] = entry
	}

	// Every catalog entry appears.
	for _, spec := range catalog.Specs() {
		entry, ok := byID[spec.ID]
		if !ok {
			t.Fatalf("catalog entry %s missing from listing", spec.ID)
		}
		if entry.Root != "" {
			t.Fatalf("canonical entries carry no root: %+v", entry)
		}
		if entry.VertexProxy == nil || entry.VertexProxy.ContextWindow != spec.ContextWindow {
			t.Fatalf("vendor extension missing or wrong for %s: %+v", spec.ID, entry.VertexProxy)
		}
	}

	// Built-in and config aliases appear with root set to their target.
	for alias, target := range map[string]string{
		"sonnet": "claude-sonnet-4-5@20250929",
		"fast":   "claude-haiku-4-5@20251001",
	} {
		entry, ok := byID[alias]
		if !ok {
			t.Fatalf("alias %s missing from listing", alias)
		}
		if entry.Root != target {
			t.Fatalf("alias %s root = %q, want %q", alias, entry.Root, target)
		}
	}
}

func TestListModelsEnabledFilter(t *testing.T) {
	s := newTestServer(t, &mockUpstream{results: []mockResult{{}}}, func(cfg *config.ServerConfig) {
		cfg.EnabledModels = []string{"gemini-2.5-flash"}
	})

	var list types.ModelList
	getJSON(t, s.handleListModels, "/v1/models", &list)

	for _, entry := range list.Data {
		target := entry.ID
		if entry.Root != "" {
			target = entry.Root
		}
		if target != "gemini-2.5-flash" {
			t.Fatalf("disabled model leaked into listing: %+v", entry)
		}
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &mockUpstream{results: []mockResult{{}}}, nil)

	var body map[string]any
	w := getJSON(t, s.handleHealth, "/health", &body)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected health payload: %v", body)
	}
	if _, ok := body["requestCount"]; !ok {
		t.Fatal("health must report requestCount")
	}
}

func TestStatusDocument(t *testing.T) {
	s := newTestServer(t, &mockUpstream{results: []mockResult{{}}}, nil)

	var body map[string]any
	w := getJSON(t, s.handleStatus, "/", &body)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if body["project"] != "test-project" {
		t.Fatalf("status must report the project: %v", body)
	}
	endpoints, _ := body["endpoints"].([]any)
	if len(endpoints) == 0 {
		t.Fatal("status must list endpoints")
	}
}
