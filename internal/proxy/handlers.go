package proxy

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/n0madic/go-vertexproxy/internal/catalog"
	"github.com/n0madic/go-vertexproxy/internal/sse"
	"github.com/n0madic/go-vertexproxy/internal/stats"
	"github.com/n0madic/go-vertexproxy/internal/translate"
	"github.com/n0madic/go-vertexproxy/internal/types"
	"github.com/n0madic/go-vertexproxy/internal/upstream"
)

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req types.ChatCompletionRequest
	if _, ok := parseJSONRequest(w, r, &req); !ok {
		return
	}
	if len(req.Messages) == 0 {
		writeInvalidRequest(w, r, "messages is required")
		return
	}
	if req.Model == "" {
		req.Model = s.Config.DefaultModel
	}

	s.dispatchChat(w, r, &req, false, false)
}

func (s *Server) handleCompletions(w http.ResponseWriter, r *http.Request) {
	var req types.CompletionRequest
	if _, ok := parseJSONRequest(w, r, &req); !ok {
		return
	}
	if translate.PromptText(req.Prompt) == "" {
		writeInvalidRequest(w, r, "prompt is required")
		return
	}
	if req.Model == "" {
		req.Model = s.Config.DefaultModel
	}

	chatReq := translate.LiftPrompt(&req)
	s.dispatchChat(w, r, &chatReq, true, false)
}

// handleMessages forwards Anthropic messages bodies with minimal rewriting.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	raw, ok := readLimitedRequestBody(w, r)
	if !ok {
		return
	}

	stream := gjson.GetBytes(raw, "stream").Bool()
	body, model, err := translate.NormalizeAnthropicBody(raw, stream)
	if err != nil {
		writeInvalidRequest(w, r, err.Error())
		return
	}
	if model == "" {
		model = s.Config.DefaultModel
	}

	res := s.Resolver.Resolve(model)
	if res.Provider != catalog.ProviderAnthropic {
		writeInvalidRequest(w, r, "model "+res.Canonical+" is not an Anthropic model")
		return
	}

	plan := s.Planner.Plan(res.Canonical, res.Spec)
	upReq := &upstream.Request{
		Model:    res.Canonical,
		Provider: res.Provider,
		Body:     body,
		Stream:   stream,
	}

	resp, region, attempts, upErr := s.upstreamClient.DoWithFailover(r.Context(), upReq, plan, requestID(r))
	recordAttempts(attempts)
	if upErr != nil {
		writeUpstreamError(w, r, upErr)
		return
	}

	slog.Info("upstream success",
		"request_id", requestID(r),
		"model", res.Canonical,
		"region", region,
		"attempts", len(attempts),
	)

	if stream {
		sse.WriteHeaders(w)
		stats.ActiveStreams.Inc()
		defer stats.ActiveStreams.Dec()
		if err := pipeSSE(w, resp.Body.Body); err != nil {
			slog.Error("passthrough stream failed",
				"request_id", requestID(r), "error", err)
		}
		return
	}

	defer resp.Body.Body.Close()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, resp.Body.Body); err != nil {
		slog.Error("passthrough copy failed",
			"request_id", requestID(r), "error", err)
	}
}

func (s *Server) handleImages(w http.ResponseWriter, r *http.Request) {
	var req types.ImageGenerationRequest
	if _, ok := parseJSONRequest(w, r, &req); !ok {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeInvalidRequest(w, r, "prompt is required")
		return
	}
	if req.Model == "" {
		req.Model = "imagen-4.0-generate-001"
	}

	res := s.Resolver.Resolve(req.Model)
	if res.Provider != catalog.ProviderImagen {
		writeInvalidRequest(w, r, "model "+res.Canonical+" is not an image generation model")
		return
	}

	body, err := json.Marshal(translate.ImagesToImagenPredict(&req))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "proxy_error", "failed to build upstream request")
		return
	}

	plan := s.Planner.Plan(res.Canonical, res.Spec)
	upReq := &upstream.Request{
		Model:    res.Canonical,
		Provider: res.Provider,
		Body:     body,
	}

	resp, region, attempts, upErr := s.upstreamClient.DoWithFailover(r.Context(), upReq, plan, requestID(r))
	recordAttempts(attempts)
	if upErr != nil {
		writeUpstreamError(w, r, upErr)
		return
	}

	slog.Info("upstream success",
		"request_id", requestID(r),
		"model", res.Canonical,
		"region", region,
		"attempts", len(attempts),
	)
	s.respondImages(w, r, resp, &req)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"uptime":       s.Stats.UptimeSeconds(),
		"requestCount": s.Stats.RequestCount(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	regionSummary := map[string]any{
		"anthropic": s.Config.DefaultRegion,
		"google":    s.Config.GoogleRegion,
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":         "go-vertexproxy",
		"version":      Version,
		"project":      s.Config.ProjectID,
		"uptime":       s.Stats.UptimeSeconds(),
		"requestCount": s.Stats.RequestCount(),
		"regions":      regionSummary,
		"endpoints": []string{
			"GET /",
			"GET /health",
			"GET /metrics",
			"GET /v1/models",
			"POST /v1/chat/completions",
			"POST /v1/completions",
			"POST /v1/messages",
			"POST /messages",
			"POST /v1/images/generations",
		},
	})
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	created := s.Stats.StartTime().Unix()
	enabled := enabledSet(s.Config.EnabledModels)

	var data []types.ModelEntry
	for _, spec := range catalog.Specs() {
		if enabled != nil && !enabled[spec.ID] {
			continue
		}
		data = append(data, modelEntry(spec.ID, "", &spec, created))
	}
	aliases := s.Resolver.Aliases()
	names := make([]string, 0, len(aliases))
	for alias := range aliases {
		names = append(names, alias)
	}
	sort.Strings(names)
	for _, alias := range names {
		target := aliases[alias]
		if enabled != nil && !enabled[target] {
			continue
		}
		data = append(data, modelEntry(alias, target, catalog.Lookup(target), created))
	}

	writeJSON(w, http.StatusOK, types.ModelList{Object: "list", Data: data})
}

func modelEntry(id, root string, spec *catalog.ModelSpec, created int64) types.ModelEntry {
	entry := types.ModelEntry{
		ID:      id,
		Object:  "model",
		Created: created,
		OwnedBy: "vertex-ai",
	}
	if root != "" {
		entry.Root = root
	}
	if spec != nil {
		entry.OwnedBy = string(spec.Provider)
		ext := &types.ModelExtension{
			Provider:      string(spec.Provider),
			ContextWindow: spec.ContextWindow,
			MaxTokens:     spec.MaxOutput,
			Regions:       spec.Regions,
			Capabilities:  spec.Capabilities,
		}
		if spec.InputPrice > 0 || spec.OutputPrice > 0 {
			ext.Prices = &types.ModelPrices{
				InputPerMTok:  spec.InputPrice,
				OutputPerMTok: spec.OutputPrice,
			}
		}
		entry.VertexProxy = ext
	}
	return entry
}

func enabledSet(models []string) map[string]bool {
	if len(models) == 0 {
		return nil
	}
	set := make(map[string]bool, len(models))
	for _, m := range models {
		set[m] = true
	}
	return set
}
