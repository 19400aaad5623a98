package proxy

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/n0madic/go-vertexproxy/internal/catalog"
	"github.com/n0madic/go-vertexproxy/internal/sse"
	"github.com/n0madic/go-vertexproxy/internal/stats"
	"github.com/n0madic/go-vertexproxy/internal/tokencount"
	"github.com/n0madic/go-vertexproxy/internal/translate"
	"github.com/n0madic/go-vertexproxy/internal/types"
	"github.com/n0madic/go-vertexproxy/internal/upstream"
)

// defaultMaxTokens applies when the request omits max_tokens (Anthropic
// requires the field); it is lowered to the model's max output when that is
// smaller.
const defaultMaxTokens = 4096

// dispatchChat runs the full pipeline for a chat-shaped request: resolve,
// truncate, plan regions, translate, failover, respond. legacy selects the
// text_completion response shape. Exactly one fallback recursion is allowed
// per inbound request.
func (s *Server) dispatchChat(w http.ResponseWriter, r *http.Request, chatReq *types.ChatCompletionRequest, legacy bool, fallbackUsed bool) {
	res := s.Resolver.Resolve(chatReq.Model)
	if res.Provider == catalog.ProviderImagen {
		writeInvalidRequest(w, r, "model "+res.Canonical+" is an image generation model; use /v1/images/generations")
		return
	}

	if s.Config.AutoTruncate && res.Spec != nil {
		chatReq.Messages, _ = tokencount.Truncate(
			chatReq.Messages,
			res.Spec.ContextWindow,
			s.Config.ReserveOutputTokens,
		)
	}

	plan := s.Planner.Plan(res.Canonical, res.Spec)
	if len(plan) == 0 {
		writeError(w, r, http.StatusInternalServerError, "proxy_error",
			"no regions available for model "+res.Canonical)
		return
	}

	maxTokens := chatReq.EffectiveMaxTokens()
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
		if res.Spec != nil && res.Spec.MaxOutput > 0 && res.Spec.MaxOutput < maxTokens {
			maxTokens = res.Spec.MaxOutput
		}
	}

	var body []byte
	var err error
	switch res.Provider {
	case catalog.ProviderGoogle:
		body, err = json.Marshal(translate.OpenAIChatToGemini(r.Context(), chatReq, s.fetcher))
	default:
		body, err = json.Marshal(translate.OpenAIChatToAnthropic(chatReq, maxTokens))
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "proxy_error", "failed to build upstream request")
		return
	}

	upReq := &upstream.Request{
		Model:    res.Canonical,
		Provider: res.Provider,
		Body:     body,
		Stream:   chatReq.Stream,
	}

	resp, region, attempts, upErr := s.upstreamClient.DoWithFailover(r.Context(), upReq, plan, requestID(r))
	recordAttempts(attempts)

	if upErr != nil {
		if !fallbackUsed && !upErr.Terminal && r.Context().Err() == nil {
			if chain := s.Config.FallbackChains[res.Canonical]; len(chain) > 0 {
				slog.Warn("all regions exhausted, falling back",
					"request_id", requestID(r),
					"model", res.Canonical,
					"fallback", chain[0],
				)
				fallbackReq := *chatReq
				fallbackReq.Model = chain[0]
				s.dispatchChat(w, r, &fallbackReq, legacy, true)
				return
			}
		}
		writeUpstreamError(w, r, upErr)
		return
	}

	slog.Info("upstream success",
		"request_id", requestID(r),
		"model", res.Canonical,
		"region", region,
		"attempts", len(attempts),
	)

	created := time.Now().Unix()
	if chatReq.Stream {
		s.streamResponse(w, r, resp, res, legacy, created)
		return
	}
	s.respondChat(w, r, resp, res, legacy, created)
}

// streamResponse hands a 2xx upstream stream to the matching SSE translator.
func (s *Server) streamResponse(w http.ResponseWriter, r *http.Request, resp *upstream.Response, res catalog.Resolution, legacy bool, created int64) {
	sse.WriteHeaders(w)
	stats.ActiveStreams.Inc()
	defer stats.ActiveStreams.Dec()

	var st *sse.StreamState
	switch {
	case res.Provider == catalog.ProviderGoogle && legacy:
		st = sse.TranslateGeminiText(w, resp.Body.Body, res.Canonical, created, requestID(r))
	case res.Provider == catalog.ProviderGoogle:
		st = sse.TranslateGeminiChat(w, resp.Body.Body, res.Canonical, created, requestID(r))
	case legacy:
		st = sse.TranslateAnthropicText(w, resp.Body.Body, res.Canonical, created, requestID(r))
	default:
		st = sse.TranslateAnthropicChat(w, resp.Body.Body, res.Canonical, created, requestID(r))
	}

	slog.Info("stream closed",
		"request_id", requestID(r),
		"completion_id", st.CompletionID,
		"chunks", st.ChunkCount,
		"clean", st.DoneSentinelSent,
	)
}

func recordAttempts(attempts []upstream.Attempt) {
	for _, a := range attempts {
		stats.FailoverAttempts.WithLabelValues(a.Outcome).Inc()
	}
}
