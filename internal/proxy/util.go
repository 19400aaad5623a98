package proxy

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/n0madic/go-vertexproxy/internal/types"
	"github.com/n0madic/go-vertexproxy/internal/upstream"
)

// maxBodyBytes limits incoming request bodies to prevent memory exhaustion.
const maxBodyBytes = 10 * 1024 * 1024 // 10 MB

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, errType, message string) {
	slog.Error("request failed",
		"request_id", requestID(r),
		"status", status,
		"error", message,
	)
	writeJSON(w, status, types.ErrorResponse{Error: types.ErrorDetail{
		Message: message,
		Type:    errType,
		Code:    status,
	}})
}

func writeInvalidRequest(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, http.StatusBadRequest, "invalid_request_error", message)
}

// writeUpstreamError converts a classified failover error into the on-wire
// response. Transport and auth failures are proxy errors; everything else
// carries the upstream status and body text.
func writeUpstreamError(w http.ResponseWriter, r *http.Request, upErr *upstream.Error) {
	errType := "upstream_error"
	if upErr.Transport {
		errType = "proxy_error"
	}
	writeError(w, r, upErr.StatusCode, errType, upErr.Message())
}

// parseJSONRequest reads a size-limited body and decodes it into dst.
func parseJSONRequest(w http.ResponseWriter, r *http.Request, dst any) ([]byte, bool) {
	body, ok := readLimitedRequestBody(w, r)
	if !ok {
		return nil, false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeInvalidRequest(w, r, "Invalid JSON body")
		return nil, false
	}
	return body, true
}

func readLimitedRequestBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeInvalidRequest(w, r, "Failed to read request body")
		return nil, false
	}
	return body, true
}
