package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// StreamState tracks the terminal-framing invariants of one streaming
// response: after termination either ReceivedTerminalUp, FinalFrameSent and
// DoneSentinelSent are all set, plus RoleFrameSent on chat streams (clean
// close), or the connection was closed with no further writes (fault close).
type StreamState struct {
	CompletionID         string
	ChunkCount           int
	RoleFrameSent        bool
	ReceivedTerminalUp   bool
	FinalFrameSent       bool
	DoneSentinelSent     bool
	SawToolCall          bool
	CapturedFinishReason string
}

// NewStreamState allocates the per-response state with a fresh completion id.
func NewStreamState() *StreamState {
	return &StreamState{CompletionID: "chatcmpl-" + uuid.NewString()}
}

// WriteHeaders sets the SSE response headers. X-Accel-Buffering defeats
// intermediate proxy buffering.
func WriteHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
}

// chunkWriter serializes outbound frames. Once a write fails the stream is
// poisoned and every later write is a no-op, so a half-written frame is never
// followed by more bytes.
type chunkWriter struct {
	w         http.ResponseWriter
	flusher   http.Flusher
	state     *StreamState
	requestID string
	failed    bool
}

func newChunkWriter(w http.ResponseWriter, state *StreamState, requestID string) *chunkWriter {
	flusher, _ := w.(http.Flusher)
	return &chunkWriter{w: w, flusher: flusher, state: state, requestID: requestID}
}

func (cw *chunkWriter) writeChunk(chunk any) {
	if cw.failed {
		return
	}
	data, err := json.Marshal(chunk)
	if err != nil {
		cw.fail("marshal chunk", err)
		return
	}
	if _, err := fmt.Fprintf(cw.w, "data: %s\n\n", data); err != nil {
		cw.fail("write chunk", err)
		return
	}
	cw.state.ChunkCount++
	if cw.flusher != nil {
		cw.flusher.Flush()
	}
}

func (cw *chunkWriter) writeDone() {
	if cw.failed {
		return
	}
	if _, err := fmt.Fprint(cw.w, "data: [DONE]\n\n"); err != nil {
		cw.fail("write done sentinel", err)
		return
	}
	cw.state.DoneSentinelSent = true
	if cw.flusher != nil {
		cw.flusher.Flush()
	}
}

func (cw *chunkWriter) fail(op string, err error) {
	cw.failed = true
	slog.Error("stream write failed, closing",
		"request_id", cw.requestID,
		"op", op,
		"error", err,
	)
}
