package upstream

import (
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Outcome classifies one upstream verdict for the failover loop.
type Outcome int

const (
	// OutcomeSuccess: 2xx, hand the response to the handler.
	OutcomeSuccess Outcome = iota
	// OutcomeRetryable: worth trying the next region.
	OutcomeRetryable
	// OutcomeTerminal: surface immediately, no further regions.
	OutcomeTerminal
)

// retryableStatuses always advance to the next region.
var retryableStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusServiceUnavailable:  true,
}

// retryableSubstrings mark capacity-style failures regardless of status.
var retryableSubstrings = []string{"capacity", "overloaded", "unavailable"}

// Classify maps an upstream status and error body to an outcome.
func Classify(status int, body []byte) Outcome {
	if status >= 200 && status < 300 {
		return OutcomeSuccess
	}
	if retryableStatuses[status] {
		return OutcomeRetryable
	}

	text := strings.ToLower(string(body))
	// Google error envelopes bury the useful text under error.message and
	// error.status; check those too in case the raw body is a wrapper.
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
		text += " " + strings.ToLower(msg.String())
	}
	if st := gjson.GetBytes(body, "error.status"); st.Exists() {
		text += " " + strings.ToLower(st.String())
	}
	for _, s := range retryableSubstrings {
		if strings.Contains(text, s) {
			return OutcomeRetryable
		}
	}

	return OutcomeTerminal
}

// ErrorMessage extracts the most useful human-readable message from an
// upstream error body, falling back to the raw body.
func ErrorMessage(body []byte) string {
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() && msg.String() != "" {
		return msg.String()
	}
	if msg := gjson.GetBytes(body, "0.error.message"); msg.Exists() && msg.String() != "" {
		return msg.String()
	}
	return strings.TrimSpace(string(body))
}
