package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/n0madic/go-vertexproxy/internal/gcpauth"
)

// Error is a failed upstream dispatch after classification. Terminal marks
// verdicts that must not trigger model fallback.
type Error struct {
	StatusCode int
	Body       []byte
	Transport  bool
	Terminal   bool
}

func (e *Error) Error() string {
	if e.Transport {
		return fmt.Sprintf("upstream transport error: %s", e.Body)
	}
	return fmt.Sprintf("upstream HTTP %d: %s", e.StatusCode, ErrorMessage(e.Body))
}

// Message returns the extracted upstream error text.
func (e *Error) Message() string {
	if e.Transport {
		return string(e.Body)
	}
	return ErrorMessage(e.Body)
}

// Attempt records one region try for logging.
type Attempt struct {
	Region  string
	Start   time.Time
	Outcome string
	Status  int
}

// DoWithFailover runs the region failover loop: regions in plan order,
// strictly sequential. Retryable verdicts advance to the next region,
// terminal verdicts surface immediately, and exhaustion surfaces the last
// retryable error. Context cancellation abandons the loop without starting
// another region.
func (c *Client) DoWithFailover(ctx context.Context, req *Request, plan []string, requestID string) (*Response, string, []Attempt, *Error) {
	var attempts []Attempt
	var lastErr *Error

	for _, region := range plan {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = &Error{
					StatusCode: http.StatusGatewayTimeout,
					Body:       []byte(err.Error()),
					Transport:  true,
					Terminal:   true,
				}
			}
			slog.Info("failover abandoned", "request_id", requestID, "region", region, "error", err)
			return nil, "", attempts, lastErr
		}

		attempt := Attempt{Region: region, Start: time.Now()}

		resp, err := c.Do(ctx, region, req)
		if err != nil {
			if errors.Is(err, gcpauth.ErrNoCredentials) {
				// No region will fare better without credentials.
				slog.Error("credential provider refused", "request_id", requestID, "error", err)
				return nil, "", attempts, &Error{
					StatusCode: http.StatusInternalServerError,
					Body:       []byte(err.Error()),
					Transport:  true,
					Terminal:   true,
				}
			}
			// Transport failures (DNS, TLS, connect) are retryable; a
			// different region may be reachable.
			attempt.Outcome = "transport_error"
			attempts = append(attempts, attempt)
			lastErr = &Error{
				StatusCode: http.StatusInternalServerError,
				Body:       []byte(err.Error()),
				Transport:  true,
			}
			slog.Warn("upstream transport error, trying next region",
				"request_id", requestID, "region", region, "error", err)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			attempt.Outcome = "success"
			attempt.Status = resp.StatusCode
			attempts = append(attempts, attempt)
			return resp, region, attempts, nil
		}

		body, _ := io.ReadAll(resp.Body.Body)
		resp.Body.Body.Close()
		attempt.Status = resp.StatusCode

		switch Classify(resp.StatusCode, body) {
		case OutcomeRetryable:
			attempt.Outcome = "retryable"
			attempts = append(attempts, attempt)
			lastErr = &Error{StatusCode: resp.StatusCode, Body: body}
			slog.Warn("upstream retryable failure, trying next region",
				"request_id", requestID,
				"region", region,
				"status", resp.StatusCode,
			)
		default:
			attempt.Outcome = "terminal"
			attempts = append(attempts, attempt)
			slog.Error("upstream terminal failure",
				"request_id", requestID,
				"region", region,
				"status", resp.StatusCode,
			)
			return nil, "", attempts, &Error{StatusCode: resp.StatusCode, Body: body, Terminal: true}
		}
	}

	if lastErr == nil {
		lastErr = &Error{
			StatusCode: http.StatusInternalServerError,
			Body:       []byte("no regions available"),
			Transport:  true,
		}
	}
	slog.Error("all regions exhausted",
		"request_id", requestID,
		"attempts", len(attempts),
		"status", lastErr.StatusCode,
	)
	return nil, "", attempts, lastErr
}
