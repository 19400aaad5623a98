package upstream

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/n0madic/go-vertexproxy/internal/catalog"
	"github.com/n0madic/go-vertexproxy/internal/gcpauth"
)

// upstreamHTTPTimeout is the maximum time allowed for one upstream request.
// SSE streams can be long-lived, so the timeout is generous.
const upstreamHTTPTimeout = 10 * time.Minute

// endpointHost is a function variable so tests can point the client at a
// local server. The "global" location has no regional host prefix.
var endpointHost = func(region string) string {
	if region == "global" {
		return "https://aiplatform.googleapis.com"
	}
	return fmt.Sprintf("https://%s-aiplatform.googleapis.com", region)
}

// Request holds one translated upstream call, independent of region.
type Request struct {
	Model    string
	Provider catalog.Provider
	Body     []byte
	Stream   bool
}

// Response wraps the upstream HTTP response. Body is the raw *http.Response
// so streaming handlers can consume it incrementally.
type Response struct {
	StatusCode int
	Body       *http.Response
	Headers    http.Header
}

// Client posts translated requests to Vertex AI publisher endpoints.
type Client struct {
	Tokens     gcpauth.TokenSource
	Project    string
	HTTPClient *http.Client
	Verbose    bool
}

// NewClient creates an upstream client.
func NewClient(tokens gcpauth.TokenSource, project string, verbose bool) *Client {
	return &Client{
		Tokens:     tokens,
		Project:    project,
		HTTPClient: &http.Client{Timeout: upstreamHTTPTimeout},
		Verbose:    verbose,
	}
}

// URL builds the publisher endpoint for one region.
func (c *Client) URL(region string, req *Request) string {
	publisher := "google"
	if req.Provider == catalog.ProviderAnthropic {
		publisher = "anthropic"
	}
	return fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/%s/models/%s:%s",
		endpointHost(region), c.Project, region, publisher, req.Model, verb(req))
}

func verb(req *Request) string {
	switch req.Provider {
	case catalog.ProviderAnthropic:
		if req.Stream {
			return "streamRawPredict"
		}
		return "rawPredict"
	case catalog.ProviderImagen:
		return "predict"
	default:
		if req.Stream {
			return "streamGenerateContent?alt=sse"
		}
		return "generateContent"
	}
}

// Do acquires a fresh token and posts the request body to one region. The
// caller owns the returned response body.
func (c *Client) Do(ctx context.Context, region string, req *Request) (*Response, error) {
	token, err := c.Tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	url := c.URL(region, req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upstream request to %s failed: %w", region, err)
	}

	if c.Verbose {
		slog.Info("upstream.response",
			"region", region,
			"model", req.Model,
			"status", resp.StatusCode,
		)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       resp,
		Headers:    resp.Header,
	}, nil
}
