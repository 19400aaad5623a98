package translate

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// maxImageBytes caps remote image downloads.
const maxImageBytes = 20 * 1024 * 1024

// ImageFetcher downloads remote images for inlining into Gemini requests.
// Fetches are rate-limited so a burst of multimodal requests cannot hammer
// arbitrary origins through the proxy.
type ImageFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewImageFetcher creates a fetcher with a 30s per-image timeout and a
// 5 req/s (burst 10) limit.
func NewImageFetcher() *ImageFetcher {
	return &ImageFetcher{
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
}

// Fetch downloads url and returns its MIME type and base64 payload.
func (f *ImageFetcher) Fetch(ctx context.Context, url string) (mimeType, data string, err error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("image fetch returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return "", "", err
	}
	if len(body) > maxImageBytes {
		return "", "", fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}

	mimeType = resp.Header.Get("Content-Type")
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(body)
	}

	return mimeType, base64.StdEncoding.EncodeToString(body), nil
}

// ParseDataURI splits a data: URI into its media type and base64 payload.
func ParseDataURI(uri string) (mediaType, data string, ok bool) {
	if !strings.HasPrefix(uri, "data:") {
		return "", "", false
	}
	rest := uri[len("data:"):]
	comma := strings.Index(rest, ",")
	if comma < 0 {
		return "", "", false
	}
	meta := rest[:comma]
	payload := rest[comma+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return "", "", false
	}
	mediaType = strings.TrimSuffix(meta, ";base64")
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	return mediaType, payload, true
}
