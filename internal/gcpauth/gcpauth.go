// Package gcpauth bridges the proxy to the ambient Google Cloud credential
// provider. Tokens are fetched per upstream call; any caching happens inside
// the oauth2 token source, not here.
package gcpauth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// cloudPlatformScope is the scope Vertex AI endpoints require.
const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// ErrNoCredentials is returned when no ambient credential is available.
var ErrNoCredentials = errors.New("no Google Cloud credentials available; run `gcloud auth application-default login` or set GOOGLE_APPLICATION_CREDENTIALS")

// TokenSource yields a bearer token for one outbound call.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// ADCSource resolves Application Default Credentials.
type ADCSource struct {
	source oauth2.TokenSource
}

// NewADCSource locates ambient credentials once; token refresh is handled by
// the underlying oauth2 source on each Token call.
func NewADCSource(ctx context.Context) (*ADCSource, error) {
	creds, err := google.FindDefaultCredentials(ctx, cloudPlatformScope)
	if err != nil {
		return nil, ErrNoCredentials
	}
	return &ADCSource{source: creds.TokenSource}, nil
}

// Token returns a fresh bearer token string.
func (s *ADCSource) Token(ctx context.Context) (string, error) {
	tok, err := s.source.Token()
	if err != nil {
		return "", fmt.Errorf("fetch access token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", ErrNoCredentials
	}
	return tok.AccessToken, nil
}

// StaticSource returns a fixed token. Used by tests, and (empty) by the
// serve command when no ambient credentials are found at startup.
type StaticSource string

// Token returns the fixed token, or ErrNoCredentials when empty.
func (s StaticSource) Token(ctx context.Context) (string, error) {
	if s == "" {
		return "", ErrNoCredentials
	}
	return string(s), nil
}
