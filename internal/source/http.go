package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// HTTPSource polls the configuration service for the latest payload. It
// revalidates with If-None-Match so an unchanged document costs one cheap
// 304 round trip, and retries transient failures with exponential backoff.
type HTTPSource struct {
	baseURL       string
	apiKey        string
	environmentID string
	collectionID  string
	httpClient    *http.Client
	maxTries      uint
	lastETag      string
}

// NewHTTPSource creates an HTTP configuration source.
func NewHTTPSource(baseURL, apiKey, environmentID, collectionID string) *HTTPSource {
	return &HTTPSource{
		baseURL:       baseURL,
		apiKey:        apiKey,
		environmentID: environmentID,
		collectionID:  collectionID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxTries: 4,
	}
}

// Fetch requests the configuration document, retrying transient failures.
func (s *HTTPSource) Fetch(ctx context.Context) (*Payload, error) {
	payload, err := backoff.Retry(ctx, func() (*Payload, error) {
		return s.fetchOnce(ctx)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(s.maxTries),
	)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (s *HTTPSource) fetchOnce(ctx context.Context) (*Payload, error) {
	u, err := url.Parse(s.baseURL + "/v1/configuration")
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("parse URL: %w", err))
	}
	q := u.Query()
	q.Set("environment_id", s.environmentID)
	q.Set("collection_id", s.collectionID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	if s.lastETag != "" {
		req.Header.Set("If-None-Match", s.lastETag)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return nil, backoff.Permanent(ErrNotModified)
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		s.lastETag = resp.Header.Get("ETag")
		return &Payload{Body: body, ETag: s.lastETag}, nil
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("server error (status %d)", resp.StatusCode)
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, backoff.Permanent(fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body)))
	}
}
