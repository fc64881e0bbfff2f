// Package client is an HTTP client for the configship sidecar API, used by
// the CLI commands that talk to a running sidecar instead of a local file.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is an HTTP client for the sidecar API
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SnapshotView mirrors the GET /v1/configuration response body.
type SnapshotView struct {
	EnvironmentID string    `json:"environmentId"`
	CollectionID  string    `json:"collectionId"`
	ETag          string    `json:"etag"`
	Features      []string  `json:"features"`
	Properties    []string  `json:"properties"`
	Segments      []string  `json:"segments"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// EvaluateEntity is the entity block of an evaluate request.
type EvaluateEntity struct {
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// EvaluateRequest mirrors the POST /v1/evaluate request body. Empty Features
// and Properties lists evaluate everything in the snapshot.
type EvaluateRequest struct {
	Entity     *EvaluateEntity `json:"entity"`
	Features   []string        `json:"features,omitempty"`
	Properties []string        `json:"properties,omitempty"`
}

// EvaluateResult is one evaluated feature or property.
type EvaluateResult struct {
	ID             string `json:"id"`
	Value          any    `json:"value"`
	Reason         string `json:"reason"`
	MatchedSegment string `json:"matchedSegment,omitempty"`
}

// EvaluateResponse mirrors the POST /v1/evaluate response body.
type EvaluateResponse struct {
	Features     []EvaluateResult `json:"features"`
	Properties   []EvaluateResult `json:"properties"`
	ETag         string           `json:"etag"`
	EvaluationID string           `json:"evaluationId"`
	EvaluatedAt  string           `json:"evaluatedAt"`
}

// GetConfiguration retrieves the current snapshot summary
func (c *Client) GetConfiguration(ctx context.Context) (*SnapshotView, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"/v1/configuration", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var view SnapshotView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &view, nil
}

// Evaluate evaluates features and properties against an entity
func (c *Client) Evaluate(ctx context.Context, evalReq EvaluateRequest) (*EvaluateResponse, error) {
	body, err := json.Marshal(evalReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/v1/evaluate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var result EvaluateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
}

func apiError(resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(bodyBytes))
}
