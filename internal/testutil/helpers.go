// Package testutil holds shared fixtures and helpers for package tests.
package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TimurManjosov/configship/internal/models"
	"github.com/TimurManjosov/configship/internal/snapshot"
)

// SampleConfiguration builds a decodable payload covering the common cases:
// a targeted boolean flag, a rollout-gated string flag and a property with a
// segment override.
func SampleConfiguration() *models.Configuration {
	return &models.Configuration{
		Environments: []models.Environment{
			{
				Name:          "Production",
				EnvironmentID: "production",
				Features: []models.Feature{
					{
						Name:              "New Checkout",
						FeatureID:         "new-checkout",
						Type:              "BOOLEAN",
						EnabledValue:      true,
						DisabledValue:     false,
						Enabled:           true,
						RolloutPercentage: 100,
						SegmentRules: []models.TargetingRule{
							{
								Rules: []models.SegmentRef{
									{Segments: []string{"us-adults"}},
								},
								Value: true,
								Order: 1,
							},
						},
					},
					{
						Name:              "Greeting",
						FeatureID:         "greeting",
						Type:              "STRING",
						EnabledValue:      "hello",
						DisabledValue:     "goodbye",
						Enabled:           true,
						RolloutPercentage: 50,
					},
				},
				Properties: []models.Property{
					{
						Name:       "Discount",
						PropertyID: "discount",
						Type:       "NUMERIC",
						Value:      int64(5),
						SegmentRules: []models.TargetingRule{
							{
								Rules: []models.SegmentRef{
									{Segments: []string{"premium"}},
								},
								Value: int64(25),
								Order: 1,
							},
						},
					},
				},
			},
		},
		Segments: []models.Segment{
			{
				Name:       "US Adults",
				SegmentID:  "us-adults",
				Combinator: models.CombinatorAnd,
				Rules: []models.SegmentRule{
					{AttributeName: "country", Operator: models.OpEquals, Values: []any{"US"}},
					{AttributeName: "age", Operator: models.OpGreaterThanEquals, Values: []any{int64(21)}},
				},
			},
			{
				Name:       "Premium Plans",
				SegmentID:  "premium",
				Combinator: models.CombinatorOr,
				Rules: []models.SegmentRule{
					{AttributeName: "plan", Operator: models.OpEquals, Values: []any{"gold"}},
					{AttributeName: "plan", Operator: models.OpEquals, Values: []any{"platinum"}},
				},
			},
		},
	}
}

// BuildSnapshot compiles a configuration for tests, failing the test on error.
func BuildSnapshot(t *testing.T, cfg *models.Configuration, environmentID string, version uint64) *snapshot.Snapshot {
	t.Helper()
	snap, err := snapshot.Build(cfg, environmentID, "default", version)
	if err != nil {
		t.Fatalf("build snapshot: %v", err)
	}
	return snap
}

// SeededStore returns a store holding the sample configuration.
func SeededStore(t *testing.T) *snapshot.Store {
	t.Helper()
	store := snapshot.NewStore()
	snap := BuildSnapshot(t, SampleConfiguration(), "production", 1)
	if err := store.Replace(snap); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return store
}

// HTTPRequest is a helper for making test HTTP requests.
type HTTPRequest struct {
	Method  string
	Path    string
	Body    string
	Headers map[string]string
}

// Do executes the HTTP request and returns the response recorder.
func (r *HTTPRequest) Do(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if r.Body != "" {
		body = bytes.NewBufferString(r.Body)
	}
	req := httptest.NewRequest(r.Method, r.Path, body)
	if r.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}
