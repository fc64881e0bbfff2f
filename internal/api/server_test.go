package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/TimurManjosov/configship/internal/snapshot"
	"github.com/TimurManjosov/configship/internal/testutil"
)

func newTestRouter(t *testing.T, apiKey string) http.Handler {
	t.Helper()
	return NewServer(testutil.SeededStore(t), 0, apiKey, nil).Router()
}

func TestHealthz(t *testing.T) {
	req := testutil.HTTPRequest{Method: http.MethodGet, Path: "/healthz"}
	rr := req.Do(t, newTestRouter(t, ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if rr.Body.String() != "ok" {
		t.Errorf("body = %q, want ok", rr.Body.String())
	}
}

func TestGetConfiguration_NoSnapshot(t *testing.T) {
	router := NewServer(snapshot.NewStore(), 0, "", nil).Router()
	req := testutil.HTTPRequest{Method: http.MethodGet, Path: "/v1/configuration"}
	rr := req.Do(t, router)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Code != ErrCodeNoSnapshot {
		t.Errorf("code = %s, want %s", resp.Code, ErrCodeNoSnapshot)
	}
}

func TestGetConfiguration(t *testing.T) {
	router := newTestRouter(t, "")
	req := testutil.HTTPRequest{Method: http.MethodGet, Path: "/v1/configuration"}
	rr := req.Do(t, router)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	etag := rr.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag header")
	}

	var view struct {
		EnvironmentID string   `json:"environmentId"`
		CollectionID  string   `json:"collectionId"`
		ETag          string   `json:"etag"`
		Features      []string `json:"features"`
		Properties    []string `json:"properties"`
		Segments      []string `json:"segments"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.EnvironmentID != "production" || view.CollectionID != "default" {
		t.Errorf("view scope = %s/%s", view.EnvironmentID, view.CollectionID)
	}
	if view.ETag != etag {
		t.Errorf("body etag %q != header etag %q", view.ETag, etag)
	}
	wantFeatures := []string{"greeting", "new-checkout"}
	if len(view.Features) != 2 || view.Features[0] != wantFeatures[0] || view.Features[1] != wantFeatures[1] {
		t.Errorf("features = %v, want %v", view.Features, wantFeatures)
	}

	// Revalidation with the served ETag costs a 304.
	req.Headers = map[string]string{"If-None-Match": etag}
	if rr := req.Do(t, router); rr.Code != http.StatusNotModified {
		t.Errorf("revalidation status = %d, want 304", rr.Code)
	}
}

func TestEvaluate(t *testing.T) {
	router := newTestRouter(t, "")
	req := testutil.HTTPRequest{
		Method: http.MethodPost,
		Path:   "/v1/evaluate",
		Body: `{
			"entity": {"id": "user-1", "attributes": {"country": "US", "age": 30, "plan": "gold"}},
			"features": ["new-checkout"],
			"properties": ["discount"]
		}`,
	}
	rr := req.Do(t, router)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Features []struct {
			ID             string `json:"id"`
			Value          any    `json:"value"`
			Reason         string `json:"reason"`
			MatchedSegment string `json:"matchedSegment"`
		} `json:"features"`
		Properties []struct {
			ID     string `json:"id"`
			Value  any    `json:"value"`
			Reason string `json:"reason"`
		} `json:"properties"`
		ETag         string `json:"etag"`
		EvaluationID string `json:"evaluationId"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Features) != 1 || len(resp.Properties) != 1 {
		t.Fatalf("got %d features, %d properties", len(resp.Features), len(resp.Properties))
	}
	f := resp.Features[0]
	if f.ID != "new-checkout" || f.Value != true {
		t.Errorf("feature = %+v", f)
	}
	if f.Reason != "TARGETING_MATCH" || f.MatchedSegment != "us-adults" {
		t.Errorf("reason = %s segment = %s", f.Reason, f.MatchedSegment)
	}
	p := resp.Properties[0]
	if p.ID != "discount" || p.Value != float64(25) {
		t.Errorf("property = %+v", p)
	}
	if resp.ETag == "" || resp.EvaluationID == "" {
		t.Error("missing etag or evaluation id")
	}
}

func TestEvaluate_AllWhenUnfiltered(t *testing.T) {
	router := newTestRouter(t, "")
	req := testutil.HTTPRequest{
		Method: http.MethodPost,
		Path:   "/v1/evaluate",
		Body:   `{"entity": {"id": "user-1"}}`,
	}
	rr := req.Do(t, router)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp struct {
		Features   []json.RawMessage `json:"features"`
		Properties []json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Features) != 2 {
		t.Errorf("features = %d, want 2", len(resp.Features))
	}
	if len(resp.Properties) != 1 {
		t.Errorf("properties = %d, want 1", len(resp.Properties))
	}
}

func TestEvaluate_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode ErrorCode
	}{
		{"invalid json", `{not json`, ErrCodeInvalidJSON},
		{"missing entity", `{"features": ["new-checkout"]}`, ErrCodeMissingField},
		{"blank entity id", `{"entity": {"id": "  "}}`, ErrCodeMissingField},
	}
	router := newTestRouter(t, "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.HTTPRequest{Method: http.MethodPost, Path: "/v1/evaluate", Body: tt.body}
			rr := req.Do(t, router)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestNotFoundEnvelope(t *testing.T) {
	req := testutil.HTTPRequest{Method: http.MethodGet, Path: "/no/such/endpoint"}
	rr := req.Do(t, newTestRouter(t, ""))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Code != ErrCodeNotFound {
		t.Errorf("code = %s, want %s", resp.Code, ErrCodeNotFound)
	}
}

func TestRateLimitEnvelope(t *testing.T) {
	router := NewServer(testutil.SeededStore(t), 1, "", nil).Router()
	req := testutil.HTTPRequest{Method: http.MethodGet, Path: "/healthz"}
	if rr := req.Do(t, router); rr.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rr.Code)
	}
	rr := req.Do(t, router)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rr.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Code != ErrCodeRateLimited {
		t.Errorf("code = %s, want %s", resp.Code, ErrCodeRateLimited)
	}
}

func TestRecovererEnvelope(t *testing.T) {
	srv := NewServer(snapshot.NewStore(), 0, "", nil)
	handler := srv.recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	req := testutil.HTTPRequest{Method: http.MethodGet, Path: "/v1/configuration"}
	rr := req.Do(t, handler)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Code != ErrCodeInternal {
		t.Errorf("code = %s, want %s", resp.Code, ErrCodeInternal)
	}
}

func TestAuthRequiredOnV1(t *testing.T) {
	router := newTestRouter(t, "sk-test")

	// /healthz stays public.
	health := testutil.HTTPRequest{Method: http.MethodGet, Path: "/healthz"}
	if rr := health.Do(t, router); rr.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rr.Code)
	}

	cfgReq := testutil.HTTPRequest{Method: http.MethodGet, Path: "/v1/configuration"}
	if rr := cfgReq.Do(t, router); rr.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", rr.Code)
	}

	cfgReq.Headers = map[string]string{"Authorization": "Bearer wrong"}
	if rr := cfgReq.Do(t, router); rr.Code != http.StatusUnauthorized {
		t.Errorf("wrong key status = %d, want 401", rr.Code)
	}

	cfgReq.Headers = map[string]string{"Authorization": "Bearer sk-test"}
	if rr := cfgReq.Do(t, router); rr.Code != http.StatusOK {
		t.Errorf("authenticated status = %d, want 200", rr.Code)
	}
}
