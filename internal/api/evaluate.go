package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TimurManjosov/configship/internal/engine"
	"github.com/TimurManjosov/configship/internal/telemetry"
	"github.com/TimurManjosov/configship/pkg/values"
)

// evaluateRequest represents the request body for POST /v1/evaluate
type evaluateRequest struct {
	Entity     *evaluateEntity `json:"entity"`
	Features   []string        `json:"features,omitempty"`
	Properties []string        `json:"properties,omitempty"`
}

// evaluateEntity represents the entity context in an evaluate request
type evaluateEntity struct {
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// evalResult is one evaluated feature or property
type evalResult struct {
	ID             string        `json:"id"`
	Value          any           `json:"value"`
	Reason         engine.Reason `json:"reason"`
	MatchedSegment string        `json:"matchedSegment,omitempty"`
}

// evaluateResponse represents the response for POST /v1/evaluate
type evaluateResponse struct {
	Features     []evalResult `json:"features"`
	Properties   []evalResult `json:"properties"`
	ETag         string       `json:"etag"`
	EvaluationID string       `json:"evaluationId"`
	EvaluatedAt  string       `json:"evaluatedAt"`
}

// handleEvaluate handles POST /v1/evaluate
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidJSON, "invalid JSON")
		return
	}
	if req.Entity == nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeMissingField, "entity is required")
		return
	}
	if strings.TrimSpace(req.Entity.ID) == "" {
		writeError(w, r, http.StatusBadRequest, ErrCodeMissingField, "entity.id is required")
		return
	}

	snap, err := s.store.Current()
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, ErrCodeNoSnapshot, "no configuration snapshot available yet")
		return
	}

	entity := buildEntity(req.Entity)

	// Empty id lists mean "evaluate everything of that kind".
	featureIDs := req.Features
	if len(featureIDs) == 0 {
		for id := range snap.Features {
			featureIDs = append(featureIDs, id)
		}
	}
	propertyIDs := req.Properties
	if len(propertyIDs) == 0 {
		for id := range snap.Properties {
			propertyIDs = append(propertyIDs, id)
		}
	}

	resp := evaluateResponse{
		Features:     make([]evalResult, 0, len(featureIDs)),
		Properties:   make([]evalResult, 0, len(propertyIDs)),
		ETag:         snap.ETag,
		EvaluationID: uuid.NewString(),
		EvaluatedAt:  time.Now().UTC().Format(time.RFC3339),
	}

	for _, id := range featureIDs {
		f, ok := snap.Features[id]
		if !ok {
			continue // unknown ids in the filter are silently ignored
		}
		res := engine.EvaluateFeature(snap, f, entity)
		telemetry.Evaluations.WithLabelValues("feature", string(res.Reason)).Inc()
		resp.Features = append(resp.Features, evalResult{
			ID:             id,
			Value:          res.Value.Interface(),
			Reason:         res.Reason,
			MatchedSegment: res.MatchedSegment,
		})
	}
	for _, id := range propertyIDs {
		p, ok := snap.Properties[id]
		if !ok {
			continue
		}
		res := engine.EvaluateProperty(snap, p, entity)
		telemetry.Evaluations.WithLabelValues("property", string(res.Reason)).Inc()
		resp.Properties = append(resp.Properties, evalResult{
			ID:             id,
			Value:          res.Value.Interface(),
			Reason:         res.Reason,
			MatchedSegment: res.MatchedSegment,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// buildEntity converts the wire entity into the engine's Entity capability,
// dropping attributes whose type the value model does not support.
func buildEntity(e *evaluateEntity) values.Entity {
	attrs := make(map[string]values.Value, len(e.Attributes))
	for k, raw := range e.Attributes {
		if v, ok := values.Infer(raw); ok {
			attrs[k] = v
		}
	}
	return values.NewEntityContext(e.ID, attrs)
}
