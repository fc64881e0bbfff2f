// Package snapshot compiles decoded configuration payloads into the
// immutable, versioned structure the engine evaluates against, and owns the
// store that atomically swaps the current snapshot on refresh.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/TimurManjosov/configship/internal/models"
	"github.com/TimurManjosov/configship/internal/targeting"
	"github.com/TimurManjosov/configship/pkg/values"
)

var (
	// ErrInvalidSnapshot marks a payload that fails referential validation,
	// e.g. a targeting rule referencing a segment the payload does not carry.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	// ErrEnvironmentNotFound is returned when the payload has no environment
	// with the requested id.
	ErrEnvironmentNotFound = errors.New("environment not found in configuration")
)

// Condition is one compiled predicate of a segment.
type Condition struct {
	Attribute string
	Operator  models.Operator
	Values    []values.Value
}

// Segment is a compiled segment: conditions joined by one combinator.
type Segment struct {
	ID         string
	Name       string
	Combinator models.Combinator
	Conditions []Condition
}

// TargetingRule is a compiled targeting rule. Segments holds the flattened
// referenced segment ids (OR semantics). Rollout is nil when the rule
// inherits the flag-level percentage. UseDefault marks the "$default" value
// sentinel: serve the flag-level enabled value instead of a rule value.
type TargetingRule struct {
	Order      uint32
	Segments   []string
	Value      values.Value
	UseDefault bool
	Rollout    *uint32
}

// Feature is a compiled feature flag definition.
type Feature struct {
	ID            string
	Name          string
	Kind          values.Kind
	Enabled       bool
	EnabledValue  values.Value
	DisabledValue values.Value
	Rollout       uint32
	Expression    string
	Rules         []TargetingRule
}

// Property is a compiled property definition. Properties have no toggle and
// no flag-level rollout; rules may still carry their own percentage.
type Property struct {
	ID         string
	Name       string
	Kind       values.Kind
	Value      values.Value
	Expression string
	Rules      []TargetingRule
}

// Snapshot is one immutable pull of all features, properties and segments for
// an environment and collection. It is never mutated after Build; refresh
// replaces the whole value.
type Snapshot struct {
	EnvironmentID string
	CollectionID  string
	ETag          string
	Version       uint64
	Features      map[string]Feature
	Properties    map[string]Property
	Segments      map[string]Segment
	UpdatedAt     time.Time
}

// Build compiles a decoded payload into a Snapshot for one environment.
// Referential integrity is enforced here: a dangling segment reference makes
// the whole snapshot invalid, so evaluation never has to handle one.
func Build(cfg *models.Configuration, environmentID, collectionID string, version uint64) (*Snapshot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}

	var env *models.Environment
	for i := range cfg.Environments {
		if cfg.Environments[i].EnvironmentID == environmentID {
			env = &cfg.Environments[i]
			break
		}
	}
	if env == nil {
		return nil, fmt.Errorf("%w: %q", ErrEnvironmentNotFound, environmentID)
	}

	segments := make(map[string]Segment, len(cfg.Segments))
	for _, s := range cfg.Segments {
		seg, err := compileSegment(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
		}
		segments[seg.ID] = seg
	}

	features := make(map[string]Feature, len(env.Features))
	for _, f := range env.Features {
		compiled, err := compileFeature(f, segments)
		if err != nil {
			return nil, err
		}
		features[compiled.ID] = compiled
	}

	properties := make(map[string]Property, len(env.Properties))
	for _, p := range env.Properties {
		compiled, err := compileProperty(p, segments)
		if err != nil {
			return nil, err
		}
		properties[compiled.ID] = compiled
	}

	return &Snapshot{
		EnvironmentID: environmentID,
		CollectionID:  collectionID,
		ETag:          computeETag(features, properties, segments),
		Version:       version,
		Features:      features,
		Properties:    properties,
		Segments:      segments,
		UpdatedAt:     time.Now().UTC(),
	}, nil
}

func compileSegment(s models.Segment) (Segment, error) {
	combinator := s.Combinator
	if combinator == "" {
		combinator = models.CombinatorAnd
	}
	conditions := make([]Condition, 0, len(s.Rules))
	for i, r := range s.Rules {
		vals := make([]values.Value, 0, len(r.Values))
		for _, raw := range r.Values {
			v, ok := values.Infer(raw)
			if !ok {
				return Segment{}, fmt.Errorf("segment %q condition[%d] has unsupported value %v", s.SegmentID, i, raw)
			}
			vals = append(vals, v)
		}
		conditions = append(conditions, Condition{
			Attribute: r.AttributeName,
			Operator:  r.Operator,
			Values:    vals,
		})
	}
	return Segment{ID: s.SegmentID, Name: s.Name, Combinator: combinator, Conditions: conditions}, nil
}

func compileFeature(f models.Feature, segments map[string]Segment) (Feature, error) {
	kind, err := values.ParseKind(f.Type)
	if err != nil {
		return Feature{}, fmt.Errorf("%w: feature %q: %w", ErrInvalidSnapshot, f.FeatureID, err)
	}
	enabled, err := values.FromJSON(kind, f.EnabledValue)
	if err != nil {
		return Feature{}, fmt.Errorf("%w: feature %q enabled value: %w", ErrInvalidSnapshot, f.FeatureID, err)
	}
	disabled, err := values.FromJSON(kind, f.DisabledValue)
	if err != nil {
		return Feature{}, fmt.Errorf("%w: feature %q disabled value: %w", ErrInvalidSnapshot, f.FeatureID, err)
	}
	rules, err := compileRules(f.FeatureID, kind, f.SegmentRules, segments)
	if err != nil {
		return Feature{}, err
	}
	expression := ""
	if f.Expression != nil {
		expression = *f.Expression
	}
	if expression != "" {
		if err := targeting.ValidateExpression(expression); err != nil {
			return Feature{}, fmt.Errorf("%w: feature %q expression: %w", ErrInvalidSnapshot, f.FeatureID, err)
		}
	}
	return Feature{
		ID:            f.FeatureID,
		Name:          f.Name,
		Kind:          kind,
		Enabled:       f.Enabled,
		EnabledValue:  enabled,
		DisabledValue: disabled,
		Rollout:       f.RolloutPercentage,
		Expression:    expression,
		Rules:         rules,
	}, nil
}

func compileProperty(p models.Property, segments map[string]Segment) (Property, error) {
	kind, err := values.ParseKind(p.Type)
	if err != nil {
		return Property{}, fmt.Errorf("%w: property %q: %w", ErrInvalidSnapshot, p.PropertyID, err)
	}
	value, err := values.FromJSON(kind, p.Value)
	if err != nil {
		return Property{}, fmt.Errorf("%w: property %q value: %w", ErrInvalidSnapshot, p.PropertyID, err)
	}
	rules, err := compileRules(p.PropertyID, kind, p.SegmentRules, segments)
	if err != nil {
		return Property{}, err
	}
	expression := ""
	if p.Expression != nil {
		expression = *p.Expression
	}
	if expression != "" {
		if err := targeting.ValidateExpression(expression); err != nil {
			return Property{}, fmt.Errorf("%w: property %q expression: %w", ErrInvalidSnapshot, p.PropertyID, err)
		}
	}
	return Property{
		ID:         p.PropertyID,
		Name:       p.Name,
		Kind:       kind,
		Value:      value,
		Expression: expression,
		Rules:      rules,
	}, nil
}

func compileRules(owner string, kind values.Kind, rules []models.TargetingRule, segments map[string]Segment) ([]TargetingRule, error) {
	compiled := make([]TargetingRule, 0, len(rules))
	for i, r := range rules {
		var refs []string
		for _, ref := range r.Rules {
			for _, id := range ref.Segments {
				if _, ok := segments[id]; !ok {
					return nil, fmt.Errorf("%w: %q rule[%d] references unknown segment %q",
						ErrInvalidSnapshot, owner, i, id)
				}
				refs = append(refs, id)
			}
		}

		rule := TargetingRule{Order: r.Order, Segments: refs}

		if s, ok := r.Value.(string); ok && s == models.DefaultSentinel {
			rule.UseDefault = true
		} else {
			v, err := values.FromJSON(kind, r.Value)
			if err != nil {
				return nil, fmt.Errorf("%w: %q rule[%d] value: %w", ErrInvalidSnapshot, owner, i, err)
			}
			rule.Value = v
		}

		pct, ok, err := models.ResolveRollout(r.RolloutPercentage)
		if err != nil {
			return nil, fmt.Errorf("%w: %q rule[%d]: %w", ErrInvalidSnapshot, owner, i, err)
		}
		if ok {
			rule.Rollout = &pct
		}
		compiled = append(compiled, rule)
	}
	sort.SliceStable(compiled, func(a, b int) bool { return compiled[a].Order < compiled[b].Order })
	return compiled, nil
}

// computeETag derives a weak content hash over the compiled ids so unchanged
// payloads can be recognised cheaply.
func computeETag(features map[string]Feature, properties map[string]Property, segments map[string]Segment) string {
	manifest := struct {
		Features   map[string]Feature  `json:"features"`
		Properties map[string]Property `json:"properties"`
		Segments   map[string]Segment  `json:"segments"`
	}{features, properties, segments}

	blob, _ := json.Marshal(manifest)
	sum := sha256.Sum256(blob)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`
}
