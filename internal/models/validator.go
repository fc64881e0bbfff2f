package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors returned by Validate.
var (
	ErrInvalidOperator   = errors.New("invalid operator")
	ErrInvalidCondition  = errors.New("invalid condition")
	ErrInvalidKind       = errors.New("invalid value kind")
	ErrInvalidCombinator = errors.New("invalid combinator")
	ErrInvalidRollout    = errors.New("rollout must be between 0 and 100")
	ErrInvalidSegment    = errors.New("invalid segment")
	ErrInvalidRule       = errors.New("invalid targeting rule")
)

// validOperators is the set of all recognised condition operators.
var validOperators = map[Operator]struct{}{
	OpEquals:            {},
	OpNotEquals:         {},
	OpContains:          {},
	OpNotContains:       {},
	OpOneOf:             {},
	OpNotOneOf:          {},
	OpGreaterThan:       {},
	OpLessThan:          {},
	OpGreaterThanEquals: {},
	OpLessThanEquals:    {},
	OpStartsWith:        {},
	OpEndsWith:          {},
	OpVersionGT:         {},
	OpVersionLT:         {},
}

var validKinds = map[string]struct{}{
	"BOOLEAN": {},
	"NUMERIC": {},
	"STRING":  {},
}

// Validate performs strict shape validation of a decoded payload. It is a
// pure function: it never mutates cfg and has no side effects. Referential
// integrity across targeting rules and segments is checked later, when the
// snapshot is built.
func (cfg *Configuration) Validate() error {
	for _, seg := range cfg.Segments {
		if err := validateSegment(seg); err != nil {
			return err
		}
	}
	for _, env := range cfg.Environments {
		if env.EnvironmentID == "" {
			return fmt.Errorf("%w: environment id must not be empty", ErrInvalidSegment)
		}
		for _, f := range env.Features {
			if err := validateFeature(f); err != nil {
				return fmt.Errorf("environment %q: %w", env.EnvironmentID, err)
			}
		}
		for _, p := range env.Properties {
			if err := validateProperty(p); err != nil {
				return fmt.Errorf("environment %q: %w", env.EnvironmentID, err)
			}
		}
	}
	return nil
}

func validateSegment(seg Segment) error {
	if seg.SegmentID == "" {
		return fmt.Errorf("%w: segment id must not be empty", ErrInvalidSegment)
	}
	switch seg.Combinator {
	case "", CombinatorAnd, CombinatorOr:
	default:
		return fmt.Errorf("%w: segment %q combinator %q is not supported",
			ErrInvalidCombinator, seg.SegmentID, seg.Combinator)
	}
	if len(seg.Rules) == 0 {
		return fmt.Errorf("%w: segment %q must have at least one condition", ErrInvalidSegment, seg.SegmentID)
	}
	for i, c := range seg.Rules {
		if c.AttributeName == "" {
			return fmt.Errorf("%w: segment %q condition[%d] attribute must not be empty",
				ErrInvalidCondition, seg.SegmentID, i)
		}
		if _, ok := validOperators[c.Operator]; !ok {
			return fmt.Errorf("%w: segment %q condition[%d] operator %q is not supported",
				ErrInvalidOperator, seg.SegmentID, i, c.Operator)
		}
		if len(c.Values) == 0 {
			return fmt.Errorf("%w: segment %q condition[%d] must declare at least one value",
				ErrInvalidCondition, seg.SegmentID, i)
		}
	}
	return nil
}

func validateFeature(f Feature) error {
	if f.FeatureID == "" {
		return fmt.Errorf("%w: feature id must not be empty", ErrInvalidRule)
	}
	if _, ok := validKinds[f.Type]; !ok {
		return fmt.Errorf("%w: feature %q type %q", ErrInvalidKind, f.FeatureID, f.Type)
	}
	if f.RolloutPercentage > 100 {
		return fmt.Errorf("%w: feature %q has rollout %d", ErrInvalidRollout, f.FeatureID, f.RolloutPercentage)
	}
	return validateTargetingRules(f.FeatureID, f.SegmentRules)
}

func validateProperty(p Property) error {
	if p.PropertyID == "" {
		return fmt.Errorf("%w: property id must not be empty", ErrInvalidRule)
	}
	if _, ok := validKinds[p.Type]; !ok {
		return fmt.Errorf("%w: property %q type %q", ErrInvalidKind, p.PropertyID, p.Type)
	}
	return validateTargetingRules(p.PropertyID, p.SegmentRules)
}

func validateTargetingRules(owner string, rules []TargetingRule) error {
	for i, r := range rules {
		refs := 0
		for _, ref := range r.Rules {
			refs += len(ref.Segments)
		}
		if refs == 0 {
			return fmt.Errorf("%w: %q rule[%d] references no segments", ErrInvalidRule, owner, i)
		}
		if _, ok, err := ResolveRollout(r.RolloutPercentage); err != nil {
			return fmt.Errorf("%q rule[%d]: %w", owner, i, err)
		} else if ok {
			continue
		}
	}
	return nil
}

// ResolveRollout interprets a rule-level rollout percentage. The field may be
// absent or hold the "$default" sentinel, both meaning "inherit the
// flag-level percentage"; in that case ok is false.
func ResolveRollout(raw any) (pct uint32, ok bool, err error) {
	switch v := raw.(type) {
	case nil:
		return 0, false, nil
	case string:
		if v == DefaultSentinel {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("%w: %q", ErrInvalidRollout, v)
	case json.Number:
		n, convErr := v.Int64()
		if convErr != nil || n < 0 || n > 100 {
			return 0, false, fmt.Errorf("%w: %v", ErrInvalidRollout, v)
		}
		return uint32(n), true, nil
	case float64:
		if v < 0 || v > 100 || v != float64(int64(v)) {
			return 0, false, fmt.Errorf("%w: %v", ErrInvalidRollout, v)
		}
		return uint32(v), true, nil
	case int:
		if v < 0 || v > 100 {
			return 0, false, fmt.Errorf("%w: %d", ErrInvalidRollout, v)
		}
		return uint32(v), true, nil
	default:
		return 0, false, fmt.Errorf("%w: %v", ErrInvalidRollout, raw)
	}
}
