// Package engine implements the configuration evaluation engine: segment
// matching, targeting-rule selection and rollout bucketing over an immutable
// snapshot. Evaluation is a pure, synchronous computation; the engine holds
// no state and is safe for any number of concurrent callers.
package engine

import (
	"github.com/TimurManjosov/configship/internal/rollout"
	"github.com/TimurManjosov/configship/internal/snapshot"
	"github.com/TimurManjosov/configship/internal/targeting"
	"github.com/TimurManjosov/configship/pkg/values"
)

// EvaluateFeature computes the value of a feature for an entity.
//
// Order: disabled toggle, optional expression gate, targeting rules in
// declared order, then the flag-level default. The first rule with a matching
// segment governs; on a rollout miss the evaluation falls straight to the
// disabled value rather than consulting later rules.
func EvaluateFeature(snap *snapshot.Snapshot, f snapshot.Feature, entity values.Entity) Result {
	if !f.Enabled {
		return Result{Value: f.DisabledValue, Reason: ReasonDisabled, MatchedRule: -1}
	}

	attrs := entityAttributes(entity)

	if gateAllowsTargeting(f.Expression, entity, attrs) {
		for _, rule := range f.Rules {
			segID, ok := firstMatchingSegment(snap, rule, attrs)
			if !ok {
				continue
			}
			pct := f.Rollout
			if rule.Rollout != nil {
				pct = *rule.Rollout
			}
			served := rule.Value
			if rule.UseDefault {
				served = f.EnabledValue
			}
			rolled, err := rollout.IsRolledOut(entityID(entity), f.ID, pct)
			if err == nil && rolled {
				return Result{Value: served, Reason: ReasonTargetingMatch, MatchedSegment: segID, MatchedRule: int(rule.Order)}
			}
			return Result{Value: f.DisabledValue, Reason: ReasonRolloutMiss, MatchedSegment: segID, MatchedRule: int(rule.Order)}
		}
	}

	// Default path: the flag-level rollout decides between the enabled and
	// disabled values.
	if f.Rollout == 100 {
		return Result{Value: f.EnabledValue, Reason: ReasonDefault, MatchedRule: -1}
	}
	rolled, err := rollout.IsRolledOut(entityID(entity), f.ID, f.Rollout)
	if err == nil && rolled {
		return Result{Value: f.EnabledValue, Reason: ReasonDefaultRollout, MatchedRule: -1}
	}
	return Result{Value: f.DisabledValue, Reason: ReasonDefaultRollout, MatchedRule: -1}
}

// EvaluateProperty computes the value of a property for an entity. Properties
// have no toggle and no flag-level rollout: rules may carry their own
// percentage, and everything else resolves to the property value.
func EvaluateProperty(snap *snapshot.Snapshot, p snapshot.Property, entity values.Entity) Result {
	attrs := entityAttributes(entity)

	if gateAllowsTargeting(p.Expression, entity, attrs) {
		for _, rule := range p.Rules {
			segID, ok := firstMatchingSegment(snap, rule, attrs)
			if !ok {
				continue
			}
			pct := uint32(100)
			if rule.Rollout != nil {
				pct = *rule.Rollout
			}
			served := rule.Value
			if rule.UseDefault {
				served = p.Value
			}
			rolled, err := rollout.IsRolledOut(entityID(entity), p.ID, pct)
			if err == nil && rolled {
				return Result{Value: served, Reason: ReasonTargetingMatch, MatchedSegment: segID, MatchedRule: int(rule.Order)}
			}
			return Result{Value: p.Value, Reason: ReasonRolloutMiss, MatchedSegment: segID, MatchedRule: int(rule.Order)}
		}
	}

	return Result{Value: p.Value, Reason: ReasonDefault, MatchedRule: -1}
}

// firstMatchingSegment resolves a rule's segment references against the
// snapshot. Snapshot construction guarantees every referenced segment exists.
func firstMatchingSegment(snap *snapshot.Snapshot, rule snapshot.TargetingRule, attrs map[string]values.Value) (string, bool) {
	for _, id := range rule.Segments {
		if MatchesSegment(snap.Segments[id], attrs) {
			return id, true
		}
	}
	return "", false
}

// gateAllowsTargeting applies the optional expression gate. An absent
// expression always allows targeting; a failing or false expression routes
// the evaluation to the default path.
func gateAllowsTargeting(expression string, entity values.Entity, attrs map[string]values.Value) bool {
	if expression == "" {
		return true
	}
	match, err := targeting.Evaluate(expression, entityID(entity), attrs)
	return err == nil && match
}

func entityID(e values.Entity) string {
	if e == nil {
		return ""
	}
	return e.EntityID()
}

func entityAttributes(e values.Entity) map[string]values.Value {
	if e == nil {
		return nil
	}
	return e.EntityAttributes()
}
