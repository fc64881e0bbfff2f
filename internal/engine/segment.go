package engine

import (
	"github.com/TimurManjosov/configship/internal/models"
	"github.com/TimurManjosov/configship/internal/snapshot"
	"github.com/TimurManjosov/configship/pkg/values"
)

// MatchesSegment reports whether the attributes satisfy a segment's rule set.
// AND short-circuits on the first non-matching condition, OR on the first
// match. A missing attribute makes its condition a non-match, never an error.
// Pure function of its inputs.
func MatchesSegment(seg snapshot.Segment, attrs map[string]values.Value) bool {
	if len(seg.Conditions) == 0 {
		return false
	}
	if seg.Combinator == models.CombinatorOr {
		for _, c := range seg.Conditions {
			if matchesCondition(c, attrs) {
				return true
			}
		}
		return false
	}
	for _, c := range seg.Conditions {
		if !matchesCondition(c, attrs) {
			return false
		}
	}
	return true
}

func matchesCondition(c snapshot.Condition, attrs map[string]values.Value) bool {
	attr, ok := attrs[c.Attribute]
	if !ok {
		return false
	}
	handler, ok := getOperatorHandler(c.Operator)
	if !ok {
		return false
	}
	return handler.Check(attr, c.Values)
}
