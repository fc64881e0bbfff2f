package engine

import "github.com/TimurManjosov/configship/pkg/values"

// Reason explains which path of the evaluation produced the result.
type Reason string

const (
	// ReasonDisabled: the feature toggle is off; the disabled value is served.
	ReasonDisabled Reason = "DISABLED"
	// ReasonTargetingMatch: a targeting rule matched and its rollout admitted
	// the entity.
	ReasonTargetingMatch Reason = "TARGETING_MATCH"
	// ReasonRolloutMiss: a targeting rule matched but the entity fell outside
	// the rule's rollout bucket; the default value is served. Later rules are
	// not consulted.
	ReasonRolloutMiss Reason = "ROLLOUT_MISS"
	// ReasonDefault: no targeting rule matched (or targeting was gated off);
	// the flag-level value is served.
	ReasonDefault Reason = "DEFAULT"
	// ReasonDefaultRollout: no rule matched and the flag-level rollout decided
	// between the enabled and disabled values.
	ReasonDefaultRollout Reason = "DEFAULT_ROLLOUT"
)

// Result is the deterministic output of one evaluation.
type Result struct {
	Value          values.Value `json:"value"`
	Reason         Reason       `json:"reason"`
	MatchedSegment string       `json:"matchedSegment,omitempty"`
	MatchedRule    int          `json:"matchedRule"` // order of the governing rule, -1 when none
}
