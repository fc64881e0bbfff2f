package engine

import (
	"fmt"
	"testing"

	"github.com/TimurManjosov/configship/internal/rollout"
	"github.com/TimurManjosov/configship/internal/snapshot"
	"github.com/TimurManjosov/configship/pkg/values"
)

func testSnapshot() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		EnvironmentID: "production",
		Segments: map[string]snapshot.Segment{
			"us-adults": usAdults(),
			"premium":   premiumPlans(),
		},
	}
}

func entityWith(id string, attrs map[string]values.Value) values.Entity {
	return values.NewEntityContext(id, attrs)
}

// bucketedEntities finds one entity inside and one outside a 50% rollout of
// the given flag. Deterministic: buckets only depend on entity and flag ids.
func bucketedEntities(t *testing.T, flagID string) (in, out string) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("user-%d", i)
		if rollout.Bucket(id, flagID) < 50 {
			if in == "" {
				in = id
			}
		} else if out == "" {
			out = id
		}
		if in != "" && out != "" {
			return in, out
		}
	}
	t.Fatal("could not find bucketed entities")
	return "", ""
}

func uintPtr(v uint32) *uint32 { return &v }

func TestEvaluateFeature_Disabled(t *testing.T) {
	f := snapshot.Feature{
		ID:            "dark-mode",
		Kind:          values.KindBoolean,
		Enabled:       false,
		EnabledValue:  values.Bool(true),
		DisabledValue: values.Bool(false),
		Rollout:       100,
		Rules: []snapshot.TargetingRule{
			{Order: 1, Segments: []string{"us-adults"}, Value: values.Bool(true)},
		},
	}
	entity := entityWith("user-1", map[string]values.Value{
		"country": values.String("US"), "age": values.Int64(30),
	})

	res := EvaluateFeature(testSnapshot(), f, entity)

	if !res.Value.Equal(values.Bool(false)) {
		t.Errorf("disabled flag served %v", res.Value)
	}
	if res.Reason != ReasonDisabled {
		t.Errorf("reason = %v, want %v", res.Reason, ReasonDisabled)
	}
}

func TestEvaluateFeature_TargetingMatch(t *testing.T) {
	f := snapshot.Feature{
		ID:            "discount-rate",
		Kind:          values.KindNumeric,
		Enabled:       true,
		EnabledValue:  values.Int64(10),
		DisabledValue: values.Int64(0),
		Rollout:       100,
		Rules: []snapshot.TargetingRule{
			{Order: 1, Segments: []string{"premium"}, Value: values.Int64(25)},
		},
	}
	entity := entityWith("user-1", map[string]values.Value{"plan": values.String("gold")})

	res := EvaluateFeature(testSnapshot(), f, entity)

	if !res.Value.Equal(values.Int64(25)) {
		t.Errorf("value = %v, want 25", res.Value)
	}
	if res.Reason != ReasonTargetingMatch {
		t.Errorf("reason = %v, want %v", res.Reason, ReasonTargetingMatch)
	}
	if res.MatchedSegment != "premium" {
		t.Errorf("matched segment = %q", res.MatchedSegment)
	}
	if res.MatchedRule != 1 {
		t.Errorf("matched rule = %d", res.MatchedRule)
	}
}

func TestEvaluateFeature_FirstMatchWins(t *testing.T) {
	// Entity matches both rules; the lower-order rule governs.
	f := snapshot.Feature{
		ID:            "discount-rate",
		Kind:          values.KindNumeric,
		Enabled:       true,
		EnabledValue:  values.Int64(10),
		DisabledValue: values.Int64(0),
		Rollout:       100,
		Rules: []snapshot.TargetingRule{
			{Order: 1, Segments: []string{"premium"}, Value: values.Int64(25)},
			{Order: 2, Segments: []string{"us-adults"}, Value: values.Int64(15)},
		},
	}
	entity := entityWith("user-1", map[string]values.Value{
		"plan": values.String("gold"), "country": values.String("US"), "age": values.Int64(30),
	})

	res := EvaluateFeature(testSnapshot(), f, entity)

	if !res.Value.Equal(values.Int64(25)) {
		t.Errorf("value = %v, want the first rule's 25", res.Value)
	}
	if res.MatchedRule != 1 {
		t.Errorf("matched rule = %d, want 1", res.MatchedRule)
	}
}

func TestEvaluateFeature_RolloutMissDoesNotFallThrough(t *testing.T) {
	// The first matching rule has a 0% rollout. Even though a later rule
	// would match at 100%, a rollout miss ends the rule walk.
	f := snapshot.Feature{
		ID:            "discount-rate",
		Kind:          values.KindNumeric,
		Enabled:       true,
		EnabledValue:  values.Int64(10),
		DisabledValue: values.Int64(0),
		Rollout:       100,
		Rules: []snapshot.TargetingRule{
			{Order: 1, Segments: []string{"premium"}, Value: values.Int64(25), Rollout: uintPtr(0)},
			{Order: 2, Segments: []string{"premium"}, Value: values.Int64(15), Rollout: uintPtr(100)},
		},
	}
	entity := entityWith("user-1", map[string]values.Value{"plan": values.String("gold")})

	res := EvaluateFeature(testSnapshot(), f, entity)

	if !res.Value.Equal(values.Int64(0)) {
		t.Errorf("value = %v, want the disabled value", res.Value)
	}
	if res.Reason != ReasonRolloutMiss {
		t.Errorf("reason = %v, want %v", res.Reason, ReasonRolloutMiss)
	}
	if res.MatchedRule != 1 {
		t.Errorf("matched rule = %d, want 1", res.MatchedRule)
	}
}

func TestEvaluateFeature_RuleInheritsFlagRollout(t *testing.T) {
	// Rollout nil on the rule means the flag-level percentage applies.
	f := snapshot.Feature{
		ID:            "discount-rate",
		Kind:          values.KindNumeric,
		Enabled:       true,
		EnabledValue:  values.Int64(10),
		DisabledValue: values.Int64(0),
		Rollout:       0,
		Rules: []snapshot.TargetingRule{
			{Order: 1, Segments: []string{"premium"}, Value: values.Int64(25)},
		},
	}
	entity := entityWith("user-1", map[string]values.Value{"plan": values.String("gold")})

	res := EvaluateFeature(testSnapshot(), f, entity)

	if res.Reason != ReasonRolloutMiss {
		t.Errorf("reason = %v, want %v", res.Reason, ReasonRolloutMiss)
	}
}

func TestEvaluateFeature_RuleUseDefaultValue(t *testing.T) {
	// UseDefault serves the flag-level enabled value from a matching rule.
	f := snapshot.Feature{
		ID:            "discount-rate",
		Kind:          values.KindNumeric,
		Enabled:       true,
		EnabledValue:  values.Int64(10),
		DisabledValue: values.Int64(0),
		Rollout:       100,
		Rules: []snapshot.TargetingRule{
			{Order: 1, Segments: []string{"premium"}, UseDefault: true},
		},
	}
	entity := entityWith("user-1", map[string]values.Value{"plan": values.String("platinum")})

	res := EvaluateFeature(testSnapshot(), f, entity)

	if !res.Value.Equal(values.Int64(10)) {
		t.Errorf("value = %v, want the enabled value 10", res.Value)
	}
	if res.Reason != ReasonTargetingMatch {
		t.Errorf("reason = %v, want %v", res.Reason, ReasonTargetingMatch)
	}
}

func TestEvaluateFeature_DefaultPath(t *testing.T) {
	base := snapshot.Feature{
		ID:            "greeting",
		Kind:          values.KindString,
		Enabled:       true,
		EnabledValue:  values.String("hello"),
		DisabledValue: values.String("goodbye"),
	}

	t.Run("full rollout serves enabled value", func(t *testing.T) {
		f := base
		f.Rollout = 100
		res := EvaluateFeature(testSnapshot(), f, entityWith("user-1", nil))
		if !res.Value.Equal(values.String("hello")) || res.Reason != ReasonDefault {
			t.Errorf("got %v / %v", res.Value, res.Reason)
		}
	})

	t.Run("zero rollout serves disabled value", func(t *testing.T) {
		f := base
		f.Rollout = 0
		res := EvaluateFeature(testSnapshot(), f, entityWith("user-1", nil))
		if !res.Value.Equal(values.String("goodbye")) || res.Reason != ReasonDefaultRollout {
			t.Errorf("got %v / %v", res.Value, res.Reason)
		}
	})

	t.Run("partial rollout splits by bucket", func(t *testing.T) {
		f := base
		f.Rollout = 50
		in, out := bucketedEntities(t, f.ID)

		res := EvaluateFeature(testSnapshot(), f, entityWith(in, nil))
		if !res.Value.Equal(values.String("hello")) {
			t.Errorf("in-bucket entity got %v", res.Value)
		}
		res = EvaluateFeature(testSnapshot(), f, entityWith(out, nil))
		if !res.Value.Equal(values.String("goodbye")) {
			t.Errorf("out-of-bucket entity got %v", res.Value)
		}
	})
}

func TestEvaluateFeature_ExpressionGate(t *testing.T) {
	expr := `{"==": [{"var": "plan"}, "gold"]}`
	f := snapshot.Feature{
		ID:            "discount-rate",
		Kind:          values.KindNumeric,
		Enabled:       true,
		EnabledValue:  values.Int64(10),
		DisabledValue: values.Int64(0),
		Rollout:       100,
		Expression:    expr,
		Rules: []snapshot.TargetingRule{
			{Order: 1, Segments: []string{"premium"}, Value: values.Int64(25)},
		},
	}

	t.Run("gate open runs targeting", func(t *testing.T) {
		entity := entityWith("user-1", map[string]values.Value{"plan": values.String("gold")})
		res := EvaluateFeature(testSnapshot(), f, entity)
		if !res.Value.Equal(values.Int64(25)) || res.Reason != ReasonTargetingMatch {
			t.Errorf("got %v / %v", res.Value, res.Reason)
		}
	})

	t.Run("gate closed routes to default", func(t *testing.T) {
		// platinum matches the premium segment but not the expression.
		entity := entityWith("user-1", map[string]values.Value{"plan": values.String("platinum")})
		res := EvaluateFeature(testSnapshot(), f, entity)
		if !res.Value.Equal(values.Int64(10)) || res.Reason != ReasonDefault {
			t.Errorf("got %v / %v", res.Value, res.Reason)
		}
	})

	t.Run("invalid expression routes to default", func(t *testing.T) {
		broken := f
		broken.Expression = `{"==": [`
		entity := entityWith("user-1", map[string]values.Value{"plan": values.String("gold")})
		res := EvaluateFeature(testSnapshot(), broken, entity)
		if res.Reason != ReasonDefault {
			t.Errorf("reason = %v, want %v", res.Reason, ReasonDefault)
		}
	})
}

func TestEvaluateFeature_Deterministic(t *testing.T) {
	f := snapshot.Feature{
		ID:            "greeting",
		Kind:          values.KindString,
		Enabled:       true,
		EnabledValue:  values.String("hello"),
		DisabledValue: values.String("goodbye"),
		Rollout:       37,
	}
	snap := testSnapshot()
	entity := entityWith("user-77", nil)

	first := EvaluateFeature(snap, f, entity)
	for i := 0; i < 100; i++ {
		if res := EvaluateFeature(snap, f, entity); res != first {
			t.Fatalf("evaluation not deterministic: %+v vs %+v", res, first)
		}
	}
}

func TestEvaluateFeature_NilEntity(t *testing.T) {
	f := snapshot.Feature{
		ID:            "greeting",
		Kind:          values.KindString,
		Enabled:       true,
		EnabledValue:  values.String("hello"),
		DisabledValue: values.String("goodbye"),
		Rollout:       50,
		Rules: []snapshot.TargetingRule{
			{Order: 1, Segments: []string{"premium"}, Value: values.String("vip")},
		},
	}

	res := EvaluateFeature(testSnapshot(), f, nil)

	// No attributes: no segment matches, and a partial rollout without an
	// entity id excludes.
	if !res.Value.Equal(values.String("goodbye")) || res.Reason != ReasonDefaultRollout {
		t.Errorf("got %v / %v", res.Value, res.Reason)
	}
}

func TestEvaluateProperty(t *testing.T) {
	p := snapshot.Property{
		ID:    "discount",
		Kind:  values.KindNumeric,
		Value: values.Int64(5),
		Rules: []snapshot.TargetingRule{
			{Order: 1, Segments: []string{"premium"}, Value: values.Int64(25)},
		},
	}
	snap := testSnapshot()

	t.Run("segment override", func(t *testing.T) {
		entity := entityWith("user-1", map[string]values.Value{"plan": values.String("gold")})
		res := EvaluateProperty(snap, p, entity)
		if !res.Value.Equal(values.Int64(25)) || res.Reason != ReasonTargetingMatch {
			t.Errorf("got %v / %v", res.Value, res.Reason)
		}
	})

	t.Run("fallback to property value", func(t *testing.T) {
		entity := entityWith("user-1", map[string]values.Value{"plan": values.String("free")})
		res := EvaluateProperty(snap, p, entity)
		if !res.Value.Equal(values.Int64(5)) || res.Reason != ReasonDefault {
			t.Errorf("got %v / %v", res.Value, res.Reason)
		}
	})

	t.Run("rule rollout miss serves property value", func(t *testing.T) {
		gated := p
		gated.Rules = []snapshot.TargetingRule{
			{Order: 1, Segments: []string{"premium"}, Value: values.Int64(25), Rollout: uintPtr(0)},
		}
		entity := entityWith("user-1", map[string]values.Value{"plan": values.String("gold")})
		res := EvaluateProperty(snap, gated, entity)
		if !res.Value.Equal(values.Int64(5)) || res.Reason != ReasonRolloutMiss {
			t.Errorf("got %v / %v", res.Value, res.Reason)
		}
	})
}
