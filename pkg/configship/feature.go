package configship

import (
	"github.com/TimurManjosov/configship/internal/engine"
	"github.com/TimurManjosov/configship/internal/snapshot"
)

// Feature is an evaluation handle for one feature flag, pinned to the
// snapshot it was obtained from.
type Feature struct {
	snap *snapshot.Snapshot
	def  snapshot.Feature
}

// Name returns the full name of the feature.
func (f *Feature) Name() string { return f.def.Name }

// ID returns the feature id.
func (f *Feature) ID() string { return f.def.ID }

// Kind returns the declared value kind of the feature.
func (f *Feature) Kind() Kind { return f.def.Kind }

// IsEnabled reports whether the feature toggle is on. Disabled features are
// never evaluated against targeting rules and always return the disabled
// value.
func (f *Feature) IsEnabled() bool { return f.def.Enabled }

// GetValue evaluates the feature for the given entity.
func (f *Feature) GetValue(entity Entity) (Value, error) {
	res := engine.EvaluateFeature(f.snap, f.def, entity)
	return res.Value, nil
}

// GetCurrentValue returns the feature's value ignoring entity-specific
// targeting: the enabled value when the toggle is on, the disabled value
// otherwise.
func (f *Feature) GetCurrentValue() (Value, error) {
	if f.def.Enabled {
		return f.def.EnabledValue, nil
	}
	return f.def.DisabledValue, nil
}
