package configship

import (
	"github.com/TimurManjosov/configship/internal/engine"
	"github.com/TimurManjosov/configship/internal/snapshot"
)

// Property is an evaluation handle for one property, pinned to the snapshot
// it was obtained from. Properties are the non-boolean use case of the same
// engine: typed configuration values targeted per entity.
type Property struct {
	snap *snapshot.Snapshot
	def  snapshot.Property
}

// Name returns the full name of the property.
func (p *Property) Name() string { return p.def.Name }

// ID returns the property id.
func (p *Property) ID() string { return p.def.ID }

// Kind returns the declared value kind of the property.
func (p *Property) Kind() Kind { return p.def.Kind }

// GetValue evaluates the property for the given entity.
func (p *Property) GetValue(entity Entity) (Value, error) {
	res := engine.EvaluateProperty(p.snap, p.def, entity)
	return res.Value, nil
}

// GetCurrentValue returns the property's configured value, ignoring
// entity-specific targeting.
func (p *Property) GetCurrentValue() (Value, error) {
	return p.def.Value, nil
}
