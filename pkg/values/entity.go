package values

// Entity is the capability an evaluation caller must provide: a stable id
// used for rollout bucketing plus the attributes targeting rules match on.
// The engine is polymorphic over any implementation.
type Entity interface {
	EntityID() string
	EntityAttributes() map[string]Value
}

// EntityContext is the ready-made Entity implementation. The attribute map is
// copied on construction so one evaluation never observes caller mutation.
type EntityContext struct {
	id    string
	attrs map[string]Value
}

// NewEntityContext builds an EntityContext from an id and attribute map.
func NewEntityContext(id string, attrs map[string]Value) *EntityContext {
	copied := make(map[string]Value, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}
	return &EntityContext{id: id, attrs: copied}
}

func (e *EntityContext) EntityID() string { return e.id }

func (e *EntityContext) EntityAttributes() map[string]Value { return e.attrs }

// Attribute looks up one attribute on an entity. Missing attributes report
// ok=false; targeting conditions treat that as a non-match, never an error.
func Attribute(e Entity, name string) (Value, bool) {
	if e == nil {
		return Value{}, false
	}
	attrs := e.EntityAttributes()
	if attrs == nil {
		return Value{}, false
	}
	v, ok := attrs[name]
	return v, ok
}
