// Package world defines the boundary between the persistence layer and a
// live ECS world. The world itself (entity allocation, system scheduling,
// queries) lives elsewhere; persistence only needs the narrow surface below.
package world

// Entity is a live, process-local entity handle. Handles are ephemeral: the
// world is free to reuse a handle after the entity it referred to has been
// destroyed, so a handle must never be stored durably or used to derive a
// durable id.
type Entity uint64

// None is the null handle. Spawn(None) creates a root entity.
const None Entity = 0

// Component is one typed piece of data attached to a live entity. Its
// concrete type is whatever the codec registered for its type name works
// with.
type Component any

// DestroyFunc is invoked with the handle of an entity right before the world
// reuses or discards it.
type DestroyFunc func(Entity)

// Adapter is the live-world surface consumed by the persistence engine.
// Implementations are expected to be driven from the world's own update
// context; the engine never calls back into the adapter concurrently within
// a single Save or Load.
type Adapter interface {
	// Children returns the direct children of e, in a stable order.
	Children(e Entity) []Entity

	// Components returns the components attached to e whose type names are
	// in types, keyed by type name. Components outside the set are not
	// reported even if present on the entity.
	Components(e Entity, types []string) map[string]Component

	// Spawn creates a new live entity, as a child of parent unless parent
	// is None.
	Spawn(parent Entity) Entity

	// Attach sets the component of the named type on e, replacing any
	// existing component of that type.
	Attach(e Entity, name string, c Component)

	// OnDestroy registers fn to be called whenever a live entity is
	// destroyed. The persistence layer uses this to drop the handle's
	// durable binding before the handle can be recycled.
	OnDestroy(fn DestroyFunc)
}
