package world

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpawnHierarchy(t *testing.T) {
	m := NewMemory()
	root := m.Spawn(None)
	a := m.Spawn(root)
	b := m.Spawn(root)

	require.Equal(t, []Entity{a, b}, m.Children(root))
	require.Equal(t, root, m.Parent(a))
	require.Equal(t, None, m.Parent(root))
}

func TestComponentsRestrictedToSet(t *testing.T) {
	m := NewMemory()
	e := m.Spawn(None)
	m.Attach(e, "pos", "3,4")
	m.Attach(e, "secret", "xyz")

	got := m.Components(e, []string{"pos", "vel"})
	require.Equal(t, map[string]Component{"pos": "3,4"}, got)
}

func TestDestroyCascadesAndNotifies(t *testing.T) {
	m := NewMemory()
	var destroyed []Entity
	m.OnDestroy(func(e Entity) { destroyed = append(destroyed, e) })

	root := m.Spawn(None)
	child := m.Spawn(root)
	grandchild := m.Spawn(child)
	other := m.Spawn(None)

	m.Destroy(root)

	require.ElementsMatch(t, []Entity{root, child, grandchild}, destroyed)
	require.False(t, m.Alive(root))
	require.False(t, m.Alive(grandchild))
	require.True(t, m.Alive(other))
}

func TestHandleRecycling(t *testing.T) {
	m := NewMemory()
	e := m.Spawn(None)
	m.Attach(e, "pos", "1,1")
	m.Destroy(e)

	// The freed handle comes back for an unrelated entity, with no leftover
	// component data.
	e2 := m.Spawn(None)
	require.Equal(t, e, e2)
	_, ok := m.Component(e2, "pos")
	require.False(t, ok)
}

func TestDetach(t *testing.T) {
	m := NewMemory()
	e := m.Spawn(None)
	m.Attach(e, "pos", "1,1")
	m.Detach(e, "pos")
	require.Empty(t, m.ComponentNames(e))
}
