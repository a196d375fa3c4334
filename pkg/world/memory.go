package world

import (
	"sort"
	"sync"
)

// Memory is a minimal in-process world used by tests, examples and tools.
// It implements Adapter and deliberately recycles destroyed handles, the
// same way a real ECS does, so stale-handle bugs surface instead of hiding.
type Memory struct {
	mu       sync.Mutex
	next     Entity
	free     []Entity
	alive    map[Entity]bool
	parents  map[Entity]Entity
	children map[Entity][]Entity
	data     map[Entity]map[string]Component
	onDeath  []DestroyFunc
}

var _ Adapter = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		next:     1,
		alive:    make(map[Entity]bool),
		parents:  make(map[Entity]Entity),
		children: make(map[Entity][]Entity),
		data:     make(map[Entity]map[string]Component),
	}
}

func (m *Memory) Spawn(parent Entity) Entity {
	m.mu.Lock()
	defer m.mu.Unlock()

	var e Entity
	if n := len(m.free); n > 0 {
		e = m.free[n-1]
		m.free = m.free[:n-1]
	} else {
		e = m.next
		m.next++
	}
	m.alive[e] = true
	m.data[e] = make(map[string]Component)
	if parent != None {
		m.parents[e] = parent
		m.children[parent] = append(m.children[parent], e)
	}
	return e
}

// Destroy removes e and its descendants, firing destruction callbacks
// child-first. Destroyed handles go back on the free list for reuse.
func (m *Memory) Destroy(e Entity) {
	m.mu.Lock()
	doomed := m.collect(e, nil)
	for _, d := range doomed {
		if p, ok := m.parents[d]; ok {
			m.children[p] = remove(m.children[p], d)
		}
		delete(m.alive, d)
		delete(m.parents, d)
		delete(m.children, d)
		delete(m.data, d)
	}
	callbacks := m.onDeath
	m.mu.Unlock()

	for i := len(doomed) - 1; i >= 0; i-- {
		for _, fn := range callbacks {
			fn(doomed[i])
		}
	}

	m.mu.Lock()
	m.free = append(m.free, doomed...)
	m.mu.Unlock()
}

// collect gathers e and its descendants, parents before children.
func (m *Memory) collect(e Entity, acc []Entity) []Entity {
	if !m.alive[e] {
		return acc
	}
	acc = append(acc, e)
	for _, c := range m.children[e] {
		acc = m.collect(c, acc)
	}
	return acc
}

func (m *Memory) Children(e Entity) []Entity {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entity, len(m.children[e]))
	copy(out, m.children[e])
	return out
}

func (m *Memory) Parent(e Entity) Entity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.parents[e]
}

func (m *Memory) Alive(e Entity) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alive[e]
}

func (m *Memory) Components(e Entity, types []string) map[string]Component {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Component, len(types))
	for _, name := range types {
		if c, ok := m.data[e][name]; ok {
			out[name] = c
		}
	}
	return out
}

// Component returns the component of the named type on e regardless of any
// persisted-type set.
func (m *Memory) Component(e Entity, name string) (Component, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.data[e][name]
	return c, ok
}

func (m *Memory) Attach(e Entity, name string, c Component) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[e] == nil {
		m.data[e] = make(map[string]Component)
	}
	m.data[e][name] = c
}

// Detach removes the component of the named type from e.
func (m *Memory) Detach(e Entity, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[e], name)
}

// ComponentNames lists the component type names present on e, sorted.
func (m *Memory) ComponentNames(e Entity) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.data[e]))
	for name := range m.data[e] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Memory) OnDestroy(fn DestroyFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDeath = append(m.onDeath, fn)
}

func remove(s []Entity, e Entity) []Entity {
	for i, v := range s {
		if v == e {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
