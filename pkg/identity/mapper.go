// Package identity keeps the bidirectional association between live entity
// handles and their durable ids. Live handles are ephemeral and recycled by
// the world; durable ids are the store's stable primary keys. Neither is ever
// derived from the other: this mapper is the only bridge between the two
// identity spaces, scoped to entities that were saved or loaded during the
// current process lifetime.
package identity

import (
	"errors"
	"sync"

	"github.com/zeusync/worldstore/pkg/world"
)

// ErrIdentityConflict is returned by Bind when either side of the requested
// association is already bound to a different counterpart. The mapper state
// is unchanged by the failed attempt.
var ErrIdentityConflict = errors.New("handle or durable id already bound")

// Mapper is safe for concurrent use. The lock is held only across the map
// mutation itself, never across store I/O; save and load paths read or bind
// outside their SQL transactions.
type Mapper struct {
	mu        sync.RWMutex
	liveToDur map[world.Entity]int64
	durToLive map[int64]world.Entity
}

func NewMapper() *Mapper {
	return &Mapper{
		liveToDur: make(map[world.Entity]int64),
		durToLive: make(map[int64]world.Entity),
	}
}

// DurableOf reports the durable id bound to live, if any.
func (m *Mapper) DurableOf(live world.Entity) (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.liveToDur[live]
	return id, ok
}

// LiveOf reports the live handle bound to the durable id, if any.
func (m *Mapper) LiveOf(durable int64) (world.Entity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	live, ok := m.durToLive[durable]
	return live, ok
}

// Bind associates live with durable. Binding an existing pair again is a
// no-op; binding either side to a different counterpart fails with
// ErrIdentityConflict.
func (m *Mapper) Bind(live world.Entity, durable int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.liveToDur[live]; ok && d != durable {
		return ErrIdentityConflict
	}
	if l, ok := m.durToLive[durable]; ok && l != live {
		return ErrIdentityConflict
	}
	m.liveToDur[live] = durable
	m.durToLive[durable] = live
	return nil
}

// Rebind associates live with durable, dropping whatever either side was
// bound to before. Load uses this so the most recently loaded handle owns
// the durable id.
func (m *Mapper) Rebind(live world.Entity, durable int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.liveToDur[live]; ok {
		delete(m.durToLive, d)
	}
	if l, ok := m.durToLive[durable]; ok {
		delete(m.liveToDur, l)
	}
	m.liveToDur[live] = durable
	m.durToLive[durable] = live
}

// Unbind drops the association for a live handle. The world adapter must
// call this (via the destruction callback) when a live entity is destroyed,
// before its handle can be recycled onto an unrelated entity.
func (m *Mapper) Unbind(live world.Entity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.liveToDur[live]; ok {
		delete(m.liveToDur, live)
		delete(m.durToLive, d)
	}
}

// UnbindDurable drops the association for a durable id. Delete uses this for
// every id the cascade removed, so a still-alive handle stops reporting a
// durable id that no longer exists.
func (m *Mapper) UnbindDurable(durable int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.durToLive[durable]; ok {
		delete(m.durToLive, durable)
		delete(m.liveToDur, l)
	}
}

// Len reports the number of live↔durable associations.
func (m *Mapper) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.liveToDur)
}
