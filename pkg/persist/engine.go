// Package persist is the orchestration core of the persistence bridge: it
// walks live entity subtrees, translates between live handles and durable
// ids, and moves component payloads in and out of the relational store,
// one transactional scope per operation.
package persist

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/worldstore/internal/rowcodec"
	"github.com/zeusync/worldstore/internal/sqlstore"
	"github.com/zeusync/worldstore/pkg/identity"
	"github.com/zeusync/worldstore/pkg/registry"
	"github.com/zeusync/worldstore/pkg/world"
)

// Engine saves, loads and deletes entity subtrees. Every call owns exactly
// one transaction against the store for its duration; nested engine calls
// from inside an open scope are not supported. A failed operation rolls back
// and leaves both the store and the identity mapper exactly as they were.
type Engine struct {
	store   *sqlstore.Store
	reg     *registry.Registry
	ids     *identity.Mapper
	codec   *rowcodec.Codec
	adapter world.Adapter
	log     *zap.Logger
	opts    Options
}

// New wires an engine and subscribes the identity mapper to the world's
// destruction notifications, so recycled handles never alias a stale
// durable id.
func New(store *sqlstore.Store, reg *registry.Registry, ids *identity.Mapper, adapter world.Adapter, opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		store:   store,
		reg:     reg,
		ids:     ids,
		codec:   rowcodec.New(reg),
		adapter: adapter,
		log:     log,
		opts:    opts,
	}
	adapter.OnDestroy(ids.Unbind)
	return e
}

// Mapper exposes the identity mapper, e.g. for LiveOf checks before loading.
func (e *Engine) Mapper() *identity.Mapper { return e.ids }

// Save persists the live subtree rooted at root and returns the durable id
// of the root. types overrides the engine's default persisted-type set for
// this call; components outside the set are skipped even if present.
//
// Save is authoritative over the persisted set for visited entities: a
// pre-existing row whose type is in the set but was not written this call is
// deleted, so stale leftovers from a prior save cannot survive. The whole
// subtree commits or none of it does, and new identity bindings are applied
// only after the commit succeeds.
func (e *Engine) Save(ctx context.Context, root world.Entity, types ...string) (int64, error) {
	set := e.persistSet(types)
	log := e.log.With(zap.String("op", uuid.NewString()), zap.Uint64("root", uint64(root)))

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return 0, storeErr("begin save", err)
	}
	defer tx.Rollback()

	type binding struct {
		live    world.Entity
		durable int64
	}
	var pending []binding

	var walk func(live world.Entity, parent *int64) (int64, error)
	walk = func(live world.Entity, parent *int64) (int64, error) {
		durable, bound := e.ids.DurableOf(live)
		if bound {
			if err := sqlstore.UpsertEntity(ctx, tx, durable, parent); err != nil {
				return 0, storeErr("upsert entity", err)
			}
		} else {
			durable, err = sqlstore.InsertEntity(ctx, tx, parent)
			if err != nil {
				return 0, storeErr("insert entity", err)
			}
			pending = append(pending, binding{live: live, durable: durable})
		}

		existing, err := sqlstore.InstanceData(ctx, tx, durable)
		if err != nil {
			return 0, storeErr("fetch components", err)
		}

		comps := e.adapter.Components(live, set)
		written := make(map[string]bool, len(comps))
		for _, name := range sortedKeys(comps) {
			payload, err := e.codec.Encode(live, name, comps[name])
			if err != nil {
				return 0, err
			}
			written[name] = true
			if old, ok := existing[name]; ok && rowcodec.Digest(old) == rowcodec.Digest(payload) {
				continue
			}
			cid, err := sqlstore.ComponentID(ctx, tx, name)
			if err != nil {
				return 0, storeErr("resolve component type", err)
			}
			if err := sqlstore.UpsertInstance(ctx, tx, durable, cid, payload); err != nil {
				return 0, storeErr("upsert component", err)
			}
		}

		// Reconcile: drop rows in the persisted set that this save no
		// longer produced.
		var stale []string
		for _, name := range set {
			if _, ok := existing[name]; ok && !written[name] {
				stale = append(stale, name)
			}
		}
		if err := sqlstore.DeleteInstances(ctx, tx, durable, stale); err != nil {
			return 0, storeErr("reconcile components", err)
		}

		for _, child := range e.adapter.Children(live) {
			if _, err := walk(child, &durable); err != nil {
				return 0, err
			}
		}
		return durable, nil
	}

	rootID, err := walk(root, nil)
	if err != nil {
		log.Debug("save aborted", zap.Error(err))
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, storeErr("commit save", err)
	}
	for _, b := range pending {
		if err := e.ids.Bind(b.live, b.durable); err != nil {
			return 0, err
		}
	}
	log.Debug("saved subtree", zap.Int64("durable", rootID), zap.Int("new_entities", len(pending)))
	return rootID, nil
}

// SaveMany saves several disjoint subtrees from independent goroutines, one
// transaction each. Overlapping subtrees are the caller's mistake; nothing
// beyond the store's transactional isolation protects them.
func (e *Engine) SaveMany(ctx context.Context, roots []world.Entity, types ...string) (map[world.Entity]int64, error) {
	var mu sync.Mutex
	out := make(map[world.Entity]int64, len(roots))

	g, ctx := errgroup.WithContext(ctx)
	for _, root := range roots {
		root := root
		g.Go(func() error {
			id, err := e.Save(ctx, root, types...)
			if err != nil {
				return err
			}
			mu.Lock()
			out[root] = id
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Load reconstructs the durable entity subtree rooted at id in the live
// world: one fresh live handle per durable entity, parents instantiated
// before children, each bound in the identity mapper, components decoded and
// attached. Returns the root's live handle.
//
// Loading the same durable id twice produces a second, independent live
// instantiation; the newest handle takes over the durable binding. Callers
// who want at-most-one should check Mapper().LiveOf first.
func (e *Engine) Load(ctx context.Context, id int64) (world.Entity, error) {
	rows, err := e.fetchSubtree(ctx, id)
	if err != nil {
		return world.None, err
	}
	return e.instantiate(rows)
}

// LoadAll loads every subtree rooted at an entity carrying the AutoLoad
// marker and returns their root handles.
func (e *Engine) LoadAll(ctx context.Context) ([]world.Entity, error) {
	ids, err := e.AutoLoadRoots(ctx)
	if err != nil {
		return nil, err
	}
	roots := make([]world.Entity, 0, len(ids))
	for _, id := range ids {
		live, err := e.Load(ctx, id)
		if err != nil {
			return roots, err
		}
		roots = append(roots, live)
	}
	return roots, nil
}

// AutoLoadRoots lists the durable ids marked with the AutoLoad component.
func (e *Engine) AutoLoadRoots(ctx context.Context) ([]int64, error) {
	ids, err := sqlstore.EntitiesWith(ctx, e.store.DB(), AutoLoadName)
	if err != nil {
		return nil, storeErr("query autoload roots", err)
	}
	return ids, nil
}

// loadedEntity is one durable row with its decoded components, ready to be
// applied to the world after the read transaction closed.
type loadedEntity struct {
	sqlstore.EntityRow
	comps map[string]world.Component
}

// fetchSubtree reads and decodes the whole subtree inside one transaction.
// Decoding happens before any world mutation, so a strict-mode abort leaves
// the live world untouched.
func (e *Engine) fetchSubtree(ctx context.Context, id int64) ([]loadedEntity, error) {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return nil, storeErr("begin load", err)
	}
	defer tx.Rollback()

	rows, err := sqlstore.Subtree(ctx, tx, id)
	if err != nil {
		return nil, storeErr("collect subtree", err)
	}
	if len(rows) == 0 {
		return nil, ErrMissingEntity
	}

	out := make([]loadedEntity, 0, len(rows))
	for _, row := range rows {
		data, err := sqlstore.InstanceData(ctx, tx, row.ID)
		if err != nil {
			return nil, storeErr("fetch components", err)
		}
		le := loadedEntity{EntityRow: row, comps: make(map[string]world.Component, len(data))}
		for name, payload := range data {
			comp, err := e.codec.Decode(row.ID, name, payload)
			if err != nil {
				if e.opts.Mode == LoadLenient && errors.Is(err, registry.ErrUnknownComponent) {
					e.log.Warn("skipping unknown component type",
						zap.Int64("durable", row.ID), zap.String("component", name))
					continue
				}
				return nil, err
			}
			le.comps[name] = comp
		}
		out = append(out, le)
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr("commit load", err)
	}
	return out, nil
}

// instantiate spawns the loaded rows root-first so parent handles exist
// before their children reference them.
func (e *Engine) instantiate(rows []loadedEntity) (world.Entity, error) {
	liveOf := make(map[int64]world.Entity, len(rows))
	for _, le := range rows {
		parent := world.None
		if le.Parent.Valid {
			parent = liveOf[le.Parent.Int64]
		}
		live := e.adapter.Spawn(parent)
		liveOf[le.ID] = live
		e.ids.Rebind(live, le.ID)
		for _, name := range sortedKeys(le.comps) {
			e.adapter.Attach(live, name, le.comps[name])
		}
		e.log.Debug("loaded entity",
			zap.Int64("durable", le.ID), zap.Uint64("live", uint64(live)))
	}
	return liveOf[rows[0].ID], nil
}

// Delete removes the durable entity; the store's foreign keys cascade to
// every descendant entity and all their component rows. The engine's only
// extra duty is unbinding the affected durable ids, so still-alive handles
// stop reporting ids the cascade removed. Deleting an id with no row is a
// no-op.
func (e *Engine) Delete(ctx context.Context, id int64) error {
	return e.DeleteMany(ctx, []int64{id})
}

// DeleteMany removes several durable entities in one transaction.
func (e *Engine) DeleteMany(ctx context.Context, ids []int64) error {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return storeErr("begin delete", err)
	}
	defer tx.Rollback()

	// Collect before deleting: the cascade won't tell us which ids it took.
	var doomed []int64
	for _, id := range ids {
		rows, err := sqlstore.Subtree(ctx, tx, id)
		if err != nil {
			return storeErr("collect subtree", err)
		}
		for _, row := range rows {
			doomed = append(doomed, row.ID)
		}
	}
	if err := sqlstore.DeleteEntities(ctx, tx, ids); err != nil {
		return storeErr("delete entities", err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit delete", err)
	}
	for _, id := range doomed {
		e.ids.UnbindDurable(id)
	}
	e.log.Debug("deleted entities", zap.Int("count", len(doomed)))
	return nil
}

// SaveComponent writes the current value of one component on an
// already-durable entity without walking its subtree. The component must be
// present on the live entity and its type registered.
func (e *Engine) SaveComponent(ctx context.Context, live world.Entity, name string) error {
	durable, ok := e.ids.DurableOf(live)
	if !ok {
		return ErrNotPersisted
	}
	comps := e.adapter.Components(live, []string{name})
	comp, ok := comps[name]
	if !ok {
		return ErrNotPersisted
	}
	payload, err := e.codec.Encode(live, name, comp)
	if err != nil {
		return err
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return storeErr("begin save component", err)
	}
	defer tx.Rollback()

	cid, err := sqlstore.ComponentID(ctx, tx, name)
	if err != nil {
		return storeErr("resolve component type", err)
	}
	if err := sqlstore.UpsertInstance(ctx, tx, durable, cid, payload); err != nil {
		return storeErr("upsert component", err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit save component", err)
	}
	return nil
}

// DeleteComponent removes one component row from an already-durable entity.
func (e *Engine) DeleteComponent(ctx context.Context, live world.Entity, name string) error {
	durable, ok := e.ids.DurableOf(live)
	if !ok {
		return ErrNotPersisted
	}
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return storeErr("begin delete component", err)
	}
	defer tx.Rollback()

	if err := sqlstore.DeleteInstances(ctx, tx, durable, []string{name}); err != nil {
		return storeErr("delete component", err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit delete component", err)
	}
	return nil
}

func (e *Engine) persistSet(override []string) []string {
	if len(override) > 0 {
		return override
	}
	return e.opts.Components
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
