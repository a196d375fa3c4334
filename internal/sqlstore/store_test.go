package sqlstore

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	store, err := Open(Options{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func count(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

func TestInsertAndUpsertEntity(t *testing.T) {
	ctx := context.Background()
	store := openTest(t)

	root, err := InsertEntity(ctx, store.DB(), nil)
	require.NoError(t, err)
	child, err := InsertEntity(ctx, store.DB(), &root)
	require.NoError(t, err)
	require.NotEqual(t, root, child)

	// Reparent the child under a new root via upsert.
	root2, err := InsertEntity(ctx, store.DB(), nil)
	require.NoError(t, err)
	require.NoError(t, UpsertEntity(ctx, store.DB(), child, &root2))

	rows, err := Subtree(ctx, store.DB(), root2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, root2, rows[0].ID)
	require.Equal(t, child, rows[1].ID)

	ok, err := EntityExists(ctx, store.DB(), root)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = EntityExists(ctx, store.DB(), 9999)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestComponentIDIsLazyAndStable(t *testing.T) {
	ctx := context.Background()
	store := openTest(t)

	first, err := ComponentID(ctx, store.DB(), "test.Pos")
	require.NoError(t, err)
	second, err := ComponentID(ctx, store.DB(), "test.Pos")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, count(t, store.DB(), "component"))
}

func TestUpsertInstanceOverwrites(t *testing.T) {
	ctx := context.Background()
	store := openTest(t)

	e, err := InsertEntity(ctx, store.DB(), nil)
	require.NoError(t, err)
	cid, err := ComponentID(ctx, store.DB(), "test.Pos")
	require.NoError(t, err)

	require.NoError(t, UpsertInstance(ctx, store.DB(), e, cid, "3,4"))
	require.NoError(t, UpsertInstance(ctx, store.DB(), e, cid, "3,5"))

	data, err := InstanceData(ctx, store.DB(), e)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"test.Pos": "3,5"}, data)
	require.Equal(t, 1, count(t, store.DB(), "entity_component"))
}

func TestSubtreeOrderParentsFirst(t *testing.T) {
	ctx := context.Background()
	store := openTest(t)

	root, _ := InsertEntity(ctx, store.DB(), nil)
	a, _ := InsertEntity(ctx, store.DB(), &root)
	b, _ := InsertEntity(ctx, store.DB(), &root)
	aa, _ := InsertEntity(ctx, store.DB(), &a)

	rows, err := Subtree(ctx, store.DB(), root)
	require.NoError(t, err)

	depth := make(map[int64]int, len(rows))
	for i, row := range rows {
		depth[row.ID] = i
	}
	require.Less(t, depth[root], depth[a])
	require.Less(t, depth[root], depth[b])
	require.Less(t, depth[a], depth[aa])
}

func TestSubtreeOfMissingRootIsEmpty(t *testing.T) {
	ctx := context.Background()
	store := openTest(t)

	rows, err := Subtree(ctx, store.DB(), 12345)
	require.NoError(t, err)
	require.Empty(t, rows)
}

// The cascade declared in the schema must remove descendant entities and
// every component row they own; the engine relies on this instead of
// re-implementing recursive delete.
func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	store := openTest(t)

	root, _ := InsertEntity(ctx, store.DB(), nil)
	child, _ := InsertEntity(ctx, store.DB(), &root)
	grandchild, _ := InsertEntity(ctx, store.DB(), &child)
	cid, _ := ComponentID(ctx, store.DB(), "test.Pos")
	require.NoError(t, UpsertInstance(ctx, store.DB(), root, cid, "0,0"))
	require.NoError(t, UpsertInstance(ctx, store.DB(), grandchild, cid, "1,1"))

	require.NoError(t, DeleteEntities(ctx, store.DB(), []int64{root}))

	require.Equal(t, 0, count(t, store.DB(), "entity"))
	require.Equal(t, 0, count(t, store.DB(), "entity_component"))
	// Component type rows are never garbage-collected.
	require.Equal(t, 1, count(t, store.DB(), "component"))
}

func TestDeleteInstancesByName(t *testing.T) {
	ctx := context.Background()
	store := openTest(t)

	e, _ := InsertEntity(ctx, store.DB(), nil)
	pos, _ := ComponentID(ctx, store.DB(), "test.Pos")
	vel, _ := ComponentID(ctx, store.DB(), "test.Vel")
	require.NoError(t, UpsertInstance(ctx, store.DB(), e, pos, "1,1"))
	require.NoError(t, UpsertInstance(ctx, store.DB(), e, vel, "2,2"))

	require.NoError(t, DeleteInstances(ctx, store.DB(), e, []string{"test.Pos"}))

	data, err := InstanceData(ctx, store.DB(), e)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"test.Vel": "2,2"}, data)
}

func TestEntitiesWith(t *testing.T) {
	ctx := context.Background()
	store := openTest(t)

	a, _ := InsertEntity(ctx, store.DB(), nil)
	b, _ := InsertEntity(ctx, store.DB(), nil)
	_, _ = InsertEntity(ctx, store.DB(), nil)
	marker, _ := ComponentID(ctx, store.DB(), "test.Marker")
	require.NoError(t, UpsertInstance(ctx, store.DB(), a, marker, "{}"))
	require.NoError(t, UpsertInstance(ctx, store.DB(), b, marker, "{}"))

	ids, err := EntitiesWith(ctx, store.DB(), "test.Marker")
	require.NoError(t, err)
	require.Equal(t, []int64{a, b}, ids)
}

func TestTransactionRollbackLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	store := openTest(t)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	_, err = InsertEntity(ctx, tx, nil)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	require.Equal(t, 0, count(t, store.DB(), "entity"))
}
