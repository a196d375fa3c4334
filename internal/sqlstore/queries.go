package sqlstore

import (
	"context"
	"database/sql"
	"strings"
)

// Querier is the subset of *sql.Tx and *sql.DB the row operations need.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// EntityRow is one durable entity: its id and optional parent id.
type EntityRow struct {
	ID     int64
	Parent sql.NullInt64
}

// InsertEntity creates a fresh entity row and returns its allocated id.
func InsertEntity(ctx context.Context, q Querier, parent *int64) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`INSERT INTO entity (parent) VALUES (?) RETURNING id`, nullable(parent),
	).Scan(&id)
	return id, err
}

// UpsertEntity ensures the entity row exists with the given parent,
// updating the parent pointer on an already-durable entity.
func UpsertEntity(ctx context.Context, q Querier, id int64, parent *int64) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO entity (id, parent) VALUES (?, ?)
		 ON CONFLICT (id) DO UPDATE SET parent = excluded.parent`,
		id, nullable(parent),
	)
	return err
}

// EntityExists reports whether the durable id has a row.
func EntityExists(ctx context.Context, q Querier, id int64) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM entity WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// ComponentID resolves the component-type row for name, creating it lazily
// on first persistence. Component rows are never deleted while referenced
// (and in practice never at all; unreferenced type rows are retained).
func ComponentID(ctx context.Context, q Querier, name string) (int64, error) {
	if _, err := q.ExecContext(ctx,
		`INSERT INTO component (name) VALUES (?) ON CONFLICT (name) DO NOTHING`, name,
	); err != nil {
		return 0, err
	}
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM component WHERE name = ?`, name).Scan(&id)
	return id, err
}

// UpsertInstance writes one component payload for one entity. The
// (entity, component) primary key guarantees at most one row per pair;
// a second save overwrites rather than duplicates.
func UpsertInstance(ctx context.Context, q Querier, entity, component int64, data string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO entity_component (entity, component, data) VALUES (?, ?, ?)
		 ON CONFLICT (entity, component) DO UPDATE SET data = excluded.data`,
		entity, component, data,
	)
	return err
}

// InstanceData returns the stored payloads for one entity, keyed by
// component type name.
func InstanceData(ctx context.Context, q Querier, entity int64) (map[string]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT c.name, ec.data
		 FROM entity_component ec
		 INNER JOIN component c ON ec.component = c.id
		 WHERE ec.entity = ?`,
		entity,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	data := make(map[string]string)
	for rows.Next() {
		var name, payload string
		if err := rows.Scan(&name, &payload); err != nil {
			return nil, err
		}
		data[name] = payload
	}
	return data, rows.Err()
}

// DeleteInstances removes the named component rows from one entity.
func DeleteInstances(ctx context.Context, q Querier, entity int64, names []string) error {
	if len(names) == 0 {
		return nil
	}
	args := make([]any, 0, len(names)+1)
	args = append(args, entity)
	for _, name := range names {
		args = append(args, name)
	}
	_, err := q.ExecContext(ctx,
		`DELETE FROM entity_component
		 WHERE entity = ?
		 AND component IN (SELECT id FROM component WHERE name IN (`+placeholders(len(names))+`))`,
		args...,
	)
	return err
}

// Subtree returns root and every entity whose ancestor chain reaches it,
// parents strictly before children, in one recursive query.
func Subtree(ctx context.Context, q Querier, root int64) ([]EntityRow, error) {
	rows, err := q.QueryContext(ctx,
		`WITH RECURSIVE subtree(id, parent, depth) AS (
		     SELECT id, parent, 0 FROM entity WHERE id = ?
		     UNION ALL
		     SELECT e.id, e.parent, s.depth + 1
		     FROM entity e INNER JOIN subtree s ON e.parent = s.id
		 )
		 SELECT id, parent FROM subtree ORDER BY depth, id`,
		root,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EntityRow
	for rows.Next() {
		var r EntityRow
		if err := rows.Scan(&r.ID, &r.Parent); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteEntities removes the entity rows; the declared foreign keys cascade
// to descendants and component rows.
func DeleteEntities(ctx context.Context, q Querier, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := q.ExecContext(ctx,
		`DELETE FROM entity WHERE id IN (`+placeholders(len(ids))+`)`, args...,
	)
	return err
}

// EntitiesWith returns the durable ids of entities carrying a component of
// the given type name, in id order.
func EntitiesWith(ctx context.Context, q Querier, name string) ([]int64, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT ec.entity
		 FROM entity_component ec
		 INNER JOIN component c ON ec.component = c.id
		 WHERE c.name = ?
		 ORDER BY ec.entity`,
		name,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nullable(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
