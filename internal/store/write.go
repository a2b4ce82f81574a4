package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/briefcase/internal/changeset"
	"github.com/roach88/briefcase/internal/ids"
)

var (
	// ErrUnknownTable is returned for ops naming a table outside the layout.
	ErrUnknownTable = errors.New("unknown table")

	// ErrUnknownColumn is returned for op rows naming a column outside the layout.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrRowNotFound is returned when an update or delete matches no row.
	ErrRowNotFound = errors.New("row not found")
)

// Table names accepted by ApplyOp.
const (
	TableSchemas   = "schemas"
	TableClasses   = "classes"
	TableEntities  = "entities"
	TableLinks     = "links"
	TableCodeSpecs = "code_specs"
	TableResources = "resources"
)

// tableColumns whitelists the writable columns of every id-bearing table.
// Table and column names are interpolated into SQL, so nothing outside this
// map ever reaches a statement.
var tableColumns = map[string]map[string]bool{
	TableSchemas: {
		"name": true, "name_key": true, "alias": true, "version": true,
	},
	TableClasses: {
		"schema_id": true, "name": true, "name_key": true, "kind": true,
		"strategy": true, "base_id": true,
	},
	TableEntities: {
		"class_id": true, "model_id": true, "parent_id": true,
		"code_spec_id": true, "code_scope_id": true, "code_value": true,
		"label": true, "props": true, "federation_guid": true,
	},
	TableLinks: {
		"class_id": true, "source_id": true, "target_id": true,
	},
	TableCodeSpecs: {
		"name": true, "scope_type": true,
	},
	TableResources: {
		"kind": true, "name": true, "data": true,
	},
}

// idTables lists every table whose id is drawn from the replica windows.
var idTables = []string{
	TableSchemas, TableClasses, TableEntities, TableLinks, TableCodeSpecs, TableResources,
}

// ApplyOp writes one row change. Values are normalized with
// changeset.NormalizeValue so local edits and received changesets go
// through the same path.
func (c *Conn) ApplyOp(ctx context.Context, op changeset.Op) error {
	cols, ok := tableColumns[op.Table]
	if !ok {
		return fmt.Errorf("apply op: %w: %q", ErrUnknownTable, op.Table)
	}
	if !op.ID.IsValid() {
		return fmt.Errorf("apply op: %s %s: invalid id", op.Kind, op.Table)
	}

	names, values, err := rowArgs(cols, op.Row)
	if err != nil {
		return fmt.Errorf("apply op: %s %s %s: %w", op.Kind, op.Table, op.ID, err)
	}

	switch op.Kind {
	case changeset.Insert:
		return c.insertRow(ctx, op.Table, op.ID, names, values)
	case changeset.Update:
		return c.updateRow(ctx, op.Table, op.ID, names, values)
	case changeset.Delete:
		return c.deleteRow(ctx, op.Table, op.ID)
	default:
		return fmt.Errorf("apply op: invalid kind %q", op.Kind)
	}
}

// rowArgs validates and normalizes a row, returning columns in sorted order.
func rowArgs(cols map[string]bool, row map[string]any) ([]string, []any, error) {
	names := make([]string, 0, len(row))
	for name := range row {
		if !cols[name] {
			return nil, nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]any, len(names))
	for i, name := range names {
		v, err := changeset.NormalizeValue(name, row[name])
		if err != nil {
			return nil, nil, err
		}
		values[i] = v
	}
	return names, values, nil
}

func (c *Conn) insertRow(ctx context.Context, table string, id ids.EntityID, names []string, values []any) error {
	cols := append([]string{"id"}, names...)
	args := append([]any{int64(id)}, values...)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), placeholders)
	if _, err := c.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s %s: %w", table, id, err)
	}
	return nil
}

func (c *Conn) updateRow(ctx context.Context, table string, id ids.EntityID, names []string, values []any) error {
	if len(names) == 0 {
		return nil
	}
	sets := make([]string, len(names))
	for i, name := range names {
		sets[i] = name + " = ?"
	}
	args := append(values, int64(id))

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(sets, ", "))
	res, err := c.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", table, id, err)
	}
	return expectOneRow(res, "update", table, id)
}

func (c *Conn) deleteRow(ctx context.Context, table string, id ids.EntityID) error {
	res, err := c.q.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), int64(id))
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", table, id, err)
	}
	return expectOneRow(res, "delete", table, id)
}

func expectOneRow(res interface{ RowsAffected() (int64, error) }, verb, table string, id ids.EntityID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s %s: rows affected: %w", verb, table, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s %s: %w", verb, table, id, ErrRowNotFound)
	}
	return nil
}

// Columns returns the writable columns of table in sorted order.
func Columns(table string) []string {
	cols := tableColumns[table]
	out := make([]string, 0, len(cols))
	for c := range cols {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
