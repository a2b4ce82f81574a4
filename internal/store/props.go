package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/briefcase/internal/ids"
)

// Property names in NamespaceCore.
const (
	NamespaceCore = "briefcase"

	PropProfileVersion   = "profile_version"
	PropGUID             = "guid"
	PropReplicaID        = "replica_id"
	PropName             = "name"
	PropGlobalOrigin     = "global_origin"
	PropSpatialReference = "spatial_reference"
)

// Prop reads a property. ok is false when it was never set.
func (c *Conn) Prop(ctx context.Context, namespace, name string) (value string, ok bool, err error) {
	err = c.q.QueryRowContext(ctx, `
		SELECT value FROM props WHERE namespace = ? AND name = ?
	`, namespace, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read prop %s.%s: %w", namespace, name, err)
	}
	return value, true, nil
}

// SetProp inserts or replaces a property.
func (c *Conn) SetProp(ctx context.Context, namespace, name, value string) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO props (namespace, name, value) VALUES (?, ?, ?)
		ON CONFLICT(namespace, name) DO UPDATE SET value = excluded.value
	`, namespace, name, value)
	if err != nil {
		return fmt.Errorf("write prop %s.%s: %w", namespace, name, err)
	}
	return nil
}

// DeleteProp removes a property; deleting a missing property is not an error.
func (c *Conn) DeleteProp(ctx context.Context, namespace, name string) error {
	if _, err := c.q.ExecContext(ctx, `
		DELETE FROM props WHERE namespace = ? AND name = ?
	`, namespace, name); err != nil {
		return fmt.Errorf("delete prop %s.%s: %w", namespace, name, err)
	}
	return nil
}

// ReplicaID reads the persisted replica identity. Repositories that never
// stored one are Unassigned.
func (c *Conn) ReplicaID(ctx context.Context) (ids.ReplicaID, error) {
	raw, ok, err := c.Prop(ctx, NamespaceCore, PropReplicaID)
	if err != nil || !ok {
		return ids.Unassigned, err
	}
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("read replica id: %w", err)
	}
	return ids.ReplicaID(n), nil
}

// SetReplicaID persists the replica identity.
func (c *Conn) SetReplicaID(ctx context.Context, r ids.ReplicaID) error {
	return c.SetProp(ctx, NamespaceCore, PropReplicaID, strconv.FormatUint(uint64(r), 10))
}
