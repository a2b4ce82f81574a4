package store

import (
	"context"
	"fmt"

	"github.com/roach88/briefcase/internal/profile"
)

// Profile versions of the repository layout:
//
//	4.0.0.0 - base layout (schema.sql)
//	4.0.1.0 - index entities by class
//	4.1.0.0 - entities.federation_guid (write-compat bump: older writers would drop it)
//	4.1.1.0 - index entities by parent
//	4.1.2.0 - index links by source and class
var (
	BaseVersion   = profile.Version{Major: 4}
	LatestVersion = profile.Version{Major: 4, WriteCompat: 1, Minor: 2}
)

// SupportedRange is the range of stored versions this library can open,
// possibly after an upgrade.
func SupportedRange() profile.Range {
	return profile.Range{Min: BaseVersion, Max: LatestVersion}
}

// upgradeStep moves the layout to Version.
type upgradeStep struct {
	Version profile.Version
	SQL     []string
}

var upgradeSteps = []upgradeStep{
	{
		Version: profile.Version{Major: 4, Minor: 1},
		SQL: []string{
			`CREATE INDEX IF NOT EXISTS idx_entities_class ON entities(class_id)`,
		},
	},
	{
		Version: profile.Version{Major: 4, WriteCompat: 1},
		SQL: []string{
			`ALTER TABLE entities ADD COLUMN federation_guid TEXT`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_entities_federation_guid
				ON entities(federation_guid) WHERE federation_guid IS NOT NULL`,
		},
	},
	{
		Version: profile.Version{Major: 4, WriteCompat: 1, Minor: 1},
		SQL: []string{
			`CREATE INDEX IF NOT EXISTS idx_entities_parent ON entities(parent_id)`,
		},
	},
	{
		Version: profile.Version{Major: 4, WriteCompat: 1, Minor: 2},
		SQL: []string{
			`CREATE INDEX IF NOT EXISTS idx_links_source ON links(source_id, class_id)`,
		},
	},
}

// ProfileVersion reads the stored layout version.
func (c *Conn) ProfileVersion(ctx context.Context) (profile.Version, error) {
	raw, ok, err := c.Prop(ctx, NamespaceCore, PropProfileVersion)
	if err != nil {
		return profile.Version{}, fmt.Errorf("read profile version: %w", err)
	}
	if !ok {
		return profile.Version{}, fmt.Errorf("read profile version: %w", ErrNotFound)
	}
	v, err := profile.Parse(raw)
	if err != nil {
		return profile.Version{}, fmt.Errorf("read profile version: %w", err)
	}
	return v, nil
}

func (c *Conn) setProfileVersion(ctx context.Context, v profile.Version) error {
	if err := c.SetProp(ctx, NamespaceCore, PropProfileVersion, v.String()); err != nil {
		return fmt.Errorf("set profile version: %w", err)
	}
	return nil
}

// Upgrade runs, in one transaction, every step above the stored version up
// to and including target, then stamps target. Upgrading to the stored
// version is a no-op; downgrades are rejected.
func (s *Store) Upgrade(ctx context.Context, target profile.Version) error {
	if LatestVersion.Less(target) {
		return fmt.Errorf("upgrade to %s: newer than latest %s", target, LatestVersion)
	}

	tx, err := s.Begin(ctx)
	if err != nil {
		return fmt.Errorf("upgrade to %s: %w", target, err)
	}
	defer tx.Rollback()

	current, err := tx.ProfileVersion(ctx)
	if err != nil {
		return fmt.Errorf("upgrade to %s: %w", target, err)
	}
	if target.Less(current) {
		return fmt.Errorf("upgrade to %s: stored version %s is newer", target, current)
	}
	if current == target {
		return nil
	}

	for _, step := range upgradeSteps {
		if !current.Less(step.Version) || target.Less(step.Version) {
			continue
		}
		for _, stmt := range step.SQL {
			if _, err := tx.tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("upgrade to %s: step %s: %w", target, step.Version, err)
			}
		}
	}

	if err := tx.setProfileVersion(ctx, target); err != nil {
		return fmt.Errorf("upgrade to %s: %w", target, err)
	}
	return tx.Commit()
}

// HasColumn reports whether table has the named column in the current layout.
func (c *Conn) HasColumn(ctx context.Context, table, column string) (bool, error) {
	if _, ok := tableColumns[table]; !ok {
		return false, fmt.Errorf("has column: %w: %q", ErrUnknownTable, table)
	}
	rows, err := c.q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("has column: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name, typ string
			notNull   int
			dflt      any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return false, fmt.Errorf("has column: %w", err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
