package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/briefcase/internal/changeset"
	"github.com/roach88/briefcase/internal/ids"
)

// LocalTxn is a committed local transaction that has not been folded into
// a changeset yet.
type LocalTxn struct {
	Seq         int64
	Description string
	Ops         []changeset.Op
}

// AppliedChangeset is one link of the repository's changeset chain.
type AppliedChangeset struct {
	Seq         int64
	ID          string
	Parent      string
	Replica     ids.ReplicaID
	Description string
}

// AppendLocalTxn records ops committed by a local save.
func (c *Conn) AppendLocalTxn(ctx context.Context, description string, ops []changeset.Op) error {
	data, err := json.Marshal(ops)
	if err != nil {
		return fmt.Errorf("marshal local txn: %w", err)
	}
	if _, err := c.q.ExecContext(ctx, `
		INSERT INTO local_txns (description, ops) VALUES (?, ?)
	`, description, string(data)); err != nil {
		return fmt.Errorf("append local txn: %w", err)
	}
	return nil
}

// LocalTxns returns pending local transactions in commit order.
func (c *Conn) LocalTxns(ctx context.Context) ([]LocalTxn, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT seq, description, ops FROM local_txns ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query local txns: %w", err)
	}
	defer rows.Close()

	txns := []LocalTxn{}
	for rows.Next() {
		var t LocalTxn
		var raw string
		if err := rows.Scan(&t.Seq, &t.Description, &raw); err != nil {
			return nil, fmt.Errorf("scan local txn: %w", err)
		}
		// UseNumber keeps integers exact on the way back in.
		dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
		dec.UseNumber()
		if err := dec.Decode(&t.Ops); err != nil {
			return nil, fmt.Errorf("decode local txn %d: %w", t.Seq, err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate local txns: %w", err)
	}
	return txns, nil
}

// DeleteLocalTxns removes local transactions up to and including seq.
func (c *Conn) DeleteLocalTxns(ctx context.Context, throughSeq int64) error {
	if _, err := c.q.ExecContext(ctx, `
		DELETE FROM local_txns WHERE seq <= ?
	`, throughSeq); err != nil {
		return fmt.Errorf("delete local txns: %w", err)
	}
	return nil
}

// LastApplied returns the id of the newest changeset in the chain, "" for
// a repository that has none. Implements changeset.Target.
func (c *Conn) LastApplied(ctx context.Context) (string, error) {
	var id string
	err := c.q.QueryRowContext(ctx, `
		SELECT id FROM applied_changesets ORDER BY seq DESC LIMIT 1
	`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read last applied changeset: %w", err)
	}
	return id, nil
}

// RecordApplied appends cs to the chain. Implements changeset.ApplyTx.
func (c *Conn) RecordApplied(ctx context.Context, cs *changeset.Changeset) error {
	if _, err := c.q.ExecContext(ctx, `
		INSERT INTO applied_changesets (id, parent, replica_id, description)
		VALUES (?, ?, ?, ?)
	`, cs.ID, cs.Parent, int64(cs.Replica), cs.Description); err != nil {
		return fmt.Errorf("record changeset %s: %w", changeset.Short(cs.ID), err)
	}
	return nil
}

// AppliedChangesets returns the chain oldest first.
func (c *Conn) AppliedChangesets(ctx context.Context) ([]AppliedChangeset, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT seq, id, parent, replica_id, description
		FROM applied_changesets ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query applied changesets: %w", err)
	}
	defer rows.Close()

	out := []AppliedChangeset{}
	for rows.Next() {
		var a AppliedChangeset
		var replica int64
		if err := rows.Scan(&a.Seq, &a.ID, &a.Parent, &replica, &a.Description); err != nil {
			return nil, fmt.Errorf("scan applied changeset: %w", err)
		}
		a.Replica = ids.ReplicaID(replica)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied changesets: %w", err)
	}
	return out, nil
}
