package changeset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/briefcase/internal/ids"
)

// DomainChangeset prefixes the hashed body. The version suffix allows a
// future algorithm change without colliding with existing ids.
const DomainChangeset = "briefcase/changeset/v1"

// Kind is the row operation of an Op.
type Kind string

const (
	Insert Kind = "insert"
	Update Kind = "update"
	Delete Kind = "delete"
)

// ValidKinds lists the allowed op kinds.
var ValidKinds = map[Kind]bool{
	Insert: true,
	Update: true,
	Delete: true,
}

// Op is a single row change. Row holds column values (without the id) for
// inserts and the changed columns for updates; it is empty for deletes.
type Op struct {
	Kind  Kind           `json:"kind" yaml:"kind"`
	Table string         `json:"table" yaml:"table"`
	ID    ids.EntityID   `json:"id" yaml:"id"`
	Row   map[string]any `json:"row,omitempty" yaml:"row,omitempty"`
}

// Changeset is an ordered, immutable delta produced by one replica.
type Changeset struct {
	ID          string        `json:"id" yaml:"id"`
	Parent      string        `json:"parent" yaml:"parent"`
	Replica     ids.ReplicaID `json:"replica" yaml:"replica"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Ops         []Op          `json:"ops" yaml:"ops"`
}

// New builds a changeset and stamps its content-addressed id.
func New(parent string, replica ids.ReplicaID, description string, ops []Op) (*Changeset, error) {
	cs := &Changeset{
		Parent:      parent,
		Replica:     replica,
		Description: description,
		Ops:         ops,
	}
	id, err := ComputeID(cs)
	if err != nil {
		return nil, err
	}
	cs.ID = id
	return cs, nil
}

// ComputeID hashes everything except the ID field itself.
func ComputeID(cs *Changeset) (string, error) {
	ops := make([]any, len(cs.Ops))
	for i, op := range cs.Ops {
		row := make(map[string]any, len(op.Row))
		for k, v := range op.Row {
			nv, err := NormalizeValue(k, v)
			if err != nil {
				return "", fmt.Errorf("compute changeset id: op %d: %w", i, err)
			}
			row[k] = nv
		}
		ops[i] = map[string]any{
			"kind":  string(op.Kind),
			"table": op.Table,
			"id":    int64(op.ID),
			"row":   row,
		}
	}

	body := map[string]any{
		"parent":      cs.Parent,
		"replica":     int64(cs.Replica),
		"description": cs.Description,
		"ops":         ops,
	}

	canonical, err := marshalCanonical(body)
	if err != nil {
		return "", fmt.Errorf("compute changeset id: %w", err)
	}
	return hashWithDomain(DomainChangeset, canonical), nil
}

// Verify checks the structural validity of cs and that its id matches its body.
func Verify(cs *Changeset) error {
	if cs == nil {
		return fmt.Errorf("verify changeset: nil")
	}
	for i, op := range cs.Ops {
		if !ValidKinds[op.Kind] {
			return fmt.Errorf("verify changeset %s: op %d: invalid kind %q", short(cs.ID), i, op.Kind)
		}
		if op.Table == "" {
			return fmt.Errorf("verify changeset %s: op %d: table is required", short(cs.ID), i)
		}
		if !op.ID.IsValid() {
			return fmt.Errorf("verify changeset %s: op %d: id is required", short(cs.ID), i)
		}
	}
	if cs.ID == "" {
		return fmt.Errorf("verify changeset: id is required")
	}
	want, err := ComputeID(cs)
	if err != nil {
		return err
	}
	if want != cs.ID {
		return fmt.Errorf("verify changeset %s: id does not match content (want %s)", short(cs.ID), short(want))
	}
	return nil
}

// hashWithDomain computes SHA256(domain + 0x00 + data) as hex.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// short abbreviates a changeset id for messages.
func short(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	if id == "" {
		return "<none>"
	}
	return id
}

// Short is the abbreviated form of a changeset id used in logs and reports.
func Short(id string) string {
	return short(id)
}
