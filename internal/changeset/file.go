package changeset

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Batch is the on-disk form of an ordered changeset sequence.
//
//	changesets:
//	  - id: 5f1c...
//	    parent: ""
//	    replica: 2
//	    ops:
//	      - kind: insert
//	        table: entities
//	        id: 0x20000000001
//	        row: {class_id: 0x15, model_id: 0x10, code_value: Door-1}
type Batch struct {
	Changesets []*Changeset `yaml:"changesets"`
}

// LoadFile reads a YAML batch and verifies every changeset id.
func LoadFile(path string) ([]*Changeset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load changesets: %w", err)
	}
	return Decode(data)
}

// Decode parses a YAML batch and verifies every changeset id.
func Decode(data []byte) ([]*Changeset, error) {
	var b Batch
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("decode changesets: %w", err)
	}
	for i, cs := range b.Changesets {
		if err := Verify(cs); err != nil {
			return nil, fmt.Errorf("decode changesets: entry %d: %w", i, err)
		}
	}
	return b.Changesets, nil
}

// Encode renders changesets as a YAML batch.
func Encode(seq []*Changeset) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(Batch{Changesets: seq}); err != nil {
		return nil, fmt.Errorf("encode changesets: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode changesets: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes changesets to path as a YAML batch.
func WriteFile(path string, seq []*Changeset) error {
	data, err := Encode(seq)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write changesets: %w", err)
	}
	return nil
}
