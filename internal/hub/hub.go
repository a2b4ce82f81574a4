package hub

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/roach88/briefcase/internal/changeset"
	"github.com/roach88/briefcase/internal/concurrency"
	"github.com/roach88/briefcase/internal/ids"
)

var (
	// ErrNotHead is returned by Push when the changeset's parent is not the
	// newest changeset. Pull and apply first.
	ErrNotHead = errors.New("changeset parent is not the hub head")

	// ErrUnknownChangeset is returned by ChangesetsSince for an id the hub
	// never received.
	ErrUnknownChangeset = errors.New("unknown changeset")

	// ErrReplicasExhausted is returned when every replica id was issued.
	ErrReplicasExhausted = errors.New("no replica ids left")
)

var (
	keyHead        = []byte("head")
	keyNextReplica = []byte("replica/next")
	prefixCS       = []byte("cs/")
	prefixCSID     = "csid/"
	prefixLock     = "lock/"
	prefixCode     = "code/"
)

// Hub is a shared changeset chain and coordinator. It is safe for
// concurrent use.
type Hub struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ concurrency.Coordinator = (*Hub)(nil)

// Open opens or creates a hub.
func Open(cfg Config) (*Hub, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{db: db, logger: logger}, nil
}

// Close closes the hub database.
func (h *Hub) Close() error {
	return h.db.Close()
}

func seqKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixCS, seq))
}

func get(txn *badger.Txn, key []byte) ([]byte, bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	v, err := item.ValueCopy(nil)
	return v, err == nil, err
}

func headOf(txn *badger.Txn) (string, error) {
	v, _, err := get(txn, keyHead)
	return string(v), err
}

func seqOf(txn *badger.Txn, id string) (uint64, bool, error) {
	v, ok, err := get(txn, []byte(prefixCSID+id))
	if err != nil || !ok {
		return 0, false, err
	}
	return binary.BigEndian.Uint64(v), true, nil
}

// Head returns the id of the newest changeset, "" when the hub is empty.
func (h *Hub) Head(ctx context.Context) (string, error) {
	var head string
	err := h.db.View(func(txn *badger.Txn) error {
		var err error
		head, err = headOf(txn)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("read hub head: %w", err)
	}
	return head, nil
}

// Push appends cs to the chain. cs.Parent must be the current head.
// Pushing the changeset that is already the head again is a no-op, so a
// push whose acknowledgement was lost can be retried.
func (h *Hub) Push(ctx context.Context, cs *changeset.Changeset) error {
	if err := changeset.Verify(cs); err != nil {
		return fmt.Errorf("push: %w", err)
	}
	data, err := json.Marshal(cs)
	if err != nil {
		return fmt.Errorf("push: encode changeset: %w", err)
	}

	duplicate := false
	err = h.db.Update(func(txn *badger.Txn) error {
		head, err := headOf(txn)
		if err != nil {
			return err
		}
		if head == cs.ID {
			duplicate = true
			return nil
		}
		if cs.Parent != head {
			return fmt.Errorf("%w: parent %s, head %s", ErrNotHead, changeset.Short(cs.Parent), changeset.Short(head))
		}

		var seq uint64
		if head != "" {
			prev, _, err := seqOf(txn, head)
			if err != nil {
				return err
			}
			seq = prev + 1
		}
		var seqBytes [8]byte
		binary.BigEndian.PutUint64(seqBytes[:], seq)

		if err := txn.Set(seqKey(seq), data); err != nil {
			return err
		}
		if err := txn.Set([]byte(prefixCSID+cs.ID), seqBytes[:]); err != nil {
			return err
		}
		return txn.Set(keyHead, []byte(cs.ID))
	})
	if err != nil {
		return fmt.Errorf("push %s: %w", changeset.Short(cs.ID), err)
	}
	if !duplicate {
		h.logger.Info("changeset pushed to hub", "changeset_id", changeset.Short(cs.ID), "replica_id", cs.Replica)
	}
	return nil
}

// ChangesetsSince returns the changesets pushed after id, oldest first.
// An empty id returns the whole chain.
func (h *Hub) ChangesetsSince(ctx context.Context, id string) ([]*changeset.Changeset, error) {
	var out []*changeset.Changeset
	err := h.db.View(func(txn *badger.Txn) error {
		start := seqKey(0)
		if id != "" {
			seq, ok, err := seqOf(txn, id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w %s", ErrUnknownChangeset, changeset.Short(id))
			}
			start = seqKey(seq + 1)
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefixCS
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(start); it.ValidForPrefix(prefixCS); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			cs, err := decodeChangeset(v)
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, cs)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("changesets since %s: %w", changeset.Short(id), err)
	}
	return out, nil
}

func decodeChangeset(data []byte) (*changeset.Changeset, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var cs changeset.Changeset
	if err := dec.Decode(&cs); err != nil {
		return nil, err
	}
	if err := changeset.Verify(&cs); err != nil {
		return nil, err
	}
	return &cs, nil
}

// AcquireReplicaID issues a replica id no other caller received. Ids start
// at 1; replica 0 is the unassigned identity.
func (h *Hub) AcquireReplicaID(ctx context.Context) (ids.ReplicaID, error) {
	var issued ids.ReplicaID
	err := h.db.Update(func(txn *badger.Txn) error {
		v, ok, err := get(txn, keyNextReplica)
		if err != nil {
			return err
		}
		next := uint32(1)
		if ok {
			next = binary.BigEndian.Uint32(v)
		}
		if next == 0 {
			return ErrReplicasExhausted
		}
		issued = ids.ReplicaID(next)

		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], next+1)
		return txn.Set(keyNextReplica, buf[:])
	})
	if err != nil {
		return 0, fmt.Errorf("acquire replica id: %w", err)
	}
	h.logger.Info("replica id issued", "replica_id", issued)
	return issued, nil
}
