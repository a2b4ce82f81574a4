package hub

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/roach88/briefcase/internal/changeset"
	"github.com/roach88/briefcase/internal/concurrency"
	"github.com/roach88/briefcase/internal/ids"
)

func lockKey(id ids.EntityID) []byte {
	return []byte(prefixLock + id.String())
}

func codeKey(c concurrency.Code) []byte {
	return []byte(prefixCode + c.String())
}

func encodeReplica(r ids.ReplicaID) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(r))
	return buf[:]
}

func ownerOf(txn *badger.Txn, key []byte) (ids.ReplicaID, bool, error) {
	v, ok, err := get(txn, key)
	if err != nil || !ok {
		return 0, false, err
	}
	return ids.ReplicaID(binary.BigEndian.Uint32(v)), true, nil
}

// claim sets every key to replica unless one is owned by another replica.
func (h *Hub) claim(keys [][]byte, replica ids.ReplicaID, conflict error) error {
	return h.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			owner, ok, err := ownerOf(txn, k)
			if err != nil {
				return err
			}
			if ok && owner != replica {
				return fmt.Errorf("%s: %w (replica %d)", k, conflict, owner)
			}
		}
		for _, k := range keys {
			if err := txn.Set(k, encodeReplica(replica)); err != nil {
				return err
			}
		}
		return nil
	})
}

// AcquireLocks locks entities for replica, all-or-nothing.
func (h *Hub) AcquireLocks(ctx context.Context, replica ids.ReplicaID, entities []ids.EntityID) error {
	keys := make([][]byte, len(entities))
	for i, id := range entities {
		keys[i] = lockKey(id)
	}
	if err := h.claim(keys, replica, concurrency.ErrLockConflict); err != nil {
		return fmt.Errorf("acquire locks: %w", err)
	}
	return nil
}

// ReleaseLocks drops every lock replica holds.
func (h *Hub) ReleaseLocks(ctx context.Context, replica ids.ReplicaID) error {
	err := h.db.Update(func(txn *badger.Txn) error {
		prefix := []byte(prefixLock)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)

		var owned [][]byte
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			v, err := it.Item().ValueCopy(nil)
			if err != nil {
				it.Close()
				return err
			}
			if ids.ReplicaID(binary.BigEndian.Uint32(v)) == replica {
				owned = append(owned, it.Item().KeyCopy(nil))
			}
		}
		it.Close()

		for _, k := range owned {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("release locks: %w", err)
	}
	return nil
}

// ReserveCodes reserves codes for replica, all-or-nothing.
func (h *Hub) ReserveCodes(ctx context.Context, replica ids.ReplicaID, codes []concurrency.Code) error {
	keys := make([][]byte, len(codes))
	for i, c := range codes {
		keys[i] = codeKey(c)
	}
	if err := h.claim(keys, replica, concurrency.ErrCodeTaken); err != nil {
		return fmt.Errorf("reserve codes: %w", err)
	}
	return nil
}

// ChangesetApplied releases the locks cs's replica held on the entities cs
// wrote.
func (h *Hub) ChangesetApplied(ctx context.Context, cs *changeset.Changeset) error {
	touched := concurrency.TouchedEntities(cs)
	if len(touched) == 0 {
		return nil
	}
	err := h.db.Update(func(txn *badger.Txn) error {
		for _, id := range touched {
			k := lockKey(id)
			owner, ok, err := ownerOf(txn, k)
			if err != nil {
				return err
			}
			if ok && owner == cs.Replica {
				if err := txn.Delete(k); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("release changeset locks: %w", err)
	}
	return nil
}

// LockOwner returns the replica holding the lock on id.
func (h *Hub) LockOwner(ctx context.Context, id ids.EntityID) (ids.ReplicaID, bool, error) {
	var (
		owner ids.ReplicaID
		ok    bool
	)
	err := h.db.View(func(txn *badger.Txn) error {
		var err error
		owner, ok, err = ownerOf(txn, lockKey(id))
		return err
	})
	return owner, ok, err
}
