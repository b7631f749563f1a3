package badgerq

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/consultwire/consult-server/internal/store"
)

// Queue implements store.OfflineStore on BadgerDB. Entries are keyed by
// (specialist, room) so a repeat enqueue for the same pair overwrites the
// previous payload.
type Queue struct {
	db *badger.DB
}

// New opens a queue backed by a Badger database at path.
func New(path string) (*Queue, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Queue{db: db}, nil
}

// NewInMemory opens a queue with no backing files. Used in tests.
func NewInMemory() (*Queue, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Queue{db: db}, nil
}

// Close closes the underlying database.
func (q *Queue) Close() error {
	return q.db.Close()
}

// Keys carry the specialist id length so an id containing the separator
// cannot prefix-collide with another specialist's entries.
func entryKey(specialistID, roomID string) []byte {
	return fmt.Appendf(nil, "offline:%d:%s:%s", len(specialistID), specialistID, roomID)
}

func specialistPrefix(specialistID string) []byte {
	return fmt.Appendf(nil, "offline:%d:%s:", len(specialistID), specialistID)
}

// Enqueue stores a serialized room-creation payload for an offline specialist.
func (q *Queue) Enqueue(ctx context.Context, specialistID, roomID string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := q.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(specialistID, roomID), payload)
	})
	if err != nil {
		return fmt.Errorf("enqueue offline room: %w", err)
	}
	return nil
}

// DrainAndDelete retrieves and removes every pending payload for the
// specialist in a single transaction, so an entry is never both delivered and
// retained. A retrieval failure is reported as store.ErrIdentityExpired,
// distinct from an empty result, so the caller can trigger re-authentication
// instead of treating it as "nothing pending".
func (q *Queue) DrainAndDelete(ctx context.Context, specialistID string) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrIdentityExpired, err)
	}

	var payloads [][]byte
	prefix := specialistPrefix(specialistID)

	err := q.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)

		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()

			value, err := item.ValueCopy(nil)
			if err != nil {
				it.Close()
				return fmt.Errorf("read entry: %w", err)
			}
			payloads = append(payloads, value)
			keys = append(keys, item.KeyCopy(nil))
		}
		it.Close()

		// Delete only after every entry has been read; the transaction keeps
		// delivery and removal atomic per specialist.
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("delete entry: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: drain offline rooms: %w", store.ErrIdentityExpired, err)
	}

	return payloads, nil
}
