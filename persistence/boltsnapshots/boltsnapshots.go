// Package boltsnapshots persists snapshot bytes to a bbolt file,
// grounded on bolt.DB's CreateBucket/PutJSON/GetJSON helpers,
// narrowed from JSON-value storage to raw encoded bytes since
// collab.PersistenceProvider hands us an already-encoded snapshot.
package boltsnapshots

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/chatman-systems/workflowkernel/kernelerrors"
	"github.com/chatman-systems/workflowkernel/snapshot"
)

const bucketName = "snapshots"

// Store implements the snapshot-bytes half of collab.PersistenceProvider
// over a bbolt file.
type Store struct {
	db *bolt.DB
}

// Open opens or creates a bbolt database at path, ensuring the
// snapshots bucket exists.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltsnapshots: open database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltsnapshots: create bucket: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// SaveSnapshotBytes stores encoded snapshot bytes keyed by hash.
func (s *Store) SaveSnapshotBytes(_ context.Context, hash snapshot.Hash, encoded []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		return b.Put(hash[:], encoded)
	})
}

// LoadSnapshotBytes retrieves encoded snapshot bytes keyed by hash.
func (s *Store) LoadSnapshotBytes(_ context.Context, hash snapshot.Hash) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		v := b.Get(hash[:])
		if v == nil {
			return kernelerrors.ErrSnapshotNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListHashes returns every hash currently stored, used by process
// restart to repopulate an in-memory snapshot.Store.
func (s *Store) ListHashes() ([]snapshot.Hash, error) {
	var hashes []snapshot.Hash
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		return b.ForEach(func(k, _ []byte) error {
			var h snapshot.Hash
			if len(k) == len(h) {
				copy(h[:], k)
				hashes = append(hashes, h)
			}
			return nil
		})
	})
	return hashes, err
}
