package stream

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketStreamSessions = []byte("stream_sessions")

// BoltStore persists Sessions in a single bbolt bucket, grounded on
// rubin-protocol/clients/go/node/store.DB's bolt.Open +
// CreateBucketIfNotExists + Update/View shape. bbolt has no native
// per-key TTL, so expiry is encoded in the stored value, checked on
// Load, and swept on every Save, the same idle-eviction strategy as
// MemoryStore.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (creating if absent) a bbolt database at path and
// ensures the session bucket exists.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("stream: open bbolt: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketStreamSessions)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("stream: create bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close releases the underlying bbolt file handle.
func (b *BoltStore) Close() error {
	return b.db.Close()
}

func (b *BoltStore) Save(_ context.Context, id string, s *Session, ttl time.Duration) error {
	data, err := marshalSnapshot(s)
	if err != nil {
		return fmt.Errorf("stream: marshal session snapshot: %w", err)
	}

	expiresAt := time.Now().Add(ttl).Unix()
	record := make([]byte, 8+len(data))
	binary.BigEndian.PutUint64(record[:8], uint64(expiresAt))
	copy(record[8:], data)

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketStreamSessions)
		now := time.Now().Unix()
		var expired [][]byte
		if err := bucket.ForEach(func(k, v []byte) error {
			if len(v) >= 8 && now > int64(binary.BigEndian.Uint64(v[:8])) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range expired {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return bucket.Put([]byte(id), record)
	})
}

func (b *BoltStore) Load(_ context.Context, id string) (*Session, bool, error) {
	var record []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketStreamSessions).Get([]byte(id))
		if v != nil {
			record = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("stream: bbolt load: %w", err)
	}
	if record == nil {
		return nil, false, nil
	}
	if len(record) < 8 {
		return nil, false, fmt.Errorf("stream: corrupt session record for %q", id)
	}

	expiresAt := int64(binary.BigEndian.Uint64(record[:8]))
	if time.Now().Unix() > expiresAt {
		_ = b.Delete(context.Background(), id)
		return nil, false, nil
	}

	session, err := unmarshalSnapshot(record[8:])
	if err != nil {
		return nil, false, fmt.Errorf("stream: unmarshal session snapshot: %w", err)
	}
	return session, true, nil
}

func (b *BoltStore) Delete(_ context.Context, id string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketStreamSessions).Delete([]byte(id))
	})
}
