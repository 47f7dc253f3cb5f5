package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	entriesBucket = []byte("entries")
	orderBucket   = []byte("order")
)

// BoltStore is a durable backend on a bbolt file. Every operation runs in its
// own bolt transaction, which gives the same per-call atomicity as the
// memory store's lock.
//
// Layout:
//   - entries: key -> 8-byte big-endian sequence || encoded value
//   - order:   8-byte big-endian sequence -> key
//
// Bolt iterates keys in byte order, so walking the order bucket yields
// first-insertion order.
type BoltStore struct {
	db    *bolt.DB
	codec ValueCodec
}

var _ Backend = (*BoltStore)(nil)

// OpenBoltStore opens (or creates) the database at path.
func OpenBoltStore(path string, codec ValueCodec) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create directory for %s: %w", ErrStorage, path, err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrStorage, path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{entriesBucket, orderBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	return &BoltStore{db: db, codec: codec}, nil
}

// Close releases the database file.
func (s *BoltStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: close: %w", ErrStorage, err)
	}
	return nil
}

func encodeSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

// splitRecord separates an entries-bucket value into sequence and payload.
func splitRecord(raw []byte) ([]byte, []byte, error) {
	if len(raw) < 8 {
		return nil, nil, fmt.Errorf("%w: corrupt record of %d bytes", ErrStorage, len(raw))
	}
	return raw[:8], raw[8:], nil
}

func (s *BoltStore) decode(payload []byte) (any, error) {
	v, err := s.codec.Unmarshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: decode value: %w", ErrStorage, err)
	}
	return v, nil
}

// Get retrieves the value stored under key.
func (s *BoltStore) Get(key string) (any, error) {
	var payload []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(entriesBucket).Get([]byte(key))
		if raw == nil {
			return fmt.Errorf("%w: %q", ErrKeyNotFound, key)
		}
		_, p, err := splitRecord(raw)
		if err != nil {
			return err
		}
		// Bolt memory is only valid inside the transaction.
		payload = append([]byte(nil), p...)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) || errors.Is(err, ErrStorage) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: get %q: %w", ErrStorage, key, err)
	}
	return s.decode(payload)
}

// Put stores value under key. An existing key keeps its sequence number.
// A value the codec cannot hand back unchanged (an int through JSON, a
// []byte anywhere) is refused with ErrSerialization.
func (s *BoltStore) Put(key string, value any) error {
	payload, err := s.codec.Marshal(value)
	if err != nil {
		return err
	}
	decoded, err := s.codec.Unmarshal(payload)
	if err != nil {
		return err
	}
	if !reflect.DeepEqual(decoded, value) {
		return fmt.Errorf("%w: value of %q (%T) does not survive the value codec", ErrSerialization, key, value)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		entries := tx.Bucket(entriesBucket)
		order := tx.Bucket(orderBucket)

		var seq []byte
		if raw := entries.Get([]byte(key)); raw != nil {
			prev, _, err := splitRecord(raw)
			if err != nil {
				return err
			}
			seq = append([]byte(nil), prev...)
		} else {
			next, err := order.NextSequence()
			if err != nil {
				return err
			}
			seq = encodeSeq(next)
			if err := order.Put(seq, []byte(key)); err != nil {
				return err
			}
		}

		record := make([]byte, 0, len(seq)+len(payload))
		record = append(record, seq...)
		record = append(record, payload...)
		return entries.Put([]byte(key), record)
	})
	if err != nil {
		return fmt.Errorf("%w: put %q: %w", ErrStorage, key, err)
	}
	return nil
}

// Delete removes key and reports whether it existed.
func (s *BoltStore) Delete(key string) (bool, error) {
	var deleted bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		entries := tx.Bucket(entriesBucket)
		raw := entries.Get([]byte(key))
		if raw == nil {
			return nil
		}
		seq, _, err := splitRecord(raw)
		if err != nil {
			return err
		}
		if err := tx.Bucket(orderBucket).Delete(seq); err != nil {
			return err
		}
		if err := entries.Delete([]byte(key)); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: delete %q: %w", ErrStorage, key, err)
	}
	return deleted, nil
}

// Contains reports whether key is present.
func (s *BoltStore) Contains(key string) (bool, error) {
	var exists bool
	err := s.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(entriesBucket).Get([]byte(key)) != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: contains %q: %w", ErrStorage, key, err)
	}
	return exists, nil
}

// Clear drops and recreates both buckets.
func (s *BoltStore) Clear() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{entriesBucket, orderBucket} {
			if err := tx.DeleteBucket(name); err != nil {
				return fmt.Errorf("delete bucket %q: %w", name, err)
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: clear: %w", ErrStorage, err)
	}
	return nil
}

// Keys returns all keys in insertion order.
func (s *BoltStore) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		order := tx.Bucket(orderBucket)
		keys = make([]string, 0, order.Stats().KeyN)
		return order.ForEach(func(_, k []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: keys: %w", ErrStorage, err)
	}
	return keys, nil
}

// Items returns all pairs in insertion order from a single read transaction.
func (s *BoltStore) Items() ([]Item, error) {
	type rawItem struct {
		key     string
		payload []byte
	}

	var raws []rawItem
	err := s.db.View(func(tx *bolt.Tx) error {
		entries := tx.Bucket(entriesBucket)
		return tx.Bucket(orderBucket).ForEach(func(_, k []byte) error {
			raw := entries.Get(k)
			if raw == nil {
				return fmt.Errorf("%w: order index references missing key %q", ErrStorage, k)
			}
			_, p, err := splitRecord(raw)
			if err != nil {
				return err
			}
			raws = append(raws, rawItem{key: string(k), payload: append([]byte(nil), p...)})
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, ErrStorage) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: items: %w", ErrStorage, err)
	}

	items := make([]Item, 0, len(raws))
	for _, r := range raws {
		v, err := s.decode(r.payload)
		if err != nil {
			return nil, err
		}
		items = append(items, Item{Key: r.key, Value: v})
	}
	return items, nil
}

// Size returns the number of stored keys.
func (s *BoltStore) Size() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(entriesBucket).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: size: %w", ErrStorage, err)
	}
	return n, nil
}
