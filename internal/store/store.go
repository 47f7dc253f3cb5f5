// Package store contains the core logic for the in-memory key-value store
// and the durable backends built on top of it.
// It is designed to be thread-safe for concurrent access.
package store

import (
	"fmt"
	"sync"

	"github.com/tidwall/btree"
)

// entry holds a stored value and the sequence number that fixes its
// position in iteration order.
type entry struct {
	key   string
	value any
	seq   uint64
}

func bySeq(a, b *entry) bool { return a.seq < b.seq }

// MemoryStore is a thread-safe, insertion-ordered in-memory key-value store.
// A single lock guards both the lookup map and the order index.
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[string]*entry
	order   *btree.BTreeG[*entry]
	nextSeq uint64
}

var _ Backend = (*MemoryStore)(nil)

// NewMemoryStore initializes and returns a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:  make(map[string]*entry),
		order: newOrderIndex(),
	}
}

// newOrderIndex builds an unlocked B-tree; MemoryStore.mu already guards it.
func newOrderIndex() *btree.BTreeG[*entry] {
	return btree.NewBTreeGOptions(bySeq, btree.Options{NoLocks: true})
}

// Get retrieves a copy of the value stored under key.
func (s *MemoryStore) Get(key string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	return cloneValue(e.value), nil
}

// Put adds or updates a key-value pair.
// New keys go to the end of iteration order; existing keys keep their place.
func (s *MemoryStore) Put(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.putLocked(key, cloneValue(value))
	return nil
}

func (s *MemoryStore) putLocked(key string, value any) {
	if e, ok := s.data[key]; ok {
		e.value = value
		return
	}

	s.nextSeq++
	e := &entry{key: key, value: value, seq: s.nextSeq}
	s.data[key] = e
	s.order.Set(e)
}

// Delete removes a key-value pair and reports whether it was present.
func (s *MemoryStore) Delete(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[key]
	if !ok {
		return false, nil
	}
	delete(s.data, key)
	s.order.Delete(e)
	return true, nil
}

// Contains reports whether key is present.
func (s *MemoryStore) Contains(key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.data[key]
	return ok, nil
}

// Clear removes every entry.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]*entry)
	s.order = newOrderIndex()
	return nil
}

// Keys returns a snapshot of all keys in insertion order.
func (s *MemoryStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	s.order.Scan(func(e *entry) bool {
		keys = append(keys, e.key)
		return true
	})
	return keys, nil
}

// Items returns a snapshot of all pairs in insertion order.
func (s *MemoryStore) Items() ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.itemsLocked(), nil
}

func (s *MemoryStore) itemsLocked() []Item {
	items := make([]Item, 0, len(s.data))
	s.order.Scan(func(e *entry) bool {
		items = append(items, Item{Key: e.key, Value: cloneValue(e.value)})
		return true
	})
	return items
}

// Size returns the number of entries.
func (s *MemoryStore) Size() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.data), nil
}

// Load replaces the whole content with items, in the given order.
// Later duplicates overwrite earlier values without moving them.
func (s *MemoryStore) Load(items []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]*entry, len(items))
	s.order = newOrderIndex()
	for _, it := range items {
		s.putLocked(it.Key, cloneValue(it.Value))
	}
}
