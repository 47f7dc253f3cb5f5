package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemoryStore_Lifecycle walks one key through put, overwrite and delete.
func TestMemoryStore_Lifecycle(t *testing.T) {
	s := NewMemoryStore()
	key := "test_key"

	// 1. Get a non-existent key
	_, err := s.Get(key)
	require.ErrorIs(t, err, ErrKeyNotFound)

	// 2. Put a new key
	require.NoError(t, s.Put(key, "value1"))
	got, err := s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "value1", got)

	// 3. Overwrite keeps a single entry
	require.NoError(t, s.Put(key, "value2"))
	got, err = s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "value2", got)
	assert.Len(t, s.data, 1)
	assert.Equal(t, 1, s.order.Len())

	// 4. Delete the key
	deleted, err := s.Delete(key)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Empty(t, s.data)
	assert.Equal(t, 0, s.order.Len())
}

// TestMemoryStore_ValuesAreCopied checks that neither the caller's value nor
// a returned value aliases stored state.
func TestMemoryStore_ValuesAreCopied(t *testing.T) {
	s := NewMemoryStore()

	raw := []byte("abc")
	doc := map[string]any{"list": []any{"a"}}
	require.NoError(t, s.Put("raw", raw))
	require.NoError(t, s.Put("doc", doc))

	// Mutating the originals after Put must not reach the store.
	raw[0] = 'X'
	doc["list"].([]any)[0] = "mutated"

	got, err := s.Get("raw")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	// Mutating a returned value must not reach the store either.
	got.([]byte)[0] = 'Y'
	items, err := s.Items()
	require.NoError(t, err)
	items[1].Value.(map[string]any)["new"] = true

	again, err := s.Get("raw")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)

	gotDoc, err := s.Get("doc")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"list": []any{"a"}}, gotDoc)
}

func TestMemoryStore_Load(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Put("stale", 1))

	s.Load([]Item{
		{Key: "b", Value: 1},
		{Key: "a", Value: 2},
		{Key: "b", Value: 3},
	})

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, keys)

	v, err := s.Get("b")
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	ok, err := s.Contains("stale")
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestMemoryStore_Concurrency hammers the store from many goroutines; run
// with -race to check the locking.
func TestMemoryStore_Concurrency(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup
	numGoroutines := 50
	numOperations := 200

	require.NoError(t, s.Put("initial_key", "initial_value"))

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(goroutineID int) {
			defer wg.Done()
			for j := 0; j < numOperations; j++ {
				key := fmt.Sprintf("key_%d_%d", goroutineID, j)
				switch j % 4 {
				case 0:
					_ = s.Put(key, j)
				case 1:
					if _, err := s.Get("initial_key"); err != nil {
						t.Errorf("initial_key vanished: %v", err)
					}
				case 2:
					_, _ = s.Items()
				case 3:
					_, _ = s.Delete(fmt.Sprintf("key_%d_%d", goroutineID, j-3))
				}
			}
		}(i)
	}
	wg.Wait()

	// Every goroutine puts numOperations/4 keys and deletes each of them.
	n, err := s.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"initial_key"}, keys)
}

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrKeyNotFound, "KeyNotFound"},
		{fmt.Errorf("%w: x", ErrStorage), "StorageError"},
		{fmt.Errorf("%w: y", ErrSerialization), "SerializationError"},
		{ErrConcurrency, "ConcurrencyError"},
		{ErrTransaction, "TransactionError"},
		{errors.New("other"), ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Kind(tc.err), "error: %v", tc.err)
	}
}
