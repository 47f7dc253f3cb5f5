package store

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/ASHISH26940/kvstore/internal/persistence"
	"github.com/ASHISH26940/kvstore/internal/snapshot"
)

// FileStore is a MemoryStore whose full mapping is persisted as a single
// serialized document. The file is loaded once at construction and replaced
// atomically on every Flush.
type FileStore struct {
	mem        *MemoryStore
	path       string
	serializer Serializer
	logger     hclog.Logger

	dirty   atomic.Bool
	flushMu sync.Mutex // serializes writers of the snapshot file

	snapMu      sync.Mutex
	snapshotter *snapshot.Snapshotter
}

var _ Backend = (*FileStore)(nil)

// NewFileStore opens the snapshot at path. A missing or empty file yields an
// empty store; any other read or decode failure wraps ErrStorage.
func NewFileStore(path string, serializer Serializer, logger hclog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	fs := &FileStore{
		mem:        NewMemoryStore(),
		path:       path,
		serializer: serializer,
		logger:     logger,
	}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileStore) load() error {
	data, err := persistence.ReadFile(fs.path)
	if err != nil {
		return fmt.Errorf("%w: failed to load data from %s: %w", ErrStorage, fs.path, err)
	}
	if len(data) == 0 {
		fs.logger.Debug("no snapshot to load", "path", fs.path)
		return nil
	}

	items, err := fs.serializer.Deserialize(data)
	if err != nil {
		return fmt.Errorf("%w: failed to load data from %s: %w", ErrStorage, fs.path, err)
	}
	fs.mem.Load(items)
	fs.logger.Info("snapshot loaded", "path", fs.path, "entries", len(items))
	return nil
}

// Path returns the snapshot file location.
func (fs *FileStore) Path() string { return fs.path }

// Flush writes the current mapping to disk if it changed since the last
// successful flush.
func (fs *FileStore) Flush() error {
	fs.flushMu.Lock()
	defer fs.flushMu.Unlock()

	// Clear before snapshotting: a write racing with the snapshot marks the
	// store dirty again and is picked up by the next flush.
	if !fs.dirty.CompareAndSwap(true, false) {
		return nil
	}

	items, _ := fs.mem.Items()
	if err := fs.write(items); err != nil {
		fs.dirty.Store(true)
		return err
	}
	return nil
}

func (fs *FileStore) write(items []Item) error {
	data, err := fs.serializer.Serialize(items)
	if err != nil {
		return fmt.Errorf("%w: failed to save data to %s: %w", ErrStorage, fs.path, err)
	}
	if err := persistence.WriteFile(fs.path, data, 0o644); err != nil {
		return fmt.Errorf("%w: failed to save data to %s: %w", ErrStorage, fs.path, err)
	}
	fs.logger.Trace("snapshot written", "path", fs.path, "entries", len(items), "bytes", len(data))
	return nil
}

// StartSnapshots flushes every interval in the background until Close or
// ctx is done. Calling it again replaces the previous loop.
func (fs *FileStore) StartSnapshots(ctx context.Context, interval time.Duration) {
	fs.snapMu.Lock()
	defer fs.snapMu.Unlock()

	fs.snapshotter.Stop()
	fs.snapshotter = snapshot.Start(ctx, fs, interval, fs.logger.Named("snapshot"))
}

// Close stops periodic snapshots and performs a final flush.
func (fs *FileStore) Close() error {
	fs.snapMu.Lock()
	fs.snapshotter.Stop()
	fs.snapshotter = nil
	fs.snapMu.Unlock()

	return fs.Flush()
}

func (fs *FileStore) Get(key string) (any, error) { return fs.mem.Get(key) }

// Put refuses, with ErrSerialization, any pair the file format cannot
// reload unchanged, so Get answers the same before and after a reopen.
func (fs *FileStore) Put(key string, value any) error {
	if err := fs.checkRoundTrip(key, value); err != nil {
		return err
	}
	if err := fs.mem.Put(key, value); err != nil {
		return err
	}
	fs.dirty.Store(true)
	return nil
}

func (fs *FileStore) checkRoundTrip(key string, value any) error {
	data, err := fs.serializer.Serialize([]Item{{Key: key, Value: value}})
	if err != nil {
		return err
	}
	items, err := fs.serializer.Deserialize(data)
	if err != nil {
		return err
	}
	if len(items) != 1 || items[0].Key != key || !reflect.DeepEqual(items[0].Value, value) {
		return fmt.Errorf("%w: value of %q (%T) does not survive the file format", ErrSerialization, key, value)
	}
	return nil
}

func (fs *FileStore) Delete(key string) (bool, error) {
	deleted, err := fs.mem.Delete(key)
	if deleted {
		fs.dirty.Store(true)
	}
	return deleted, err
}

func (fs *FileStore) Contains(key string) (bool, error) { return fs.mem.Contains(key) }

func (fs *FileStore) Clear() error {
	if err := fs.mem.Clear(); err != nil {
		return err
	}
	fs.dirty.Store(true)
	return nil
}

func (fs *FileStore) Keys() ([]string, error) { return fs.mem.Keys() }

func (fs *FileStore) Items() ([]Item, error) { return fs.mem.Items() }

func (fs *FileStore) Size() (int, error) { return fs.mem.Size() }
