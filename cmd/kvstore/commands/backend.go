package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/ASHISH26940/kvstore/internal/config"
	"github.com/ASHISH26940/kvstore/internal/serializer"
	"github.com/ASHISH26940/kvstore/internal/store"
)

// openBackend builds the backend named in c. The returned close function
// stops background work and releases files; it is never nil.
func openBackend(ctx context.Context, c *config.Config, log hclog.Logger) (store.Backend, func() error, error) {
	noop := func() error { return nil }

	if c.Backend == config.BackendMemory {
		log.Info("using in-memory backend; data is lost on exit")
		return store.NewMemoryStore(), noop, nil
	}

	codec, err := serializer.New(c.Serializer)
	if err != nil {
		return nil, noop, err
	}
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return nil, noop, fmt.Errorf("failed to create data directory: %w", err)
	}

	switch c.Backend {
	case config.BackendFile:
		fs, err := store.NewFileStore(c.DataPath(), codec, log.Named("file"))
		if err != nil {
			return nil, noop, err
		}
		fs.StartSnapshots(ctx, c.SnapshotInterval())
		log.Info("using file backend", "path", fs.Path(), "serializer", c.Serializer, "snapshot_interval", c.SnapshotInterval())
		return fs, fs.Close, nil
	case config.BackendBolt:
		bs, err := store.OpenBoltStore(c.DataPath(), codec)
		if err != nil {
			return nil, noop, err
		}
		log.Info("using bolt backend", "path", c.DataPath(), "value_codec", c.Serializer)
		return bs, bs.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown backend %q", c.Backend)
	}
}
