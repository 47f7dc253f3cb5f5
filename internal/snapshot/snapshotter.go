// Package snapshot runs periodic flushes of a durable backend.
package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/ASHISH26940/kvstore/internal/metrics"
)

// Flusher persists the current state of a backend.
type Flusher interface {
	Flush() error
}

// Snapshotter calls Flush on a fixed interval until stopped.
// A failed flush is logged and retried on the next tick; it never stops
// the loop or the owning process.
type Snapshotter struct {
	flusher  Flusher
	interval time.Duration
	logger   hclog.Logger

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// Start launches the snapshot loop. It returns nil when interval <= 0.
func Start(ctx context.Context, f Flusher, interval time.Duration, logger hclog.Logger) *Snapshotter {
	if interval <= 0 {
		return nil
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Snapshotter{
		flusher:  f,
		interval: interval,
		logger:   logger,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

func (s *Snapshotter) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Debug("snapshot loop started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("snapshot loop stopped")
			return
		case <-ticker.C:
			s.flushOnce()
		}
	}
}

func (s *Snapshotter) flushOnce() {
	start := time.Now()
	err := s.flusher.Flush()
	metrics.SnapshotDuration.Observe(time.Since(start).Seconds())
	metrics.SnapshotsTotal.WithLabelValues(metrics.Result(err)).Inc()

	if err != nil {
		s.logger.Error("periodic snapshot failed", "error", err)
		return
	}
	s.logger.Trace("periodic snapshot written", "took", time.Since(start))
}

// Stop ends the loop and waits for an in-flight flush to finish.
// It is safe to call more than once and on a nil Snapshotter.
func (s *Snapshotter) Stop() {
	if s == nil {
		return
	}
	s.stopOnce.Do(s.cancel)
	<-s.done
}
