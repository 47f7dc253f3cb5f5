package store

import (
	"errors"
	"time"

	"github.com/ASHISH26940/kvstore/internal/metrics"
)

// Instrumented wraps a Backend and records per-operation counts and latency.
type Instrumented struct {
	next Backend
	name string
}

var _ Backend = (*Instrumented)(nil)

// Instrument wraps b, labelling its metrics with name.
func Instrument(b Backend, name string) *Instrumented {
	return &Instrumented{next: b, name: name}
}

// Unwrap returns the wrapped backend.
func (i *Instrumented) Unwrap() Backend { return i.next }

func (i *Instrumented) observe(op string, start time.Time, err error) {
	metrics.OpDuration.WithLabelValues(i.name, op).Observe(time.Since(start).Seconds())

	result := metrics.Result(err)
	if errors.Is(err, ErrKeyNotFound) {
		result = "not_found"
	}
	metrics.OpsTotal.WithLabelValues(i.name, op, result).Inc()
}

func (i *Instrumented) recordSize() {
	if n, err := i.next.Size(); err == nil {
		metrics.Entries.WithLabelValues(i.name).Set(float64(n))
	}
}

func (i *Instrumented) Get(key string) (any, error) {
	start := time.Now()
	v, err := i.next.Get(key)
	i.observe("get", start, err)
	return v, err
}

func (i *Instrumented) Put(key string, value any) error {
	start := time.Now()
	err := i.next.Put(key, value)
	i.observe("put", start, err)
	i.recordSize()
	return err
}

func (i *Instrumented) Delete(key string) (bool, error) {
	start := time.Now()
	ok, err := i.next.Delete(key)
	i.observe("delete", start, err)
	i.recordSize()
	return ok, err
}

func (i *Instrumented) Contains(key string) (bool, error) {
	start := time.Now()
	ok, err := i.next.Contains(key)
	i.observe("contains", start, err)
	return ok, err
}

func (i *Instrumented) Clear() error {
	start := time.Now()
	err := i.next.Clear()
	i.observe("clear", start, err)
	i.recordSize()
	return err
}

func (i *Instrumented) Keys() ([]string, error) {
	start := time.Now()
	keys, err := i.next.Keys()
	i.observe("keys", start, err)
	return keys, err
}

func (i *Instrumented) Items() ([]Item, error) {
	start := time.Now()
	items, err := i.next.Items()
	i.observe("items", start, err)
	return items, err
}

func (i *Instrumented) Size() (int, error) {
	start := time.Now()
	n, err := i.next.Size()
	i.observe("size", start, err)
	return n, err
}
