package kv

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrUnavailable is returned by backends that can no longer be written.
var ErrUnavailable = errors.New("storage unavailable")

// Store is a string-keyed durable store.
//
// Get reports ok=false for a missing key. Apply writes every op of the batch
// or none of them.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
	Apply(b Batch) error
}

// Watcher is implemented by stores that can report writes made by other
// sessions (other tabs, other processes) sharing the same backend.
//
// The returned channel is closed when ctx is done.
type Watcher interface {
	Watch(ctx context.Context) <-chan Change
}

// Change describes one write observed through Watch.
type Change struct {
	Seq     int64
	Key     string
	Value   string
	Deleted bool
	Origin  string
}

// Op is a single write inside a Batch.
type Op struct {
	Key    string
	Value  string
	Delete bool
}

// Batch is an ordered list of writes applied atomically.
type Batch []Op

// Set appends a set op.
func (b *Batch) Set(key, value string) {
	*b = append(*b, Op{Key: key, Value: value})
}

// Delete appends a delete op.
func (b *Batch) Delete(key string) {
	*b = append(*b, Op{Key: key, Delete: true})
}

// NormalizeKey returns the NFC form of key.
func NormalizeKey(key string) string {
	return norm.NFC.String(key)
}

// prefixed namespaces every key of an underlying store.
type prefixed struct {
	inner  Store
	prefix string
}

// WithPrefix returns a Store that prepends prefix to every key.
// Changes observed through Watch are filtered to the namespace and returned
// with the prefix stripped.
func WithPrefix(s Store, prefix string) Store {
	return &prefixed{inner: s, prefix: NormalizeKey(prefix)}
}

func (p *prefixed) key(k string) string {
	return p.prefix + NormalizeKey(k)
}

func (p *prefixed) Get(key string) (string, bool, error) {
	return p.inner.Get(p.key(key))
}

func (p *prefixed) Set(key, value string) error {
	return p.inner.Set(p.key(key), value)
}

func (p *prefixed) Delete(key string) error {
	return p.inner.Delete(p.key(key))
}

func (p *prefixed) Apply(b Batch) error {
	out := make(Batch, len(b))
	for i, op := range b {
		op.Key = p.key(op.Key)
		out[i] = op
	}
	return p.inner.Apply(out)
}

// Watch forwards namespaced changes from the inner store. If the inner store
// cannot watch, the channel only closes when ctx is done.
func (p *prefixed) Watch(ctx context.Context) <-chan Change {
	out := make(chan Change)
	w, ok := p.inner.(Watcher)
	if !ok {
		go func() {
			<-ctx.Done()
			close(out)
		}()
		return out
	}

	in := w.Watch(ctx)
	go func() {
		defer close(out)
		for c := range in {
			if !strings.HasPrefix(c.Key, p.prefix) {
				continue
			}
			c.Key = strings.TrimPrefix(c.Key, p.prefix)
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// probeKey is written and removed by Probe.
const probeKey = "__storage_test__"

// Probe checks that s accepts a write and a delete. On failure it logs once
// and returns Nop, so the caller keeps working with memory-only state.
func Probe(s Store, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.Default()
	}
	err := s.Set(probeKey, probeKey)
	if err == nil {
		err = s.Delete(probeKey)
	}
	if err != nil {
		logger.Warn("storage is not available, progress will not persist", "error", err)
		return Nop{}
	}
	return s
}

// Nop is a Store that remembers nothing.
type Nop struct{}

func (Nop) Get(string) (string, bool, error) { return "", false, nil }
func (Nop) Set(string, string) error         { return nil }
func (Nop) Delete(string) error              { return nil }
func (Nop) Apply(Batch) error                { return nil }
