package kv

import (
	"context"
	"sync"
)

// watchBuffer bounds undelivered changes per watcher. Cross-session sync is
// advisory: a watcher that falls this far behind loses changes.
const watchBuffer = 256

// Memory is an in-process backend shared by any number of sessions.
//
// Thread-safety: Memory is safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	data    map[string]string
	seq     int64
	subs    map[int]*memoryWatch
	nextSub int
	err     error
}

type memoryWatch struct {
	origin string
	ch     chan Change
}

// NewMemory creates an empty backend.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[string]string),
		subs: make(map[int]*memoryWatch),
	}
}

// Session returns a Store handle whose writes are tagged with origin.
// Watch on the handle reports writes made through other handles.
func (m *Memory) Session(origin string) *MemorySession {
	return &MemorySession{m: m, origin: origin}
}

// Fail makes every subsequent operation return err. Pass nil to recover.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// Snapshot returns a copy of the stored data.
func (m *Memory) Snapshot() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out
}

func (m *Memory) get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.data[NormalizeKey(key)]
	return v, ok, nil
}

func (m *Memory) apply(origin string, b Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}

	changes := make([]Change, 0, len(b))
	for _, op := range b {
		key := NormalizeKey(op.Key)
		if op.Delete {
			delete(m.data, key)
		} else {
			m.data[key] = op.Value
		}
		m.seq++
		changes = append(changes, Change{
			Seq:     m.seq,
			Key:     key,
			Value:   op.Value,
			Deleted: op.Delete,
			Origin:  origin,
		})
	}

	for _, sub := range m.subs {
		for _, c := range changes {
			if c.Origin == sub.origin {
				continue
			}
			select {
			case sub.ch <- c:
			default:
			}
		}
	}
	return nil
}

func (m *Memory) watch(ctx context.Context, origin string) <-chan Change {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	sub := &memoryWatch{origin: origin, ch: make(chan Change, watchBuffer)}
	m.subs[id] = sub
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs, id)
		close(sub.ch)
		m.mu.Unlock()
	}()
	return sub.ch
}

// MemorySession is one tab's view of a Memory backend.
type MemorySession struct {
	m      *Memory
	origin string
}

// Origin returns the tag attached to this session's writes.
func (s *MemorySession) Origin() string { return s.origin }

func (s *MemorySession) Get(key string) (string, bool, error) {
	return s.m.get(key)
}

func (s *MemorySession) Set(key, value string) error {
	return s.m.apply(s.origin, Batch{{Key: key, Value: value}})
}

func (s *MemorySession) Delete(key string) error {
	return s.m.apply(s.origin, Batch{{Key: key, Delete: true}})
}

func (s *MemorySession) Apply(b Batch) error {
	return s.m.apply(s.origin, b)
}

// Watch reports writes made by other sessions.
func (s *MemorySession) Watch(ctx context.Context) <-chan Change {
	return s.m.watch(ctx, s.origin)
}
