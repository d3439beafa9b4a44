package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithPrefix_NamespacesKeys(t *testing.T) {
	mem := NewMemory()
	s := WithPrefix(mem.Session("tab-a"), "edgar_tech_")

	require.NoError(t, s.Set("clickCount", "7"))

	v, ok, err := s.Get("clickCount")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "7", v)

	raw := mem.Snapshot()
	assert.Equal(t, map[string]string{"edgar_tech_clickCount": "7"}, raw)
}

func TestWithPrefix_ApplyAndDelete(t *testing.T) {
	mem := NewMemory()
	s := WithPrefix(mem.Session("tab-a"), "p_")

	var b Batch
	b.Set("a", "1")
	b.Set("b", "2")
	b.Delete("missing")
	require.NoError(t, s.Apply(b))
	assert.Equal(t, 2, mem.Len())

	require.NoError(t, s.Delete("a"))
	_, ok, err := s.Get("a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWithPrefix_NormalizesKeys(t *testing.T) {
	mem := NewMemory()
	s := WithPrefix(mem.Session("tab-a"), "p_")

	// "é" as e + combining acute (NFD) and as a single rune (NFC).
	require.NoError(t, s.Set("cafe\u0301", "1"))
	v, ok, err := s.Get("caf\u00e9")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestWithPrefix_WatchFiltersNamespace(t *testing.T) {
	mem := NewMemory()
	a := WithPrefix(mem.Session("tab-a"), "p_")
	b := WithPrefix(mem.Session("tab-b"), "p_")
	other := WithPrefix(mem.Session("tab-b"), "q_")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := a.(Watcher).Watch(ctx)

	require.NoError(t, other.Set("clickCount", "99"))
	require.NoError(t, b.Set("clickCount", "5"))

	select {
	case c := <-ch:
		assert.Equal(t, "clickCount", c.Key)
		assert.Equal(t, "5", c.Value)
		assert.Equal(t, "tab-b", c.Origin)
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered")
	}
}

func TestWithPrefix_WatchWithoutWatcherClosesOnCancel(t *testing.T) {
	s := WithPrefix(Nop{}, "p_")
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.(Watcher).Watch(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}
}

func TestProbe_ReturnsStoreWhenWritable(t *testing.T) {
	mem := NewMemory()
	s := mem.Session("tab-a")

	got := Probe(s, nil)
	assert.Same(t, s, got)
	assert.Equal(t, 0, mem.Len(), "probe key must be removed")
}

func TestProbe_FallsBackToNop(t *testing.T) {
	mem := NewMemory()
	mem.Fail(errors.New("quota exceeded"))

	got := Probe(mem.Session("tab-a"), nil)
	assert.Equal(t, Nop{}, got)
}

func TestNop_ForgetsEverything(t *testing.T) {
	var s Nop
	require.NoError(t, s.Set("k", "v"))
	require.NoError(t, s.Apply(Batch{{Key: "a", Value: "1"}}))
	require.NoError(t, s.Delete("k"))

	_, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}
