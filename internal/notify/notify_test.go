package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_Next(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}

func TestClock_ThreadSafe(t *testing.T) {
	c := NewClock()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Next()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(5000), c.Current())
}

func TestSequencer_StampsInOrder(t *testing.T) {
	rec := &Recorder{}
	seq := NewSequencer(NewClock(), rec)

	seq.Notify(Event{Kind: KindAchievementEarned, ID: "first_click"})
	seq.Notify(Event{Kind: KindPurchased, ID: "dark_mode", Amount: 50})

	events := rec.Events()
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[0].Seq)
	assert.Equal(t, int64(2), events[1].Seq)
}

func TestEvent_String(t *testing.T) {
	tests := []struct {
		e    Event
		want string
	}{
		{Event{Seq: 1, Kind: KindAchievementEarned, ID: "first_click", Title: "Your First Click!"}, `0001 achievement_earned first_click "Your First Click!"`},
		{Event{Seq: 2, Kind: KindInsufficientFunds, ID: "dark_mode", Amount: 5}, `0002 insufficient_funds dark_mode shortage=5`},
		{Event{Seq: 3, Kind: KindPurchased, ID: "agentic_clicker", Amount: 20, Level: 1}, `0003 purchased agentic_clicker cost=20 level=1`},
		{Event{Seq: 4, Kind: KindPurchased, ID: "dark_mode", Amount: 50}, `0004 purchased dark_mode cost=50`},
		{Event{Seq: 5, Kind: KindLoreUnlocked, ID: "valcom_mvc", Amount: 5}, `0005 lore_unlocked valcom_mvc cost=5`},
		{Event{Seq: 6, Kind: KindReset}, `0006 reset`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.e.String())
	}
}

func TestMulti_FansOut(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	Multi{a, b, Discard}.Notify(Event{Kind: KindReset})
	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
}

func TestRecorder_OfKindAndReset(t *testing.T) {
	rec := &Recorder{}
	rec.Notify(Event{Kind: KindReset})
	rec.Notify(Event{Kind: KindPurchased})
	rec.Notify(Event{Kind: KindPurchased})

	assert.Len(t, rec.OfKind(KindPurchased), 2)
	rec.Reset()
	assert.Empty(t, rec.Events())
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue()
	q.Notify(Event{Seq: 1})
	q.Notify(Event{Seq: 2})
	assert.Equal(t, 2, q.Len())

	e, ok := q.TryNext()
	require.True(t, ok)
	assert.Equal(t, int64(1), e.Seq)

	rest := q.Drain()
	require.Len(t, rest, 1)
	assert.Equal(t, int64(2), rest[0].Seq)

	_, ok = q.TryNext()
	assert.False(t, ok)
}

func TestQueue_NextWaitsForEvent(t *testing.T) {
	q := NewQueue()
	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Notify(Event{Seq: 7})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	e, err := q.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), e.Seq)
}

func TestQueue_NextHonoursContext(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueue_CloseDrainsThenErrors(t *testing.T) {
	q := NewQueue()
	q.Notify(Event{Seq: 1})
	q.Close()
	q.Close()
	q.Notify(Event{Seq: 2})

	e, err := q.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.Seq)

	_, err = q.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
