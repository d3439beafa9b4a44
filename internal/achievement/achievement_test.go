package achievement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/idle/internal/catalog"
	"github.com/roach88/idle/internal/kv"
	"github.com/roach88/idle/internal/notify"
)

func defaultAchievements(t *testing.T) []Achievement {
	t.Helper()
	list, err := FromCatalog(catalog.MustDefault().Achievements)
	require.NoError(t, err)
	return list
}

func newTestManager(t *testing.T) (*Manager, *notify.Recorder, *kv.Memory) {
	t.Helper()
	mem := kv.NewMemory()
	rec := &notify.Recorder{}
	m := New(defaultAchievements(t), mem.Session("tab-a"), WithNotifier(rec))
	return m, rec, mem
}

func ids(list []Achievement) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.ID
	}
	return out
}

func TestCheck_ClickThresholds(t *testing.T) {
	m, rec, _ := newTestManager(t)

	assert.Equal(t, []string{"first_click"}, ids(m.Check(catalog.GroupClick, Count(1))))
	assert.Empty(t, m.Check(catalog.GroupClick, Count(5)))
	assert.Equal(t, []string{"ten_clicks"}, ids(m.Check(catalog.GroupClick, Count(10))))
	assert.Equal(t, []string{"over_9000"}, ids(m.Check(catalog.GroupClick, Count(9001))))

	assert.Len(t, rec.OfKind(notify.KindAchievementEarned), 3)
}

func TestCheck_SkipsThresholdsInOneCall(t *testing.T) {
	m, _, _ := newTestManager(t)

	got := m.Check(catalog.GroupManualClicks, Count(500))
	assert.Equal(t, []string{"first_step", "getting_started", "dedicated_clicker", "century_club"}, ids(got))
}

func TestCheck_NeverRefires(t *testing.T) {
	m, rec, _ := newTestManager(t)

	m.Check(catalog.GroupNameHover, Flag(true))
	m.Check(catalog.GroupNameHover, Flag(true))
	m.Check(catalog.GroupNameHover, Flag(true))

	events := rec.OfKind(notify.KindAchievementEarned)
	require.Len(t, events, 1)
	assert.Equal(t, "glitch_star", events[0].ID)
	assert.Equal(t, "Glitch in the Matrix", events[0].Title)
}

func TestCheck_GroupsAreIsolated(t *testing.T) {
	m, _, _ := newTestManager(t)

	assert.Empty(t, m.Check(catalog.GroupAgentClicks, Count(50)))
	assert.Empty(t, m.Check(catalog.GroupNameClick, Flag(false)))
	got := m.Check(catalog.GroupNameClick, Flag(true))
	assert.Equal(t, []string{"pop_glow"}, ids(got))
	assert.False(t, m.Has("glitch_star"))
}

func TestCheck_Lore(t *testing.T) {
	m, _, _ := newTestManager(t)

	assert.Equal(t, []string{"first_lore_unlock"}, ids(m.Check(catalog.GroupLore, OfTotal(1, 2))))
	assert.Equal(t, []string{"lore_master"}, ids(m.Check(catalog.GroupLore, OfTotal(2, 2))))
}

func TestCheck_ShopCompletion(t *testing.T) {
	tests := []struct {
		name  string
		facts Facts
		want  bool
	}{
		{"one level short", Completion(9, 10, true), false},
		{"cosmetic missing", Completion(10, 10, false), false},
		{"complete", Completion(10, 10, true), true},
		{"raised cap not reached", Completion(10, 20, true), false},
		{"raised cap reached", Completion(20, 20, true), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _ := newTestManager(t)
			got := m.Check(catalog.GroupShopCompletion, tt.facts)
			assert.Equal(t, tt.want, len(got) == 1)
			assert.Equal(t, tt.want, m.Has("shop_complete"))
		})
	}
}

func TestCheck_PersistsEarnedSet(t *testing.T) {
	m, _, mem := newTestManager(t)

	m.Check(catalog.GroupClick, Count(10))
	assert.Equal(t, `["first_click","ten_clicks"]`, mem.Snapshot()["earnedAchievements"])

	reloaded := New(defaultAchievements(t), mem.Session("tab-b"))
	assert.Equal(t, []string{"first_click", "ten_clicks"}, reloaded.Earned())
	assert.Empty(t, reloaded.Check(catalog.GroupClick, Count(10)), "reloaded set must not refire")
}

func TestNew_MalformedStoredSet(t *testing.T) {
	mem := kv.NewMemory()
	require.NoError(t, mem.Session("seed").Set("earnedAchievements", "{not json"))

	m := New(defaultAchievements(t), mem.Session("tab-a"))
	assert.Empty(t, m.Earned())
	assert.Len(t, m.Check(catalog.GroupClick, Count(1)), 1)
}

func TestCheck_PanickingPredicateIsIsolated(t *testing.T) {
	list := []Achievement{
		{ID: "boom", Title: "Boom", Group: catalog.GroupClick, Predicate: func(Facts) bool { panic("bad predicate") }},
		{ID: "ok", Title: "OK", Group: catalog.GroupClick, Predicate: func(f Facts) bool { return f.Value >= 1 }},
	}
	mem := kv.NewMemory()
	rec := &notify.Recorder{}
	m := New(list, mem.Session("tab-a"), WithNotifier(rec))

	got := m.Check(catalog.GroupClick, Count(1))
	assert.Equal(t, []string{"ok"}, ids(got))
	assert.Equal(t, []string{"ok"}, m.Earned())
	assert.Len(t, rec.Events(), 1)
}

func TestReset(t *testing.T) {
	m, _, mem := newTestManager(t)
	m.Check(catalog.GroupClick, Count(1))

	m.Reset()
	assert.Empty(t, m.Earned())
	_, ok := mem.Snapshot()["earnedAchievements"]
	assert.False(t, ok)

	assert.Len(t, m.Check(catalog.GroupClick, Count(1)), 1, "earnable again after reset")
}

func TestFromCatalog_UnknownRule(t *testing.T) {
	_, err := FromCatalog([]catalog.Achievement{{ID: "x", Rule: catalog.Rule{Kind: "maybe"}}})
	assert.Error(t, err)
}

func TestWithKey(t *testing.T) {
	mem := kv.NewMemory()
	m := New(defaultAchievements(t), mem.Session("tab-a"), WithKey("earned"))
	m.Check(catalog.GroupClick, Count(1))
	assert.Equal(t, `["first_click"]`, mem.Snapshot()["earned"])
}
