package prefs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/idle/internal/kv"
	"github.com/roach88/idle/internal/progress"
)

func newState(t *testing.T, unlocks ...progress.Feature) (*progress.State, *kv.Memory, kv.Store) {
	t.Helper()
	mem := kv.NewMemory()
	store := mem.Session("test")
	s := progress.Load(store)
	for _, f := range unlocks {
		s.SetUnlock(f)
	}
	return s, mem, store
}

func TestParseTheme(t *testing.T) {
	for _, name := range []string{"light", "dark", "synthwave", "maritime"} {
		th, err := ParseTheme(name)
		require.NoError(t, err)
		assert.Equal(t, Theme(name), th)
	}
	_, err := ParseTheme("solarized")
	assert.ErrorIs(t, err, ErrUnknownTheme)
}

func TestThemes_DefaultsToLight(t *testing.T) {
	state, _, store := newState(t)
	assert.Equal(t, ThemeLight, NewThemes(state, store).Current())

	require.NoError(t, store.Set("theme", "dark"))
	assert.Equal(t, ThemeLight, NewThemes(state, store).Current(), "dark is locked")

	require.NoError(t, store.Set("theme", "neon"))
	assert.Equal(t, ThemeLight, NewThemes(state, store).Current())
}

func TestThemes_RestoresUnlocked(t *testing.T) {
	state, _, store := newState(t, progress.FeatureMaritime)
	require.NoError(t, store.Set("theme", "maritime"))
	assert.Equal(t, ThemeMaritime, NewThemes(state, store).Current())
}

func TestThemes_Select(t *testing.T) {
	state, mem, store := newState(t, progress.FeatureSynthwave)
	th := NewThemes(state, store)

	assert.ErrorIs(t, th.Select(ThemeDark), ErrLocked)
	assert.ErrorIs(t, th.Select("sepia"), ErrUnknownTheme)
	assert.Equal(t, ThemeLight, th.Current())

	require.NoError(t, th.Select(ThemeSynthwave))
	assert.Equal(t, ThemeSynthwave, th.Current())
	assert.Equal(t, "synthwave", mem.Snapshot()["theme"])
}

func TestThemes_Toggle(t *testing.T) {
	state, _, store := newState(t)
	th := NewThemes(state, store)

	assert.Equal(t, ThemeLight, th.Toggle(), "locked toggle does nothing")

	state.SetUnlock(progress.FeatureDarkMode)
	assert.Equal(t, ThemeDark, th.Toggle())
	assert.Equal(t, ThemeLight, th.Toggle())
}

func TestThemes_UnlockDarkSwitches(t *testing.T) {
	state, _, store := newState(t, progress.FeatureDarkMode, progress.FeatureMaritime)
	th := NewThemes(state, store)

	th.Unlocked(progress.FeatureMaritime)
	assert.Equal(t, ThemeLight, th.Current())

	th.Unlocked(progress.FeatureDarkMode)
	assert.Equal(t, ThemeDark, th.Current())

	th.Reset()
	assert.Equal(t, ThemeLight, th.Current())
}

func TestMusic_Volume(t *testing.T) {
	state, mem, store := newState(t)
	m := NewMusic(state, store)
	assert.Equal(t, DefaultVolume, m.Volume())

	assert.Equal(t, 100, m.SetVolume(150))
	assert.Equal(t, 0, m.SetVolume(-3))
	assert.Equal(t, 42, m.SetVolume(42))
	assert.Equal(t, "42", mem.Snapshot()["bgmVolume"])

	assert.Equal(t, 42, NewMusic(state, store).Volume())

	require.NoError(t, store.Set("bgmVolume", "loud"))
	assert.Equal(t, DefaultVolume, NewMusic(state, store).Volume())

	require.NoError(t, store.Set("bgmVolume", "250"))
	assert.Equal(t, MaxVolume, NewMusic(state, store).Volume())
}

func TestMusic_PlayingNeedsUnlock(t *testing.T) {
	state, _, store := newState(t)
	require.NoError(t, store.Set("bgmPlaying", "true"))

	m := NewMusic(state, store)
	assert.False(t, m.Playing())
	assert.ErrorIs(t, m.SetPlaying(true), ErrLocked)
	assert.NoError(t, m.SetPlaying(false))

	state.SetUnlock(progress.FeatureBGM)
	require.NoError(t, m.SetPlaying(true))
	assert.True(t, m.Playing())
	assert.True(t, NewMusic(state, store).Playing())

	m.Reset()
	assert.False(t, m.Playing())
	assert.Equal(t, DefaultVolume, m.Volume())
}
