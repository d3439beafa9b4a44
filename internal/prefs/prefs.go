// Package prefs keeps the presentation preferences the economy gates: the
// colour theme, which needs the matching palette unlocked, and background
// music, which needs the bgm unlock.
package prefs

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/roach88/idle/internal/config"
	"github.com/roach88/idle/internal/kv"
	"github.com/roach88/idle/internal/progress"
)

var (
	// ErrUnknownTheme is returned for a theme name outside the known set.
	ErrUnknownTheme = errors.New("unknown theme")

	// ErrLocked is returned when the unlock a preference needs is missing.
	ErrLocked = errors.New("not unlocked")
)

// Theme is a colour scheme name.
type Theme string

const (
	ThemeLight     Theme = "light"
	ThemeDark      Theme = "dark"
	ThemeSynthwave Theme = "synthwave"
	ThemeMaritime  Theme = "maritime"
)

// requires maps each theme to the feature gating it. Light is always free.
var requires = map[Theme]progress.Feature{
	ThemeDark:      progress.FeatureDarkMode,
	ThemeSynthwave: progress.FeatureSynthwave,
	ThemeMaritime:  progress.FeatureMaritime,
}

// ParseTheme validates a theme name.
func ParseTheme(s string) (Theme, error) {
	switch t := Theme(s); t {
	case ThemeLight, ThemeDark, ThemeSynthwave, ThemeMaritime:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTheme, s)
}

// Option configures the preference stores.
type Option func(*options)

type options struct {
	keys   config.Keys
	logger *slog.Logger
}

// WithConfig overrides the key names.
func WithConfig(c config.Config) Option {
	return func(o *options) { o.keys = c.Keys }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{keys: config.Default().Keys, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Themes holds the selected theme.
//
// Thread-safety: safe for concurrent use.
type Themes struct {
	state  *progress.State
	store  kv.Store
	key    string
	logger *slog.Logger

	mu      sync.Mutex
	current Theme
}

// NewThemes loads the saved theme. A missing, unknown or no longer unlocked
// theme loads as light.
func NewThemes(state *progress.State, store kv.Store, opts ...Option) *Themes {
	o := buildOptions(opts)
	t := &Themes{state: state, store: store, key: o.keys.Theme, logger: o.logger, current: ThemeLight}

	raw, ok, err := store.Get(t.key)
	if err != nil {
		t.logger.Error("read theme", "error", err)
		return t
	}
	if !ok {
		return t
	}
	th, err := ParseTheme(raw)
	if err != nil {
		t.logger.Warn("malformed persisted theme, using light", "value", raw)
		return t
	}
	if t.allowed(th) {
		t.current = th
	}
	return t
}

func (t *Themes) allowed(th Theme) bool {
	f, gated := requires[th]
	return !gated || t.state.Unlocked(f)
}

// Current returns the selected theme.
func (t *Themes) Current() Theme {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Select switches to th and saves it. A palette that is not unlocked
// returns ErrLocked and leaves the theme unchanged.
func (t *Themes) Select(th Theme) error {
	if _, err := ParseTheme(string(th)); err != nil {
		return err
	}
	if !t.allowed(th) {
		return fmt.Errorf("%w: theme %s", ErrLocked, th)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.set(th)
	return nil
}

func (t *Themes) set(th Theme) {
	t.current = th
	if err := t.store.Set(t.key, string(th)); err != nil {
		t.logger.Error("persist theme", "error", err)
	}
}

// Toggle flips between dark and light. Without dark mode it does nothing.
// Returns the theme after the toggle.
func (t *Themes) Toggle() Theme {
	if !t.state.Unlocked(progress.FeatureDarkMode) {
		return t.Current()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == ThemeDark {
		t.set(ThemeLight)
	} else {
		t.set(ThemeDark)
	}
	return t.current
}

// Unlocked reacts to a purchased feature: unlocking dark mode switches to
// it straight away. Other palettes wait to be selected.
func (t *Themes) Unlocked(f progress.Feature) {
	if f != progress.FeatureDarkMode {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.set(ThemeDark)
}

// Reset returns to light and saves it.
func (t *Themes) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.set(ThemeLight)
}

// Music volume bounds.
const (
	DefaultVolume = 15
	MaxVolume     = 100
)

// Music holds the background music volume and play state.
//
// Thread-safety: safe for concurrent use.
type Music struct {
	state  *progress.State
	store  kv.Store
	keys   config.Keys
	logger *slog.Logger

	mu      sync.Mutex
	volume  int
	playing bool
}

// NewMusic loads the saved volume and play state. A missing or malformed
// volume loads as DefaultVolume; an out-of-range one is clamped. Playing is
// restored only if bgm is unlocked.
func NewMusic(state *progress.State, store kv.Store, opts ...Option) *Music {
	o := buildOptions(opts)
	m := &Music{state: state, store: store, keys: o.keys, logger: o.logger, volume: DefaultVolume}

	if raw, ok, err := store.Get(m.keys.BGMVolume); err != nil {
		m.logger.Error("read music volume", "error", err)
	} else if ok {
		v, err := strconv.Atoi(raw)
		if err != nil {
			m.logger.Warn("malformed persisted volume, using default", "value", raw)
		} else {
			m.volume = clamp(v)
		}
	}

	if raw, _, err := store.Get(m.keys.BGMPlaying); err != nil {
		m.logger.Error("read music state", "error", err)
	} else {
		m.playing = raw == config.TrueLiteral && state.Unlocked(progress.FeatureBGM)
	}
	return m
}

func clamp(v int) int {
	return max(0, min(MaxVolume, v))
}

// Volume returns the volume, 0 to 100.
func (m *Music) Volume() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

// SetVolume clamps v to 0..100, saves it and returns the stored value.
func (m *Music) SetVolume(v int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = clamp(v)
	if err := m.store.Set(m.keys.BGMVolume, strconv.Itoa(m.volume)); err != nil {
		m.logger.Error("persist music volume", "error", err)
	}
	return m.volume
}

// Playing reports whether music is playing.
func (m *Music) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// SetPlaying starts or stops the music. Starting without the bgm unlock
// returns ErrLocked.
func (m *Music) SetPlaying(on bool) error {
	if on && !m.state.Unlocked(progress.FeatureBGM) {
		return fmt.Errorf("%w: bgm", ErrLocked)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = on
	if err := m.store.Set(m.keys.BGMPlaying, strconv.FormatBool(on)); err != nil {
		m.logger.Error("persist music state", "error", err)
	}
	return nil
}

// Reset stops the music and forgets the volume.
func (m *Music) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
	m.volume = DefaultVolume
}
