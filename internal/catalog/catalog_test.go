package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Loads(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, int64(2000), c.Economy.BasePeriodMS)
	assert.InDelta(t, 0.95, c.Economy.RateFactor, 1e-9)
	assert.Equal(t, 10, c.Economy.MaxLevel)
	assert.Equal(t, 20, c.Economy.InvestedMaxLevel)
	require.Len(t, c.Economy.Tiers, 2)
	assert.Equal(t, Tier{FromLevel: 0, BaseCost: 20, Growth: 1.4}, c.Economy.Tiers[0])
	assert.Equal(t, Tier{FromLevel: 10, BaseCost: 750, Growth: 1.6}, c.Economy.Tiers[1])

	assert.Len(t, c.Lore, 2)
	assert.Len(t, c.Items, 6)
	assert.NotEmpty(t, c.Achievements)
}

func TestDefault_RulesDecoded(t *testing.T) {
	c := MustDefault()

	byID := make(map[string]Achievement)
	for _, a := range c.Achievements {
		byID[a.ID] = a
	}

	assert.Equal(t, Rule{Kind: RuleAtLeast, Threshold: 9001}, byID["over_9000"].Rule)
	assert.Equal(t, GroupClick, byID["over_9000"].Group)
	assert.Equal(t, Rule{Kind: RuleReachTotal}, byID["lore_master"].Rule)
	assert.Equal(t, Rule{Kind: RuleComplete}, byID["shop_complete"].Rule)
	assert.Equal(t, Rule{Kind: RuleFlag}, byID["glitch_star"].Rule)
	assert.Equal(t, GroupNameClick, byID["pop_glow"].Group)
}

func TestDefault_Items(t *testing.T) {
	c := MustDefault()

	up := c.Upgrade()
	assert.Equal(t, "agentic_clicker", up.ID)
	assert.Equal(t, KindUpgrade, up.Kind)

	dm, ok := c.Item("dark_mode")
	require.True(t, ok)
	assert.Equal(t, int64(50), dm.Cost)
	assert.True(t, dm.Cosmetic)

	bgm, ok := c.Item("bgm")
	require.True(t, ok)
	assert.False(t, bgm.Cosmetic)

	vc, ok := c.Item("vc_investment")
	require.True(t, ok)
	assert.Equal(t, 10, vc.RequiresLevel)

	_, ok = c.Item("nope")
	assert.False(t, ok)
}

func TestDefault_LoreEntry(t *testing.T) {
	c := MustDefault()

	l, ok := c.LoreEntry("valcom_mvc")
	require.True(t, ok)
	assert.Equal(t, "valcom", l.Experience)
	assert.Equal(t, int64(5), l.Cost)

	_, ok = c.LoreEntry("missing")
	assert.False(t, ok)
}

const minimal = `
economy: {
	base_period_ms: 1000
	rate_factor: 0.5
	max_level: 2
	invested_max_level: 2
	tiers: [{from_level: 0, base_cost: 1, growth: 2}]
}
items: [{id: "up", title: "Up", kind: "upgrade"}]
lore: []
achievements: []
`

func TestCompile_Minimal(t *testing.T) {
	c, err := Compile("minimal.cue", []byte(minimal))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Economy.MaxLevel)
	assert.Empty(t, c.Lore)
}

func TestCompile_Rejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{
			name: "syntax error",
			src:  `economy: {`,
		},
		{
			name: "unknown field",
			src:  minimal + "\nbonus: 1\n",
		},
		{
			name: "non-concrete",
			src: `
economy: {
	base_period_ms: int
	rate_factor: 0.5
	max_level: 2
	invested_max_level: 2
	tiers: [{from_level: 0, base_cost: 1, growth: 2}]
}
items: [{id: "up", title: "Up", kind: "upgrade"}]
lore: []
achievements: []
`,
		},
		{
			name: "bad rule kind",
			src: minimal[:len(minimal)-len("achievements: []\n")] +
				`achievements: [{id: "a", title: "A", group: "click", rule: {kind: "sometimes"}}]` + "\n",
		},
		{
			name: "growth not above one",
			src: `
economy: {
	base_period_ms: 1000
	rate_factor: 0.5
	max_level: 2
	invested_max_level: 2
	tiers: [{from_level: 0, base_cost: 1, growth: 1}]
}
items: [{id: "up", title: "Up", kind: "upgrade"}]
lore: []
achievements: []
`,
		},
		{
			name: "no upgrade item",
			src: `
economy: {
	base_period_ms: 1000
	rate_factor: 0.5
	max_level: 2
	invested_max_level: 2
	tiers: [{from_level: 0, base_cost: 1, growth: 2}]
}
items: [{id: "dm", title: "Dark", kind: "unlock", cost: 5, feature: "dark_mode"}]
lore: []
achievements: []
`,
		},
		{
			name: "duplicate lore id",
			src: minimal[:len(minimal)-len("lore: []\nachievements: []\n")] + `
lore: [
	{id: "x", experience: "e", title: "X", cost: 1, text: ""},
	{id: "x", experience: "e", title: "X", cost: 1, text: ""},
]
achievements: []
`,
		},
		{
			name: "tiers out of order",
			src: `
economy: {
	base_period_ms: 1000
	rate_factor: 0.5
	max_level: 2
	invested_max_level: 4
	tiers: [{from_level: 0, base_cost: 1, growth: 2}, {from_level: 0, base_cost: 5, growth: 2}]
}
items: [{id: "up", title: "Up", kind: "upgrade"}]
lore: []
achievements: []
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile("test.cue", []byte(tt.src))
			assert.Error(t, err)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.cue")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "up", c.Upgrade().ID)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.cue"))
	assert.Error(t, err)
}

func TestError_Format(t *testing.T) {
	err := &Error{Field: "items", Message: "duplicate id \"x\""}
	assert.Equal(t, `items: duplicate id "x"`, err.Error())
}
