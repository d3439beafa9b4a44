// Package config holds the storage namespace, the persisted key names and the
// fixed economy constants shared by every manager.
package config

import "time"

// DefaultPrefix namespaces every key written by the application.
const DefaultPrefix = "edgar_tech_"

// Keys names every record in the persistent store.
// Values are stored as strings; see the kv package for the encodings.
type Keys struct {
	Balance              string // int
	TotalClicks          string // int, monotonic
	ManualClicks         string // int, monotonic
	AgentClicks          string // int, monotonic
	UpgradeLevel         string // int
	DarkModeUnlocked     string // "true" or absent
	SynthwaveUnlocked    string // "true" or absent
	MaritimeUnlocked     string // "true" or absent
	BGMUnlocked          string // "true" or absent
	VCInvestmentUnlocked string // "true" or absent
	EarnedAchievements   string // JSON array of ids
	UnlockedLore         string // JSON array of ids
	Theme                string // light|dark|synthwave|maritime
	BGMVolume            string // int 0-100
	BGMPlaying           string // "true"/"false"
}

// Config carries the namespace and key names.
type Config struct {
	Prefix string
	Keys   Keys
}

// Default returns the configuration used by the site.
func Default() Config {
	return Config{
		Prefix: DefaultPrefix,
		Keys: Keys{
			Balance:              "clickCount",
			TotalClicks:          "totalClicks",
			ManualClicks:         "manualClicks",
			AgentClicks:          "agentClicks",
			UpgradeLevel:         "agenticClickerLevel",
			DarkModeUnlocked:     "darkModeUnlocked",
			SynthwaveUnlocked:    "synthwaveUnlocked",
			MaritimeUnlocked:     "maritimeUnlocked",
			BGMUnlocked:          "bgmUnlocked",
			VCInvestmentUnlocked: "vcInvestmentUnlocked",
			EarnedAchievements:   "earnedAchievements",
			UnlockedLore:         "unlockedLore",
			Theme:                "theme",
			BGMVolume:            "bgmVolume",
			BGMPlaying:           "bgmPlaying",
		},
	}
}

// ProgressKeys lists every key cleared by a full reset, theme excluded.
func (c Config) ProgressKeys() []string {
	k := c.Keys
	return []string{
		k.Balance,
		k.TotalClicks,
		k.ManualClicks,
		k.AgentClicks,
		k.UpgradeLevel,
		k.DarkModeUnlocked,
		k.SynthwaveUnlocked,
		k.MaritimeUnlocked,
		k.BGMUnlocked,
		k.VCInvestmentUnlocked,
		k.EarnedAchievements,
		k.UnlockedLore,
		k.BGMVolume,
		k.BGMPlaying,
	}
}

// TrueLiteral is the only stored value read back as an unlocked flag.
const TrueLiteral = "true"

// Auto-clicker timing.
const (
	BasePeriod = 2000 * time.Millisecond
	RateFactor = 0.95
)

// Deduction animation timing.
const (
	DeductionDelay    = 200 * time.Millisecond
	DeductionDuration = 800 * time.Millisecond
	FrameInterval     = 16 * time.Millisecond
)
