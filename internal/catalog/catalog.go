// Package catalog loads the static game content: achievements, lore entries,
// shop items and the economy curve.
//
// Content is written in CUE. Every source is unified with the #Catalog
// definition in schema.cue, required to be concrete, decoded into Go values
// and then checked for cross-references CUE cannot express (unique ids,
// ordered price tiers, exactly one repeatable upgrade).
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSource string

//go:embed catalog.cue
var defaultSource string

// Group tags the kind of fact an achievement is evaluated against.
type Group string

const (
	GroupClick          Group = "click"
	GroupManualClicks   Group = "manual_clicks"
	GroupAgentClicks    Group = "agent_clicks"
	GroupPurchase       Group = "purchase"
	GroupLore           Group = "lore"
	GroupShopCompletion Group = "shop_completion"
	GroupNameHover      Group = "name_hover"
	GroupNameClick      Group = "name_click"
)

// Rule kinds.
const (
	RuleAtLeast    = "at_least"
	RuleReachTotal = "reach_total"
	RuleFlag       = "flag"
	RuleComplete   = "complete"
)

// Item kinds.
const (
	KindUpgrade = "upgrade"
	KindUnlock  = "unlock"
)

// Catalog is the decoded content.
type Catalog struct {
	Economy      Economy       `json:"economy"`
	Achievements []Achievement `json:"achievements"`
	Lore         []Lore        `json:"lore"`
	Items        []Item        `json:"items"`
}

// Economy parameterises the upgrade price curve and auto-clicker rate.
type Economy struct {
	BasePeriodMS     int64   `json:"base_period_ms"`
	RateFactor       float64 `json:"rate_factor"`
	MaxLevel         int     `json:"max_level"`
	InvestedMaxLevel int     `json:"invested_max_level"`
	Tiers            []Tier  `json:"tiers"`
}

// BasePeriod returns the level-1 auto-clicker period.
func (e Economy) BasePeriod() time.Duration {
	return time.Duration(e.BasePeriodMS) * time.Millisecond
}

// Tier prices levels from FromLevel up to the next tier's FromLevel as
// floor(BaseCost * Growth^(level-FromLevel)).
type Tier struct {
	FromLevel int     `json:"from_level"`
	BaseCost  int64   `json:"base_cost"`
	Growth    float64 `json:"growth"`
}

// Achievement is one catalog entry.
type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Group       Group  `json:"group"`
	Rule        Rule   `json:"rule"`
}

// Rule selects the predicate an achievement is evaluated with.
// Threshold is only meaningful for at_least.
type Rule struct {
	Kind      string `json:"kind"`
	Threshold int64  `json:"threshold,omitempty"`
}

// Lore is a purchasable narrative entry attached to a timeline experience.
type Lore struct {
	ID         string `json:"id"`
	Experience string `json:"experience"`
	Title      string `json:"title"`
	Cost       int64  `json:"cost"`
	Text       string `json:"text"`
}

// Item is a shop entry: the repeatable upgrade or a one-time unlock.
type Item struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Kind          string `json:"kind"`
	Cost          int64  `json:"cost,omitempty"`
	Feature       string `json:"feature,omitempty"`
	Cosmetic      bool   `json:"cosmetic,omitempty"`
	RequiresLevel int    `json:"requires_level,omitempty"`
}

// Error reports an invalid catalog.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Compile("catalog.cue", []byte(defaultSource))
}

// MustDefault is Default for package initialisation and tests.
// Panics if the embedded catalog is invalid.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded catalog invalid: %v", err))
	}
	return c
}

// Load reads and compiles a catalog file.
func Load(path string) (*Catalog, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Compile(path, src)
}

// Compile unifies src with the catalog schema and decodes it.
func Compile(filename string, src []byte) (*Catalog, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	data := ctx.CompileBytes(src, cue.Filename(filename))
	if err := data.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Catalog")).Unify(data)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var c Catalog
	if err := v.Decode(&c); err != nil {
		return nil, formatCUEError(err)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// validate checks the constraints the schema cannot.
func (c *Catalog) validate() error {
	seen := make(map[string]bool)
	for _, a := range c.Achievements {
		if seen[a.ID] {
			return &Error{Field: "achievements", Message: fmt.Sprintf("duplicate id %q", a.ID)}
		}
		seen[a.ID] = true
	}

	seen = make(map[string]bool)
	for _, l := range c.Lore {
		if seen[l.ID] {
			return &Error{Field: "lore", Message: fmt.Sprintf("duplicate id %q", l.ID)}
		}
		seen[l.ID] = true
	}

	seen = make(map[string]bool)
	features := make(map[string]bool)
	upgrades := 0
	for _, it := range c.Items {
		if seen[it.ID] {
			return &Error{Field: "items", Message: fmt.Sprintf("duplicate id %q", it.ID)}
		}
		seen[it.ID] = true
		if it.Kind == KindUpgrade {
			upgrades++
			continue
		}
		if features[it.Feature] {
			return &Error{Field: "items", Message: fmt.Sprintf("feature %q sold twice", it.Feature)}
		}
		features[it.Feature] = true
	}
	if upgrades != 1 {
		return &Error{Field: "items", Message: fmt.Sprintf("want exactly one upgrade item, got %d", upgrades)}
	}

	tiers := c.Economy.Tiers
	if tiers[0].FromLevel != 0 {
		return &Error{Field: "economy.tiers", Message: "first tier must start at level 0"}
	}
	for i := 1; i < len(tiers); i++ {
		if tiers[i].FromLevel <= tiers[i-1].FromLevel {
			return &Error{Field: "economy.tiers", Message: "tiers must be in increasing from_level order"}
		}
	}

	return nil
}

// Item returns the item with id.
func (c *Catalog) Item(id string) (Item, bool) {
	for _, it := range c.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Upgrade returns the repeatable upgrade item.
func (c *Catalog) Upgrade() Item {
	for _, it := range c.Items {
		if it.Kind == KindUpgrade {
			return it
		}
	}
	return Item{}
}

// LoreEntry returns the lore entry with id.
func (c *Catalog) LoreEntry(id string) (Lore, bool) {
	for _, l := range c.Lore {
		if l.ID == id {
			return l, true
		}
	}
	return Lore{}, false
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &Error{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
