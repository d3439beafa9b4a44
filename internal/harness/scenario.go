package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted play session.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Steps are executed in order against one game session.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated against the trace and final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one player action.
type Step struct {
	// Do is the action: click, tick, buy, lore, hover_name, click_name,
	// theme, toggle_theme, volume, reset or reload.
	Do string `yaml:"do"`

	// Item is the shop item, lore entry or theme name.
	Item string `yaml:"item,omitempty"`

	// Times repeats click and tick. Zero means once.
	Times int `yaml:"times,omitempty"`

	// Value is the volume for volume steps.
	Value int `yaml:"value,omitempty"`

	// Expect is the expected outcome. Empty means "ok". With Times, every
	// repetition must have this outcome.
	Expect string `yaml:"expect,omitempty"`
}

// Step actions.
const (
	DoClick       = "click"
	DoTick        = "tick"
	DoBuy         = "buy"
	DoLore        = "lore"
	DoHoverName   = "hover_name"
	DoClickName   = "click_name"
	DoTheme       = "theme"
	DoToggleTheme = "toggle_theme"
	DoVolume      = "volume"
	DoReset       = "reset"
	DoReload      = "reload"
)

// Step outcomes.
const (
	OutcomeOK                = "ok"
	OutcomeInsufficientFunds = "insufficient_funds"
	OutcomeAlreadyOwned      = "already_owned"
	OutcomeMaxLevel          = "max_level"
	OutcomeLocked            = "locked"
	OutcomeUnknown           = "unknown"
	OutcomeInProgress        = "in_progress"
	OutcomeIdle              = "idle"
	OutcomeError             = "error"
)

var validOutcomes = map[string]bool{
	"":                       true,
	OutcomeOK:                true,
	OutcomeInsufficientFunds: true,
	OutcomeAlreadyOwned:      true,
	OutcomeMaxLevel:          true,
	OutcomeLocked:            true,
	OutcomeUnknown:           true,
	OutcomeInProgress:        true,
	OutcomeIdle:              true,
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type is trace_contains, trace_order, trace_count or final_state.
	Type string `yaml:"type"`

	// Kind and ID select events (trace_contains, trace_count).
	// An empty ID matches any id.
	Kind string `yaml:"kind,omitempty"`
	ID   string `yaml:"id,omitempty"`

	// Count is the expected number of matching events (trace_count).
	Count int `yaml:"count,omitempty"`

	// Events is the expected order, each written "kind id" (trace_order).
	Events []string `yaml:"events,omitempty"`

	// Expect is matched as a subset of the final status (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step) error {
	switch step.Do {
	case DoBuy, DoLore, DoTheme:
		if step.Item == "" {
			return fmt.Errorf("steps[%d]: item is required for %s", i, step.Do)
		}
	case DoClick, DoTick, DoHoverName, DoClickName, DoToggleTheme, DoVolume, DoReset, DoReload:
	case "":
		return fmt.Errorf("steps[%d]: do is required", i)
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", i, step.Do)
	}
	if step.Times < 0 {
		return fmt.Errorf("steps[%d]: times must be non-negative", i)
	}
	if !validOutcomes[step.Expect] {
		return fmt.Errorf("steps[%d]: unknown outcome %q", i, step.Expect)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
