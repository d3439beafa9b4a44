package harness

import (
	"strings"

	"github.com/roach88/idle/internal/game"
	"github.com/roach88/idle/internal/notify"
)

// StepResult is the outcome of one step.
type StepResult struct {
	Index   int    `json:"index"`
	Do      string `json:"do"`
	Item    string `json:"item,omitempty"`
	Outcome string `json:"outcome"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every step matched its expectation and every
	// assertion held.
	Pass bool `json:"pass"`

	// Trace holds every event raised, in sequence order.
	Trace []notify.Event `json:"trace"`

	Steps []StepResult `json:"steps"`

	// Errors explains every failed expectation or assertion.
	Errors []string `json:"errors,omitempty"`

	// Final is the game status after the last step.
	Final game.Status `json:"final"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []notify.Event{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// TraceText renders the trace one event per line, the golden file format.
func (r *Result) TraceText() string {
	var b strings.Builder
	for _, e := range r.Trace {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}
