package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/idle/internal/notify"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string         // Assertion type for categorization
	Expected string         // Human-readable expected outcome
	Actual   string         // Human-readable actual outcome
	Trace    []notify.Event // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  %s\n", event)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages, in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertFinalState:
			err = assertFinalState(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func matches(e notify.Event, kind, id string) bool {
	return string(e.Kind) == kind && (id == "" || e.ID == id)
}

func describe(kind, id string) string {
	if id == "" {
		return kind
	}
	return kind + " " + id
}

// assertTraceContains checks that at least one event matches kind and id.
func assertTraceContains(trace []notify.Event, a Assertion) error {
	for _, e := range trace {
		if matches(e, a.Kind, a.ID) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describe(a.Kind, a.ID),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that events appear in the given order.
// Events don't need to be consecutive.
func assertTraceOrder(trace []notify.Event, a Assertion) error {
	positions := make(map[string]int)
	for i, e := range trace {
		key := describe(string(e.Kind), e.ID)
		if _, seen := positions[key]; !seen {
			positions[key] = i + 1 // 1-indexed for readability
		}
	}

	for _, want := range a.Events {
		if positions[want] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all events present: %v", a.Events),
				Actual:   fmt.Sprintf("missing event: %s", want),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Events); i++ {
		prev, curr := a.Events[i-1], a.Events[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %v", a.Events),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks the number of events matching kind and id.
func assertTraceCount(trace []notify.Event, a Assertion) error {
	count := 0
	for _, e := range trace {
		if matches(e, a.Kind, a.ID) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, describe(a.Kind, a.ID)),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState subset-matches expect against the final status.
//
// Both sides go through JSON so YAML ints, Go ints and JSON numbers compare
// equal, and lists compare element by element.
func assertFinalState(result *Result, a Assertion) error {
	actual, err := toGeneric(result.Final)
	if err != nil {
		return fmt.Errorf("encode final state: %w", err)
	}
	expected, err := toGeneric(a.Expect)
	if err != nil {
		return fmt.Errorf("encode expected state: %w", err)
	}

	actualMap, _ := actual.(map[string]any)
	expectedMap, _ := expected.(map[string]any)

	fields := make([]string, 0, len(expectedMap))
	for field := range expectedMap {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var mismatches []string
	for _, field := range fields {
		got, ok := actualMap[field]
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("%s: no such field", field))
			continue
		}
		if !subset(expectedMap[field], got) {
			mismatches = append(mismatches, fmt.Sprintf("%s: expected %v, got %v", field, expectedMap[field], got))
		}
	}
	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%v", a.Expect),
			Actual:   strings.Join(mismatches, "; "),
			Trace:    result.Trace,
		}
	}
	return nil
}

func toGeneric(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// subset reports whether want matches got. Objects match by subset, every
// other value (lists included) by equality. A nil list matches an empty one.
func subset(want, got any) bool {
	if wm, ok := want.(map[string]any); ok {
		gm, ok := got.(map[string]any)
		if !ok {
			return false
		}
		for k, wv := range wm {
			if !subset(wv, gm[k]) {
				return false
			}
		}
		return true
	}
	if wl, ok := want.([]any); ok && len(wl) == 0 {
		gl, _ := got.([]any)
		return len(gl) == 0
	}
	return reflect.DeepEqual(want, got)
}
