package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", event.Seq, formatEvent(event))
		}
	}
	return buf.String()
}

// formatEvent renders an event on one line.
func formatEvent(ev TraceEvent) string {
	parts := []string{ev.Type}
	if ev.Rule != "" {
		parts = append(parts, "rule="+ev.Rule)
	}
	if ev.Request != "" {
		parts = append(parts, "request="+ev.Request)
	}
	if ev.Connector != "" {
		parts = append(parts, "connector="+ev.Connector)
	}
	if ev.Detail != "" {
		parts = append(parts, fmt.Sprintf("%q", ev.Detail))
	}
	return strings.Join(parts, " ")
}

// assertAnalysis checks the program verdict code.
func assertAnalysis(result *Result, a Assertion) error {
	actual := "no program analyzed"
	if result.Analysis != nil {
		if result.Analysis.Code == a.Code {
			return nil
		}
		actual = result.Analysis.Code
		if result.Analysis.Message != "" {
			actual += ": " + result.Analysis.Message
		}
	}
	return &AssertionError{
		Type:     AssertAnalysis,
		Expected: a.Code,
		Actual:   actual,
	}
}

// assertEligible checks the exact ordered eligible list of a request.
func assertEligible(result *Result, a Assertion) error {
	res, ok := result.Verdicts[a.Request]
	if !ok {
		return &AssertionError{
			Type:     AssertEligible,
			Expected: fmt.Sprintf("request %s evaluated", a.Request),
			Actual:   requestFailure(result, a.Request),
		}
	}
	got := make([]string, len(res.Eligible))
	for i, c := range res.Eligible {
		got[i] = c.Connector
	}
	want := a.Connectors
	if want == nil {
		want = []string{}
	}
	if slices.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertEligible,
		Expected: fmt.Sprintf("request %s eligible %v", a.Request, want),
		Actual:   fmt.Sprintf("%v", got),
		Trace:    result.Trace,
	}
}

// assertRejected checks that a connector was rejected for a request and,
// when Reason is set, that the rejection reason mentions it.
func assertRejected(result *Result, a Assertion) error {
	res, ok := result.Verdicts[a.Request]
	if !ok {
		return &AssertionError{
			Type:     AssertRejected,
			Expected: fmt.Sprintf("request %s evaluated", a.Request),
			Actual:   requestFailure(result, a.Request),
		}
	}
	for _, r := range res.Rejected {
		if r.Choice.Connector != a.Connector {
			continue
		}
		if a.Reason == "" || strings.Contains(r.Reason, a.Reason) {
			return nil
		}
		return &AssertionError{
			Type:     AssertRejected,
			Expected: fmt.Sprintf("%s rejected for %q", a.Connector, a.Reason),
			Actual:   fmt.Sprintf("rejected for %q", r.Reason),
		}
	}
	return &AssertionError{
		Type:     AssertRejected,
		Expected: fmt.Sprintf("request %s rejects %s", a.Request, a.Connector),
		Actual:   "not rejected",
		Trace:    result.Trace,
	}
}

func requestFailure(result *Result, name string) string {
	if msg, ok := result.RequestErrors[name]; ok {
		return "error: " + msg
	}
	return "not evaluated"
}

// matchEvent reports whether ev satisfies the assertion's event filters.
// Empty filters match anything.
func matchEvent(ev TraceEvent, a Assertion) bool {
	if ev.Type != a.Event {
		return false
	}
	if a.Rule != "" && ev.Rule != a.Rule {
		return false
	}
	if a.Request != "" && ev.Request != a.Request {
		return false
	}
	if a.Connector != "" && ev.Connector != a.Connector {
		return false
	}
	if a.Detail != "" && ev.Detail != a.Detail {
		return false
	}
	return true
}

// assertTraceContains checks that at least one event matches.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if matchEvent(ev, a) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: formatEvent(TraceEvent{Type: a.Event, Rule: a.Rule, Request: a.Request, Connector: a.Connector, Detail: a.Detail}),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceCount checks the exact number of matching events.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if matchEvent(ev, a) {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%d %s event(s)", a.Count, a.Event),
		Actual:   fmt.Sprintf("%d", count),
		Trace:    trace,
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertAnalysis:
			err = assertAnalysis(result, a)
		case AssertEligible:
			err = assertEligible(result, a)
		case AssertRejected:
			err = assertRejected(result, a)
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}
