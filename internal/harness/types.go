package harness

import (
	"github.com/roach88/routegraph/internal/analyzer"
	"github.com/roach88/routegraph/internal/routing"
)

// Trace event types.
const (
	EventContext      = "context"       // one context that passed every check
	EventAnalysis     = "analysis"      // program verdict: "ok" or an error code
	EventGraph        = "graph"         // merchant graph snapshot built
	EventCycle        = "cycle"         // cycle warning reported by the build
	EventEligible     = "eligible"      // candidate kept for a request
	EventRejected     = "rejected"      // candidate dropped for a request
	EventNoEligible   = "no_eligible"   // every candidate of a request was dropped
	EventRequestError = "request_error" // request could not be evaluated
)

// AnalysisOK is the analysis code of a program without contradictions.
const AnalysisOK = "ok"

// TraceEvent is one observable step of a scenario run.
// Only the fields relevant to Type are set.
type TraceEvent struct {
	Type      string `json:"type"`
	Seq       int64  `json:"seq"`
	Rule      string `json:"rule,omitempty"`
	Request   string `json:"request,omitempty"`
	Connector string `json:"connector,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// AnalysisOutcome is the verdict on a scenario's program.
type AnalysisOutcome struct {
	Code    string           `json:"code"`
	Rule    string           `json:"rule,omitempty"`
	Message string           `json:"message,omitempty"`
	Report  *analyzer.Report `json:"report,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace lists every event in the order it happened.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed assertion.
	Errors []string `json:"errors,omitempty"`

	// Analysis is nil when the scenario has no program.
	Analysis *AnalysisOutcome `json:"analysis,omitempty"`

	// Verdicts maps request names to their filter results.
	Verdicts map[string]*routing.FilterResult `json:"verdicts,omitempty"`

	// RequestErrors maps request names to evaluation errors other than
	// routing.ErrNoEligibleConnector.
	RequestErrors map[string]string `json:"request_errors,omitempty"`

	seq func() int64
}

// NewResult creates a passing result with an empty trace.
func NewResult() *Result {
	var n int64
	return &Result{
		Pass:          true,
		Trace:         []TraceEvent{},
		Errors:        []string{},
		Verdicts:      make(map[string]*routing.FilterResult),
		RequestErrors: make(map[string]string),
		seq: func() int64 {
			n++
			return n
		},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// record appends ev to the trace with the next sequence number.
func (r *Result) record(ev TraceEvent) {
	ev.Seq = r.seq()
	r.Trace = append(r.Trace, ev)
}
