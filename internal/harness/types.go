package harness

import (
	"github.com/roach88/diagramlab/internal/eventlog"
)

// TraceEvent is one recorded game event, without its wall-clock timestamp.
type TraceEvent struct {
	Seq     int64          `json:"seq"`
	Kind    eventlog.Kind  `json:"kind"`
	Payload map[string]any `json:"payload,omitempty"`
}

// StepOutcome is what one flow step produced.
type StepOutcome struct {
	Step       int    `json:"step"`
	Action     string `json:"action"`
	IsCorrect  bool   `json:"is_correct"`
	ScoreDelta int    `json:"score_delta"`
	Error      string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace is the session's event log in seq order.
	Trace []TraceEvent `json:"trace"`

	Steps []StepOutcome `json:"steps"`

	// Errors lists failed expectations and assertions.
	Errors []string `json:"errors,omitempty"`

	// State is the final game state as generic JSON, for final_state
	// assertions.
	State map[string]any `json:"state,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Steps:  []StepOutcome{},
		Errors: []string{},
		State:  make(map[string]any),
	}
}

// AddError records a failure.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends log events to the trace.
func (r *Result) AddTrace(events []eventlog.Event) {
	for _, ev := range events {
		r.Trace = append(r.Trace, TraceEvent{
			Seq:     ev.Seq,
			Kind:    ev.Kind,
			Payload: normalizeMap(ev.Payload),
		})
	}
}
