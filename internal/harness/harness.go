package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/roach88/diagramlab/internal/blueprint"
	"github.com/roach88/diagramlab/internal/engine"
	"github.com/roach88/diagramlab/internal/eventlog"
	"github.com/roach88/diagramlab/internal/persist"
	"github.com/roach88/diagramlab/internal/session"
	"github.com/roach88/diagramlab/internal/store"
	"github.com/roach88/diagramlab/internal/testutil"
)

// epoch is the fixed start of every scenario clock.
var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Harness runs one scenario against a real session on a manual clock.
type Harness struct {
	store   *store.Store
	manager *persist.Manager
	session *session.Session
	clock   *testutil.ManualClock
	sched   *testutil.ManualScheduler
	logger  *slog.Logger
}

// Run executes a scenario and returns its result.
//
// Each run gets a fresh in-memory database, a manual clock and fixed ids,
// so the trace is identical across runs. After the flow the game is saved
// and its events flushed, which is what stored_row assertions query.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testutil.NewManualClock(epoch)
	sched := testutil.NewManualScheduler(clock)

	prefix := scenario.SessionPrefix
	if prefix == "" {
		prefix = "scenario"
	}
	sess := session.New(session.Config{
		HistorySize:      50,
		EventLogCapacity: 10000,
		Logger:           logger,
		EngineOptions: []engine.Option{
			engine.WithTimeSource(clock),
			engine.WithScheduler(sched),
			engine.WithIDGenerator(testutil.NewFixedIDGenerator(prefix)),
			engine.WithTransitionDelay(scenario.TransitionDelay),
		},
		LogOptions: []eventlog.Option{eventlog.WithNow(clock.Now)},
		CommandIDs: testutil.NewFixedIDGenerator("command"),
		Now:        clock.Now,
	})

	h := &Harness{
		store:   st,
		manager: persist.NewManager(st, persist.WithLogger(logger)),
		session: sess,
		clock:   clock,
		sched:   sched,
		logger:  logger,
	}

	if err := h.start(scenario); err != nil {
		return nil, err
	}

	ctx := context.Background()
	result := NewResult()
	if err := h.executeSetup(scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeFlow(scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	state := sess.State()
	if err := h.manager.Save(ctx, scenario.Name, state.SessionID, sess.Engine().Snapshot()); err != nil {
		return nil, fmt.Errorf("failed to save game: %w", err)
	}
	if _, err := sess.Flush(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to flush events: %w", err)
	}

	result.AddTrace(sess.Log().Events())
	result.State = stateMap(state)

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) start(scenario *Scenario) error {
	if scenario.Sequence {
		seq, err := blueprint.LoadSequence(scenario.Blueprint)
		if err != nil {
			return fmt.Errorf("failed to load sequence: %w", err)
		}
		if err := h.session.InitializeSequence(seq); err != nil {
			return fmt.Errorf("failed to start sequence: %w", err)
		}
		return nil
	}
	bp, err := blueprint.Load(scenario.Blueprint)
	if err != nil {
		return fmt.Errorf("failed to load blueprint: %w", err)
	}
	if err := h.session.Initialize(bp); err != nil {
		return fmt.Errorf("failed to start game: %w", err)
	}
	return nil
}

// executeSetup runs setup steps. Any rejection aborts the scenario.
func (h *Harness) executeSetup(setup []Step) error {
	for i, step := range setup {
		if _, err := h.do(step); err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		h.logger.Debug("setup step completed", "step", i, "action", step.Type)
	}
	return nil
}

// executeFlow runs flow steps and checks their expect clauses. Rejections
// are outcomes, not failures, unless an expect clause says otherwise.
func (h *Harness) executeFlow(flow []FlowStep, result *Result) error {
	for i, step := range flow {
		res, err := h.do(step.Step)
		out := StepOutcome{Step: i, Action: describe(step.Step)}
		if err != nil {
			out.Error = err.Error()
		} else if res != nil {
			out.IsCorrect = res.IsCorrect
			out.ScoreDelta = res.ScoreDelta
		}
		result.Steps = append(result.Steps, out)

		if step.Expect != nil {
			for _, msg := range checkExpect(i, step.Expect, res, err) {
				result.AddError(msg)
			}
		}
		h.logger.Debug("flow step completed",
			"step", i,
			"action", out.Action,
			"correct", out.IsCorrect,
			"error", out.Error,
		)
	}
	return nil
}

func (h *Harness) do(step Step) (*engine.ActionResult, error) {
	switch {
	case step.Advance > 0:
		h.sched.Advance(step.Advance)
		return nil, nil
	case step.AdvanceScene:
		ok, err := h.session.AdvanceScene()
		if err != nil {
			return nil, err
		}
		return &engine.ActionResult{IsCorrect: ok}, nil
	default:
		return h.session.Apply(step.Action)
	}
}

func describe(step Step) string {
	switch {
	case step.Advance > 0:
		return "advance " + step.Advance.String()
	case step.AdvanceScene:
		return "advance_scene"
	default:
		return string(step.Type)
	}
}

func checkExpect(i int, want *ExpectClause, res *engine.ActionResult, err error) []string {
	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf("flow[%d]: ", i)+fmt.Sprintf(format, args...))
	}

	if want.Error != "" {
		switch {
		case err == nil:
			fail("expected error %q, got success", want.Error)
		case !errorMatches(err, want.Error):
			fail("expected error %q, got %v", want.Error, err)
		}
		return errs
	}
	if err != nil {
		fail("unexpected error: %v", err)
		return errs
	}
	if res == nil {
		fail("no result")
		return errs
	}
	if want.Correct != nil && res.IsCorrect != *want.Correct {
		fail("expected correct=%t, got %t", *want.Correct, res.IsCorrect)
	}
	if want.ScoreDelta != nil && res.ScoreDelta != *want.ScoreDelta {
		fail("expected score_delta=%d, got %d", *want.ScoreDelta, res.ScoreDelta)
	}
	if !matchArgs(normalizeMap(res.Data), normalizeMap(want.Data)) {
		fail("expected data %v, got %v", want.Data, res.Data)
	}
	return errs
}

func errorMatches(err error, want string) bool {
	var re *engine.RuntimeError
	if errors.As(err, &re) && string(re.Code) == want {
		return true
	}
	return strings.Contains(err.Error(), want)
}

// stateMap converts the state to generic JSON values.
func stateMap(s engine.State) map[string]any {
	data, err := json.Marshal(s)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{}
	}
	return m
}

// normalize round-trips v through JSON so YAML-decoded expectations and
// Go-typed payloads compare equal.
func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out, _ := normalize(m).(map[string]any)
	return out
}

// valuesEqual compares normalized values.
func valuesEqual(actual, expected any) bool {
	return reflect.DeepEqual(normalize(actual), normalize(expected))
}
