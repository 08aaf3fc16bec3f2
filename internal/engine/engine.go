package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/roach88/diagramlab/internal/blueprint"
	"github.com/roach88/diagramlab/internal/eventlog"
	"github.com/roach88/diagramlab/internal/mechanic"
	"github.com/roach88/diagramlab/internal/visibility"
)

// DefaultTransitionDelay is how long a decided transition stays pending so
// the UI can play the exit animation.
const DefaultTransitionDelay = 1500 * time.Millisecond

// EventSink receives the engine's semantic events. eventlog.Log implements it.
type EventSink interface {
	Record(kind eventlog.Kind, payload map[string]any)
}

// sessionResetter is implemented by sinks that keep per-session state. They
// are reset whenever a new session id starts.
type sessionResetter interface {
	Reset(sessionID string)
}

// Engine owns the state of one game session.
//
// Every entry point takes the engine mutex, applies one short atomic change
// and releases it. Subscribers are notified after the mutex is released, with
// a copy of the new state.
type Engine struct {
	mu sync.Mutex

	registry  *mechanic.Registry
	logger    *slog.Logger
	clock     *Clock
	now       TimeSource
	ids       IDGenerator
	scheduler Scheduler
	sink      EventSink
	delay     time.Duration

	bp    *blueprint.Blueprint
	seq   *blueprint.Sequence
	state State

	transitionTimer timerSlot
	deadlineTimer   timerSlot

	subs    map[int]func(State)
	nextSub int
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry replaces the built-in mechanic registry.
func WithRegistry(r *mechanic.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithTimeSource sets the wall clock used for scoring and deadlines.
func WithTimeSource(ts TimeSource) Option {
	return func(e *Engine) { e.now = ts }
}

// WithIDGenerator sets the session id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithScheduler sets the scheduler for transition and deadline timers.
func WithScheduler(s Scheduler) Option {
	return func(e *Engine) { e.scheduler = s }
}

// WithEventSink mirrors engine events into sink.
func WithEventSink(sink EventSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithTransitionDelay sets how long a transition stays pending. Zero or
// negative applies transitions synchronously.
func WithTransitionDelay(d time.Duration) Option {
	return func(e *Engine) { e.delay = d }
}

// New creates an engine in the INIT phase.
func New(opts ...Option) *Engine {
	e := &Engine{
		registry:  mechanic.NewRegistry(),
		logger:    slog.Default(),
		clock:     NewClock(),
		now:       SystemTime{},
		ids:       UUIDv7Generator{},
		scheduler: RealScheduler{},
		delay:     DefaultTransitionDelay,
		state:     State{Phase: PhaseInit},
		subs:      make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the mechanic registry in use.
func (e *Engine) Registry() *mechanic.Registry {
	return e.registry
}

// Blueprint returns the blueprint of the current scene, or nil before
// Initialize.
func (e *Engine) Blueprint() *blueprint.Blueprint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bp
}

// State returns a deep copy of the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Snapshot returns a deep copy of the current state for persistence.
func (e *Engine) Snapshot() Snapshot {
	return e.State()
}

// Subscribe registers fn to receive the state after every committed change.
// The returned function unregisters it.
func (e *Engine) Subscribe(fn func(State)) func() {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

// Initialize starts a new session on bp. An unknown starting mechanic is
// reported and leaves the engine untouched.
func (e *Engine) Initialize(bp *blueprint.Blueprint) error {
	if bp == nil {
		return errors.New("initialize: nil blueprint")
	}
	start := bp.StartingMechanic()
	if _, err := e.registry.Lookup(start); err != nil {
		e.logger.Warn("initialize rejected", "blueprint", bp.ID, "mechanic", start, "error", err)
		return fmt.Errorf("initialize %s: %w", bp.ID, err)
	}

	e.mu.Lock()
	e.seq = nil
	e.initializeLocked(bp, e.ids.Generate(), nil)
	e.mu.Unlock()

	e.notify()
	return nil
}

// InitializeSequence starts a multi-scene session on the first scene of seq.
func (e *Engine) InitializeSequence(seq *blueprint.Sequence) error {
	if seq == nil || len(seq.Scenes) == 0 {
		return errors.New("initialize sequence: no scenes")
	}
	for i := range seq.Scenes {
		if _, err := e.registry.Lookup(seq.Scenes[i].StartingMechanic()); err != nil {
			return fmt.Errorf("initialize sequence %s scene %s: %w", seq.ID, seq.Scenes[i].ID, err)
		}
	}

	ids := make([]string, len(seq.Scenes))
	for i, s := range seq.Scenes {
		ids[i] = s.ID
	}
	ms := &MultiSceneState{
		SequenceID:   seq.ID,
		SceneIDs:     ids,
		SceneResults: []SceneResult{},
	}

	e.mu.Lock()
	e.seq = seq
	e.initializeLocked(&seq.Scenes[0], e.ids.Generate(), ms)
	e.mu.Unlock()

	e.notify()
	return nil
}

// AdvanceScene moves a completed scene on to the next one. It reports false
// when the sequence has no further scenes.
func (e *Engine) AdvanceScene() (bool, error) {
	e.mu.Lock()
	if e.seq == nil || e.state.MultiScene == nil {
		e.mu.Unlock()
		return false, errors.New("advance scene: no active sequence")
	}
	if e.state.Phase != PhaseComplete {
		e.mu.Unlock()
		return false, fmt.Errorf("advance scene: scene %s is %s", e.bp.ID, e.state.Phase)
	}
	ms := e.state.Clone().MultiScene
	next := ms.CurrentSceneIndex + 1
	if next >= len(e.seq.Scenes) {
		e.mu.Unlock()
		return false, nil
	}
	ms.CurrentSceneIndex = next
	e.initializeLocked(&e.seq.Scenes[next], e.state.SessionID, ms)
	e.mu.Unlock()

	e.notify()
	return true, nil
}

// Reset restarts the current scene with a fresh session id.
func (e *Engine) Reset() {
	e.mu.Lock()
	if e.bp == nil {
		e.transitionTimer.cancel()
		e.deadlineTimer.cancel()
		e.state = State{Phase: PhaseInit, Version: e.clock.Next()}
		e.mu.Unlock()
		e.notify()
		return
	}
	var ms *MultiSceneState
	if e.state.MultiScene != nil {
		ms = e.state.Clone().MultiScene
	}
	e.initializeLocked(e.bp, e.ids.Generate(), ms)
	e.mu.Unlock()

	e.notify()
}

// Restore replaces the session state with snap. bp must be the blueprint
// the snapshot was taken from.
func (e *Engine) Restore(bp *blueprint.Blueprint, snap Snapshot) error {
	if bp == nil {
		return errors.New("restore: nil blueprint")
	}
	if snap.BlueprintID != bp.ID {
		return fmt.Errorf("restore: snapshot is for blueprint %q, not %q", snap.BlueprintID, bp.ID)
	}
	if snap.Phase == PhaseInit {
		return fmt.Errorf("restore: snapshot was never initialized")
	}
	if _, err := e.registry.Lookup(snap.MultiMode.CurrentMode); err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	e.mu.Lock()
	e.transitionTimer.cancel()
	e.deadlineTimer.cancel()
	if r, ok := e.sink.(sessionResetter); ok && snap.SessionID != e.state.SessionID {
		r.Reset(snap.SessionID)
	}
	e.bp = bp
	e.state = snap.Clone()
	if e.clock.Current() < snap.Version {
		e.clock = NewClockAt(snap.Version)
	}
	e.refreshVisibilityLocked()

	switch e.state.Phase {
	case PhasePendingTransition:
		if pt := e.state.MultiMode.PendingTransition; pt != nil {
			e.armTransitionLocked(pt.To)
		} else {
			e.state.Phase = PhaseActive
		}
	case PhaseActive:
		e.armDeadlineLocked()
	}
	e.commit()
	e.logger.Info("session restored",
		"session", e.state.SessionID,
		"blueprint", bp.ID,
		"mode", e.state.MultiMode.CurrentMode,
		"phase", e.state.Phase,
	)
	e.mu.Unlock()

	e.notify()
	return nil
}

func (e *Engine) initializeLocked(bp *blueprint.Blueprint, sessionID string, ms *MultiSceneState) {
	e.transitionTimer.cancel()
	e.deadlineTimer.cancel()

	if r, ok := e.sink.(sessionResetter); ok && sessionID != e.state.SessionID {
		r.Reset(sessionID)
	}

	e.bp = bp
	now := e.now.Now()
	e.state = State{
		SessionID:       sessionID,
		BlueprintID:     bp.ID,
		Phase:           PhaseActive,
		AvailableLabels: availableLabels(bp, nil),
		PlacedLabels:    []PlacedLabel{},
		CompletedZones:  []string{},
		VisibleZones:    []string{},
		BlockedZones:    []string{},
		MultiMode: MultiModeState{
			CompletedModes: []blueprint.MechanicKind{},
			ModeHistory:    []ModeHistoryEntry{},
			AvailableModes: bp.MechanicKinds(),
			EnteredModes:   []blueprint.MechanicKind{},
		},
		MultiScene: ms,
		StartedAt:  now,
	}
	e.enterModeLocked(bp.StartingMechanic())
	e.commit()

	e.logger.Info("session initialized",
		"session", sessionID,
		"blueprint", bp.ID,
		"mode", e.state.MultiMode.CurrentMode,
		"max_score", e.state.MaxScore,
	)
}

// run executes fn under the engine mutex. Rejections are logged and
// recorded; subscribers hear about committed changes only.
func (e *Engine) run(action ActionType, fn func() (*ActionResult, error)) (*ActionResult, error) {
	e.mu.Lock()
	before := e.state.Version

	var res *ActionResult
	var err error
	switch {
	case e.bp == nil || e.state.Phase == PhaseInit:
		err = ErrNotInitialized
	case e.state.Phase == PhaseComplete && action != ActionRemove:
		err = &RuntimeError{Code: ErrCodeGameOver, Message: "game already complete", Action: action}
	default:
		res, err = fn()
	}
	if err != nil {
		res = nil
		e.rejectLocked(action, err)
	}
	changed := e.state.Version != before
	e.mu.Unlock()

	if changed {
		e.notify()
	}
	return res, err
}

func (e *Engine) rejectLocked(action ActionType, err error) {
	var re *RuntimeError
	if errors.As(err, &re) && re.Action == "" {
		re.Action = action
	}
	if errors.Is(err, ErrUnknownMechanic) {
		e.logger.Warn("action rejected", "action", action, "error", err)
	} else {
		e.logger.Debug("action rejected", "action", action, "error", err)
	}
	e.record(eventlog.KindError, map[string]any{
		"action": string(action),
		"error":  err.Error(),
	})
}

// commit stamps a new version on the state.
func (e *Engine) commit() {
	e.state.Version = e.clock.Next()
}

func (e *Engine) record(kind eventlog.Kind, payload map[string]any) {
	if e.sink != nil {
		e.sink.Record(kind, payload)
	}
}

func (e *Engine) notify() {
	e.mu.Lock()
	if len(e.subs) == 0 {
		e.mu.Unlock()
		return
	}
	ids := make([]int, 0, len(e.subs))
	for id := range e.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(State), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, e.subs[id])
	}
	snap := e.state.Clone()
	e.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (e *Engine) current() blueprint.MechanicKind {
	return e.state.MultiMode.CurrentMode
}

func (e *Engine) requireMode(kinds ...blueprint.MechanicKind) error {
	if slices.Contains(kinds, e.current()) {
		return nil
	}
	return newInactive(kinds[0], e.current())
}

// modeElapsed is the time spent in the current mechanic.
func (e *Engine) modeElapsed() time.Duration {
	return e.now.Now().Sub(e.state.MultiMode.ModeStartedAt)
}

func (e *Engine) scoring() blueprint.ScoringConfig {
	return e.bp.MechanicScoring(e.current())
}

// addScore applies delta, clamping the total at zero, and returns the change
// actually applied.
func (e *Engine) addScore(delta int) int {
	next := max(e.state.Score+delta, 0)
	applied := next - e.state.Score
	e.state.Score = next
	return applied
}

// doneZonesLocked is what visibility treats as completed: correctly labeled
// zones plus zones found in click-to-identify or description matching.
// Found zones live in their mechanic's progress slot and never enter
// CompletedZones, which stays the record of correct placements.
func (e *Engine) doneZonesLocked() []string {
	done := slices.Clone(e.state.CompletedZones)
	add := func(id string) {
		if id != "" && !slices.Contains(done, id) {
			done = append(done, id)
		}
	}
	if p := e.state.Progress.Identification; p != nil {
		for _, id := range p.CompletedZoneIDs {
			add(id)
		}
	}
	if p := e.state.Progress.DescriptionMatching; p != nil {
		for _, zoneID := range p.Matched {
			add(zoneID)
		}
	}
	return done
}

// refreshVisibilityLocked recomputes visible and blocked zones and records a
// zone_revealed event for every zone that became visible.
func (e *Engine) refreshVisibilityLocked() {
	res := visibility.Compute(e.bp.Zones, e.bp.TemporalConstraints, e.doneZonesLocked())
	for _, id := range res.Visible {
		if !slices.Contains(e.state.VisibleZones, id) {
			e.record(eventlog.KindZoneRevealed, map[string]any{"zone_id": id})
		}
	}
	e.state.VisibleZones = res.Visible
	e.state.BlockedZones = res.Blocked
}

// availableLabels lists label and distractor ids in blueprint order, minus
// the placed ones.
func availableLabels(bp *blueprint.Blueprint, placed []PlacedLabel) []string {
	isPlaced := func(id string) bool {
		return slices.ContainsFunc(placed, func(p PlacedLabel) bool { return p.LabelID == id })
	}
	out := make([]string, 0, len(bp.Labels)+len(bp.DistractorLabels))
	for _, l := range bp.Labels {
		if !isPlaced(l.ID) {
			out = append(out, l.ID)
		}
	}
	for _, d := range bp.DistractorLabels {
		if !isPlaced(d.ID) {
			out = append(out, d.ID)
		}
	}
	return out
}
