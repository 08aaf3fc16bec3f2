package engine

import (
	"fmt"
	"slices"
	"time"

	"github.com/roach88/diagramlab/internal/blueprint"
	"github.com/roach88/diagramlab/internal/eventlog"
	"github.com/roach88/diagramlab/internal/mechanic"
	"github.com/roach88/diagramlab/internal/transition"
)

// CheckModeTransition evaluates the transitions out of the active mechanic.
// A satisfied transition is scheduled and returned; a finished mechanic with
// nowhere left to go completes the game.
func (e *Engine) CheckModeTransition() *blueprint.ModeTransition {
	e.mu.Lock()
	if e.bp == nil {
		e.mu.Unlock()
		return nil
	}
	before := e.state.Version
	t := e.checkTransitionLocked()
	changed := e.state.Version != before
	e.mu.Unlock()

	if changed {
		e.notify()
	}
	return t
}

// TransitionToMode switches to next immediately, cancelling any pending
// transition. Unknown mechanics are rejected without a state change.
func (e *Engine) TransitionToMode(next blueprint.MechanicKind) bool {
	_, err := e.run(ActionSwitchMode, func() (*ActionResult, error) {
		return nil, e.transitionToModeLocked(next)
	})
	return err == nil
}

// RequestModeSwitch honours a learner's request to move to next. Only
// user_choice transitions declared from the active mechanic allow it.
func (e *Engine) RequestModeSwitch(next blueprint.MechanicKind) bool {
	_, err := e.run(ActionSwitchMode, func() (*ActionResult, error) {
		return nil, e.requestModeSwitch(next)
	})
	return err == nil
}

func (e *Engine) requestModeSwitch(next blueprint.MechanicKind) error {
	if !transition.Allows(e.bp.ModeTransitions, e.current(), next) {
		return &RuntimeError{
			Code:    ErrCodeSwitchNotAllowed,
			Message: fmt.Sprintf("no user_choice transition to %s", next),
			Mode:    e.current(),
		}
	}
	return e.transitionToModeLocked(next)
}

func (e *Engine) triggerContextLocked() mechanic.TriggerContext {
	correct := 0
	for _, p := range e.state.PlacedLabels {
		if p.IsCorrect {
			correct++
		}
	}
	return mechanic.TriggerContext{
		CompletedZones:    e.state.CompletedZones,
		CorrectPlacements: correct,
		ModeStartedAt:     e.state.MultiMode.ModeStartedAt,
		Now:               e.now.Now(),
	}
}

// automaticExits are the transitions out of the active mechanic that may
// fire on their own. Transitions back into a completed mechanic are left to
// explicit requests so two finished mechanics cannot hand over forever.
func (e *Engine) automaticExits() []blueprint.ModeTransition {
	var out []blueprint.ModeTransition
	for _, t := range e.bp.TransitionsFrom(e.current()) {
		if t.Trigger == blueprint.TriggerUserChoice {
			continue
		}
		if slices.Contains(e.state.MultiMode.CompletedModes, t.To) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (e *Engine) evaluateLocked() *blueprint.ModeTransition {
	return transition.Evaluate(e.automaticExits(), e.current(), transition.Context{
		Registry:  e.registry,
		Progress:  &e.state.Progress,
		Blueprint: e.bp,
		Trigger:   e.triggerContextLocked(),
	})
}

func (e *Engine) finishedLocked() bool {
	return e.registry.Finished(e.current(), &e.state.Progress, e.bp, e.triggerContextLocked())
}

func (e *Engine) checkTransitionLocked() *blueprint.ModeTransition {
	if e.state.Phase != PhaseActive {
		return nil
	}
	if t := e.evaluateLocked(); t != nil {
		e.scheduleTransitionLocked(*t)
		return t
	}
	if e.finishedLocked() && len(e.automaticExits()) == 0 {
		e.completeLocked()
	}
	return nil
}

// afterProgressLocked runs after any action that can move a mechanic
// towards completion.
func (e *Engine) afterProgressLocked() {
	if e.state.Phase == PhaseActive {
		e.checkTransitionLocked()
	}
}

func (e *Engine) scheduleTransitionLocked(t blueprint.ModeTransition) {
	e.state.MultiMode.PendingTransition = &PendingTransition{
		From:        t.From,
		To:          t.To,
		Trigger:     t.Trigger,
		Animation:   t.Animation,
		ScheduledAt: e.now.Now(),
	}
	e.state.Phase = PhasePendingTransition
	e.commit()

	e.logger.Info("mode transition scheduled",
		"session", e.state.SessionID,
		"from", t.From,
		"to", t.To,
		"trigger", t.Trigger,
		"delay", e.delay,
	)
	e.record(eventlog.KindModeTransition, map[string]any{
		"status":  "scheduled",
		"from":    string(t.From),
		"to":      string(t.To),
		"trigger": string(t.Trigger),
	})

	if e.delay <= 0 {
		if err := e.transitionToModeLocked(t.To); err != nil {
			e.rejectLocked(ActionSwitchMode, err)
			e.cancelPendingLocked()
		}
		return
	}
	e.armTransitionLocked(t.To)
}

func (e *Engine) armTransitionLocked(to blueprint.MechanicKind) {
	gen := e.transitionTimer.replace()
	e.transitionTimer.timer = e.scheduler.AfterFunc(e.delay, func() {
		e.onTransitionTimer(gen, to)
	})
}

func (e *Engine) onTransitionTimer(gen uint64, to blueprint.MechanicKind) {
	e.mu.Lock()
	pt := e.state.MultiMode.PendingTransition
	if !e.transitionTimer.current(gen) || pt == nil || pt.To != to {
		e.mu.Unlock()
		return
	}
	e.transitionTimer.timer = nil
	before := e.state.Version
	if err := e.transitionToModeLocked(to); err != nil {
		e.rejectLocked(ActionSwitchMode, err)
		e.cancelPendingLocked()
	}
	changed := e.state.Version != before
	e.mu.Unlock()

	if changed {
		e.notify()
	}
}

func (e *Engine) cancelPendingLocked() {
	pt := e.state.MultiMode.PendingTransition
	e.transitionTimer.cancel()
	if pt == nil {
		return
	}
	e.state.MultiMode.PendingTransition = nil
	if e.state.Phase == PhasePendingTransition {
		e.state.Phase = PhaseActive
	}
	e.commit()
	e.logger.Debug("mode transition cancelled", "from", pt.From, "to", pt.To)
	e.record(eventlog.KindModeTransition, map[string]any{
		"status": "cancelled",
		"from":   string(pt.From),
		"to":     string(pt.To),
	})
}

// revalidatePendingLocked drops a pending transition whose trigger stopped
// holding, then looks for a new one.
func (e *Engine) revalidatePendingLocked() {
	pt := e.state.MultiMode.PendingTransition
	if pt == nil {
		return
	}
	if t := e.evaluateLocked(); t != nil && t.To == pt.To {
		return
	}
	e.cancelPendingLocked()
	e.checkTransitionLocked()
}

func (e *Engine) transitionToModeLocked(next blueprint.MechanicKind) error {
	if _, err := e.registry.Lookup(next); err != nil {
		return &RuntimeError{
			Code:    ErrCodeUnknownMechanic,
			Message: fmt.Sprintf("cannot transition to %q", next),
			Mode:    e.current(),
			Err:     err,
		}
	}
	prev := e.current()
	var trigger blueprint.TriggerKind
	if pt := e.state.MultiMode.PendingTransition; pt != nil && pt.To == next {
		trigger = pt.Trigger
	}
	e.transitionTimer.cancel()
	e.closeModeLocked()
	e.enterModeLocked(next)
	mm := &e.state.MultiMode
	mm.ModeHistory[len(mm.ModeHistory)-1].Trigger = trigger
	e.commit()

	e.logger.Info("mode transition",
		"session", e.state.SessionID,
		"from", prev,
		"to", next,
		"score", e.state.Score,
	)
	e.record(eventlog.KindModeTransition, map[string]any{
		"status": "applied",
		"from":   string(prev),
		"to":     string(next),
	})
	return nil
}

// stepBackLocked returns to the placement mechanic the active one was
// automatically entered from, as long as nothing has been scored since the
// hand-over. Entering the mechanic for the first time is rolled back along
// with its share of the max score. It reports whether it stepped back.
func (e *Engine) stepBackLocked() bool {
	mm := &e.state.MultiMode
	n := len(mm.ModeHistory)
	if n < 2 || e.state.Phase != PhaseActive {
		return false
	}
	cur, prev := mm.ModeHistory[n-1], &mm.ModeHistory[n-2]
	if cur.Trigger == "" || cur.Trigger == blueprint.TriggerUserChoice || cur.Mode != mm.CurrentMode {
		return false
	}
	if !isPlacementMechanic(prev.Mode) || e.state.Score != cur.ScoreAtEntry {
		return false
	}

	e.transitionTimer.cancel()
	mm.ModeHistory = mm.ModeHistory[:n-1]
	if !slices.ContainsFunc(mm.ModeHistory, func(h ModeHistoryEntry) bool { return h.Mode == cur.Mode }) {
		mm.EnteredModes = slices.DeleteFunc(mm.EnteredModes, func(k blueprint.MechanicKind) bool { return k == cur.Mode })
		base := e.bp.MechanicScoring(cur.Mode).BasePointsPerItem
		e.state.MaxScore -= e.registry.MaxScore(cur.Mode, e.bp, base)
	}
	mm.CompletedModes = slices.DeleteFunc(mm.CompletedModes, func(k blueprint.MechanicKind) bool { return k == prev.Mode })
	prev.EndedAt = nil
	prev.ScoreAtExit = 0
	mm.CurrentMode = prev.Mode
	mm.ModeStartedAt = prev.StartedAt
	mm.PendingTransition = nil
	e.state.Feedback = ""
	e.refreshVisibilityLocked()
	e.commit()

	e.logger.Info("mode transition reverted",
		"session", e.state.SessionID,
		"from", cur.Mode,
		"to", prev.Mode,
	)
	e.record(eventlog.KindModeTransition, map[string]any{
		"status": "reverted",
		"from":   string(cur.Mode),
		"to":     string(prev.Mode),
	})
	e.armDeadlineLocked()
	return true
}

func isPlacementMechanic(kind blueprint.MechanicKind) bool {
	return kind == blueprint.MechanicDragDrop || kind == blueprint.MechanicHierarchical
}

// closeModeLocked ends the active mechanic's history entry and marks it
// completed when it has nothing left to do.
func (e *Engine) closeModeLocked() {
	now := e.now.Now()
	mm := &e.state.MultiMode
	if n := len(mm.ModeHistory); n > 0 && mm.ModeHistory[n-1].EndedAt == nil {
		mm.ModeHistory[n-1].EndedAt = &now
		mm.ModeHistory[n-1].ScoreAtExit = e.state.Score
	}
	if mm.CurrentMode != "" && e.finishedLocked() && !slices.Contains(mm.CompletedModes, mm.CurrentMode) {
		mm.CompletedModes = append(mm.CompletedModes, mm.CurrentMode)
	}
}

// enterModeLocked makes kind the active mechanic with a fresh progress slot.
// Max score grows only the first time a mechanic is entered.
func (e *Engine) enterModeLocked(kind blueprint.MechanicKind) {
	now := e.now.Now()
	if slot, err := e.registry.Initialize(kind, e.bp); err == nil && slot != nil {
		e.state.Progress.Put(slot)
	}

	mm := &e.state.MultiMode
	if !slices.Contains(mm.EnteredModes, kind) {
		mm.EnteredModes = append(mm.EnteredModes, kind)
		base := e.bp.MechanicScoring(kind).BasePointsPerItem
		e.state.MaxScore += e.registry.MaxScore(kind, e.bp, base)
	}
	mm.CurrentMode = kind
	mm.ModeStartedAt = now
	mm.PendingTransition = nil
	mm.ModeHistory = append(mm.ModeHistory, ModeHistoryEntry{
		Mode:         kind,
		StartedAt:    now,
		ScoreAtEntry: e.state.Score,
	})
	e.state.Phase = PhaseActive
	e.state.Feedback = ""

	e.refreshVisibilityLocked()
	e.armDeadlineLocked()
}

func (e *Engine) completeLocked() {
	e.transitionTimer.cancel()
	e.deadlineTimer.cancel()
	e.closeModeLocked()

	now := e.now.Now()
	mm := &e.state.MultiMode
	if !slices.Contains(mm.CompletedModes, mm.CurrentMode) {
		mm.CompletedModes = append(mm.CompletedModes, mm.CurrentMode)
	}
	e.state.Phase = PhaseComplete
	e.state.CompletedAt = &now
	if ms := e.state.MultiScene; ms != nil {
		ms.SceneResults = append(ms.SceneResults, SceneResult{
			SceneID:     e.bp.ID,
			Score:       e.state.Score,
			MaxScore:    e.state.MaxScore,
			CompletedAt: now,
		})
		ms.TotalScore += e.state.Score
		ms.TotalMaxScore += e.state.MaxScore
	}
	e.commit()

	e.logger.Info("game completed",
		"session", e.state.SessionID,
		"blueprint", e.bp.ID,
		"score", e.state.Score,
		"max_score", e.state.MaxScore,
	)
	e.record(eventlog.KindGameCompleted, map[string]any{
		"score":     e.state.Score,
		"max_score": e.state.MaxScore,
	})
}

// reopenLocked undoes completeLocked after the final placement is removed.
func (e *Engine) reopenLocked() {
	mm := &e.state.MultiMode
	mm.CompletedModes = slices.DeleteFunc(mm.CompletedModes, func(k blueprint.MechanicKind) bool {
		return k == mm.CurrentMode
	})
	if n := len(mm.ModeHistory); n > 0 {
		mm.ModeHistory[n-1].EndedAt = nil
		mm.ModeHistory[n-1].ScoreAtExit = 0
	}
	if ms := e.state.MultiScene; ms != nil && len(ms.SceneResults) > 0 {
		last := ms.SceneResults[len(ms.SceneResults)-1]
		if last.SceneID == e.bp.ID {
			ms.SceneResults = ms.SceneResults[:len(ms.SceneResults)-1]
			ms.TotalScore -= last.Score
			ms.TotalMaxScore -= last.MaxScore
		}
	}
	e.state.Phase = PhaseActive
	e.state.CompletedAt = nil
	e.commit()
	e.logger.Debug("game reopened", "session", e.state.SessionID)
	e.armDeadlineLocked()
}

// armDeadlineLocked schedules a re-check for the earliest time_elapsed
// transition out of the active mechanic, so it fires without waiting for
// the next action.
func (e *Engine) armDeadlineLocked() {
	var earliest time.Duration = -1
	for _, t := range e.automaticExits() {
		if t.Trigger != blueprint.TriggerTimeElapsed {
			continue
		}
		secs, ok := t.TriggerValue.Float()
		if !ok {
			continue
		}
		d := time.Duration(secs*float64(time.Second)) - e.modeElapsed()
		if earliest < 0 || d < earliest {
			earliest = max(d, 0)
		}
	}
	if earliest < 0 {
		e.deadlineTimer.cancel()
		return
	}
	gen := e.deadlineTimer.replace()
	e.deadlineTimer.timer = e.scheduler.AfterFunc(earliest, func() {
		e.onDeadline(gen)
	})
}

func (e *Engine) onDeadline(gen uint64) {
	e.mu.Lock()
	if !e.deadlineTimer.current(gen) || e.bp == nil {
		e.mu.Unlock()
		return
	}
	e.deadlineTimer.timer = nil
	before := e.state.Version
	e.checkTransitionLocked()
	changed := e.state.Version != before
	e.mu.Unlock()

	if changed {
		e.notify()
	}
}
