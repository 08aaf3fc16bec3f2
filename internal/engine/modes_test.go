package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/diagramlab/internal/blueprint"
	"github.com/roach88/diagramlab/internal/engine"
	"github.com/roach88/diagramlab/internal/eventlog"
)

// Finishing drag-and-drop hands over to sequencing after the transition
// delay, keeping the score.
func TestTransition_AppliedAfterDelay(t *testing.T) {
	f := newFixture(t, 2*time.Second)
	require.NoError(t, f.e.Initialize(heartBlueprint()))
	require.True(t, placeAll(f.e))

	st := f.e.State()
	assert.Equal(t, engine.PhasePendingTransition, st.Phase)
	require.NotNil(t, st.MultiMode.PendingTransition)
	assert.Equal(t, blueprint.MechanicSequencing, st.MultiMode.PendingTransition.To)
	assert.Equal(t, blueprint.MechanicDragDrop, st.MultiMode.CurrentMode)
	assert.Equal(t, 1, f.sched.Pending())

	f.sched.Advance(time.Second)
	assert.Equal(t, blueprint.MechanicDragDrop, f.e.State().MultiMode.CurrentMode)

	f.sched.Advance(time.Second)
	st = f.e.State()
	assert.Equal(t, engine.PhaseActive, st.Phase)
	assert.Equal(t, blueprint.MechanicSequencing, st.MultiMode.CurrentMode)
	assert.Nil(t, st.MultiMode.PendingTransition)
	assert.Equal(t, 30, st.Score)
	assert.Equal(t, 45, st.MaxScore)
	assert.Equal(t, []blueprint.MechanicKind{blueprint.MechanicDragDrop}, st.MultiMode.CompletedModes)
	require.Len(t, st.MultiMode.ModeHistory, 2)
	assert.Equal(t, 30, st.MultiMode.ModeHistory[0].ScoreAtExit)
	assert.Equal(t, 30, st.MultiMode.ModeHistory[1].ScoreAtEntry)
	require.NotNil(t, st.Progress.Sequencing)
	assert.Equal(t, []string{"s1", "s2", "s3"}, st.Progress.Sequencing.CurrentOrder)

	res := f.e.SubmitSequence()
	require.NotNil(t, res)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, 15, res.ScoreDelta)

	st = f.e.State()
	assert.Equal(t, engine.PhaseComplete, st.Phase)
	assert.Equal(t, 45, st.Score)
	assert.Equal(t, 2, f.log.Summary().ByKind[eventlog.KindModeTransition])
}

func TestTransition_SynchronousWithoutDelay(t *testing.T) {
	f := newFixture(t, 0)
	require.NoError(t, f.e.Initialize(heartBlueprint()))
	require.True(t, placeAll(f.e))

	st := f.e.State()
	assert.Equal(t, engine.PhaseActive, st.Phase)
	assert.Equal(t, blueprint.MechanicSequencing, st.MultiMode.CurrentMode)
	assert.Equal(t, 0, f.sched.Pending())
}

func TestTransition_CancelledWhenTriggerStopsHolding(t *testing.T) {
	f := newFixture(t, 2*time.Second)
	require.NoError(t, f.e.Initialize(heartBlueprint()))
	require.True(t, placeAll(f.e))
	require.Equal(t, engine.PhasePendingTransition, f.e.State().Phase)

	require.True(t, f.e.RemoveLabel("l-ventricle"))

	st := f.e.State()
	assert.Equal(t, engine.PhaseActive, st.Phase)
	assert.Nil(t, st.MultiMode.PendingTransition)
	assert.Equal(t, 0, f.sched.Pending())

	f.sched.Advance(5 * time.Second)
	assert.Equal(t, blueprint.MechanicDragDrop, f.e.State().MultiMode.CurrentMode)
}

func TestTransition_ManualSwitchCancelsPending(t *testing.T) {
	f := newFixture(t, 2*time.Second)
	require.NoError(t, f.e.Initialize(heartBlueprint()))
	require.True(t, placeAll(f.e))

	require.True(t, f.e.TransitionToMode(blueprint.MechanicSequencing))
	assert.Equal(t, 0, f.sched.Pending())

	f.sched.Advance(5 * time.Second)
	st := f.e.State()
	assert.Equal(t, blueprint.MechanicSequencing, st.MultiMode.CurrentMode)
	assert.Len(t, st.MultiMode.ModeHistory, 2, "the stale timer must not enter sequencing twice")
}

func TestTransitionToMode_UnknownMechanicRejected(t *testing.T) {
	f := newFixture(t, 0)
	require.NoError(t, f.e.Initialize(heartBlueprint()))
	before := f.e.State()

	assert.False(t, f.e.TransitionToMode("juggling"))

	after := f.e.State()
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, blueprint.MechanicDragDrop, after.MultiMode.CurrentMode)
}

func TestRequestModeSwitch_OnlyUserChoice(t *testing.T) {
	f := newFixture(t, 0)
	require.NoError(t, f.e.Initialize(heartBlueprint()))

	assert.False(t, f.e.RequestModeSwitch(blueprint.MechanicSequencing))
	assert.Equal(t, blueprint.MechanicDragDrop, f.e.State().MultiMode.CurrentMode)
}

func TestModeSwitch_MaxScoreCountedOnce(t *testing.T) {
	f := newFixture(t, 0)
	bp := singleLabel("a")
	bp.Mechanics = []blueprint.Mechanic{
		{Type: blueprint.MechanicDragDrop},
		{Type: blueprint.MechanicClickToIdentify},
	}
	bp.ModeTransitions = []blueprint.ModeTransition{
		{From: blueprint.MechanicDragDrop, To: blueprint.MechanicClickToIdentify, Trigger: blueprint.TriggerUserChoice},
		{From: blueprint.MechanicClickToIdentify, To: blueprint.MechanicDragDrop, Trigger: blueprint.TriggerUserChoice},
	}
	require.NoError(t, f.e.Initialize(bp))
	assert.Equal(t, 10, f.e.State().MaxScore)

	require.True(t, f.e.RequestModeSwitch(blueprint.MechanicClickToIdentify))
	assert.Equal(t, 20, f.e.State().MaxScore)

	_, err := f.e.Apply(engine.Action{Type: engine.ActionSwitchMode, Mode: blueprint.MechanicDragDrop})
	require.NoError(t, err)
	require.True(t, f.e.RequestModeSwitch(blueprint.MechanicClickToIdentify))

	st := f.e.State()
	assert.Equal(t, 20, st.MaxScore)
	assert.Equal(t, []blueprint.MechanicKind{blueprint.MechanicDragDrop, blueprint.MechanicClickToIdentify}, st.MultiMode.EnteredModes)
	assert.Len(t, st.MultiMode.ModeHistory, 4)
}

func timedBlueprint(secs float64) *blueprint.Blueprint {
	bp := singleLabel("t")
	bp.Mechanics = []blueprint.Mechanic{
		{Type: blueprint.MechanicDragDrop},
		{Type: blueprint.MechanicClickToIdentify},
	}
	bp.ModeTransitions = []blueprint.ModeTransition{{
		From:         blueprint.MechanicDragDrop,
		To:           blueprint.MechanicClickToIdentify,
		Trigger:      blueprint.TriggerTimeElapsed,
		TriggerValue: blueprint.NumberValue(secs),
	}}
	return bp
}

func TestTimeElapsed_FiresWithoutAction(t *testing.T) {
	f := newFixture(t, 0)
	require.NoError(t, f.e.Initialize(timedBlueprint(30)))
	assert.Equal(t, 1, f.sched.Pending())

	f.sched.Advance(29 * time.Second)
	assert.Equal(t, blueprint.MechanicDragDrop, f.e.State().MultiMode.CurrentMode)

	f.sched.Advance(time.Second)
	st := f.e.State()
	assert.Equal(t, blueprint.MechanicClickToIdentify, st.MultiMode.CurrentMode)
	assert.Equal(t, 0, f.sched.Pending())
}

func TestCheckModeTransition_EvaluatesNow(t *testing.T) {
	f := newFixture(t, 0)
	require.NoError(t, f.e.Initialize(timedBlueprint(30)))

	assert.Nil(t, f.e.CheckModeTransition())

	// Move the wall clock without firing the deadline timer.
	f.clock.Advance(31 * time.Second)
	got := f.e.CheckModeTransition()
	require.NotNil(t, got)
	assert.Equal(t, blueprint.MechanicClickToIdentify, got.To)
	assert.Equal(t, blueprint.MechanicClickToIdentify, f.e.State().MultiMode.CurrentMode)

	f.sched.RunPending()
	assert.Len(t, f.e.State().MultiMode.ModeHistory, 2)
}

func TestRestore_RearmsPendingTransition(t *testing.T) {
	f := newFixture(t, 2*time.Second)
	bp := heartBlueprint()
	require.NoError(t, f.e.Initialize(bp))
	require.True(t, placeAll(f.e))
	snap := f.e.Snapshot()
	require.Equal(t, engine.PhasePendingTransition, snap.Phase)

	g := newFixture(t, 2*time.Second)
	require.NoError(t, g.e.Restore(bp, snap))
	assert.Equal(t, 1, g.sched.Pending())

	g.sched.Advance(2 * time.Second)
	assert.Equal(t, blueprint.MechanicSequencing, g.e.State().MultiMode.CurrentMode)
}

func TestSubmit_SecondSubmitIsNoop(t *testing.T) {
	f := newFixture(t, 0)
	bp := heartBlueprint()
	bp.Mechanics = []blueprint.Mechanic{
		{Type: blueprint.MechanicSequencing, Scoring: &blueprint.ScoringConfig{BasePointsPerItem: 5}},
		{Type: blueprint.MechanicDragDrop},
	}
	// A far-off timed exit keeps the session active after submitting.
	bp.ModeTransitions = []blueprint.ModeTransition{{
		From:         blueprint.MechanicSequencing,
		To:           blueprint.MechanicDragDrop,
		Trigger:      blueprint.TriggerTimeElapsed,
		TriggerValue: blueprint.NumberValue(600),
	}}
	require.NoError(t, f.e.Initialize(bp))

	first := f.e.SubmitSequence()
	require.NotNil(t, first)
	assert.Equal(t, 15, first.ScoreDelta)
	before := f.e.State()
	assert.Equal(t, engine.PhaseActive, before.Phase)

	assert.Nil(t, f.e.SubmitSequence())
	_, err := f.e.Apply(engine.Action{Type: engine.ActionSubmitSequence})
	assert.True(t, engine.IsAlreadySubmitted(err))

	after := f.e.State()
	assert.Equal(t, before.Score, after.Score)
	assert.Equal(t, before.Version, after.Version)
	assert.False(t, f.e.Reorder([]string{"s3", "s2", "s1"}))
}

func TestTakeBackLabel_StepsBackIntoPlacement(t *testing.T) {
	f := newFixture(t, 0)
	require.NoError(t, f.e.Initialize(heartBlueprint()))
	require.True(t, placeAll(f.e))

	st := f.e.State()
	require.Equal(t, blueprint.MechanicSequencing, st.MultiMode.CurrentMode)
	require.Len(t, st.MultiMode.ModeHistory, 2)
	assert.Equal(t, blueprint.TriggerPercentageComplete, st.MultiMode.ModeHistory[1].Trigger)
	assert.False(t, f.e.RemoveLabel("l-ventricle"), "plain removal stays tied to the placement mechanic")

	_, err := f.e.TakeBackLabel("l-ventricle")
	require.NoError(t, err)

	st = f.e.State()
	assert.Equal(t, engine.PhaseActive, st.Phase)
	assert.Equal(t, blueprint.MechanicDragDrop, st.MultiMode.CurrentMode)
	assert.Equal(t, 20, st.Score)
	assert.Equal(t, 30, st.MaxScore)
	assert.Empty(t, st.MultiMode.CompletedModes)
	assert.Equal(t, []blueprint.MechanicKind{blueprint.MechanicDragDrop}, st.MultiMode.EnteredModes)
	require.Len(t, st.MultiMode.ModeHistory, 1)
	assert.Nil(t, st.MultiMode.ModeHistory[0].EndedAt)
	assert.Equal(t, []string{"heart", "atrium"}, st.CompletedZones)

	var statuses []string
	for _, ev := range f.log.Events() {
		if ev.Kind == eventlog.KindModeTransition {
			statuses = append(statuses, ev.Payload["status"].(string))
		}
	}
	assert.Equal(t, []string{"scheduled", "applied", "reverted"}, statuses)

	require.True(t, f.e.PlaceLabel("l-ventricle", "ventricle"))
	st = f.e.State()
	assert.Equal(t, blueprint.MechanicSequencing, st.MultiMode.CurrentMode)
	assert.Equal(t, 30, st.Score)
	assert.Equal(t, 45, st.MaxScore)
}

func TestTakeBackLabel_ExplicitSwitchNotReverted(t *testing.T) {
	f := newFixture(t, 0)
	require.NoError(t, f.e.Initialize(heartBlueprint()))
	require.True(t, f.e.PlaceLabel("l-heart", "heart"))
	require.True(t, f.e.TransitionToMode(blueprint.MechanicSequencing))

	_, err := f.e.TakeBackLabel("l-heart")
	assert.True(t, engine.IsInactiveMechanic(err))

	st := f.e.State()
	assert.Equal(t, blueprint.MechanicSequencing, st.MultiMode.CurrentMode)
	assert.Equal(t, 10, st.Score)
	assert.Empty(t, st.MultiMode.ModeHistory[1].Trigger)
}
