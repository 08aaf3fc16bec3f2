package session

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/diagramlab/internal/blueprint"
	"github.com/roach88/diagramlab/internal/engine"
	"github.com/roach88/diagramlab/internal/eventlog"
	"github.com/roach88/diagramlab/internal/store"
	"github.com/roach88/diagramlab/internal/testutil"
)

func newSession(t *testing.T) *Session {
	t.Helper()
	clock := testutil.NewManualClock(time.Time{})
	return New(Config{
		HistorySize:      10,
		EventLogCapacity: 100,
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		EngineOptions: []engine.Option{
			engine.WithTimeSource(clock),
			engine.WithScheduler(testutil.NewManualScheduler(clock)),
			engine.WithIDGenerator(testutil.NewFixedIDGenerator("session")),
			engine.WithTransitionDelay(0),
		},
		LogOptions: []eventlog.Option{eventlog.WithNow(clock.Now)},
		CommandIDs: testutil.NewFixedIDGenerator("cmd"),
		Now:        clock.Now,
	})
}

// lungs has three independent root zones so no placement reveals or hides
// anything.
func lungs() *blueprint.Blueprint {
	return &blueprint.Blueprint{
		ID: "lungs",
		Zones: []blueprint.Zone{
			{ID: "trachea", Label: "Trachea"},
			{ID: "bronchus", Label: "Bronchus"},
			{ID: "alveoli", Label: "Alveoli"},
		},
		Labels: []blueprint.Label{
			{ID: "l-trachea", Text: "Trachea", CorrectZoneID: "trachea"},
			{ID: "l-bronchus", Text: "Bronchus", CorrectZoneID: "bronchus"},
			{ID: "l-alveoli", Text: "Alveoli", CorrectZoneID: "alveoli"},
		},
		DistractorLabels: []blueprint.DistractorLabel{{ID: "d-liver", Text: "Liver"}},
		Mechanics: []blueprint.Mechanic{
			{Type: blueprint.MechanicDragDrop, Scoring: &blueprint.ScoringConfig{BasePointsPerItem: 10, AttemptPenalty: -2}},
		},
	}
}

// observable is the part of the state undo must restore exactly.
type observable struct {
	Placed    []engine.PlacedLabel
	Available []string
	Completed []string
	Visible   []string
	Score     int
	Phase     engine.Phase
}

func project(s engine.State) observable {
	return observable{
		Placed:    s.PlacedLabels,
		Available: s.AvailableLabels,
		Completed: s.CompletedZones,
		Visible:   s.VisibleZones,
		Score:     s.Score,
		Phase:     s.Phase,
	}
}

func place(label, zone string) engine.Action {
	return engine.Action{Type: engine.ActionPlace, LabelID: label, ZoneID: zone}
}

func TestUndoRedo_RestoresSnapshots(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Initialize(lungs()))

	res, err := s.Apply(place("l-trachea", "trachea"))
	require.NoError(t, err)
	require.True(t, res.IsCorrect)
	afterFirst := project(s.State())

	_, err = s.Apply(place("l-bronchus", "bronchus"))
	require.NoError(t, err)
	afterSecond := project(s.State())

	res, err = s.Undo()
	require.NoError(t, err)
	assert.Equal(t, -10, res.ScoreDelta)
	assert.Equal(t, afterFirst, project(s.State()))

	res, err = s.Redo()
	require.NoError(t, err)
	assert.Equal(t, 10, res.ScoreDelta)
	assert.Equal(t, afterSecond, project(s.State()))
}

func TestExecuteAfterUndo_ClearsRedo(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Initialize(lungs()))

	s.Dispatch(place("l-trachea", "trachea"))
	s.Dispatch(place("l-bronchus", "bronchus"))
	_, err := s.Undo()
	require.NoError(t, err)
	assert.True(t, s.History().CanRedo())

	s.Dispatch(place("l-alveoli", "alveoli"))
	assert.Equal(t, 0, s.History().Status().RedoSize)

	_, err = s.Redo()
	assert.ErrorIs(t, err, ErrNothingToRedo)
}

func TestUndo_EmptyHistory(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Initialize(lungs()))
	_, err := s.Undo()
	assert.ErrorIs(t, err, ErrNothingToUndo)
}

func TestIncorrectPlacement_NotUndoable(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Initialize(lungs()))

	res, err := s.Apply(place("d-liver", "trachea"))
	require.NoError(t, err)
	assert.False(t, res.IsCorrect)
	assert.Equal(t, 0, res.ScoreDelta, "score is clamped at zero")
	assert.False(t, s.History().CanUndo())
	assert.Equal(t, 1, s.State().IncorrectAttempts)
}

func TestRemove_UndoPutsLabelBack(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Initialize(lungs()))
	s.Dispatch(place("l-trachea", "trachea"))

	res, err := s.Apply(engine.Action{Type: engine.ActionRemove, LabelID: "l-trachea"})
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Equal(t, 0, s.State().Score)

	_, err = s.Undo()
	require.NoError(t, err)
	zone, ok := s.Engine().PlacementOf("l-trachea")
	require.True(t, ok)
	assert.Equal(t, "trachea", zone)
	assert.Equal(t, 10, s.State().Score)
}

func TestPreconditionFailure_ReportsEngineError(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Initialize(lungs()))
	s.Dispatch(place("l-trachea", "trachea"))

	_, err := s.Apply(place("l-trachea", "bronchus"))
	assert.True(t, engine.IsNotFound(err))

	_, err = s.Apply(engine.Action{Type: engine.ActionRemove, LabelID: "l-bronchus"})
	assert.True(t, engine.IsNotFound(err))

	assert.Equal(t, 1, s.History().Status().UndoSize)
}

func TestStaleUndo_Dropped(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Initialize(lungs()))
	s.Dispatch(place("l-trachea", "trachea"))

	// Removing behind the history's back invalidates the place command.
	require.True(t, s.Engine().RemoveLabel("l-trachea"))

	_, err := s.Undo()
	assert.ErrorIs(t, err, ErrStaleCommand)
	assert.False(t, s.History().CanUndo())
}

func TestUndo_ReopensFinishedGame(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Initialize(lungs()))
	s.Dispatch(place("l-trachea", "trachea"))
	s.Dispatch(place("l-bronchus", "bronchus"))
	s.Dispatch(place("l-alveoli", "alveoli"))
	require.Equal(t, engine.PhaseComplete, s.State().Phase)

	_, err := s.Undo()
	require.NoError(t, err)
	assert.Equal(t, engine.PhaseActive, s.State().Phase)
	assert.Equal(t, 20, s.State().Score)
}

// lungsThenOrder hands over to sequencing once every label is placed.
func lungsThenOrder() *blueprint.Blueprint {
	bp := lungs()
	bp.Mechanics = append(bp.Mechanics, blueprint.Mechanic{
		Type:    blueprint.MechanicSequencing,
		Scoring: &blueprint.ScoringConfig{BasePointsPerItem: 5},
	})
	bp.ModeTransitions = []blueprint.ModeTransition{{
		From:         blueprint.MechanicDragDrop,
		To:           blueprint.MechanicSequencing,
		Trigger:      blueprint.TriggerPercentageComplete,
		TriggerValue: blueprint.NumberValue(100),
	}}
	bp.SequenceConfig = &blueprint.SequenceConfig{
		Items: []blueprint.SequenceItem{
			{ID: "inhale", Text: "Air enters the trachea"},
			{ID: "branch", Text: "Air splits into the bronchi"},
			{ID: "exchange", Text: "Gas exchange in the alveoli"},
		},
		CorrectOrder: []string{"inhale", "branch", "exchange"},
	}
	return bp
}

func TestUndo_LastPlacementStepsBackFromNextMechanic(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Initialize(lungsThenOrder()))
	s.Dispatch(place("l-trachea", "trachea"))
	s.Dispatch(place("l-bronchus", "bronchus"))
	s.Dispatch(place("l-alveoli", "alveoli"))

	st := s.State()
	require.Equal(t, blueprint.MechanicSequencing, st.MultiMode.CurrentMode)
	require.Equal(t, 30, st.Score)
	require.Equal(t, 45, st.MaxScore)

	_, err := s.Apply(engine.Action{Type: engine.ActionRemove, LabelID: "l-alveoli"})
	assert.True(t, engine.IsInactiveMechanic(err))

	res, err := s.Undo()
	require.NoError(t, err)
	assert.Equal(t, -10, res.ScoreDelta)

	st = s.State()
	assert.Equal(t, blueprint.MechanicDragDrop, st.MultiMode.CurrentMode)
	assert.Equal(t, engine.PhaseActive, st.Phase)
	assert.Equal(t, 20, st.Score)
	assert.Equal(t, 30, st.MaxScore)
	assert.Len(t, st.PlacedLabels, 2)
	assert.True(t, s.History().CanRedo())

	_, err = s.Redo()
	require.NoError(t, err)
	st = s.State()
	assert.Equal(t, blueprint.MechanicSequencing, st.MultiMode.CurrentMode)
	assert.Equal(t, 30, st.Score)
	assert.Equal(t, 45, st.MaxScore)
}

func TestOtherActions_GoToEngine(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Initialize(lungs()))

	res, err := s.Apply(engine.Action{Type: engine.ActionHint})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1, s.State().HintsUsed)

	_, err = s.Apply(engine.Action{Type: "dance"})
	assert.Error(t, err)
}

func TestEventLog_MirrorsActions(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Initialize(lungs()))
	s.Dispatch(place("l-trachea", "trachea"))
	_, err := s.Undo()
	require.NoError(t, err)

	var kinds []eventlog.Kind
	for _, ev := range s.Log().Events() {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []eventlog.Kind{
		eventlog.KindZoneRevealed,
		eventlog.KindZoneRevealed,
		eventlog.KindZoneRevealed,
		eventlog.KindAction,
		eventlog.KindLabelPlaced,
		eventlog.KindAction,
		eventlog.KindLabelRemoved,
		eventlog.KindUndo,
	}, kinds)

	events := s.Log().Events()
	assert.Equal(t, "place", events[3].Payload["type"])
	assert.Equal(t, "l-trachea", events[3].Payload["label_id"])
	assert.Equal(t, "undo", events[5].Payload["type"])
	assert.Equal(t, "cmd-1", events[7].Payload["command_id"])
	assert.Equal(t, "session-1", events[0].SessionID)
}

func TestInitialize_ClearsHistory(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Initialize(lungs()))
	s.Dispatch(place("l-trachea", "trachea"))
	require.True(t, s.History().CanUndo())

	s.Reset()
	assert.False(t, s.History().CanUndo())
	assert.Equal(t, "session-2", s.State().SessionID)

	s.Dispatch(place("l-trachea", "trachea"))
	require.NoError(t, s.Restore(lungs(), s.State()))
	assert.False(t, s.History().CanUndo())
}

func TestFlush_ToStore(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	s := newSession(t)
	require.NoError(t, s.Initialize(lungs()))
	s.Dispatch(place("l-trachea", "trachea"))

	n, err := s.Flush(ctx, st)
	require.NoError(t, err)
	// Three reveals, the action and the placement.
	assert.Equal(t, 5, n)

	stored, err := st.ReadEvents(ctx, "session-1")
	require.NoError(t, err)
	assert.Len(t, stored, 5)
}
