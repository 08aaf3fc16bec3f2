package engine_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/roach88/diagramlab/internal/blueprint"
	"github.com/roach88/diagramlab/internal/engine"
	"github.com/roach88/diagramlab/internal/eventlog"
	"github.com/roach88/diagramlab/internal/testutil"
)

type fixture struct {
	e     *engine.Engine
	clock *testutil.ManualClock
	sched *testutil.ManualScheduler
	log   *eventlog.Log
}

func newFixture(t *testing.T, delay time.Duration) *fixture {
	t.Helper()
	clock := testutil.NewManualClock(time.Time{})
	sched := testutil.NewManualScheduler(clock)
	log := eventlog.New(500, eventlog.WithNow(clock.Now))
	e := engine.New(
		engine.WithTimeSource(clock),
		engine.WithScheduler(sched),
		engine.WithIDGenerator(testutil.NewFixedIDGenerator("session")),
		engine.WithEventSink(log),
		engine.WithTransitionDelay(delay),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return &fixture{e: e, clock: clock, sched: sched, log: log}
}

func after(a, b string) blueprint.TemporalConstraint {
	return blueprint.TemporalConstraint{ZoneA: a, ZoneB: b, Constraint: blueprint.ConstraintAfter}
}

func mutex(a, b string) blueprint.TemporalConstraint {
	return blueprint.TemporalConstraint{ZoneA: a, ZoneB: b, Constraint: blueprint.ConstraintMutex}
}

// heartBlueprint is a drag_drop -> sequencing game. Drag-and-drop is worth
// 3 x 10 and sequencing 3 x 5.
func heartBlueprint() *blueprint.Blueprint {
	return &blueprint.Blueprint{
		ID:    "heart",
		Title: "Parts of the Heart",
		Zones: []blueprint.Zone{
			{ID: "heart", Label: "Heart"},
			{ID: "atrium", Label: "Atrium", ParentZoneID: "heart"},
			{ID: "ventricle", Label: "Ventricle", ParentZoneID: "heart"},
		},
		Labels: []blueprint.Label{
			{ID: "l-heart", Text: "Heart", CorrectZoneID: "heart"},
			{ID: "l-atrium", Text: "Atrium", CorrectZoneID: "atrium"},
			{ID: "l-ventricle", Text: "Ventricle", CorrectZoneID: "ventricle"},
		},
		DistractorLabels: []blueprint.DistractorLabel{
			{ID: "d-lung", Text: "Lung", Explanation: "The lung is not part of the heart."},
		},
		Mechanics: []blueprint.Mechanic{
			{Type: blueprint.MechanicDragDrop, Scoring: &blueprint.ScoringConfig{BasePointsPerItem: 10, AttemptPenalty: -3}},
			{Type: blueprint.MechanicSequencing, Scoring: &blueprint.ScoringConfig{BasePointsPerItem: 5, PartialCredit: true}},
		},
		ModeTransitions: []blueprint.ModeTransition{
			{
				From:         blueprint.MechanicDragDrop,
				To:           blueprint.MechanicSequencing,
				Trigger:      blueprint.TriggerPercentageComplete,
				TriggerValue: blueprint.NumberValue(100),
			},
		},
		TemporalConstraints: []blueprint.TemporalConstraint{
			after("heart", "atrium"),
			after("heart", "ventricle"),
		},
		Scoring: blueprint.ScoringStrategy{HintPenalty: 2},
		SequenceConfig: &blueprint.SequenceConfig{
			Items: []blueprint.SequenceItem{
				{ID: "s1", Text: "Blood enters the atrium"},
				{ID: "s2", Text: "Valve opens"},
				{ID: "s3", Text: "Ventricle contracts"},
			},
			CorrectOrder: []string{"s1", "s2", "s3"},
		},
	}
}

func singleLabel(id string) *blueprint.Blueprint {
	return &blueprint.Blueprint{
		ID:     id,
		Zones:  []blueprint.Zone{{ID: id + "-zone"}},
		Labels: []blueprint.Label{{ID: id + "-label", CorrectZoneID: id + "-zone"}},
	}
}

// placeAll labels the whole heart, parent first.
func placeAll(e *engine.Engine) bool {
	return e.PlaceLabel("l-heart", "heart") &&
		e.PlaceLabel("l-atrium", "atrium") &&
		e.PlaceLabel("l-ventricle", "ventricle")
}
