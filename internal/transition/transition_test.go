package transition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/diagramlab/internal/blueprint"
	"github.com/roach88/diagramlab/internal/mechanic"
)

func newContext(bp *blueprint.Blueprint) Context {
	return Context{
		Registry:  mechanic.NewRegistry(),
		Progress:  &mechanic.Progress{},
		Blueprint: bp,
	}
}

func dragDropBlueprint() *blueprint.Blueprint {
	return &blueprint.Blueprint{
		Zones: []blueprint.Zone{{ID: "z1"}, {ID: "z2"}},
		Labels: []blueprint.Label{
			{ID: "a", CorrectZoneID: "z1"},
			{ID: "b", CorrectZoneID: "z2"},
		},
	}
}

func TestEvaluate_PercentageComplete(t *testing.T) {
	bp := dragDropBlueprint()
	transitions := []blueprint.ModeTransition{{
		From: blueprint.MechanicDragDrop, To: blueprint.MechanicSequencing,
		Trigger: blueprint.TriggerPercentageComplete, TriggerValue: blueprint.NumberValue(100),
	}}
	ctx := newContext(bp)

	ctx.Trigger.CorrectPlacements = 1
	assert.Nil(t, Evaluate(transitions, blueprint.MechanicDragDrop, ctx))

	ctx.Trigger.CorrectPlacements = 2
	got := Evaluate(transitions, blueprint.MechanicDragDrop, ctx)
	require.NotNil(t, got)
	assert.Equal(t, blueprint.MechanicSequencing, got.To)
}

func TestEvaluate_PercentageThreshold(t *testing.T) {
	bp := dragDropBlueprint()
	transitions := []blueprint.ModeTransition{{
		From: blueprint.MechanicDragDrop, To: blueprint.MechanicMemoryMatch,
		Trigger: blueprint.TriggerPercentageComplete, TriggerValue: blueprint.NumberValue(50),
	}}
	ctx := newContext(bp)
	ctx.Trigger.CorrectPlacements = 1
	assert.NotNil(t, Evaluate(transitions, blueprint.MechanicDragDrop, ctx))
}

func TestEvaluate_FiltersByCurrentMechanic(t *testing.T) {
	bp := dragDropBlueprint()
	transitions := []blueprint.ModeTransition{{
		From: blueprint.MechanicSequencing, To: blueprint.MechanicDragDrop,
		Trigger: blueprint.TriggerSpecificZones, TriggerValue: blueprint.ZonesValue("z1"),
	}}
	ctx := newContext(bp)
	ctx.Trigger.CompletedZones = []string{"z1"}

	assert.Nil(t, Evaluate(transitions, blueprint.MechanicDragDrop, ctx))
	assert.NotNil(t, Evaluate(transitions, blueprint.MechanicSequencing, ctx))
}

func TestEvaluate_SpecificZones(t *testing.T) {
	bp := dragDropBlueprint()
	tr := blueprint.ModeTransition{
		From: blueprint.MechanicDragDrop, To: blueprint.MechanicSequencing,
		Trigger: blueprint.TriggerSpecificZones, TriggerValue: blueprint.ZonesValue("z1", "z2"),
	}
	ctx := newContext(bp)

	ctx.Trigger.CompletedZones = []string{"z1"}
	assert.False(t, Satisfied(tr, ctx))

	ctx.Trigger.CompletedZones = []string{"z2", "z1"}
	assert.True(t, Satisfied(tr, ctx))

	tr.TriggerValue = blueprint.TriggerValue{}
	assert.False(t, Satisfied(tr, ctx), "empty zone list never fires")
}

func TestEvaluate_TimeElapsed(t *testing.T) {
	bp := dragDropBlueprint()
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tr := blueprint.ModeTransition{
		From: blueprint.MechanicDragDrop, To: blueprint.MechanicSequencing,
		Trigger: blueprint.TriggerTimeElapsed, TriggerValue: blueprint.NumberValue(30),
	}
	ctx := newContext(bp)
	ctx.Trigger.ModeStartedAt = start

	ctx.Trigger.Now = start.Add(29 * time.Second)
	assert.False(t, Satisfied(tr, ctx))

	ctx.Trigger.Now = start.Add(30 * time.Second)
	assert.True(t, Satisfied(tr, ctx))
}

func TestEvaluate_UserChoiceNeverAutomatic(t *testing.T) {
	bp := dragDropBlueprint()
	transitions := []blueprint.ModeTransition{{
		From: blueprint.MechanicDragDrop, To: blueprint.MechanicSequencing, Trigger: blueprint.TriggerUserChoice,
	}}
	ctx := newContext(bp)
	ctx.Trigger.CorrectPlacements = 2

	assert.Nil(t, Evaluate(transitions, blueprint.MechanicDragDrop, ctx))
	assert.True(t, Allows(transitions, blueprint.MechanicDragDrop, blueprint.MechanicSequencing))
	assert.False(t, Allows(transitions, blueprint.MechanicSequencing, blueprint.MechanicDragDrop))
}

func TestEvaluate_RegistryTriggerWins(t *testing.T) {
	bp := dragDropBlueprint()
	bp.SequenceConfig = &blueprint.SequenceConfig{
		Items:        []blueprint.SequenceItem{{ID: "s1"}, {ID: "s2"}},
		CorrectOrder: []string{"s1", "s2"},
	}
	tr := blueprint.ModeTransition{
		From: blueprint.MechanicSequencing, To: blueprint.MechanicDragDrop,
		Trigger: blueprint.TriggerSequenceComplete,
	}
	ctx := newContext(bp)
	ctx.Progress.Put(&mechanic.SequencingProgress{IsSubmitted: false})
	assert.False(t, Satisfied(tr, ctx))

	ctx.Progress.Put(&mechanic.SequencingProgress{IsSubmitted: true, CorrectPositions: 0})
	assert.True(t, Satisfied(tr, ctx))
}

func TestEvaluate_UnknownTriggerNotSatisfied(t *testing.T) {
	bp := dragDropBlueprint()
	ctx := newContext(bp)
	tr := blueprint.ModeTransition{From: blueprint.MechanicDragDrop, To: blueprint.MechanicSequencing, Trigger: "moon_phase"}
	assert.False(t, Satisfied(tr, ctx))

	tr.From = "juggling"
	tr.Trigger = blueprint.TriggerPercentageComplete
	assert.False(t, Satisfied(tr, ctx))
}

func TestEvaluate_FirstMatchWins(t *testing.T) {
	bp := dragDropBlueprint()
	transitions := []blueprint.ModeTransition{
		{From: blueprint.MechanicDragDrop, To: blueprint.MechanicSequencing, Trigger: blueprint.TriggerPercentageComplete, TriggerValue: blueprint.NumberValue(50)},
		{From: blueprint.MechanicDragDrop, To: blueprint.MechanicMemoryMatch, Trigger: blueprint.TriggerPercentageComplete, TriggerValue: blueprint.NumberValue(50)},
	}
	ctx := newContext(bp)
	ctx.Trigger.CorrectPlacements = 2

	got := Evaluate(transitions, blueprint.MechanicDragDrop, ctx)
	require.NotNil(t, got)
	assert.Equal(t, blueprint.MechanicSequencing, got.To)
}
