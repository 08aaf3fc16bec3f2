package mechanic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/diagramlab/internal/blueprint"
)

func TestRegistry_BuiltinsRegistered(t *testing.T) {
	r := NewRegistry()
	kinds := r.Kinds()

	assert.Len(t, kinds, 10)
	assert.Equal(t, blueprint.MechanicDragDrop, kinds[0])
	for _, k := range kinds {
		_, err := r.ConfigKey(k)
		assert.NoError(t, err, "kind %s", k)
	}
}

func TestRegistry_UnknownKind(t *testing.T) {
	r := NewRegistry()

	_, err := r.Initialize("juggling", testBlueprint())
	require.Error(t, err)
	assert.True(t, IsUnknownMechanic(err))

	_, err = r.ConfigKey("juggling")
	assert.True(t, IsUnknownMechanic(err))

	done, total := r.Completion("juggling", &Progress{}, testBlueprint(), TriggerContext{})
	assert.Zero(t, done)
	assert.Zero(t, total)
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Entry{
		Kind:       blueprint.MechanicDragDrop,
		Completion: func(*Progress, *blueprint.Blueprint, TriggerContext) (int, int) { return 0, 0 },
		MaxItems:   func(*blueprint.Blueprint) int { return 0 },
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistry_InitializeSlots(t *testing.T) {
	r := NewRegistry()
	bp := testBlueprint()

	slot, err := r.Initialize(blueprint.MechanicDragDrop, bp)
	require.NoError(t, err)
	assert.Nil(t, slot, "drag_drop keeps no slot")

	slot, err = r.Initialize(blueprint.MechanicSequencing, bp)
	require.NoError(t, err)
	seq, ok := slot.(*SequencingProgress)
	require.True(t, ok)
	assert.Equal(t, []string{"s1", "s2", "s3"}, seq.CurrentOrder)
	assert.Equal(t, 3, seq.TotalPositions)

	slot, err = r.Initialize(blueprint.MechanicBranchingScenario, bp)
	require.NoError(t, err)
	assert.Equal(t, "n1", slot.(*BranchingProgress).CurrentNodeID)

	for _, k := range r.Kinds() {
		slot, err := r.Initialize(k, bp)
		require.NoError(t, err)
		if slot != nil {
			assert.Equal(t, k, slot.Kind())
		}
	}
}

func TestRegistry_CompletionAndFinished(t *testing.T) {
	r := NewRegistry()
	bp := testBlueprint()
	var p Progress

	done, total := r.Completion(blueprint.MechanicDragDrop, &p, bp, TriggerContext{CorrectPlacements: 1})
	assert.Equal(t, 1, done)
	assert.Equal(t, 2, total)
	assert.False(t, r.Finished(blueprint.MechanicDragDrop, &p, bp, TriggerContext{CorrectPlacements: 1}))
	assert.True(t, r.Finished(blueprint.MechanicDragDrop, &p, bp, TriggerContext{CorrectPlacements: 2}))

	p.Put(&SequencingProgress{IsSubmitted: true, CorrectPositions: 1, TotalPositions: 3})
	done, total = r.Completion(blueprint.MechanicSequencing, &p, bp, TriggerContext{})
	assert.Equal(t, 1, done)
	assert.Equal(t, 3, total)
	assert.True(t, r.Finished(blueprint.MechanicSequencing, &p, bp, TriggerContext{}), "a submitted sequence is finished even when imperfect")

	p.Put(&BranchingProgress{CurrentNodeID: "end", PathTaken: []BranchingStep{{NodeID: "n1", OptionID: "o1", IsCorrect: true}}})
	assert.True(t, r.Finished(blueprint.MechanicBranchingScenario, &p, bp, TriggerContext{}))
}

func TestRegistry_CheckTrigger(t *testing.T) {
	r := NewRegistry()
	bp := testBlueprint()
	p := &Progress{}
	p.Put(&MemoryMatchProgress{MatchedPairIDs: []string{"p1", "p2"}, TotalPairs: 2})

	sat, applicable := r.CheckTrigger(blueprint.ModeTransition{From: blueprint.MechanicMemoryMatch, Trigger: blueprint.TriggerMemoryComplete}, p, bp, TriggerContext{})
	assert.True(t, applicable)
	assert.True(t, sat)

	_, applicable = r.CheckTrigger(blueprint.ModeTransition{From: blueprint.MechanicMemoryMatch, Trigger: blueprint.TriggerPercentageComplete}, p, bp, TriggerContext{})
	assert.False(t, applicable, "generic triggers are deferred")

	_, applicable = r.CheckTrigger(blueprint.ModeTransition{From: "juggling", Trigger: blueprint.TriggerMemoryComplete}, p, bp, TriggerContext{})
	assert.False(t, applicable)
}

func TestRegistry_HierarchyLevelTrigger(t *testing.T) {
	r := NewRegistry()
	bp := testBlueprint()
	tr := blueprint.ModeTransition{
		From:         blueprint.MechanicHierarchical,
		Trigger:      blueprint.TriggerHierarchyLevelComplete,
		TriggerValue: blueprint.NumberValue(2),
	}

	sat, applicable := r.CheckTrigger(tr, &Progress{}, bp, TriggerContext{CompletedZones: []string{"heart", "atrium"}})
	assert.True(t, applicable)
	assert.False(t, sat)

	sat, _ = r.CheckTrigger(tr, &Progress{}, bp, TriggerContext{CompletedZones: []string{"heart", "atrium", "ventricle"}})
	assert.True(t, sat)
}

func TestZoneLevel(t *testing.T) {
	bp := testBlueprint()
	assert.Equal(t, 1, ZoneLevel(bp, "heart"))
	assert.Equal(t, 2, ZoneLevel(bp, "atrium"))
	assert.Equal(t, 0, ZoneLevel(bp, "missing"))
}

func TestHelpers_Ordering(t *testing.T) {
	bp := testBlueprint()

	prompts := IdentificationPrompts(bp)
	require.Len(t, prompts, 2)
	assert.Equal(t, "heart", prompts[0].ZoneID)

	assert.Equal(t, []string{"atrium", "ventricle"}, OrderedWaypoints(bp.Paths[0]))
	assert.Equal(t, []string{"heart", "l-atrium"}, DescriptionTargets(bp))

	bp.IdentificationPrompts = nil
	prompts = IdentificationPrompts(bp)
	require.Len(t, prompts, 3)
	assert.Equal(t, "Click on Heart", prompts[0].Prompt)
	assert.Equal(t, "Click on atrium", prompts[1].Prompt)
}

func TestProgress_CloneIsDeep(t *testing.T) {
	var p Progress
	p.Put(&SortingProgress{ItemCategories: map[string]string{"i1": "c1"}})
	p.Put(&PathProgress{Visited: map[string][]string{"flow": {"atrium"}}})

	c := p.Clone()
	c.Sorting.ItemCategories["i2"] = "c2"
	c.Path.Visited["flow"][0] = "changed"

	assert.Len(t, p.Sorting.ItemCategories, 1)
	assert.Equal(t, "atrium", p.Path.Visited["flow"][0])
}
