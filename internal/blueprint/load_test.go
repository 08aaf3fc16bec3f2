package blueprint

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_YAML(t *testing.T) {
	bp, err := Load(filepath.Join("testdata", "two_mode.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "heart", bp.ID)
	require.Len(t, bp.Zones, 2)
	assert.True(t, bp.Zones[0].IsRoot())
	assert.False(t, bp.Zones[1].IsRoot())
	assert.Equal(t, []MechanicKind{MechanicDragDrop, MechanicSequencing}, bp.MechanicKinds())

	require.Len(t, bp.ModeTransitions, 2)
	pct, ok := bp.ModeTransitions[0].TriggerValue.Float()
	require.True(t, ok)
	assert.Equal(t, 100.0, pct)
	assert.Equal(t, []string{"heart", "atrium"}, bp.ModeTransitions[1].TriggerValue.Zones)

	require.NotNil(t, bp.SequenceConfig)
	assert.Equal(t, []string{"s1", "s2"}, bp.SequenceConfig.CorrectOrder)
	assert.Equal(t, ConstraintAfter, bp.TemporalConstraints[0].Constraint)
}

func TestLoad_JSON(t *testing.T) {
	bp, err := Load(filepath.Join("testdata", "simple.json"))
	require.NoError(t, err)

	assert.Equal(t, "simple", bp.ID)
	assert.Equal(t, MechanicDragDrop, bp.StartingMechanic())
	assert.Equal(t, 20, bp.MechanicScoring(MechanicDragDrop).BasePointsPerItem)
}

func TestLoad_CUE(t *testing.T) {
	bp, err := Load(filepath.Join("testdata", "simple.cue"))
	require.NoError(t, err)

	assert.Equal(t, "cue-simple", bp.ID)
	require.Len(t, bp.Zones, 2)
	assert.Equal(t, "Second", bp.Zones[1].Label)
	secs, ok := bp.ModeTransitions[0].TriggerValue.Float()
	require.True(t, ok)
	assert.Equal(t, 30.0, secs)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "unknown_field.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zonez")
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := Load("blueprint.toml")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParse_NormalizesToNFC(t *testing.T) {
	// "é" written as e + combining acute accent.
	decomposed := "cafe\u0301"
	data := []byte(`{"id":"n","zones":[{"id":"` + decomposed + `"}],"labels":[{"id":"l","text":"x","correct_zone_id":"` + decomposed + `"}],"scoring":{}}`)

	bp, err := Parse(data, FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, "caf\u00e9", bp.Zones[0].ID)
	assert.Equal(t, bp.Zones[0].ID, bp.Labels[0].CorrectZoneID)
}

func TestMechanicScoring_Fallbacks(t *testing.T) {
	bp := &Blueprint{}
	assert.Equal(t, DefaultBasePoints, bp.MechanicScoring(MechanicDragDrop).BasePointsPerItem)

	bp.Scoring.BasePointsPerZone = 7
	assert.Equal(t, 7, bp.MechanicScoring(MechanicDragDrop).BasePointsPerItem)

	bp.Mechanics = []Mechanic{{Type: MechanicDragDrop, Scoring: &ScoringConfig{BasePointsPerItem: 3, AttemptPenalty: -1}}}
	cfg := bp.MechanicScoring(MechanicDragDrop)
	assert.Equal(t, 3, cfg.BasePointsPerItem)
	assert.Equal(t, -1, cfg.AttemptPenalty)
}

func TestMechanicKinds_DeduplicatesAndDefaults(t *testing.T) {
	bp := &Blueprint{Mechanics: []Mechanic{{Type: MechanicSequencing}, {Type: MechanicSequencing}, {Type: MechanicDragDrop}}}
	assert.Equal(t, []MechanicKind{MechanicSequencing, MechanicDragDrop}, bp.MechanicKinds())

	empty := &Blueprint{Mechanics: []Mechanic{{}}}
	assert.Equal(t, []MechanicKind{MechanicDragDrop}, empty.MechanicKinds())
}
