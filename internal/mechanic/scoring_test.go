package mechanic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/diagramlab/internal/blueprint"
)

func TestMaxScore(t *testing.T) {
	bp := testBlueprint()
	r := NewRegistry()

	tests := []struct {
		kind blueprint.MechanicKind
		want int
	}{
		{blueprint.MechanicDragDrop, 20},
		{blueprint.MechanicClickToIdentify, 20},
		{blueprint.MechanicTracePath, 20},
		{blueprint.MechanicHierarchical, 30},
		{blueprint.MechanicSequencing, 30},
		{blueprint.MechanicSortingCategories, 20},
		{blueprint.MechanicMemoryMatch, 20},
		{blueprint.MechanicBranchingScenario, 10},
		{blueprint.MechanicCompareContrast, 20},
		{blueprint.MechanicDescriptionMatching, 20},
		{"juggling", 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, r.MaxScore(tt.kind, bp, 10))
		})
	}
}

func TestScoreDelta(t *testing.T) {
	cfg := blueprint.ScoringConfig{BasePointsPerItem: 10, AttemptPenalty: -2}

	assert.Equal(t, 10, ScoreDelta(cfg, Outcome{IsCorrect: true}))
	assert.Equal(t, -2, ScoreDelta(cfg, Outcome{IsCorrect: false}), "penalty is not clamped")

	cfg.AttemptPenalty = 0
	assert.Equal(t, 0, ScoreDelta(cfg, Outcome{}))
}

func TestScoreDelta_TimeBonus(t *testing.T) {
	cfg := blueprint.ScoringConfig{
		BasePointsPerItem: 10,
		TimeBonus:         true,
		BonusMultiplier:   1.0,
		MaxBonusSeconds:   60,
	}

	assert.Equal(t, 20, ScoreDelta(cfg, Outcome{IsCorrect: true, Elapsed: 0}))
	assert.Equal(t, 15, ScoreDelta(cfg, Outcome{IsCorrect: true, Elapsed: 30 * time.Second}))
	assert.Equal(t, 10, ScoreDelta(cfg, Outcome{IsCorrect: true, Elapsed: 90 * time.Second}))
	assert.Equal(t, 0, ScoreDelta(cfg, Outcome{IsCorrect: false, Elapsed: 0}), "no bonus on incorrect")
}

func TestSubmissionScore(t *testing.T) {
	partial := blueprint.ScoringConfig{BasePointsPerItem: 5, PartialCredit: true}
	allOrNothing := blueprint.ScoringConfig{BasePointsPerItem: 5}

	assert.Equal(t, 10, SubmissionScore(partial, 2, 3))
	assert.Equal(t, 0, SubmissionScore(allOrNothing, 2, 3))
	assert.Equal(t, 15, SubmissionScore(allOrNothing, 3, 3))
	assert.Equal(t, 0, SubmissionScore(partial, 0, 3))
	assert.Equal(t, 0, SubmissionScore(partial, 1, 0))
}
