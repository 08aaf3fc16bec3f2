package mechanic

import (
	"math"
	"time"

	"github.com/roach88/diagramlab/internal/blueprint"
)

// Outcome describes one scored event.
type Outcome struct {
	IsCorrect bool
	// Elapsed is the time since the current mechanic was entered; it only
	// matters when the time bonus is enabled.
	Elapsed time.Duration
}

// MaxScore is the highest score reachable in kind under this registry.
func (r *Registry) MaxScore(kind blueprint.MechanicKind, bp *blueprint.Blueprint, basePointsPerItem int) int {
	return r.MaxItems(kind, bp) * basePointsPerItem
}

// ScoreDelta is the score change for one event. Incorrect events return the
// configured attempt penalty as is; callers clamp the running total.
func ScoreDelta(cfg blueprint.ScoringConfig, o Outcome) int {
	if !o.IsCorrect {
		return cfg.AttemptPenalty
	}
	return cfg.BasePointsPerItem + timeBonus(cfg, o.Elapsed)
}

func timeBonus(cfg blueprint.ScoringConfig, elapsed time.Duration) int {
	if !cfg.TimeBonus || cfg.MaxBonusSeconds <= 0 || cfg.BonusMultiplier <= 0 {
		return 0
	}
	window := float64(cfg.MaxBonusSeconds)
	secs := elapsed.Seconds()
	if secs < 0 || secs >= window {
		return 0
	}
	return int(math.Round(float64(cfg.BasePointsPerItem) * cfg.BonusMultiplier * (1 - secs/window)))
}

// SubmissionScore scores a whole submission of a submit-type mechanic. With
// partial credit every correct item earns base points; otherwise only a
// fully correct submission scores.
func SubmissionScore(cfg blueprint.ScoringConfig, correct, total int) int {
	if total <= 0 || correct <= 0 {
		return 0
	}
	if cfg.PartialCredit {
		return correct * cfg.BasePointsPerItem
	}
	if correct >= total {
		return total * cfg.BasePointsPerItem
	}
	return 0
}
