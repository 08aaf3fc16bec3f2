package engine

import (
	"slices"
	"time"

	"github.com/roach88/diagramlab/internal/blueprint"
	"github.com/roach88/diagramlab/internal/mechanic"
)

// Phase is the lifecycle position of a session.
type Phase string

const (
	PhaseInit              Phase = "INIT"
	PhaseActive            Phase = "ACTIVE"
	PhasePendingTransition Phase = "PENDING_TRANSITION"
	PhaseComplete          Phase = "COMPLETE"
)

// PlacedLabel records a committed placement. Points is the score awarded for
// it, so removal reverses exactly what was added.
type PlacedLabel struct {
	LabelID   string `json:"label_id"`
	ZoneID    string `json:"zone_id"`
	IsCorrect bool   `json:"is_correct"`
	Points    int    `json:"points"`
}

// ModeHistoryEntry is one stay in a mechanic.
type ModeHistoryEntry struct {
	Mode         blueprint.MechanicKind `json:"mode"`
	StartedAt    time.Time              `json:"started_at"`
	EndedAt      *time.Time             `json:"ended_at,omitempty"`
	ScoreAtEntry int                    `json:"score_at_entry"`
	ScoreAtExit  int                    `json:"score_at_exit"`

	// Trigger is set when the mechanic was entered by a scheduled transition.
	Trigger blueprint.TriggerKind `json:"trigger,omitempty"`
}

// PendingTransition is a transition that has been decided but not yet applied.
type PendingTransition struct {
	From        blueprint.MechanicKind `json:"from"`
	To          blueprint.MechanicKind `json:"to"`
	Trigger     blueprint.TriggerKind  `json:"trigger"`
	Animation   string                 `json:"animation,omitempty"`
	ScheduledAt time.Time              `json:"scheduled_at"`
}

// MultiModeState tracks which mechanic is active and where the session has been.
type MultiModeState struct {
	CurrentMode       blueprint.MechanicKind   `json:"current_mode"`
	CompletedModes    []blueprint.MechanicKind `json:"completed_modes"`
	ModeHistory       []ModeHistoryEntry       `json:"mode_history"`
	AvailableModes    []blueprint.MechanicKind `json:"available_modes"`
	EnteredModes      []blueprint.MechanicKind `json:"entered_modes"`
	PendingTransition *PendingTransition       `json:"pending_transition,omitempty"`
	ModeStartedAt     time.Time                `json:"mode_started_at"`
}

// SceneResult summarizes a finished scene of a multi-scene sequence.
type SceneResult struct {
	SceneID     string    `json:"scene_id"`
	Score       int       `json:"score"`
	MaxScore    int       `json:"max_score"`
	CompletedAt time.Time `json:"completed_at"`
}

// MultiSceneState is the bookkeeping for a blueprint sequence.
type MultiSceneState struct {
	SequenceID        string        `json:"sequence_id"`
	SceneIDs          []string      `json:"scene_ids"`
	CurrentSceneIndex int           `json:"current_scene_index"`
	SceneResults      []SceneResult `json:"scene_results"`
	TotalScore        int           `json:"total_score"`
	TotalMaxScore     int           `json:"total_max_score"`
}

// State is the full session state owned by the Engine.
type State struct {
	SessionID   string `json:"session_id"`
	BlueprintID string `json:"blueprint_id"`
	Phase       Phase  `json:"phase"`

	// Version increments on every committed mutation.
	Version int64 `json:"version"`

	AvailableLabels []string      `json:"available_labels"`
	PlacedLabels    []PlacedLabel `json:"placed_labels"`

	Score    int `json:"score"`
	MaxScore int `json:"max_score"`

	CompletedZones []string `json:"completed_zones"`
	VisibleZones   []string `json:"visible_zones"`
	BlockedZones   []string `json:"blocked_zones"`

	IncorrectAttempts int    `json:"incorrect_attempts"`
	HintsUsed         int    `json:"hints_used"`
	Feedback          string `json:"feedback,omitempty"`

	Progress   mechanic.Progress `json:"progress"`
	MultiMode  MultiModeState    `json:"multi_mode"`
	MultiScene *MultiSceneState  `json:"multi_scene,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Snapshot is the serializable copy of State used for persistence.
type Snapshot = State

// Placement returns the placed label record for labelID.
func (s *State) Placement(labelID string) (PlacedLabel, bool) {
	for _, p := range s.PlacedLabels {
		if p.LabelID == labelID {
			return p, true
		}
	}
	return PlacedLabel{}, false
}

// IsZoneVisible reports whether zoneID is currently visible.
func (s *State) IsZoneVisible(zoneID string) bool {
	return slices.Contains(s.VisibleZones, zoneID)
}

// IsZoneCompleted reports whether zoneID holds a correct placement.
func (s *State) IsZoneCompleted(zoneID string) bool {
	return slices.Contains(s.CompletedZones, zoneID)
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	out.AvailableLabels = slices.Clone(s.AvailableLabels)
	out.PlacedLabels = slices.Clone(s.PlacedLabels)
	out.CompletedZones = slices.Clone(s.CompletedZones)
	out.VisibleZones = slices.Clone(s.VisibleZones)
	out.BlockedZones = slices.Clone(s.BlockedZones)
	out.Progress = s.Progress.Clone()

	mm := s.MultiMode
	mm.CompletedModes = slices.Clone(s.MultiMode.CompletedModes)
	mm.AvailableModes = slices.Clone(s.MultiMode.AvailableModes)
	mm.EnteredModes = slices.Clone(s.MultiMode.EnteredModes)
	mm.ModeHistory = make([]ModeHistoryEntry, len(s.MultiMode.ModeHistory))
	for i, h := range s.MultiMode.ModeHistory {
		if h.EndedAt != nil {
			t := *h.EndedAt
			h.EndedAt = &t
		}
		mm.ModeHistory[i] = h
	}
	if s.MultiMode.PendingTransition != nil {
		pt := *s.MultiMode.PendingTransition
		mm.PendingTransition = &pt
	}
	out.MultiMode = mm

	if s.MultiScene != nil {
		ms := *s.MultiScene
		ms.SceneIDs = slices.Clone(s.MultiScene.SceneIDs)
		ms.SceneResults = slices.Clone(s.MultiScene.SceneResults)
		out.MultiScene = &ms
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return out
}
