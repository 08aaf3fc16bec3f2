package engine

import (
	"fmt"

	"github.com/roach88/diagramlab/internal/blueprint"
)

// ActionType names a learner action. The values double as the wire format
// used by scripts and the event log.
type ActionType string

const (
	ActionPlace            ActionType = "place"
	ActionRemove           ActionType = "remove"
	ActionIdentify         ActionType = "identify"
	ActionVisitWaypoint    ActionType = "visit_waypoint"
	ActionSubmitPath       ActionType = "submit_path"
	ActionReorder          ActionType = "reorder"
	ActionSubmitSequence   ActionType = "submit_sequence"
	ActionSort             ActionType = "sort"
	ActionUnsort           ActionType = "unsort"
	ActionSubmitSorting    ActionType = "submit_sorting"
	ActionMatchPair        ActionType = "match_pair"
	ActionMemoryAttempt    ActionType = "memory_attempt"
	ActionBranchingChoice  ActionType = "branching_choice"
	ActionBranchingUndo    ActionType = "branching_undo"
	ActionCategorize       ActionType = "categorize"
	ActionSubmitCompare    ActionType = "submit_compare"
	ActionDescriptionMatch ActionType = "description_match"
	ActionSwitchMode       ActionType = "switch_mode"
	ActionHint             ActionType = "hint"

	// ActionUndo and ActionRedo are handled by the session's command
	// history, never by the engine.
	ActionUndo ActionType = "undo"
	ActionRedo ActionType = "redo"
)

// Action is one dispatched learner action. Only the fields relevant to Type
// are read.
type Action struct {
	Type ActionType `json:"type" yaml:"type"`

	LabelID    string   `json:"label_id,omitempty" yaml:"label_id,omitempty"`
	ZoneID     string   `json:"zone_id,omitempty" yaml:"zone_id,omitempty"`
	PathID     string   `json:"path_id,omitempty" yaml:"path_id,omitempty"`
	ZoneIDs    []string `json:"zone_ids,omitempty" yaml:"zone_ids,omitempty"`
	Order      []string `json:"order,omitempty" yaml:"order,omitempty"`
	ItemID     string   `json:"item_id,omitempty" yaml:"item_id,omitempty"`
	CategoryID string   `json:"category_id,omitempty" yaml:"category_id,omitempty"`
	PairID     string   `json:"pair_id,omitempty" yaml:"pair_id,omitempty"`
	NodeID     string   `json:"node_id,omitempty" yaml:"node_id,omitempty"`
	OptionID   string   `json:"option_id,omitempty" yaml:"option_id,omitempty"`
	IsCorrect  bool     `json:"is_correct,omitempty" yaml:"is_correct,omitempty"`
	NextNodeID string   `json:"next_node_id,omitempty" yaml:"next_node_id,omitempty"`
	Category   string   `json:"category,omitempty" yaml:"category,omitempty"`

	Mode blueprint.MechanicKind `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// ActionResult is immediate feedback for an action. Fire-and-forget actions
// produce no result.
type ActionResult struct {
	IsCorrect  bool           `json:"is_correct"`
	ScoreDelta int            `json:"score_delta"`
	Data       map[string]any `json:"data,omitempty"`
}

// Dispatch routes an action to its handler and returns the handler's
// result. Rejected actions return nil and leave state unchanged.
func (e *Engine) Dispatch(a Action) *ActionResult {
	res, _ := e.Apply(a)
	return res
}

// Apply is Dispatch with the rejection reason.
func (e *Engine) Apply(a Action) (*ActionResult, error) {
	return e.run(a.Type, func() (*ActionResult, error) {
		return e.dispatchLocked(a)
	})
}

func (e *Engine) dispatchLocked(a Action) (*ActionResult, error) {
	switch a.Type {
	case ActionPlace:
		return e.placeLabel(a.LabelID, a.ZoneID)
	case ActionRemove:
		return nil, e.removeLabel(a.LabelID)
	case ActionIdentify:
		return e.identify(a.ZoneID)
	case ActionVisitWaypoint:
		return e.visitWaypoint(a.PathID, a.ZoneID)
	case ActionSubmitPath:
		return e.submitPath(a.PathID, a.ZoneIDs)
	case ActionReorder:
		return nil, e.reorder(a.Order)
	case ActionSubmitSequence:
		return e.submitSequence()
	case ActionSort:
		return nil, e.sortItem(a.ItemID, a.CategoryID)
	case ActionUnsort:
		return nil, e.unsortItem(a.ItemID)
	case ActionSubmitSorting:
		return e.submitSorting()
	case ActionMatchPair:
		return e.matchPair(a.PairID)
	case ActionMemoryAttempt:
		return e.memoryAttempt()
	case ActionBranchingChoice:
		return e.branchingChoice(a.NodeID, a.OptionID, a.IsCorrect, a.NextNodeID)
	case ActionBranchingUndo:
		return nil, e.branchingUndo()
	case ActionCategorize:
		return nil, e.categorize(a.ZoneID, a.Category)
	case ActionSubmitCompare:
		return e.submitCompare()
	case ActionDescriptionMatch:
		return e.descriptionMatch(a.LabelID, a.ZoneID)
	case ActionSwitchMode:
		return nil, e.requestModeSwitch(a.Mode)
	case ActionHint:
		return e.requestHint()
	default:
		return nil, &RuntimeError{
			Code:    ErrCodeUnknownAction,
			Message: fmt.Sprintf("action type %q", a.Type),
			Action:  a.Type,
		}
	}
}
