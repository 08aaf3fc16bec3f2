package engine

import (
	"slices"

	"github.com/roach88/diagramlab/internal/blueprint"
	"github.com/roach88/diagramlab/internal/eventlog"
	"github.com/roach88/diagramlab/internal/mechanic"
	"github.com/roach88/diagramlab/internal/visibility"
)

const (
	feedbackWrongZone  = "That label doesn't belong there."
	feedbackZoneHidden = "That part of the diagram isn't available yet."
)

// PlaceLabel drops labelID on zoneID. It reports whether the label was
// committed, which only happens for correct placements on visible zones.
func (e *Engine) PlaceLabel(labelID, zoneID string) bool {
	res, err := e.run(ActionPlace, func() (*ActionResult, error) {
		return e.placeLabel(labelID, zoneID)
	})
	return err == nil && res != nil && res.IsCorrect
}

// RemoveLabel takes a placed label back off the diagram and reverses the
// points it earned.
func (e *Engine) RemoveLabel(labelID string) bool {
	_, err := e.run(ActionRemove, func() (*ActionResult, error) {
		return nil, e.removeLabel(labelID)
	})
	return err == nil
}

// TakeBackLabel removes labelID like RemoveLabel. When the placement handed
// the game to another mechanic that has not scored yet, the game first steps
// back into the placement mechanic so the label can come off.
func (e *Engine) TakeBackLabel(labelID string) (*ActionResult, error) {
	return e.run(ActionRemove, func() (*ActionResult, error) {
		if _, ok := e.state.Placement(labelID); ok && !isPlacementMechanic(e.current()) {
			e.stepBackLocked()
		}
		return nil, e.removeLabel(labelID)
	})
}

// PlacementOf returns the zone labelID is placed on.
func (e *Engine) PlacementOf(labelID string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.state.Placement(labelID)
	return p.ZoneID, ok
}

func (e *Engine) placeLabel(labelID, zoneID string) (*ActionResult, error) {
	if err := e.requireMode(blueprint.MechanicDragDrop, blueprint.MechanicHierarchical); err != nil {
		return nil, err
	}
	if !slices.Contains(e.state.AvailableLabels, labelID) {
		return nil, newNotFound("available label", labelID)
	}
	if !e.bp.HasZone(zoneID) {
		return nil, newNotFound("zone", zoneID)
	}
	if !e.state.IsZoneVisible(zoneID) {
		e.state.Feedback = feedbackZoneHidden
		e.commit()
		return nil, newZoneNotVisible(zoneID)
	}
	if e.state.IsZoneCompleted(zoneID) {
		return nil, &RuntimeError{Code: ErrCodeZoneOccupied, Message: "zone " + zoneID + " is already labeled"}
	}

	verdict := mechanic.EvaluatePlacement(labelID, zoneID, e.bp)
	cfg := e.scoring()
	if !verdict.IsCorrect {
		applied := e.addScore(mechanic.ScoreDelta(cfg, mechanic.Outcome{}))
		e.state.IncorrectAttempts++
		e.state.Feedback = feedbackWrongZone
		if verdict.Explanation != "" {
			e.state.Feedback = verdict.Explanation
		}
		e.commit()
		e.record(eventlog.KindIncorrectPlacement, map[string]any{
			"label_id": labelID,
			"zone_id":  zoneID,
			"penalty":  applied,
		})
		return &ActionResult{
			ScoreDelta: applied,
			Data:       map[string]any{"feedback": e.state.Feedback},
		}, nil
	}

	applied := e.addScore(mechanic.ScoreDelta(cfg, mechanic.Outcome{IsCorrect: true, Elapsed: e.modeElapsed()}))
	e.state.PlacedLabels = append(e.state.PlacedLabels, PlacedLabel{
		LabelID:   labelID,
		ZoneID:    zoneID,
		IsCorrect: true,
		Points:    applied,
	})
	e.state.AvailableLabels = availableLabels(e.bp, e.state.PlacedLabels)
	e.state.CompletedZones = append(e.state.CompletedZones, zoneID)
	e.state.Feedback = ""
	e.expandHierarchyLocked(zoneID)
	e.refreshVisibilityLocked()
	e.commit()

	e.record(eventlog.KindLabelPlaced, map[string]any{
		"label_id": labelID,
		"zone_id":  zoneID,
		"points":   applied,
	})
	e.afterProgressLocked()
	return &ActionResult{IsCorrect: true, ScoreDelta: applied}, nil
}

func (e *Engine) removeLabel(labelID string) error {
	if err := e.requireMode(blueprint.MechanicDragDrop, blueprint.MechanicHierarchical); err != nil {
		return err
	}
	idx := slices.IndexFunc(e.state.PlacedLabels, func(p PlacedLabel) bool { return p.LabelID == labelID })
	if idx < 0 {
		return newNotFound("placed label", labelID)
	}
	placed := e.state.PlacedLabels[idx]
	e.state.PlacedLabels = slices.Delete(e.state.PlacedLabels, idx, idx+1)
	e.state.AvailableLabels = availableLabels(e.bp, e.state.PlacedLabels)
	e.state.CompletedZones = slices.DeleteFunc(e.state.CompletedZones, func(z string) bool { return z == placed.ZoneID })
	applied := e.addScore(-placed.Points)
	e.state.Feedback = ""
	e.collapseHierarchyLocked(placed.ZoneID)
	e.refreshVisibilityLocked()
	e.commit()

	e.record(eventlog.KindLabelRemoved, map[string]any{
		"label_id": labelID,
		"zone_id":  placed.ZoneID,
		"points":   applied,
	})

	if e.state.Phase == PhaseComplete {
		e.reopenLocked()
		return nil
	}
	e.revalidatePendingLocked()
	return nil
}

// expandHierarchyLocked opens the groups under a newly completed parent.
func (e *Engine) expandHierarchyLocked(zoneID string) {
	hp := e.state.Progress.Hierarchy
	if hp == nil || e.current() != blueprint.MechanicHierarchical {
		return
	}
	if len(visibility.Children(e.bp.Zones, zoneID)) == 0 {
		return
	}
	if !slices.Contains(hp.CompletedParentZones, zoneID) {
		hp.CompletedParentZones = append(hp.CompletedParentZones, zoneID)
	}
	for _, g := range e.bp.ZoneGroups {
		if g.ParentZoneID == zoneID && !slices.Contains(hp.ExpandedGroups, g.ID) {
			hp.ExpandedGroups = append(hp.ExpandedGroups, g.ID)
		}
	}
}

func (e *Engine) collapseHierarchyLocked(zoneID string) {
	hp := e.state.Progress.Hierarchy
	if hp == nil {
		return
	}
	hp.CompletedParentZones = slices.DeleteFunc(hp.CompletedParentZones, func(z string) bool { return z == zoneID })
	hp.ExpandedGroups = slices.DeleteFunc(hp.ExpandedGroups, func(id string) bool {
		for _, g := range e.bp.ZoneGroups {
			if g.ID == id && g.ParentZoneID == zoneID {
				return true
			}
		}
		return false
	})
}
