package engine

import (
	"fmt"
	"slices"

	"github.com/roach88/diagramlab/internal/blueprint"
	"github.com/roach88/diagramlab/internal/eventlog"
	"github.com/roach88/diagramlab/internal/mechanic"
)

const genericHint = "Look closely at the diagram and try again."

// RequestHint records a hint and applies the blueprint's hint penalty.
func (e *Engine) RequestHint() *ActionResult {
	res, _ := e.run(ActionHint, e.requestHint)
	return res
}

func (e *Engine) requestHint() (*ActionResult, error) {
	hint := e.hintLocked()
	penalty := e.bp.Scoring.HintPenalty
	if penalty > 0 {
		penalty = -penalty
	}
	applied := e.addScore(penalty)
	e.state.HintsUsed++
	e.commit()

	e.record(eventlog.KindHintRequested, map[string]any{
		"mode":    string(e.current()),
		"hint":    hint,
		"penalty": applied,
	})
	return &ActionResult{ScoreDelta: applied, Data: map[string]any{"hint": hint}}, nil
}

func (e *Engine) hintLocked() string {
	switch e.current() {
	case blueprint.MechanicDragDrop, blueprint.MechanicHierarchical:
		for _, l := range e.bp.Labels {
			if !slices.Contains(e.state.AvailableLabels, l.ID) || !e.state.IsZoneVisible(l.CorrectZoneID) {
				continue
			}
			zone, _ := e.bp.Zone(l.CorrectZoneID)
			return fmt.Sprintf("%q goes on %s.", l.Text, zoneName(zone))
		}
	case blueprint.MechanicClickToIdentify:
		prompts := mechanic.IdentificationPrompts(e.bp)
		if p := e.state.Progress.Identification; p != nil && p.CurrentPromptIndex < len(prompts) {
			zone, _ := e.bp.Zone(prompts[p.CurrentPromptIndex].ZoneID)
			return fmt.Sprintf("Look for %s.", zoneName(zone))
		}
	case blueprint.MechanicTracePath:
		p := e.state.Progress.Path
		for _, path := range e.bp.Paths {
			if p != nil && slices.Contains(p.CompletedPaths, path.ID) {
				continue
			}
			waypoints := mechanic.OrderedWaypoints(path)
			next := 0
			if p != nil {
				next = len(p.Visited[path.ID])
			}
			if next < len(waypoints) {
				zone, _ := e.bp.Zone(waypoints[next])
				return fmt.Sprintf("The next stop is %s.", zoneName(zone))
			}
		}
	case blueprint.MechanicSequencing:
		if c := e.bp.SequenceConfig; c != nil && len(c.CorrectOrder) > 0 {
			for _, it := range c.Items {
				if it.ID == c.CorrectOrder[0] {
					return fmt.Sprintf("%q comes first.", it.Text)
				}
			}
		}
	}
	return genericHint
}

func zoneName(z blueprint.Zone) string {
	if z.Label != "" {
		return z.Label
	}
	return z.ID
}
