package mechanic

import "github.com/roach88/diagramlab/internal/blueprint"

// IdentificationResult is the verdict for one identification click.
type IdentificationResult struct {
	IsCorrect       bool
	CompletedZoneID string
}

// EvaluateIdentification judges a click against the prompt at the current
// prompt index.
func EvaluateIdentification(zoneID string, p *IdentificationProgress, bp *blueprint.Blueprint) IdentificationResult {
	prompts := IdentificationPrompts(bp)
	idx := 0
	if p != nil {
		idx = p.CurrentPromptIndex
	}
	if idx < 0 || idx >= len(prompts) {
		return IdentificationResult{}
	}
	if prompts[idx].ZoneID != zoneID {
		return IdentificationResult{}
	}
	return IdentificationResult{IsCorrect: true, CompletedZoneID: zoneID}
}

// EvaluateDescriptionMatch judges a click on clickedZoneID for the
// description keyed by describedID.
func EvaluateDescriptionMatch(describedID, clickedZoneID string, bp *blueprint.Blueprint) bool {
	// Zone-centric: the description belongs to a zone.
	if bp.HasZone(describedID) {
		return describedID == clickedZoneID
	}
	// Label-centric: older blueprints key descriptions by label id.
	if label, ok := bp.Label(describedID); ok {
		return label.CorrectZoneID == clickedZoneID
	}
	return false
}

// PlacementResult is the verdict for dropping a label on a zone.
type PlacementResult struct {
	IsCorrect bool
	// Known is false when the label id is neither a label nor a distractor.
	Known bool
	// Explanation is the distractor's authored explanation, if any.
	Explanation string
}

// EvaluatePlacement judges dropping labelID onto zoneID.
func EvaluatePlacement(labelID, zoneID string, bp *blueprint.Blueprint) PlacementResult {
	if label, ok := bp.Label(labelID); ok {
		return PlacementResult{IsCorrect: label.CorrectZoneID == zoneID, Known: true}
	}
	if d, ok := bp.Distractor(labelID); ok {
		return PlacementResult{Known: true, Explanation: d.Explanation}
	}
	return PlacementResult{}
}
