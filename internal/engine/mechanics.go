package engine

import (
	"fmt"
	"slices"

	"github.com/roach88/diagramlab/internal/blueprint"
	"github.com/roach88/diagramlab/internal/mechanic"
)

// Identify answers the current identification prompt by clicking zoneID.
func (e *Engine) Identify(zoneID string) *ActionResult {
	res, _ := e.run(ActionIdentify, func() (*ActionResult, error) { return e.identify(zoneID) })
	return res
}

// VisitWaypoint records a click on zoneID while tracing pathID.
func (e *Engine) VisitWaypoint(pathID, zoneID string) *ActionResult {
	res, _ := e.run(ActionVisitWaypoint, func() (*ActionResult, error) { return e.visitWaypoint(pathID, zoneID) })
	return res
}

// SubmitPath submits a whole traced path at once.
func (e *Engine) SubmitPath(pathID string, zoneIDs []string) *ActionResult {
	res, _ := e.run(ActionSubmitPath, func() (*ActionResult, error) { return e.submitPath(pathID, zoneIDs) })
	return res
}

// Reorder replaces the learner's current sequence order.
func (e *Engine) Reorder(order []string) bool {
	_, err := e.run(ActionReorder, func() (*ActionResult, error) { return nil, e.reorder(order) })
	return err == nil
}

// SubmitSequence scores the current sequence order. A second submit is a
// no-op.
func (e *Engine) SubmitSequence() *ActionResult {
	res, _ := e.run(ActionSubmitSequence, e.submitSequence)
	return res
}

// Sort puts itemID in categoryID.
func (e *Engine) Sort(itemID, categoryID string) bool {
	_, err := e.run(ActionSort, func() (*ActionResult, error) { return nil, e.sortItem(itemID, categoryID) })
	return err == nil
}

// Unsort takes itemID out of its category.
func (e *Engine) Unsort(itemID string) bool {
	_, err := e.run(ActionUnsort, func() (*ActionResult, error) { return nil, e.unsortItem(itemID) })
	return err == nil
}

// SubmitSorting scores the current sorting. A second submit is a no-op.
func (e *Engine) SubmitSorting() *ActionResult {
	res, _ := e.run(ActionSubmitSorting, e.submitSorting)
	return res
}

// MatchPair records a successful memory match.
func (e *Engine) MatchPair(pairID string) *ActionResult {
	res, _ := e.run(ActionMatchPair, func() (*ActionResult, error) { return e.matchPair(pairID) })
	return res
}

// MemoryAttempt records a failed memory flip.
func (e *Engine) MemoryAttempt() *ActionResult {
	res, _ := e.run(ActionMemoryAttempt, e.memoryAttempt)
	return res
}

// BranchingChoice records choosing optionID at nodeID. When the blueprint
// declares the option, its correctness and next node take precedence over
// the arguments.
func (e *Engine) BranchingChoice(nodeID, optionID string, isCorrect bool, nextNodeID string) *ActionResult {
	res, _ := e.run(ActionBranchingChoice, func() (*ActionResult, error) {
		return e.branchingChoice(nodeID, optionID, isCorrect, nextNodeID)
	})
	return res
}

// BranchingUndo steps back to the previous decision node.
func (e *Engine) BranchingUndo() bool {
	_, err := e.run(ActionBranchingUndo, func() (*ActionResult, error) { return nil, e.branchingUndo() })
	return err == nil
}

// Categorize assigns zoneID to a compare/contrast category.
func (e *Engine) Categorize(zoneID, category string) bool {
	_, err := e.run(ActionCategorize, func() (*ActionResult, error) { return nil, e.categorize(zoneID, category) })
	return err == nil
}

// SubmitCompare scores the categorizations. A second submit is a no-op.
func (e *Engine) SubmitCompare() *ActionResult {
	res, _ := e.run(ActionSubmitCompare, e.submitCompare)
	return res
}

// DescriptionMatch matches the description keyed by describedID to zoneID.
func (e *Engine) DescriptionMatch(describedID, zoneID string) *ActionResult {
	res, _ := e.run(ActionDescriptionMatch, func() (*ActionResult, error) { return e.descriptionMatch(describedID, zoneID) })
	return res
}

// scoreOutcome applies the score for one judged event in the active
// mechanic and returns the change actually applied.
func (e *Engine) scoreOutcome(correct bool) int {
	o := mechanic.Outcome{IsCorrect: correct}
	if correct {
		o.Elapsed = e.modeElapsed()
	} else {
		e.state.IncorrectAttempts++
	}
	return e.addScore(mechanic.ScoreDelta(e.scoring(), o))
}

func (e *Engine) identify(zoneID string) (*ActionResult, error) {
	if err := e.requireMode(blueprint.MechanicClickToIdentify); err != nil {
		return nil, err
	}
	if !e.bp.HasZone(zoneID) {
		return nil, newNotFound("zone", zoneID)
	}
	if !e.state.IsZoneVisible(zoneID) {
		return nil, newZoneNotVisible(zoneID)
	}
	p := e.state.Progress.Identification
	if p == nil {
		p = &mechanic.IdentificationProgress{CompletedZoneIDs: []string{}}
		e.state.Progress.Put(p)
	}
	prompts := mechanic.IdentificationPrompts(e.bp)
	if p.CurrentPromptIndex >= len(prompts) {
		return nil, &RuntimeError{Code: ErrCodeMechanicFinished, Message: "no prompts left", Mode: e.current()}
	}

	verdict := mechanic.EvaluateIdentification(zoneID, p, e.bp)
	applied := e.scoreOutcome(verdict.IsCorrect)
	data := map[string]any{}
	if verdict.IsCorrect {
		p.CompletedZoneIDs = append(p.CompletedZoneIDs, verdict.CompletedZoneID)
		p.CurrentPromptIndex++
		e.state.Feedback = ""
		e.refreshVisibilityLocked()
		if p.CurrentPromptIndex < len(prompts) {
			data["next_prompt"] = prompts[p.CurrentPromptIndex].Prompt
		}
	} else {
		p.IncorrectAttempts++
		e.state.Feedback = fmt.Sprintf("Not quite. %s", prompts[p.CurrentPromptIndex].Prompt)
	}
	e.commit()
	e.afterProgressLocked()
	return &ActionResult{IsCorrect: verdict.IsCorrect, ScoreDelta: applied, Data: data}, nil
}

func (e *Engine) pathProgress() *mechanic.PathProgress {
	p := e.state.Progress.Path
	if p == nil {
		p = &mechanic.PathProgress{}
		e.state.Progress.Put(p)
	}
	if p.Visited == nil {
		p.Visited = map[string][]string{}
	}
	if p.PointsAwarded == nil {
		p.PointsAwarded = map[string]int{}
	}
	return p
}

func (e *Engine) visitWaypoint(pathID, zoneID string) (*ActionResult, error) {
	if err := e.requireMode(blueprint.MechanicTracePath); err != nil {
		return nil, err
	}
	path, ok := mechanic.FindPath(e.bp, pathID)
	if !ok {
		return nil, newNotFound("path", pathID)
	}
	p := e.pathProgress()
	if slices.Contains(p.CompletedPaths, pathID) {
		return nil, &RuntimeError{Code: ErrCodeMechanicFinished, Message: "path " + pathID + " already complete", Mode: e.current()}
	}

	expected := mechanic.OrderedWaypoints(path)
	visited := p.Visited[pathID]
	var correct bool
	if path.RequiresOrder {
		correct = len(visited) < len(expected) && expected[len(visited)] == zoneID
	} else {
		correct = slices.Contains(expected, zoneID) && !slices.Contains(visited, zoneID)
	}

	applied := e.scoreOutcome(correct)
	complete := false
	if correct {
		p.Visited[pathID] = append(visited, zoneID)
		p.PointsAwarded[pathID] += applied
		if len(p.Visited[pathID]) == len(expected) {
			p.CompletedPaths = append(p.CompletedPaths, pathID)
			complete = true
		}
	}
	e.commit()
	e.afterProgressLocked()
	return &ActionResult{
		IsCorrect:  correct,
		ScoreDelta: applied,
		Data:       map[string]any{"path_complete": complete},
	}, nil
}

func (e *Engine) submitPath(pathID string, zoneIDs []string) (*ActionResult, error) {
	if err := e.requireMode(blueprint.MechanicTracePath); err != nil {
		return nil, err
	}
	path, ok := mechanic.FindPath(e.bp, pathID)
	if !ok {
		return nil, newNotFound("path", pathID)
	}
	p := e.pathProgress()
	if slices.Contains(p.CompletedPaths, pathID) {
		return nil, newAlreadySubmitted(e.current())
	}

	expected := mechanic.OrderedWaypoints(path)
	var correct bool
	if path.RequiresOrder {
		correct = slices.Equal(zoneIDs, expected)
	} else {
		a, b := slices.Clone(zoneIDs), slices.Clone(expected)
		slices.Sort(a)
		slices.Sort(b)
		correct = slices.Equal(a, b)
	}

	if !correct {
		applied := e.scoreOutcome(false)
		e.commit()
		return &ActionResult{ScoreDelta: applied}, nil
	}

	remaining := len(expected) - len(p.Visited[pathID])
	applied := 0
	for n := 0; n < remaining; n++ {
		applied += e.scoreOutcome(true)
	}
	p.Visited[pathID] = slices.Clone(expected)
	p.PointsAwarded[pathID] += applied
	p.CompletedPaths = append(p.CompletedPaths, pathID)
	e.commit()
	e.afterProgressLocked()
	return &ActionResult{IsCorrect: true, ScoreDelta: applied, Data: map[string]any{"path_complete": true}}, nil
}

func (e *Engine) sequencingProgress() *mechanic.SequencingProgress {
	p := e.state.Progress.Sequencing
	if p == nil {
		slot, _ := e.registry.Initialize(blueprint.MechanicSequencing, e.bp)
		p, _ = slot.(*mechanic.SequencingProgress)
		if p == nil {
			p = &mechanic.SequencingProgress{}
		}
		e.state.Progress.Put(p)
	}
	return p
}

func (e *Engine) reorder(order []string) error {
	if err := e.requireMode(blueprint.MechanicSequencing); err != nil {
		return err
	}
	p := e.sequencingProgress()
	if p.IsSubmitted {
		return newAlreadySubmitted(e.current())
	}
	a, b := slices.Clone(order), slices.Clone(p.CurrentOrder)
	slices.Sort(a)
	slices.Sort(b)
	if !slices.Equal(a, b) {
		return &RuntimeError{Code: ErrCodeInvalidArgument, Message: "order is not a permutation of the sequence items", Mode: e.current()}
	}
	p.CurrentOrder = slices.Clone(order)
	e.commit()
	return nil
}

func (e *Engine) submitSequence() (*ActionResult, error) {
	if err := e.requireMode(blueprint.MechanicSequencing); err != nil {
		return nil, err
	}
	p := e.sequencingProgress()
	if p.IsSubmitted {
		return nil, newAlreadySubmitted(e.current())
	}
	var want []string
	if e.bp.SequenceConfig != nil {
		want = e.bp.SequenceConfig.CorrectOrder
	}
	correct := 0
	for i, n := 0, min(len(want), len(p.CurrentOrder)); i < n; i++ {
		if p.CurrentOrder[i] == want[i] {
			correct++
		}
	}
	p.IsSubmitted = true
	p.CorrectPositions = correct
	p.TotalPositions = len(want)
	applied := e.addScore(mechanic.SubmissionScore(e.scoring(), correct, len(want)))
	e.commit()
	e.afterProgressLocked()
	return &ActionResult{
		IsCorrect:  len(want) > 0 && correct == len(want),
		ScoreDelta: applied,
		Data: map[string]any{
			"correct_positions": correct,
			"total_positions":   len(want),
		},
	}, nil
}

func (e *Engine) sortingProgress() *mechanic.SortingProgress {
	p := e.state.Progress.Sorting
	if p == nil {
		p = &mechanic.SortingProgress{}
		e.state.Progress.Put(p)
	}
	if p.ItemCategories == nil {
		p.ItemCategories = map[string]string{}
	}
	return p
}

func (e *Engine) sortItem(itemID, categoryID string) error {
	if err := e.requireMode(blueprint.MechanicSortingCategories); err != nil {
		return err
	}
	cfg := e.bp.SortingConfig
	if cfg == nil || !slices.ContainsFunc(cfg.Items, func(it blueprint.SortingItem) bool { return it.ID == itemID }) {
		return newNotFound("sorting item", itemID)
	}
	if !slices.ContainsFunc(cfg.Categories, func(c blueprint.SortingCategory) bool { return c.ID == categoryID }) {
		return newNotFound("sorting category", categoryID)
	}
	p := e.sortingProgress()
	if p.IsSubmitted {
		return newAlreadySubmitted(e.current())
	}
	p.ItemCategories[itemID] = categoryID
	e.commit()
	return nil
}

func (e *Engine) unsortItem(itemID string) error {
	if err := e.requireMode(blueprint.MechanicSortingCategories); err != nil {
		return err
	}
	p := e.sortingProgress()
	if p.IsSubmitted {
		return newAlreadySubmitted(e.current())
	}
	if _, ok := p.ItemCategories[itemID]; !ok {
		return newNotFound("sorted item", itemID)
	}
	delete(p.ItemCategories, itemID)
	e.commit()
	return nil
}

func (e *Engine) submitSorting() (*ActionResult, error) {
	if err := e.requireMode(blueprint.MechanicSortingCategories); err != nil {
		return nil, err
	}
	p := e.sortingProgress()
	if p.IsSubmitted {
		return nil, newAlreadySubmitted(e.current())
	}
	correct, total := 0, 0
	if cfg := e.bp.SortingConfig; cfg != nil {
		total = len(cfg.Items)
		for _, it := range cfg.Items {
			if p.ItemCategories[it.ID] == it.CorrectCategoryID {
				correct++
			}
		}
	}
	p.IsSubmitted = true
	p.CorrectCount = correct
	p.TotalCount = total
	applied := e.addScore(mechanic.SubmissionScore(e.scoring(), correct, total))
	e.commit()
	e.afterProgressLocked()
	return &ActionResult{
		IsCorrect:  total > 0 && correct == total,
		ScoreDelta: applied,
		Data:       map[string]any{"correct_count": correct, "total_count": total},
	}, nil
}

func (e *Engine) memoryProgress() *mechanic.MemoryMatchProgress {
	p := e.state.Progress.MemoryMatch
	if p == nil {
		p = &mechanic.MemoryMatchProgress{MatchedPairIDs: []string{}}
		if cfg := e.bp.MemoryMatchConfig; cfg != nil {
			p.TotalPairs = len(cfg.Pairs)
		}
		e.state.Progress.Put(p)
	}
	return p
}

func (e *Engine) matchPair(pairID string) (*ActionResult, error) {
	if err := e.requireMode(blueprint.MechanicMemoryMatch); err != nil {
		return nil, err
	}
	cfg := e.bp.MemoryMatchConfig
	if cfg == nil || !slices.ContainsFunc(cfg.Pairs, func(p blueprint.MemoryPair) bool { return p.ID == pairID }) {
		return nil, newNotFound("memory pair", pairID)
	}
	p := e.memoryProgress()
	if slices.Contains(p.MatchedPairIDs, pairID) {
		return nil, &RuntimeError{Code: ErrCodeAlreadySubmitted, Message: "pair " + pairID + " already matched", Mode: e.current(), Err: ErrAlreadySubmitted}
	}
	p.Attempts++
	p.MatchedPairIDs = append(p.MatchedPairIDs, pairID)
	applied := e.scoreOutcome(true)
	e.commit()
	e.afterProgressLocked()
	return &ActionResult{
		IsCorrect:  true,
		ScoreDelta: applied,
		Data:       map[string]any{"matched": len(p.MatchedPairIDs), "total": p.TotalPairs},
	}, nil
}

func (e *Engine) memoryAttempt() (*ActionResult, error) {
	if err := e.requireMode(blueprint.MechanicMemoryMatch); err != nil {
		return nil, err
	}
	p := e.memoryProgress()
	p.Attempts++
	applied := e.scoreOutcome(false)
	e.commit()
	return &ActionResult{ScoreDelta: applied}, nil
}

func (e *Engine) branchingProgress() *mechanic.BranchingProgress {
	p := e.state.Progress.Branching
	if p == nil {
		p = &mechanic.BranchingProgress{PathTaken: []mechanic.BranchingStep{}}
		if cfg := e.bp.BranchingConfig; cfg != nil {
			p.CurrentNodeID = cfg.StartNodeID
		}
		e.state.Progress.Put(p)
	}
	return p
}

func (e *Engine) branchingChoice(nodeID, optionID string, isCorrect bool, nextNodeID string) (*ActionResult, error) {
	if err := e.requireMode(blueprint.MechanicBranchingScenario); err != nil {
		return nil, err
	}
	p := e.branchingProgress()
	if p.CurrentNodeID == "" {
		return nil, &RuntimeError{Code: ErrCodeMechanicFinished, Message: "scenario already ended", Mode: e.current()}
	}
	if node, ok := mechanic.FindNode(e.bp, p.CurrentNodeID); ok && node.IsEndNode {
		return nil, &RuntimeError{Code: ErrCodeMechanicFinished, Message: "scenario already ended", Mode: e.current()}
	}
	if nodeID != p.CurrentNodeID {
		return nil, &RuntimeError{
			Code:    ErrCodeInvalidArgument,
			Message: fmt.Sprintf("node %q is not the current node %q", nodeID, p.CurrentNodeID),
			Mode:    e.current(),
		}
	}

	consequence := ""
	if node, ok := mechanic.FindNode(e.bp, nodeID); ok {
		idx := slices.IndexFunc(node.Options, func(o blueprint.DecisionOption) bool { return o.ID == optionID })
		if idx < 0 {
			return nil, newNotFound("option", optionID)
		}
		opt := node.Options[idx]
		isCorrect = opt.IsCorrect
		nextNodeID = opt.NextNodeID
		consequence = opt.Consequence
	}

	applied := e.scoreOutcome(isCorrect)
	p.PathTaken = append(p.PathTaken, mechanic.BranchingStep{
		NodeID:    nodeID,
		OptionID:  optionID,
		IsCorrect: isCorrect,
		Points:    applied,
	})
	p.CurrentNodeID = nextNodeID
	e.commit()
	e.afterProgressLocked()

	data := map[string]any{"next_node_id": nextNodeID}
	if consequence != "" {
		data["consequence"] = consequence
	}
	return &ActionResult{IsCorrect: isCorrect, ScoreDelta: applied, Data: data}, nil
}

func (e *Engine) branchingUndo() error {
	if err := e.requireMode(blueprint.MechanicBranchingScenario); err != nil {
		return err
	}
	p := e.branchingProgress()
	n := len(p.PathTaken)
	if n == 0 {
		return newNotFound("branching step", "previous")
	}
	step := p.PathTaken[n-1]
	p.PathTaken = p.PathTaken[:n-1]
	p.CurrentNodeID = step.NodeID
	e.addScore(-step.Points)
	if !step.IsCorrect && e.state.IncorrectAttempts > 0 {
		e.state.IncorrectAttempts--
	}
	e.commit()
	e.revalidatePendingLocked()
	return nil
}

func (e *Engine) compareProgress() *mechanic.CompareProgress {
	p := e.state.Progress.Compare
	if p == nil {
		p = &mechanic.CompareProgress{}
		e.state.Progress.Put(p)
	}
	if p.Categorizations == nil {
		p.Categorizations = map[string]string{}
	}
	return p
}

func (e *Engine) categorize(zoneID, category string) error {
	if err := e.requireMode(blueprint.MechanicCompareContrast); err != nil {
		return err
	}
	cfg := e.bp.CompareConfig
	if cfg == nil {
		return newNotFound("compare config", e.bp.ID)
	}
	if _, ok := cfg.ExpectedCategories[zoneID]; !ok {
		return newNotFound("compare zone", zoneID)
	}
	p := e.compareProgress()
	if p.IsSubmitted {
		return newAlreadySubmitted(e.current())
	}
	p.Categorizations[zoneID] = category
	e.commit()
	return nil
}

func (e *Engine) submitCompare() (*ActionResult, error) {
	if err := e.requireMode(blueprint.MechanicCompareContrast); err != nil {
		return nil, err
	}
	p := e.compareProgress()
	if p.IsSubmitted {
		return nil, newAlreadySubmitted(e.current())
	}
	correct, total := 0, 0
	if cfg := e.bp.CompareConfig; cfg != nil {
		total = len(cfg.ExpectedCategories)
		for zone, want := range cfg.ExpectedCategories {
			if p.Categorizations[zone] == want {
				correct++
			}
		}
	}
	p.IsSubmitted = true
	p.CorrectCount = correct
	p.TotalCount = total
	applied := e.addScore(mechanic.SubmissionScore(e.scoring(), correct, total))
	e.commit()
	e.afterProgressLocked()
	return &ActionResult{
		IsCorrect:  total > 0 && correct == total,
		ScoreDelta: applied,
		Data:       map[string]any{"correct_count": correct, "total_count": total},
	}, nil
}

func (e *Engine) descriptionMatch(describedID, zoneID string) (*ActionResult, error) {
	if err := e.requireMode(blueprint.MechanicDescriptionMatching); err != nil {
		return nil, err
	}
	if !slices.Contains(mechanic.DescriptionTargets(e.bp), describedID) {
		return nil, newNotFound("description", describedID)
	}
	if !e.bp.HasZone(zoneID) {
		return nil, newNotFound("zone", zoneID)
	}
	if !e.state.IsZoneVisible(zoneID) {
		return nil, newZoneNotVisible(zoneID)
	}
	p := e.state.Progress.DescriptionMatching
	if p == nil {
		p = &mechanic.DescriptionMatchingProgress{}
		e.state.Progress.Put(p)
	}
	if p.Matched == nil {
		p.Matched = map[string]string{}
	}
	if _, done := p.Matched[describedID]; done {
		return nil, &RuntimeError{Code: ErrCodeAlreadySubmitted, Message: "description " + describedID + " already matched", Mode: e.current(), Err: ErrAlreadySubmitted}
	}

	correct := mechanic.EvaluateDescriptionMatch(describedID, zoneID, e.bp)
	applied := e.scoreOutcome(correct)
	if correct {
		p.Matched[describedID] = zoneID
		p.CurrentIndex++
		e.refreshVisibilityLocked()
	} else {
		p.IncorrectAttempts++
	}
	e.commit()
	e.afterProgressLocked()
	return &ActionResult{IsCorrect: correct, ScoreDelta: applied}, nil
}
