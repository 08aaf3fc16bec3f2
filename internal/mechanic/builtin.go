package mechanic

import (
	"slices"
	"sort"

	"github.com/roach88/diagramlab/internal/blueprint"
)

func builtinEntries() []Entry {
	return []Entry{
		{
			Kind:            blueprint.MechanicDragDrop,
			ConfigKey:       "labels",
			CompleteTrigger: blueprint.TriggerAllZonesLabeled,
			Completion: func(_ *Progress, bp *blueprint.Blueprint, ctx TriggerContext) (int, int) {
				return ctx.CorrectPlacements, len(bp.Labels)
			},
			MaxItems: func(bp *blueprint.Blueprint) int { return len(bp.Labels) },
		},
		{
			Kind:            blueprint.MechanicClickToIdentify,
			ConfigKey:       "identification_prompts",
			CompleteTrigger: blueprint.TriggerIdentificationComplete,
			Init: func(*blueprint.Blueprint) Slot {
				return &IdentificationProgress{CompletedZoneIDs: []string{}}
			},
			Completion: func(p *Progress, bp *blueprint.Blueprint, _ TriggerContext) (int, int) {
				total := len(IdentificationPrompts(bp))
				if p.Identification == nil {
					return 0, total
				}
				return len(p.Identification.CompletedZoneIDs), total
			},
			MaxItems: func(bp *blueprint.Blueprint) int { return len(IdentificationPrompts(bp)) },
		},
		{
			Kind:            blueprint.MechanicTracePath,
			ConfigKey:       "paths",
			CompleteTrigger: blueprint.TriggerPathComplete,
			Init: func(*blueprint.Blueprint) Slot {
				return &PathProgress{
					Visited:        map[string][]string{},
					CompletedPaths: []string{},
					PointsAwarded:  map[string]int{},
				}
			},
			Completion: func(p *Progress, bp *blueprint.Blueprint, _ TriggerContext) (int, int) {
				if p.Path == nil {
					return 0, len(bp.Paths)
				}
				return len(p.Path.CompletedPaths), len(bp.Paths)
			},
			MaxItems: func(bp *blueprint.Blueprint) int {
				n := 0
				for _, path := range bp.Paths {
					n += len(path.Waypoints)
				}
				return n
			},
		},
		{
			Kind:            blueprint.MechanicHierarchical,
			ConfigKey:       "zone_groups",
			CompleteTrigger: blueprint.TriggerAllZonesLabeled,
			Init: func(*blueprint.Blueprint) Slot {
				return &HierarchyProgress{ExpandedGroups: []string{}, CompletedParentZones: []string{}}
			},
			Completion: func(_ *Progress, bp *blueprint.Blueprint, ctx TriggerContext) (int, int) {
				done := 0
				for _, z := range bp.Zones {
					if slices.Contains(ctx.CompletedZones, z.ID) {
						done++
					}
				}
				return done, len(bp.Zones)
			},
			MaxItems: func(bp *blueprint.Blueprint) int { return len(bp.Zones) },
			CheckTrigger: func(t blueprint.ModeTransition, _ *Progress, bp *blueprint.Blueprint, ctx TriggerContext) (bool, bool) {
				if t.Trigger != blueprint.TriggerHierarchyLevelComplete {
					return false, false
				}
				level, ok := t.TriggerValue.Float()
				if !ok {
					return false, true
				}
				return levelComplete(bp, int(level), ctx.CompletedZones), true
			},
		},
		{
			Kind:            blueprint.MechanicSequencing,
			ConfigKey:       "sequence_config",
			CompleteTrigger: blueprint.TriggerSequenceComplete,
			Init: func(bp *blueprint.Blueprint) Slot {
				p := &SequencingProgress{CurrentOrder: []string{}}
				if c := bp.SequenceConfig; c != nil {
					for _, it := range c.Items {
						p.CurrentOrder = append(p.CurrentOrder, it.ID)
					}
					p.TotalPositions = len(c.CorrectOrder)
				}
				return p
			},
			Completion: func(p *Progress, bp *blueprint.Blueprint, _ TriggerContext) (int, int) {
				total := 0
				if bp.SequenceConfig != nil {
					total = len(bp.SequenceConfig.CorrectOrder)
				}
				if p.Sequencing == nil || !p.Sequencing.IsSubmitted {
					return 0, total
				}
				return p.Sequencing.CorrectPositions, total
			},
			Finished: func(p *Progress, _ *blueprint.Blueprint, _ TriggerContext) bool {
				return p.Sequencing != nil && p.Sequencing.IsSubmitted
			},
			MaxItems: func(bp *blueprint.Blueprint) int {
				if bp.SequenceConfig == nil {
					return 0
				}
				return len(bp.SequenceConfig.Items)
			},
		},
		{
			Kind:            blueprint.MechanicSortingCategories,
			ConfigKey:       "sorting_config",
			CompleteTrigger: blueprint.TriggerSortingComplete,
			Init: func(bp *blueprint.Blueprint) Slot {
				p := &SortingProgress{ItemCategories: map[string]string{}}
				if bp.SortingConfig != nil {
					p.TotalCount = len(bp.SortingConfig.Items)
				}
				return p
			},
			Completion: func(p *Progress, bp *blueprint.Blueprint, _ TriggerContext) (int, int) {
				total := 0
				if bp.SortingConfig != nil {
					total = len(bp.SortingConfig.Items)
				}
				if p.Sorting == nil || !p.Sorting.IsSubmitted {
					return 0, total
				}
				return p.Sorting.CorrectCount, total
			},
			Finished: func(p *Progress, _ *blueprint.Blueprint, _ TriggerContext) bool {
				return p.Sorting != nil && p.Sorting.IsSubmitted
			},
			MaxItems: func(bp *blueprint.Blueprint) int {
				if bp.SortingConfig == nil {
					return 0
				}
				return len(bp.SortingConfig.Items)
			},
		},
		{
			Kind:            blueprint.MechanicMemoryMatch,
			ConfigKey:       "memory_match_config",
			CompleteTrigger: blueprint.TriggerMemoryComplete,
			Init: func(bp *blueprint.Blueprint) Slot {
				p := &MemoryMatchProgress{MatchedPairIDs: []string{}}
				if bp.MemoryMatchConfig != nil {
					p.TotalPairs = len(bp.MemoryMatchConfig.Pairs)
				}
				return p
			},
			Completion: func(p *Progress, bp *blueprint.Blueprint, _ TriggerContext) (int, int) {
				total := 0
				if bp.MemoryMatchConfig != nil {
					total = len(bp.MemoryMatchConfig.Pairs)
				}
				if p.MemoryMatch == nil {
					return 0, total
				}
				return len(p.MemoryMatch.MatchedPairIDs), total
			},
			MaxItems: func(bp *blueprint.Blueprint) int {
				if bp.MemoryMatchConfig == nil {
					return 0
				}
				return len(bp.MemoryMatchConfig.Pairs)
			},
		},
		{
			Kind:            blueprint.MechanicBranchingScenario,
			ConfigKey:       "branching_config",
			CompleteTrigger: blueprint.TriggerBranchingComplete,
			Init: func(bp *blueprint.Blueprint) Slot {
				p := &BranchingProgress{PathTaken: []BranchingStep{}}
				if bp.BranchingConfig != nil {
					p.CurrentNodeID = bp.BranchingConfig.StartNodeID
				}
				return p
			},
			Completion: func(p *Progress, bp *blueprint.Blueprint, _ TriggerContext) (int, int) {
				total := DecisionNodeCount(bp)
				if p.Branching == nil {
					return 0, total
				}
				done := 0
				for _, step := range p.Branching.PathTaken {
					if step.IsCorrect {
						done++
					}
				}
				return done, total
			},
			Finished: func(p *Progress, bp *blueprint.Blueprint, _ TriggerContext) bool {
				if p.Branching == nil || bp.BranchingConfig == nil {
					return false
				}
				if p.Branching.CurrentNodeID == "" {
					return len(p.Branching.PathTaken) > 0
				}
				node, ok := FindNode(bp, p.Branching.CurrentNodeID)
				return ok && node.IsEndNode
			},
			MaxItems: DecisionNodeCount,
		},
		{
			Kind:            blueprint.MechanicCompareContrast,
			ConfigKey:       "compare_config",
			CompleteTrigger: blueprint.TriggerCompareComplete,
			Init: func(bp *blueprint.Blueprint) Slot {
				p := &CompareProgress{Categorizations: map[string]string{}}
				if bp.CompareConfig != nil {
					p.TotalCount = len(bp.CompareConfig.ExpectedCategories)
				}
				return p
			},
			Completion: func(p *Progress, bp *blueprint.Blueprint, _ TriggerContext) (int, int) {
				total := 0
				if bp.CompareConfig != nil {
					total = len(bp.CompareConfig.ExpectedCategories)
				}
				if p.Compare == nil || !p.Compare.IsSubmitted {
					return 0, total
				}
				return p.Compare.CorrectCount, total
			},
			Finished: func(p *Progress, _ *blueprint.Blueprint, _ TriggerContext) bool {
				return p.Compare != nil && p.Compare.IsSubmitted
			},
			MaxItems: func(bp *blueprint.Blueprint) int {
				if bp.CompareConfig == nil {
					return 0
				}
				return len(bp.CompareConfig.ExpectedCategories)
			},
		},
		{
			Kind:            blueprint.MechanicDescriptionMatching,
			ConfigKey:       "description_matching_config",
			CompleteTrigger: blueprint.TriggerDescriptionComplete,
			Init: func(*blueprint.Blueprint) Slot {
				return &DescriptionMatchingProgress{Matched: map[string]string{}}
			},
			Completion: func(p *Progress, bp *blueprint.Blueprint, _ TriggerContext) (int, int) {
				total := len(DescriptionTargets(bp))
				if p.DescriptionMatching == nil {
					return 0, total
				}
				return len(p.DescriptionMatching.Matched), total
			},
			MaxItems: func(bp *blueprint.Blueprint) int { return len(DescriptionTargets(bp)) },
		},
	}
}

// IdentificationPrompts returns the prompts in play order. Without authored
// prompts every zone is asked for once, in declaration order.
func IdentificationPrompts(bp *blueprint.Blueprint) []blueprint.IdentificationPrompt {
	if len(bp.IdentificationPrompts) == 0 {
		out := make([]blueprint.IdentificationPrompt, 0, len(bp.Zones))
		for i, z := range bp.Zones {
			name := z.Label
			if name == "" {
				name = z.ID
			}
			out = append(out, blueprint.IdentificationPrompt{ZoneID: z.ID, Prompt: "Click on " + name, Order: i})
		}
		return out
	}
	out := slices.Clone(bp.IdentificationPrompts)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// OrderedWaypoints returns a path's zone ids sorted by waypoint order.
func OrderedWaypoints(path blueprint.TracePath) []string {
	wps := slices.Clone(path.Waypoints)
	sort.SliceStable(wps, func(i, j int) bool { return wps[i].Order < wps[j].Order })
	out := make([]string, len(wps))
	for i, wp := range wps {
		out[i] = wp.ZoneID
	}
	return out
}

// FindPath returns the path with the given id.
func FindPath(bp *blueprint.Blueprint, id string) (blueprint.TracePath, bool) {
	for _, p := range bp.Paths {
		if p.ID == id {
			return p, true
		}
	}
	return blueprint.TracePath{}, false
}

// DescriptionTargets returns the described ids in play order: zone ids in
// zone declaration order first, then any legacy label-keyed ids sorted.
func DescriptionTargets(bp *blueprint.Blueprint) []string {
	if bp.DescriptionMatchingConfig == nil {
		return nil
	}
	descs := bp.DescriptionMatchingConfig.Descriptions
	out := make([]string, 0, len(descs))
	seen := make(map[string]bool, len(descs))
	for _, z := range bp.Zones {
		if _, ok := descs[z.ID]; ok {
			out = append(out, z.ID)
			seen[z.ID] = true
		}
	}
	var rest []string
	for id := range descs {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// FindNode returns the decision node with the given id.
func FindNode(bp *blueprint.Blueprint, id string) (blueprint.DecisionNode, bool) {
	if bp.BranchingConfig == nil {
		return blueprint.DecisionNode{}, false
	}
	for _, n := range bp.BranchingConfig.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return blueprint.DecisionNode{}, false
}

// DecisionNodeCount counts nodes that ask for a decision.
func DecisionNodeCount(bp *blueprint.Blueprint) int {
	if bp.BranchingConfig == nil {
		return 0
	}
	n := 0
	for _, node := range bp.BranchingConfig.Nodes {
		if !node.IsEndNode {
			n++
		}
	}
	return n
}

// ZoneLevel returns the hierarchy level of a zone: its declared level, or its
// depth in the parent forest (roots are level 1).
func ZoneLevel(bp *blueprint.Blueprint, id string) int {
	level := 0
	seen := map[string]bool{}
	for id != "" && !seen[id] {
		seen[id] = true
		z, ok := bp.Zone(id)
		if !ok {
			break
		}
		if z.HierarchyLevel > 0 {
			return level + z.HierarchyLevel
		}
		level++
		id = z.ParentZoneID
	}
	return level
}

func levelComplete(bp *blueprint.Blueprint, level int, completed []string) bool {
	found := false
	for _, z := range bp.Zones {
		if ZoneLevel(bp, z.ID) != level {
			continue
		}
		found = true
		if !slices.Contains(completed, z.ID) {
			return false
		}
	}
	return found
}
