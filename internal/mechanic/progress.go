package mechanic

import (
	"maps"
	"slices"

	"github.com/roach88/diagramlab/internal/blueprint"
)

// Slot is the live progress of one mechanic.
type Slot interface {
	Kind() blueprint.MechanicKind
}

// PathProgress tracks the trace-path mechanic.
type PathProgress struct {
	Visited        map[string][]string `json:"visited"`
	CompletedPaths []string            `json:"completed_paths"`
	PointsAwarded  map[string]int      `json:"points_awarded"`
}

func (*PathProgress) Kind() blueprint.MechanicKind { return blueprint.MechanicTracePath }

// IdentificationProgress tracks click-to-identify.
type IdentificationProgress struct {
	CurrentPromptIndex int      `json:"current_prompt_index"`
	CompletedZoneIDs   []string `json:"completed_zone_ids"`
	IncorrectAttempts  int      `json:"incorrect_attempts"`
}

func (*IdentificationProgress) Kind() blueprint.MechanicKind {
	return blueprint.MechanicClickToIdentify
}

// HierarchyProgress tracks which zone groups have been opened.
type HierarchyProgress struct {
	ExpandedGroups       []string `json:"expanded_groups"`
	CompletedParentZones []string `json:"completed_parent_zones"`
}

func (*HierarchyProgress) Kind() blueprint.MechanicKind { return blueprint.MechanicHierarchical }

// SequencingProgress tracks the sequencing mechanic.
type SequencingProgress struct {
	CurrentOrder     []string `json:"current_order"`
	IsSubmitted      bool     `json:"is_submitted"`
	CorrectPositions int      `json:"correct_positions"`
	TotalPositions   int      `json:"total_positions"`
}

func (*SequencingProgress) Kind() blueprint.MechanicKind { return blueprint.MechanicSequencing }

// SortingProgress tracks category sorting.
type SortingProgress struct {
	ItemCategories map[string]string `json:"item_categories"`
	IsSubmitted    bool              `json:"is_submitted"`
	CorrectCount   int               `json:"correct_count"`
	TotalCount     int               `json:"total_count"`
}

func (*SortingProgress) Kind() blueprint.MechanicKind { return blueprint.MechanicSortingCategories }

// MemoryMatchProgress tracks memory match.
type MemoryMatchProgress struct {
	MatchedPairIDs []string `json:"matched_pair_ids"`
	Attempts       int      `json:"attempts"`
	TotalPairs     int      `json:"total_pairs"`
}

func (*MemoryMatchProgress) Kind() blueprint.MechanicKind { return blueprint.MechanicMemoryMatch }

// BranchingStep is one recorded decision.
type BranchingStep struct {
	NodeID    string `json:"node_id"`
	OptionID  string `json:"option_id"`
	IsCorrect bool   `json:"is_correct"`
	// Points is the score applied for this step, reversed by undo.
	Points int `json:"points"`
}

// BranchingProgress tracks a branching scenario.
type BranchingProgress struct {
	CurrentNodeID string          `json:"current_node_id"`
	PathTaken     []BranchingStep `json:"path_taken"`
}

func (*BranchingProgress) Kind() blueprint.MechanicKind { return blueprint.MechanicBranchingScenario }

// CompareProgress tracks compare/contrast categorization.
type CompareProgress struct {
	Categorizations map[string]string `json:"categorizations"`
	IsSubmitted     bool              `json:"is_submitted"`
	CorrectCount    int               `json:"correct_count"`
	TotalCount      int               `json:"total_count"`
}

func (*CompareProgress) Kind() blueprint.MechanicKind { return blueprint.MechanicCompareContrast }

// DescriptionMatchingProgress tracks description matching. Matched maps the
// described id to the zone it was matched with.
type DescriptionMatchingProgress struct {
	CurrentIndex      int               `json:"current_index"`
	Matched           map[string]string `json:"matched"`
	IncorrectAttempts int               `json:"incorrect_attempts"`
}

func (*DescriptionMatchingProgress) Kind() blueprint.MechanicKind {
	return blueprint.MechanicDescriptionMatching
}

// Progress holds one live slot per mechanic kind. Drag-and-drop has no slot;
// its progress is the engine's placed-label set.
type Progress struct {
	Path                *PathProgress                `json:"path,omitempty"`
	Identification      *IdentificationProgress      `json:"identification,omitempty"`
	Hierarchy           *HierarchyProgress           `json:"hierarchy,omitempty"`
	Sequencing          *SequencingProgress          `json:"sequencing,omitempty"`
	Sorting             *SortingProgress             `json:"sorting,omitempty"`
	MemoryMatch         *MemoryMatchProgress         `json:"memory_match,omitempty"`
	Branching           *BranchingProgress           `json:"branching,omitempty"`
	Compare             *CompareProgress             `json:"compare,omitempty"`
	DescriptionMatching *DescriptionMatchingProgress `json:"description_matching,omitempty"`
}

// Put replaces the slot of s's kind. A nil slot is ignored.
func (p *Progress) Put(s Slot) {
	switch v := s.(type) {
	case *PathProgress:
		p.Path = v
	case *IdentificationProgress:
		p.Identification = v
	case *HierarchyProgress:
		p.Hierarchy = v
	case *SequencingProgress:
		p.Sequencing = v
	case *SortingProgress:
		p.Sorting = v
	case *MemoryMatchProgress:
		p.MemoryMatch = v
	case *BranchingProgress:
		p.Branching = v
	case *CompareProgress:
		p.Compare = v
	case *DescriptionMatchingProgress:
		p.DescriptionMatching = v
	}
}

// Clone returns a deep copy.
func (p Progress) Clone() Progress {
	var out Progress
	if v := p.Path; v != nil {
		c := &PathProgress{
			Visited:        make(map[string][]string, len(v.Visited)),
			CompletedPaths: slices.Clone(v.CompletedPaths),
			PointsAwarded:  maps.Clone(v.PointsAwarded),
		}
		for k, zones := range v.Visited {
			c.Visited[k] = slices.Clone(zones)
		}
		out.Path = c
	}
	if v := p.Identification; v != nil {
		c := *v
		c.CompletedZoneIDs = slices.Clone(v.CompletedZoneIDs)
		out.Identification = &c
	}
	if v := p.Hierarchy; v != nil {
		c := HierarchyProgress{
			ExpandedGroups:       slices.Clone(v.ExpandedGroups),
			CompletedParentZones: slices.Clone(v.CompletedParentZones),
		}
		out.Hierarchy = &c
	}
	if v := p.Sequencing; v != nil {
		c := *v
		c.CurrentOrder = slices.Clone(v.CurrentOrder)
		out.Sequencing = &c
	}
	if v := p.Sorting; v != nil {
		c := *v
		c.ItemCategories = maps.Clone(v.ItemCategories)
		out.Sorting = &c
	}
	if v := p.MemoryMatch; v != nil {
		c := *v
		c.MatchedPairIDs = slices.Clone(v.MatchedPairIDs)
		out.MemoryMatch = &c
	}
	if v := p.Branching; v != nil {
		c := *v
		c.PathTaken = slices.Clone(v.PathTaken)
		out.Branching = &c
	}
	if v := p.Compare; v != nil {
		c := *v
		c.Categorizations = maps.Clone(v.Categorizations)
		out.Compare = &c
	}
	if v := p.DescriptionMatching; v != nil {
		c := *v
		c.Matched = maps.Clone(v.Matched)
		out.DescriptionMatching = &c
	}
	return out
}
