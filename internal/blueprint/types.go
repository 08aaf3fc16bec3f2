package blueprint

// MechanicKind tags one interchangeable interaction mode.
type MechanicKind string

const (
	MechanicDragDrop            MechanicKind = "drag_drop"
	MechanicClickToIdentify     MechanicKind = "click_to_identify"
	MechanicTracePath           MechanicKind = "trace_path"
	MechanicHierarchical        MechanicKind = "hierarchical"
	MechanicSequencing          MechanicKind = "sequencing"
	MechanicSortingCategories   MechanicKind = "sorting_categories"
	MechanicMemoryMatch         MechanicKind = "memory_match"
	MechanicBranchingScenario   MechanicKind = "branching_scenario"
	MechanicCompareContrast     MechanicKind = "compare_contrast"
	MechanicDescriptionMatching MechanicKind = "description_matching"
)

// TriggerKind names the condition that fires a mode transition.
type TriggerKind string

const (
	TriggerPercentageComplete TriggerKind = "percentage_complete"
	TriggerSpecificZones      TriggerKind = "specific_zones"
	TriggerTimeElapsed        TriggerKind = "time_elapsed"
	TriggerUserChoice         TriggerKind = "user_choice"

	// Mechanic-specific triggers, resolved by the mechanic registry.
	TriggerAllZonesLabeled        TriggerKind = "all_zones_labeled"
	TriggerIdentificationComplete TriggerKind = "identification_complete"
	TriggerPathComplete           TriggerKind = "path_complete"
	TriggerHierarchyLevelComplete TriggerKind = "hierarchy_level_complete"
	TriggerSequenceComplete       TriggerKind = "sequence_complete"
	TriggerSortingComplete        TriggerKind = "sorting_complete"
	TriggerMemoryComplete         TriggerKind = "memory_complete"
	TriggerBranchingComplete      TriggerKind = "branching_complete"
	TriggerCompareComplete        TriggerKind = "compare_complete"
	TriggerDescriptionComplete    TriggerKind = "description_complete"
)

// ConstraintKind is the kind of a temporal constraint.
type ConstraintKind string

const (
	// ConstraintAfter hides ZoneB until ZoneA is completed.
	ConstraintAfter ConstraintKind = "after"
	// ConstraintMutex forbids ZoneA and ZoneB from being visible and
	// uncompleted at the same time.
	ConstraintMutex ConstraintKind = "mutex"
)

// Blueprint is the declarative description of one game (or one scene).
type Blueprint struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	Zones               []Zone               `json:"zones" yaml:"zones"`
	Labels              []Label              `json:"labels" yaml:"labels"`
	DistractorLabels    []DistractorLabel    `json:"distractor_labels,omitempty" yaml:"distractor_labels,omitempty"`
	Mechanics           []Mechanic           `json:"mechanics,omitempty" yaml:"mechanics,omitempty"`
	ModeTransitions     []ModeTransition     `json:"mode_transitions,omitempty" yaml:"mode_transitions,omitempty"`
	TemporalConstraints []TemporalConstraint `json:"temporal_constraints,omitempty" yaml:"temporal_constraints,omitempty"`
	Scoring             ScoringStrategy      `json:"scoring" yaml:"scoring"`

	// Per-mechanic configuration sections. The mechanic registry maps each
	// kind to the key of its section.
	IdentificationPrompts     []IdentificationPrompt     `json:"identification_prompts,omitempty" yaml:"identification_prompts,omitempty"`
	Paths                     []TracePath                `json:"paths,omitempty" yaml:"paths,omitempty"`
	ZoneGroups                []ZoneGroup                `json:"zone_groups,omitempty" yaml:"zone_groups,omitempty"`
	SequenceConfig            *SequenceConfig            `json:"sequence_config,omitempty" yaml:"sequence_config,omitempty"`
	SortingConfig             *SortingConfig             `json:"sorting_config,omitempty" yaml:"sorting_config,omitempty"`
	MemoryMatchConfig         *MemoryMatchConfig         `json:"memory_match_config,omitempty" yaml:"memory_match_config,omitempty"`
	BranchingConfig           *BranchingConfig           `json:"branching_config,omitempty" yaml:"branching_config,omitempty"`
	CompareConfig             *CompareConfig             `json:"compare_config,omitempty" yaml:"compare_config,omitempty"`
	DescriptionMatchingConfig *DescriptionMatchingConfig `json:"description_matching_config,omitempty" yaml:"description_matching_config,omitempty"`
}

// Zone is a targetable region of the diagram.
type Zone struct {
	ID             string `json:"id" yaml:"id"`
	Label          string `json:"label,omitempty" yaml:"label,omitempty"`
	ParentZoneID   string `json:"parent_zone_id,omitempty" yaml:"parent_zone_id,omitempty"`
	HierarchyLevel int    `json:"hierarchy_level,omitempty" yaml:"hierarchy_level,omitempty"`
	Description    string `json:"description,omitempty" yaml:"description,omitempty"`
}

// IsRoot reports whether the zone starts a hierarchy.
func (z Zone) IsRoot() bool {
	return z.ParentZoneID == "" || z.HierarchyLevel == 1
}

// Label is a draggable label with exactly one correct zone.
type Label struct {
	ID            string `json:"id" yaml:"id"`
	Text          string `json:"text" yaml:"text"`
	CorrectZoneID string `json:"correct_zone_id" yaml:"correct_zone_id"`
}

// DistractorLabel is a label that is never correct.
type DistractorLabel struct {
	ID          string `json:"id" yaml:"id"`
	Text        string `json:"text" yaml:"text"`
	Explanation string `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// Mechanic is one entry of the play order.
type Mechanic struct {
	Type    MechanicKind   `json:"type" yaml:"type"`
	Scoring *ScoringConfig `json:"scoring,omitempty" yaml:"scoring,omitempty"`
}

// ScoringStrategy is the blueprint-wide scoring default.
type ScoringStrategy struct {
	Type              string `json:"type,omitempty" yaml:"type,omitempty"`
	BasePointsPerZone int    `json:"base_points_per_zone,omitempty" yaml:"base_points_per_zone,omitempty"`
	HintPenalty       int    `json:"hint_penalty,omitempty" yaml:"hint_penalty,omitempty"`
}

// ScoringConfig is the per-mode scoring configuration.
type ScoringConfig struct {
	BasePointsPerItem int     `json:"base_points_per_item,omitempty" yaml:"base_points_per_item,omitempty"`
	PartialCredit     bool    `json:"partial_credit,omitempty" yaml:"partial_credit,omitempty"`
	AttemptPenalty    int     `json:"attempt_penalty,omitempty" yaml:"attempt_penalty,omitempty"`
	TimeBonus         bool    `json:"time_bonus,omitempty" yaml:"time_bonus,omitempty"`
	BonusMultiplier   float64 `json:"bonus_multiplier,omitempty" yaml:"bonus_multiplier,omitempty"`
	MaxBonusSeconds   int     `json:"max_bonus_seconds,omitempty" yaml:"max_bonus_seconds,omitempty"`
}

// ModeTransition moves the session from one mechanic to another.
type ModeTransition struct {
	From         MechanicKind `json:"from" yaml:"from"`
	To           MechanicKind `json:"to" yaml:"to"`
	Trigger      TriggerKind  `json:"trigger" yaml:"trigger"`
	TriggerValue TriggerValue `json:"trigger_value,omitempty" yaml:"trigger_value,omitempty"`
	Animation    string       `json:"animation,omitempty" yaml:"animation,omitempty"`
}

// TemporalConstraint governs when zones may be visible.
type TemporalConstraint struct {
	ZoneA      string         `json:"zone_a" yaml:"zone_a"`
	ZoneB      string         `json:"zone_b" yaml:"zone_b"`
	Constraint ConstraintKind `json:"constraint_type" yaml:"constraint_type"`
	Priority   int            `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// IdentificationPrompt asks the learner to click one zone.
type IdentificationPrompt struct {
	ZoneID string `json:"zone_id" yaml:"zone_id"`
	Prompt string `json:"prompt" yaml:"prompt"`
	Order  int    `json:"order,omitempty" yaml:"order,omitempty"`
}

// TracePath is an ordered list of waypoints to visit.
type TracePath struct {
	ID            string     `json:"id" yaml:"id"`
	Description   string     `json:"description,omitempty" yaml:"description,omitempty"`
	Waypoints     []Waypoint `json:"waypoints" yaml:"waypoints"`
	RequiresOrder bool       `json:"requires_order,omitempty" yaml:"requires_order,omitempty"`
}

// Waypoint is one stop on a path.
type Waypoint struct {
	ZoneID string `json:"zone_id" yaml:"zone_id"`
	Order  int    `json:"order" yaml:"order"`
}

// ZoneGroup groups child zones under a parent for hierarchical play.
type ZoneGroup struct {
	ID           string   `json:"id" yaml:"id"`
	ParentZoneID string   `json:"parent_zone_id" yaml:"parent_zone_id"`
	ChildZoneIDs []string `json:"child_zone_ids" yaml:"child_zone_ids"`
}

// SequenceConfig configures the sequencing mechanic.
type SequenceConfig struct {
	SequenceType string         `json:"sequence_type,omitempty" yaml:"sequence_type,omitempty"`
	Items        []SequenceItem `json:"items" yaml:"items"`
	CorrectOrder []string       `json:"correct_order" yaml:"correct_order"`
}

// SequenceItem is one orderable item.
type SequenceItem struct {
	ID          string `json:"id" yaml:"id"`
	Text        string `json:"text" yaml:"text"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// SortingConfig configures the category sorting mechanic.
type SortingConfig struct {
	Items      []SortingItem     `json:"items" yaml:"items"`
	Categories []SortingCategory `json:"categories" yaml:"categories"`
}

// SortingItem is one item with its correct category.
type SortingItem struct {
	ID                string `json:"id" yaml:"id"`
	Text              string `json:"text" yaml:"text"`
	CorrectCategoryID string `json:"correct_category_id" yaml:"correct_category_id"`
}

// SortingCategory is one bucket.
type SortingCategory struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// MemoryMatchConfig configures the memory match mechanic.
type MemoryMatchConfig struct {
	Pairs          []MemoryPair `json:"pairs" yaml:"pairs"`
	GridSize       []int        `json:"grid_size,omitempty" yaml:"grid_size,omitempty"`
	FlipDurationMs int          `json:"flip_duration_ms,omitempty" yaml:"flip_duration_ms,omitempty"`
}

// MemoryPair is a front/back card pair.
type MemoryPair struct {
	ID    string `json:"id" yaml:"id"`
	Front string `json:"front" yaml:"front"`
	Back  string `json:"back" yaml:"back"`
}

// BranchingConfig configures the branching scenario mechanic.
type BranchingConfig struct {
	StartNodeID string         `json:"start_node_id" yaml:"start_node_id"`
	Nodes       []DecisionNode `json:"nodes" yaml:"nodes"`
}

// DecisionNode is one step of a branching scenario.
type DecisionNode struct {
	ID        string           `json:"id" yaml:"id"`
	Question  string           `json:"question" yaml:"question"`
	Options   []DecisionOption `json:"options,omitempty" yaml:"options,omitempty"`
	IsEndNode bool             `json:"is_end_node,omitempty" yaml:"is_end_node,omitempty"`
}

// DecisionOption is one answer at a node.
type DecisionOption struct {
	ID          string `json:"id" yaml:"id"`
	Text        string `json:"text" yaml:"text"`
	NextNodeID  string `json:"next_node_id,omitempty" yaml:"next_node_id,omitempty"`
	IsCorrect   bool   `json:"is_correct,omitempty" yaml:"is_correct,omitempty"`
	Consequence string `json:"consequence,omitempty" yaml:"consequence,omitempty"`
}

// CompareConfig configures the compare/contrast mechanic.
type CompareConfig struct {
	DiagramA           string            `json:"diagram_a,omitempty" yaml:"diagram_a,omitempty"`
	DiagramB           string            `json:"diagram_b,omitempty" yaml:"diagram_b,omitempty"`
	ExpectedCategories map[string]string `json:"expected_categories" yaml:"expected_categories"`
}

// DescriptionMatchingConfig configures the description matching mechanic.
// Descriptions is keyed by zone id; older blueprints key it by label id.
type DescriptionMatchingConfig struct {
	Mode         string            `json:"mode,omitempty" yaml:"mode,omitempty"`
	Descriptions map[string]string `json:"descriptions" yaml:"descriptions"`
}

// Sequence is an ordered list of scenes played as one game.
type Sequence struct {
	ID     string      `json:"id" yaml:"id"`
	Title  string      `json:"title,omitempty" yaml:"title,omitempty"`
	Scenes []Blueprint `json:"scenes" yaml:"scenes"`
}
