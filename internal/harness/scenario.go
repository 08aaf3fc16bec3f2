package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/diagramlab/internal/engine"
)

// Scenario is a scripted game on one blueprint with expectations about the
// outcome of each step, the event trace and the final state.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file
	// and the saved game.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Blueprint is the path of the blueprint (or sequence) file, relative
	// to the scenario file.
	Blueprint string `yaml:"blueprint"`

	// Sequence loads Blueprint as a multi-scene sequence.
	Sequence bool `yaml:"sequence,omitempty"`

	// TransitionDelay is the mode transition delay. Zero switches modes
	// synchronously; otherwise use advance steps to fire transitions.
	TransitionDelay time.Duration `yaml:"transition_delay,omitempty"`

	// SessionPrefix seeds the deterministic session ids. Defaults to
	// "scenario".
	SessionPrefix string `yaml:"session_prefix,omitempty"`

	// Setup steps run before the flow and must all succeed.
	Setup []Step `yaml:"setup,omitempty"`

	Flow []FlowStep `yaml:"flow"`

	Assertions []Assertion `yaml:"assertions"`
}

// Step is a learner action, a clock advance or a scene change.
type Step struct {
	engine.Action `yaml:",inline"`

	// Advance moves the manual clock, firing due transition timers.
	Advance time.Duration `yaml:"advance,omitempty"`

	AdvanceScene bool `yaml:"advance_scene,omitempty"`
}

// FlowStep is a step with an optional expectation.
type FlowStep struct {
	Step   `yaml:",inline"`
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause describes the expected immediate result. Unset fields are
// not checked.
type ExpectClause struct {
	Correct    *bool `yaml:"correct,omitempty"`
	ScoreDelta *int  `yaml:"score_delta,omitempty"`

	// Error is a runtime error code such as ZONE_OCCUPIED, or a substring
	// of the error message for other errors.
	Error string `yaml:"error,omitempty"`

	// Data is matched as a subset of the result data.
	Data map[string]any `yaml:"data,omitempty"`
}

// Assertion validates the trace, the final state or the saved game.
type Assertion struct {
	// Type is one of event_contains, event_order, event_count,
	// final_state or stored_row.
	Type string `yaml:"type"`

	// Kind is the event kind (event_contains, event_count).
	Kind string `yaml:"kind,omitempty"`

	// Payload is matched as a subset of the event payload (event_contains).
	Payload map[string]any `yaml:"payload,omitempty"`

	// Kinds must appear in this order, not necessarily adjacent
	// (event_order).
	Kinds []string `yaml:"kinds,omitempty"`

	Count int `yaml:"count,omitempty"`

	// Table and Where select exactly one stored row (stored_row).
	Table string         `yaml:"table,omitempty"`
	Where map[string]any `yaml:"where,omitempty"`

	// Expect holds expected values. For final_state keys are dotted paths
	// into the state JSON, e.g. multi_mode.current_mode.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion types.
const (
	AssertEventContains = "event_contains"
	AssertEventOrder    = "event_order"
	AssertEventCount    = "event_count"
	AssertFinalState    = "final_state"
	AssertStoredRow     = "stored_row"
)

// LoadScenario reads a scenario file, resolving the blueprint path against
// the file's directory. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads a scenario file, resolving the blueprint
// path against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Blueprint != "" && !filepath.IsAbs(scenario.Blueprint) && basePath != "" {
		scenario.Blueprint = filepath.Join(basePath, scenario.Blueprint)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Blueprint == "" {
		return fmt.Errorf("blueprint is required")
	}
	if _, err := os.Stat(s.Blueprint); os.IsNotExist(err) {
		return fmt.Errorf("blueprint file not found: %s", s.Blueprint)
	}
	if s.TransitionDelay < 0 {
		return fmt.Errorf("transition_delay must not be negative")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(step.Step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
		if step.Expect != nil && (step.Advance > 0 || step.AdvanceScene) {
			return fmt.Errorf("flow[%d]: expect only applies to actions", i)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateStep requires exactly one of an action, an advance or a scene
// change.
func validateStep(st Step) error {
	n := 0
	if st.Type != "" {
		n++
	}
	if st.Advance > 0 {
		n++
	}
	if st.AdvanceScene {
		n++
	}
	switch {
	case st.Advance < 0:
		return fmt.Errorf("advance must not be negative")
	case n == 0:
		return fmt.Errorf("one of type, advance or advance_scene is required")
	case n > 1:
		return fmt.Errorf("only one of type, advance or advance_scene may be set")
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertEventContains:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for event_contains", index)
		}
	case AssertEventOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for event_order", index)
		}
	case AssertEventCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertStoredRow:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for stored_row", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for stored_row", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
