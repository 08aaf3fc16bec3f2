package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/diagramlab/internal/blueprint"
	"github.com/roach88/diagramlab/internal/mechanic"
	"github.com/roach88/diagramlab/internal/visibility"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
}

// MechanicSummary describes one mechanic of the play order.
type MechanicSummary struct {
	Type      blueprint.MechanicKind `json:"type"`
	ConfigKey string                 `json:"config_key"`
	Items     int                    `json:"items"`
	MaxScore  int                    `json:"max_score"`
}

// InspectResult summarizes a blueprint without playing it.
type InspectResult struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title,omitempty"`
	Zones       int                    `json:"zones"`
	Labels      int                    `json:"labels"`
	Distractors int                    `json:"distractors"`
	Starting    blueprint.MechanicKind `json:"starting_mechanic"`
	Mechanics   []MechanicSummary      `json:"mechanics"`
	Transitions []string               `json:"transitions"`
	Visible     []string               `json:"initially_visible"`
	Blocked     []string               `json:"initially_blocked"`
	Unknown     []string               `json:"unknown_mechanics,omitempty"`
}

// WriteText renders the summary for terminals.
func (r InspectResult) WriteText(w io.Writer) {
	title := r.ID
	if r.Title != "" {
		title = fmt.Sprintf("%s (%s)", r.Title, r.ID)
	}
	fmt.Fprintln(w, title)
	fmt.Fprintf(w, "  zones: %d, labels: %d, distractors: %d\n", r.Zones, r.Labels, r.Distractors)
	fmt.Fprintf(w, "  starts with: %s\n", r.Starting)
	for _, m := range r.Mechanics {
		fmt.Fprintf(w, "  mechanic %s (%s): %d items, max score %d\n", m.Type, m.ConfigKey, m.Items, m.MaxScore)
	}
	for _, t := range r.Transitions {
		fmt.Fprintf(w, "  transition %s\n", t)
	}
	fmt.Fprintf(w, "  visible at start: %s\n", strings.Join(r.Visible, ", "))
	if len(r.Blocked) > 0 {
		fmt.Fprintf(w, "  blocked at start: %s\n", strings.Join(r.Blocked, ", "))
	}
	if len(r.Unknown) > 0 {
		fmt.Fprintf(w, "  WARNING unknown mechanics: %s\n", strings.Join(r.Unknown, ", "))
	}
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <blueprint>",
		Short: "Summarize a blueprint",
		Long: `Load a blueprint and summarize it: its zones and labels, the mechanics
in play order with their maximum scores, the transitions between them, and
which zones are visible when the game starts.

Examples:
  diagramlab inspect ./heart.yaml
  diagramlab inspect ./heart.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}
	return cmd
}

func runInspect(opts *InspectOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	bp, err := loadBlueprint(f, path)
	if err != nil {
		return err
	}
	return f.Success(Inspect(bp, mechanic.NewRegistry()))
}

// Inspect builds the summary for bp.
func Inspect(bp *blueprint.Blueprint, reg *mechanic.Registry) InspectResult {
	res := InspectResult{
		ID:          bp.ID,
		Title:       bp.Title,
		Zones:       len(bp.Zones),
		Labels:      len(bp.Labels),
		Distractors: len(bp.DistractorLabels),
		Starting:    bp.StartingMechanic(),
		Mechanics:   []MechanicSummary{},
		Transitions: []string{},
	}
	for _, kind := range bp.MechanicKinds() {
		key, err := reg.ConfigKey(kind)
		if err != nil {
			res.Unknown = append(res.Unknown, string(kind))
			continue
		}
		base := bp.MechanicScoring(kind).BasePointsPerItem
		res.Mechanics = append(res.Mechanics, MechanicSummary{
			Type:      kind,
			ConfigKey: key,
			Items:     reg.MaxItems(kind, bp),
			MaxScore:  reg.MaxScore(kind, bp, base),
		})
	}
	for _, t := range bp.ModeTransitions {
		desc := fmt.Sprintf("%s -> %s on %s", t.From, t.To, t.Trigger)
		if !t.TriggerValue.IsZero() {
			if n, ok := t.TriggerValue.Float(); ok {
				desc += fmt.Sprintf(" %g", n)
			} else {
				desc += " " + strings.Join(t.TriggerValue.Zones, ",")
			}
		}
		res.Transitions = append(res.Transitions, desc)
	}

	vis := visibility.Compute(bp.Zones, bp.TemporalConstraints, nil)
	res.Visible = vis.Visible
	res.Blocked = vis.Blocked
	return res
}
