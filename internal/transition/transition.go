// Package transition decides when the active mechanic hands over to the next.
//
// Evaluate is pure: it inspects the candidate transitions in declaration order
// and returns the first whose trigger holds. Mechanic-specific triggers are
// offered to the mechanic registry first; a definite answer from the registry
// wins over generic handling. Unknown triggers are never satisfied.
package transition

import (
	"slices"

	"github.com/roach88/diagramlab/internal/blueprint"
	"github.com/roach88/diagramlab/internal/mechanic"
)

// Context is everything a trigger may look at.
type Context struct {
	Registry  *mechanic.Registry
	Progress  *mechanic.Progress
	Blueprint *blueprint.Blueprint
	Trigger   mechanic.TriggerContext
}

// Evaluate returns the first transition out of current whose trigger holds,
// or nil.
func Evaluate(transitions []blueprint.ModeTransition, current blueprint.MechanicKind, ctx Context) *blueprint.ModeTransition {
	for i := range transitions {
		t := transitions[i]
		if t.From != current {
			continue
		}
		if Satisfied(t, ctx) {
			return &t
		}
	}
	return nil
}

// Satisfied reports whether a single transition's trigger holds.
func Satisfied(t blueprint.ModeTransition, ctx Context) bool {
	progress := ctx.Progress
	if progress == nil {
		progress = &mechanic.Progress{}
	}
	if ctx.Registry != nil {
		if ok, applicable := ctx.Registry.CheckTrigger(t, progress, ctx.Blueprint, ctx.Trigger); applicable {
			return ok
		}
	}

	switch t.Trigger {
	case blueprint.TriggerPercentageComplete:
		threshold, ok := t.TriggerValue.Float()
		if !ok {
			threshold = 100
		}
		if ctx.Registry == nil {
			return false
		}
		done, total := ctx.Registry.Completion(t.From, progress, ctx.Blueprint, ctx.Trigger)
		if total <= 0 {
			return false
		}
		return float64(done)/float64(total)*100 >= threshold

	case blueprint.TriggerSpecificZones:
		zones := t.TriggerValue.Zones
		if len(zones) == 0 {
			return false
		}
		for _, z := range zones {
			if !slices.Contains(ctx.Trigger.CompletedZones, z) {
				return false
			}
		}
		return true

	case blueprint.TriggerTimeElapsed:
		secs, ok := t.TriggerValue.Float()
		if !ok || ctx.Trigger.ModeStartedAt.IsZero() {
			return false
		}
		return ctx.Trigger.Now.Sub(ctx.Trigger.ModeStartedAt).Seconds() >= secs

	case blueprint.TriggerUserChoice:
		// Only realized through an explicit mode switch request.
		return false

	default:
		return false
	}
}

// Allows reports whether a user-choice switch from current to next is
// declared.
func Allows(transitions []blueprint.ModeTransition, current, next blueprint.MechanicKind) bool {
	for _, t := range transitions {
		if t.From == current && t.To == next && t.Trigger == blueprint.TriggerUserChoice {
			return true
		}
	}
	return false
}
