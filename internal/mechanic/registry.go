package mechanic

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/roach88/diagramlab/internal/blueprint"
)

// ErrUnknownMechanic is returned when a kind has no registry entry.
var ErrUnknownMechanic = errors.New("unknown mechanic")

// IsUnknownMechanic reports whether err wraps ErrUnknownMechanic.
func IsUnknownMechanic(err error) bool {
	return errors.Is(err, ErrUnknownMechanic)
}

// TriggerContext carries session-scoped facts a mechanic may need to judge
// its own progress.
type TriggerContext struct {
	// CompletedZones are zones with a correct placement, in completion order.
	CompletedZones []string
	// CorrectPlacements is the number of correctly placed labels.
	CorrectPlacements int
	ModeStartedAt     time.Time
	Now               time.Time
}

// Entry describes one mechanic to the rest of the engine.
type Entry struct {
	Kind blueprint.MechanicKind

	// ConfigKey is the blueprint field holding this mechanic's settings.
	ConfigKey string

	// CompleteTrigger is the mechanic-specific "finished" trigger, if any.
	CompleteTrigger blueprint.TriggerKind

	// Init builds a fresh progress slot. Nil for mechanics without a slot.
	Init func(bp *blueprint.Blueprint) Slot

	// Completion reports correctly finished items against the item count.
	Completion func(p *Progress, bp *blueprint.Blueprint, ctx TriggerContext) (done, total int)

	// Finished reports whether the mechanic has nothing left to do. Defaults
	// to done >= total from Completion.
	Finished func(p *Progress, bp *blueprint.Blueprint, ctx TriggerContext) bool

	// MaxItems counts the scorable items of the mechanic.
	MaxItems func(bp *blueprint.Blueprint) int

	// CheckTrigger answers mechanic-specific triggers beyond CompleteTrigger.
	// applicable=false defers to generic trigger handling.
	CheckTrigger func(t blueprint.ModeTransition, p *Progress, bp *blueprint.Blueprint, ctx TriggerContext) (satisfied, applicable bool)
}

// Registry maps mechanic kinds to their entries.
//
// Thread-safety: Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[blueprint.MechanicKind]Entry
	order   []blueprint.MechanicKind
}

// NewRegistry returns a registry holding every built-in mechanic.
func NewRegistry() *Registry {
	r := &Registry{entries: make(map[blueprint.MechanicKind]Entry)}
	for _, e := range builtinEntries() {
		if err := r.Register(e); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds an entry. Registering the same kind twice is an error.
func (r *Registry) Register(e Entry) error {
	if e.Kind == "" {
		return fmt.Errorf("register mechanic: empty kind")
	}
	if e.Completion == nil || e.MaxItems == nil {
		return fmt.Errorf("register mechanic %s: Completion and MaxItems are required", e.Kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[e.Kind]; exists {
		return fmt.Errorf("register mechanic %s: already registered", e.Kind)
	}
	r.entries[e.Kind] = e
	r.order = append(r.order, e.Kind)
	return nil
}

// Lookup returns the entry for kind.
func (r *Registry) Lookup(kind blueprint.MechanicKind) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[kind]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownMechanic, kind)
	}
	return e, nil
}

// Kinds returns registered kinds in registration order.
func (r *Registry) Kinds() []blueprint.MechanicKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]blueprint.MechanicKind, len(r.order))
	copy(out, r.order)
	return out
}

// Initialize builds a fresh progress slot for kind. The slot is nil for
// mechanics that keep no per-mechanic progress.
func (r *Registry) Initialize(kind blueprint.MechanicKind, bp *blueprint.Blueprint) (Slot, error) {
	e, err := r.Lookup(kind)
	if err != nil {
		return nil, err
	}
	if e.Init == nil {
		return nil, nil
	}
	return e.Init(bp), nil
}

// ConfigKey returns the blueprint field that configures kind.
func (r *Registry) ConfigKey(kind blueprint.MechanicKind) (string, error) {
	e, err := r.Lookup(kind)
	if err != nil {
		return "", err
	}
	return e.ConfigKey, nil
}

// Completion reports (done, total) for kind. Unknown kinds report (0, 0).
func (r *Registry) Completion(kind blueprint.MechanicKind, p *Progress, bp *blueprint.Blueprint, ctx TriggerContext) (done, total int) {
	e, err := r.Lookup(kind)
	if err != nil {
		return 0, 0
	}
	return e.Completion(p, bp, ctx)
}

// Finished reports whether kind has nothing left to do.
func (r *Registry) Finished(kind blueprint.MechanicKind, p *Progress, bp *blueprint.Blueprint, ctx TriggerContext) bool {
	e, err := r.Lookup(kind)
	if err != nil {
		return false
	}
	return e.finished(p, bp, ctx)
}

func (e Entry) finished(p *Progress, bp *blueprint.Blueprint, ctx TriggerContext) bool {
	if e.Finished != nil {
		return e.Finished(p, bp, ctx)
	}
	done, total := e.Completion(p, bp, ctx)
	return total > 0 && done >= total
}

// CheckTrigger offers a transition trigger to the mechanic that owns it.
// applicable=false means "not mine, use generic handling".
func (r *Registry) CheckTrigger(t blueprint.ModeTransition, p *Progress, bp *blueprint.Blueprint, ctx TriggerContext) (satisfied, applicable bool) {
	e, err := r.Lookup(t.From)
	if err != nil {
		return false, false
	}
	if e.CompleteTrigger != "" && t.Trigger == e.CompleteTrigger {
		return e.finished(p, bp, ctx), true
	}
	if e.CheckTrigger != nil {
		return e.CheckTrigger(t, p, bp, ctx)
	}
	return false, false
}

// MaxItems counts the scorable items of kind. Unknown kinds have none.
func (r *Registry) MaxItems(kind blueprint.MechanicKind, bp *blueprint.Blueprint) int {
	e, err := r.Lookup(kind)
	if err != nil {
		return 0
	}
	return e.MaxItems(bp)
}
