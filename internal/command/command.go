package command

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind tags a command type.
type Kind string

const (
	KindPlaceLabel  Kind = "place_label"
	KindRemoveLabel Kind = "remove_label"
)

// Command is a reversible state change. Commands never touch game state
// directly; they go through the Facade they were built with.
type Command interface {
	ID() string
	Kind() Kind
	Description() string
	Timestamp() time.Time

	// CanExecute reports whether Execute would currently succeed.
	CanExecute() bool
	// Execute applies the change and reports whether it took effect.
	Execute() bool
	// CanUndo reports whether the change is still in place to be reversed.
	CanUndo() bool
	// Undo reverses the change and reports whether it took effect.
	Undo() bool
}

// Facade is the narrow set of game operations commands may call.
// *engine.Engine satisfies it.
type Facade interface {
	PlaceLabel(labelID, zoneID string) bool
	RemoveLabel(labelID string) bool
	PlacementOf(labelID string) (zoneID string, ok bool)
}

// Option configures a command.
type Option func(*base)

// WithID overrides the generated command id.
func WithID(id string) Option {
	return func(b *base) { b.id = id }
}

// WithTimestamp overrides the creation time.
func WithTimestamp(t time.Time) Option {
	return func(b *base) { b.ts = t }
}

type base struct {
	id   string
	kind Kind
	desc string
	ts   time.Time
}

func newBase(kind Kind, desc string, opts []Option) base {
	b := base{kind: kind, desc: desc}
	for _, opt := range opts {
		opt(&b)
	}
	if b.id == "" {
		b.id = uuid.Must(uuid.NewV7()).String()
	}
	if b.ts.IsZero() {
		b.ts = time.Now()
	}
	return b
}

func (b *base) ID() string           { return b.id }
func (b *base) Kind() Kind           { return b.kind }
func (b *base) Description() string  { return b.desc }
func (b *base) Timestamp() time.Time { return b.ts }

// PlaceLabelCommand drops a label on a zone. Only placements the game
// accepts count as executed.
type PlaceLabelCommand struct {
	base
	f       Facade
	labelID string
	zoneID  string
}

// NewPlaceLabel builds a command placing labelID on zoneID.
func NewPlaceLabel(f Facade, labelID, zoneID string, opts ...Option) *PlaceLabelCommand {
	return &PlaceLabelCommand{
		base:    newBase(KindPlaceLabel, fmt.Sprintf("place %s on %s", labelID, zoneID), opts),
		f:       f,
		labelID: labelID,
		zoneID:  zoneID,
	}
}

// LabelID returns the label being placed.
func (c *PlaceLabelCommand) LabelID() string { return c.labelID }

// ZoneID returns the target zone.
func (c *PlaceLabelCommand) ZoneID() string { return c.zoneID }

func (c *PlaceLabelCommand) CanExecute() bool {
	_, placed := c.f.PlacementOf(c.labelID)
	return !placed
}

func (c *PlaceLabelCommand) Execute() bool {
	return c.f.PlaceLabel(c.labelID, c.zoneID)
}

func (c *PlaceLabelCommand) CanUndo() bool {
	zone, ok := c.f.PlacementOf(c.labelID)
	return ok && zone == c.zoneID
}

func (c *PlaceLabelCommand) Undo() bool {
	if !c.CanUndo() {
		return false
	}
	return c.f.RemoveLabel(c.labelID)
}

// RemoveLabelCommand takes a placed label off the diagram. The zone it sat
// on is captured at execution so Undo can put it back.
type RemoveLabelCommand struct {
	base
	f       Facade
	labelID string
	zoneID  string
}

// NewRemoveLabel builds a command removing labelID.
func NewRemoveLabel(f Facade, labelID string, opts ...Option) *RemoveLabelCommand {
	return &RemoveLabelCommand{
		base:    newBase(KindRemoveLabel, "remove "+labelID, opts),
		f:       f,
		labelID: labelID,
	}
}

// LabelID returns the label being removed.
func (c *RemoveLabelCommand) LabelID() string { return c.labelID }

// ZoneID returns the zone the label was removed from, once executed.
func (c *RemoveLabelCommand) ZoneID() string { return c.zoneID }

func (c *RemoveLabelCommand) CanExecute() bool {
	_, placed := c.f.PlacementOf(c.labelID)
	return placed
}

func (c *RemoveLabelCommand) Execute() bool {
	zone, ok := c.f.PlacementOf(c.labelID)
	if !ok {
		return false
	}
	if !c.f.RemoveLabel(c.labelID) {
		return false
	}
	c.zoneID = zone
	return true
}

func (c *RemoveLabelCommand) CanUndo() bool {
	if c.zoneID == "" {
		return false
	}
	_, placed := c.f.PlacementOf(c.labelID)
	return !placed
}

func (c *RemoveLabelCommand) Undo() bool {
	if !c.CanUndo() {
		return false
	}
	return c.f.PlaceLabel(c.labelID, c.zoneID)
}
