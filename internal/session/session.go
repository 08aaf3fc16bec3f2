package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/diagramlab/internal/blueprint"
	"github.com/roach88/diagramlab/internal/command"
	"github.com/roach88/diagramlab/internal/engine"
	"github.com/roach88/diagramlab/internal/eventlog"
)

var (
	// ErrNothingToUndo is returned by undo on an empty undo stack.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo is returned by redo on an empty redo stack.
	ErrNothingToRedo = errors.New("nothing to redo")

	// ErrStaleCommand is returned when the command on top of a stack no
	// longer matches the game and was dropped.
	ErrStaleCommand = errors.New("command no longer applies")
)

// Session wires one engine to its command history and event log.
//
// Placements and removals run as commands so they can be undone. Every
// other action goes straight to the engine. Each incoming action is
// mirrored into the event log before it is handled.
type Session struct {
	mu      sync.Mutex
	engine  *engine.Engine
	history *command.History
	log     *eventlog.Log
	board   *board
	logger  *slog.Logger

	commandIDs IDGenerator
	now        func() time.Time
}

// IDGenerator supplies command ids.
type IDGenerator interface {
	Generate() string
}

// Config sizes the session's collaborators.
type Config struct {
	HistorySize      int
	EventLogCapacity int
	Logger           *slog.Logger

	// EngineOptions are passed through to engine.New after the session's
	// own logger and event sink.
	EngineOptions []engine.Option

	// LogOptions are passed through to eventlog.New.
	LogOptions []eventlog.Option

	// CommandIDs and Now stamp undoable commands. Nil means random v7
	// UUIDs and the wall clock.
	CommandIDs IDGenerator
	Now        func() time.Time
}

// New creates a session with a fresh engine, history and event log.
func New(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	log := eventlog.New(cfg.EventLogCapacity, cfg.LogOptions...)
	opts := append([]engine.Option{
		engine.WithLogger(logger),
		engine.WithEventSink(log),
	}, cfg.EngineOptions...)
	e := engine.New(opts...)

	return &Session{
		engine:  e,
		history: command.NewHistory(cfg.HistorySize, command.WithLogger(logger)),
		log:     log,
		board:   &board{e: e},
		logger:  logger,

		commandIDs: cfg.CommandIDs,
		now:        cfg.Now,
	}
}

// Engine returns the underlying engine.
func (s *Session) Engine() *engine.Engine { return s.engine }

// History returns the command history.
func (s *Session) History() *command.History { return s.history }

// Log returns the event log.
func (s *Session) Log() *eventlog.Log { return s.log }

// State returns a copy of the engine state.
func (s *Session) State() engine.State { return s.engine.State() }

// Initialize starts a new game on bp. History from a previous game is
// discarded.
func (s *Session) Initialize(bp *blueprint.Blueprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.Initialize(bp); err != nil {
		return err
	}
	s.history.Clear()
	return nil
}

// InitializeSequence starts a multi-scene game.
func (s *Session) InitializeSequence(seq *blueprint.Sequence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.InitializeSequence(seq); err != nil {
		return err
	}
	s.history.Clear()
	return nil
}

// AdvanceScene moves to the next scene of a sequence.
func (s *Session) AdvanceScene() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok, err := s.engine.AdvanceScene()
	if ok {
		s.history.Clear()
	}
	return ok, err
}

// Reset restarts the current scene.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Reset()
	s.history.Clear()
}

// Restore resumes a saved game. Undo history does not survive a restore.
func (s *Session) Restore(bp *blueprint.Blueprint, snap engine.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.Restore(bp, snap); err != nil {
		return err
	}
	s.history.Clear()
	return nil
}

// Flush writes pending events to sink.
func (s *Session) Flush(ctx context.Context, sink eventlog.Sink) (int, error) {
	return s.log.Flush(ctx, sink)
}

// Dispatch is Apply without the error.
func (s *Session) Dispatch(a engine.Action) *engine.ActionResult {
	res, _ := s.Apply(a)
	return res
}

// Apply handles one learner action and returns its immediate result.
func (s *Session) Apply(a engine.Action) (*engine.ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Record(eventlog.KindAction, actionPayload(a))

	switch a.Type {
	case engine.ActionPlace:
		return s.execute(a, command.NewPlaceLabel(s.board, a.LabelID, a.ZoneID, s.commandOpts()...))
	case engine.ActionRemove:
		return s.execute(a, command.NewRemoveLabel(s.board, a.LabelID, s.commandOpts()...))
	case engine.ActionUndo:
		s.board.takeBack = true
		defer func() { s.board.takeBack = false }()
		return s.step(eventlog.KindUndo, ErrNothingToUndo, s.history.Undo)
	case engine.ActionRedo:
		return s.step(eventlog.KindRedo, ErrNothingToRedo, s.history.Redo)
	default:
		return s.engine.Apply(a)
	}
}

func (s *Session) commandOpts() []command.Option {
	var opts []command.Option
	if s.commandIDs != nil {
		opts = append(opts, command.WithID(s.commandIDs.Generate()))
	}
	if s.now != nil {
		opts = append(opts, command.WithTimestamp(s.now()))
	}
	return opts
}

// Undo reverses the most recent placement or removal. Undoing the placement
// that handed the game to the next mechanic steps back into the placement
// mechanic, provided nothing has been scored since the hand-over.
func (s *Session) Undo() (*engine.ActionResult, error) {
	return s.Apply(engine.Action{Type: engine.ActionUndo})
}

// Redo re-applies the most recently undone placement or removal.
func (s *Session) Redo() (*engine.ActionResult, error) {
	return s.Apply(engine.Action{Type: engine.ActionRedo})
}

// execute runs cmd through the history. When the command's precondition
// fails the engine never heard about it, so the action is handed to the
// engine directly to get a proper rejection.
func (s *Session) execute(a engine.Action, cmd command.Command) (*engine.ActionResult, error) {
	s.board.begin()
	s.history.Execute(cmd)
	if !s.board.called {
		return s.engine.Apply(a)
	}
	return s.board.res, s.board.err
}

func (s *Session) step(kind eventlog.Kind, empty error, fn func() (command.Command, bool)) (*engine.ActionResult, error) {
	before := s.engine.State().Score
	s.board.begin()
	cmd, ok := fn()
	if cmd == nil {
		return nil, empty
	}
	if !ok {
		if s.board.err != nil {
			return nil, fmt.Errorf("%s %q: %w", kind, cmd.Description(), s.board.err)
		}
		return nil, fmt.Errorf("%s %q: %w", kind, cmd.Description(), ErrStaleCommand)
	}

	delta := s.engine.State().Score - before
	s.log.Record(kind, map[string]any{
		"command_id":  cmd.ID(),
		"command":     string(cmd.Kind()),
		"description": cmd.Description(),
		"score_delta": delta,
	})
	s.logger.Debug("history step", "kind", kind, "command", cmd.Description())
	return &engine.ActionResult{
		IsCorrect:  true,
		ScoreDelta: delta,
		Data:       map[string]any{"command": cmd.Description()},
	}, nil
}

// board is the command facade over the engine. It remembers the result of
// the last engine call so the session can report it. While takeBack is set,
// removals may step the game back out of a mechanic the removed placement
// led into.
type board struct {
	e        *engine.Engine
	called   bool
	takeBack bool
	res      *engine.ActionResult
	err      error
}

func (b *board) begin() {
	b.called = false
	b.res = nil
	b.err = nil
}

func (b *board) PlaceLabel(labelID, zoneID string) bool {
	b.called = true
	b.res, b.err = b.e.Apply(engine.Action{Type: engine.ActionPlace, LabelID: labelID, ZoneID: zoneID})
	return b.err == nil && b.res != nil && b.res.IsCorrect
}

func (b *board) RemoveLabel(labelID string) bool {
	b.called = true
	if b.takeBack {
		b.res, b.err = b.e.TakeBackLabel(labelID)
		return b.err == nil
	}
	b.res, b.err = b.e.Apply(engine.Action{Type: engine.ActionRemove, LabelID: labelID})
	return b.err == nil
}

func (b *board) PlacementOf(labelID string) (string, bool) {
	return b.e.PlacementOf(labelID)
}

func actionPayload(a engine.Action) map[string]any {
	p := map[string]any{"type": string(a.Type)}
	set := func(key, v string) {
		if v != "" {
			p[key] = v
		}
	}
	set("label_id", a.LabelID)
	set("zone_id", a.ZoneID)
	set("path_id", a.PathID)
	set("item_id", a.ItemID)
	set("category_id", a.CategoryID)
	set("pair_id", a.PairID)
	set("node_id", a.NodeID)
	set("option_id", a.OptionID)
	set("next_node_id", a.NextNodeID)
	set("category", a.Category)
	set("mode", string(a.Mode))
	if len(a.ZoneIDs) > 0 {
		p["zone_ids"] = a.ZoneIDs
	}
	if len(a.Order) > 0 {
		p["order"] = a.Order
	}
	if a.Type == engine.ActionBranchingChoice {
		p["is_correct"] = a.IsCorrect
	}
	return p
}
