package command

import (
	"log/slog"
	"sort"
	"sync"
)

// DefaultMaxSize bounds the undo stack when no size is given.
const DefaultMaxSize = 50

// Status is what History subscribers see after every change.
type Status struct {
	CanUndo  bool   `json:"can_undo"`
	CanRedo  bool   `json:"can_redo"`
	UndoSize int    `json:"undo_size"`
	RedoSize int    `json:"redo_size"`
	NextUndo string `json:"next_undo,omitempty"`
	NextRedo string `json:"next_redo,omitempty"`
}

// History holds the undo and redo stacks.
//
// Executing a command clears the redo stack. When the undo stack is full the
// oldest command is evicted.
type History struct {
	mu      sync.Mutex
	max     int
	logger  *slog.Logger
	undo    []Command
	redo    []Command
	subs    map[int]func(Status)
	nextSub int
}

// HistoryOption configures a History.
type HistoryOption func(*History)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) HistoryOption {
	return func(h *History) { h.logger = l }
}

// NewHistory creates a history holding at most maxSize undoable commands.
// A non-positive size uses DefaultMaxSize.
func NewHistory(maxSize int, opts ...HistoryOption) *History {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	h := &History{
		max:    maxSize,
		logger: slog.Default(),
		subs:   make(map[int]func(Status)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Execute runs cmd and records it for undo. It reports false, leaving the
// stacks untouched, when the command cannot run or did not take effect.
func (h *History) Execute(cmd Command) bool {
	if !cmd.CanExecute() || !cmd.Execute() {
		h.logger.Debug("command not executed", "id", cmd.ID(), "kind", cmd.Kind())
		return false
	}

	h.mu.Lock()
	h.undo = append(h.undo, cmd)
	if len(h.undo) > h.max {
		evicted := h.undo[0]
		h.undo = h.undo[1:]
		h.logger.Debug("history full, evicted oldest", "id", evicted.ID())
	}
	h.redo = nil
	h.mu.Unlock()

	h.notify()
	return true
}

// Undo reverses the most recent command. A command whose effect was changed
// underneath it is dropped and Undo reports false.
func (h *History) Undo() (Command, bool) {
	cmd := h.pop(&h.undo)
	if cmd == nil {
		return nil, false
	}
	ok := cmd.CanUndo() && cmd.Undo()
	if ok {
		h.push(&h.redo, cmd)
	} else {
		h.logger.Warn("dropping command that can no longer be undone", "id", cmd.ID(), "kind", cmd.Kind())
	}

	h.notify()
	return cmd, ok
}

// Redo re-applies the most recently undone command.
func (h *History) Redo() (Command, bool) {
	cmd := h.pop(&h.redo)
	if cmd == nil {
		return nil, false
	}
	ok := cmd.CanExecute() && cmd.Execute()
	if ok {
		h.push(&h.undo, cmd)
	} else {
		h.logger.Warn("dropping command that can no longer be redone", "id", cmd.ID(), "kind", cmd.Kind())
	}

	h.notify()
	return cmd, ok
}

// pop takes the top command off stack. Commands run with the lock released
// so the game they drive can call back into the history; while a command
// runs it sits on neither stack.
func (h *History) pop(stack *[]Command) Command {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(*stack)
	if n == 0 {
		return nil
	}
	cmd := (*stack)[n-1]
	*stack = (*stack)[:n-1]
	return cmd
}

func (h *History) push(stack *[]Command, cmd Command) {
	h.mu.Lock()
	*stack = append(*stack, cmd)
	h.mu.Unlock()
}

// CanUndo reports whether Undo has a command to reverse.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo) > 0
}

// CanRedo reports whether Redo has a command to re-apply.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo) > 0
}

// Clear empties both stacks.
func (h *History) Clear() {
	h.mu.Lock()
	h.undo = nil
	h.redo = nil
	h.mu.Unlock()
	h.notify()
}

// Status returns the current stack summary.
func (h *History) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.statusLocked()
}

// Subscribe registers fn to receive the status after every change. The
// returned function unregisters it.
func (h *History) Subscribe(fn func(Status)) func() {
	h.mu.Lock()
	id := h.nextSub
	h.nextSub++
	h.subs[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

func (h *History) statusLocked() Status {
	s := Status{
		CanUndo:  len(h.undo) > 0,
		CanRedo:  len(h.redo) > 0,
		UndoSize: len(h.undo),
		RedoSize: len(h.redo),
	}
	if s.CanUndo {
		s.NextUndo = h.undo[len(h.undo)-1].Description()
	}
	if s.CanRedo {
		s.NextRedo = h.redo[len(h.redo)-1].Description()
	}
	return s
}

func (h *History) notify() {
	h.mu.Lock()
	ids := make([]int, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Status), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, h.subs[id])
	}
	s := h.statusLocked()
	h.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
