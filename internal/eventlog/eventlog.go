// Package eventlog keeps an append-only, capacity-bounded record of what
// happened in a session.
//
// Events are stamped with a strictly increasing seq per session. When the
// log is full the oldest event is evicted. Flush hands the events written
// since the previous flush to a durable sink.
package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sync"
	"time"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 1000

// Kind names an event.
type Kind string

const (
	KindLabelPlaced        Kind = "label_placed"
	KindLabelRemoved       Kind = "label_removed"
	KindIncorrectPlacement Kind = "incorrect_placement"
	KindHintRequested      Kind = "hint_requested"
	KindUndo               Kind = "undo"
	KindRedo               Kind = "redo"
	KindModeTransition     Kind = "mode_transition"
	KindZoneRevealed       Kind = "zone_revealed"
	KindAction             Kind = "action"
	KindGameCompleted      Kind = "game_completed"
	KindError              Kind = "error"
)

// Event is one log entry.
type Event struct {
	Seq       int64          `json:"seq"`
	Kind      Kind           `json:"kind"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	SessionID string         `json:"session_id"`
}

// Sink persists flushed events.
type Sink interface {
	AppendEvents(ctx context.Context, sessionID string, events []Event) error
}

// Summary aggregates the retained events.
type Summary struct {
	SessionID string       `json:"session_id"`
	Total     int          `json:"total"`
	Dropped   int          `json:"dropped"`
	FirstSeq  int64        `json:"first_seq"`
	LastSeq   int64        `json:"last_seq"`
	ByKind    map[Kind]int `json:"by_kind"`

	// Span is the time between the first and the last retained event.
	Span time.Duration `json:"span"`

	// ModeDurations is the time spent in each mechanic, split at applied
	// and reverted mode transitions. The mechanic open at the last event
	// runs until that event. Time before the first transition is only
	// attributed once a transition names the mechanic it left.
	ModeDurations map[string]time.Duration `json:"mode_durations,omitempty"`

	// TimeToComplete is the time from the first event to the first
	// game_completed event, zero if the game never completed.
	TimeToComplete time.Duration `json:"time_to_complete,omitempty"`
}

// Log is the bounded event log.
//
// Thread-safety: Log is safe for concurrent use.
type Log struct {
	mu         sync.Mutex
	capacity   int
	now        func() time.Time
	sessionID  string
	seq        int64
	flushedSeq int64
	dropped    int
	events     []Event
}

// Option configures a Log.
type Option func(*Log)

// WithNow sets the timestamp source.
func WithNow(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithSessionID sets the initial session id.
func WithSessionID(id string) Option {
	return func(l *Log) { l.sessionID = id }
}

// New creates an empty log holding at most capacity events.
func New(capacity int, opts ...Option) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l := &Log{capacity: capacity, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append adds an event and returns it with its seq and timestamp filled in.
func (l *Log) Append(kind Kind, payload map[string]any) Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	ev := Event{
		Seq:       l.seq,
		Kind:      kind,
		Payload:   maps.Clone(payload),
		Timestamp: l.now(),
		SessionID: l.sessionID,
	}
	if len(l.events) >= l.capacity {
		l.events = l.events[1:]
		l.dropped++
	}
	l.events = append(l.events, ev)
	return ev
}

// Record appends an event, discarding the result. It lets a Log serve as
// the engine's event sink.
func (l *Log) Record(kind Kind, payload map[string]any) {
	l.Append(kind, payload)
}

// Events returns a copy of the retained events in seq order.
func (l *Log) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Since returns retained events with seq greater than seq.
func (l *Log) Since(seq int64) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sinceLocked(seq)
}

func (l *Log) sinceLocked(seq int64) []Event {
	var out []Event
	for _, ev := range l.events {
		if ev.Seq > seq {
			out = append(out, ev)
		}
	}
	return out
}

// SessionID returns the session the log is recording.
func (l *Log) SessionID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessionID
}

// Summary aggregates the retained events.
func (l *Log) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Summarize(l.sessionID, l.events)
	s.Dropped = l.dropped
	return s
}

// Summarize aggregates events of one session in seq order. Stored events
// read back from a sink summarize the same way as a live log.
func Summarize(sessionID string, events []Event) Summary {
	s := Summary{
		SessionID: sessionID,
		Total:     len(events),
		ByKind:    make(map[Kind]int),
	}
	if len(events) == 0 {
		return s
	}
	first, last := events[0], events[len(events)-1]
	s.FirstSeq = first.Seq
	s.LastSeq = last.Seq
	s.Span = last.Timestamp.Sub(first.Timestamp)

	mode, since := "", first.Timestamp
	for _, ev := range events {
		s.ByKind[ev.Kind]++
		switch ev.Kind {
		case KindGameCompleted:
			if s.TimeToComplete == 0 {
				s.TimeToComplete = ev.Timestamp.Sub(first.Timestamp)
			}
		case KindModeTransition:
			if status, _ := ev.Payload["status"].(string); status != "applied" && status != "reverted" {
				continue
			}
			from, _ := ev.Payload["from"].(string)
			to, _ := ev.Payload["to"].(string)
			s.addModeTime(from, ev.Timestamp.Sub(since))
			mode, since = to, ev.Timestamp
		}
	}
	s.addModeTime(mode, last.Timestamp.Sub(since))
	return s
}

func (s *Summary) addModeTime(mode string, d time.Duration) {
	if mode == "" {
		return
	}
	if s.ModeDurations == nil {
		s.ModeDurations = make(map[string]time.Duration)
	}
	s.ModeDurations[mode] += d
}

type export struct {
	SessionID string  `json:"session_id"`
	Events    []Event `json:"events"`
}

// Export renders the retained events as indented JSON.
func (l *Log) Export() ([]byte, error) {
	l.mu.Lock()
	doc := export{SessionID: l.sessionID, Events: make([]Event, len(l.events))}
	copy(doc.Events, l.events)
	l.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export events: %w", err)
	}
	return data, nil
}

// Flush writes every event appended since the last successful flush to
// sink. On failure the events stay pending for the next flush.
func (l *Log) Flush(ctx context.Context, sink Sink) (int, error) {
	l.mu.Lock()
	pending := l.sinceLocked(l.flushedSeq)
	sessionID := l.sessionID
	l.mu.Unlock()

	if len(pending) == 0 {
		return 0, nil
	}
	if err := sink.AppendEvents(ctx, sessionID, pending); err != nil {
		return 0, fmt.Errorf("flush %d events: %w", len(pending), err)
	}

	last := pending[len(pending)-1].Seq
	l.mu.Lock()
	// A Reset during the write starts a new session; keep its cursor.
	if l.sessionID == sessionID && last > l.flushedSeq {
		l.flushedSeq = last
	}
	l.mu.Unlock()
	return len(pending), nil
}

// Reset clears the log and starts recording sessionID from seq 1.
func (l *Log) Reset(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessionID = sessionID
	l.seq = 0
	l.flushedSeq = 0
	l.dropped = 0
	l.events = nil
}

// Resume clears the log and continues sessionID after lastSeq, for a session
// whose earlier events were already flushed.
func (l *Log) Resume(sessionID string, lastSeq int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessionID = sessionID
	l.seq = lastSeq
	l.flushedSeq = lastSeq
	l.dropped = 0
	l.events = nil
}
