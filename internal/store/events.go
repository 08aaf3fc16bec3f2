package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/diagramlab/internal/eventlog"
)

// AppendEvents writes a batch of session events in one transaction.
// Re-flushing an event with the same (session, seq) is a no-op, which makes
// the write idempotent. Store implements eventlog.Sink.
func (s *Store) AppendEvents(ctx context.Context, sessionID string, events []eventlog.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append events: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (session_id, seq, kind, payload, ts)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("append events: prepare: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		payload, err := marshalPayload(ev.Payload)
		if err != nil {
			return fmt.Errorf("append event %d: %w", ev.Seq, err)
		}
		if _, err := stmt.ExecContext(ctx, sessionID, ev.Seq, string(ev.Kind), payload, ev.Timestamp.UnixMilli()); err != nil {
			return fmt.Errorf("append event %d: %w", ev.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append events: commit: %w", err)
	}
	return nil
}

// ReadEvents returns the stored events of a session ordered by seq.
// Returns an empty slice (not nil) when there are none.
func (s *Store) ReadEvents(ctx context.Context, sessionID string) ([]eventlog.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, payload, ts
		FROM events
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := []eventlog.Event{}
	for rows.Next() {
		var ev eventlog.Event
		var kind, payload string
		var ts int64
		if err := rows.Scan(&ev.Seq, &kind, &payload, &ts); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = eventlog.Kind(kind)
		ev.SessionID = sessionID
		ev.Timestamp = time.UnixMilli(ts).UTC()
		if err := json.Unmarshal([]byte(payload), &ev.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal event %d payload: %w", ev.Seq, err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// LastEventSeq returns the highest stored seq of a session, or 0.
func (s *Store) LastEventSeq(ctx context.Context, sessionID string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM events WHERE session_id = ?`, sessionID,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last event seq: %w", err)
	}
	return seq, nil
}

// CountEventsByKind summarizes a session's stored events.
func (s *Store) CountEventsByKind(ctx context.Context, sessionID string) (map[eventlog.Kind]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*)
		FROM events
		WHERE session_id = ?
		GROUP BY kind
		ORDER BY kind COLLATE BINARY ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	out := map[eventlog.Kind]int{}
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan event count: %w", err)
		}
		out[eventlog.Kind(kind)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event counts: %w", err)
	}
	return out, nil
}

func marshalPayload(p map[string]any) (string, error) {
	if p == nil {
		return "{}", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}
