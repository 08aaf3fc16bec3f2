package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SnapshotRecord is one saved game. State holds the snapshot JSON as
// produced by the caller; the store only checks its integrity.
type SnapshotRecord struct {
	GameID    string
	SessionID string
	Version   int64
	State     []byte
	Checksum  string
	SavedAt   time.Time
}

// SaveSnapshot upserts the snapshot for (GameID, SessionID). Saves carrying
// an older version than the stored one are ignored.
func (s *Store) SaveSnapshot(ctx context.Context, rec SnapshotRecord) error {
	if rec.GameID == "" || rec.SessionID == "" {
		return fmt.Errorf("save snapshot: game id and session id are required")
	}
	if rec.SavedAt.IsZero() {
		rec.SavedAt = time.Now()
	}
	sum := Checksum(rec.State)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO game_snapshots (game_id, session_id, version, state, checksum, saved_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(game_id, session_id) DO UPDATE SET
			version  = excluded.version,
			state    = excluded.state,
			checksum = excluded.checksum,
			saved_at = excluded.saved_at
		WHERE excluded.version >= game_snapshots.version
	`,
		rec.GameID,
		rec.SessionID,
		rec.Version,
		string(rec.State),
		sum,
		rec.SavedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save snapshot %s/%s: %w", rec.GameID, rec.SessionID, err)
	}
	return nil
}

// LoadSnapshot returns the most recently saved snapshot for gameID across
// its sessions.
func (s *Store) LoadSnapshot(ctx context.Context, gameID string) (SnapshotRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT game_id, session_id, version, state, checksum, saved_at
		FROM game_snapshots
		WHERE game_id = ?
		ORDER BY saved_at DESC, version DESC, session_id COLLATE BINARY ASC
		LIMIT 1
	`, gameID)
	return scanSnapshot(row, gameID)
}

// LoadSessionSnapshot returns the snapshot saved for one session.
func (s *Store) LoadSessionSnapshot(ctx context.Context, gameID, sessionID string) (SnapshotRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT game_id, session_id, version, state, checksum, saved_at
		FROM game_snapshots
		WHERE game_id = ? AND session_id = ?
	`, gameID, sessionID)
	return scanSnapshot(row, gameID+"/"+sessionID)
}

// ListSnapshots returns every saved snapshot without its state, newest
// first.
func (s *Store) ListSnapshots(ctx context.Context) ([]SnapshotRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT game_id, session_id, version, checksum, saved_at
		FROM game_snapshots
		ORDER BY saved_at DESC, game_id COLLATE BINARY ASC, session_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	out := []SnapshotRecord{}
	for rows.Next() {
		var rec SnapshotRecord
		var savedAt int64
		if err := rows.Scan(&rec.GameID, &rec.SessionID, &rec.Version, &rec.Checksum, &savedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		rec.SavedAt = time.UnixMilli(savedAt).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}

// DeleteSnapshots removes every snapshot saved for gameID.
func (s *Store) DeleteSnapshots(ctx context.Context, gameID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM game_snapshots WHERE game_id = ?`, gameID); err != nil {
		return fmt.Errorf("delete snapshots %s: %w", gameID, err)
	}
	return nil
}

func scanSnapshot(row *sql.Row, key string) (SnapshotRecord, error) {
	var rec SnapshotRecord
	var state string
	var savedAt int64
	err := row.Scan(&rec.GameID, &rec.SessionID, &rec.Version, &state, &rec.Checksum, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SnapshotRecord{}, fmt.Errorf("snapshot %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("scan snapshot %s: %w", key, err)
	}
	rec.State = []byte(state)
	rec.SavedAt = time.UnixMilli(savedAt).UTC()
	if Checksum(rec.State) != rec.Checksum {
		return SnapshotRecord{}, fmt.Errorf("snapshot %s: %w", key, ErrChecksumMismatch)
	}
	return rec, nil
}
