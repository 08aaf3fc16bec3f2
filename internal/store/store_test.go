package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/diagramlab/internal/eventlog"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"game_snapshots", "settings", "events"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatal(err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name, want string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.pragma(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpen_MemoryWithOptions(t *testing.T) {
	s, err := Open(":memory:", WithBusyTimeout(250*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	timeout, err := s.pragma("busy_timeout")
	require.NoError(t, err)
	assert.Equal(t, "250", timeout)

	mode, err := s.pragma("journal_mode")
	require.NoError(t, err)
	assert.Equal(t, "memory", mode)
}

func TestOpen_MigratesOldDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("DROP INDEX idx_events_kind")
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 0")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	version, err := s.pragma("user_version")
	require.NoError(t, err)
	assert.Equal(t, "2", version)

	var name string
	require.NoError(t, s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_events_kind'",
	).Scan(&name))
}

func TestSchema_Columns(t *testing.T) {
	s := createTestStore(t)

	tests := map[string][]string{
		"game_snapshots": {"game_id", "session_id", "version", "state", "checksum", "saved_at"},
		"settings":       {"key", "value", "updated_at"},
		"events":         {"session_id", "seq", "kind", "payload", "ts"},
	}
	for table, expected := range tests {
		columns := getTableColumns(t, s.db, table)
		for _, col := range expected {
			if !slices.Contains(columns, col) {
				t.Errorf("%s table missing column %q", table, col)
			}
		}
	}
}

func TestSnapshot_SaveLoad(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	savedAt := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveSnapshot(ctx, SnapshotRecord{
		GameID:    "heart",
		SessionID: "s1",
		Version:   3,
		State:     []byte(`{"score":10}`),
		SavedAt:   savedAt,
	}))

	rec, err := s.LoadSnapshot(ctx, "heart")
	require.NoError(t, err)
	assert.Equal(t, "s1", rec.SessionID)
	assert.Equal(t, int64(3), rec.Version)
	assert.JSONEq(t, `{"score":10}`, string(rec.State))
	assert.Equal(t, Checksum(rec.State), rec.Checksum)
	assert.Equal(t, savedAt, rec.SavedAt)
}

func TestSnapshot_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.LoadSnapshot(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.LoadSessionSnapshot(context.Background(), "missing", "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshot_OlderVersionIgnored(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.SaveSnapshot(ctx, SnapshotRecord{GameID: "g", SessionID: "s", Version: 5, State: []byte(`{"v":5}`)}))
	require.NoError(t, s.SaveSnapshot(ctx, SnapshotRecord{GameID: "g", SessionID: "s", Version: 4, State: []byte(`{"v":4}`)}))

	rec, err := s.LoadSessionSnapshot(ctx, "g", "s")
	require.NoError(t, err)
	assert.Equal(t, int64(5), rec.Version)
	assert.JSONEq(t, `{"v":5}`, string(rec.State))
}

func TestSnapshot_LatestSessionWins(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	t0 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveSnapshot(ctx, SnapshotRecord{GameID: "g", SessionID: "old", Version: 9, State: []byte(`{}`), SavedAt: t0}))
	require.NoError(t, s.SaveSnapshot(ctx, SnapshotRecord{GameID: "g", SessionID: "new", Version: 1, State: []byte(`{}`), SavedAt: t0.Add(time.Minute)}))

	rec, err := s.LoadSnapshot(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, "new", rec.SessionID)

	list, err := s.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].SessionID)
	assert.Nil(t, list[0].State)

	require.NoError(t, s.DeleteSnapshots(ctx, "g"))
	_, err = s.LoadSnapshot(ctx, "g")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshot_CorruptionDetected(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.SaveSnapshot(ctx, SnapshotRecord{GameID: "g", SessionID: "s", Version: 1, State: []byte(`{"score":1}`)}))

	_, err := s.db.Exec(`UPDATE game_snapshots SET state = '{"score":999}'`)
	require.NoError(t, err)

	_, err = s.LoadSnapshot(ctx, "g")
	assert.True(t, errors.Is(err, ErrChecksumMismatch))
}

func TestSnapshot_RequiresKeys(t *testing.T) {
	s := createTestStore(t)
	err := s.SaveSnapshot(context.Background(), SnapshotRecord{GameID: "g"})
	assert.Error(t, err)
}

func TestSettings_PutGet(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.GetSetting(ctx, "settings")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.PutSetting(ctx, "settings", []byte(`{"audio":true}`)))
	require.NoError(t, s.PutSetting(ctx, "settings", []byte(`{"audio":false}`)))

	got, err := s.GetSetting(ctx, "settings")
	require.NoError(t, err)
	assert.JSONEq(t, `{"audio":false}`, string(got))
}

func TestEvents_AppendRead(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	ts := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	batch := []eventlog.Event{
		{Seq: 1, Kind: eventlog.KindLabelPlaced, Payload: map[string]any{"label_id": "l1"}, Timestamp: ts},
		{Seq: 2, Kind: eventlog.KindHintRequested, Timestamp: ts.Add(time.Second)},
	}
	require.NoError(t, s.AppendEvents(ctx, "s1", batch))
	// Flushing the same events again is a no-op.
	require.NoError(t, s.AppendEvents(ctx, "s1", batch))
	require.NoError(t, s.AppendEvents(ctx, "s2", batch[:1]))

	got, err := s.ReadEvents(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].Seq)
	assert.Equal(t, eventlog.KindLabelPlaced, got[0].Kind)
	assert.Equal(t, "l1", got[0].Payload["label_id"])
	assert.Equal(t, "s1", got[0].SessionID)
	assert.Equal(t, ts, got[0].Timestamp)
	assert.Empty(t, got[1].Payload)

	counts, err := s.CountEventsByKind(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, map[eventlog.Kind]int{eventlog.KindLabelPlaced: 1, eventlog.KindHintRequested: 1}, counts)

	last, err := s.LastEventSeq(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), last)
	last, err = s.LastEventSeq(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, last)

	none, err := s.ReadEvents(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestEvents_FlushFromLog(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	log := eventlog.New(10, eventlog.WithSessionID("s1"))
	log.Record(eventlog.KindAction, map[string]any{"type": "place"})
	log.Record(eventlog.KindUndo, nil)

	n, err := log.Flush(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.ReadEvents(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestChecksum_DomainSeparated(t *testing.T) {
	a := Checksum([]byte(`{}`))
	assert.Len(t, a, 64)
	assert.Equal(t, a, Checksum([]byte(`{}`)))
	assert.NotEqual(t, a, Checksum([]byte(`{ }`)))
}

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}
