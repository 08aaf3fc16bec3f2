package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/diagramlab/internal/engine"
	"github.com/roach88/diagramlab/internal/store"
)

const settingsKey = "settings"

// Backend is the durable storage the manager writes through. *store.Store
// implements it.
type Backend interface {
	SaveSnapshot(ctx context.Context, rec store.SnapshotRecord) error
	LoadSnapshot(ctx context.Context, gameID string) (store.SnapshotRecord, error)
	PutSetting(ctx context.Context, key string, value []byte) error
	GetSetting(ctx context.Context, key string) ([]byte, error)
}

// Source supplies snapshots for autosave. *engine.Engine implements it.
type Source interface {
	Snapshot() engine.Snapshot
}

// Manager saves and restores game snapshots and settings. Failures are
// logged and reported, never fatal.
type Manager struct {
	backend Backend
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithNow sets the clock used to stamp saves.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager over backend.
func NewManager(backend Backend, opts ...Option) *Manager {
	m := &Manager{
		backend: backend,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Save writes snap for (gameID, sessionID). A failure is logged and
// returned; the caller's game keeps running either way.
func (m *Manager) Save(ctx context.Context, gameID, sessionID string, snap engine.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		m.logger.Error("save not confirmed", "game", gameID, "session", sessionID, "error", err)
		return fmt.Errorf("save %s: %w", gameID, err)
	}
	err = m.backend.SaveSnapshot(ctx, store.SnapshotRecord{
		GameID:    gameID,
		SessionID: sessionID,
		Version:   snap.Version,
		State:     data,
		SavedAt:   m.now(),
	})
	if err != nil {
		m.logger.Error("save not confirmed", "game", gameID, "session", sessionID, "error", err)
		return fmt.Errorf("save %s: %w", gameID, err)
	}
	m.logger.Debug("game saved", "game", gameID, "session", sessionID, "version", snap.Version)
	return nil
}

// Load returns the latest saved snapshot for gameID. Any failure, including
// a corrupt row, reads as "no saved game".
func (m *Manager) Load(ctx context.Context, gameID string) (*engine.Snapshot, bool) {
	rec, err := m.backend.LoadSnapshot(ctx, gameID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		m.logger.Warn("saved game unreadable", "game", gameID, "error", err)
		return nil, false
	}
	var snap engine.Snapshot
	if err := json.Unmarshal(rec.State, &snap); err != nil {
		m.logger.Warn("saved game unreadable", "game", gameID, "error", err)
		return nil, false
	}
	return &snap, true
}

// SaveSettings stores s after normalizing it.
func (m *Manager) SaveSettings(ctx context.Context, s Settings) error {
	s.Normalize()
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	if err := m.backend.PutSetting(ctx, settingsKey, data); err != nil {
		m.logger.Error("settings not saved", "error", err)
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// LoadSettings returns the stored settings, or the defaults when none are
// stored or they cannot be read.
func (m *Manager) LoadSettings(ctx context.Context) Settings {
	data, err := m.backend.GetSetting(ctx, settingsKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			m.logger.Warn("settings unreadable, using defaults", "error", err)
		}
		return DefaultSettings()
	}
	s := DefaultSettings()
	if err := json.Unmarshal(data, &s); err != nil {
		m.logger.Warn("settings unreadable, using defaults", "error", err)
		return DefaultSettings()
	}
	s.Normalize()
	return s
}

// StartAutosave saves src's snapshot every interval until ctx is done or
// the returned stop function is called. Unchanged and uninitialized
// snapshots are skipped. stop blocks until the loop has exited and is safe
// to call more than once.
func (m *Manager) StartAutosave(ctx context.Context, interval time.Duration, gameID string, src Source) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var lastVersion int64
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				snap := src.Snapshot()
				if snap.Phase == engine.PhaseInit || snap.Version == lastVersion {
					continue
				}
				if err := m.Save(ctx, gameID, snap.SessionID, snap); err == nil {
					lastVersion = snap.Version
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
