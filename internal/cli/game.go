package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/diagramlab/internal/engine"
	"github.com/roach88/diagramlab/internal/persist"
	"github.com/roach88/diagramlab/internal/session"
	"github.com/roach88/diagramlab/internal/store"
)

// gameFlags are shared by play and resume.
type gameFlags struct {
	Database string
	Delay    time.Duration
	Strict   bool
	NoSave   bool
}

func (g *gameFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&g.Database, "db", "", "path to SQLite database (default $DIAGRAMLAB_DB)")
	cmd.Flags().DurationVar(&g.Delay, "delay", 0, "mode transition delay (default $DIAGRAMLAB_TRANSITION_DELAY)")
	cmd.Flags().BoolVar(&g.Strict, "strict", false, "fail when any scripted action is rejected")
	cmd.Flags().BoolVar(&g.NoSave, "no-save", false, "do not save the game or its events")
}

// StepResult is the outcome of one scripted step.
type StepResult struct {
	Step       int               `json:"step"`
	Action     engine.ActionType `json:"action,omitempty"`
	IsCorrect  bool              `json:"is_correct"`
	ScoreDelta int               `json:"score_delta"`
	Score      int               `json:"score"`
	Mode       string            `json:"mode"`
	Data       map[string]any    `json:"data,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// GameResult is what play and resume report.
type GameResult struct {
	GameID        string       `json:"game_id"`
	SessionID     string       `json:"session_id"`
	BlueprintID   string       `json:"blueprint_id"`
	Phase         engine.Phase `json:"phase"`
	Mode          string       `json:"mode"`
	Score         int          `json:"score"`
	MaxScore      int          `json:"max_score"`
	TotalScore    *int         `json:"total_score,omitempty"`
	Steps         []StepResult `json:"steps"`
	Rejected      int          `json:"rejected"`
	Saved         bool         `json:"saved"`
	EventsFlushed int          `json:"events_flushed"`
}

// WriteText renders the run for terminals.
func (r GameResult) WriteText(w io.Writer) {
	for _, s := range r.Steps {
		switch {
		case s.Error != "":
			fmt.Fprintf(w, "%3d %-18s rejected: %s\n", s.Step, s.Action, s.Error)
		default:
			mark := " "
			if s.IsCorrect {
				mark = "+"
			}
			fmt.Fprintf(w, "%3d %-18s %s %+d -> %d [%s]\n", s.Step, s.Action, mark, s.ScoreDelta, s.Score, s.Mode)
		}
	}
	fmt.Fprintf(w, "game %s session %s: %s in %s, score %d/%d\n",
		r.GameID, r.SessionID, r.Phase, r.Mode, r.Score, r.MaxScore)
	if r.TotalScore != nil {
		fmt.Fprintf(w, "sequence total: %d\n", *r.TotalScore)
	}
	if r.Saved {
		fmt.Fprintf(w, "saved, %d events recorded\n", r.EventsFlushed)
	}
}

// gameRuntime bundles the collaborators of one CLI game run.
type gameRuntime struct {
	opts    *RootOptions
	store   *store.Store
	manager *persist.Manager
	session *session.Session
}

func openRuntime(opts *RootOptions, flags *gameFlags, cmd *cobra.Command) (*gameRuntime, error) {
	delay := opts.Config.TransitionDelay
	if cmd.Flags().Changed("delay") {
		delay = flags.Delay
	}

	rt := &gameRuntime{opts: opts}
	rt.session = session.New(session.Config{
		HistorySize:      opts.Config.HistorySize,
		EventLogCapacity: opts.Config.EventLogCapacity,
		Logger:           slog.Default(),
		EngineOptions:    []engine.Option{engine.WithTransitionDelay(delay)},
	})

	if flags.NoSave {
		return rt, nil
	}
	path := opts.dbPath(flags.Database)
	slog.Debug("opening database", "path", path)
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	rt.store = st
	rt.manager = persist.NewManager(st, persist.WithLogger(slog.Default()))
	return rt, nil
}

func (rt *gameRuntime) Close() {
	if rt.store == nil {
		return
	}
	if err := rt.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// autosave starts background saves when both the environment and the
// learner's settings allow it.
func (rt *gameRuntime) autosave(ctx context.Context, gameID string) (stop func()) {
	if rt.manager == nil || !rt.opts.Config.Autosave {
		return func() {}
	}
	if !rt.manager.LoadSettings(ctx).AutosaveEnabled {
		slog.Debug("autosave disabled in settings")
		return func() {}
	}
	return rt.manager.StartAutosave(ctx, rt.opts.Config.AutosaveInterval, gameID, rt.session.Engine())
}

// play runs steps in order. Rejected actions are recorded and play goes on.
func (rt *gameRuntime) play(ctx context.Context, steps []Step, first int) ([]StepResult, int, error) {
	results := make([]StepResult, 0, len(steps))
	rejected := 0
	for i, st := range steps {
		if err := ctx.Err(); err != nil {
			return results, rejected, err
		}
		n := first + i
		if st.Wait > 0 {
			slog.Debug("waiting", "step", n, "for", st.Wait)
			select {
			case <-time.After(st.Wait):
			case <-ctx.Done():
				return results, rejected, ctx.Err()
			}
		}
		if st.AdvanceScene {
			ok, err := rt.session.AdvanceScene()
			r := StepResult{Step: n, Action: "advance_scene", IsCorrect: ok}
			if err != nil {
				r.Error = err.Error()
				rejected++
			}
			results = append(results, rt.stamp(r))
			continue
		}
		if st.Type == "" {
			continue
		}

		res, err := rt.session.Apply(st.Action)
		r := StepResult{Step: n, Action: st.Type}
		if err != nil {
			r.Error = err.Error()
			rejected++
		} else if res != nil {
			r.IsCorrect = res.IsCorrect
			r.ScoreDelta = res.ScoreDelta
			r.Data = res.Data
		}
		results = append(results, rt.stamp(r))
	}
	return results, rejected, nil
}

func (rt *gameRuntime) stamp(r StepResult) StepResult {
	s := rt.session.State()
	r.Score = s.Score
	r.Mode = string(s.MultiMode.CurrentMode)
	return r
}

// finish saves the game and flushes its events, then builds the result.
func (rt *gameRuntime) finish(ctx context.Context, gameID string, steps []StepResult, rejected int) (GameResult, error) {
	s := rt.session.State()
	res := GameResult{
		GameID:      gameID,
		SessionID:   s.SessionID,
		BlueprintID: s.BlueprintID,
		Phase:       s.Phase,
		Mode:        string(s.MultiMode.CurrentMode),
		Score:       s.Score,
		MaxScore:    s.MaxScore,
		Steps:       steps,
		Rejected:    rejected,
	}
	if s.MultiScene != nil {
		total := s.MultiScene.TotalScore
		res.TotalScore = &total
	}
	if rt.manager == nil {
		return res, nil
	}

	if err := rt.manager.Save(ctx, gameID, s.SessionID, rt.session.Engine().Snapshot()); err != nil {
		return res, WrapExitError(ExitCommandError, "failed to save game", err)
	}
	n, err := rt.session.Flush(ctx, rt.store)
	if err != nil {
		return res, WrapExitError(ExitCommandError, "failed to record events", err)
	}
	res.Saved = true
	res.EventsFlushed = n
	return res, nil
}

// signalContext is cancelled on SIGINT/SIGTERM or when the parent is done.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
