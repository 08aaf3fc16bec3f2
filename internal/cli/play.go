package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	gameFlags
	GameID   string
	Sequence bool
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play <blueprint> <script>",
		Short: "Play a blueprint from an action script",
		Long: `Start a new game on a blueprint and apply the actions of a YAML script.

Each step is a learner action (place, remove, identify, submit_sequence, ...),
the session-level undo and redo, a wait for a pending mode transition, or
advance_scene for multi-scene sequences. Rejected actions are reported and
play continues. The final state is saved to the database together with the
game's event log so it can be resumed later.

Example script:
  game_id: heart-demo
  steps:
    - {type: place, label_id: l-heart, zone_id: heart}
    - {type: undo}
    - {wait: 2s}

Examples:
  diagramlab play ./heart.yaml ./script.yaml
  diagramlab play --sequence ./lessons.yaml ./script.yaml --db ./games.db
  diagramlab play ./heart.yaml ./script.yaml --no-save --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, args[0], args[1], cmd)
		},
	}

	opts.gameFlags.register(cmd)
	cmd.Flags().StringVar(&opts.GameID, "game", "", "id to save the game under (default: script game_id, then blueprint id)")
	cmd.Flags().BoolVar(&opts.Sequence, "sequence", false, "treat the blueprint file as a multi-scene sequence")

	return cmd
}

func runPlay(opts *PlayOptions, bpPath, scriptPath string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx, cancel := signalContext(cmd)
	defer cancel()

	script, err := loadScript(f, scriptPath)
	if err != nil {
		return err
	}

	rt, err := openRuntime(opts.RootOptions, &opts.gameFlags, cmd)
	if err != nil {
		_ = f.Error(ErrCodeStoreFailed, "cannot open database", err.Error())
		return err
	}
	defer rt.Close()

	var gameID string
	if opts.Sequence {
		seq, err := loadSequence(f, bpPath)
		if err != nil {
			return err
		}
		if err := rt.session.InitializeSequence(seq); err != nil {
			_ = f.Error(ErrCodeLoadFailed, "cannot start sequence", err.Error())
			return WrapExitError(ExitCommandError, "failed to start game", err)
		}
		gameID = seq.ID
	} else {
		bp, err := loadBlueprint(f, bpPath)
		if err != nil {
			return err
		}
		if err := rt.session.Initialize(bp); err != nil {
			_ = f.Error(ErrCodeLoadFailed, "cannot start game", err.Error())
			return WrapExitError(ExitCommandError, "failed to start game", err)
		}
		gameID = bp.ID
	}
	if script.GameID != "" {
		gameID = script.GameID
	}
	if opts.GameID != "" {
		gameID = opts.GameID
	}
	slog.Info("game started", "game", gameID, "session", rt.session.State().SessionID, "steps", len(script.Steps))

	stop := rt.autosave(ctx, gameID)
	steps, rejected, playErr := rt.play(ctx, script.Steps, 1)
	stop()

	res, err := rt.finish(context.WithoutCancel(ctx), gameID, steps, rejected)
	if err != nil {
		_ = f.Error(ErrCodeStoreFailed, "cannot save game", err.Error())
		return err
	}
	if playErr != nil {
		return WrapExitError(ExitFailure, "play interrupted", playErr)
	}
	if err := f.SuccessFor(res.SessionID, res); err != nil {
		return err
	}
	if opts.Strict && rejected > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d actions rejected", rejected))
	}
	return nil
}
