package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// ResumeOptions holds flags for the resume command.
type ResumeOptions struct {
	*RootOptions
	gameFlags
	GameID string
	Script string
}

// NewResumeCommand creates the resume command.
func NewResumeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResumeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resume <blueprint>",
		Short: "Resume a saved game",
		Long: `Restore the latest saved state of a game and optionally continue it
with another action script.

The blueprint must be the one the game was started on. A transition that
was pending when the game was saved is scheduled again.

Examples:
  diagramlab resume ./heart.yaml --game heart-demo
  diagramlab resume ./heart.yaml --game heart-demo --script more.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResume(opts, args[0], cmd)
		},
	}

	opts.gameFlags.register(cmd)
	cmd.Flags().StringVar(&opts.GameID, "game", "", "id of the saved game (required)")
	_ = cmd.MarkFlagRequired("game")
	cmd.Flags().StringVar(&opts.Script, "script", "", "action script to continue with")

	return cmd
}

func runResume(opts *ResumeOptions, bpPath string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx, cancel := signalContext(cmd)
	defer cancel()

	if opts.NoSave {
		_ = f.Error(ErrCodeGeneric, "resume needs the database", nil)
		return NewExitError(ExitCommandError, "--no-save cannot be used with resume")
	}

	bp, err := loadBlueprint(f, bpPath)
	if err != nil {
		return err
	}
	var script *Script
	if opts.Script != "" {
		if script, err = loadScript(f, opts.Script); err != nil {
			return err
		}
	}

	rt, err := openRuntime(opts.RootOptions, &opts.gameFlags, cmd)
	if err != nil {
		_ = f.Error(ErrCodeStoreFailed, "cannot open database", err.Error())
		return err
	}
	defer rt.Close()

	snap, ok := rt.manager.Load(ctx, opts.GameID)
	if !ok {
		_ = f.Error(ErrCodeNoSavedGame, fmt.Sprintf("no saved game %q", opts.GameID), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("no saved game %q", opts.GameID))
	}
	if err := rt.session.Restore(bp, *snap); err != nil {
		_ = f.Error(ErrCodeRestoreError, "saved game does not fit blueprint", err.Error())
		return WrapExitError(ExitFailure, "failed to restore game", err)
	}
	last, err := rt.store.LastEventSeq(ctx, snap.SessionID)
	if err != nil {
		_ = f.Error(ErrCodeStoreFailed, "cannot read event log", err.Error())
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}
	rt.session.Log().Resume(snap.SessionID, last)
	slog.Info("game resumed", "game", opts.GameID, "session", snap.SessionID, "score", snap.Score)

	var steps []StepResult
	rejected := 0
	var playErr error
	if script != nil {
		stop := rt.autosave(ctx, opts.GameID)
		steps, rejected, playErr = rt.play(ctx, script.Steps, 1)
		stop()
	}
	if steps == nil {
		steps = []StepResult{}
	}

	res, err := rt.finish(context.WithoutCancel(ctx), opts.GameID, steps, rejected)
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
