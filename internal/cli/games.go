package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/diagramlab/internal/store"
)

// GamesOptions holds flags for the games commands.
type GamesOptions struct {
	*RootOptions
	Database string
	GameID   string
}

// SavedGame is one stored snapshot, without its state.
type SavedGame struct {
	GameID    string    `json:"game_id"`
	SessionID string    `json:"session_id"`
	Version   int64     `json:"version"`
	Checksum  string    `json:"checksum"`
	SavedAt   time.Time `json:"saved_at"`
}

// GamesResult lists saved games, newest first.
type GamesResult struct {
	Games []SavedGame `json:"games"`
}

func (r GamesResult) WriteText(w io.Writer) {
	if len(r.Games) == 0 {
		fmt.Fprintln(w, "No saved games")
		return
	}
	for _, g := range r.Games {
		fmt.Fprintf(w, "%-20s session %s  v%d  saved %s\n",
			g.GameID, g.SessionID, g.Version, g.SavedAt.Format(time.RFC3339))
	}
}

// DeletedGames reports the snapshots removed for a game.
type DeletedGames struct {
	GameID  string `json:"game_id"`
	Deleted int    `json:"deleted"`
}

func (r DeletedGames) WriteText(w io.Writer) {
	fmt.Fprintf(w, "deleted %d saved session(s) of %s\n", r.Deleted, r.GameID)
}

// NewGamesCommand creates the games command group.
func NewGamesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GamesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "games",
		Short: "List or delete saved games",
		Long: `List the games saved in the database or delete every saved session of
one game.

Examples:
  diagramlab games list
  diagramlab games delete --game heart-demo`,
	}
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $DIAGRAMLAB_DB)")

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List saved games",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGamesList(opts, cmd)
		},
	})

	del := &cobra.Command{
		Use:           "delete",
		Short:         "Delete the saved sessions of a game",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGamesDelete(opts, cmd)
		},
	}
	del.Flags().StringVar(&opts.GameID, "game", "", "game id (required)")
	_ = del.MarkFlagRequired("game")
	cmd.AddCommand(del)

	return cmd
}

func openGames(opts *GamesOptions, f *OutputFormatter) (*store.Store, []store.SnapshotRecord, error) {
	st, err := store.Open(opts.dbPath(opts.Database))
	if err != nil {
		_ = f.Error(ErrCodeStoreFailed, "cannot open database", err.Error())
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	recs, err := st.ListSnapshots(context.Background())
	if err != nil {
		st.Close()
		_ = f.Error(ErrCodeStoreFailed, "cannot list saved games", err.Error())
		return nil, nil, WrapExitError(ExitCommandError, "failed to list saved games", err)
	}
	return st, recs, nil
}

func runGamesList(opts *GamesOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	st, recs, err := openGames(opts, f)
	if err != nil {
		return err
	}
	defer st.Close()

	res := GamesResult{Games: make([]SavedGame, 0, len(recs))}
	for _, r := range recs {
		res.Games = append(res.Games, SavedGame{
			GameID:    r.GameID,
			SessionID: r.SessionID,
			Version:   r.Version,
			Checksum:  r.Checksum,
			SavedAt:   r.SavedAt,
		})
	}
	return f.Success(res)
}

func runGamesDelete(opts *GamesOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	st, recs, err := openGames(opts, f)
	if err != nil {
		return err
	}
	defer st.Close()

	n := 0
	for _, r := range recs {
		if r.GameID == opts.GameID {
			n++
		}
	}
	if n == 0 {
		_ = f.Error(ErrCodeNoSavedGame, fmt.Sprintf("no saved game %q", opts.GameID), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("no saved game %q", opts.GameID))
	}
	if err := st.DeleteSnapshots(context.Background(), opts.GameID); err != nil {
		_ = f.Error(ErrCodeStoreFailed, "cannot delete saved game", err.Error())
		return WrapExitError(ExitCommandError, "failed to delete saved game", err)
	}
	return f.Success(DeletedGames{GameID: opts.GameID, Deleted: n})
}
