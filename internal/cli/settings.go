package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/diagramlab/internal/persist"
	"github.com/roach88/diagramlab/internal/store"
)

// SettingsOptions holds flags for the settings commands.
type SettingsOptions struct {
	*RootOptions
	Database string
}

// settingsView renders settings as YAML in text mode.
type settingsView struct {
	persist.Settings
}

func (v settingsView) WriteText(w io.Writer) {
	data, err := yaml.Marshal(v.Settings)
	if err != nil {
		fmt.Fprintln(w, v.Settings)
		return
	}
	_, _ = w.Write(data)
}

// NewSettingsCommand creates the settings command group.
func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SettingsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change learner settings",
		Long: `Show or change the learner's accessibility, audio and autosave settings.

Keys: high_contrast, reduced_motion, font_size (small|medium|large),
color_blind_mode (none|protanopia|deuteranopia|tritanopia), audio_enabled,
autosave_enabled.

Examples:
  diagramlab settings get
  diagramlab settings set font_size large
  diagramlab settings set autosave_enabled false`,
	}
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $DIAGRAMLAB_DB)")

	cmd.AddCommand(&cobra.Command{
		Use:           "get",
		Short:         "Show the current settings",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettings(opts, cmd, nil)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "set <key> <value>",
		Short:         "Change one setting",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettings(opts, cmd, args)
		},
	})

	return cmd
}

// runSettings shows the settings, first applying key/value when given.
func runSettings(opts *SettingsOptions, cmd *cobra.Command, kv []string) error {
	ctx := context.Background()
	f := opts.formatter(cmd)

	st, err := store.Open(opts.dbPath(opts.Database))
	if err != nil {
		_ = f.Error(ErrCodeStoreFailed, "cannot open database", err.Error())
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	m := persist.NewManager(st, persist.WithLogger(slog.Default()))
	s := m.LoadSettings(ctx)

	if kv != nil {
		if err := s.Set(kv[0], kv[1]); err != nil {
			_ = f.Error(ErrCodeBadSetting, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid setting", err)
		}
		if err := m.SaveSettings(ctx, s); err != nil {
			_ = f.Error(ErrCodeStoreFailed, "cannot save settings", err.Error())
			return WrapExitError(ExitCommandError, "failed to save settings", err)
		}
	}
	return f.Success(settingsView{s})
}
