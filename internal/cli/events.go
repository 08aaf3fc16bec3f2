package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/diagramlab/internal/eventlog"
	"github.com/roach88/diagramlab/internal/store"
)

// EventsOptions holds flags for the events command.
type EventsOptions struct {
	*RootOptions
	Database  string
	SessionID string
	Kind      string
}

// EventsResult is the recorded event log of one session.
type EventsResult struct {
	SessionID string                `json:"session_id"`
	Events    []eventlog.Event      `json:"events"`
	ByKind    map[eventlog.Kind]int `json:"by_kind"`
	Summary   eventlog.Summary      `json:"summary"`
}

// WriteText renders one event per line.
func (r EventsResult) WriteText(w io.Writer) {
	if len(r.Events) == 0 {
		fmt.Fprintf(w, "No events found for session: %s\n", r.SessionID)
		return
	}
	for _, ev := range r.Events {
		payload := ""
		if len(ev.Payload) > 0 {
			data, _ := json.Marshal(ev.Payload)
			payload = string(data)
		}
		fmt.Fprintf(w, "%4d %s %-20s %s\n", ev.Seq, ev.Timestamp.Format("15:04:05.000"), ev.Kind, payload)
	}

	kinds := make([]string, 0, len(r.ByKind))
	for k := range r.ByKind {
		kinds = append(kinds, string(k))
	}
	slices.Sort(kinds)
	fmt.Fprintf(w, "%d events:", len(r.Events))
	for _, k := range kinds {
		fmt.Fprintf(w, " %s=%d", k, r.ByKind[eventlog.Kind(k)])
	}
	fmt.Fprintln(w)

	sum := r.Summary
	fmt.Fprintf(w, "span %s", sum.Span.Round(time.Millisecond))
	if sum.TimeToComplete > 0 {
		fmt.Fprintf(w, ", completed after %s", sum.TimeToComplete.Round(time.Millisecond))
	}
	modes := make([]string, 0, len(sum.ModeDurations))
	for m := range sum.ModeDurations {
		modes = append(modes, m)
	}
	slices.Sort(modes)
	for _, m := range modes {
		fmt.Fprintf(w, ", %s %s", m, sum.ModeDurations[m].Round(time.Millisecond))
	}
	fmt.Fprintln(w)
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the recorded events of a session",
		Long: `Show the event log recorded for a game session: placements, removals,
hints, undo and redo, mode transitions, revealed zones and rejected actions.

Examples:
  diagramlab events --session 0190f1c2-...
  diagramlab events --session 0190f1c2-... --kind mode_transition --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $DIAGRAMLAB_DB)")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "session id (required)")
	_ = cmd.MarkFlagRequired("session")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only show events of this kind")

	return cmd
}

func runEvents(opts *EventsOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	f := opts.formatter(cmd)

	st, err := store.Open(opts.dbPath(opts.Database))
	if err != nil {
		_ = f.Error(ErrCodeStoreFailed, "cannot open database", err.Error())
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	events, err := st.ReadEvents(ctx, opts.SessionID)
	if err != nil {
		_ = f.Error(ErrCodeStoreFailed, "cannot read events", err.Error())
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}
	counts, err := st.CountEventsByKind(ctx, opts.SessionID)
	if err != nil {
		_ = f.Error(ErrCodeStoreFailed, "cannot read events", err.Error())
		return WrapExitError(ExitCommandError, "failed to count events", err)
	}

	// Durations cover the whole session, not just the filtered kind.
	summary := eventlog.Summarize(opts.SessionID, events)
	if opts.Kind != "" {
		events = slices.DeleteFunc(events, func(ev eventlog.Event) bool {
			return ev.Kind != eventlog.Kind(opts.Kind)
		})
	}
	return f.SuccessFor(opts.SessionID, EventsResult{
		SessionID: opts.SessionID,
		Events:    events,
		ByKind:    counts,
		Summary:   summary,
	})
}
