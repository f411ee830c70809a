package cli

import (
	"github.com/spf13/cobra"

	"github.com/dcrew44/llm-social-network/internal/domain"
	"github.com/dcrew44/llm-social-network/internal/store"
)

// NewEventsCommand implements `events [--limit N] [--event-type T]`
// (§6.2): a read-only dump of the event log, optionally filtered by kind
// and capped at limit rows.
func NewEventsCommand(opts *RootOptions) *cobra.Command {
	var (
		limit     int
		eventType string
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "list events from the log",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(opts, cmd)
			s, err := store.Open(opts.DBPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "open database", err)
			}
			defer s.Close()

			events, err := s.Scan(cmd.Context(), 0)
			if err != nil {
				return WrapExitError(ExitFailure, "events", err)
			}

			filtered := make([]domain.Event, 0, len(events))
			for _, ev := range events {
				if eventType != "" && string(ev.Kind) != eventType {
					continue
				}
				filtered = append(filtered, ev)
				if limit > 0 && len(filtered) >= limit {
					break
				}
			}
			return f.Success(filtered)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of events to show (0 = all)")
	cmd.Flags().StringVar(&eventType, "event-type", "", "filter to a single event kind")
	return cmd
}
