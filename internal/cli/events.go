package cli

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/tOgg1/inapp/internal/db"
	"github.com/tOgg1/inapp/internal/models"
)

type eventsOutput struct {
	Events     []*models.Event `json:"events"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func newEventsCmd(opts *rootOptions) *cobra.Command {
	var (
		eventType string
		entityID  string
		since     time.Duration
		cursor    string
		limit     int
	)

	cmd := &cobra.Command{
		Use:     "events",
		Aliases: []string{"log"},
		Short:   "List recorded analytics events",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			query := db.EventQuery{Cursor: cursor, Limit: limit}
			if eventType != "" {
				t := models.EventType(eventType)
				query.Type = &t
			}
			if entityID != "" {
				query.EntityID = &entityID
			}
			if since > 0 {
				from := nowFunc().Add(-since)
				query.Since = &from
			}

			page, err := a.eventRepo.Query(cmd.Context(), query)
			if err != nil {
				return err
			}
			out := eventsOutput{Events: page.Events, NextCursor: page.NextCursor}
			if out.Events == nil {
				out.Events = []*models.Event{}
			}

			return opts.writeOutput(cmd.OutOrStdout(), out, func(w io.Writer) error {
				if len(out.Events) == 0 {
					_, err := fmt.Fprintln(w, "No events.")
					return err
				}
				if err := writeEventTable(w, out.Events); err != nil {
					return err
				}
				if out.NextCursor != "" {
					_, err := fmt.Fprintf(w, "\nMore: --cursor %s\n", out.NextCursor)
					return err
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&eventType, "type", "", "filter by event type (e.g. inapp.shown)")
	cmd.Flags().StringVar(&entityID, "entity", "", "filter by entity id")
	cmd.Flags().DurationVar(&since, "since", 0, "only events newer than this duration")
	cmd.Flags().StringVar(&cursor, "cursor", "", "continue after this event id")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum events to list")

	cmd.AddCommand(newEventsStatsCmd(opts), newEventsPruneCmd(opts))
	return cmd
}

type eventCount struct {
	Type  models.EventType `json:"type"`
	Count int64            `json:"count"`
}

func newEventsStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count recorded events by type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			counts, err := a.eventRepo.CountByType(cmd.Context())
			if err != nil {
				return err
			}
			out := make([]eventCount, 0, len(counts))
			for t, n := range counts {
				out = append(out, eventCount{Type: t, Count: n})
			}
			sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })

			return opts.writeOutput(cmd.OutOrStdout(), out, func(w io.Writer) error {
				return writeEventCounts(w, out)
			})
		},
	}
}

func newEventsPruneCmd(opts *rootOptions) *cobra.Command {
	var (
		maxAge   time.Duration
		maxCount int
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete events beyond the retention limits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if !cmd.Flags().Changed("max-age") {
				maxAge = a.cfg.Tracking.MaxAge
			}
			if !cmd.Flags().Changed("max-count") {
				maxCount = a.cfg.Tracking.MaxCount
			}
			deleted, err := a.eventRepo.Prune(cmd.Context(), nowFunc(), maxAge, maxCount)
			if err != nil {
				return err
			}
			return opts.writeOutput(cmd.OutOrStdout(), map[string]int64{"deleted": deleted}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Deleted %d event(s)\n", deleted)
				return err
			})
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "delete events older than this (default tracking.max_age)")
	cmd.Flags().IntVar(&maxCount, "max-count", 0, "keep at most this many events (default tracking.max_count)")
	return cmd
}
