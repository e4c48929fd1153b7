package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tOgg1/inapp/internal/db"
	"github.com/tOgg1/inapp/internal/models"
)

func newSessionsCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "sessions [session-id]",
		Aliases: []string{"session"},
		Short:   "List inbox viewing sessions or show one",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 1 {
				info, err := a.sessionRepo.Get(cmd.Context(), args[0])
				if errors.Is(err, db.ErrSessionNotFound) {
					return Exitf(ExitEmpty, "session %q not found", args[0])
				}
				if err != nil {
					return err
				}
				return opts.writeOutput(cmd.OutOrStdout(), info, func(w io.Writer) error {
					return writeSessionDetail(w, info)
				})
			}

			sessions, err := a.sessionRepo.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if sessions == nil {
				sessions = []*models.SessionInfo{}
			}
			return opts.writeOutput(cmd.OutOrStdout(), sessions, func(w io.Writer) error {
				if len(sessions) == 0 {
					_, err := fmt.Fprintln(w, "No sessions.")
					return err
				}
				return writeSessionTable(w, sessions)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum sessions to list")
	return cmd
}

func writeSessionDetail(w io.Writer, info *models.SessionInfo) error {
	fmt.Fprintf(w, "Session %s\n", info.Start.ID)
	fmt.Fprintf(w, "Started %s, ended %s\n",
		info.Start.StartTime.Local().Format("2006-01-02 15:04:05"),
		info.EndTime.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "%d messages, %d unread at start\n\n", info.Start.TotalMessageCount, info.Start.UnreadMessageCount)
	return writeImpressionTable(w, info.Impressions)
}
