package cli

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/tOgg1/inapp/internal/inapp"
	"github.com/tOgg1/inapp/internal/models"
)

type nextOutput struct {
	Result        string          `json:"result"`
	Message       *models.Message `json:"message,omitempty"`
	Skipped       []string        `json:"skipped"`
	DelegateCalls int             `json:"delegate_calls"`
	ReadyAt       *time.Time      `json:"ready_at,omitempty"`
}

func newNextCmd(opts *rootOptions) *cobra.Command {
	var skip, later []string

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Pick the next message to show",
		Long: `Run one selection pass over the stored messages.

Candidates are visited in priority order. --skip marks messages as handled
without showing them; --later passes over them for this run only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			delegate := inapp.DelegateFunc(func(m *models.Message) inapp.Decision {
				switch {
				case slices.Contains(skip, m.ID):
					return inapp.DecisionSkip
				case slices.Contains(later, m.ID):
					return inapp.DecisionNext
				default:
					return inapp.DecisionShow
				}
			})

			a, err := openApp(cmd.Context(), opts, inapp.WithDelegate(delegate))
			if err != nil {
				return err
			}
			defer a.Close()

			result := a.manager.ProcessMessages(cmd.Context())
			out := nextOutput{
				Result:        result.Kind.String(),
				Message:       result.Message,
				Skipped:       make([]string, 0, len(result.Skipped)),
				DelegateCalls: result.DelegateCalls,
			}
			for _, m := range result.Skipped {
				out.Skipped = append(out.Skipped, m.ID)
			}
			if result.Kind == inapp.ResultWait {
				if at := a.checker.ReadyAt(); !at.IsZero() {
					out.ReadyAt = &at
				}
			}

			return opts.writeOutput(cmd.OutOrStdout(), out, func(w io.Writer) error {
				for _, id := range out.Skipped {
					fmt.Fprintf(w, "Skipped: %s\n", id)
				}
				switch result.Kind {
				case inapp.ResultShow:
					title := result.Message.Title()
					if title == "" {
						title = result.Message.ID
					}
					_, err := fmt.Fprintf(w, "Show: %s (%s)\n", result.Message.ID, title)
					return err
				case inapp.ResultWait:
					_, err := fmt.Fprintf(w, "Wait: %s is ready; next display allowed at %s\n",
						result.Message.ID, formatTime(out.ReadyAt))
					return err
				default:
					_, err := fmt.Fprintln(w, "No message to show.")
					return err
				}
			})
		},
	}

	cmd.Flags().StringSliceVar(&skip, "skip", nil, "message ids to skip permanently")
	cmd.Flags().StringSliceVar(&later, "later", nil, "message ids to pass over for this run")
	return cmd
}
