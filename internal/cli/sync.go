package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tOgg1/inapp/internal/inapp"
	"github.com/tOgg1/inapp/internal/models"
)

type syncOutput struct {
	Delivered    []string `json:"delivered"`
	Added        int      `json:"added_inbox"`
	Removed      int      `json:"removed_inbox"`
	Overwritten  int      `json:"overwritten"`
	InboxChanged bool     `json:"inbox_changed"`
	Total        int      `json:"total"`
	Shown        string   `json:"shown,omitempty"`
}

func newSyncCmd(opts *rootOptions) *cobra.Command {
	var process bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch the server message set and merge it into the inbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var shown *models.Message
			extra := []inapp.Option{
				inapp.WithShowHandler(func(m *models.Message) { shown = m }),
			}
			if cmd.Flags().Changed("process") {
				extra = append(extra, inapp.WithProcessAfterSync(process))
			}

			a, err := openApp(ctx, opts, extra...)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.hasFetcher {
				return Exitf(ExitUsage, "no message source: set --payload, --endpoint or fetch.payload_path")
			}

			result, err := a.manager.Sync(ctx)
			if err != nil {
				return err
			}
			if err := a.prune(ctx); err != nil {
				return err
			}

			out := syncOutput{
				Delivered:    make([]string, 0, len(result.Delivered)),
				Added:        result.AddedInboxCount,
				Removed:      result.RemovedInboxCount,
				Overwritten:  result.Overwritten,
				InboxChanged: result.InboxChanged,
				Total:        result.Store.Len(),
			}
			for _, m := range result.Delivered {
				out.Delivered = append(out.Delivered, m.ID)
			}
			if shown != nil {
				out.Shown = shown.ID
			}

			return opts.writeOutput(cmd.OutOrStdout(), out, func(w io.Writer) error {
				fmt.Fprintf(w, "Synced %d messages: %d delivered, %d added to inbox, %d removed, %d overwritten\n",
					out.Total, len(out.Delivered), out.Added, out.Removed, out.Overwritten)
				if out.Shown != "" {
					fmt.Fprintf(w, "Show: %s\n", out.Shown)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&process, "process", false, "run a selection pass after merging (default from sync.process_after_sync)")
	return cmd
}
