package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tOgg1/inapp/internal/inapp"
	"github.com/tOgg1/inapp/internal/logging"
	"github.com/tOgg1/inapp/internal/models"
	"github.com/tOgg1/inapp/internal/tui"
)

func hasTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func newBrowseCmd(opts *rootOptions) *cobra.Command {
	var noSync bool

	cmd := &cobra.Command{
		Use:     "browse",
		Aliases: []string{"ui"},
		Short:   "Browse the inbox in the terminal",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !hasTTY() {
				return Exitf(ExitUsage, "browse requires an interactive terminal; use `inapp inbox list` instead")
			}
			ctx := cmd.Context()

			a, err := openApp(ctx, opts, inapp.WithProcessAfterSync(false))
			if err != nil {
				return err
			}
			defer a.Close()

			if a.hasFetcher && !noSync {
				if _, err := a.manager.Sync(ctx); err != nil && !errors.Is(err, inapp.ErrNoFetcher) {
					logging.Warn().Err(err).Msg("sync before browse failed; showing stored messages")
				}
			}

			return tui.Run(ctx, tui.Config{
				Inbox:    a.manager,
				Sessions: a.sessions,
				OnSessionEnd: func(info *models.SessionInfo) {
					a.saveSession(context.WithoutCancel(ctx), info)
				},
			})
		},
	}

	cmd.Flags().BoolVar(&noSync, "no-sync", false, "do not sync before opening the inbox")
	return cmd
}
