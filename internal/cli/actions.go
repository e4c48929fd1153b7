package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tOgg1/inapp/internal/inapp"
	"github.com/tOgg1/inapp/internal/models"
)

func newReadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "read <message-id>...",
		Short: "Mark messages read",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, id := range args {
				if err := a.manager.MarkRead(cmd.Context(), id); err != nil {
					return messageError(id, err)
				}
			}
			if opts.format() == formatTable {
				fmt.Fprintf(cmd.OutOrStdout(), "Marked %d message(s) read\n", len(args))
			}
			return nil
		},
	}
}

func newRemoveCmd(opts *rootOptions) *cobra.Command {
	var location string

	cmd := &cobra.Command{
		Use:     "remove <message-id>...",
		Aliases: []string{"rm", "delete"},
		Short:   "Remove messages from this client",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := parseLocation(location)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, id := range args {
				if err := a.manager.Remove(cmd.Context(), id, loc); err != nil {
					return messageError(id, err)
				}
			}
			if opts.format() == formatTable {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d message(s)\n", len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&location, "location", string(models.LocationInbox), "where the message was removed from (inbox, in-app)")
	return cmd
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every locally stored message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return Exitf(ExitUsage, "reset deletes all local messages; pass --yes to confirm")
			}
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			a.manager.Reset(cmd.Context())
			if opts.format() == formatTable {
				fmt.Fprintln(cmd.OutOrStdout(), "Inbox cleared")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func parseLocation(value string) (models.Location, error) {
	switch models.Location(value) {
	case models.LocationInbox, models.LocationInApp:
		return models.Location(value), nil
	default:
		return "", Exitf(ExitUsage, "invalid location %q (want inbox or in-app)", value)
	}
}

func messageError(id string, err error) error {
	if errors.Is(err, inapp.ErrMessageNotFound) {
		return Exitf(ExitEmpty, "message %q not found", id)
	}
	return err
}
