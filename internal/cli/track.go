package cli

import (
	"github.com/spf13/cobra"

	"github.com/tOgg1/inapp/internal/models"
)

func newTrackCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Record message interactions",
	}

	var location string
	cmd.PersistentFlags().StringVar(&location, "location", string(models.LocationInApp), "where the message was presented (inbox, in-app)")

	open := &cobra.Command{
		Use:   "open <message-id>",
		Short: "Record that a message was opened",
		Args:  cobra.ExactArgs(1),
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
			return messageError(args[0], a.manager.TrackOpen(cmd.Context(), args[0], loc))
		},
	}

	var clickURL string
	click := &cobra.Command{
		Use:   "click <message-id>",
		Short: "Record a link click inside a message",
		Args:  cobra.ExactArgs(1),
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
			return messageError(args[0], a.manager.TrackClick(cmd.Context(), args[0], clickURL, loc))
		},
	}
	click.Flags().StringVar(&clickURL, "url", "", "clicked URL")
	_ = click.MarkFlagRequired("url")

	var source, closeURL string
	closeCmd := &cobra.Command{
		Use:   "close <message-id>",
		Short: "Record that a message was dismissed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := parseLocation(location)
			if err != nil {
				return err
			}
			src := models.CloseSource(source)
			switch src {
			case models.CloseSourceBack, models.CloseSourceLink, models.CloseSourceUnknown:
			default:
				return Exitf(ExitUsage, "invalid close source %q (want back, link or unknown)", source)
			}
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()
			return messageError(args[0], a.manager.TrackClose(cmd.Context(), args[0], src, closeURL, loc))
		},
	}
	closeCmd.Flags().StringVar(&source, "source", string(models.CloseSourceBack), "how the message was closed (back, link, unknown)")
	closeCmd.Flags().StringVar(&closeURL, "url", "", "link that closed the message")

	cmd.AddCommand(open, click, closeCmd)
	return cmd
}
