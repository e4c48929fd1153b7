package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tOgg1/inapp/internal/models"
)

func newInboxCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "inbox",
		Aliases: []string{"messages"},
		Short:   "Inspect the local inbox",
	}
	cmd.AddCommand(
		newInboxListCmd(opts),
		newInboxCountCmd(opts),
		newInboxShowCmd(opts),
	)
	return cmd
}

func newInboxListCmd(opts *rootOptions) *cobra.Command {
	var unreadOnly, all bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List inbox messages, pinned first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			var messages []*models.Message
			if all {
				messages = a.manager.Messages()
			} else {
				messages = a.manager.InboxMessages()
			}
			if unreadOnly {
				filtered := messages[:0]
				for _, m := range messages {
					if !m.Read {
						filtered = append(filtered, m)
					}
				}
				messages = filtered
			}
			if messages == nil {
				messages = []*models.Message{}
			}

			return opts.writeOutput(cmd.OutOrStdout(), messages, func(w io.Writer) error {
				if len(messages) == 0 {
					_, err := fmt.Fprintln(w, "No messages.")
					return err
				}
				return writeMessageTable(w, messages)
			})
		},
	}

	cmd.Flags().BoolVar(&unreadOnly, "unread", false, "only unread messages")
	cmd.Flags().BoolVar(&all, "all", false, "include messages not saved to the inbox and expired ones")
	return cmd
}

type countOutput struct {
	Total  int `json:"total"`
	Unread int `json:"unread"`
}

func newInboxCountCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the inbox size and unread count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			total, unread := a.manager.InboxCounts()
			out := countOutput{Total: total, Unread: unread}
			return opts.writeOutput(cmd.OutOrStdout(), out, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%d messages, %d unread\n", out.Total, out.Unread)
				return err
			})
		},
	}
}

func newInboxShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <message-id>",
		Short: "Show one message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			m, ok := a.manager.Message(args[0])
			if !ok {
				return Exitf(ExitEmpty, "message %q not found", args[0])
			}
			return opts.writeOutput(cmd.OutOrStdout(), m, func(w io.Writer) error {
				if err := writeMessageDetail(w, m); err != nil {
					return err
				}
				if len(m.Content) > 0 {
					_, err := fmt.Fprintf(w, "\n%s\n", m.Content)
					return err
				}
				return nil
			})
		},
	}
}
