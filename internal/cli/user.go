package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tOgg1/inapp/internal/config"
)

func newUserCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Show or change the user messages are fetched for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := config.NewContextStore(opts.cfg.ContextPath())
			ctx, err := store.Load()
			if err != nil {
				return err
			}
			return opts.writeOutput(cmd.OutOrStdout(), ctx, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, ctx.String())
				return err
			})
		},
	}

	var email, userID string
	set := &cobra.Command{
		Use:   "set",
		Short: "Select the user by email or user id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.TrimSpace(email)
			userID = strings.TrimSpace(userID)
			if email == "" && userID == "" {
				return Exitf(ExitUsage, "pass --email or --user-id")
			}

			store := config.NewContextStore(opts.cfg.ContextPath())
			ctx, err := store.Load()
			if err != nil {
				return err
			}
			if email != "" {
				ctx.SetEmail(email)
			} else {
				ctx.SetUserID(userID)
			}
			if err := store.Save(ctx); err != nil {
				return err
			}
			if opts.format() == formatTable {
				fmt.Fprintf(cmd.OutOrStdout(), "User set to %s\n", ctx)
			}
			return nil
		},
	}
	set.Flags().StringVar(&email, "email", "", "user email")
	set.Flags().StringVar(&userID, "user-id", "", "user id")
	set.MarkFlagsMutuallyExclusive("email", "user-id")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget the selected user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.NewContextStore(opts.cfg.ContextPath()).Clear(); err != nil {
				return err
			}
			if opts.format() == formatTable {
				fmt.Fprintln(cmd.OutOrStdout(), "User cleared")
			}
			return nil
		},
	}

	cmd.AddCommand(set, clearCmd)
	return cmd
}
