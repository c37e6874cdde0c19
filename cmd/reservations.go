package cmd

import (
	"fmt"

	"github.com/example/seat-scheduler/internal/interfaces/render"
	"github.com/spf13/cobra"
)

func newListCmd(root *rootOptions) *cobra.Command {
	var output string
	c := &cobra.Command{
		Use:   "list",
		Short: "Show active reservations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := render.ParseFormat(output)
			if err != nil {
				return err
			}
			a, err := wireApp(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if err := a.login(ctx); err != nil {
				return err
			}
			records, err := a.client.ListActive(ctx)
			if err != nil {
				return err
			}
			return render.Reservations(cmd.OutOrStdout(), records, f)
		},
	}
	c.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json or yaml")
	return c
}

func newCancelCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel one reservation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := wireApp(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if err := a.login(ctx); err != nil {
				return err
			}
			if err := a.client.Cancel(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cancelled reservation %s\n", args[0])
			return nil
		},
	}
}

func newCancelAllCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel-all",
		Short: "Cancel every active reservation, stopping at the first failure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := wireApp(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if err := a.login(ctx); err != nil {
				return err
			}
			n, err := a.client.CancelAll(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "cancelled %d reservation(s)\n", n)
			return err
		},
	}
}

func newProfileCmd(root *rootOptions) *cobra.Command {
	var output string
	c := &cobra.Command{
		Use:   "profile",
		Short: "Show the account profile and break status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := render.ParseFormat(output)
			if err != nil {
				return err
			}
			a, err := wireApp(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if err := a.login(ctx); err != nil {
				return err
			}
			p, err := a.client.Profile(ctx)
			if err != nil {
				return err
			}
			return render.Profile(cmd.OutOrStdout(), p.ID, p.Attributes, f)
		},
	}
	c.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json or yaml")
	return c
}
