package cmd

import (
	"fmt"

	"github.com/example/seat-scheduler/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	cmd.AddCommand(newConfigInitCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		path  string
		force bool
	)
	c := &cobra.Command{
		Use:   "init",
		Short: "Write a config.toml holding the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteTemplate(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s; fill in USERNAME and PASSWORD\n", path)
			return nil
		},
	}
	c.Flags().StringVar(&path, "path", config.DefaultTemplatePath, "where to write the file")
	c.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return c
}
