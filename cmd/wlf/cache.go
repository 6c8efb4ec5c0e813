package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage compiled templates",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every compiled template",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := a.store().Clear(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", a.cfg.Cache.Dir)
				return nil
			},
		},
		&cobra.Command{
			Use:   "prune",
			Short: "Remove expired compiled templates",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := a.store().Prune(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "pruned %s\n", a.cfg.Cache.Dir)
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <template>...",
			Short: "Remove the compiled form of templates",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				e := a.engine(nil)
				for _, id := range args {
					if err := e.Invalidate(id); err != nil {
						return err
					}
				}
				return nil
			},
		},
	)
	return cmd
}
