package main

import (
	"fmt"

	"github.com/rflorenc/deploy-ledger/internal/config"
	"github.com/spf13/cobra"
)

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <source-server> <datasource>",
		Short: "Translate a source datasource name using the configured DBMS maps",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			registry, err := cfg.Registry()
			if err != nil {
				return err
			}
			target, ok := registry.Resolve(args[0], args[1])
			if !ok {
				return fmt.Errorf("no mapping for %s on %s", args[1], args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), target)
			return nil
		},
	}
}
