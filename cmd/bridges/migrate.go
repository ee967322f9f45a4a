package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply every pending migration as one batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		rep, err := s.runner.Migrate(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if rep.Empty() {
			_, _ = fmt.Fprintln(out, "nothing to migrate")
			return nil
		}
		for _, name := range rep.Names {
			_, _ = fmt.Fprintf(out, "applied %s (batch %d)\n", name, rep.Batch)
		}
		return nil
	},
}
