package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loykin/bridges/pkg/migration"
)

var revertCmd = &cobra.Command{
	Use:   "revert",
	Short: "Revert the last batch, or every batch with --all",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		var reports []migration.Report
		if viper.GetBool("all") {
			reports, err = s.runner.RevertAll(cmd.Context())
		} else {
			var rep migration.Report
			rep, err = s.runner.RevertLast(cmd.Context())
			if !rep.Empty() {
				reports = append(reports, rep)
			}
		}
		// batches reverted before a failure are still reported
		out := cmd.OutOrStdout()
		for _, rep := range reports {
			for _, name := range rep.Names {
				_, _ = fmt.Fprintf(out, "reverted %s (batch %d)\n", name, rep.Batch)
			}
		}
		if err != nil {
			return err
		}
		if len(reports) == 0 {
			_, _ = fmt.Fprintln(out, "nothing to revert")
		}
		return nil
	},
}
