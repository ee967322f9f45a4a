package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loykin/bridges/pkg/status"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last batch, pending migrations and, with --verbose, every migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		info, err := status.FromRunner(cmd.Context(), s.runner)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprint(cmd.OutOrStdout(), info.FormatHuman(viper.GetBool("verbose")))
		return nil
	},
}
