package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loykin/bridges/internal/common"
	"github.com/loykin/bridges/internal/constants"
)

var rootCmd = &cobra.Command{
	Use:           "bridges",
	Short:         "Apply and revert SQL migrations in batches",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Defaults
	v := viper.GetViper()
	v.SetDefault("config", constants.DefaultConfigPath)
	v.SetDefault("dir", "")
	v.SetDefault("dsn", "")

	// Environment variables support: BRIDGES_CONFIG, BRIDGES_DIR, BRIDGES_DSN
	v.SetEnvPrefix("BRIDGES")
	v.AutomaticEnv()
	// Bind flags via Cobra and then bind to Viper
	rootCmd.PersistentFlags().String("config", v.GetString("config"), "path to a config yaml")
	rootCmd.PersistentFlags().String("dir", v.GetString("dir"), "migrations directory (overrides migrate_dir)")
	rootCmd.PersistentFlags().String("dsn", v.GetString("dsn"), "connection string for the configured driver (overrides store settings)")
	revertCmd.Flags().Bool("all", false, "revert every batch, newest first")
	statusCmd.Flags().BoolP("verbose", "v", false, "list every migration with its state")

	_ = v.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("dir", rootCmd.PersistentFlags().Lookup("dir"))
	_ = v.BindPFlag("dsn", rootCmd.PersistentFlags().Lookup("dsn"))
	_ = v.BindPFlag("all", revertCmd.Flags().Lookup("all"))
	_ = v.BindPFlag("verbose", statusCmd.Flags().Lookup("verbose"))

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(revertCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		common.GetLogger().WithComponent("main").Error("command execution failed", "error", err)
		os.Exit(1)
	}
}
