package main

import (
	"github.com/spf13/cobra"

	"retriever/internal/profile"
	"retriever/internal/version"
)

var (
	// logLevelFlag overrides logging.level from the config file
	logLevelFlag string
	// profileFlag names the stored profile commands operate on
	profileFlag string
)

var rootCmd = &cobra.Command{
	Use:   "retriever",
	Short: "Retriever - service selection for model recovery runs",
	Long: `Retriever manages which discoverers, rules and analysts take part in a
model recovery run. Selecting a service selects everything it requires, across
groups; deselecting releases what nothing else requires. Selections and
per-service settings persist between invocations in .retriever/profiles.db.`,
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("retriever version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error (default: from config)")
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", profile.CurrentProfile,
		"Stored profile holding the working selection")
}
