package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"retriever/internal/version"
)

var versionFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if versionFormat == "json" {
			printJSON(version.Get())
			return
		}
		fmt.Println(version.Full())
	},
}

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(versionCmd)
}
