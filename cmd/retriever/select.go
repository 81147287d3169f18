package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var selectCmd = &cobra.Command{
	Use:   "select <group> <id>...",
	Short: "Select services and everything they require",
	Args:  cobra.MinimumNArgs(2),
	Run:   runSelect,
}

var deselectCmd = &cobra.Command{
	Use:   "deselect <group> <id>...",
	Short: "Deselect services and release unused dependencies",
	Args:  cobra.MinimumNArgs(2),
	Run:   runDeselect,
}

func init() {
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(deselectCmd)
}

func runSelect(cmd *cobra.Command, args []string) {
	s := mustOpenSession()
	defer s.close()

	group := args[0]
	for _, id := range args[1:] {
		if err := s.ws.Select(group, id); err != nil {
			exitWithError("Error selecting "+id, err)
		}
	}
	s.commit()
	printSelection(s, group)
}

func runDeselect(cmd *cobra.Command, args []string) {
	s := mustOpenSession()
	defer s.close()

	group := args[0]
	for _, id := range args[1:] {
		if err := s.ws.Deselect(group, id); err != nil {
			exitWithError("Error deselecting "+id, err)
		}
	}
	s.commit()
	printSelection(s, group)
}

func printSelection(s *session, group string) {
	for _, g := range s.ws.Groups() {
		ids, err := s.ws.SelectedIDs(g)
		if err != nil {
			continue
		}
		if g != group && len(ids) == 0 {
			continue
		}
		fmt.Printf("%s: %d selected %v\n", g, len(ids), ids)
	}
}
