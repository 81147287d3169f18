package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"retriever/internal/profile"
	"retriever/internal/selection"
)

var (
	profileFormat string
	profileMerge  bool
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Save, restore and share named selections",
	Long: `Profiles are named snapshots of every group's selections and settings.
The working selection itself is the profile named "current".`,
}

var profileSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save the working selection under a name",
	Args:  cobra.ExactArgs(1),
	Run:   runProfileSave,
}

var profileLoadCmd = &cobra.Command{
	Use:   "load <name>",
	Short: "Replace the working selection with a saved profile",
	Args:  cobra.ExactArgs(1),
	Run:   runProfileLoad,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profiles",
	Args:  cobra.NoArgs,
	Run:   runProfileList,
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved profile",
	Args:  cobra.ExactArgs(1),
	Run:   runProfileDelete,
}

var profileExportCmd = &cobra.Command{
	Use:   "export <name> <file.toml>",
	Short: "Write a saved profile to a TOML file",
	Args:  cobra.ExactArgs(2),
	Run:   runProfileExport,
}

var profileImportCmd = &cobra.Command{
	Use:   "import <file.toml> [name]",
	Short: "Store a profile read from a TOML file",
	Args:  cobra.RangeArgs(1, 2),
	Run:   runProfileImport,
}

func init() {
	profileListCmd.Flags().StringVar(&profileFormat, "format", "human", "Output format (json, human)")
	profileLoadCmd.Flags().BoolVar(&profileMerge, "merge", false, "Apply on top of the working selection instead of replacing it")

	profileCmd.AddCommand(profileSaveCmd)
	profileCmd.AddCommand(profileLoadCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileDeleteCmd)
	profileCmd.AddCommand(profileExportCmd)
	profileCmd.AddCommand(profileImportCmd)
	rootCmd.AddCommand(profileCmd)
}

func runProfileSave(cmd *cobra.Command, args []string) {
	s := mustOpenSession()
	defer s.close()

	p, err := s.ws.Snapshot(s.store, args[0])
	if err != nil {
		exitWithError("Error saving profile", err)
	}
	fmt.Printf("Saved profile %s (%s)\n", p.Name, p.ID)
}

func runProfileLoad(cmd *cobra.Command, args []string) {
	s := mustOpenSession()
	defer s.close()

	p, err := s.store.Load(args[0])
	if err != nil {
		exitWithError("Error loading profile", err)
	}
	if profileMerge {
		s.ws.Apply(p.Attributes)
	} else {
		s.ws.Replace(p.Attributes)
	}
	s.commit()
	fmt.Printf("Loaded profile %s into %s\n", p.Name, s.name)
	printSelection(s, "")
}

func runProfileList(cmd *cobra.Command, args []string) {
	s := mustOpenSession()
	defer s.close()

	summaries, err := s.store.List()
	if err != nil {
		exitWithError("Error listing profiles", err)
	}
	if profileFormat == "json" {
		printJSON(summaries)
		return
	}

	if len(summaries) == 0 {
		fmt.Println("No profiles saved.")
		return
	}
	fmt.Printf("%-24s %-20s %-10s %s\n", "NAME", "UPDATED", "ENCODING", "BYTES")
	fmt.Println(strings.Repeat("─", 66))
	for _, sum := range summaries {
		fmt.Printf("%-24s %-20s %-10s %d\n",
			sum.Name,
			sum.UpdatedAt.Local().Format(time.DateTime),
			sum.Encoding,
			sum.Bytes)
	}
}

func runProfileDelete(cmd *cobra.Command, args []string) {
	s := mustOpenSession()
	defer s.close()

	if err := s.store.Delete(args[0]); err != nil {
		exitWithError("Error deleting profile", err)
	}
	fmt.Printf("Deleted profile %s\n", args[0])
}

func runProfileExport(cmd *cobra.Command, args []string) {
	s := mustOpenSession()
	defer s.close()

	p, err := s.store.Load(args[0])
	if err != nil {
		exitWithError("Error loading profile", err)
	}
	path, err := filepath.Abs(args[1])
	if err != nil {
		exitWithError("Error resolving path", err)
	}
	if err := profile.Export(path, p); err != nil {
		exitWithError("Error exporting profile", err)
	}
	fmt.Printf("Exported profile %s to %s\n", p.Name, path)
}

func runProfileImport(cmd *cobra.Command, args []string) {
	s := mustOpenSession()
	defer s.close()

	file, err := profile.Import(args[0])
	if err != nil {
		exitWithError("Error importing profile", err)
	}
	name := file.Name
	if len(args) == 2 {
		name = args[1]
	}

	p, err := s.store.Save(name, selection.AttributeMap(file.Attributes))
	if err != nil {
		exitWithError("Error storing profile", err)
	}
	fmt.Printf("Imported profile %s (%d keys)\n", p.Name, len(file.Attributes))
}
