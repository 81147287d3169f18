package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"retriever/internal/workspace"
)

var (
	servicesGroup    string
	servicesFormat   string
	servicesSelected bool
)

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List services and their selection state",
	Long: `List the services of every configured group, or of one group.

Examples:
  retriever services                  # All groups
  retriever services --group rules    # One group
  retriever services --selected       # Only selected services
  retriever services --format json`,
	Args: cobra.NoArgs,
	Run:  runServices,
}

var servicesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report unresolved requirements and dependency cycles",
	Args:  cobra.NoArgs,
	Run:   runServicesCheck,
}

func init() {
	servicesCmd.PersistentFlags().StringVar(&servicesFormat, "format", "human", "Output format (json, human)")
	servicesCmd.Flags().StringVar(&servicesGroup, "group", "", "Only list this group")
	servicesCmd.Flags().BoolVar(&servicesSelected, "selected", false, "Only list selected services")

	servicesCmd.AddCommand(servicesCheckCmd)
	rootCmd.AddCommand(servicesCmd)
}

func runServices(cmd *cobra.Command, args []string) {
	s := mustOpenSession()
	defer s.close()

	statuses, err := s.ws.Status(servicesGroup)
	if err != nil {
		exitWithError("Error listing services", err)
	}
	if servicesSelected {
		filtered := statuses[:0]
		for _, st := range statuses {
			if st.Selected {
				filtered = append(filtered, st)
			}
		}
		statuses = filtered
	}

	if servicesFormat == "json" {
		printJSON(statuses)
		return
	}
	fmt.Print(formatServicesHuman(statuses))
}

func formatServicesHuman(statuses []workspace.ServiceStatus) string {
	var b strings.Builder
	current := ""
	for _, st := range statuses {
		if st.Group != current {
			if current != "" {
				b.WriteString("\n")
			}
			current = st.Group
			b.WriteString(current + ":\n")
		}

		mark := "[ ]"
		switch {
		case st.Manual:
			mark = "[x]"
		case st.Selected:
			mark = "[+]"
		}
		b.WriteString(fmt.Sprintf("  %s %s", mark, st.ID))
		if st.Name != "" {
			b.WriteString(" - " + st.Name)
		}
		if !st.Declared {
			b.WriteString(" (not in catalog)")
		}
		b.WriteString("\n")
		if len(st.RequiredBy) > 0 {
			b.WriteString("        required by " + strings.Join(st.RequiredBy, ", ") + "\n")
		}
	}
	if len(statuses) == 0 {
		b.WriteString("No services.\n")
	}
	return b.String()
}

func runServicesCheck(cmd *cobra.Command, args []string) {
	s := mustOpenSession()
	defer s.close()

	reports := s.ws.Inspect()
	if servicesFormat == "json" {
		printJSON(reports)
		return
	}

	clean := true
	for _, group := range s.ws.Groups() {
		report := reports[group]
		if report.Clean() {
			continue
		}
		clean = false
		fmt.Printf("%s:\n", group)

		ids := make([]string, 0, len(report.Unresolved))
		for id := range report.Unresolved {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Printf("  %s requires unknown %s\n", id, strings.Join(report.Unresolved[id], ", "))
		}
		for _, cycle := range report.Cycles {
			fmt.Printf("  cycle: %s -> %s\n", strings.Join(cycle, " -> "), cycle[0])
		}
	}
	if clean {
		fmt.Println("All requirements resolve; no cycles.")
	}
}
