package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"retriever/internal/config"
)

var (
	configFormat   string
	configShowDiff bool
	configForce    bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage retriever configuration and per-service settings",
	Long: `View the repository configuration stored in .retriever/config.json and
read or write the settings of individual services.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the current retriever configuration.

Examples:
  retriever config show              # Pretty-print current config
  retriever config show --format json
  retriever config show --diff       # Only show non-default values`,
	Args: cobra.NoArgs,
	Run:  runConfigShow,
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variables",
	Args:  cobra.NoArgs,
	Run:   runConfigEnv,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to .retriever/config.json",
	Args:  cobra.NoArgs,
	Run:   runConfigInit,
}

var configGetCmd = &cobra.Command{
	Use:   "get <group> <id> [key]",
	Short: "Print a service setting, or all settings of a service",
	Args:  cobra.RangeArgs(2, 3),
	Run:   runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <group> <id> <key> <value>",
	Short: "Set a service setting",
	Args:  cobra.ExactArgs(4),
	Run:   runConfigSet,
}

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "human", "Output format (json, human)")
	configShowCmd.Flags().BoolVar(&configShowDiff, "diff", false, "Only show non-default values")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
	configGetCmd.Flags().StringVar(&configFormat, "format", "human", "Output format (json, human)")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEnvCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

// ConfigShowResponse is the response format for config show
type ConfigShowResponse struct {
	ConfigPath   string                 `json:"configPath,omitempty"`
	UsedDefaults bool                   `json:"usedDefaults"`
	EnvOverrides []config.EnvOverride   `json:"envOverrides,omitempty"`
	Config       map[string]interface{} `json:"config"`
}

func runConfigShow(cmd *cobra.Command, args []string) {
	repoRoot := mustGetRepoRoot()

	result, err := config.LoadConfigWithDetails(repoRoot)
	if err != nil {
		exitWithError("Error loading config", err)
	}

	current := flattenConfig(result.Config)
	if configShowDiff {
		current = diffSettings(current, flattenConfig(config.DefaultConfig()))
	}

	if configFormat == "json" {
		configMap := make(map[string]interface{}, len(current))
		for k, v := range current {
			configMap[k] = v
		}
		printJSON(ConfigShowResponse{
			ConfigPath:   result.ConfigPath,
			UsedDefaults: result.UsedDefaults,
			EnvOverrides: result.EnvOverrides,
			Config:       configMap,
		})
		return
	}

	fmt.Println("Retriever Configuration")
	fmt.Println(strings.Repeat("─", 50))
	if result.UsedDefaults {
		fmt.Println("Source: defaults (no config file found)")
	} else {
		fmt.Printf("Source: %s\n", result.ConfigPath)
	}
	if len(result.EnvOverrides) > 0 {
		fmt.Println("\nEnvironment Overrides:")
		for _, ov := range result.EnvOverrides {
			fmt.Printf("  %s=%s → %s\n", ov.EnvVar, ov.FromValue, ov.Path)
		}
	}
	fmt.Println()

	if len(current) == 0 {
		fmt.Println("  (no modifications - using all defaults)")
		return
	}
	defaults := flattenConfig(config.DefaultConfig())
	for _, key := range sortedKeys(current) {
		line := fmt.Sprintf("%s: %s", key, current[key])
		if def, ok := defaults[key]; ok && def != current[key] {
			line += fmt.Sprintf(" (default: %s)", def)
		}
		fmt.Println(line)
	}
}

// flattenConfig renders cfg as dotted paths, e.g. "groups.rules.catalog".
func flattenConfig(cfg *config.Config) map[string]string {
	flat := map[string]string{
		"version":        fmt.Sprint(cfg.Version),
		"store.path":     cfg.Store.Path,
		"store.compress": fmt.Sprint(cfg.Store.Compress),
		"logging.format": cfg.Logging.Format,
		"logging.level":  cfg.Logging.Level,
	}
	for _, g := range cfg.Groups {
		prefix := "groups." + g.Name + "."
		flat[prefix+"catalog"] = g.Catalog
		flat[prefix+"selectedKey"] = g.SelectedKey
		flat[prefix+"configPrefix"] = g.ConfigPrefix
	}
	return flat
}

// diffSettings keeps the entries of current that are absent from or differ
// from defaults.
func diffSettings(current, defaults map[string]string) map[string]string {
	diff := make(map[string]string)
	for k, v := range current {
		if def, ok := defaults[k]; !ok || def != v {
			diff[k] = v
		}
	}
	return diff
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runConfigEnv(cmd *cobra.Command, args []string) {
	fmt.Println("Supported Retriever Environment Variables")
	fmt.Println(strings.Repeat("─", 50))
	fmt.Println()

	vars := config.SupportedEnvVars()
	names := sortedKeys(vars)
	for _, name := range names {
		fmt.Printf("  %-28s → %s\n", name, vars[name])
	}
	fmt.Printf("  %-28s → %s\n", "RETRIEVER_ROOT", "repository root (skips discovery)")

	fmt.Println()
	fmt.Println("Example usage:")
	fmt.Println("  RETRIEVER_LOG_LEVEL=debug retriever select rules spring")
}

func runConfigInit(cmd *cobra.Command, args []string) {
	repoRoot := mustGetRepoRoot()

	result, err := config.LoadConfigWithDetails(repoRoot)
	if err == nil && !result.UsedDefaults && !configForce {
		fmt.Fprintf(os.Stderr, "Config already exists at %s (use --force to overwrite)\n", result.ConfigPath)
		exit(1)
	}

	if err := config.DefaultConfig().Save(repoRoot); err != nil {
		exitWithError("Error writing config", err)
	}
	fmt.Printf("Wrote %s/%s/config.json\n", repoRoot, config.DirName)
}

func runConfigGet(cmd *cobra.Command, args []string) {
	s := mustOpenSession()
	defer s.close()

	group, id := args[0], args[1]
	if len(args) == 3 {
		value, ok, err := s.ws.GetConfig(group, id, args[2])
		if err != nil {
			exitWithError("Error reading setting", err)
		}
		if !ok {
			fmt.Fprintf(os.Stderr, "%s/%s has no setting %q\n", group, id, args[2])
			exit(1)
		}
		fmt.Println(value)
		return
	}

	settings, err := s.ws.WholeConfig(group, id)
	if err != nil {
		exitWithError("Error reading settings", err)
	}
	if configFormat == "json" {
		printJSON(settings)
		return
	}
	for _, key := range sortedKeys(settings) {
		fmt.Printf("%s = %q\n", key, settings[key])
	}
}

func runConfigSet(cmd *cobra.Command, args []string) {
	s := mustOpenSession()
	defer s.close()

	group, id, key, value := args[0], args[1], args[2], args[3]
	if err := s.ws.SetConfig(group, id, key, value); err != nil {
		exitWithError("Error writing setting", err)
	}
	s.commit()

	s.logger.Debug("Updated service setting", map[string]interface{}{
		"group":   group,
		"service": id,
		"key":     key,
	})
	fmt.Printf("%s/%s: %s = %q\n", group, id, key, value)
}
