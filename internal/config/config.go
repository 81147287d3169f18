package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// CurrentVersion is the config schema version this build reads.
const CurrentVersion = 1

// DirName is the per-repository state directory.
const DirName = ".retriever"

// KeyNamespace prefixes the default attribute-map keys of each group.
const KeyNamespace = "org.palladiosimulator.retriever.core"

// Config represents the complete retriever configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Groups  []GroupConfig `json:"groups" mapstructure:"groups"`
	Store   StoreConfig   `json:"store" mapstructure:"store"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// GroupConfig declares one configuration group and where its catalog lives
type GroupConfig struct {
	Name         string `json:"name" mapstructure:"name"`
	Catalog      string `json:"catalog" mapstructure:"catalog"`
	SelectedKey  string `json:"selectedKey" mapstructure:"selectedKey"`
	ConfigPrefix string `json:"configPrefix" mapstructure:"configPrefix"`
}

// StoreConfig contains profile store configuration
type StoreConfig struct {
	Path     string `json:"path" mapstructure:"path"`
	Compress bool   `json:"compress" mapstructure:"compress"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultGroup returns the conventional settings for a group name.
func DefaultGroup(name string) GroupConfig {
	return GroupConfig{
		Name:         name,
		Catalog:      filepath.Join("catalogs", name+".toml"),
		SelectedKey:  KeyNamespace + "." + name,
		ConfigPrefix: KeyNamespace + "." + name + ".config.",
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Groups: []GroupConfig{
			DefaultGroup("discoverers"),
			DefaultGroup("rules"),
			DefaultGroup("analysts"),
		},
		Store: StoreConfig{
			Path:     filepath.Join(DirName, "profiles.db"),
			Compress: true,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "warn",
		},
	}
}

// Group finds a group by name.
func (c *Config) Group(name string) (GroupConfig, bool) {
	for _, g := range c.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return GroupConfig{}, false
}

// GroupNames lists the configured groups in order.
func (c *Config) GroupNames() []string {
	names := make([]string, 0, len(c.Groups))
	for _, g := range c.Groups {
		names = append(names, g.Name)
	}
	return names
}

// EnvOverride records a value taken from the environment
type EnvOverride struct {
	EnvVar    string `json:"envVar"`
	Path      string `json:"path"`
	FromValue string `json:"value"`
}

// envBindings maps supported environment variables to config paths.
var envBindings = []struct {
	envVar string
	path   string
}{
	{"RETRIEVER_LOG_LEVEL", "logging.level"},
	{"RETRIEVER_LOG_FORMAT", "logging.format"},
	{"RETRIEVER_STORE_PATH", "store.path"},
	{"RETRIEVER_STORE_COMPRESS", "store.compress"},
}

// SupportedEnvVars lists the environment variables LoadConfig honours.
func SupportedEnvVars() map[string]string {
	vars := make(map[string]string, len(envBindings))
	for _, b := range envBindings {
		vars[b.envVar] = b.path
	}
	return vars
}

// LoadResult describes how a configuration was assembled
type LoadResult struct {
	Config       *Config
	ConfigPath   string
	UsedDefaults bool
	EnvOverrides []EnvOverride
}

// LoadConfig loads configuration from .retriever/config.json
func LoadConfig(repoRoot string) (*Config, error) {
	result, err := LoadConfigWithDetails(repoRoot)
	if err != nil {
		return nil, err
	}
	return result.Config, nil
}

// LoadConfigWithDetails loads configuration and reports where values came
// from. Missing files yield the defaults; environment overrides apply
// either way.
func LoadConfigWithDetails(repoRoot string) (*LoadResult, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, DirName))

	result := &LoadResult{}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &ConfigError{Field: "file", Message: err.Error()}
		}
		result.UsedDefaults = true
	} else {
		result.ConfigPath = v.ConfigFileUsed()
	}

	for _, b := range envBindings {
		if val, ok := os.LookupEnv(b.envVar); ok && val != "" {
			v.Set(b.path, val)
			result.EnvOverrides = append(result.EnvOverrides, EnvOverride{
				EnvVar:    b.envVar,
				Path:      b.path,
				FromValue: val,
			})
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Field: "file", Message: err.Error()}
	}
	if len(cfg.Groups) == 0 {
		cfg.Groups = DefaultConfig().Groups
	}
	cfg.fillGroupDefaults()

	result.Config = &cfg
	return result, nil
}

func setDefaults(v *viper.Viper, def *Config) {
	v.SetDefault("version", def.Version)
	v.SetDefault("store.path", def.Store.Path)
	v.SetDefault("store.compress", def.Store.Compress)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.level", def.Logging.Level)
}

// fillGroupDefaults completes partially declared groups.
func (c *Config) fillGroupDefaults() {
	for i, g := range c.Groups {
		def := DefaultGroup(g.Name)
		if g.Catalog == "" {
			c.Groups[i].Catalog = def.Catalog
		}
		if g.SelectedKey == "" {
			c.Groups[i].SelectedKey = def.SelectedKey
		}
		if g.ConfigPrefix == "" {
			c.Groups[i].ConfigPrefix = def.ConfigPrefix
		}
	}
}

// Save writes the configuration to .retriever/config.json
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, DirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", DirName, err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if len(c.Groups) == 0 {
		return &ConfigError{Field: "groups", Message: "at least one group is required"}
	}

	names := make(map[string]bool, len(c.Groups))
	keys := make(map[string]string, len(c.Groups))
	for i, g := range c.Groups {
		field := fmt.Sprintf("groups[%d]", i)
		if strings.TrimSpace(g.Name) == "" {
			return &ConfigError{Field: field + ".name", Message: "group name is required"}
		}
		if names[g.Name] {
			return &ConfigError{Field: field + ".name", Message: fmt.Sprintf("duplicate group %q", g.Name)}
		}
		names[g.Name] = true

		if g.SelectedKey == "" || g.ConfigPrefix == "" {
			return &ConfigError{Field: field, Message: "selectedKey and configPrefix are required"}
		}
		if other, dup := keys[g.SelectedKey]; dup {
			return &ConfigError{Field: field + ".selectedKey", Message: fmt.Sprintf("already used by group %q", other)}
		}
		keys[g.SelectedKey] = g.Name
	}

	if err := c.checkKeyOverlap(); err != nil {
		return err
	}

	switch c.Logging.Format {
	case "", "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}
	return nil
}

// checkKeyOverlap rejects groups whose attribute-map keys could collide once
// merged. A group writes its selectedKey and configPrefix+id for each
// configured service, so no prefix may cover another group's prefix or any
// selectedKey.
func (c *Config) checkKeyOverlap() error {
	for i, g := range c.Groups {
		field := fmt.Sprintf("groups[%d]", i)
		for _, other := range c.Groups {
			if strings.HasPrefix(g.SelectedKey, other.ConfigPrefix) {
				return &ConfigError{
					Field:   field + ".selectedKey",
					Message: fmt.Sprintf("falls under configPrefix of group %q", other.Name),
				}
			}
			if other.Name == g.Name {
				continue
			}
			if g.ConfigPrefix == other.ConfigPrefix {
				return &ConfigError{
					Field:   field + ".configPrefix",
					Message: fmt.Sprintf("already used by group %q", other.Name),
				}
			}
			if strings.HasPrefix(other.ConfigPrefix, g.ConfigPrefix) {
				return &ConfigError{
					Field:   field + ".configPrefix",
					Message: fmt.Sprintf("overlaps configPrefix of group %q", other.Name),
				}
			}
		}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
