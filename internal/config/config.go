// Package config loads symindex settings from a YAML file, SYMINDEX_*
// environment variables and built-in defaults, in that order of precedence
// after explicit overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dshills/symindex/internal/logging"
	"github.com/dshills/symindex/internal/parser"
	"github.com/dshills/symindex/internal/watcher"
)

const (
	configName = "symindex"
	envPrefix  = "SYMINDEX"
)

// Config is the complete symindex configuration
type Config struct {
	LogLevel         string             `mapstructure:"log_level"`
	DBPath           string             `mapstructure:"db_path"`
	Workers          int                `mapstructure:"workers"`
	StrategyTimeout  time.Duration      `mapstructure:"strategy_timeout"`
	RespectGitignore bool               `mapstructure:"respect_gitignore"`
	Watch            watcher.Config     `mapstructure:"watch"`
	Ctags            CtagsConfig        `mapstructure:"ctags"`
	TreeSitter       TreeSitterConfig   `mapstructure:"treesitter"`
	RegexRules       []parser.RegexRule `mapstructure:"regex_rules"`
}

// CtagsConfig configures the universal-ctags strategy
type CtagsConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Path       string   `mapstructure:"path"`
	Extensions []string `mapstructure:"extensions"`
}

// TreeSitterConfig configures the tree-sitter strategy
type TreeSitterConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ConfigError represents an invalid configuration value
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() *Config {
	return &Config{
		LogLevel:         "info",
		DBPath:           defaultDBPath(),
		Workers:          0, // runtime.NumCPU()
		StrategyTimeout:  0, // unbounded
		RespectGitignore: false,
		Watch:            watcher.DefaultConfig(),
		Ctags: CtagsConfig{
			Enabled:    true,
			Path:       "ctags",
			Extensions: []string{".c", ".h", ".cc", ".cpp", ".hpp", ".java", ".rb", ".php", ".lua"},
		},
		TreeSitter: TreeSitterConfig{Enabled: true},
		RegexRules: parser.DefaultRegexRules(),
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".symindex", "projects.db")
	}
	return filepath.Join(home, ".symindex", "projects.db")
}

// setDefaults sets all default configuration values
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("strategy_timeout", d.StrategyTimeout)
	v.SetDefault("respect_gitignore", d.RespectGitignore)
	v.SetDefault("watch.enabled", d.Watch.Enabled)
	v.SetDefault("watch.debounce_ms", d.Watch.DebounceMs)
	v.SetDefault("ctags.enabled", d.Ctags.Enabled)
	v.SetDefault("ctags.path", d.Ctags.Path)
	v.SetDefault("ctags.extensions", d.Ctags.Extensions)
	v.SetDefault("treesitter.enabled", d.TreeSitter.Enabled)
}

// Load reads configuration. An explicit configFile must exist; otherwise
// symindex.yaml is looked up in the working directory and ~/.symindex and
// may be absent.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".symindex"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if len(cfg.RegexRules) == 0 {
		cfg.RegexRules = parser.DefaultRegexRules()
	}
	cfg.DBPath = expandHome(cfg.DBPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return &ConfigError{Field: "workers", Message: "must not be negative"}
	}
	if c.StrategyTimeout < 0 {
		return &ConfigError{Field: "strategy_timeout", Message: "must not be negative"}
	}
	if c.Watch.DebounceMs < 0 {
		return &ConfigError{Field: "watch.debounce_ms", Message: "must not be negative"}
	}
	if c.DBPath == "" {
		return &ConfigError{Field: "db_path", Message: "is required"}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ConfigError{Field: "log_level", Message: fmt.Sprintf("unknown level %q", c.LogLevel)}
	}
	return nil
}

// StrategyTable registers every enabled strategy and freezes the registry.
// Strategies are registered by method, so the table tries ctags first,
// then the structured parsers, then the regex rules.
func (c *Config) StrategyTable(logger *logging.Logger) (*parser.Table, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	reg := parser.NewRegistry()
	reg.SetTimeout(c.StrategyTimeout)

	if c.Ctags.Enabled {
		ctags := parser.NewCtagsStrategy(c.Ctags.Path, c.Ctags.Extensions)
		if ctags.Available() {
			if err := reg.Register(ctags); err != nil {
				return nil, err
			}
		} else {
			logger.Logf("config", "ctags not found at %q, skipping", c.Ctags.Path)
		}
	}

	if err := reg.Register(parser.NewGoStrategy()); err != nil {
		return nil, err
	}
	if c.TreeSitter.Enabled {
		if err := reg.Register(parser.NewTreeSitterStrategy()); err != nil {
			return nil, err
		}
	}

	regex, err := parser.NewRegexStrategy(c.RegexRules)
	if err != nil {
		return nil, fmt.Errorf("invalid regex_rules: %w", err)
	}
	if err := reg.Register(regex); err != nil {
		return nil, err
	}

	return reg.Freeze(), nil
}
