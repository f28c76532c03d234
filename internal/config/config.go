package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

const (
	SchemaModeDiff  = "diff"
	SchemaModeRetry = "retry"
)

// Environment overrides, applied after the config file.
const (
	EnvInputDir = "CFGMML_INPUT_DIR"
	EnvDBPath   = "CFGMML_DB_PATH"
	EnvLogLevel = "CFGMML_LOG_LEVEL"
)

// defaultFiles are tried in the working directory when no --config is given.
var defaultFiles = []string{"cfgmml.toml", "cfgmml.yaml", "cfgmml.yml"}

type Config struct {
	InputDir string `toml:"input_dir" yaml:"input_dir"`
	DBPath   string `toml:"db_path" yaml:"db_path"`
	Pattern  string `toml:"pattern" yaml:"pattern"`

	CommentMarker    string `toml:"comment_marker" yaml:"comment_marker"`
	ContextDirective string `toml:"context_directive" yaml:"context_directive"`
	ContextField     string `toml:"context_field" yaml:"context_field"`
	DefaultContext   string `toml:"default_context" yaml:"default_context"`
	Terminator       string `toml:"terminator" yaml:"terminator"`

	SchemaMode string `toml:"schema_mode" yaml:"schema_mode"`

	LogLevel  string `toml:"log_level" yaml:"log_level"`
	LogFormat string `toml:"log_format" yaml:"log_format"`
}

func Default() *Config {
	return &Config{
		InputDir:         "cfgmml",
		DBPath:           filepath.Join("database", "dump.db"),
		Pattern:          "CFGMML*.txt",
		CommentMarker:    "//",
		ContextDirective: "//System BSCID",
		ContextField:     "SRNC",
		DefaultContext:   "SRC",
		Terminator:       ";",
		SchemaMode:       SchemaModeDiff,
		LogLevel:         "warn",
		LogFormat:        "text",
	}
}

// Load builds the config from defaults, then the config file, then the
// environment. An empty path tries the default file names in the working
// directory; a missing default file is not an error, a missing explicit one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, name := range defaultFiles {
			if _, err := os.Stat(name); err == nil {
				path = name
				break
			}
		}
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvironmentOverrides()

	// expand ~ in paths
	if home, err := os.UserHomeDir(); err == nil {
		cfg.InputDir = expandHome(cfg.InputDir, home)
		cfg.DBPath = expandHome(cfg.DBPath, home)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return yaml.Unmarshal(data, cfg)
	default:
		_, err := toml.DecodeFile(path, cfg)
		return err
	}
}

func (c *Config) applyEnvironmentOverrides() {
	if v := os.Getenv(EnvInputDir); v != "" {
		c.InputDir = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Validate checks required fields and enumerations.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.InputDir, validation.Required),
		validation.Field(&c.DBPath, validation.Required),
		validation.Field(&c.Pattern, validation.Required, validation.By(func(value any) error {
			if _, err := filepath.Match(value.(string), ""); err != nil {
				return validation.NewError("cfgmml.config.pattern_invalid", "must be a valid glob pattern")
			}
			return nil
		})),
		validation.Field(&c.CommentMarker, validation.Required),
		validation.Field(&c.ContextDirective, validation.Required, validation.By(func(value any) error {
			if !strings.HasPrefix(value.(string), c.CommentMarker) {
				return validation.NewError("cfgmml.config.directive_marker", "must start with the comment marker")
			}
			return nil
		})),
		validation.Field(&c.ContextField, validation.Required),
		validation.Field(&c.SchemaMode, validation.Required, validation.In(SchemaModeDiff, SchemaModeRetry)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "warning", "error")),
		validation.Field(&c.LogFormat, validation.In("text", "json")),
	)
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
