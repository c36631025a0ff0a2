package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/brettbedarf/varfs/internal/util"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config contains runtime configuration values for the variable filesystem.
type Config struct {
	MountOptions
	LogLvl util.LogLevel // Internal log level (Default Info)

	// NOTE: Low-level FUSE config (strongly recommend defaults unless you really know what you're doing):

	MaxWrite        int     // Maximum write size per FUSE request (Default 1MB)
	MaxLeafSize     int64   // Largest leaf content a write or truncate may produce (Default 64MB)
	AttrTimeout     float64 // Attribute cache timeout in seconds (Default 1.0)
	EntryTimeout    float64 // Directory entry cache timeout in seconds (Default 1.0)
	NegativeTimeout float64 // Failed lookup cache timeout in seconds (Default 0)
	DirectIO        bool    // Whether to bypass the page cache for leaves (Default true)
	DirPerms        uint32  // Permission bits reported for containers (Default 0777)
	FilePerms       uint32  // Permission bits reported for leaves (Default 0777)
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
//
// LogLvl is CLI verbosity (1..5), not a util.LogLevel.
type ConfigOverride struct {
	FsName          *string  `yaml:"fs_name,omitempty" json:"fs_name,omitempty" split_words:"true"`
	Name            *string  `yaml:"name,omitempty" json:"name,omitempty" split_words:"true"`
	Debug           *bool    `yaml:"debug,omitempty" json:"debug,omitempty" split_words:"true"`
	AllowOther      *bool    `yaml:"allow_other,omitempty" json:"allow_other,omitempty" split_words:"true"`
	LogLvl          *int     `yaml:"log_level,omitempty" json:"log_level,omitempty" split_words:"true"`
	MaxWrite        *int     `yaml:"max_write,omitempty" json:"max_write,omitempty" split_words:"true"`
	MaxLeafSize     *int64   `yaml:"max_leaf_size,omitempty" json:"max_leaf_size,omitempty" split_words:"true"`
	AttrTimeout     *float64 `yaml:"attr_timeout,omitempty" json:"attr_timeout,omitempty" split_words:"true"`
	EntryTimeout    *float64 `yaml:"entry_timeout,omitempty" json:"entry_timeout,omitempty" split_words:"true"`
	NegativeTimeout *float64 `yaml:"negative_timeout,omitempty" json:"negative_timeout,omitempty" split_words:"true"`
	DirectIO        *bool    `yaml:"direct_io,omitempty" json:"direct_io,omitempty" split_words:"true"`
	DirPerms        *uint32  `yaml:"dir_perms,omitempty" json:"dir_perms,omitempty" split_words:"true"`
	FilePerms       *uint32  `yaml:"file_perms,omitempty" json:"file_perms,omitempty" split_words:"true"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		MountOptions: MountOptions{
			FsName: DefaultFsName,
			Name:   DefaultName,
		},
		LogLvl:          DefaultLogLvl,
		MaxWrite:        DefaultMaxWrite,
		MaxLeafSize:     DefaultMaxLeafSize,
		AttrTimeout:     DefaultAttrTimeout,
		EntryTimeout:    DefaultEntryTimeout,
		NegativeTimeout: DefaultNegativeTimeout,
		DirectIO:        DefaultDirectIO,
		DirPerms:        DefaultDirPerms,
		FilePerms:       DefaultFilePerms,
	}
}

// NewConfig returns the defaults with override applied. A nil override
// yields the defaults.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.FsName != nil {
		c.FsName = *override.FsName
	}
	if override.Name != nil {
		c.Name = *override.Name
	}
	if override.Debug != nil {
		c.Debug = *override.Debug
	}
	if override.AllowOther != nil {
		c.AllowOther = *override.AllowOther
	}
	if override.LogLvl != nil {
		c.LogLvl = verboseToLogLvl(*override.LogLvl)
	}
	if override.MaxWrite != nil {
		c.MaxWrite = *override.MaxWrite
	}
	if override.MaxLeafSize != nil && *override.MaxLeafSize > 0 {
		c.MaxLeafSize = *override.MaxLeafSize
	}
	if override.AttrTimeout != nil {
		c.AttrTimeout = *override.AttrTimeout
	}
	if override.EntryTimeout != nil {
		c.EntryTimeout = *override.EntryTimeout
	}
	if override.NegativeTimeout != nil {
		c.NegativeTimeout = *override.NegativeTimeout
	}
	if override.DirectIO != nil {
		c.DirectIO = *override.DirectIO
	}
	if override.DirPerms != nil {
		c.DirPerms = *override.DirPerms & 0o7777
	}
	if override.FilePerms != nil {
		c.FilePerms = *override.FilePerms & 0o7777
	}
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// LoadConfigOverrideEnv reads overrides from the environment, keyed as
// PREFIX_FIELD_NAME (e.g. VARFS_ATTR_TIMEOUT, VARFS_LOG_LVL). Any dotenvFiles
// that exist are loaded first; variables already set in the process
// environment win over the files. Unset variables leave their field nil.
func LoadConfigOverrideEnv(prefix string, dotenvFiles ...string) (*ConfigOverride, error) {
	logger := util.GetLogger("Config.LoadEnv")

	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Trace().Str("file", f).Msg("No dotenv file")
				continue
			}
			return nil, fmt.Errorf("failed to load dotenv file %s: %w", f, err)
		}
		logger.Debug().Str("file", f).Msg("Loaded dotenv file")
	}

	var override ConfigOverride
	if err := envconfig.Process(prefix, &override); err != nil {
		return nil, fmt.Errorf("failed to process env overrides: %w", err)
	}
	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
// This is a convenience function that combines NewDefaultConfig, LoadConfigOverrideFile, and Merge.
func NewConfigFromFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	cfg.Merge(override)
	return cfg, nil
}
