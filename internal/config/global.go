package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/iromo/config.yml.
type GlobalConfig struct {
	LastCollection string `yaml:"last_collection,omitempty"`
	TitleLength    int    `yaml:"title_length,omitempty"`
	LogLevel       string `yaml:"log_level,omitempty"`
	LogFile        string `yaml:"log_file,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "iromo"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"

	// EnvCollection overrides collection discovery.
	EnvCollection = "IROMO_COLLECTION"
	// EnvLogLevel overrides log_level.
	EnvLogLevel = "IROMO_LOG_LEVEL"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/iromo/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}

	if cfg.LastCollection != "" {
		cfg.LastCollection = ExpandPath(cfg.LastCollection)
	}
	if cfg.LogFile != "" {
		cfg.LogFile = ExpandPath(cfg.LogFile)
	}

	globalConfigCache = &cfg
	return &cfg, nil
}

// SaveGlobalConfig writes cfg to the global config file and refreshes the cache.
func SaveGlobalConfig(cfg *GlobalConfig) error {
	path := GlobalConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding global config: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing global config: %w", err)
	}

	globalConfigCache = cfg
	return nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// Keys lists the settable global config keys.
func Keys() []string {
	keys := []string{"last_collection", "title_length", "log_level", "log_file"}
	sort.Strings(keys)
	return keys
}

// Get returns the value of a config key as text.
func (c *GlobalConfig) Get(key string) (string, error) {
	switch key {
	case "last_collection":
		return c.LastCollection, nil
	case "title_length":
		if c.TitleLength == 0 {
			return "", nil
		}
		return strconv.Itoa(c.TitleLength), nil
	case "log_level":
		return c.LogLevel, nil
	case "log_file":
		return c.LogFile, nil
	}
	return "", fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(Keys(), ", "))
}

// Set assigns a config key from text.
func (c *GlobalConfig) Set(key, value string) error {
	switch key {
	case "last_collection":
		c.LastCollection = ExpandPath(value)
	case "title_length":
		if value == "" {
			c.TitleLength = 0
			return nil
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("title_length must be a non-negative integer, got %q", value)
		}
		c.TitleLength = n
	case "log_level":
		if err := ValidateLogLevel(value); err != nil {
			return err
		}
		c.LogLevel = value
	case "log_file":
		c.LogFile = ExpandPath(value)
	default:
		return fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	return nil
}

// ValidLogLevels lists the accepted log_level values.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// ValidateLogLevel checks that level is empty or one of ValidLogLevels.
func ValidateLogLevel(level string) error {
	if level == "" {
		return nil
	}
	for _, valid := range ValidLogLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log_level: %s (valid: %v)", level, ValidLogLevels)
}

// GetLogLevel returns the log level, preferring IROMO_LOG_LEVEL.
func GetLogLevel() string {
	if v := os.Getenv(EnvLogLevel); v != "" {
		return v
	}
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return ""
	}
	return cfg.LogLevel
}

// GetTitleLength returns the configured title length, or 0 for the default.
func GetTitleLength() int {
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return 0
	}
	return cfg.TitleLength
}

// RememberCollection records root as last_collection.
func RememberCollection(root string) error {
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return err
	}
	if cfg.LastCollection == root {
		return nil
	}
	updated := *cfg
	updated.LastCollection = root
	return SaveGlobalConfig(&updated)
}

// ResolveCollection picks the collection to operate on: an explicit flag,
// then IROMO_COLLECTION, then walking up from cwd, then last_collection.
func ResolveCollection(flag, cwd string) (string, error) {
	if flag != "" {
		return filepath.Abs(ExpandPath(flag))
	}
	if env := os.Getenv(EnvCollection); env != "" {
		return filepath.Abs(ExpandPath(env))
	}
	if root, err := FindCollection(cwd); err == nil {
		return root, nil
	}
	cfg, err := LoadGlobalConfig()
	if err == nil && cfg.LastCollection != "" && IsCollection(cfg.LastCollection) {
		return cfg.LastCollection, nil
	}
	return "", fmt.Errorf("no collection found: pass --collection, set %s, or run 'iromo init'", EnvCollection)
}
