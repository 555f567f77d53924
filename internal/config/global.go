// Package config handles global configuration and library identity resolution.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/zb/config.yml.
type GlobalConfig struct {
	APIKey          string `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	DefaultIdentity string `yaml:"default_identity,omitempty" json:"default_identity,omitempty"`
	// Identities maps a short name to an identity line such as "group 1234".
	Identities      map[string]string `yaml:"identities,omitempty" json:"identities,omitempty"`
	Limit           int               `yaml:"limit,omitempty" json:"limit,omitempty"`
	CachePath       string            `yaml:"cache_path,omitempty" json:"cache_path,omitempty"`
	IncludeAbstract bool              `yaml:"include_abstract,omitempty" json:"include_abstract,omitempty"`
	LogLevel        string            `yaml:"log_level,omitempty" json:"log_level,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "zb"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
	// APIKeyEnv is the environment variable that overrides api_key.
	APIKeyEnv = "ZOTERO_API_KEY"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/zb/config.yml.
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

	cfg, err := LoadGlobalConfigFrom(path)
	if err != nil {
		return nil, err
	}
	globalConfigCache = cfg
	return cfg, nil
}

// LoadGlobalConfigFrom reads a config file at an explicit path without caching.
func LoadGlobalConfigFrom(path string) (*GlobalConfig, error) {
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

	if cfg.CachePath != "" {
		cfg.CachePath = ExpandPath(cfg.CachePath)
	}
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// ResolveAPIKey returns the API key to use: ZOTERO_API_KEY if set, otherwise
// the configured api_key. Call after loading .env so its value is visible.
func (c *GlobalConfig) ResolveAPIKey() string {
	if key := os.Getenv(APIKeyEnv); key != "" {
		return key
	}
	return c.APIKey
}

// ResolveCachePath returns the configured cache path or the default one.
func (c *GlobalConfig) ResolveCachePath() string {
	if c.CachePath != "" {
		return c.CachePath
	}
	return DefaultCachePath()
}

// Redacted returns a copy safe to print, with the API key masked.
func (c *GlobalConfig) Redacted() GlobalConfig {
	out := *c
	out.APIKey = redact(c.APIKey)
	return out
}

func redact(key string) string {
	switch {
	case key == "":
		return ""
	case len(key) <= 4:
		return "****"
	default:
		return key[:4] + "****"
	}
}
