package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configDir := filepath.Join(tmpDir, GlobalConfigDir)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(configDir, GlobalConfigFile), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return tmpDir
}

func TestGlobalConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	if got, want := GlobalConfigPath(), "/custom/config/zb/config.yml"; got != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", got, want)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	if got, want := GlobalConfigPath(), filepath.Join(home, ".config", "zb", "config.yml"); got != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", got, want)
	}
}

func TestLoadGlobalConfig_NotFound(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadGlobalConfig() returned nil")
	}
	if cfg.APIKey != "" || len(cfg.Identities) != 0 {
		t.Errorf("LoadGlobalConfig() = %+v, want empty", cfg)
	}
}

func TestLoadGlobalConfig_Valid(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()

	dir := writeConfig(t, `api_key: secret-key
default_identity: lab
identities:
  lab: group 1234
  me: user 42
limit: 100
cache_path: ~/zb/cache.db
include_abstract: true
log_level: debug
`)
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}

	if cfg.APIKey != "secret-key" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
	if cfg.DefaultIdentity != "lab" {
		t.Errorf("DefaultIdentity = %q", cfg.DefaultIdentity)
	}
	if cfg.Identities["me"] != "user 42" {
		t.Errorf("Identities[me] = %q", cfg.Identities["me"])
	}
	if cfg.Limit != 100 || !cfg.IncludeAbstract || cfg.LogLevel != "debug" {
		t.Errorf("LoadGlobalConfig() = %+v", cfg)
	}

	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "zb/cache.db"); cfg.CachePath != want {
		t.Errorf("CachePath = %q, want %q", cfg.CachePath, want)
	}

	// Second call is served from the cache even if the file changes.
	os.Remove(filepath.Join(dir, GlobalConfigDir, GlobalConfigFile))
	again, err := LoadGlobalConfig()
	if err != nil || again.APIKey != "secret-key" {
		t.Errorf("cached LoadGlobalConfig() = %+v, %v", again, err)
	}
}

func TestLoadGlobalConfig_InvalidYAML(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()
	t.Setenv("XDG_CONFIG_HOME", writeConfig(t, "identities: [unclosed"))

	if _, err := LoadGlobalConfig(); err == nil {
		t.Error("LoadGlobalConfig() should return error for invalid YAML")
	}
}

func TestResolveAPIKey(t *testing.T) {
	cfg := &GlobalConfig{APIKey: "from-config"}

	t.Setenv(APIKeyEnv, "from-env")
	if got := cfg.ResolveAPIKey(); got != "from-env" {
		t.Errorf("ResolveAPIKey() = %q, want from-env", got)
	}

	t.Setenv(APIKeyEnv, "")
	if got := cfg.ResolveAPIKey(); got != "from-config" {
		t.Errorf("ResolveAPIKey() = %q, want from-config", got)
	}
}

func TestResolveCachePath(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/cachehome")

	if got, want := (&GlobalConfig{}).ResolveCachePath(), "/tmp/cachehome/zb/items.db"; got != want {
		t.Errorf("ResolveCachePath() = %q, want %q", got, want)
	}
	if got := (&GlobalConfig{CachePath: "/x/y.db"}).ResolveCachePath(); got != "/x/y.db" {
		t.Errorf("ResolveCachePath() = %q, want /x/y.db", got)
	}
}

func TestRedacted(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"abc", "****"},
		{"abcdefgh", "abcd****"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			cfg := &GlobalConfig{APIKey: tt.key, Limit: 5}
			got := cfg.Redacted()
			if got.APIKey != tt.want {
				t.Errorf("Redacted().APIKey = %q, want %q", got.APIKey, tt.want)
			}
			if got.Limit != 5 {
				t.Errorf("Redacted() dropped other fields: %+v", got)
			}
			if cfg.APIKey != tt.key {
				t.Errorf("Redacted() modified the original")
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}

	tests := []struct {
		input string
		want  string
	}{
		{"~/refs", filepath.Join(home, "refs")},
		{"/abs/path", "/abs/path"},
		{"rel/path", "rel/path"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ExpandPath(tt.input); got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
