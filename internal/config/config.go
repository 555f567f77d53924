package config

import (
	"os"
	"path/filepath"
)

const (
	// CacheDir is the directory name under XDG_CACHE_HOME.
	CacheDir = "zb"
	// CacheFile is the SQLite item cache file name.
	CacheFile = "items.db"
	// DefaultLimit is the page size used when neither flag nor config sets one.
	DefaultLimit = 30
)

// DefaultCachePath returns the item cache location.
// Respects XDG_CACHE_HOME, defaults to ~/.cache/zb/items.db.
func DefaultCachePath() string {
	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return CacheFile
		}
		cacheHome = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheHome, CacheDir, CacheFile)
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}
