package config

import (
	"errors"
	"fmt"

	"github.com/matsen/zotbib/internal/zotero"
)

var (
	// ErrNoIdentity is returned when no library was named by flag or config.
	ErrNoIdentity = errors.New("no library given: use --user, --group or --id")

	// ErrUnknownIdentity is returned when a named identity is not configured.
	ErrUnknownIdentity = errors.New("unknown identity")

	// ErrBadIdentity is returned when an identity line cannot be parsed.
	ErrBadIdentity = errors.New("bad identity")

	// ErrConflictingIdentity is returned when both --user and --group are given.
	ErrConflictingIdentity = errors.New("--user and --group are mutually exclusive")
)

// ResolveLibrary picks the library to read. An explicit user or group ID
// wins; otherwise the named identity (or the configured default) is looked
// up in the identities table.
func ResolveLibrary(cfg *GlobalConfig, user, group, identity string) (zotero.Library, error) {
	if user != "" && group != "" {
		return zotero.Library{}, ErrConflictingIdentity
	}
	if user != "" || group != "" {
		lib := zotero.Library{Type: zotero.LibraryUser, ID: user}
		if group != "" {
			lib = zotero.Library{Type: zotero.LibraryGroup, ID: group}
		}
		if err := lib.Validate(); err != nil {
			return zotero.Library{}, fmt.Errorf("%w: %v", ErrBadIdentity, err)
		}
		return lib, nil
	}

	name := identity
	if name == "" && cfg != nil {
		name = cfg.DefaultIdentity
	}
	if name == "" {
		return zotero.Library{}, ErrNoIdentity
	}

	var line string
	var ok bool
	if cfg != nil {
		line, ok = cfg.Identities[name]
	}
	if !ok {
		return zotero.Library{}, fmt.Errorf("%w: %q (configure it under identities in %s)",
			ErrUnknownIdentity, name, GlobalConfigPath())
	}

	lib, err := zotero.ParseLibrary(line)
	if err != nil {
		return zotero.Library{}, fmt.Errorf("%w: %s: %v", ErrBadIdentity, name, err)
	}
	return lib, nil
}
