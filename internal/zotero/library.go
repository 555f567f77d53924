package zotero

import (
	"fmt"
	"strconv"
	"strings"
)

// Library types understood by the API.
const (
	LibraryUser  = "user"
	LibraryGroup = "group"
)

// Library identifies a user or group library.
type Library struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Path returns the URL path prefix for the library, e.g. "groups/1234".
func (l Library) Path() string {
	return l.Type + "s/" + l.ID
}

// String returns the identity line form, e.g. "group 1234".
func (l Library) String() string {
	return l.Type + " " + l.ID
}

// Validate checks the library type and that the ID is numeric.
func (l Library) Validate() error {
	if l.Type != LibraryUser && l.Type != LibraryGroup {
		return fmt.Errorf("%w: type must be %q or %q, got %q", ErrInvalidLibrary, LibraryUser, LibraryGroup, l.Type)
	}
	if _, err := strconv.ParseUint(l.ID, 10, 64); err != nil {
		return fmt.Errorf("%w: id must be numeric, got %q", ErrInvalidLibrary, l.ID)
	}
	return nil
}

// ParseLibrary parses an identity line of the form "user 1234" or "group 1234".
func ParseLibrary(line string) (Library, error) {
	parts := strings.Fields(line)
	if len(parts) != 2 {
		return Library{}, fmt.Errorf("%w: %q", ErrInvalidLibrary, line)
	}
	lib := Library{Type: parts[0], ID: parts[1]}
	if err := lib.Validate(); err != nil {
		return Library{}, err
	}
	return lib, nil
}
