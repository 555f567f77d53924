// Package clipboard copies exported BibTeX to the system clipboard through
// the platform's command-line clipboard tools.
package clipboard

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrClipboardUnavailable is returned when no clipboard tool is installed.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// tool is a clipboard command reading the text on stdin.
type tool struct {
	name string
	args []string
}

// tools lists candidates per OS in order of preference.
var tools = map[string][]tool{
	"darwin": {{name: "pbcopy"}},
	"linux": {
		{name: "wl-copy"},
		{name: "xclip", args: []string{"-selection", "clipboard"}},
		{name: "xsel", args: []string{"--clipboard", "--input"}},
	},
}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// find returns the first installed tool for goos.
func find(goos string) (tool, bool) {
	for _, t := range tools[goos] {
		if _, err := lookPath(t.name); err == nil {
			return t, true
		}
	}
	return tool{}, false
}

// IsAvailable reports whether a clipboard tool is installed.
func IsAvailable() bool {
	_, ok := find(runtime.GOOS)
	return ok
}

// Copy places text on the system clipboard.
func Copy(text string) error {
	t, ok := find(runtime.GOOS)
	if !ok {
		return ErrClipboardUnavailable
	}
	cmd := exec.Command(t.name, t.args...)
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", t.name, err, strings.TrimSpace(string(out)))
	}
	return nil
}
