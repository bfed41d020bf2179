package browser

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mattsolo1/grove-casebook/pkg/handle"
)

// shortenPath replaces the home directory prefix with a tilde (~).
func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path // Fallback to original path on error
	}

	if strings.HasPrefix(path, home) {
		return filepath.Join("~", strings.TrimPrefix(path, home))
	}

	return path
}

// expandHome is the inverse of shortenPath for typed input.
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

// location describes where the root lives, when the handle can tell.
func location(dir handle.Directory) string {
	if l, ok := dir.(handle.Locator); ok {
		return shortenPath(l.Location())
	}
	return ""
}
