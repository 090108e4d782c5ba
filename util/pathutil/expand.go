package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Expand expands the home directory (~) and environment variables in a
// path. Relative results are resolved against base; an empty base leaves
// them relative to the process working directory.
func Expand(path, base string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not get user home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	path = os.ExpandEnv(path)

	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	if base != "" {
		return filepath.Join(base, path), nil
	}
	return filepath.Abs(path)
}
