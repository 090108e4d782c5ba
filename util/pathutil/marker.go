package pathutil

import (
	"os"
	"path/filepath"
)

// Stater is the slice of filesystem access needed to search for marker
// directories. Tests substitute an in-memory implementation.
type Stater interface {
	Stat(name string) (os.FileInfo, error)
}

// OSStater implements Stater against the real filesystem.
type OSStater struct{}

// Stat calls os.Stat.
func (OSStater) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

// FindMarkerDirectory walks upward from start and returns the first
// directory that contains a directory named marker. marker may be a
// relative path with several components (e.g. ".claude/state").
// The second return value is false when the filesystem root is reached
// without a match.
func FindMarkerDirectory(fsys Stater, start, marker string) (string, bool) {
	if fsys == nil {
		fsys = OSStater{}
	}
	dir, err := filepath.Abs(start)
	if err != nil {
		dir = filepath.Clean(start)
	}

	for {
		if info, err := fsys.Stat(filepath.Join(dir, marker)); err == nil && info.IsDir() {
			return dir, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
