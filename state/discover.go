package state

import (
	"os"
	"path/filepath"
	"time"

	"github.com/grovetools/hooks/util/pathutil"
)

// FindRoot walks upward from start to the nearest directory containing a
// stateDir folder and returns the path of that folder.
func FindRoot(fsys pathutil.Stater, start, stateDir string) (string, bool) {
	parent, ok := pathutil.FindMarkerDirectory(fsys, start, stateDir)
	if !ok {
		return "", false
	}
	return filepath.Join(parent, stateDir), true
}

// Discover lists the record files held by the immediate child directories
// of root, in directory name order.
func Discover(root, recordFile string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var records []string
	for _, entry := range entries {
		dir := filepath.Join(root, entry.Name())
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		path := filepath.Join(dir, recordFile)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			records = append(records, path)
		}
	}
	return records, nil
}

// RecentlyModified reports whether mtime falls inside the trailing window
// ending at now. Timestamps in the future count as recent.
func RecentlyModified(mtime, now time.Time, window time.Duration) bool {
	return now.Sub(mtime) <= window
}
