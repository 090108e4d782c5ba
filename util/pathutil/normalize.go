package pathutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// CanonicalPath returns the absolute path with symlinks resolved and the
// correct filesystem case. Git reports its work tree root this way, so both
// sides of a root-relative computation must be canonical.
//
// Note: filepath.EvalSymlinks does NOT canonicalize case on macOS, so we walk
// each path component and look up the correct case from the filesystem.
func CanonicalPath(path string) (string, error) {
	resolved, err := resolve(path)
	if err != nil {
		return "", err
	}

	// On non-macOS/Windows, case is preserved by the filesystem
	if runtime.GOOS != "darwin" && runtime.GOOS != "windows" {
		return resolved, nil
	}

	if resolved == "/" {
		return "/", nil
	}

	var parts []string
	isAbsolute := strings.HasPrefix(resolved, "/")
	for _, p := range strings.Split(resolved, string(filepath.Separator)) {
		if p != "" {
			parts = append(parts, p)
		}
	}

	var result string
	if isAbsolute {
		result = "/"
	}

	for _, part := range parts {
		entries, err := os.ReadDir(result)
		if err != nil {
			result = filepath.Join(result, part)
			continue
		}

		found := false
		for _, entry := range entries {
			if strings.EqualFold(entry.Name(), part) {
				result = filepath.Join(result, entry.Name())
				found = true
				break
			}
		}

		if !found {
			result = filepath.Join(result, part)
		}
	}

	return result, nil
}

// RelativeWithin returns path relative to root, slash separated, and
// whether path lies inside root (root itself yields ".").
func RelativeWithin(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// HasPathPrefix reports whether the slash-separated repository path p is
// prefix itself or lies below it. A prefix of "." or "" matches everything.
func HasPathPrefix(p, prefix string) bool {
	if prefix == "" || prefix == "." {
		return true
	}
	prefix = strings.TrimSuffix(prefix, "/")
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

func resolve(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		// If symlink evaluation fails (e.g., path doesn't exist yet),
		// fall back to the absolute path.
		return absPath, nil
	}
	return resolved, nil
}
