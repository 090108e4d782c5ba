package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRoot(t *testing.T) {
	project := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(project, ".features"), 0o755))
	deep := filepath.Join(project, "src", "pkg")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	root, ok := FindRoot(nil, deep, ".features")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(project, ".features"), root)

	_, ok = FindRoot(nil, t.TempDir(), ".features-that-do-not-exist")
	assert.False(t, ok)
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"auth", "billing", "empty"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "auth", "implement.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "billing", "implement.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "implement.json"), []byte("{}"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "weird", "implement.json"), 0o755))

	records, err := Discover(root, "implement.json")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "auth", "implement.json"),
		filepath.Join(root, "billing", "implement.json"),
	}, records)

	_, err = Discover(filepath.Join(root, "missing"), "implement.json")
	assert.Error(t, err)
}

func TestRecentlyModified(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	window := 30 * time.Minute

	assert.True(t, RecentlyModified(now.Add(-time.Minute), now, window))
	assert.True(t, RecentlyModified(now.Add(-window), now, window))
	assert.True(t, RecentlyModified(now.Add(time.Hour), now, window))
	assert.False(t, RecentlyModified(now.Add(-window-time.Second), now, window))
}
