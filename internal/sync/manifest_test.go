package sync

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(rel), 0o644))
	return path
}

func relPaths(m *Manifest) []string {
	out := make([]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		out = append(out, e.RelPath)
	}
	return out
}

func TestBuildManifest_MatchesFilesNotDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "dist/index.html")
	writeFile(t, root, "dist/css/site.css")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dist", "empty"), 0o755))

	m, err := BuildManifest(root, []string{"dist/**"}, filepath.Join(root, "dist"))
	require.NoError(t, err)
	assert.Empty(t, m.Failures)
	assert.Equal(t, []string{"css/site.css", "index.html"}, relPaths(m))
}

func TestBuildManifest_ExclusionsAlwaysWin(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "dist/index.html")
	writeFile(t, root, "dist/tmp/x.txt")

	// order of the exclusion relative to the inclusion must not matter
	for _, globs := range [][]string{
		{"dist/**", "!dist/tmp/**"},
		{"!dist/tmp/**", "dist/**"},
	} {
		m, err := BuildManifest(root, globs, filepath.Join(root, "dist"))
		require.NoError(t, err)
		assert.Equal(t, []string{"index.html"}, relPaths(m), "globs %v", globs)
	}
}

func TestBuildManifest_OverlappingIncludesDedupe(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "dist/css/site.css")

	m, err := BuildManifest(root, []string{"dist/**", "dist/css/*.css"}, filepath.Join(root, "dist"))
	require.NoError(t, err)
	assert.Equal(t, []string{"css/site.css"}, relPaths(m))
}

func TestBuildManifest_EntriesCarryFileMetadata(t *testing.T) {
	root := t.TempDir()
	abs := writeFile(t, root, "dist/index.html")
	info, err := os.Stat(abs)
	require.NoError(t, err)

	m, err := BuildManifest(root, []string{"dist/**"}, filepath.Join(root, "dist"))
	require.NoError(t, err)
	require.Len(t, m.Entries, 1)

	entry := m.Entries[0]
	assert.Equal(t, abs, entry.AbsPath)
	assert.Equal(t, info.Size(), entry.Size)
	assert.Equal(t, info.ModTime(), entry.ModTime)
}

func TestBuildManifest_FileOutsideBasePathIsPerFileFailure(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "dist/index.html")
	writeFile(t, root, "extra/readme.txt")

	m, err := BuildManifest(root, []string{"dist/**", "extra/**"}, filepath.Join(root, "dist"))
	require.NoError(t, err)

	assert.Equal(t, []string{"index.html"}, relPaths(m))
	require.Len(t, m.Failures, 1)

	var pathErr *PathResolutionError
	assert.ErrorAs(t, m.Failures[0].Err, &pathErr)
}

func TestBuildManifest_RootedAtBasePath(t *testing.T) {
	// the output dir can be an absolute path anywhere, the manifest is
	// then rooted at the dir itself with a bare ** glob
	outDir := filepath.Join(t.TempDir(), "site-out")
	writeFile(t, outDir, "index.html")
	writeFile(t, outDir, "css/site.css")

	m, err := BuildManifest(outDir, []string{"**"}, outDir)
	require.NoError(t, err)
	assert.Empty(t, m.Failures)
	assert.Equal(t, []string{"css/site.css", "index.html"}, relPaths(m))
}

func TestBuildManifest_MalformedExclusionIsAnError(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "dist/index.html")

	_, err := BuildManifest(root, []string{"dist/**", "!dist/["}, filepath.Join(root, "dist"))
	require.Error(t, err)
	assert.ErrorIs(t, err, doublestar.ErrBadPattern)
}

func TestBuildManifest_DeterministicOrder(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{"dist/b.txt", "dist/a.txt", "dist/sub/c.txt"} {
		writeFile(t, root, rel)
	}

	first, err := BuildManifest(root, []string{"dist/**"}, filepath.Join(root, "dist"))
	require.NoError(t, err)
	second, err := BuildManifest(root, []string{"dist/**"}, filepath.Join(root, "dist"))
	require.NoError(t, err)

	assert.Equal(t, relPaths(first), relPaths(second))
}
