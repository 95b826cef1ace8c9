package sync

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Manifest is the concrete set of local files matched by a glob
// configuration at a point in time, keyed by destination-relative path.
type Manifest struct {
	Entries  []*ManifestEntry
	Failures []Failure
}

// BuildManifest enumerates local files under rootDir matching the glob set.
// Patterns prefixed with "!" are exclusions and remove files from the
// inclusion set regardless of pattern order. Relative paths are computed by
// stripping basePath, which must be rootDir or a directory beneath it; a
// matched file outside basePath is recorded as a per-file failure, not a
// fatal error.
func BuildManifest(rootDir string, globs []string, basePath string) (*Manifest, error) {
	rootDir = filepath.Clean(rootDir)
	basePath = filepath.Clean(basePath)

	var includes, excludes []string
	for _, g := range globs {
		if neg, ok := strings.CutPrefix(g, "!"); ok {
			// includes are validated by Glob itself, exclusions are
			// only ever passed to Match so they are checked here
			if !doublestar.ValidatePattern(neg) {
				return nil, fmt.Errorf("glob %q: %w", g, doublestar.ErrBadPattern)
			}
			excludes = append(excludes, neg)
		} else {
			includes = append(includes, g)
		}
	}

	fsys := os.DirFS(rootDir)
	matched := make(map[string]fs.FileInfo)

	for _, pattern := range includes {
		paths, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, p := range paths {
			if _, ok := matched[p]; ok {
				continue
			}
			info, err := fs.Stat(fsys, p)
			if err != nil {
				return nil, fmt.Errorf("stat %q: %w", p, err)
			}
			if info.IsDir() {
				continue
			}
			matched[p] = info
		}
	}

	m := &Manifest{}
	seen := make(map[string]string)

	paths := make([]string, 0, len(matched))
	for p := range matched {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if excluded(excludes, p) {
			continue
		}

		absPath := filepath.Join(rootDir, p)
		relPath, err := relativeTo(basePath, absPath)
		if err != nil {
			m.Failures = append(m.Failures, Failure{RelPath: p, Err: err})
			continue
		}

		if prev, ok := seen[relPath]; ok {
			m.Failures = append(m.Failures, Failure{RelPath: p, Err: &PathResolutionError{
				Path:   absPath,
				Reason: fmt.Sprintf("collides with %s at %s", prev, relPath),
			}})
			continue
		}
		seen[relPath] = absPath

		info := matched[p]
		m.Entries = append(m.Entries, &ManifestEntry{
			RelPath: relPath,
			AbsPath: absPath,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	return m, nil
}

func excluded(excludes []string, path string) bool {
	for _, pattern := range excludes {
		if doublestar.MatchUnvalidated(pattern, path) {
			return true
		}
	}
	return false
}

// relativeTo maps an absolute file path to a slash-separated path relative
// to base. The mapping is stable: distinct files under base always yield
// distinct relative paths.
func relativeTo(base, path string) (string, error) {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return "", &PathResolutionError{Path: path, Reason: err.Error()}
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &PathResolutionError{Path: path, Reason: fmt.Sprintf("not beneath base path %s", base)}
	}
	return filepath.ToSlash(rel), nil
}
