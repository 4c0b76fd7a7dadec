package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// ListFiles returns the files in dir, sorted. With recursive set,
// subdirectories are searched too. When include is not nil, only paths it
// matches are returned. The pattern is tested against the full path (dir
// joined with the relative path) and must match at its start, so filter by
// extension with `.*\.csv$`.
func ListFiles(dir string, recursive bool, include *regexp.Regexp) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	pattern := "*"
	if recursive {
		pattern = "**/*"
	}

	matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		path := filepath.Join(dir, filepath.FromSlash(m))
		if include != nil && !matchesFromStart(include, path) {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

// matchesFromStart reports whether re matches s starting at index 0.
// The leftmost match starts at 0 whenever any match does.
func matchesFromStart(re *regexp.Regexp, s string) bool {
	loc := re.FindStringIndex(s)
	return loc != nil && loc[0] == 0
}
