package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ErrNoArchives is returned when a pattern matches no regular files.
var ErrNoArchives = errors.New("no archives matched")

// Archive is a local file selected for upload.
type Archive struct {
	Path string
	Name string
	Size int64
}

// ExpandArchives resolves a glob pattern into the files it names. A literal
// path that exists is accepted even if it contains glob metacharacters.
// Results are sorted by path.
func ExpandArchives(pattern string) ([]Archive, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty archive pattern", ErrNoArchives)
	}
	var matches []string
	if _, err := os.Stat(pattern); err == nil {
		matches = []string{pattern}
	} else {
		m, gerr := filepath.Glob(pattern)
		if gerr != nil {
			return nil, fmt.Errorf("invalid archive pattern %q: %w", pattern, gerr)
		}
		matches = m
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoArchives, pattern)
	}
	sort.Strings(matches)

	archives := make([]Archive, 0, len(matches))
	for _, m := range matches {
		abs, err := filepath.Abs(m)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", m, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("checking archive: %s: %w", m, err)
		}
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("archive %s is not a regular file", m)
		}
		archives = append(archives, Archive{Path: abs, Name: filepath.Base(abs), Size: info.Size()})
	}
	if err := CheckUniqueNames(archives); err != nil {
		return nil, err
	}
	return archives, nil
}

// CheckUniqueNames rejects archives that would land on the same bucket key.
func CheckUniqueNames(archives []Archive) error {
	seen := make(map[string]string, len(archives))
	for _, a := range archives {
		if prev, ok := seen[a.Name]; ok {
			return fmt.Errorf("refusing to upload %s and %s under the same name %q", prev, a.Path, a.Name)
		}
		seen[a.Name] = a.Path
	}
	return nil
}
