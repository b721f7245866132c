package adaptor

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// globMatches expands a glob pattern against the filesystem by walking the
// largest static (metacharacter-free) ancestor directory of pattern and
// testing every descendant path against g. Sysfs trees are shallow, so a
// plain directory walk is sufficient here (spec.md §4.5 expansion).
func globMatches(g glob.Glob, pattern string) ([]string, error) {
	root := staticPrefix(pattern)

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		root = filepath.Dir(root)
	}

	var matches []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if g.Match(path) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// staticPrefix returns the longest directory prefix of pattern that
// contains no glob metacharacters.
func staticPrefix(pattern string) string {
	segments := strings.Split(pattern, "/")
	var static []string
	for _, seg := range segments {
		if containsGlobMeta(seg) {
			break
		}
		static = append(static, seg)
	}
	if len(static) == 0 {
		return "/"
	}
	return strings.Join(static, "/")
}
