package discovery

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"shardrun/internal/runerrors"
)

// DefaultSuffixes are the file name suffixes treated as test sources
var DefaultSuffixes = []string{"Test.java", "Test.kt", "Test.php"}

// Scanner scans for test source files in a directory
type Scanner struct {
	skipDirs map[string]bool
	suffixes []string
}

// NewScanner creates a new Scanner with the given directories to skip.
// An empty suffix list falls back to DefaultSuffixes.
func NewScanner(skipDirs []string, suffixes []string) *Scanner {
	skipMap := make(map[string]bool)
	for _, dir := range skipDirs {
		skipMap[dir] = true
	}
	if len(suffixes) == 0 {
		suffixes = DefaultSuffixes
	}
	return &Scanner{skipDirs: skipMap, suffixes: suffixes}
}

// Scan finds all test source files under root, sorted by path
func (s *Scanner) Scan(root string) ([]string, error) {
	var testFiles []string

	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.WithStack(&runerrors.ErrInvalidArgument{
			Name:    "sourceDir",
			Value:   root,
			Message: "test source path does not exist",
		})
	}
	if !info.IsDir() {
		return nil, errors.WithStack(&runerrors.ErrInvalidArgument{
			Name:    "sourceDir",
			Value:   root,
			Message: "test source path is not a directory",
		})
	}

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			name := d.Name()
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if s.skipDirs[name] {
				return filepath.SkipDir
			}
			return nil
		}

		for _, suffix := range s.suffixes {
			if strings.HasSuffix(d.Name(), suffix) {
				testFiles = append(testFiles, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scanning %s", root)
	}

	// WalkDir is lexical already; sorting keeps the contract explicit for discovery order.
	sort.Strings(testFiles)
	return testFiles, nil
}
