// Package fsutil holds the small directory/file helpers the teacher
// kept in utils/helpers.go, generalized for the store's on-disk run
// files (C_{level}_{runID}.txt) instead of the teacher's sstable
// files.
package fsutil

import (
	"os"
	"path/filepath"
	"strings"
)

// CreateDirectory creates dir if it does not already exist.
func CreateDirectory(dir string) error {
	if _, err := os.Stat(dir); err == nil {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

// ListFilesWithSuffix returns the paths under dir whose name ends in
// suffix, creating dir if it does not yet exist.
func ListFilesWithSuffix(dir, suffix string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		CreateDirectory(dir)
		return nil
	}

	var paths []string
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths
}
