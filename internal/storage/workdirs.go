package storage

import (
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// WorkDirs lays out one scratch directory per queue item under root.
type WorkDirs struct {
	root string
}

func NewWorkDirs(root string) *WorkDirs {
	return &WorkDirs{root: root}
}

func (w *WorkDirs) Root() string { return w.root }

// Path returns the work dir of id without creating it. Distinct ids always
// get distinct dirs: ids that are already safe file names are used as is,
// any other id is hex encoded behind a "_" prefix that plain names never
// carry.
func (w *WorkDirs) Path(id string) string {
	return filepath.Join(w.root, dirName(id))
}

func dirName(id string) string {
	if id != "" && Sanitize(id) == id && !strings.HasPrefix(id, "_") {
		return id
	}
	return "_" + hex.EncodeToString([]byte(id))
}

// Create makes sure the work dir of id exists and returns it.
func (w *WorkDirs) Create(id string) (string, error) {
	dir := w.Path(id)
	if err := EnsureDir(dir); err != nil {
		return "", fmt.Errorf("failed to create work dir: %w", err)
	}
	return dir, nil
}

// Clean removes the work dir of id. A missing dir is not an error.
func (w *WorkDirs) Clean(id string) error {
	if err := os.RemoveAll(w.Path(id)); err != nil {
		return fmt.Errorf("failed to clean work dir: %w", err)
	}
	return nil
}

// AudioFiles lists media files below the work dir of id, sorted.
func (w *WorkDirs) AudioFiles(id string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(w.Path(id), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsAudioFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list work dir: %w", err)
	}
	sort.Strings(files)
	return files, nil
}
