package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDir is the download directory used when none is configured.
const DefaultDir = "attachments"

const tempPattern = ".download-*.tmp"

// ErrInvalidName is returned for names that do not denote a file directly
// inside the store directory.
var ErrInvalidName = errors.New("invalid attachment file name")

// DirStore stores attachments as files named after their filename.
type DirStore struct {
	Dir string
}

// NewDirStore returns a store rooted at dir, or at DefaultDir when dir is empty.
func NewDirStore(dir string) *DirStore {
	if dir == "" {
		dir = DefaultDir
	}
	return &DirStore{Dir: dir}
}

// Path returns the location of name inside the store directory.
func (s *DirStore) Path(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) ||
		filepath.Base(name) != name {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.Dir, name), nil
}

// Exists reports whether name has already been saved.
func (s *DirStore) Exists(name string) (bool, error) {
	path, err := s.Path(name)
	if err != nil {
		return false, err
	}

	if _, err := os.Lstat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return true, nil
}

// Save writes data to name, creating the store directory when needed. An
// existing file with the same name is replaced.
func (s *DirStore) Save(name string, data []byte) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}

	// Fixed-length pattern; the attachment name may already be near NAME_MAX.
	tmp, err := os.CreateTemp(s.Dir, tempPattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanupTmp := true
	defer func() {
		if cleanupTmp {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file %s: %w", tmpPath, err)
	}
	if err := tmp.Chmod(0644); err != nil {
		return fmt.Errorf("chmod temp file %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename %s into %s: %w", tmpPath, path, err)
	}
	cleanupTmp = false

	return nil
}
