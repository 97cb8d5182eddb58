// Package keystore persists private key material of newly created key pairs
package keystore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/celestiaorg/ec2api/internal/logger"
)

// FileMode is the permission of a written key file: owner read only
const FileMode fs.FileMode = 0400

// writeMode is used while the file is being written
const writeMode fs.FileMode = 0600

// Store writes <dir>/<name>.pem files
type Store struct {
	dir string
}

// New creates a store rooted at dir. An empty dir means the working directory.
func New(dir string) *Store {
	if dir == "" {
		dir = "."
	}
	return &Store{dir: dir}
}

// Dir returns the directory keys are written to
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file a key named name is written to
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+".pem")
}

// Write saves material for key name and restricts the file to owner read.
// The write is complete when Write returns. A file left from an earlier key of the same name
// is replaced.
func (s *Store) Write(name, material string) (string, error) {
	if name == "" || filepath.Base(name) != name || name == ".." {
		return "", fmt.Errorf("invalid key name %q", name)
	}

	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create key directory %s: %w", s.dir, err)
	}

	path := s.Path(name)
	if err := os.Chmod(path, writeMode); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to make existing key file %s writable: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, writeMode)
	if err != nil {
		return "", fmt.Errorf("failed to open key file %s: %w", path, err)
	}
	if _, err := f.WriteString(material); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write key file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close key file %s: %w", path, err)
	}

	// Not rolled back on failure: the key pair already exists at the provider.
	if err := os.Chmod(path, FileMode); err != nil {
		return path, fmt.Errorf("failed to restrict key file %s: %w", path, err)
	}

	logger.DebugWithFields("Wrote private key", logger.Fields{"key_name": name, "path": path})
	return path, nil
}
