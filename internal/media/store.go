// Package media stores note attachments as blobs on the local file
// system and watches the directory for out-of-band changes.
package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store is a flat blob store rooted at a single directory. Filenames are
// the media references carried on notes.
type Store struct {
	root string
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("media: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("media: create root: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute media directory.
func (s *Store) Root() string { return s.root }

// safePath rejects names that would escape the media directory.
func (s *Store) safePath(name string) (string, error) {
	cleaned := filepath.Clean(name)
	if cleaned == "." || filepath.IsAbs(cleaned) || strings.Contains(cleaned, string(os.PathSeparator)) {
		return "", fmt.Errorf("media: invalid name: %s", name)
	}
	return filepath.Join(s.root, cleaned), nil
}

// Save atomically writes a blob: tmp file → fsync → rename.
func (s *Store) Save(name string, data []byte) error {
	abs, err := s.safePath(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.root, ".laguz-tmp-*")
	if err != nil {
		return fmt.Errorf("media: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("media: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("media: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("media: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("media: rename: %w", err)
	}
	success = true
	return nil
}

// Open returns the blob stored under name.
func (s *Store) Open(name string) ([]byte, error) {
	abs, err := s.safePath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("media: read %s: %w", name, err)
	}
	return data, nil
}

// Delete removes the blob stored under name.
func (s *Store) Delete(name string) error {
	abs, err := s.safePath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("media: delete %s: %w", name, err)
	}
	return nil
}

// List returns all stored blob names.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("media: list: %w", err)
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		out = append(out, entry.Name())
	}
	return out, nil
}
