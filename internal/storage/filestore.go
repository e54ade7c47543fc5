package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileStore implements Store on the local filesystem, rooted at a base
// directory. An empty root treats paths as-is.
type FileStore struct {
	root string
}

// NewFileStore creates a file-backed store rooted at the given directory.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (f *FileStore) resolve(path string) string {
	if f.root == "" {
		return path
	}
	return filepath.Join(f.root, path)
}

func (f *FileStore) Read(path string) (string, error) {
	data, err := f.ReadBinary(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (f *FileStore) ReadBinary(path string) ([]byte, error) {
	data, err := os.ReadFile(f.resolve(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func (f *FileStore) Write(path string, content string) error {
	full := f.resolve(path)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (f *FileStore) Append(path string, content string) error {
	full := f.resolve(path)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	file, err := os.OpenFile(full, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s for append: %w", path, err)
	}
	defer file.Close()
	if _, err := file.WriteString(content); err != nil {
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return nil
}

func (f *FileStore) Rename(path, newPath string) error {
	if err := os.Rename(f.resolve(path), f.resolve(newPath)); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", path, newPath, err)
	}
	return nil
}

func (f *FileStore) Exists(path string) bool {
	_, err := os.Stat(f.resolve(path))
	return err == nil
}

func (f *FileStore) ListChildren(path string) ([]string, error) {
	entries, err := os.ReadDir(f.resolve(path))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", path, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}
