package ticket

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"
)

const filePerms = 0o644

// FileBackend keeps the document in a single JSON file.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend rooted at path. The file is created on first write.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the document location.
func (b *FileBackend) Path() string {
	return b.path
}

func (b *FileBackend) Read(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.path, err)
	}
	return data, nil
}

func (b *FileBackend) Write(_ context.Context, data []byte) error {
	if dir := filepath.Dir(b.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	_, statErr := os.Stat(b.path)
	if err := atomic.WriteFile(b.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", b.path, err)
	}
	// atomic.WriteFile leaves new files with temp-file permissions
	if errors.Is(statErr, fs.ErrNotExist) {
		if err := os.Chmod(b.path, filePerms); err != nil {
			return fmt.Errorf("chmod %s: %w", b.path, err)
		}
	}
	return nil
}

// Quarantine renames the corrupt file next to the live document so it can be inspected later.
func (b *FileBackend) Quarantine(_ context.Context, data []byte, at time.Time) (string, error) {
	dest := fmt.Sprintf("%s.corrupt-%s-%s", b.path, at.Format("20060102150405"), uuid.NewString()[:8])
	err := os.Rename(b.path, dest)
	if errors.Is(err, fs.ErrNotExist) {
		err = os.WriteFile(dest, data, filePerms)
	}
	if err != nil {
		return "", fmt.Errorf("quarantine %s: %w", b.path, err)
	}
	return dest, nil
}
