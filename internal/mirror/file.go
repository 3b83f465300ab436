package mirror

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dvloznov/scrap-tracker/internal/domain"
)

// FileMirror stores the slot as <dir>/<slot>.json.
type FileMirror struct {
	path string
}

// NewFileMirror returns a mirror writing to dir, creating it if needed.
func NewFileMirror(dir, slot string) (*FileMirror, error) {
	if slot == "" {
		slot = DefaultSlot
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("NewFileMirror: creating %s: %w", dir, err)
	}
	return &FileMirror{path: filepath.Join(dir, slot+".json")}, nil
}

// Path is the file backing the slot.
func (m *FileMirror) Path() string { return m.path }

// Load reads the slot. A missing file is an empty slot.
func (m *FileMirror) Load(_ context.Context) ([]domain.Record, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FileMirror.Load: %w", err)
	}
	return Decode(data), nil
}

// Save replaces the slot through a temporary file and a rename, so readers
// never see a partial write.
func (m *FileMirror) Save(_ context.Context, recs []domain.Record) error {
	data, err := Encode(recs)
	if err != nil {
		return fmt.Errorf("FileMirror.Save: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.path), filepath.Base(m.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("FileMirror.Save: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("FileMirror.Save: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("FileMirror.Save: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		return fmt.Errorf("FileMirror.Save: rename: %w", err)
	}
	return nil
}
