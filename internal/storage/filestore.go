// Package storage keeps uploaded safety document files on local disk.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

var (
	ErrFileMissing = errors.New("file not found on disk")
	ErrTooLarge    = errors.New("file exceeds the upload size limit")
)

// FileStore writes files under root/<kind>/<docID>_<uuid>.pdf.
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// Save streams r to a new file, rejecting content over maxBytes. The file
// only appears under its final name once fully written.
func (s *FileStore) Save(kind string, docID uint64, r io.Reader, maxBytes int64) (string, int64, error) {
	dir := filepath.Join(s.root, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create upload dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, io.LimitReader(r, maxBytes+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", 0, fmt.Errorf("write upload: %w", err)
	}
	if size > maxBytes {
		return "", 0, ErrTooLarge
	}

	path := filepath.Join(dir, fmt.Sprintf("%d_%s.pdf", docID, uuid.NewString()))
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", 0, fmt.Errorf("store upload: %w", err)
	}
	return path, size, nil
}

// Open opens a stored file. A path with nothing on disk is ErrFileMissing.
func (s *FileStore) Open(path string) (*os.File, os.FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrFileMissing
		}
		return nil, nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, nil, ErrFileMissing
	}
	return f, info, nil
}

// Remove deletes a stored file. A file that is already gone is not an error.
func (s *FileStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
