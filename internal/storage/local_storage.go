package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}

// SaveFile writes r to a temp file next to the target and renames it into
// place, so readers never observe a partial clip.
func (ls *LocalStorage) SaveFile(name string, r io.Reader) (string, error) {
	fullPath, err := ls.Path(name)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".tmp-"+filepath.Base(fullPath)+"-*")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}

	return fullPath, nil
}

func (ls *LocalStorage) OpenFile(name string) (io.ReadSeekCloser, error) {
	fullPath, err := ls.Path(name)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

func (ls *LocalStorage) DeleteFile(name string) error {
	fullPath, err := ls.Path(name)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// Path resolves name inside the store root.
func (ls *LocalStorage) Path(name string) (string, error) {
	if name == "" || filepath.IsAbs(name) {
		return "", ErrInvalidPath
	}
	cleanPath := filepath.Clean(name)
	if cleanPath == "." || cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return filepath.Join(ls.basePath, cleanPath), nil
}

// Open opens an artifact by the full path SaveFile returned for it.
func Open(fullPath string) (io.ReadSeekCloser, error) {
	if fullPath == "" {
		return nil, ErrInvalidPath
	}
	ls := &LocalStorage{basePath: filepath.Dir(fullPath)}
	return ls.OpenFile(filepath.Base(fullPath))
}
