// Package localfs stages uploaded source files and page excerpts on the
// local filesystem until ingestion finishes with them.
package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type Stager struct {
	basePath string
}

func New(basePath string) (*Stager, error) {
	if basePath == "" {
		basePath = "./data/staging"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Stager{basePath: basePath}, nil
}

// Stage writes data under key and returns the absolute path of the staged
// file.
func (s *Stager) Stage(_ context.Context, key string, data io.Reader) (string, error) {
	path := filepath.Join(s.basePath, filepath.Base(key))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create staged file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write staged file: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}

// Remove deletes a staged file. Missing files are not an error: cleanup runs
// from deferred paths that may race a successful earlier removal.
func (s *Stager) Remove(_ context.Context, path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove staged file: %w", err)
	}
	return nil
}
