// Package local stores record files in a directory on the local filesystem.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// recordPerm is the mode of written record files.
const recordPerm = 0o644

// Config captures the parameters for the local record directory.
type Config struct {
	// BaseDir is the output directory; record files are written directly
	// beneath it.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// BlobStore writes record files under a base directory. Each write lands
// in a temp file that is renamed into place, so an interrupted write never
// leaves a truncated record.
type BlobStore struct {
	baseDir string
}

// New prepares BaseDir, creating it when missing, and fails early when it is
// not a writable directory.
func New(cfg Config) (*BlobStore, error) {
	dir := strings.TrimSpace(cfg.BaseDir)
	if dir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		return nil, fmt.Errorf("output path %s is not a directory", dir)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return nil, fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	_ = probe.Close()
	if err := os.Remove(probe.Name()); err != nil {
		return nil, fmt.Errorf("remove probe file: %w", err)
	}

	return &BlobStore{baseDir: filepath.Clean(dir)}, nil
}

// PutObject replaces the file at key under the base directory with the
// contents of data and returns its file:// URI. Keys must be relative and
// stay inside the base directory.
func (s *BlobStore) PutObject(ctx context.Context, key string, _ string, data io.Reader) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("key is required")
	}
	if !filepath.IsLocal(key) {
		return "", fmt.Errorf("key %q escapes the output directory", key)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dest := filepath.Join(s.baseDir, key)
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*")
	if err != nil {
		return "", fmt.Errorf("create temp for %s: %w", key, err)
	}
	if err := fill(tmp, data); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("rename %s: %w", key, err)
	}
	return "file://" + dest, nil
}

// fill copies data into f, sets the record mode and closes f.
func fill(f *os.File, data io.Reader) error {
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(recordPerm); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
