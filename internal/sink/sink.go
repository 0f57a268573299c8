// Package sink persists normalized records and the crawl index.
//
// Record files go through a BlobStore (local directory or GCS bucket). The
// index is buffered in memory and written once, atomically, by Flush; a run
// that aborts before Flush leaves no index file behind.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/JakeFAU/jorei-crawler/internal/jorei"
)

// ErrIO marks failures writing records or the index.
var ErrIO = errors.New("output failure")

const recordContentType = "application/json"

// BlobStore stores one object and returns its URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Catalog mirrors index entries into an external store.
type Catalog interface {
	StoreEntries(ctx context.Context, runID uuid.UUID, entries []jorei.IndexEntry) error
}

// Config controls where the index is written.
type Config struct {
	IndexPath string
	// Catalog is optional.
	Catalog Catalog
}

// Sink writes record files immediately and the index on Flush.
type Sink struct {
	store     BlobStore
	indexPath string
	catalog   Catalog
	entries   []jorei.IndexEntry
}

// New builds a Sink writing records to store.
func New(store BlobStore, cfg Config) (*Sink, error) {
	if store == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if strings.TrimSpace(cfg.IndexPath) == "" {
		return nil, fmt.Errorf("index path is required")
	}
	return &Sink{
		store:     store,
		indexPath: cfg.IndexPath,
		catalog:   cfg.Catalog,
	}, nil
}

// WriteRecord serializes rec to <id>.json, replacing any existing file, and
// returns the number of bytes written.
func (s *Sink) WriteRecord(ctx context.Context, id string, rec jorei.Record) (int64, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("%w: encode record %s: %w", ErrIO, id, err)
	}
	if _, err := s.store.PutObject(ctx, id+".json", recordContentType, bytes.NewReader(data)); err != nil {
		return 0, fmt.Errorf("%w: write record %s: %w", ErrIO, id, err)
	}
	return int64(len(data)), nil
}

// Append buffers an index entry. Entries keep call order.
func (s *Sink) Append(entry jorei.IndexEntry) {
	s.entries = append(s.entries, entry)
}

// buffered reports how many entries are waiting for Flush.
func (s *Sink) buffered() int {
	return len(s.entries)
}

// Flush writes the buffered entries as a JSON array to the index path and
// then mirrors them to the catalog when one is configured.
func (s *Sink) Flush(ctx context.Context, runID uuid.UUID) error {
	entries := s.entries
	if entries == nil {
		entries = []jorei.IndexEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode index: %w", ErrIO, err)
	}
	if err := writeAtomic(ctx, s.indexPath, data); err != nil {
		return fmt.Errorf("%w: write index %s: %w", ErrIO, s.indexPath, err)
	}
	if s.catalog != nil {
		if err := s.catalog.StoreEntries(ctx, runID, s.entries); err != nil {
			return fmt.Errorf("%w: catalog: %w", ErrIO, err)
		}
	}
	return nil
}

// writeAtomic writes data to a temp file beside dest and renames it into
// place, so readers never observe a partial index.
func writeAtomic(ctx context.Context, dest string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".index-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
