// Package kbindex persists the knowledge base index as a JSON document on
// disk. Loading tolerates the legacy schema that kept the documents mapping
// under the top-level key "pdfs" and rewrites it in place.
package kbindex

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/quillan-ai/docdex/internal/domain"
	"github.com/quillan-ai/docdex/internal/fsutil"
)

const indexFileName = "knowledge_base_index.json"

// Repository stores the index file under a data directory.
type Repository struct {
	path   string
	logger *zap.Logger
}

// New creates an index repository rooted at dir.
func New(dir string, logger *zap.Logger) *Repository {
	return &Repository{path: filepath.Join(dir, indexFileName), logger: logger}
}

// Path returns the index file location.
func (r *Repository) Path() string { return r.path }

// indexFile mirrors the on-disk layout, including the legacy key.
type indexFile struct {
	Documents   map[string]domain.DocumentRecord `json:"documents,omitempty"`
	LegacyPDFs  map[string]domain.DocumentRecord `json:"pdfs,omitempty"`
	Collections map[string]string                `json:"collections,omitempty"`
}

// Load reads the index from disk. A missing file yields an empty index. A
// legacy file keyed by "pdfs" is migrated to "documents" and rewritten so
// subsequent readers see the current schema.
func (r *Repository) Load() (*domain.Index, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewIndex(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read index: %w: %w", err, domain.ErrStorageFailure)
	}

	var file indexFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse index: %w: %w", err, domain.ErrStorageFailure)
	}

	migrated := false
	if file.Documents == nil && file.LegacyPDFs != nil {
		r.logger.Info("migrating legacy index key", zap.String("from", "pdfs"), zap.String("to", "documents"))
		file.Documents = file.LegacyPDFs
		file.LegacyPDFs = nil
		migrated = true
	}

	idx := domain.NewIndex()
	for name, rec := range file.Documents {
		idx.Documents[name] = rec
	}
	for coll, name := range file.Collections {
		idx.Collections[coll] = name
	}
	// Older files carried no inverse map; rebuild it from the records.
	if len(idx.Collections) == 0 {
		for name, rec := range idx.Documents {
			idx.Collections[rec.CollectionName] = name
		}
	}

	if migrated {
		if err := r.Save(idx); err != nil {
			r.logger.Warn("failed to rewrite migrated index", zap.Error(err))
		}
	}

	return idx, nil
}

// Save writes the index atomically: temp file in the same directory, then
// rename. The temp file is cleaned up on every failure path.
func (r *Repository) Save(idx *domain.Index) error {
	data, err := json.MarshalIndent(indexFile{
		Documents:   idx.Documents,
		Collections: idx.Collections,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index: %w: %w", err, domain.ErrStorageFailure)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w: %w", err, domain.ErrStorageFailure)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), indexFileName+".*")
	if err != nil {
		return fmt.Errorf("create temp index: %w: %w", err, domain.ErrStorageFailure)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		fsutil.Cleanup(r.logger, tmpPath, 3, 50*time.Millisecond)
		return fmt.Errorf("write index: %w: %w", err, domain.ErrStorageFailure)
	}
	if err := tmp.Close(); err != nil {
		fsutil.Cleanup(r.logger, tmpPath, 3, 50*time.Millisecond)
		return fmt.Errorf("close temp index: %w: %w", err, domain.ErrStorageFailure)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		fsutil.Cleanup(r.logger, tmpPath, 3, 50*time.Millisecond)
		return fmt.Errorf("replace index: %w: %w", err, domain.ErrStorageFailure)
	}
	return nil
}
