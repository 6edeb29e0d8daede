package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/quillan-ai/docdex/internal/domain"
	"github.com/quillan-ai/docdex/internal/metrics"
)

const chunkingMethod = "simple_text_splitting"

// Service owns the document index lifecycle: discovery of files in the
// watched directory, per-document indexing into vector store collections, and
// the durable name-to-collection mapping. The index is the single shared
// mutable resource; a mutex at this boundary serializes writers while the
// background auto-indexer and request handlers run concurrently.
type Service struct {
	repo    Repository
	store   VectorStore
	extract Extractor
	chunk   Chunker

	docsDir  string
	patterns []string
	exts     map[string]struct{}

	mu  sync.Mutex
	idx *domain.Index

	logger *zap.Logger
}

// New creates an index service. The persisted index is loaded eagerly; a
// corrupt or unreadable file degrades to an empty in-memory index.
func New(repo Repository, store VectorStore, extract Extractor, chunk Chunker, docsDir string, logger *zap.Logger) *Service {
	s := &Service{
		repo:     repo,
		store:    store,
		extract:  extract,
		chunk:    chunk,
		docsDir:  docsDir,
		patterns: []string{"*"},
		exts: map[string]struct{}{
			".txt": {}, ".md": {}, ".csv": {}, ".json": {}, ".log": {},
		},
		logger: logger,
	}

	idx, err := repo.Load()
	if err != nil {
		logger.Error("failed to load index, starting empty", zap.Error(err))
		idx = domain.NewIndex()
	}
	s.idx = idx
	return s
}

// WithExtensions replaces the supported extension set (lowercase, with dots).
func (s *Service) WithExtensions(exts []string) *Service {
	if len(exts) == 0 {
		return s
	}
	m := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		m[strings.ToLower(e)] = struct{}{}
	}
	s.exts = m
	return s
}

// WithPatterns replaces the discovery glob patterns (doublestar, relative to
// the documents directory).
func (s *Service) WithPatterns(patterns []string) *Service {
	if len(patterns) > 0 {
		s.patterns = patterns
	}
	return s
}

// Files returns the supported files currently in the watched directory, sorted.
func (s *Service) Files() ([]string, error) {
	if _, err := os.Stat(s.docsDir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	fsys := os.DirFS(s.docsDir)
	seen := make(map[string]struct{})
	for _, pattern := range s.patterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			info, err := fs.Stat(fsys, m)
			if err != nil || info.IsDir() {
				continue
			}
			if _, ok := s.exts[strings.ToLower(filepath.Ext(m))]; ok {
				seen[m] = struct{}{}
			}
		}
	}

	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}

// IsIndexed reports whether name has a record.
func (s *Service) IsIndexed(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx.IsIndexed(name)
}

// Indexed returns all indexed document names, sorted.
func (s *Service) Indexed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx.Names()
}

// Info returns the record for one document.
func (s *Service) Info(name string) (domain.DocumentRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.idx.Documents[name]
	return rec, ok
}

// Reload refreshes the in-memory index from durable storage and returns a
// snapshot. Searches call this first so documents indexed by another process
// become visible; freshness is eventually consistent, not transactional.
func (s *Service) Reload() (*domain.Index, error) {
	idx, err := s.repo.Load()
	if err != nil {
		return nil, fmt.Errorf("reload index: %w", err)
	}
	s.mu.Lock()
	s.idx = idx
	snapshot := idx.Clone()
	s.mu.Unlock()
	return snapshot, nil
}

// IndexDocument indexes a single file from the watched directory: extract,
// chunk, store chunks under stable ids in the derived collection, record.
// Indexing the same name again rebuilds its collection from scratch.
func (s *Service) IndexDocument(ctx context.Context, name string) error {
	if err := s.indexOne(ctx, name); err != nil {
		metrics.IndexOperationsTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.IndexOperationsTotal.WithLabelValues("success").Inc()
	return nil
}

func (s *Service) indexOne(ctx context.Context, name string) error {
	path := filepath.Join(s.docsDir, name)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("document file %s: %w", name, err)
	}

	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := s.exts[ext]; !ok {
		return fmt.Errorf("document %s has extension %q: %w", name, ext, domain.ErrUnsupportedFileType)
	}

	text, err := s.extract.Extract(ctx, path)
	if err != nil {
		return fmt.Errorf("extract %s: %w", name, err)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("document %s: %w", name, domain.ErrExtractionEmpty)
	}

	chunks := s.chunk.Chunk(text)
	if len(chunks) == 0 {
		return fmt.Errorf("document %s: %w", name, domain.ErrExtractionEmpty)
	}

	// A shorter re-indexed document must not leave chunks from the longer
	// previous version behind, so the old collection goes first.
	if old, ok := s.Info(name); ok {
		if err := s.store.DeleteCollection(ctx, old.CollectionName); err != nil {
			return fmt.Errorf("reset collection for %s: %w", name, err)
		}
	}

	coll := domain.DeriveCollectionName(name)
	if err := s.store.EnsureCollection(ctx, coll, map[string]string{"source": path}); err != nil {
		return fmt.Errorf("ensure collection for %s: %w", name, err)
	}

	ids := make([]string, len(chunks))
	for i := range chunks {
		ids[i] = fmt.Sprintf("%s_%d", coll, i)
	}
	if err := s.store.AddChunks(ctx, coll, chunks, ids); err != nil {
		return fmt.Errorf("store chunks for %s: %w", name, err)
	}

	rec := domain.DocumentRecord{
		CollectionName: coll,
		SourcePath:     path,
		FileName:       filepath.Base(name),
		FileType:       strings.TrimPrefix(ext, "."),
		FileSizeBytes:  info.Size(),
		TextLength:     len(text),
		IndexedAt:      time.Now().UTC(),
		ChunkingMethod: chunkingMethod,
	}

	s.mu.Lock()
	s.idx.Put(name, rec)
	saveErr := s.repo.Save(s.idx)
	s.mu.Unlock()

	if saveErr != nil {
		// The record stays live in memory; the caller learns persistence
		// did not happen.
		s.logger.Error("index persisted in memory only", zap.String("document", name), zap.Error(saveErr))
		return fmt.Errorf("persist index for %s: %w", name, saveErr)
	}

	s.logger.Info("indexed document",
		zap.String("document", name),
		zap.String("collection", coll),
		zap.Int("chunks", len(chunks)),
		zap.Int("text_length", len(text)),
	)
	return nil
}

// IndexAll indexes every supported file not already present in the index.
// Individual failures do not stop the batch; already-indexed names report
// success without re-work.
func (s *Service) IndexAll(ctx context.Context) (map[string]bool, error) {
	files, err := s.Files()
	if err != nil {
		return nil, err
	}

	s.logger.Info("indexing watched directory", zap.Int("files", len(files)))

	results := make(map[string]bool, len(files))
	for _, name := range files {
		if s.IsIndexed(name) {
			results[name] = true
			continue
		}
		if err := s.IndexDocument(ctx, name); err != nil {
			s.logger.Warn("indexing failed", zap.String("document", name), zap.Error(err))
			results[name] = false
			continue
		}
		results[name] = true
	}
	return results, nil
}

// AutoIndexNew indexes only files absent from the index; incremental catch-up
// without a full rebuild. The result covers just the newly attempted files.
func (s *Service) AutoIndexNew(ctx context.Context) (map[string]bool, error) {
	files, err := s.Files()
	if err != nil {
		return nil, err
	}

	results := make(map[string]bool)
	for _, name := range files {
		if s.IsIndexed(name) {
			continue
		}
		s.logger.Info("auto-indexing new file", zap.String("document", name))
		if err := s.IndexDocument(ctx, name); err != nil {
			s.logger.Warn("auto-indexing failed", zap.String("document", name), zap.Error(err))
			results[name] = false
			continue
		}
		results[name] = true
	}
	return results, nil
}

// Rebuild destroys every collection and the index, then re-indexes the whole
// directory. Destructive; the boundary requires explicit confirmation.
// Partial failure during re-indexing is reported per document.
func (s *Service) Rebuild(ctx context.Context) (map[string]bool, error) {
	colls, err := s.store.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	for _, coll := range colls {
		if err := s.store.DeleteCollection(ctx, coll); err != nil {
			s.logger.Warn("failed to delete collection during rebuild",
				zap.String("collection", coll), zap.Error(err))
		}
	}

	s.mu.Lock()
	s.idx = domain.NewIndex()
	if err := s.repo.Save(s.idx); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("persist cleared index: %w", err)
	}
	s.mu.Unlock()

	s.logger.Info("index cleared, re-indexing", zap.Int("collections_deleted", len(colls)))
	return s.IndexAll(ctx)
}

// Remove deletes a document: its collection, both index entries, and the
// persisted file.
func (s *Service) Remove(ctx context.Context, name string) error {
	s.mu.Lock()
	coll, ok := s.idx.CollectionFor(name)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("document %s: %w", name, domain.ErrNotIndexed)
	}

	if err := s.store.DeleteCollection(ctx, coll); err != nil {
		return fmt.Errorf("delete collection for %s: %w", name, err)
	}

	s.mu.Lock()
	s.idx.Remove(name)
	saveErr := s.repo.Save(s.idx)
	s.mu.Unlock()

	if saveErr != nil {
		return fmt.Errorf("persist index after removing %s: %w", name, saveErr)
	}

	s.logger.Info("removed document", zap.String("document", name), zap.String("collection", coll))
	return nil
}

// ReconcileOrphans deletes vector store collections that have no index entry,
// for example after manual deletion of a source file. Returns the count removed.
func (s *Service) ReconcileOrphans(ctx context.Context) (int, error) {
	colls, err := s.store.ListCollections(ctx)
	if err != nil {
		return 0, fmt.Errorf("list collections: %w", err)
	}

	s.mu.Lock()
	known := make(map[string]struct{}, len(s.idx.Collections))
	for coll := range s.idx.Collections {
		known[coll] = struct{}{}
	}
	s.mu.Unlock()

	removed := 0
	for _, coll := range colls {
		if _, ok := known[coll]; ok {
			continue
		}
		if err := s.store.DeleteCollection(ctx, coll); err != nil {
			s.logger.Warn("failed to delete orphaned collection",
				zap.String("collection", coll), zap.Error(err))
			continue
		}
		s.logger.Info("deleted orphaned collection", zap.String("collection", coll))
		removed++
	}
	return removed, nil
}

// Status reports the current knowledge base state.
func (s *Service) Status() (domain.Status, error) {
	files, err := s.Files()
	if err != nil {
		return domain.Status{}, err
	}
	indexed := s.Indexed()

	indexedSet := make(map[string]struct{}, len(indexed))
	for _, name := range indexed {
		indexedSet[name] = struct{}{}
	}
	pending := make([]string, 0)
	for _, f := range files {
		if _, ok := indexedSet[f]; !ok {
			pending = append(pending, f)
		}
	}

	exts := make([]string, 0, len(s.exts))
	for e := range s.exts {
		exts = append(exts, e)
	}
	sort.Strings(exts)

	return domain.Status{
		TotalDocuments:      len(files),
		IndexedDocuments:    len(indexed),
		IndexedList:         indexed,
		PendingList:         pending,
		SupportedExtensions: exts,
	}, nil
}
