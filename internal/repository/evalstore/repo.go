// Package evalstore persists evaluation runs as immutable, timestamp-named
// JSON artifacts and lists them most-recent-first.
package evalstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/quillan-ai/docdex/internal/domain"
	domeval "github.com/quillan-ai/docdex/internal/domain/eval"
	"github.com/quillan-ai/docdex/internal/fsutil"
)

const (
	filePrefix    = "evaluation_results_"
	fileSuffix    = ".json"
	nameTimestamp = "20060102_150405"
)

// Repository stores run artifacts under a data directory.
type Repository struct {
	dir             string
	cleanupAttempts int
	cleanupDelay    time.Duration
	logger          *zap.Logger
}

// New creates an evaluation run repository rooted at dir.
func New(dir string, logger *zap.Logger) *Repository {
	return &Repository{
		dir:             dir,
		cleanupAttempts: 5,
		cleanupDelay:    100 * time.Millisecond,
		logger:          logger,
	}
}

// WithCleanupPolicy sets the bounded retry policy used when removing artifacts.
func (r *Repository) WithCleanupPolicy(maxAttempts int, delay time.Duration) *Repository {
	if maxAttempts > 0 {
		r.cleanupAttempts = maxAttempts
	}
	if delay > 0 {
		r.cleanupDelay = delay
	}
	return r
}

// Save writes the run as evaluation_results_<timestamp>.json and returns the
// generated filename.
func (r *Repository) Save(run *domeval.Run) (string, error) {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode run: %w: %w", err, domain.ErrStorageFailure)
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w: %w", err, domain.ErrStorageFailure)
	}

	name := filePrefix + run.Timestamp.Format(nameTimestamp) + fileSuffix
	path := filepath.Join(r.dir, name)

	tmp, err := os.CreateTemp(r.dir, name+".*")
	if err != nil {
		return "", fmt.Errorf("create temp run: %w: %w", err, domain.ErrStorageFailure)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		fsutil.Cleanup(r.logger, tmpPath, r.cleanupAttempts, r.cleanupDelay)
		return "", fmt.Errorf("write run: %w: %w", err, domain.ErrStorageFailure)
	}
	if err := tmp.Close(); err != nil {
		fsutil.Cleanup(r.logger, tmpPath, r.cleanupAttempts, r.cleanupDelay)
		return "", fmt.Errorf("close temp run: %w: %w", err, domain.ErrStorageFailure)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		fsutil.Cleanup(r.logger, tmpPath, r.cleanupAttempts, r.cleanupDelay)
		return "", fmt.Errorf("store run: %w: %w", err, domain.ErrStorageFailure)
	}

	return name, nil
}

// Load reads one run artifact by its filename.
func (r *Repository) Load(name string) (*domeval.Run, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(r.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("run %s: %w", name, domain.ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w: %w", name, err, domain.ErrStorageFailure)
	}

	var run domeval.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("parse run %s: %w: %w", name, err, domain.ErrStorageFailure)
	}
	return &run, nil
}

// History lists artifact filenames, most recent first. The timestamp naming
// makes reverse-lexicographic order chronological.
func (r *Repository) History() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w: %w", err, domain.ErrStorageFailure)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix) {
			names = append(names, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Delete removes one artifact using the bounded retry cleanup policy.
func (r *Repository) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	path := filepath.Join(r.dir, name)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("run %s: %w", name, domain.ErrRunNotFound)
	}
	if err := fsutil.RemoveWithRetry(path, r.cleanupAttempts, r.cleanupDelay); err != nil {
		return fmt.Errorf("%w: %w", err, domain.ErrStorageFailure)
	}
	return nil
}

// validateName rejects anything that is not a bare artifact filename.
func validateName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return fmt.Errorf("invalid run name %q: %w", name, domain.ErrRunNotFound)
	}
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return fmt.Errorf("invalid run name %q: %w", name, domain.ErrRunNotFound)
	}
	return nil
}
