// Package extract turns document files into plain text. Binary formats (PDF,
// spreadsheets, archives) are handled by an external extraction service behind
// the same contract; the local extractor covers plain-text formats so the
// system runs without one.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/quillan-ai/docdex/internal/domain"
)

// Extractor converts a document file into plain text.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Local reads plain-text formats straight from disk.
type Local struct{}

// NewLocal creates a local plain-text extractor.
func NewLocal() *Local { return &Local{} }

var textExtensions = map[string]struct{}{
	".txt":  {},
	".md":   {},
	".csv":  {},
	".json": {},
	".log":  {},
}

// Extract implements Extractor for plain-text files.
func (l *Local) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := textExtensions[ext]; !ok {
		return "", fmt.Errorf("extension %q: %w", ext, domain.ErrUnsupportedFileType)
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
