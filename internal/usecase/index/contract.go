package index

import (
	"context"

	"github.com/quillan-ai/docdex/internal/domain"
)

// Repository persists the knowledge base index.
type Repository interface {
	Load() (*domain.Index, error)
	Save(idx *domain.Index) error
}

// Extractor converts a document file into plain text.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Chunker splits extracted text into overlapping chunks.
type Chunker interface {
	Chunk(text string) []string
}

// VectorStore is the per-document collection backend.
type VectorStore interface {
	EnsureCollection(ctx context.Context, name string, metadata map[string]string) error
	AddChunks(ctx context.Context, collection string, texts, ids []string) error
	DeleteCollection(ctx context.Context, name string) error
	ListCollections(ctx context.Context) ([]string, error)
}
