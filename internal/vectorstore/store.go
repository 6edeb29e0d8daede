// Package vectorstore defines the contract the core holds against the
// vector-similarity collaborator: named per-document collections that accept
// chunk documents and answer nearest-neighbor queries by distance.
package vectorstore

import "context"

// Hit is one nearest-neighbor result: chunk text plus its dissimilarity
// distance (non-negative, lower = more similar).
type Hit struct {
	Text     string
	Distance float64
}

// Store is the vector store collaborator.
type Store interface {
	// EnsureCollection creates the named collection if absent. Idempotent.
	EnsureCollection(ctx context.Context, name string, metadata map[string]string) error
	// AddChunks inserts chunk texts under the given stable ids. Re-inserting
	// the same ids overwrites in place.
	AddChunks(ctx context.Context, collection string, texts, ids []string) error
	// Query returns the top-k nearest chunks for the query text.
	Query(ctx context.Context, collection, query string, k int) ([]Hit, error)
	// DeleteCollection removes the collection and its chunks. Removing an
	// absent collection is not an error.
	DeleteCollection(ctx context.Context, name string) error
	// ListCollections returns every known collection name.
	ListCollections(ctx context.Context) ([]string, error)
}
