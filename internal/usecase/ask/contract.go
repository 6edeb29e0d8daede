package ask

import (
	"context"

	"github.com/quillan-ai/docdex/internal/domain"
	"github.com/quillan-ai/docdex/internal/vectorstore"
)

// Retriever answers nearest-neighbor queries against one collection.
type Retriever interface {
	Query(ctx context.Context, collection, query string, k int) ([]vectorstore.Hit, error)
}

// Completer turns a composed prompt into prose.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// IndexSource provides a fresh snapshot of the knowledge base index. Searches
// refresh at the start so documents indexed by another process are visible.
type IndexSource interface {
	Reload() (*domain.Index, error)
}
