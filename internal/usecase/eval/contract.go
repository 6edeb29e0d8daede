package eval

import (
	"context"

	"github.com/quillan-ai/docdex/internal/domain"
	domeval "github.com/quillan-ai/docdex/internal/domain/eval"
)

// Searcher executes the single- and multi-document searches under evaluation.
type Searcher interface {
	AskAll(ctx context.Context, question string) (domain.Answer, error)
	AskDocument(ctx context.Context, identifier, question string) (domain.Answer, error)
}

// RunStore persists evaluation runs.
type RunStore interface {
	Save(run *domeval.Run) (string, error)
	Load(name string) (*domeval.Run, error)
	History() ([]string, error)
}
