package chi

import (
	"context"

	"github.com/quillan-ai/docdex/internal/domain"
	domeval "github.com/quillan-ai/docdex/internal/domain/eval"
)

// Indexer drives document lifecycle operations.
type Indexer interface {
	IndexDocument(ctx context.Context, name string) error
	IndexAll(ctx context.Context) (map[string]bool, error)
	Rebuild(ctx context.Context) (map[string]bool, error)
	Remove(ctx context.Context, name string) error
	Indexed() []string
	Status() (domain.Status, error)
}

// Asker answers questions against the knowledge base.
type Asker interface {
	AskAll(ctx context.Context, question string) (domain.Answer, error)
	AskDocument(ctx context.Context, identifier, question string) (domain.Answer, error)
}

// EligibilityChecker classifies bill items against policy documents.
type EligibilityChecker interface {
	Classify(ctx context.Context, item string) (eligible, cached bool, err error)
	CheckBill(ctx context.Context, items []domain.BillItem) (domain.BillReport, error)
	Clear()
}

// Evaluator runs and reloads evaluation runs.
type Evaluator interface {
	Run(ctx context.Context, cases []domeval.TestCase) (*domeval.Run, string, error)
	History() ([]string, error)
	Load(name string) (*domeval.Run, error)
	SampleCases() []domeval.TestCase
}

// HealthChecker reports readiness of a backing dependency.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
