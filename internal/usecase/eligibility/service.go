// Package eligibility classifies short line-item descriptions against the
// indexed policy documents with a strict yes/no verdict, memoizing repeated
// determinations for the process lifetime.
package eligibility

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/quillan-ai/docdex/internal/domain"
	"github.com/quillan-ai/docdex/internal/metrics"
)

const queryFormat = "Is '%s' payable under my insurance policy? Answer with ONLY 'Yes' or 'No'. Do not provide any explanation."

const defaultCacheCapacity = 1024

// Aggregator is the multi-document search the classifier queries.
type Aggregator interface {
	AskAll(ctx context.Context, question string) (domain.Answer, error)
}

// Service memoizes eligibility verdicts keyed by the exact item description.
// The cache is capacity-bounded (oldest entry evicted first) and scoped to
// the process; callers must Clear it when the source policy documents change.
type Service struct {
	agg Aggregator

	mu       sync.Mutex
	cache    map[string]bool
	order    []string
	capacity int

	logger *zap.Logger
}

// New creates an eligibility classifier.
func New(agg Aggregator, logger *zap.Logger) *Service {
	return &Service{
		agg:      agg,
		cache:    make(map[string]bool),
		capacity: defaultCacheCapacity,
		logger:   logger,
	}
}

// WithCapacity bounds the cache size.
func (s *Service) WithCapacity(n int) *Service {
	if n > 0 {
		s.capacity = n
	}
	return s
}

// Classify determines whether one item is eligible. Only an answer that
// normalizes to exactly "yes" counts as eligible; partial or hedged answers
// are not, so ambiguous verdicts never leak into downstream sums.
func (s *Service) Classify(ctx context.Context, item string) (eligible, cached bool, err error) {
	s.mu.Lock()
	if v, ok := s.cache[item]; ok {
		s.mu.Unlock()
		metrics.EligibilityCacheTotal.WithLabelValues("hit").Inc()
		return v, true, nil
	}
	s.mu.Unlock()
	metrics.EligibilityCacheTotal.WithLabelValues("miss").Inc()

	answer, err := s.agg.AskAll(ctx, fmt.Sprintf(queryFormat, item))
	if err != nil {
		return false, false, fmt.Errorf("classify %q: %w", item, err)
	}

	eligible = normalizeVerdict(answer.Text) == "yes"

	s.mu.Lock()
	s.put(item, eligible)
	s.mu.Unlock()

	s.logger.Debug("classified item",
		zap.String("item", item),
		zap.Bool("eligible", eligible),
		zap.Float64("confidence", answer.Confidence),
	)
	return eligible, false, nil
}

// CheckBill classifies every line item and sums the eligible amounts. An item
// whose classification errors counts as not eligible; the bill check keeps
// going.
func (s *Service) CheckBill(ctx context.Context, items []domain.BillItem) (domain.BillReport, error) {
	report := domain.BillReport{Items: make([]domain.BillVerdict, 0, len(items))}
	for _, item := range items {
		eligible, cached, err := s.Classify(ctx, item.Description)
		if err != nil {
			s.logger.Warn("item classification failed, treating as not eligible",
				zap.String("item", item.Description), zap.Error(err))
			eligible, cached = false, false
		}
		if eligible {
			report.TotalEligible += item.Amount
		}
		report.Items = append(report.Items, domain.BillVerdict{
			Item:     item,
			Eligible: eligible,
			Cached:   cached,
		})
	}
	return report, nil
}

// Invalidate drops one cached verdict.
func (s *Service) Invalidate(item string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cache[item]; !ok {
		return
	}
	delete(s.cache, item)
	for i, k := range s.order {
		if k == item {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Clear resets the cache. Must run whenever the source documents change.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]bool)
	s.order = nil
}

// Len returns the current cache size.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

// put inserts under the capacity bound, evicting the oldest entry. Caller
// holds the mutex.
func (s *Service) put(item string, eligible bool) {
	if _, ok := s.cache[item]; !ok {
		for len(s.order) >= s.capacity {
			oldest := s.order[0]
			s.order = s.order[1:]
			delete(s.cache, oldest)
		}
		s.order = append(s.order, item)
	}
	s.cache[item] = eligible
}

// normalizeVerdict lowercases, trims whitespace, and strips trailing
// sentence punctuation so "Yes." and " YES " compare equal to "yes" while
// "Yes, but only partially" does not.
func normalizeVerdict(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimRight(v, ".!")
	return strings.TrimSpace(v)
}
