// Package eval replays a labeled query set through the search services and
// scores retrieval quality, persisting each run for later comparison.
package eval

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/quillan-ai/docdex/internal/domain"
	domeval "github.com/quillan-ai/docdex/internal/domain/eval"
	"github.com/quillan-ai/docdex/internal/metrics"
)

// Service is the evaluation harness.
type Service struct {
	search Searcher
	store  RunStore
	logger *zap.Logger
	now    func() time.Time
}

// New creates an evaluation service.
func New(search Searcher, store RunStore, logger *zap.Logger) *Service {
	return &Service{search: search, store: store, logger: logger, now: time.Now}
}

// Run executes every test case, skips cases whose search errors, aggregates
// the metrics, and persists the run. Returns the run and its artifact name.
func (s *Service) Run(ctx context.Context, cases []domeval.TestCase) (*domeval.Run, string, error) {
	var results []domeval.CaseResult

	for _, tc := range cases {
		result, ok := s.runCase(ctx, tc)
		if !ok {
			continue
		}
		results = append(results, result)
	}

	run := &domeval.Run{
		Summary:         summarize(results),
		DetailedResults: results,
		Timestamp:       s.now().UTC(),
	}

	name, err := s.store.Save(run)
	if err != nil {
		return nil, "", err
	}

	metrics.EvalRunsTotal.Inc()
	s.logger.Info("evaluation run complete",
		zap.String("artifact", name),
		zap.Int("cases", len(cases)),
		zap.Int("scored", len(results)),
	)
	return run, name, nil
}

// runCase executes one test case. A search error drops the case.
func (s *Service) runCase(ctx context.Context, tc domeval.TestCase) (domeval.CaseResult, bool) {
	var (
		answer     domain.Answer
		searchType domeval.SearchType
		err        error
	)
	if tc.DocumentName != "" {
		searchType = domeval.SearchSingle
		answer, err = s.search.AskDocument(ctx, tc.DocumentName, tc.Query)
	} else {
		searchType = domeval.SearchMulti
		answer, err = s.search.AskAll(ctx, tc.Query)
	}
	if err != nil {
		s.logger.Warn("evaluation case skipped", zap.String("query", tc.Query), zap.Error(err))
		return domeval.CaseResult{}, false
	}

	result := domeval.CaseResult{
		Query:           tc.Query,
		SearchType:      searchType,
		DocumentName:    tc.DocumentName,
		AnswerRelevance: Jaccard(tc.ExpectedAnswer, answer.Text),
		KeywordCoverage: KeywordCoverage(tc.ExpectedAnswer, answer.Text),
		LengthRatio:     LengthRatio(tc.ExpectedAnswer, answer.Text),
		Confidence:      answer.Confidence,
		Timestamp:       s.now().UTC(),
	}

	if len(tc.ExpectedSources) > 0 && len(answer.Details.Sources) > 0 {
		m := SourceOverlap(tc.ExpectedSources, answer.Details.Sources)
		result.Source = &m
	}

	return result, true
}

// History lists persisted run artifacts, most recent first.
func (s *Service) History() ([]string, error) {
	return s.store.History()
}

// Load reloads one run by its artifact name.
func (s *Service) Load(name string) (*domeval.Run, error) {
	return s.store.Load(name)
}

// SampleCases returns a starter labeled query set.
func (s *Service) SampleCases() []domeval.TestCase {
	return []domeval.TestCase{
		{
			Query:           "What are the insurance benefits?",
			ExpectedAnswer:  "The insurance provides coverage for medical expenses including hospitalization, outpatient treatment, and prescription drugs.",
			ExpectedSources: []string{"mediclaim.txt", "benefit_manual.txt"},
		},
		{
			Query:           "What is the coverage limit?",
			ExpectedAnswer:  "The coverage limit varies by plan type and can range from 1 lakh to 10 lakhs.",
			ExpectedSources: []string{"mediclaim.txt"},
			DocumentName:    "mediclaim.txt",
		},
		{
			Query:           "What expenses are not covered?",
			ExpectedAnswer:  "Expenses not covered include cosmetic procedures, pre-existing conditions, and experimental treatments.",
			ExpectedSources: []string{"non_payable_charges.txt"},
			DocumentName:    "non_payable_charges.txt",
		},
	}
}

// summarize aggregates case metrics overall and per search-type subset.
func summarize(results []domeval.CaseResult) domeval.Summary {
	var single, multi []domeval.CaseResult
	for _, r := range results {
		if r.SearchType == domeval.SearchSingle {
			single = append(single, r)
		} else {
			multi = append(multi, r)
		}
	}

	summary := domeval.Summary{
		TotalQueries:    len(results),
		SingleQueries:   len(single),
		MultiQueries:    len(multi),
		AnswerRelevance: aggregate(collect(results, relevance)),
		KeywordCoverage: aggregate(collect(results, coverage)),
		LengthRatio:     aggregate(collect(results, lengthRatio)),
		Confidence:      aggregate(collect(results, confidence)),
	}

	var sourced []domeval.CaseResult
	for _, r := range results {
		if r.Source != nil {
			sourced = append(sourced, r)
		}
	}
	if len(sourced) > 0 {
		summary.SourcePrecision = aggPtr(collect(sourced, func(r domeval.CaseResult) float64 { return r.Source.Precision }))
		summary.SourceRecall = aggPtr(collect(sourced, func(r domeval.CaseResult) float64 { return r.Source.Recall }))
		summary.SourceF1 = aggPtr(collect(sourced, func(r domeval.CaseResult) float64 { return r.Source.F1 }))
		summary.SourceAccuracy = aggPtr(collect(sourced, func(r domeval.CaseResult) float64 { return r.Source.Accuracy }))
	}

	if len(single) > 0 {
		summary.SingleDocument = subset(single)
	}
	if len(multi) > 0 {
		summary.MultiDocument = subset(multi)
	}
	return summary
}

func subset(results []domeval.CaseResult) *domeval.SubsetSummary {
	return &domeval.SubsetSummary{
		AnswerRelevance: aggregate(collect(results, relevance)),
		KeywordCoverage: aggregate(collect(results, coverage)),
		Confidence:      aggregate(collect(results, confidence)),
	}
}

func collect(results []domeval.CaseResult, f func(domeval.CaseResult) float64) []float64 {
	values := make([]float64, len(results))
	for i, r := range results {
		values[i] = f(r)
	}
	return values
}

func relevance(r domeval.CaseResult) float64   { return r.AnswerRelevance }
func coverage(r domeval.CaseResult) float64    { return r.KeywordCoverage }
func lengthRatio(r domeval.CaseResult) float64 { return r.LengthRatio }
func confidence(r domeval.CaseResult) float64  { return r.Confidence }

func aggPtr(values []float64) *domeval.Aggregate {
	a := aggregate(values)
	return &a
}
