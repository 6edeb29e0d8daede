// Package eval holds the evaluation harness data model: labeled test cases,
// per-case metrics, and persisted runs.
package eval

import "time"

// SearchType distinguishes single- and multi-document test executions.
type SearchType string

const (
	// SearchSingle runs the case against one resolved document.
	SearchSingle SearchType = "single_document"
	// SearchMulti runs the case across every indexed document.
	SearchMulti SearchType = "multi_document"
)

// TestCase is one labeled query. DocumentName, when set, scopes the search to
// that document; ExpectedSources enables source-accuracy metrics.
type TestCase struct {
	Query           string   `json:"query"`
	ExpectedAnswer  string   `json:"expected_answer"`
	ExpectedSources []string `json:"expected_sources,omitempty"`
	DocumentName    string   `json:"document_name,omitempty"`
}

// SourceMetrics holds set-overlap accuracy of attributed sources.
type SourceMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Accuracy  float64 `json:"accuracy"`
}

// CaseResult is one row of a run: the metrics computed for a surviving case.
type CaseResult struct {
	Query           string         `json:"query"`
	SearchType      SearchType     `json:"search_type"`
	DocumentName    string         `json:"document_name,omitempty"`
	AnswerRelevance float64        `json:"answer_relevance"`
	KeywordCoverage float64        `json:"keyword_coverage"`
	LengthRatio     float64        `json:"length_ratio"`
	Source          *SourceMetrics `json:"source,omitempty"`
	Confidence      float64        `json:"confidence"`
	Timestamp       time.Time      `json:"timestamp"`
}

// Aggregate is the mean and population standard deviation of one metric.
type Aggregate struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std"`
}

// SubsetSummary aggregates the metrics of one search-type subset.
type SubsetSummary struct {
	AnswerRelevance Aggregate `json:"answer_relevance"`
	KeywordCoverage Aggregate `json:"keyword_coverage"`
	Confidence      Aggregate `json:"confidence"`
}

// Summary aggregates metrics across the whole run.
type Summary struct {
	TotalQueries  int `json:"total_queries"`
	SingleQueries int `json:"single_document_queries"`
	MultiQueries  int `json:"multi_document_queries"`

	AnswerRelevance Aggregate `json:"answer_relevance"`
	KeywordCoverage Aggregate `json:"keyword_coverage"`
	LengthRatio     Aggregate `json:"length_ratio"`
	Confidence      Aggregate `json:"confidence"`

	SourcePrecision *Aggregate `json:"source_precision,omitempty"`
	SourceRecall    *Aggregate `json:"source_recall,omitempty"`
	SourceF1        *Aggregate `json:"source_f1,omitempty"`
	SourceAccuracy  *Aggregate `json:"source_accuracy,omitempty"`

	SingleDocument *SubsetSummary `json:"single_document,omitempty"`
	MultiDocument  *SubsetSummary `json:"multi_document,omitempty"`
}

// Run is one persisted evaluation: summary plus per-case detail. Artifacts are
// immutable and timestamp-named.
type Run struct {
	Summary         Summary      `json:"summary"`
	DetailedResults []CaseResult `json:"detailed_results"`
	Timestamp       time.Time    `json:"evaluation_timestamp"`
}
