package eval

import (
	"math"
	"strings"

	domeval "github.com/quillan-ai/docdex/internal/domain/eval"
)

// wordSet splits text into a set of lowercase whitespace-delimited words.
func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = struct{}{}
	}
	return set
}

// Jaccard computes word-set similarity: intersection over union. Two empty
// texts are identical (1.0); exactly one empty text shares nothing (0.0).
func Jaccard(a, b string) float64 {
	sa, sb := wordSet(a), wordSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 1.0
	}
	if len(sa) == 0 || len(sb) == 0 {
		return 0.0
	}

	inter := 0
	for w := range sa {
		if _, ok := sb[w]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

// KeywordCoverage is the fraction of expected-answer words present in the
// actual answer; 0 when the expected answer has no words.
func KeywordCoverage(expected, actual string) float64 {
	se, sa := wordSet(expected), wordSet(actual)
	if len(se) == 0 {
		return 0.0
	}
	covered := 0
	for w := range se {
		if _, ok := sa[w]; ok {
			covered++
		}
	}
	return float64(covered) / float64(len(se))
}

// LengthRatio is actual word count over expected word count; 0 when the
// expected answer is empty.
func LengthRatio(expected, actual string) float64 {
	ne := len(strings.Fields(expected))
	if ne == 0 {
		return 0.0
	}
	return float64(len(strings.Fields(actual))) / float64(ne)
}

// SourceOverlap computes precision/recall/F1/accuracy of attributed sources
// via standard set-overlap formulas. Both lists must be non-empty; callers
// skip the metric otherwise.
func SourceOverlap(expected, actual []string) domeval.SourceMetrics {
	se := make(map[string]struct{}, len(expected))
	for _, s := range expected {
		se[s] = struct{}{}
	}
	sa := make(map[string]struct{}, len(actual))
	for _, s := range actual {
		sa[s] = struct{}{}
	}

	inter := 0
	for s := range se {
		if _, ok := sa[s]; ok {
			inter++
		}
	}
	union := len(se) + len(sa) - inter

	var m domeval.SourceMetrics
	if len(sa) > 0 {
		m.Precision = float64(inter) / float64(len(sa))
	}
	if len(se) > 0 {
		m.Recall = float64(inter) / float64(len(se))
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	if union > 0 {
		m.Accuracy = float64(inter) / float64(union)
	}
	return m
}

// aggregate computes the mean and population standard deviation of values.
func aggregate(values []float64) domeval.Aggregate {
	if len(values) == 0 {
		return domeval.Aggregate{}
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))

	return domeval.Aggregate{Mean: mean, StdDev: math.Sqrt(variance)}
}
