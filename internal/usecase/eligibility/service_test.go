package eligibility

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/quillan-ai/docdex/internal/domain"
)

type mockAggregator struct {
	answers map[string]string // item query -> verdict text
	answer  string
	err     error
	calls   int
}

func (m *mockAggregator) AskAll(_ context.Context, question string) (domain.Answer, error) {
	m.calls++
	if m.err != nil {
		return domain.Answer{}, m.err
	}
	text := m.answer
	if m.answers != nil {
		if v, ok := m.answers[question]; ok {
			text = v
		}
	}
	return domain.Answer{Outcome: domain.OutcomeAnswered, Text: text, Confidence: 0.8}, nil
}

func TestClassify_VerdictNormalization(t *testing.T) {
	tests := []struct {
		verdict string
		want    bool
	}{
		{"Yes", true},
		{"yes", true},
		{"Yes.", true},
		{" YES ", true},
		{"yes!", true},
		{"No", false},
		{"No.", false},
		{"Yes, but only partially", false},
		{"The item is covered", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.verdict, func(t *testing.T) {
			svc := New(&mockAggregator{answer: tt.verdict}, zap.NewNop())
			eligible, cached, err := svc.Classify(context.Background(), "room rent")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cached {
				t.Error("first classification must not be cached")
			}
			if eligible != tt.want {
				t.Errorf("verdict %q: eligible = %v, want %v", tt.verdict, eligible, tt.want)
			}
		})
	}
}

func TestClassify_CacheHitSkipsAggregator(t *testing.T) {
	agg := &mockAggregator{answer: "Yes"}
	svc := New(agg, zap.NewNop())

	if _, _, err := svc.Classify(context.Background(), "room rent"); err != nil {
		t.Fatal(err)
	}
	eligible, cached, err := svc.Classify(context.Background(), "room rent")
	if err != nil {
		t.Fatal(err)
	}
	if !cached {
		t.Error("second classification should hit the cache")
	}
	if !eligible {
		t.Error("cached verdict lost")
	}
	if agg.calls != 1 {
		t.Errorf("aggregator called %d times, want 1", agg.calls)
	}
}

func TestClassify_ErrorNotCached(t *testing.T) {
	agg := &mockAggregator{err: errors.New("backend down")}
	svc := New(agg, zap.NewNop())

	if _, _, err := svc.Classify(context.Background(), "mri scan"); err == nil {
		t.Fatal("expected error")
	}
	if svc.Len() != 0 {
		t.Error("failed classification must not be cached")
	}
}

func TestCache_CapacityEvictsOldest(t *testing.T) {
	agg := &mockAggregator{answer: "Yes"}
	svc := New(agg, zap.NewNop()).WithCapacity(2)

	for _, item := range []string{"first", "second", "third"} {
		if _, _, err := svc.Classify(context.Background(), item); err != nil {
			t.Fatal(err)
		}
	}
	if svc.Len() != 2 {
		t.Errorf("cache size = %d, want 2", svc.Len())
	}

	callsBefore := agg.calls
	if _, cached, _ := svc.Classify(context.Background(), "first"); cached {
		t.Error("oldest entry should have been evicted")
	}
	if agg.calls != callsBefore+1 {
		t.Error("evicted item should re-query the aggregator")
	}
}

func TestInvalidate(t *testing.T) {
	svc := New(&mockAggregator{answer: "Yes"}, zap.NewNop())
	if _, _, err := svc.Classify(context.Background(), "room rent"); err != nil {
		t.Fatal(err)
	}

	svc.Invalidate("room rent")
	if svc.Len() != 0 {
		t.Error("entry survived Invalidate")
	}
	// Invalidating an absent item is a no-op.
	svc.Invalidate("never seen")
}

func TestClear(t *testing.T) {
	svc := New(&mockAggregator{answer: "Yes"}, zap.NewNop())
	for i := 0; i < 3; i++ {
		if _, _, err := svc.Classify(context.Background(), fmt.Sprintf("item-%d", i)); err != nil {
			t.Fatal(err)
		}
	}

	svc.Clear()
	if svc.Len() != 0 {
		t.Errorf("cache size = %d after Clear", svc.Len())
	}
}

func TestCheckBill_SumsEligibleOnly(t *testing.T) {
	agg := &mockAggregator{answers: map[string]string{
		fmt.Sprintf(queryFormat, "room rent"):  "Yes",
		fmt.Sprintf(queryFormat, "mri scan"):   "Yes.",
		fmt.Sprintf(queryFormat, "gloves"):     "No",
		fmt.Sprintf(queryFormat, "toothbrush"): "No.",
	}}
	svc := New(agg, zap.NewNop())

	report, err := svc.CheckBill(context.Background(), []domain.BillItem{
		{Description: "room rent", Amount: 5000},
		{Description: "mri scan", Amount: 8000},
		{Description: "gloves", Amount: 150},
		{Description: "toothbrush", Amount: 50},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TotalEligible != 13000 {
		t.Errorf("TotalEligible = %v, want 13000", report.TotalEligible)
	}
	if len(report.Items) != 4 {
		t.Fatalf("got %d verdicts", len(report.Items))
	}
	if !report.Items[0].Eligible || report.Items[2].Eligible {
		t.Errorf("verdicts wrong: %+v", report.Items)
	}
}

func TestCheckBill_ErroredItemNotEligible(t *testing.T) {
	agg := &mockAggregator{err: errors.New("backend down")}
	svc := New(agg, zap.NewNop())

	report, err := svc.CheckBill(context.Background(), []domain.BillItem{
		{Description: "room rent", Amount: 5000},
	})
	if err != nil {
		t.Fatalf("bill check must continue past item errors: %v", err)
	}
	if report.TotalEligible != 0 {
		t.Errorf("TotalEligible = %v, want 0", report.TotalEligible)
	}
	if report.Items[0].Eligible {
		t.Error("errored item must not be eligible")
	}
}
