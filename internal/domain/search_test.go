package domain

import "testing"

func TestConfidenceFromDistance(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		want     float64
	}{
		{"zero distance", 0.0, 1.0},
		{"typical distance", 0.3, 0.7},
		{"boundary", 1.0, 0.0},
		{"negative distance clamps high", -0.2, 1.0},
		{"distance above one clamps low", 1.4, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConfidenceFromDistance(tt.distance)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("ConfidenceFromDistance(%v) = %v, want %v", tt.distance, got, tt.want)
			}
		})
	}
}

func TestBestCandidate_Empty(t *testing.T) {
	if got := BestCandidate(nil); got != -1 {
		t.Errorf("expected -1 for empty list, got %d", got)
	}
}

func TestBestCandidate_MinimumDistance(t *testing.T) {
	cands := []Candidate{
		{Document: "a.txt", Distance: 0.5, HasDistance: true},
		{Document: "b.txt", Distance: 0.2, HasDistance: true},
		{Document: "c.txt", Distance: 0.9, HasDistance: true},
	}
	if got := BestCandidate(cands); got != 1 {
		t.Errorf("expected index 1, got %d", got)
	}
}

func TestBestCandidate_TieFirstSeenWins(t *testing.T) {
	cands := []Candidate{
		{Document: "a.txt", Distance: 0.3, HasDistance: true},
		{Document: "b.txt", Distance: 0.3, HasDistance: true},
	}
	if got := BestCandidate(cands); got != 0 {
		t.Errorf("expected first of tied candidates, got %d", got)
	}
}

func TestBestCandidate_NoDistances(t *testing.T) {
	cands := []Candidate{
		{Document: "a.txt"},
		{Document: "b.txt"},
	}
	if got := BestCandidate(cands); got != 0 {
		t.Errorf("expected fallback to first candidate, got %d", got)
	}
}

func TestBestCandidate_SkipsMissingDistances(t *testing.T) {
	cands := []Candidate{
		{Document: "a.txt"},
		{Document: "b.txt", Distance: 0.8, HasDistance: true},
	}
	if got := BestCandidate(cands); got != 1 {
		t.Errorf("expected candidate with defined distance, got %d", got)
	}
}
