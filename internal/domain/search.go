package domain

// Candidate is a transient retrieval result: one chunk from one document's
// collection with its dissimilarity distance. Not persisted.
type Candidate struct {
	Document    string
	Text        string
	Distance    float64
	HasDistance bool
}

// Outcome tags an Answer so callers handle every case explicitly instead of
// probing optional fields.
type Outcome string

const (
	// OutcomeAnswered means candidates were found and the completion ran.
	OutcomeAnswered Outcome = "answered"
	// OutcomeNoMatch means no collection returned a relevant chunk.
	OutcomeNoMatch Outcome = "no_match"
	// OutcomeNoDocuments means the index was empty when the search started.
	OutcomeNoDocuments Outcome = "no_documents"
)

// Fixed answer surfaces.
const (
	SourceGeneralKnowledge  = "general_knowledge"
	SourceMultipleDocuments = "multiple_documents"

	NoInformationAnswer       = "I couldn't find any relevant information in the documents."
	NoInformationSingleAnswer = "I couldn't find any relevant information in the document."
	NoDocumentsAnswer         = "No documents are indexed. Please index some documents first."
)

// AnswerDetails carries diagnosability data alongside the answer proper.
type AnswerDetails struct {
	Sources            []string `json:"sources"`
	CollectionsChecked int      `json:"total_sources_checked"`
	Warnings           []string `json:"warnings,omitempty"`
}

// Answer is the result of a single- or multi-document search.
type Answer struct {
	Outcome    Outcome       `json:"outcome"`
	Text       string        `json:"answer"`
	Source     string        `json:"source"`
	Confidence float64       `json:"confidence"`
	Details    AnswerDetails `json:"details"`
}

// ConfidenceFromDistance derives a [0,1] confidence from the best candidate's
// distance as 1-d, saturating outside the unit interval. The affine formula is
// kept for compatibility with the distances the store reports; out-of-range
// distances clamp to 0 or 1 rather than erroring.
func ConfidenceFromDistance(d float64) float64 {
	c := 1.0 - d
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// BestCandidate returns the index of the candidate with the globally minimum
// defined distance. Ties break on candidate order, first seen wins. When no
// candidate carries a distance the first candidate wins; -1 means the list
// was empty.
func BestCandidate(cands []Candidate) int {
	if len(cands) == 0 {
		return -1
	}
	best := -1
	for i, c := range cands {
		if !c.HasDistance {
			continue
		}
		if best < 0 || c.Distance < cands[best].Distance {
			best = i
		}
	}
	if best < 0 {
		return 0
	}
	return best
}
