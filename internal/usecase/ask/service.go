package ask

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/quillan-ai/docdex/internal/domain"
	"github.com/quillan-ai/docdex/internal/metrics"
	"github.com/quillan-ai/docdex/internal/usecase/resolve"
)

const defaultTopK = 3

const multiDocPromptFormat = `Based on the following information from multiple documents, please provide a comprehensive answer to the question. If the information is not sufficient, say so.

Question: %s

Information from documents:
%s

Answer:`

const singleDocPromptFormat = `Based on the following information from the document, please answer the question. If the information is not sufficient, say so.

Question: %s

Information from document:
%s

Answer:`

// Service answers natural-language questions over one document or all of
// them: fan out per-collection retrieval, merge candidates, attribute the
// best source, derive confidence, and compose a single completion prompt.
type Service struct {
	idx    IndexSource
	store  Retriever
	llm    Completer
	topK   int
	logger *zap.Logger
}

// New creates a search service.
func New(idx IndexSource, store Retriever, llm Completer, logger *zap.Logger) *Service {
	return &Service{idx: idx, store: store, llm: llm, topK: defaultTopK, logger: logger}
}

// WithTopK sets the per-collection nearest-neighbor count.
func (s *Service) WithTopK(k int) *Service {
	if k > 0 {
		s.topK = k
	}
	return s
}

// AskAll queries every known collection and merges the results into one
// ranked answer. A collection that errors is excluded from the candidates but
// stays in the checked count, with a warning in the details.
func (s *Service) AskAll(ctx context.Context, question string) (domain.Answer, error) {
	idx, err := s.idx.Reload()
	if err != nil {
		return domain.Answer{}, err
	}

	names := idx.Names()
	if len(names) == 0 {
		metrics.SearchesTotal.WithLabelValues("multi", string(domain.OutcomeNoDocuments)).Inc()
		return domain.Answer{
			Outcome:    domain.OutcomeNoDocuments,
			Text:       domain.NoDocumentsAnswer,
			Source:     domain.SourceGeneralKnowledge,
			Confidence: 0,
			Details:    domain.AnswerDetails{Sources: []string{}},
		}, nil
	}

	var (
		candidates []domain.Candidate
		warnings   []string
	)
	checked := 0
	for _, name := range names {
		coll := idx.Documents[name].CollectionName
		checked++

		hits, err := s.store.Query(ctx, coll, question, s.topK)
		if err != nil {
			s.logger.Warn("collection query failed, excluding from candidates",
				zap.String("document", name),
				zap.String("collection", coll),
				zap.Error(err),
			)
			warnings = append(warnings, fmt.Sprintf("collection %s excluded: %v", coll, err))
			continue
		}
		for _, h := range hits {
			candidates = append(candidates, domain.Candidate{
				Document:    name,
				Text:        h.Text,
				Distance:    h.Distance,
				HasDistance: true,
			})
		}
	}

	answer := noMatchAnswer(domain.SourceGeneralKnowledge, domain.NoInformationAnswer, checked, warnings)
	if len(candidates) > 0 {
		answer, err = s.answerFromCandidates(ctx, question, candidates, checked, warnings, multiDocPromptFormat)
		if err != nil {
			return domain.Answer{}, err
		}
	}
	metrics.SearchesTotal.WithLabelValues("multi", string(answer.Outcome)).Inc()
	return answer, nil
}

// AskDocument resolves one collection from a loose identifier and queries
// only it. A no-match still attributes the resolved document, since exactly
// one was searched.
func (s *Service) AskDocument(ctx context.Context, identifier, question string) (domain.Answer, error) {
	idx, err := s.idx.Reload()
	if err != nil {
		return domain.Answer{}, err
	}

	if len(idx.Documents) == 0 {
		metrics.SearchesTotal.WithLabelValues("single", string(domain.OutcomeNoDocuments)).Inc()
		return domain.Answer{
			Outcome:    domain.OutcomeNoDocuments,
			Text:       domain.NoDocumentsAnswer,
			Source:     domain.SourceGeneralKnowledge,
			Confidence: 0,
			Details:    domain.AnswerDetails{Sources: []string{}},
		}, nil
	}

	docName, coll, err := resolve.Collection(idx, identifier)
	if err != nil {
		return domain.Answer{}, err
	}

	hits, err := s.store.Query(ctx, coll, question, s.topK)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("query collection %s: %w", coll, err)
	}

	candidates := make([]domain.Candidate, 0, len(hits))
	for _, h := range hits {
		candidates = append(candidates, domain.Candidate{
			Document:    docName,
			Text:        h.Text,
			Distance:    h.Distance,
			HasDistance: true,
		})
	}

	answer := noMatchAnswer(filepath.Base(docName), domain.NoInformationSingleAnswer, 1, nil)
	if len(candidates) > 0 {
		answer, err = s.answerFromCandidates(ctx, question, candidates, 1, nil, singleDocPromptFormat)
		if err != nil {
			return domain.Answer{}, err
		}
	}
	metrics.SearchesTotal.WithLabelValues("single", string(answer.Outcome)).Inc()
	return answer, nil
}

// noMatchAnswer is the fixed no-result shape. No completion call happens.
func noMatchAnswer(source, text string, checked int, warnings []string) domain.Answer {
	return domain.Answer{
		Outcome:    domain.OutcomeNoMatch,
		Text:       text,
		Source:     source,
		Confidence: 0,
		Details: domain.AnswerDetails{
			Sources:            []string{},
			CollectionsChecked: checked,
			Warnings:           warnings,
		},
	}
}

// answerFromCandidates implements the shared tail of both searches on a
// non-empty candidate list: all chunk texts become one context block and the
// globally best chunk names the source.
func (s *Service) answerFromCandidates(
	ctx context.Context,
	question string,
	candidates []domain.Candidate,
	checked int,
	warnings []string,
	promptFormat string,
) (domain.Answer, error) {
	best := domain.BestCandidate(candidates)
	source := domain.SourceMultipleDocuments
	sources := []string{}
	if best >= 0 {
		source = filepath.Base(candidates[best].Document)
		sources = []string{source}
	}

	confidence := 0.0
	if best >= 0 && candidates[best].HasDistance {
		confidence = domain.ConfidenceFromDistance(candidates[best].Distance)
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}
	prompt := fmt.Sprintf(promptFormat, question, strings.Join(texts, "\n"))

	text, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("complete answer: %w", err)
	}

	return domain.Answer{
		Outcome:    domain.OutcomeAnswered,
		Text:       text,
		Source:     source,
		Confidence: confidence,
		Details: domain.AnswerDetails{
			Sources:            sources,
			CollectionsChecked: checked,
			Warnings:           warnings,
		},
	}, nil
}
