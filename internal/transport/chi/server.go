// Package chi exposes the knowledge base over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/quillan-ai/docdex/internal/domain"
)

const healthTimeout = 5 * time.Second

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP API server.
type Server struct {
	index         Indexer
	ask           Asker
	eligibility   EligibilityChecker
	eval          Evaluator
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. health may be nil.
func NewServer(
	index Indexer,
	ask Asker,
	eligibility EligibilityChecker,
	eval Evaluator,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	s := &Server{
		index:       index,
		ask:         ask,
		eligibility: eligibility,
		eval:        eval,
		health:      health,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotIndexed, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrIdentifierNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrRunNotFound, http.StatusNotFound, codeRunNotFound),
		sentinelHandler(domain.ErrUnsupportedFileType, http.StatusBadRequest, codeUnsupportedFileType),
		sentinelHandler(domain.ErrExtractionEmpty, http.StatusBadRequest, codeExtractionEmpty),
		sentinelHandler(domain.ErrStorageFailure, http.StatusInternalServerError, codeStorageFailure),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeProviderError),
		sentinelHandler(domain.ErrCompletionProviderError, http.StatusBadGateway, codeProviderError),
	}
	return s
}

// Routes mounts every endpoint on a fresh router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/index", s.IndexAll)
		r.Post("/index/rebuild", s.RebuildIndex)
		r.Get("/status", s.GetStatus)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", s.ListDocuments)
			r.Post("/{name}/index", s.IndexDocument)
			r.Post("/{name}/ask", s.AskDocument)
			r.Delete("/{name}", s.RemoveDocument)
		})

		r.Post("/ask", s.AskAll)

		r.Route("/eligibility", func(r chi.Router) {
			r.Post("/check", s.CheckEligibility)
			r.Post("/reset", s.ResetEligibilityCache)
		})

		r.Route("/eval", func(r chi.Router) {
			r.Post("/run", s.RunEvaluation)
			r.Get("/history", s.EvaluationHistory)
			r.Get("/runs/{name}", s.GetEvaluationRun)
		})
	})

	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// IndexDocument handles POST /api/v1/documents/{name}/index.
func (s *Server) IndexDocument(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "document name is required")
		return
	}

	if err := s.index.IndexDocument(r.Context(), name); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"document": name, "status": "indexed"})
}

// IndexAll handles POST /api/v1/index.
func (s *Server) IndexAll(w http.ResponseWriter, r *http.Request) {
	results, err := s.index.IndexAll(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, batchResult(results))
}

// RebuildIndex handles POST /api/v1/index/rebuild. Destructive, so the caller
// must pass confirm=true.
func (s *Server) RebuildIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			"rebuild deletes all collections; pass confirm=true to proceed")
		return
	}

	results, err := s.index.Rebuild(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, batchResult(results))
}

// RemoveDocument handles DELETE /api/v1/documents/{name}.
func (s *Server) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.index.Remove(r.Context(), name); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListDocuments handles GET /api/v1/documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.index.Indexed()
	writeJSON(w, http.StatusOK, indexedDocumentsResponse{
		Documents: docs,
		Total:     len(docs),
	})
}

// GetStatus handles GET /api/v1/status.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.index.Status()
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// AskAll handles POST /api/v1/ask.
func (s *Server) AskAll(w http.ResponseWriter, r *http.Request) {
	question, ok := s.decodeQuestion(w, r)
	if !ok {
		return
	}

	answer, err := s.ask.AskAll(r.Context(), question)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

// AskDocument handles POST /api/v1/documents/{name}/ask. The path segment is
// a flexible identifier, not necessarily the exact document name.
func (s *Server) AskDocument(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "name")
	question, ok := s.decodeQuestion(w, r)
	if !ok {
		return
	}

	answer, err := s.ask.AskDocument(r.Context(), identifier, question)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

// CheckEligibility handles POST /api/v1/eligibility/check.
func (s *Server) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	var req eligibilityCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "items is required")
		return
	}

	report, err := s.eligibility.CheckBill(r.Context(), req.Items)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// ResetEligibilityCache handles POST /api/v1/eligibility/reset.
func (s *Server) ResetEligibilityCache(w http.ResponseWriter, r *http.Request) {
	s.eligibility.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// RunEvaluation handles POST /api/v1/eval/run. An empty body runs the sample
// query set.
func (s *Server) RunEvaluation(w http.ResponseWriter, r *http.Request) {
	var req evalRunRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	cases := req.Cases
	if len(cases) == 0 {
		cases = s.eval.SampleCases()
	}

	run, artifact, err := s.eval.Run(r.Context(), cases)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, evalRunResponse{Artifact: artifact, Run: run})
}

// EvaluationHistory handles GET /api/v1/eval/history.
func (s *Server) EvaluationHistory(w http.ResponseWriter, r *http.Request) {
	runs, err := s.eval.History()
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, evalHistoryResponse{Runs: runs})
}

// GetEvaluationRun handles GET /api/v1/eval/runs/{name}.
func (s *Server) GetEvaluationRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.eval.Load(chi.URLParam(r, "name"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	httpStatus := http.StatusOK

	if s.health != nil {
		resp.Checks = map[string]string{"vector_store": "ok"}
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Checks["vector_store"] = err.Error()
			httpStatus = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, httpStatus, resp)
}

func (s *Server) decodeQuestion(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return "", false
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "question is required")
		return "", false
	}
	return req.Question, true
}

func batchResult(results map[string]bool) batchResultResponse {
	indexed := 0
	for _, ok := range results {
		if ok {
			indexed++
		}
	}
	return batchResultResponse{
		Results: results,
		Indexed: indexed,
		Failed:  len(results) - indexed,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotIndexed,
		domain.ErrIdentifierNotFound,
		domain.ErrRunNotFound,
		domain.ErrUnsupportedFileType,
		domain.ErrExtractionEmpty,
		domain.ErrStorageFailure,
		domain.ErrEmbeddingProviderError,
		domain.ErrCompletionProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
