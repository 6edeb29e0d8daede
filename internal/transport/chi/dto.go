package chi

import (
	"github.com/quillan-ai/docdex/internal/domain"
	domeval "github.com/quillan-ai/docdex/internal/domain/eval"
)

// Error codes returned in the error response body.
const (
	codeBadRequest          = "bad_request"
	codeValidationFailed    = "validation_failed"
	codeDocumentNotFound    = "document_not_found"
	codeRunNotFound         = "run_not_found"
	codeUnsupportedFileType = "unsupported_file_type"
	codeExtractionEmpty     = "extraction_empty"
	codeStorageFailure      = "storage_failure"
	codeProviderError       = "provider_error"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type askRequest struct {
	Question string `json:"question"`
}

type batchResultResponse struct {
	Results map[string]bool `json:"results"`
	Indexed int             `json:"indexed"`
	Failed  int             `json:"failed"`
}

type indexedDocumentsResponse struct {
	Documents []string `json:"documents"`
	Total     int      `json:"total"`
}

type eligibilityCheckRequest struct {
	Items []domain.BillItem `json:"items"`
}

type evalRunRequest struct {
	Cases []domeval.TestCase `json:"cases,omitempty"`
}

type evalRunResponse struct {
	Artifact string       `json:"artifact"`
	Run      *domeval.Run `json:"run"`
}

type evalHistoryResponse struct {
	Runs []string `json:"runs"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
