package domain

import "errors"

var (
	// ErrNotIndexed signals an operation against a document name absent from the index.
	ErrNotIndexed = errors.New("document not indexed")
	// ErrUnsupportedFileType signals a file extension outside the supported set.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrExtractionEmpty signals that text extraction produced no content.
	ErrExtractionEmpty = errors.New("extracted text is empty")
	// ErrIdentifierNotFound signals that the resolver exhausted all match rules.
	ErrIdentifierNotFound = errors.New("identifier not found")
	// ErrRunNotFound signals a missing evaluation run artifact.
	ErrRunNotFound = errors.New("evaluation run not found")
	// ErrStorageFailure signals that durable persistence did not occur.
	ErrStorageFailure = errors.New("storage failure")
	// ErrDueDateNotFound signals that no due date could be extracted from a policy.
	ErrDueDateNotFound = errors.New("due date not found")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrCompletionProviderError signals a completion provider failure.
	ErrCompletionProviderError = errors.New("completion provider error")
)
