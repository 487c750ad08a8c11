package domain

import "errors"

// KeyPrefix namespaces every key this service writes to the shared store.
const KeyPrefix = "lostfound:"

var (
	// ErrItemNotFound signals a missing found item.
	ErrItemNotFound = errors.New("item not found")
	// ErrInvalidItem signals an item or patch that failed validation.
	ErrInvalidItem = errors.New("invalid item")
	// ErrInvalidQuery signals a malformed match or risk request.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrAnnotatorError signals a vision annotation failure.
	ErrAnnotatorError = errors.New("annotator error")
	// ErrGeneratorError signals a generative text failure.
	ErrGeneratorError = errors.New("generator error")
	// ErrNotConfigured signals a collaborator without credentials.
	ErrNotConfigured = errors.New("not configured")
)
