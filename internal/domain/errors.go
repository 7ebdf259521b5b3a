package domain

import "errors"

var (
	// ErrEmptyQuery signals a blank query text.
	ErrEmptyQuery = errors.New("query text must not be empty")
	// ErrInvalidTopK signals a non-positive top_k.
	ErrInvalidTopK = errors.New("top_k must be at least 1")
	// ErrInvalidFilter signals a malformed metadata filter.
	ErrInvalidFilter = errors.New("invalid metadata filter")
	// ErrSuggestionRequired signals a missing or expired suggestion for a namespace.
	ErrSuggestionRequired = errors.New("suggestion required")
	// ErrNamespaceNotFound signals a namespace absent from the cached inventory.
	ErrNamespaceNotFound = errors.New("namespace not found")
	// ErrNoNamespaceAvailable signals an empty namespace inventory.
	ErrNoNamespaceAvailable = errors.New("no namespace available")
	// ErrBackendUnavailable signals that every search branch failed.
	ErrBackendUnavailable = errors.New("search backend unavailable")
)
