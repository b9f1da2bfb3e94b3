package types

import "errors"

// Sentinel errors for the knowledge retrieval core. Provider and store
// failures are propagated as wrapped errors from their packages; these
// cover the conditions callers are expected to branch on.
var (
	ErrCorpusNotFound = errors.New("corpus file not found")
	ErrCorpusFormat   = errors.New("corpus is malformed or empty")
	ErrEmptyIndex     = errors.New("knowledge index is empty")
)
