// Package vectorstore persists embedding vectors in an embedded SQLite file and
// answers exact nearest-neighbour queries by cosine similarity.
package vectorstore

import "errors"

// Sentinel errors for vector store operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("store closed")

	// ErrDimensionMismatch indicates a vector whose length differs from the
	// store dimension. It is never coerced.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrModelMismatch indicates the store was built with another embedding model.
	ErrModelMismatch = errors.New("embedding model mismatch")
)
