// Package index owns the project index: the single persisted aggregate of
// sessions and knowledge items, and the only path for mutating it.
package index

import "errors"

// Sentinel errors for index operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotFound indicates no item with the requested id exists.
	ErrNotFound = errors.New("item not found")

	// ErrDanglingSupersedes indicates a decision supersedes an id that is not
	// a decision in the same index.
	ErrDanglingSupersedes = errors.New("supersedes references unknown decision")

	// ErrSupersessionCycle indicates a supersession chain that loops.
	ErrSupersessionCycle = errors.New("supersession cycle")

	// ErrTaskCompleted indicates an attempt to complete a task twice.
	ErrTaskCompleted = errors.New("task already completed")

	// ErrReferenced indicates an item another item still points to.
	ErrReferenced = errors.New("item is referenced")

	// ErrCorrupt indicates an index file that fails to decode or validate.
	ErrCorrupt = errors.New("index corrupt")

	// ErrLocked indicates the index lock could not be acquired in time.
	ErrLocked = errors.New("index locked")

	// ErrNotInitialized indicates the project has no index yet.
	ErrNotInitialized = errors.New("index not initialized")
)
