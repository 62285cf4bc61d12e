package bufferpool

import "errors"

var (
	// ErrPoolExhausted names the outcome where an operation cannot
	// proceed because every frame in scope is pinned, for callers that
	// wrap the core fetch/new_page contract (which itself returns nil).
	// No package in this module returns it.
	ErrPoolExhausted = errors.New("bufferpool: no frame available for eviction")

	// ErrPagePinned names a Delete refused for a page that is still
	// pinned, for callers that wrap Delete. No package in this module
	// returns it.
	ErrPagePinned = errors.New("bufferpool: page is pinned")

	// ErrPageNotFound names a miss, for callers that wrap the core API.
	// No package in this module returns it.
	ErrPageNotFound = errors.New("bufferpool: page not resident")

	// ErrInvalidShardCount is returned by NewParallelPool for a
	// non-positive shard count.
	ErrInvalidShardCount = errors.New("bufferpool: shard count must be positive")

	// ErrInvalidPoolSize is returned by NewInstance for a non-positive
	// pool size.
	ErrInvalidPoolSize = errors.New("bufferpool: pool size must be positive")
)
