package common

import "time"

const (
	// DefaultPageSize is the size of a page on disk and in the buffer pool unless configured otherwise.
	DefaultPageSize = 4096

	// DefaultPoolSize is the number of pages the buffer pool caches when no size is given.
	DefaultPoolSize = 50

	// DefaultLockTimeout bounds a single lock request. A request that cannot be granted in this
	// duration makes the requesting transaction abort.
	DefaultLockTimeout = time.Second
)
