package storage

import "errors"

var (
	// ErrOutOfSpace is returned by AllocPage when the configured maximum
	// file count has been reached and no free page is available.
	ErrOutOfSpace = errors.New("storage: out of space (max file count reached)")

	// ErrMissingFile is returned when reading a page whose data file does
	// not exist on disk.
	ErrMissingFile = errors.New("storage: missing data file")

	// ErrNoEvictableFrame is returned when every resident frame in the
	// buffer pool is pinned and none can be evicted.
	ErrNoEvictableFrame = errors.New("storage: no evictable frame (all pins held)")

	// ErrBadPageSize is returned by WritePage when the supplied buffer is
	// not exactly one page long.
	ErrBadPageSize = errors.New("storage: buffer is not exactly one page long")

	// ErrFrameNotResident is returned by FlushPage for a page the pool
	// does not hold. FreePage ignores such pages and returns nil.
	ErrFrameNotResident = errors.New("storage: page not resident in buffer pool")
)
