// Package relation implements the fixed-width slotted record layout and
// the table catalog built on top of pkg/storage.
package relation

import "errors"

var (
	// ErrPageFull is returned by insertIntoPage when the page has no free
	// slot. InsertRecord always inserts into a freshly appended page, so
	// it does not meet this error and does no retry.
	ErrPageFull = errors.New("relation: page has no free slot")

	// ErrTypeMismatch is returned when a value does not parse to its
	// declared column type.
	ErrTypeMismatch = errors.New("relation: value does not match column type")

	// ErrUnknownTable is returned by catalog lookups for a name that was
	// never created or was already dropped.
	ErrUnknownTable = errors.New("relation: unknown table")

	// ErrDuplicateTable is returned by CreateTable when the name is
	// already registered.
	ErrDuplicateTable = errors.New("relation: table already exists")

	// ErrBadRequest covers arity mismatches and other caller errors that
	// are not specific to a single column's type.
	ErrBadRequest = errors.New("relation: bad request")

	// ErrRecordTooWide is returned at construction when a schema's record
	// width leaves no room for even a single slot on a page.
	ErrRecordTooWide = errors.New("relation: record width leaves no room for a slot on this page size")
)
