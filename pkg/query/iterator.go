package query

import "github.com/lunaire/sgbd/pkg/relation"

// Iterator is the pull-based operator contract shared by Scan, Filter,
// and Project. Next returns (nil, nil) at end of input; any I/O error
// from the buffer pool below propagates and terminates the pipeline.
// Reset and Close propagate to children.
type Iterator interface {
	Next() (*relation.Record, error)
	Reset() error
	Close() error
}
