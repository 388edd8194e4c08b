package query

import "github.com/lunaire/sgbd/pkg/relation"

// Project restricts each record yielded by child to keepIndices, in
// order. The record address is discarded — projected records cannot be
// deleted or updated directly.
type Project struct {
	child       Iterator
	keepIndices []int
}

// NewProject wraps child, keeping only keepIndices of each record.
func NewProject(child Iterator, keepIndices []int) *Project {
	return &Project{child: child, keepIndices: keepIndices}
}

// Next returns the next projected record, or (nil, nil) at end of input.
func (p *Project) Next() (*relation.Record, error) {
	rec, err := p.child.Next()
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	values := make([]any, len(p.keepIndices))
	for i, idx := range p.keepIndices {
		values[i] = rec.Values[idx]
	}
	return &relation.Record{Values: values}, nil
}

// Reset rewinds the child.
func (p *Project) Reset() error { return p.child.Reset() }

// Close closes the child.
func (p *Project) Close() error { return p.child.Close() }
