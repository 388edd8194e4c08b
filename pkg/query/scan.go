package query

import (
	"github.com/lunaire/sgbd/pkg/relation"
	"github.com/lunaire/sgbd/pkg/storage"
)

// Scan enumerates every live record of a relation, attaching each
// yielded record's physical address so downstream Delete/Update can act
// on it. It pins one page at a time for the duration it is in use.
type Scan struct {
	rel   *relation.Relation
	pages []storage.Address

	pageIdx int
	slot    int

	pinned *storage.Address
	frame  *storage.Frame
}

// NewScan returns a Scan over every data page currently allocated to rel.
func NewScan(rel *relation.Relation) *Scan {
	return &Scan{rel: rel, pages: rel.AllocatedPages()}
}

func (s *Scan) unpinCurrent() error {
	if s.pinned == nil {
		return nil
	}
	err := s.rel.UnpinPage(*s.pinned, false)
	s.pinned = nil
	s.frame = nil
	return err
}

// Next returns the next live record, or (nil, nil) once every page has
// been exhausted.
func (s *Scan) Next() (*relation.Record, error) {
	for {
		if s.frame == nil {
			if s.pageIdx >= len(s.pages) {
				return nil, nil
			}
			addr := s.pages[s.pageIdx]
			frame, err := s.rel.PinPage(addr)
			if err != nil {
				return nil, err
			}
			s.frame = frame
			s.pinned = &addr
			s.slot = 0
		}

		for s.slot < s.rel.SlotCount() {
			slot := s.slot
			s.slot++
			if !s.rel.SlotOccupied(s.frame, slot) {
				continue
			}
			values, err := s.rel.DecodeSlotValues(s.frame, slot)
			if err != nil {
				return nil, err
			}
			rid := relation.RID{Page: *s.pinned, Slot: slot}
			return &relation.Record{Values: values, Addr: &rid}, nil
		}

		if err := s.unpinCurrent(); err != nil {
			return nil, err
		}
		s.pageIdx++
	}
}

// Reset rewinds the scan to the first page and slot, unpinning any
// currently pinned page first.
func (s *Scan) Reset() error {
	if err := s.unpinCurrent(); err != nil {
		return err
	}
	s.pageIdx = 0
	s.slot = 0
	return nil
}

// Close releases any pin still held by the scan.
func (s *Scan) Close() error {
	return s.unpinCurrent()
}
