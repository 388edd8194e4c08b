package relation

import (
	"fmt"

	"github.com/lunaire/sgbd/pkg/storage"
)

// Relation owns one table's schema, its ordered list of data pages, and
// the fixed-width slotted layout within each page.
type Relation struct {
	Name           string
	Schema         Schema
	pageSize       int
	recordWidth    int
	slotCount      int
	allocatedPages []storage.Address
	pool           *storage.BufferPool
}

// NewRelation constructs a relation over schema, deriving recordWidth and
// slotCount from pageSize. Rejects a schema whose recordWidth+1 exceeds
// pageSize (no room for even one slot).
func NewRelation(name string, schema Schema, pageSize int, pool *storage.BufferPool) (*Relation, error) {
	width := schema.RecordWidth()
	if width+1 > pageSize {
		return nil, fmt.Errorf("%w: record width %d + 1 > page size %d", ErrRecordTooWide, width, pageSize)
	}

	return &Relation{
		Name:        name,
		Schema:      schema,
		pageSize:    pageSize,
		recordWidth: width,
		slotCount:   pageSize / (width + 1),
		pool:        pool,
	}, nil
}

// RecordWidth returns the fixed byte width of every record in this relation.
func (r *Relation) RecordWidth() int { return r.recordWidth }

// SlotCount returns the number of slots each data page holds.
func (r *Relation) SlotCount() int { return r.slotCount }

// PinPage borrows addr's frame from the buffer pool for a scan. The
// caller must balance every PinPage with an UnpinPage.
func (r *Relation) PinPage(addr storage.Address) (*storage.Frame, error) {
	return r.pool.GetPage(addr)
}

// UnpinPage releases a PinPage borrow.
func (r *Relation) UnpinPage(addr storage.Address, dirty bool) error {
	return r.pool.FreePage(addr, dirty)
}

// SlotOccupied reports whether frame's bitmap byte marks slot as live.
func (r *Relation) SlotOccupied(frame *storage.Frame, slot int) bool {
	return frame.Data[r.bitmapOffset(slot)] == 0x01
}

// DecodeSlotValues decodes the record bytes at slot within frame.
func (r *Relation) DecodeSlotValues(frame *storage.Frame, slot int) ([]any, error) {
	off := r.recordOffset(slot)
	return decodeRecord(r.Schema, frame.Data[off:off+r.recordWidth])
}

// AllocatedPages returns the relation's data pages in allocation order.
// The returned slice is owned by the relation; callers must not mutate it.
func (r *Relation) AllocatedPages() []storage.Address { return r.allocatedPages }

// SetAllocatedPages restores the relation's page list from a catalog
// snapshot loaded at startup.
func (r *Relation) SetAllocatedPages(pages []storage.Address) {
	r.allocatedPages = pages
}

func (r *Relation) bitmapOffset(slot int) int { return slot }
func (r *Relation) recordOffset(slot int) int { return r.slotCount + slot*r.recordWidth }

// addDataPage allocates a fresh page, zeroes its bitmap region (the whole
// page is already zero from a fresh allocation, but the zeroing is
// explicit so the invariant holds even if the store ever recycles dirty
// bytes), marks it dirty, and appends it to allocatedPages.
func (r *Relation) addDataPage() (storage.Address, error) {
	frame, err := r.pool.NewPage()
	if err != nil {
		return storage.Address{}, fmt.Errorf("relation: failed to allocate data page for %q: %w", r.Name, err)
	}
	for i := range frame.Data {
		frame.Data[i] = 0
	}
	addr := frame.Addr
	if err := r.pool.FreePage(addr, true); err != nil {
		return storage.Address{}, err
	}
	r.allocatedPages = append(r.allocatedPages, addr)
	return addr, nil
}

// insertIntoPage scans addr's bitmap for the first free slot and writes
// values there. Returns ErrPageFull if the page has none.
func (r *Relation) insertIntoPage(addr storage.Address, values []any) (RID, error) {
	frame, err := r.pool.GetPage(addr)
	if err != nil {
		return RID{}, err
	}

	slot := -1
	for i := 0; i < r.slotCount; i++ {
		if frame.Data[r.bitmapOffset(i)] == 0x00 {
			slot = i
			break
		}
	}
	if slot == -1 {
		r.pool.FreePage(addr, false)
		return RID{}, ErrPageFull
	}

	off := r.recordOffset(slot)
	if err := encodeRecord(r.Schema, values, frame.Data[off:off+r.recordWidth]); err != nil {
		r.pool.FreePage(addr, false)
		return RID{}, err
	}
	frame.Data[r.bitmapOffset(slot)] = 0x01

	if err := r.pool.FreePage(addr, true); err != nil {
		return RID{}, err
	}
	return RID{Page: addr, Slot: slot}, nil
}

// InsertRecord appends a fresh data page and inserts values into its first
// slot. This is the "always append" free-page policy: simplest
// conformant, deterministic, and the one the engine this was modeled on
// actually uses, at the cost of page-space efficiency.
func (r *Relation) InsertRecord(values []any) (RID, error) {
	if len(values) != len(r.Schema) {
		return RID{}, fmt.Errorf("%w: relation %q expects %d values, got %d", ErrBadRequest, r.Name, len(r.Schema), len(values))
	}

	addr, err := r.addDataPage()
	if err != nil {
		return RID{}, err
	}
	return r.insertIntoPage(addr, values)
}

// ReadRecord decodes the record at rid without checking its bitmap byte;
// callers that care about liveness scan first.
func (r *Relation) ReadRecord(rid RID) (Record, error) {
	frame, err := r.pool.GetPage(rid.Page)
	if err != nil {
		return Record{}, err
	}
	defer r.pool.FreePage(rid.Page, false)

	off := r.recordOffset(rid.Slot)
	values, err := decodeRecord(r.Schema, frame.Data[off:off+r.recordWidth])
	if err != nil {
		return Record{}, err
	}
	ridCopy := rid
	return Record{Values: values, Addr: &ridCopy}, nil
}

// UpdateRecord rewrites the bytes at rid with newValues. The bitmap is
// untouched — the slot must already be occupied.
func (r *Relation) UpdateRecord(rid RID, newValues []any) error {
	if len(newValues) != len(r.Schema) {
		return fmt.Errorf("%w: relation %q expects %d values, got %d", ErrBadRequest, r.Name, len(r.Schema), len(newValues))
	}

	frame, err := r.pool.GetPage(rid.Page)
	if err != nil {
		return err
	}

	off := r.recordOffset(rid.Slot)
	if err := encodeRecord(r.Schema, newValues, frame.Data[off:off+r.recordWidth]); err != nil {
		r.pool.FreePage(rid.Page, false)
		return err
	}

	return r.pool.FreePage(rid.Page, true)
}

// DeleteRecord clears rid's bitmap byte, leaving the record bytes in place
// until a later insert overwrites them.
func (r *Relation) DeleteRecord(rid RID) error {
	frame, err := r.pool.GetPage(rid.Page)
	if err != nil {
		return err
	}
	frame.Data[r.bitmapOffset(rid.Slot)] = 0x00
	return r.pool.FreePage(rid.Page, true)
}

// IsOccupied reports whether rid's bitmap byte currently marks it live.
func (r *Relation) IsOccupied(rid RID) (bool, error) {
	frame, err := r.pool.GetPage(rid.Page)
	if err != nil {
		return false, err
	}
	defer r.pool.FreePage(rid.Page, false)
	return frame.Data[r.bitmapOffset(rid.Slot)] == 0x01, nil
}
