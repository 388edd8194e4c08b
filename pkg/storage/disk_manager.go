package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// PageStore owns a directory of up to maxFileCount fixed-size-page files
// named Data{i}.bin and hands out stable page addresses to callers. The
// free-list is FIFO so a reallocated page ages through the system instead
// of rapidly cycling the most recently freed one. Unlike the
// page-chained free list this package used to maintain for variable-width
// compaction, records here are fixed width, so a flat free-list file is
// enough and pages never need compaction.
type PageStore struct {
	dir          string
	pageSize     int
	maxFileCount int

	mu       sync.Mutex
	files    map[int]*os.File
	freeList []Address

	totalReads  int64
	totalWrites int64
}

// binDataDir is the subdirectory holding Data{i}.bin files.
const binDataDir = "BinData"

// freeListFile persists the free-list across restarts (invariant I7).
const freeListFile = "dm_save.bin"

// NewPageStore opens (creating if necessary) the BinData directory under
// dir and loads any free-list persisted by a prior Finish.
func NewPageStore(dir string, pageSize, maxFileCount int) (*PageStore, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("storage: pageSize must be positive, got %d", pageSize)
	}
	if maxFileCount <= 0 {
		return nil, fmt.Errorf("storage: maxFileCount must be positive, got %d", maxFileCount)
	}

	bin := filepath.Join(dir, binDataDir)
	if err := os.MkdirAll(bin, 0755); err != nil {
		return nil, fmt.Errorf("storage: failed to create %s: %w", bin, err)
	}

	ps := &PageStore{
		dir:          dir,
		pageSize:     pageSize,
		maxFileCount: maxFileCount,
		files:        make(map[int]*os.File),
	}

	if err := ps.loadFreeList(); err != nil {
		ps.closeFiles()
		return nil, err
	}

	return ps, nil
}

func (ps *PageStore) filePath(idx int) string {
	return filepath.Join(ps.dir, binDataDir, fmt.Sprintf("Data%d.bin", idx))
}

func (ps *PageStore) openFile(idx int) (*os.File, error) {
	if f, ok := ps.files[idx]; ok {
		return f, nil
	}
	f, err := os.OpenFile(ps.filePath(idx), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	ps.files[idx] = f
	return f, nil
}

func (ps *PageStore) loadFreeList() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	path := filepath.Join(ps.dir, binDataDir, freeListFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("storage: failed to read free-list: %w", err)
	}

	const entrySize = 16
	if len(data)%entrySize != 0 {
		return fmt.Errorf("storage: corrupt free-list file (length %d not a multiple of %d)", len(data), entrySize)
	}

	ps.freeList = ps.freeList[:0]
	for off := 0; off+entrySize <= len(data); off += entrySize {
		fileIdx := int(binary.LittleEndian.Uint64(data[off : off+8]))
		pageIdx := int(binary.LittleEndian.Uint64(data[off+8 : off+entrySize]))
		ps.freeList = append(ps.freeList, Address{FileIdx: fileIdx, PageIdx: pageIdx})
	}
	return nil
}

// Finish persists the current free-list to disk. Call on clean shutdown
// (the REPL's EXIT path); satisfies invariant I7.
func (ps *PageStore) Finish() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	buf := make([]byte, 0, len(ps.freeList)*16)
	for _, a := range ps.freeList {
		var entry [16]byte
		binary.LittleEndian.PutUint64(entry[0:8], uint64(a.FileIdx))
		binary.LittleEndian.PutUint64(entry[8:16], uint64(a.PageIdx))
		buf = append(buf, entry[:]...)
	}

	path := filepath.Join(ps.dir, binDataDir, freeListFile)
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("storage: failed to write free-list: %w", err)
	}
	return nil
}

// AllocPage returns a fresh, unique page address: the free-list head if
// non-empty (I1, FIFO), otherwise a page appended to the first data file
// (Data0.bin). Data files have no size cap, so later files are never
// used, and the ErrOutOfSpace return is not reached while maxFileCount is
// positive, which NewPageStore enforces.
func (ps *PageStore) AllocPage() (Address, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if len(ps.freeList) > 0 {
		addr := ps.freeList[0]
		ps.freeList = ps.freeList[1:]
		return addr, nil
	}

	for fileIdx := 0; fileIdx < ps.maxFileCount; fileIdx++ {
		f, err := ps.openFile(fileIdx)
		if err != nil {
			return Address{}, fmt.Errorf("storage: failed to open %s: %w", ps.filePath(fileIdx), err)
		}

		info, err := f.Stat()
		if err != nil {
			return Address{}, fmt.Errorf("storage: failed to stat %s: %w", ps.filePath(fileIdx), err)
		}

		size := info.Size()
		newPageIdx := int(size / int64(ps.pageSize))

		zero := make([]byte, ps.pageSize)
		if _, err := f.WriteAt(zero, size); err != nil {
			return Address{}, fmt.Errorf("storage: failed to extend %s: %w", ps.filePath(fileIdx), err)
		}

		return Address{FileIdx: fileIdx, PageIdx: newPageIdx}, nil
	}

	return Address{}, ErrOutOfSpace
}

// ReadPage fills buf (which must be exactly pageSize bytes) with the raw
// bytes at addr.
func (ps *PageStore) ReadPage(addr Address, buf []byte) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if len(buf) != ps.pageSize {
		return ErrBadPageSize
	}

	path := ps.filePath(addr.FileIdx)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrMissingFile, path)
		}
		return err
	}

	f, err := ps.openFile(addr.FileIdx)
	if err != nil {
		return fmt.Errorf("storage: failed to open %s: %w", path, err)
	}

	offset := int64(addr.PageIdx) * int64(ps.pageSize)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return fmt.Errorf("storage: failed to read page %s: %w", addr, err)
	}

	ps.totalReads++
	return nil
}

// WritePage overwrites the pageSize bytes at addr with buf.
func (ps *PageStore) WritePage(addr Address, buf []byte) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if len(buf) != ps.pageSize {
		return ErrBadPageSize
	}

	f, err := ps.openFile(addr.FileIdx)
	if err != nil {
		return fmt.Errorf("storage: failed to open %s: %w", ps.filePath(addr.FileIdx), err)
	}

	offset := int64(addr.PageIdx) * int64(ps.pageSize)
	if _, err := f.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("storage: failed to write page %s: %w", addr, err)
	}

	ps.totalWrites++
	return nil
}

// DeallocPage pushes addr onto the tail of the free-list. On-disk bytes
// are left untouched.
func (ps *PageStore) DeallocPage(addr Address) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.freeList = append(ps.freeList, addr)
	return nil
}

// FreeListLen reports how many addresses are currently queued for reuse.
func (ps *PageStore) FreeListLen() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.freeList)
}

// Stats returns a snapshot of page store counters for the admin surface.
func (ps *PageStore) Stats() map[string]any {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return map[string]any{
		"free_pages":   len(ps.freeList),
		"total_reads":  ps.totalReads,
		"total_writes": ps.totalWrites,
		"open_files":   len(ps.files),
	}
}

func (ps *PageStore) closeFiles() {
	for _, f := range ps.files {
		f.Close()
	}
}

// Close syncs and closes every open data file.
func (ps *PageStore) Close() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	var firstErr error
	for idx, f := range ps.files {
		if err := f.Sync(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("storage: failed to sync %s: %w", ps.filePath(idx), err)
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("storage: failed to close %s: %w", ps.filePath(idx), err)
		}
	}
	ps.files = make(map[int]*os.File)
	return firstErr
}

// PageSize returns the page size this store was configured with.
func (ps *PageStore) PageSize() int { return ps.pageSize }

// Dir returns the database root directory this store was opened under.
func (ps *PageStore) Dir() string { return ps.dir }
