package relation

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"github.com/lunaire/sgbd/pkg/storage"
)

// catalogFile is the name of the serialized catalog snapshot inside the
// database directory.
const catalogFile = "tables.sv"

// Catalog is the mutable name -> Relation mapping. It is mutated only by
// CreateTable, DropTable, DropTables, and Load; never aliased to callers.
type Catalog struct {
	mu    sync.RWMutex
	pool  *storage.BufferPool
	pageSize int
	tables map[string]*Relation
}

// NewCatalog returns an empty catalog bound to pool.
func NewCatalog(pool *storage.BufferPool, pageSize int) *Catalog {
	return &Catalog{
		pool:     pool,
		pageSize: pageSize,
		tables:   make(map[string]*Relation),
	}
}

// CreateTable registers a new relation. Fails with ErrDuplicateTable if
// name is already registered.
func (c *Catalog) CreateTable(name string, schema Schema) (*Relation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tables[name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateTable, name)
	}

	rel, err := NewRelation(name, schema, c.pageSize, c.pool)
	if err != nil {
		return nil, err
	}
	c.tables[name] = rel
	return rel, nil
}

// Get returns the relation registered under name.
func (c *Catalog) Get(name string) (*Relation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rel, ok := c.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}
	return rel, nil
}

// List returns every registered table name.
func (c *Catalog) List() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	return names
}

// DropTable writes back any resident dirty frame of name's pages and
// removes the relation from the catalog. Its pages are not returned to
// the page store's free-list.
func (c *Catalog) DropTable(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rel, ok := c.tables[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}
	for _, addr := range rel.allocatedPages {
		c.pool.FlushPage(addr) //nolint:errcheck // best-effort; dropping the table regardless
	}
	delete(c.tables, name)
	return nil
}

// DropTables removes every registered table.
func (c *Catalog) DropTables() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables = make(map[string]*Relation)
}

// Save serializes the catalog to {dir}/tables.sv using a length-prefixed
// encoding: table count, then per table name, schema, and allocated page
// list. The format is not read by anything outside this package.
func (c *Catalog) Save(dir string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var buf []byte
	buf = appendUint32(buf, uint32(len(c.tables)))

	for name, rel := range c.tables {
		buf = appendString(buf, name)

		buf = appendUint32(buf, uint32(len(rel.Schema)))
		for _, col := range rel.Schema {
			buf = appendString(buf, col.Name)
			buf = append(buf, byte(col.Kind))
			buf = appendUint32(buf, uint32(col.N))
		}

		buf = appendUint32(buf, uint32(len(rel.allocatedPages)))
		for _, addr := range rel.allocatedPages {
			var entry [16]byte
			binary.LittleEndian.PutUint64(entry[0:8], uint64(addr.FileIdx))
			binary.LittleEndian.PutUint64(entry[8:16], uint64(addr.PageIdx))
			buf = append(buf, entry[:]...)
		}
	}

	path := fmt.Sprintf("%s/%s", dir, catalogFile)
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("relation: failed to write catalog: %w", err)
	}
	return nil
}

// Load reconstructs the catalog from {dir}/tables.sv. A missing file
// leaves the catalog empty rather than erroring, matching the config
// package's tolerance for a fresh database directory.
func (c *Catalog) Load(dir string) error {
	path := fmt.Sprintf("%s/%s", dir, catalogFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("relation: failed to read catalog: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	r := &byteReader{data: data}
	tableCount, err := r.uint32()
	if err != nil {
		return fmt.Errorf("relation: corrupt catalog: %w", err)
	}

	tables := make(map[string]*Relation, tableCount)
	for i := uint32(0); i < tableCount; i++ {
		name, err := r.string()
		if err != nil {
			return fmt.Errorf("relation: corrupt catalog: %w", err)
		}

		colCount, err := r.uint32()
		if err != nil {
			return fmt.Errorf("relation: corrupt catalog: %w", err)
		}
		schema := make(Schema, colCount)
		for j := uint32(0); j < colCount; j++ {
			colName, err := r.string()
			if err != nil {
				return fmt.Errorf("relation: corrupt catalog: %w", err)
			}
			kindByte, err := r.byte()
			if err != nil {
				return fmt.Errorf("relation: corrupt catalog: %w", err)
			}
			n, err := r.uint32()
			if err != nil {
				return fmt.Errorf("relation: corrupt catalog: %w", err)
			}
			schema[j] = Column{Name: colName, Kind: Kind(kindByte), N: int(n)}
		}

		rel, err := NewRelation(name, schema, c.pageSize, c.pool)
		if err != nil {
			return fmt.Errorf("relation: failed to reconstruct table %q: %w", name, err)
		}

		pageCount, err := r.uint32()
		if err != nil {
			return fmt.Errorf("relation: corrupt catalog: %w", err)
		}
		pages := make([]storage.Address, pageCount)
		for k := uint32(0); k < pageCount; k++ {
			entry, err := r.bytes(16)
			if err != nil {
				return fmt.Errorf("relation: corrupt catalog: %w", err)
			}
			pages[k] = storage.Address{
				FileIdx: int(binary.LittleEndian.Uint64(entry[0:8])),
				PageIdx: int(binary.LittleEndian.Uint64(entry[8:16])),
			}
		}
		rel.SetAllocatedPages(pages)
		tables[name] = rel
	}

	c.tables = tables
	return nil
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendString(buf []byte, s string) []byte {
	buf = appendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

// byteReader walks a byte slice sequentially, matching the length-prefixed
// layout Save produces.
type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) uint32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("unexpected end of catalog data")
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *byteReader) byte() (byte, error) {
	if r.pos+1 > len(r.data) {
		return 0, fmt.Errorf("unexpected end of catalog data")
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

func (r *byteReader) bytes(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("unexpected end of catalog data")
	}
	v := r.data[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

func (r *byteReader) string() (string, error) {
	n, err := r.uint32()
	if err != nil {
		return "", err
	}
	b, err := r.bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
