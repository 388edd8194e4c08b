package relation

import (
	"errors"
	"testing"

	"github.com/lunaire/sgbd/pkg/storage"
)

func newTestCatalog(t *testing.T, dbDir string) (*Catalog, *storage.BufferPool, *storage.PageStore) {
	t.Helper()
	store, err := storage.NewPageStore(dbDir, 256, 4)
	if err != nil {
		t.Fatalf("NewPageStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	pool := storage.NewBufferPool(4, store, storage.LRU)
	return NewCatalog(pool, 256), pool, store
}

func TestCreateTableThenDuplicateFails(t *testing.T) {
	cat, _, _ := newTestCatalog(t, t.TempDir())

	if _, err := cat.CreateTable("Users", productSchema); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if _, err := cat.CreateTable("Users", productSchema); !errors.Is(err, ErrDuplicateTable) {
		t.Fatalf("expected ErrDuplicateTable, got %v", err)
	}
}

func TestGetUnknownTable(t *testing.T) {
	cat, _, _ := newTestCatalog(t, t.TempDir())
	if _, err := cat.Get("Ghost"); !errors.Is(err, ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}
}

func TestDropTableRemovesFromList(t *testing.T) {
	cat, _, _ := newTestCatalog(t, t.TempDir())
	cat.CreateTable("Users", productSchema)

	if err := cat.DropTable("Users"); err != nil {
		t.Fatalf("DropTable: %v", err)
	}
	if _, err := cat.Get("Users"); !errors.Is(err, ErrUnknownTable) {
		t.Fatalf("expected table to be gone after drop, got %v", err)
	}
}

func TestCatalogPersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()

	cat1, _, store1 := newTestCatalog(t, dir)
	rel, err := cat1.CreateTable("Users", productSchema)
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	rid, err := rel.InsertRecord([]any{int32(1), float32(2.5), "Alice"})
	if err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}

	if err := cat1.pool.FlushBuffers(); err != nil {
		t.Fatalf("FlushBuffers: %v", err)
	}
	if err := cat1.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store1.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	store1.Close()

	store2, err := storage.NewPageStore(dir, 256, 4)
	if err != nil {
		t.Fatalf("reopen NewPageStore: %v", err)
	}
	defer store2.Close()
	pool2 := storage.NewBufferPool(4, store2, storage.LRU)
	cat2 := NewCatalog(pool2, 256)
	if err := cat2.Load(dir); err != nil {
		t.Fatalf("Load: %v", err)
	}

	rel2, err := cat2.Get("Users")
	if err != nil {
		t.Fatalf("Get after reload: %v", err)
	}
	if len(rel2.AllocatedPages()) != 1 {
		t.Fatalf("expected 1 allocated page restored, got %d", len(rel2.AllocatedPages()))
	}

	rec, err := rel2.ReadRecord(rid)
	if err != nil {
		t.Fatalf("ReadRecord after reload: %v", err)
	}
	if rec.Values[2].(string) != "Alice" {
		t.Fatalf("expected restored record to read back \"Alice\", got %v", rec.Values)
	}
}

func TestLoadMissingCatalogIsEmpty(t *testing.T) {
	dir := t.TempDir()
	store, _ := storage.NewPageStore(dir, 256, 4)
	defer store.Close()
	pool := storage.NewBufferPool(4, store, storage.LRU)
	cat := NewCatalog(pool, 256)

	if err := cat.Load(dir); err != nil {
		t.Fatalf("Load on missing file should succeed: %v", err)
	}
	if len(cat.List()) != 0 {
		t.Fatalf("expected empty catalog, got %v", cat.List())
	}
}
