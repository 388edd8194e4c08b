package impex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lunaire/sgbd/pkg/relation"
	"github.com/lunaire/sgbd/pkg/storage"
)

func newTestRelationFor(t *testing.T, schema relation.Schema) *relation.Relation {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewPageStore(dir, 256, 4)
	if err != nil {
		t.Fatalf("NewPageStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	pool := storage.NewBufferPool(4, store, storage.LRU)
	rel, err := relation.NewRelation("T", schema, 256, pool)
	if err != nil {
		t.Fatalf("NewRelation: %v", err)
	}
	return rel
}

func TestAppendCSVInsertsEveryRow(t *testing.T) {
	schema := relation.Schema{
		{Name: "Id", Kind: relation.KindInt},
		{Name: "Nom", Kind: relation.KindChar, N: 10},
	}
	rel := newTestRelationFor(t, schema)

	dir := t.TempDir()
	path := filepath.Join(dir, "users.csv")
	content := "Id,Nom\n1,Alice\n2,Bob\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	count, err := AppendCSV(rel, path)
	if err != nil {
		t.Fatalf("AppendCSV: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows loaded, got %d", count)
	}
}

func TestAppendCSVTypeMismatch(t *testing.T) {
	schema := relation.Schema{{Name: "Id", Kind: relation.KindInt}}
	rel := newTestRelationFor(t, schema)

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(path, []byte("Id\nnotanumber\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := AppendCSV(rel, path); err == nil {
		t.Fatal("expected a type mismatch error for a non-numeric INT field")
	}
}

func TestAppendCSVEmptyFile(t *testing.T) {
	schema := relation.Schema{{Name: "Id", Kind: relation.KindInt}}
	rel := newTestRelationFor(t, schema)

	dir := t.TempDir()
	path := filepath.Join(dir, "empty.csv")
	if err := os.WriteFile(path, []byte(""), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	count, err := AppendCSV(rel, path)
	if err != nil {
		t.Fatalf("AppendCSV on empty file: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 rows from an empty file, got %d", count)
	}
}
