package sqllang

import (
	"strings"
	"testing"

	"github.com/lunaire/sgbd/pkg/config"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DBPath = dir
	cfg.PageSize = 256
	cfg.MaxFileCount = 4
	cfg.BufferCount = 4

	exec, err := NewExecutor(cfg)
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	t.Cleanup(func() { exec.Store.Close() })
	return exec
}

func mustExec(t *testing.T, exec *Executor, sql string) Result {
	t.Helper()
	stmt, err := Parse(sql)
	if err != nil {
		t.Fatalf("Parse(%q): %v", sql, err)
	}
	res, err := exec.Exec(stmt)
	if err != nil {
		t.Fatalf("Exec(%q): %v", sql, err)
	}
	return res
}

func TestCreateInsertSelect(t *testing.T) {
	exec := newTestExecutor(t)

	mustExec(t, exec, "CREATE TABLE Users (Id:INT, Nom:CHAR(10))")
	mustExec(t, exec, `INSERT INTO Users VALUES (1, "Alice")`)
	mustExec(t, exec, `INSERT INTO Users VALUES (2, "Bob")`)

	res := mustExec(t, exec, "SELECT * FROM Users WHERE Id=2")
	if res.Summary != "Total selected records=1" {
		t.Fatalf("expected 1 selected record, got %q", res.Summary)
	}
	if len(res.Rows) != 1 || !strings.Contains(res.Rows[0], "Bob") {
		t.Fatalf("expected a row containing Bob, got %v", res.Rows)
	}
}

func TestDeleteThenSelectCount(t *testing.T) {
	exec := newTestExecutor(t)

	mustExec(t, exec, "CREATE TABLE T (A:INT)")
	mustExec(t, exec, "INSERT INTO T VALUES (100)")

	res := mustExec(t, exec, "DELETE FROM T WHERE A=100")
	if res.Summary != "Total deleted records=1" {
		t.Fatalf("expected 1 deleted record, got %q", res.Summary)
	}

	res = mustExec(t, exec, "SELECT * FROM T")
	if res.Summary != "Total selected records=0" {
		t.Fatalf("expected 0 remaining records, got %q", res.Summary)
	}
}

func TestUpdateAppliesToMatchingRows(t *testing.T) {
	exec := newTestExecutor(t)

	mustExec(t, exec, "CREATE TABLE Users (Id:INT, Nom:CHAR(10))")
	mustExec(t, exec, `INSERT INTO Users VALUES (1, "Alice")`)

	res := mustExec(t, exec, `UPDATE Users SET Nom="Carol" WHERE Id=1`)
	if res.Summary != "Total updated records=1" {
		t.Fatalf("expected 1 updated record, got %q", res.Summary)
	}

	res = mustExec(t, exec, "SELECT * FROM Users")
	if !strings.Contains(res.Rows[0], "Carol") {
		t.Fatalf("expected updated value Carol, got %v", res.Rows)
	}
}

func TestProjectionRestrictsColumns(t *testing.T) {
	exec := newTestExecutor(t)

	mustExec(t, exec, "CREATE TABLE Users (Id:INT, Nom:CHAR(10))")
	mustExec(t, exec, `INSERT INTO Users VALUES (1, "Alice")`)

	res := mustExec(t, exec, "SELECT Nom FROM Users")
	if len(res.Rows) != 1 || res.Rows[0] != "Alice ." {
		t.Fatalf("expected a single projected column, got %v", res.Rows)
	}
}

func TestDropTableThenUnknownTable(t *testing.T) {
	exec := newTestExecutor(t)

	mustExec(t, exec, "CREATE TABLE T (A:INT)")
	mustExec(t, exec, "DROP TABLE T")

	stmt, err := Parse("SELECT * FROM T")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := exec.Exec(stmt); err == nil {
		t.Fatal("expected an unknown table error after DROP TABLE")
	}
}

func TestExitPersistsCatalogAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DBPath = dir
	cfg.PageSize = 256
	cfg.MaxFileCount = 4
	cfg.BufferCount = 4

	exec, err := NewExecutor(cfg)
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	mustExec(t, exec, "CREATE TABLE T (A:INT)")
	mustExec(t, exec, "INSERT INTO T VALUES (42)")

	stmt, _ := Parse("EXIT")
	res, err := exec.Exec(stmt)
	if err != nil {
		t.Fatalf("EXIT: %v", err)
	}
	if !res.ShouldExit {
		t.Fatal("expected ShouldExit on EXIT")
	}
	exec.Store.Close()

	reopened, err := NewExecutor(cfg)
	if err != nil {
		t.Fatalf("NewExecutor on reopen: %v", err)
	}
	defer reopened.Store.Close()

	selRes := mustExec(t, reopened, "SELECT * FROM T")
	if selRes.Summary != "Total selected records=1" {
		t.Fatalf("expected the inserted row to survive restart, got %q", selRes.Summary)
	}
}

