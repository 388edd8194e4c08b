package sqllang

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lunaire/sgbd/pkg/config"
	"github.com/lunaire/sgbd/pkg/impex"
	"github.com/lunaire/sgbd/pkg/query"
	"github.com/lunaire/sgbd/pkg/relation"
	"github.com/lunaire/sgbd/pkg/storage"
)

// Result carries everything the REPL needs to render one executed
// statement: the rows to print (already stringified) and the trailing
// summary line. Exactly one of the two is non-empty for most verbs;
// Exit sets neither.
type Result struct {
	Rows       []string
	Summary    string
	ShouldExit bool
}

// Executor owns the live engine instances a parsed Stmt runs against:
// the page store, the buffer pool and the table catalog. It maps each
// Stmt variant to the relation/query package calls that implement it.
type Executor struct {
	Store    *storage.PageStore
	Pool     *storage.BufferPool
	Catalog  *relation.Catalog
	PageSize int
}

// NewExecutor wires a fresh engine instance from cfg, creating the
// on-disk layout under cfg.DBPath if absent and reloading any
// persisted catalog and free-list.
func NewExecutor(cfg *config.Config) (*Executor, error) {
	store, err := storage.NewPageStore(cfg.DBPath, cfg.PageSize, cfg.MaxFileCount)
	if err != nil {
		return nil, fmt.Errorf("sqllang: failed to open page store: %w", err)
	}
	pool := storage.NewBufferPool(cfg.BufferCount, store, cfg.BufferPolicy())
	cat := relation.NewCatalog(pool, cfg.PageSize)
	if err := cat.Load(cfg.DBPath); err != nil {
		return nil, fmt.Errorf("sqllang: failed to load catalog: %w", err)
	}
	return &Executor{Store: store, Pool: pool, Catalog: cat, PageSize: cfg.PageSize}, nil
}

// Exec runs one parsed statement and returns its Result.
func (e *Executor) Exec(stmt Stmt) (Result, error) {
	switch s := stmt.(type) {
	case CreateTable:
		return e.execCreateTable(s)
	case DropTable:
		return e.execDropTable(s)
	case DropTables:
		return e.execDropTables(s)
	case Insert:
		return e.execInsert(s)
	case AppendCSV:
		return e.execAppendCSV(s)
	case Select:
		return e.execSelect(s)
	case Delete:
		return e.execDelete(s)
	case Update:
		return e.execUpdate(s)
	case DescribeTable:
		return e.execDescribeTable(s)
	case DescribeTables:
		return e.execDescribeTables(s)
	case Exit:
		return e.execExit()
	default:
		return Result{}, fmt.Errorf("%w: unsupported statement %T", ErrSyntax, stmt)
	}
}

func (e *Executor) execCreateTable(s CreateTable) (Result, error) {
	schema, err := toSchema(s.Columns)
	if err != nil {
		return Result{}, err
	}
	if _, err := e.Catalog.CreateTable(s.Table, schema); err != nil {
		return Result{}, err
	}
	return Result{Summary: fmt.Sprintf("Table %s created", s.Table)}, nil
}

func toSchema(cols []ColumnDef) (relation.Schema, error) {
	schema := make(relation.Schema, len(cols))
	for i, c := range cols {
		var kind relation.Kind
		switch c.Type {
		case "INT":
			kind = relation.KindInt
		case "FLOAT":
			kind = relation.KindFloat
		case "CHAR", "VARCHAR":
			kind = relation.KindChar
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownType, c.Type)
		}
		schema[i] = relation.Column{Name: c.Name, Kind: kind, N: c.N}
	}
	return schema, nil
}

func (e *Executor) execDropTable(s DropTable) (Result, error) {
	if err := e.Catalog.DropTable(s.Table); err != nil {
		return Result{}, err
	}
	return Result{Summary: fmt.Sprintf("Table %s dropped", s.Table)}, nil
}

func (e *Executor) execDropTables(DropTables) (Result, error) {
	e.Catalog.DropTables()
	return Result{Summary: "All tables dropped"}, nil
}

func (e *Executor) execInsert(s Insert) (Result, error) {
	rel, err := e.Catalog.Get(s.Table)
	if err != nil {
		return Result{}, err
	}
	count := 0
	for _, row := range s.Rows {
		values, err := convertRow(rel.Schema, row)
		if err != nil {
			return Result{}, err
		}
		if _, err := rel.InsertRecord(values); err != nil {
			return Result{}, err
		}
		count++
	}
	return Result{Summary: fmt.Sprintf("Total inserted records=%d", count)}, nil
}

func convertRow(schema relation.Schema, row []string) ([]any, error) {
	if len(row) != len(schema) {
		return nil, fmt.Errorf("%w: expected %d values, got %d", relation.ErrBadRequest, len(schema), len(row))
	}
	values := make([]any, len(schema))
	for i, col := range schema {
		v, err := query.ParseLiteral(row[i], col.Kind)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func (e *Executor) execAppendCSV(s AppendCSV) (Result, error) {
	rel, err := e.Catalog.Get(s.Table)
	if err != nil {
		return Result{}, err
	}
	n, err := impex.AppendCSV(rel, s.File)
	if err != nil {
		return Result{}, err
	}
	return Result{Summary: fmt.Sprintf("Total records loaded=%d", n)}, nil
}

// buildPipeline constructs Scan -> Filter? over rel for a WHERE clause
// expressed against column names (qualifiers already stripped by the
// parser).
func buildPipeline(rel *relation.Relation, where []WhereTerm) (query.Iterator, error) {
	var it query.Iterator = query.NewScan(rel)
	if len(where) == 0 {
		return it, nil
	}
	conditions := make([]query.Condition, len(where))
	for i, w := range where {
		idx := rel.Schema.IndexOf(w.Column)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, w.Column)
		}
		cond := query.Condition{LeftIndex: idx, Op: query.Op(w.Op)}
		if w.RightIsColumn {
			rIdx := rel.Schema.IndexOf(w.RightColumn)
			if rIdx < 0 {
				return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, w.RightColumn)
			}
			cond.RightIsColumn = true
			cond.RightIndex = rIdx
		} else {
			lit, err := query.ParseLiteral(w.Literal, rel.Schema[idx].Kind)
			if err != nil {
				return nil, err
			}
			cond.Right = lit
		}
		conditions[i] = cond
	}
	return query.NewFilter(it, conditions), nil
}

func (e *Executor) execSelect(s Select) (Result, error) {
	rel, err := e.Catalog.Get(s.Table)
	if err != nil {
		return Result{}, err
	}
	it, err := buildPipeline(rel, s.Where)
	if err != nil {
		return Result{}, err
	}
	defer it.Close()

	keep, err := resolveColumns(rel.Schema, s.Columns)
	if err != nil {
		return Result{}, err
	}
	if !isIdentityProjection(keep, len(rel.Schema)) {
		it = query.NewProject(it, keep)
	}

	var rows []string
	count := 0
	for {
		rec, err := it.Next()
		if err != nil {
			return Result{}, err
		}
		if rec == nil {
			break
		}
		rows = append(rows, formatRecord(rec.Values))
		count++
	}
	return Result{Rows: rows, Summary: fmt.Sprintf("Total selected records=%d", count)}, nil
}

func resolveColumns(schema relation.Schema, names []string) ([]int, error) {
	if len(names) == 0 || (len(names) == 1 && names[0] == "*") {
		idx := make([]int, len(schema))
		for i := range schema {
			idx[i] = i
		}
		return idx, nil
	}
	idx := make([]int, len(names))
	for i, n := range names {
		n = stripQualifier(strings.TrimSpace(n))
		pos := schema.IndexOf(n)
		if pos < 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, n)
		}
		idx[i] = pos
	}
	return idx, nil
}

func isIdentityProjection(keep []int, width int) bool {
	if len(keep) != width {
		return false
	}
	for i, k := range keep {
		if k != i {
			return false
		}
	}
	return true
}

func formatRecord(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, " ; ") + " ."
}

func (e *Executor) execDelete(s Delete) (Result, error) {
	rel, err := e.Catalog.Get(s.Table)
	if err != nil {
		return Result{}, err
	}
	it, err := buildPipeline(rel, s.Where)
	if err != nil {
		return Result{}, err
	}
	defer it.Close()

	var toDelete []relation.RID
	for {
		rec, err := it.Next()
		if err != nil {
			return Result{}, err
		}
		if rec == nil {
			break
		}
		if rec.Addr != nil {
			toDelete = append(toDelete, *rec.Addr)
		}
	}
	for _, rid := range toDelete {
		if err := rel.DeleteRecord(rid); err != nil {
			return Result{}, err
		}
	}
	return Result{Summary: fmt.Sprintf("Total deleted records=%d", len(toDelete))}, nil
}

func (e *Executor) execUpdate(s Update) (Result, error) {
	rel, err := e.Catalog.Get(s.Table)
	if err != nil {
		return Result{}, err
	}
	it, err := buildPipeline(rel, s.Where)
	if err != nil {
		return Result{}, err
	}
	defer it.Close()

	type edit struct {
		rid    relation.RID
		values []any
	}
	var edits []edit
	for {
		rec, err := it.Next()
		if err != nil {
			return Result{}, err
		}
		if rec == nil {
			break
		}
		newValues := append([]any(nil), rec.Values...)
		for _, a := range s.Set {
			idx := rel.Schema.IndexOf(a.Column)
			if idx < 0 {
				return Result{}, fmt.Errorf("%w: %s", ErrUnknownColumn, a.Column)
			}
			v, err := query.ParseLiteral(a.Literal, rel.Schema[idx].Kind)
			if err != nil {
				return Result{}, err
			}
			newValues[idx] = v
		}
		if rec.Addr != nil {
			edits = append(edits, edit{rid: *rec.Addr, values: newValues})
		}
	}
	for _, ed := range edits {
		if err := rel.UpdateRecord(ed.rid, ed.values); err != nil {
			return Result{}, err
		}
	}
	return Result{Summary: fmt.Sprintf("Total updated records=%d", len(edits))}, nil
}

func (e *Executor) execDescribeTable(s DescribeTable) (Result, error) {
	rel, err := e.Catalog.Get(s.Table)
	if err != nil {
		return Result{}, err
	}
	rows := make([]string, len(rel.Schema))
	for i, c := range rel.Schema {
		width := strconv.Itoa(c.Width())
		rows[i] = c.Name + " ; " + c.Kind.String() + " ; " + width + " ."
	}
	return Result{Rows: rows, Summary: fmt.Sprintf("Table %s has %d columns", s.Table, len(rel.Schema))}, nil
}

func (e *Executor) execDescribeTables(DescribeTables) (Result, error) {
	names := e.Catalog.List()
	return Result{Rows: names, Summary: fmt.Sprintf("%d tables", len(names))}, nil
}

// execExit flushes all dirty frames, persists the catalog and the
// free-list. This is the only path that survives process restart.
func (e *Executor) execExit() (Result, error) {
	if err := e.Pool.FlushBuffers(); err != nil {
		return Result{}, err
	}
	if err := e.Catalog.Save(e.Store.Dir()); err != nil {
		return Result{}, err
	}
	if err := e.Store.Finish(); err != nil {
		return Result{}, err
	}
	return Result{ShouldExit: true}, nil
}
