// Package impex streams external data into a relation. Only CSV import
// is needed by the CLI surface (export is not part of it).
package impex

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/lunaire/sgbd/pkg/relation"
)

// AppendCSV reads every row of the file at path, converts each field
// against rel's schema column by column, and inserts it. Returns the
// number of rows inserted for the CLI's "Total records loaded=N" summary.
// The first line is always treated as a header and skipped, matching the
// "ALLRECORDS (file.csv)" verb's shape.
func AppendCSV(rel *relation.Relation, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("impex: failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return 0, nil
		}
		return 0, fmt.Errorf("impex: failed to read header of %s: %w", path, err)
	}

	schema := rel.Schema
	count := 0
	for rowNum := 2; ; rowNum++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("impex: failed to read row %d of %s: %w", rowNum, path, err)
		}

		values, err := parseRow(schema, row)
		if err != nil {
			return count, fmt.Errorf("impex: row %d of %s: %w", rowNum, path, err)
		}

		if _, err := rel.InsertRecord(values); err != nil {
			return count, fmt.Errorf("impex: row %d of %s: %w", rowNum, path, err)
		}
		count++
	}

	return count, nil
}

func parseRow(schema relation.Schema, row []string) ([]any, error) {
	if len(row) != len(schema) {
		return nil, fmt.Errorf("%w: expected %d fields, got %d", relation.ErrBadRequest, len(schema), len(row))
	}

	values := make([]any, len(schema))
	for i, col := range schema {
		v, err := parseField(col, row[i])
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func parseField(col relation.Column, raw string) (any, error) {
	switch col.Kind {
	case relation.KindInt:
		var n int64
		if _, err := fmt.Sscanf(raw, "%d", &n); err != nil {
			return nil, fmt.Errorf("%w: column %q value %q is not an integer", relation.ErrTypeMismatch, col.Name, raw)
		}
		return int32(n), nil
	case relation.KindFloat:
		var f float64
		if _, err := fmt.Sscanf(raw, "%g", &f); err != nil {
			return nil, fmt.Errorf("%w: column %q value %q is not a float", relation.ErrTypeMismatch, col.Name, raw)
		}
		return float32(f), nil
	default:
		return raw, nil
	}
}
