package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lunaire/sgbd/pkg/relation"
)

// Op is one of the six comparison operators a Condition may apply.
type Op string

const (
	OpEq Op = "="
	OpNe Op = "<>"
	OpLt Op = "<"
	OpGt Op = ">"
	OpLe Op = "<="
	OpGe Op = ">="
)

// Condition is one conjunct of a Filter: leftIndex compared against
// either a fixed literal (RightIsColumn=false) or another column of the
// same record (RightIsColumn=true, RightIndex used instead of Right).
type Condition struct {
	LeftIndex     int
	Op            Op
	Right         any
	RightIndex    int
	RightIsColumn bool
}

// ParseLiteral converts raw WHERE-clause text into the typed Go value a
// Condition compares against, following the column's declared type: INT
// parses as a decimal integer then narrows to int32, FLOAT parses via
// IEEE decimal parsing, anything else is kept as a string.
func ParseLiteral(raw string, kind relation.Kind) (any, error) {
	switch kind {
	case relation.KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrBadCondition, raw)
		}
		return int32(n), nil
	case relation.KindFloat:
		f, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a float", ErrBadCondition, raw)
		}
		return float32(f), nil
	default:
		return raw, nil
	}
}

// Filter yields the child's records for which every condition holds.
type Filter struct {
	child      Iterator
	conditions []Condition
}

// NewFilter wraps child with a conjunction of conditions.
func NewFilter(child Iterator, conditions []Condition) *Filter {
	return &Filter{child: child, conditions: conditions}
}

// Next pulls from the child until a record satisfies every condition, or
// the child is exhausted.
func (f *Filter) Next() (*relation.Record, error) {
	for {
		rec, err := f.child.Next()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, nil
		}

		ok, err := f.matches(rec)
		if err != nil {
			return nil, err
		}
		if ok {
			return rec, nil
		}
	}
}

func (f *Filter) matches(rec *relation.Record) (bool, error) {
	for _, cond := range f.conditions {
		if cond.LeftIndex < 0 || cond.LeftIndex >= len(rec.Values) {
			return false, fmt.Errorf("%w: left column index %d out of range", ErrBadCondition, cond.LeftIndex)
		}
		left := rec.Values[cond.LeftIndex]

		var right any
		if cond.RightIsColumn {
			if cond.RightIndex < 0 || cond.RightIndex >= len(rec.Values) {
				return false, fmt.Errorf("%w: right column index %d out of range", ErrBadCondition, cond.RightIndex)
			}
			right = rec.Values[cond.RightIndex]
		} else {
			right = cond.Right
		}

		ok, err := compareValues(left, right, cond.Op)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Reset rewinds the child.
func (f *Filter) Reset() error { return f.child.Reset() }

// Close closes the child.
func (f *Filter) Close() error { return f.child.Close() }

// compareValues implements the mixed-type rule: try a single numeric
// coercion (string -> float) before falling back to lexicographic
// comparison of the values' string forms.
func compareValues(left, right any, op Op) (bool, error) {
	lf, lok := toFloat64(left)
	rf, rok := toFloat64(right)
	if lok && rok {
		return applyNumericOp(lf, rf, op)
	}
	return applyStringOp(fmt.Sprint(left), fmt.Sprint(right), op)
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case float32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func applyNumericOp(l, r float64, op Op) (bool, error) {
	switch op {
	case OpEq:
		return l == r, nil
	case OpNe:
		return l != r, nil
	case OpLt:
		return l < r, nil
	case OpGt:
		return l > r, nil
	case OpLe:
		return l <= r, nil
	case OpGe:
		return l >= r, nil
	default:
		return false, fmt.Errorf("%w: unknown operator %q", ErrBadCondition, op)
	}
}

func applyStringOp(l, r string, op Op) (bool, error) {
	cmp := strings.Compare(l, r)
	switch op {
	case OpEq:
		return cmp == 0, nil
	case OpNe:
		return cmp != 0, nil
	case OpLt:
		return cmp < 0, nil
	case OpGt:
		return cmp > 0, nil
	case OpLe:
		return cmp <= 0, nil
	case OpGe:
		return cmp >= 0, nil
	default:
		return false, fmt.Errorf("%w: unknown operator %q", ErrBadCondition, op)
	}
}
