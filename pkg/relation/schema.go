package relation

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Kind identifies a column's on-disk encoding.
type Kind int

const (
	// KindInt is a 4-byte little-endian signed integer.
	KindInt Kind = iota
	// KindFloat is a 4-byte IEEE-754 single precision little-endian float.
	KindFloat
	// KindChar is a fixed N-byte UTF-8 field, zero-padded, zero-stripped
	// on read. CHAR and VARCHAR share this encoding — the distinction
	// between them is surface syntax only (sqllang), not storage.
	KindChar
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "INT"
	case KindFloat:
		return "FLOAT"
	case KindChar:
		return "CHAR"
	default:
		return "UNKNOWN"
	}
}

// Column is one (name, type) pair of a Schema. N is only meaningful for
// KindChar, where it is the field's fixed byte width.
type Column struct {
	Name string
	Kind Kind
	N    int
}

// Width returns the column's fixed on-disk byte width.
func (c Column) Width() int {
	switch c.Kind {
	case KindInt, KindFloat:
		return 4
	case KindChar:
		return c.N
	default:
		return 0
	}
}

// Schema is an ordered sequence of columns. All records in a relation
// sharing a Schema have identical width.
type Schema []Column

// RecordWidth is the sum of every column's on-disk width.
func (s Schema) RecordWidth() int {
	w := 0
	for _, c := range s {
		w += c.Width()
	}
	return w
}

// IndexOf returns the position of name in the schema, or -1.
func (s Schema) IndexOf(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// EncodeValue writes v (an int32, float32, or string depending on col.Kind)
// into dst, which must be exactly col.Width() bytes.
func EncodeValue(col Column, v any, dst []byte) error {
	if len(dst) != col.Width() {
		return fmt.Errorf("relation: encode buffer is %d bytes, column %q needs %d", len(dst), col.Name, col.Width())
	}

	switch col.Kind {
	case KindInt:
		iv, err := asInt32(v)
		if err != nil {
			return fmt.Errorf("%w: column %q: %v", ErrTypeMismatch, col.Name, err)
		}
		binary.LittleEndian.PutUint32(dst, uint32(iv))
	case KindFloat:
		fv, err := asFloat32(v)
		if err != nil {
			return fmt.Errorf("%w: column %q: %v", ErrTypeMismatch, col.Name, err)
		}
		binary.LittleEndian.PutUint32(dst, math.Float32bits(fv))
	case KindChar:
		sv, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: column %q expects a string", ErrTypeMismatch, col.Name)
		}
		b := []byte(sv)
		for i := range dst {
			dst[i] = 0
		}
		copy(dst, b) // truncates to N bytes if b is longer
	default:
		return fmt.Errorf("relation: unknown column kind for %q", col.Name)
	}
	return nil
}

// DecodeValue reads col.Width() bytes from src and returns the typed Go
// value (int32, float32, or string with trailing zero bytes stripped).
func DecodeValue(col Column, src []byte) (any, error) {
	if len(src) != col.Width() {
		return nil, fmt.Errorf("relation: decode buffer is %d bytes, column %q needs %d", len(src), col.Name, col.Width())
	}

	switch col.Kind {
	case KindInt:
		return int32(binary.LittleEndian.Uint32(src)), nil
	case KindFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(src)), nil
	case KindChar:
		end := len(src)
		for end > 0 && src[end-1] == 0 {
			end--
		}
		return string(src[:end]), nil
	default:
		return nil, fmt.Errorf("relation: unknown column kind for %q", col.Name)
	}
}

func asInt32(v any) (int32, error) {
	switch n := v.(type) {
	case int32:
		return n, nil
	case int:
		return int32(n), nil
	case int64:
		return int32(n), nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}

func asFloat32(v any) (float32, error) {
	switch n := v.(type) {
	case float32:
		return n, nil
	case float64:
		return float32(n), nil
	case int32:
		return float32(n), nil
	case int:
		return float32(n), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}
