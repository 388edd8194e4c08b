package relation

import "github.com/lunaire/sgbd/pkg/storage"

// RID (record address) identifies a live record: the page it lives on and
// its slot index within that page. Stable until the record is deleted.
type RID struct {
	Page storage.Address
	Slot int
}

// Record is one row: one value per schema column, in schema order. Addr is
// nil until a Scan attaches it; Project discards it.
type Record struct {
	Values []any
	Addr   *RID
}

// encodeRecord writes rec.Values into dst (exactly schema.RecordWidth()
// bytes) using each column's fixed-width encoding, back to back in
// schema order.
func encodeRecord(schema Schema, values []any, dst []byte) error {
	if len(values) != len(schema) {
		return ErrBadRequest
	}
	off := 0
	for i, col := range schema {
		w := col.Width()
		if err := EncodeValue(col, values[i], dst[off:off+w]); err != nil {
			return err
		}
		off += w
	}
	return nil
}

// decodeRecord reads len(schema) values out of src in schema order.
func decodeRecord(schema Schema, src []byte) ([]any, error) {
	values := make([]any, len(schema))
	off := 0
	for i, col := range schema {
		w := col.Width()
		v, err := DecodeValue(col, src[off:off+w])
		if err != nil {
			return nil, err
		}
		values[i] = v
		off += w
	}
	return values, nil
}
