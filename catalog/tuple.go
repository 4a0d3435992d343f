package catalog

import (
	"errors"
	"fmt"
	"strings"

	"heapdb/catalog/db_types"
	"heapdb/disk/pages"
)

var ErrSchemaMismatch = errors.New("values do not match the schema")

// RecordID locates a tuple by its page and its slot on that page.
type RecordID struct {
	PageID pages.PageID
	Slot   int
}

func (r RecordID) String() string {
	return fmt.Sprintf("%s/%d", r.PageID, r.Slot)
}

// Tuple is a row interpreted with a schema. Rid is set once the tuple is stored on or read from a page.
type Tuple struct {
	schema *Schema
	values []*db_types.Value
	Rid    *RecordID
}

func NewTupleWithSchema(values []*db_types.Value, schema *Schema) (*Tuple, error) {
	if len(values) != schema.NumFields() {
		return nil, fmt.Errorf("%w: schema has %d columns, got %d values", ErrSchemaMismatch, schema.NumFields(), len(values))
	}
	for i, v := range values {
		if v == nil || v.GetTypeId() != schema.GetColumn(i).TypeId {
			return nil, fmt.Errorf("%w: column %d", ErrSchemaMismatch, i)
		}
	}

	return &Tuple{schema: schema, values: values}, nil
}

// NewTuple is a shorthand that wraps go values (int32 or string) into db values.
func NewTuple(schema *Schema, values ...interface{}) (*Tuple, error) {
	vals := make([]*db_types.Value, len(values))
	for i, v := range values {
		switch v.(type) {
		case int32, string:
			vals[i] = db_types.NewValue(v)
		default:
			return nil, fmt.Errorf("%w: unsupported go type %T", ErrSchemaMismatch, v)
		}
	}
	return NewTupleWithSchema(vals, schema)
}

func (t *Tuple) Schema() *Schema {
	return t.schema
}

func (t *Tuple) GetValue(columnIdx int) *db_types.Value {
	return t.values[columnIdx]
}

func (t *Tuple) Values() []*db_types.Value {
	return t.values
}

// Serialize writes the tuple into dest which must be at least Schema().Size() bytes.
func (t *Tuple) Serialize(dest []byte) {
	for i, val := range t.values {
		col := t.schema.GetColumn(i)
		val.Serialize(dest[col.Offset : col.Offset+col.Size()])
	}
}

func DeserializeTuple(schema *Schema, src []byte) (*Tuple, error) {
	if len(src) < schema.Size() {
		return nil, fmt.Errorf("tuple needs %d bytes, got %d", schema.Size(), len(src))
	}

	values := make([]*db_types.Value, schema.NumFields())
	for i, col := range schema.GetColumns() {
		v, err := db_types.Deserialize(col.TypeId, src[col.Offset:col.Offset+col.Size()])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		values[i] = v
	}

	return &Tuple{schema: schema, values: values}, nil
}

// Equal compares values only, record ids are ignored.
func (t *Tuple) Equal(other *Tuple) bool {
	if other == nil || len(t.values) != len(other.values) {
		return false
	}
	for i := range t.values {
		if !t.values[i].Equal(other.values[i]) {
			return false
		}
	}
	return true
}

func (t *Tuple) String() string {
	parts := make([]string, len(t.values))
	for i, v := range t.values {
		parts[i] = v.String()
	}
	return strings.Join(parts, "\t")
}
