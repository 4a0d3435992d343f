package catalog

import (
	"errors"
	"fmt"
	"strings"

	"heapdb/catalog/db_types"
)

var ErrColumnNotFound = errors.New("column does not exist")

// Schema describes the fixed size layout of the tuples of a table.
type Schema struct {
	columns []Column
	size    int
}

func NewSchema(cols []Column) (*Schema, error) {
	if len(cols) == 0 {
		return nil, errors.New("schema needs at least one column")
	}

	// set offsets of each column
	s := &Schema{columns: make([]Column, len(cols))}
	for i, col := range cols {
		if db_types.GetType(col.TypeId) == nil {
			return nil, fmt.Errorf("column %q has unknown type id %d", col.Name, col.TypeId)
		}
		col.Offset = s.size
		s.columns[i] = col
		s.size += col.Size()
	}

	return s, nil
}

// NewSchemaOf builds an anonymous schema from type ids only.
func NewSchemaOf(types ...db_types.TypeID) (*Schema, error) {
	cols := make([]Column, len(types))
	for i, t := range types {
		cols[i] = Column{Name: fmt.Sprintf("c%d", i), TypeId: t}
	}
	return NewSchema(cols)
}

func (s *Schema) GetColumns() []Column {
	return s.columns
}

func (s *Schema) GetColumn(idx int) *Column {
	return &s.columns[idx]
}

func (s *Schema) NumFields() int {
	return len(s.columns)
}

// Size returns the serialized size of one tuple in bytes.
func (s *Schema) Size() int {
	return s.size
}

func (s *Schema) GetColIdx(name string) (int, error) {
	for i, column := range s.columns {
		if column.Name == name {
			return i, nil
		}
	}

	return 0, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
}

// Equal reports whether two schemas have the same column types in the same order. Names are ignored.
func (s *Schema) Equal(other *Schema) bool {
	if other == nil || len(s.columns) != len(other.columns) {
		return false
	}
	for i := range s.columns {
		if s.columns[i].TypeId != other.columns[i].TypeId {
			return false
		}
	}
	return true
}

func (s *Schema) String() string {
	parts := make([]string, len(s.columns))
	for i, c := range s.columns {
		parts[i] = fmt.Sprintf("%s(%s)", c.Name, c.TypeId)
	}
	return strings.Join(parts, ", ")
}
