package db_types

import (
	"fmt"
	"strings"
)

type TypeID uint8

const (
	IntegerTypeID TypeID = 1
	CharTypeID    TypeID = 2
)

// DbType is the interface that should be implemented to make a type storable in a tuple. Every type has a fixed
// serialized length so that tuples, and hence page slots, are fixed size.
type DbType interface {
	Serialize(dest []byte, src *Value)
	Deserialize(src []byte) (*Value, error)

	// Length should return the size of the bytes when value is serialized
	Length() int

	TypeId() TypeID
	Name() string
}

func GetType(typeID TypeID) DbType {
	switch typeID {
	case IntegerTypeID:
		return &IntegerType{}
	case CharTypeID:
		return &CharType{}
	default:
		return nil
	}
}

// ParseType resolves the type names used in schema files.
func ParseType(name string) (TypeID, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "int":
		return IntegerTypeID, nil
	case "string":
		return CharTypeID, nil
	default:
		return 0, fmt.Errorf("unknown type %q", name)
	}
}

func (t TypeID) String() string {
	if dt := GetType(t); dt != nil {
		return dt.Name()
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}
