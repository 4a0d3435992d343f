package db_types

import (
	"fmt"
	"strconv"
)

type Value struct {
	typeID TypeID
	value  interface{}
}

func (v *Value) GetTypeId() TypeID {
	return v.typeID
}

func (v *Value) Serialize(dest []byte) {
	GetType(v.GetTypeId()).Serialize(dest, v)
}

func (v *Value) Size() int {
	return GetType(v.GetTypeId()).Length()
}

func Deserialize(typeID TypeID, src []byte) (*Value, error) {
	t := GetType(typeID)
	if t == nil {
		return nil, fmt.Errorf("unknown type id %d", typeID)
	}
	return t.Deserialize(src)
}

func (v *Value) GetAsInterface() interface{} {
	return v.value
}

func (v *Value) Equal(other *Value) bool {
	if other == nil {
		return false
	}
	return v.typeID == other.typeID && v.value == other.value
}

func (v *Value) String() string {
	switch val := v.value.(type) {
	case int32:
		return strconv.Itoa(int(val))
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

// ParseValue converts the textual form of a value of the given type.
func ParseValue(typeID TypeID, s string) (*Value, error) {
	switch typeID {
	case IntegerTypeID:
		i, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, err
		}
		return NewValue(int32(i)), nil
	case CharTypeID:
		return NewValue(s), nil
	default:
		return nil, fmt.Errorf("unknown type id %d", typeID)
	}
}

func NewValue(src interface{}) *Value {
	var typeID TypeID
	switch src.(type) {
	case int32:
		typeID = IntegerTypeID
	case string:
		typeID = CharTypeID
	default:
		panic("not supported type")
	}

	return &Value{
		typeID: typeID,
		value:  src,
	}
}
