package db_types

import (
	"encoding/binary"
	"fmt"
)

type IntegerType struct {
}

func (i *IntegerType) Serialize(dest []byte, src *Value) {
	binary.BigEndian.PutUint32(dest, uint32(src.GetAsInterface().(int32)))
}

func (i *IntegerType) Deserialize(src []byte) (*Value, error) {
	if len(src) < i.Length() {
		return nil, fmt.Errorf("int needs %d bytes, got %d", i.Length(), len(src))
	}
	return NewValue(int32(binary.BigEndian.Uint32(src))), nil
}

func (i *IntegerType) Length() int {
	return 4
}

func (i *IntegerType) TypeId() TypeID {
	return IntegerTypeID
}

func (i *IntegerType) Name() string {
	return "int"
}
