package db_types

import (
	"encoding/binary"
	"fmt"
)

// StringLen is the maximum number of bytes a string column keeps. Longer strings are truncated.
const StringLen = 128

// CharType stores a string as a 4 byte length followed by a StringLen byte zero padded payload.
type CharType struct {
}

func (c *CharType) Serialize(dest []byte, src *Value) {
	str := src.GetAsInterface().(string)
	if len(str) > StringLen {
		str = str[:StringLen]
	}

	// first write size, then the padded payload
	binary.BigEndian.PutUint32(dest, uint32(len(str)))
	payload := dest[4 : 4+StringLen]
	n := copy(payload, str)
	clear(payload[n:])
}

func (c *CharType) Deserialize(src []byte) (*Value, error) {
	if len(src) < c.Length() {
		return nil, fmt.Errorf("string needs %d bytes, got %d", c.Length(), len(src))
	}

	l := binary.BigEndian.Uint32(src)
	if l > StringLen {
		return nil, fmt.Errorf("corrupted string length %d", l)
	}
	return NewValue(string(src[4 : 4+l])), nil
}

func (c *CharType) Length() int {
	return 4 + StringLen
}

func (c *CharType) TypeId() TypeID {
	return CharTypeID
}

func (c *CharType) Name() string {
	return "string"
}
