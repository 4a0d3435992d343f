package catalog

import "heapdb/catalog/db_types"

type Column struct {
	Name   string
	TypeId db_types.TypeID

	// Offset is the columns offset in the tuple
	Offset int
}

func (c *Column) Size() int {
	return db_types.GetType(c.TypeId).Length()
}
