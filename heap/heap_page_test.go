package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heapdb/catalog"
	"heapdb/catalog/db_types"
	"heapdb/disk/pages"
)

func intSchema(t *testing.T) *catalog.Schema {
	s, err := catalog.NewSchemaOf(db_types.IntegerTypeID)
	require.NoError(t, err)
	return s
}

func intTuple(t *testing.T, s *catalog.Schema, v int32) *catalog.Tuple {
	tuple, err := catalog.NewTuple(s, v)
	require.NoError(t, err)
	return tuple
}

func TestHeap_Page_Slot_Count(t *testing.T) {
	assert.Equal(t, 15, NumSlotsFor(64, 4))
	assert.Equal(t, 1, NumSlotsFor(5, 4))
	assert.Equal(t, 0, NumSlotsFor(4, 4))
	assert.Equal(t, 504, NumSlotsFor(4096, 8))

	s := intSchema(t)
	p := NewHeapPage(pages.NewPageID(1, 0), CreateEmptyPageData(64), s)
	assert.Equal(t, 15, p.NumSlots())
	assert.Equal(t, 15, p.NumEmptySlots())
	assert.Equal(t, 2, p.headerSize())
	assert.False(t, p.IsSlotUsed(-1))
	assert.False(t, p.IsSlotUsed(15))
}

func TestHeap_Page_Should_Fill_Slots_In_Order(t *testing.T) {
	s := intSchema(t)
	pid := pages.NewPageID(1, 3)
	p := NewHeapPage(pid, CreateEmptyPageData(64), s)

	for i := 0; i < 15; i++ {
		tuple := intTuple(t, s, int32(i*10))
		require.NoError(t, p.InsertTuple(tuple))
		assert.Equal(t, catalog.RecordID{PageID: pid, Slot: i}, *tuple.Rid)
	}
	assert.Equal(t, 0, p.NumEmptySlots())
	assert.Equal(t, byte(0xff), p.Data()[0])
	assert.Equal(t, byte(0x7f), p.Data()[1])

	// second tuple lives right after the bitmap
	assert.Equal(t, []byte{0, 0, 0, 10}, p.Data()[2+4:2+8])

	assert.ErrorIs(t, p.InsertTuple(intTuple(t, s, 1)), ErrPageFull)

	tuples, err := p.Tuples()
	require.NoError(t, err)
	require.Len(t, tuples, 15)
	for i, tuple := range tuples {
		assert.Equal(t, int32(i*10), tuple.GetValue(0).GetAsInterface())
		assert.Equal(t, i, tuple.Rid.Slot)
	}
}

func TestHeap_Page_Should_Reuse_Deleted_Slots(t *testing.T) {
	s := intSchema(t)
	pid := pages.NewPageID(1, 0)
	p := NewHeapPage(pid, CreateEmptyPageData(64), s)

	first, second := intTuple(t, s, 1), intTuple(t, s, 2)
	require.NoError(t, p.InsertTuple(first))
	require.NoError(t, p.InsertTuple(second))

	require.NoError(t, p.DeleteTuple(first))
	assert.Nil(t, first.Rid)
	assert.False(t, p.IsSlotUsed(0))
	assert.Equal(t, []byte{0, 0, 0, 0}, p.Data()[2:6])
	assert.Equal(t, byte(0x02), p.Data()[0])

	third := intTuple(t, s, 3)
	require.NoError(t, p.InsertTuple(third))
	assert.Equal(t, 0, third.Rid.Slot)

	tuples, err := p.Tuples()
	require.NoError(t, err)
	require.Len(t, tuples, 2)
	assert.True(t, tuples[0].Equal(third))
	assert.True(t, tuples[1].Equal(second))
}

func TestHeap_Page_Delete_Errors(t *testing.T) {
	s := intSchema(t)
	p := NewHeapPage(pages.NewPageID(1, 0), CreateEmptyPageData(64), s)

	elsewhere := intTuple(t, s, 1)
	elsewhere.Rid = &catalog.RecordID{PageID: pages.NewPageID(1, 1), Slot: 0}
	assert.ErrorIs(t, p.DeleteTuple(elsewhere), ErrTupleNotOnPage)
	assert.ErrorIs(t, p.DeleteTuple(intTuple(t, s, 1)), ErrTupleNotOnPage)

	empty := intTuple(t, s, 1)
	empty.Rid = &catalog.RecordID{PageID: p.ID(), Slot: 4}
	assert.ErrorIs(t, p.DeleteTuple(empty), ErrSlotEmpty)

	_, err := p.Tuple(4)
	assert.ErrorIs(t, err, ErrSlotEmpty)
}

func TestHeap_Page_Should_Reject_Other_Schemas(t *testing.T) {
	s := intSchema(t)
	p := NewHeapPage(pages.NewPageID(1, 0), CreateEmptyPageData(512), s)

	other, err := catalog.NewSchemaOf(db_types.CharTypeID)
	require.NoError(t, err)
	tuple, err := catalog.NewTuple(other, "x")
	require.NoError(t, err)

	assert.ErrorIs(t, p.InsertTuple(tuple), catalog.ErrSchemaMismatch)
	assert.Equal(t, p.NumSlots(), p.NumEmptySlots())
}
