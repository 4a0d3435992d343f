package heap

import (
	"errors"
	"fmt"

	"heapdb/catalog"
	"heapdb/common"
	"heapdb/disk/pages"
)

var (
	ErrPageFull       = errors.New("no empty slot on page")
	ErrTupleNotOnPage = errors.New("tuple does not belong to page")
	ErrSlotEmpty      = errors.New("slot is empty")
)

/**
 * Heap page format:
 *  -------------------------------------------------------------------
 *  | BITMAP | TUPLE_0 | TUPLE_1 | ... | TUPLE_(numSlots-1) | PADDING |
 *  -------------------------------------------------------------------
 *
 *  numSlots = (pageSize * 8) / (tupleSize * 8 + 1), every tuple costs its bytes plus one bitmap bit.
 *  Bitmap is ceil(numSlots/8) bytes. Slot i is used iff bit i%8 of byte i/8 is set, least significant bit first.
 *  Tuple i starts at len(bitmap) + i*tupleSize. Padding is always zero.
 */

// HeapPage interprets a raw page image as fixed size tuple slots of one schema.
type HeapPage struct {
	*pages.RawPage
	schema   *catalog.Schema
	numSlots int
}

var _ pages.Page = &HeapPage{}

func NewHeapPage(pid pages.PageID, data []byte, schema *catalog.Schema) *HeapPage {
	return &HeapPage{
		RawPage:  pages.NewRawPage(pid, data),
		schema:   schema,
		numSlots: NumSlotsFor(len(data), schema.Size()),
	}
}

// NumSlotsFor returns how many tuples of tupleSize bytes fit on a page together with their bitmap bits.
func NumSlotsFor(pageSize, tupleSize int) int {
	return (pageSize * 8) / (tupleSize*8 + 1)
}

// CreateEmptyPageData returns the image of a page without any tuple.
func CreateEmptyPageData(pageSize int) []byte {
	return make([]byte, pageSize)
}

func (p *HeapPage) NumSlots() int {
	return p.numSlots
}

func (p *HeapPage) headerSize() int {
	return int(common.CeilDiv(int64(p.numSlots), 8))
}

func (p *HeapPage) slotOffset(idx int) int {
	return p.headerSize() + idx*p.schema.Size()
}

func (p *HeapPage) IsSlotUsed(idx int) bool {
	if idx < 0 || idx >= p.numSlots {
		return false
	}
	return p.Data()[idx/8]&(1<<(idx%8)) != 0
}

func (p *HeapPage) setSlot(idx int, used bool) {
	if used {
		p.Data()[idx/8] |= 1 << (idx % 8)
	} else {
		p.Data()[idx/8] &^= 1 << (idx % 8)
	}
}

func (p *HeapPage) NumEmptySlots() int {
	empty := 0
	for i := 0; i < p.numSlots; i++ {
		if !p.IsSlotUsed(i) {
			empty++
		}
	}
	return empty
}

// InsertTuple stores t in the first empty slot and sets its record id.
func (p *HeapPage) InsertTuple(t *catalog.Tuple) error {
	if !p.schema.Equal(t.Schema()) {
		return fmt.Errorf("%w: page holds (%s)", catalog.ErrSchemaMismatch, p.schema)
	}

	for i := 0; i < p.numSlots; i++ {
		if p.IsSlotUsed(i) {
			continue
		}

		off := p.slotOffset(i)
		t.Serialize(p.Data()[off : off+p.schema.Size()])
		p.setSlot(i, true)
		t.Rid = &catalog.RecordID{PageID: p.ID(), Slot: i}
		return nil
	}

	return fmt.Errorf("%w: page %s", ErrPageFull, p.ID())
}

// DeleteTuple empties the slot t's record id points to.
func (p *HeapPage) DeleteTuple(t *catalog.Tuple) error {
	if t.Rid == nil || t.Rid.PageID != p.ID() {
		return fmt.Errorf("%w: page %s", ErrTupleNotOnPage, p.ID())
	}

	slot := t.Rid.Slot
	if !p.IsSlotUsed(slot) {
		return fmt.Errorf("%w: slot %d of page %s", ErrSlotEmpty, slot, p.ID())
	}

	p.setSlot(slot, false)
	off := p.slotOffset(slot)
	clear(p.Data()[off : off+p.schema.Size()])
	t.Rid = nil
	return nil
}

// Tuple returns the tuple stored in the slot.
func (p *HeapPage) Tuple(slot int) (*catalog.Tuple, error) {
	if !p.IsSlotUsed(slot) {
		return nil, fmt.Errorf("%w: slot %d of page %s", ErrSlotEmpty, slot, p.ID())
	}

	off := p.slotOffset(slot)
	t, err := catalog.DeserializeTuple(p.schema, p.Data()[off:off+p.schema.Size()])
	if err != nil {
		return nil, fmt.Errorf("page %s slot %d: %w", p.ID(), slot, err)
	}
	t.Rid = &catalog.RecordID{PageID: p.ID(), Slot: slot}
	return t, nil
}

// Tuples returns the tuples of all used slots in slot order.
func (p *HeapPage) Tuples() ([]*catalog.Tuple, error) {
	res := make([]*catalog.Tuple, 0, p.numSlots)
	for i := 0; i < p.numSlots; i++ {
		if !p.IsSlotUsed(i) {
			continue
		}
		t, err := p.Tuple(i)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, nil
}
