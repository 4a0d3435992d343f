package pages

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"heapdb/transaction"
)

func TestPageID_Is_Value_Equal(t *testing.T) {
	m := map[PageID]int{NewPageID(1, 2): 5}

	assert.Equal(t, 5, m[PageID{TableID: 1, PageNo: 2}])
	assert.NotEqual(t, NewPageID(1, 2), NewPageID(2, 1))
	assert.Equal(t, "1:2", NewPageID(1, 2).String())
}

func TestRawPage_Dirty_Marker(t *testing.T) {
	p := NewRawPage(NewPageID(1, 0), make([]byte, 16))

	txn, dirty := p.IsDirty()
	assert.False(t, dirty)
	assert.True(t, txn.IsNil())

	tid := transaction.New()
	p.MarkDirty(true, tid)
	txn, dirty = p.IsDirty()
	assert.True(t, dirty)
	assert.Equal(t, tid, txn)

	p.MarkDirty(false, tid)
	txn, dirty = p.IsDirty()
	assert.False(t, dirty)
	assert.True(t, txn.IsNil())
}
