package pages

import (
	"fmt"
	"sync"

	"heapdb/transaction"
)

// PageID identifies a page of a table's file by its zero based page number. It is a value type and is used as
// a map key by the buffer pool and the lock manager.
type PageID struct {
	TableID int32
	PageNo  int
}

func NewPageID(tableID int32, pageNo int) PageID {
	return PageID{TableID: tableID, PageNo: pageNo}
}

func (p PageID) String() string {
	return fmt.Sprintf("%d:%d", p.TableID, p.PageNo)
}

// Page is the in memory copy of a physical page. Data returns the page image that is written back to disk
// as is. The dirty state records which transaction modified the page last, so that the buffer pool can keep
// uncommitted changes away from disk.
type Page interface {
	ID() PageID
	Data() []byte
	IsDirty() (transaction.TxnID, bool)
	MarkDirty(dirty bool, txn transaction.TxnID)
}

// RawPage is the base of every page kind. It keeps the page image and the dirty marker.
type RawPage struct {
	pageID  PageID
	mu      sync.Mutex
	isDirty bool
	dirtier transaction.TxnID
	data    []byte
}

var _ Page = &RawPage{}

func NewRawPage(pageID PageID, data []byte) *RawPage {
	return &RawPage{
		pageID: pageID,
		data:   data,
	}
}

func (p *RawPage) ID() PageID {
	return p.pageID
}

func (p *RawPage) Data() []byte {
	return p.data
}

func (p *RawPage) IsDirty() (transaction.TxnID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dirtier, p.isDirty
}

func (p *RawPage) MarkDirty(dirty bool, txn transaction.TxnID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.isDirty = dirty
	if dirty {
		p.dirtier = txn
	} else {
		p.dirtier = transaction.Nil
	}
}
