package buffer

import (
	"heapdb/catalog"
	"heapdb/disk/pages"
	"heapdb/transaction"
)

type Permission int

const (
	ReadOnly Permission = iota
	ReadWrite
)

func (p Permission) String() string {
	if p == ReadWrite {
		return "read-write"
	}
	return "read-only"
}

// DbFile is the on-disk representation of one table. Tuple modifications fetch their pages through the pool
// so that they are locked and cached like any other page access.
type DbFile interface {
	ID() int32
	Schema() *catalog.Schema
	NumPages() int

	// ReadPage reads the page from disk bypassing the cache.
	ReadPage(pid pages.PageID) (pages.Page, error)

	// WritePage overwrites an already allocated page on disk.
	WritePage(p pages.Page) error

	// InsertTuple adds t to the table and returns the pages it modified.
	InsertTuple(txn transaction.TxnID, t *catalog.Tuple, bp *BufferPool) ([]pages.Page, error)

	// DeleteTuple removes t from the page its record id points to and returns that page.
	DeleteTuple(txn transaction.TxnID, t *catalog.Tuple, bp *BufferPool) (pages.Page, error)
}

// FileCatalog resolves table ids to their files.
type FileCatalog interface {
	File(tableID int32) (DbFile, error)
}
