package buffer

import (
	"errors"
	"fmt"
	"sync"

	"heapdb/catalog"
	"heapdb/disk/pages"
	"heapdb/transaction"
)

var errWriteFailed = errors.New("write failed")

// memFile keeps its "disk" in memory. A tuple insert increments the first byte of page 0, or of the page the
// tuple's record id names.
type memFile struct {
	id int32

	mu         sync.Mutex
	disk       [][]byte
	reads      map[int]int
	failWrites bool

	// afterInsert runs once a tuple insert has modified its page, before the page is handed back to the pool
	afterInsert func()
}

func newMemFile(id int32, numPages int) *memFile {
	f := &memFile{id: id, reads: make(map[int]int)}
	for i := 0; i < numPages; i++ {
		f.disk = append(f.disk, make([]byte, 16))
	}
	return f
}

func (f *memFile) ID() int32 { return f.id }

func (f *memFile) Schema() *catalog.Schema { return nil }

func (f *memFile) NumPages() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.disk)
}

func (f *memFile) ReadPage(pid pages.PageID) (pages.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if pid.PageNo >= len(f.disk) {
		return nil, fmt.Errorf("page %s not found", pid)
	}
	f.reads[pid.PageNo]++
	data := make([]byte, len(f.disk[pid.PageNo]))
	copy(data, f.disk[pid.PageNo])
	return pages.NewRawPage(pid, data), nil
}

func (f *memFile) WritePage(p pages.Page) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failWrites {
		return errWriteFailed
	}
	copy(f.disk[p.ID().PageNo], p.Data())
	return nil
}

func (f *memFile) InsertTuple(txn transaction.TxnID, t *catalog.Tuple, bp *BufferPool) ([]pages.Page, error) {
	pid := pages.NewPageID(f.id, 0)
	if t.Rid != nil {
		pid = t.Rid.PageID
	}

	p, err := bp.GetPage(txn, pid, ReadWrite)
	if err != nil {
		return nil, err
	}
	p.Data()[0]++
	if f.afterInsert != nil {
		f.afterInsert()
	}
	return []pages.Page{p}, nil
}

func (f *memFile) DeleteTuple(txn transaction.TxnID, t *catalog.Tuple, bp *BufferPool) (pages.Page, error) {
	p, err := bp.GetPage(txn, t.Rid.PageID, ReadWrite)
	if err != nil {
		return nil, err
	}
	p.Data()[0]--
	return p, nil
}

func (f *memFile) onDisk(pageNo int) byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disk[pageNo][0]
}

func (f *memFile) readCount(pageNo int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads[pageNo]
}

var errNoSuchTable = errors.New("no such table")

type memCatalog map[int32]DbFile

func (c memCatalog) File(tableID int32) (DbFile, error) {
	f, ok := c[tableID]
	if !ok {
		return nil, errNoSuchTable
	}
	return f, nil
}

func tupleAt(tableID int32, pageNo int) *catalog.Tuple {
	return &catalog.Tuple{Rid: &catalog.RecordID{PageID: pages.NewPageID(tableID, pageNo)}}
}
