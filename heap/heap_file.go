package heap

import (
	"errors"
	"fmt"
	"hash/fnv"
	"path/filepath"

	"go.uber.org/zap"

	"heapdb/buffer"
	"heapdb/catalog"
	"heapdb/common"
	"heapdb/disk"
	"heapdb/disk/pages"
	"heapdb/transaction"
)

var ErrPageNotFound = errors.New("page not found")

// HeapFile stores the tuples of one table in no particular order as a sequence of heap pages. It has no header
// page, the page count comes from the file length.
type HeapFile struct {
	fm     *disk.FileManager
	id     int32
	schema *catalog.Schema
	log    *zap.Logger
}

var _ buffer.DbFile = &HeapFile{}

type fileOptions struct {
	pageSize int
	fsync    bool
	tableID  *int32
	log      *zap.Logger
}

type Option func(*fileOptions)

func WithPageSize(size int) Option {
	return func(o *fileOptions) { o.pageSize = size }
}

func WithFsync(fsync bool) Option {
	return func(o *fileOptions) { o.fsync = fsync }
}

// WithTableID overrides the table id that is otherwise derived from the file's absolute path.
func WithTableID(id int32) Option {
	return func(o *fileOptions) { o.tableID = &id }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *fileOptions) { o.log = l }
}

// TableIDFor hashes the absolute path of a heap file into its table id.
func TableIDFor(path string) (int32, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}

	h := fnv.New32a()
	h.Write([]byte(abs))
	return int32(h.Sum32()), nil
}

// OpenHeapFile opens or creates the heap file at path.
func OpenHeapFile(path string, schema *catalog.Schema, opts ...Option) (*HeapFile, error) {
	o := fileOptions{pageSize: common.DefaultPageSize, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	if NumSlotsFor(o.pageSize, schema.Size()) == 0 {
		return nil, fmt.Errorf("tuple of %d bytes does not fit on a %d byte page", schema.Size(), o.pageSize)
	}

	var id int32
	if o.tableID != nil {
		id = *o.tableID
	} else {
		var err error
		if id, err = TableIDFor(path); err != nil {
			return nil, err
		}
	}

	fm, err := disk.NewFileManager(path, o.pageSize, disk.WithFsync(o.fsync), disk.WithLogger(o.log))
	if err != nil {
		return nil, err
	}

	return &HeapFile{fm: fm, id: id, schema: schema, log: o.log}, nil
}

func (f *HeapFile) ID() int32 {
	return f.id
}

func (f *HeapFile) Schema() *catalog.Schema {
	return f.schema
}

func (f *HeapFile) NumPages() int {
	return f.fm.NumPages()
}

func (f *HeapFile) PageSize() int {
	return f.fm.PageSize()
}

func (f *HeapFile) Path() string {
	return f.fm.Path()
}

func (f *HeapFile) Close() error {
	return f.fm.Close()
}

// ReadPage reads a page from disk. Read failures are reported as ErrPageNotFound.
func (f *HeapFile) ReadPage(pid pages.PageID) (pages.Page, error) {
	if pid.TableID != f.id {
		return nil, fmt.Errorf("%w: page %s is not in table %d", ErrPageNotFound, pid, f.id)
	}

	data, err := f.fm.ReadPage(pid.PageNo)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPageNotFound, err)
	}
	return NewHeapPage(pid, data, f.schema), nil
}

func (f *HeapFile) WritePage(p pages.Page) error {
	if p.ID().TableID != f.id {
		return fmt.Errorf("%w: page %s is not in table %d", ErrPageNotFound, p.ID(), f.id)
	}
	return f.fm.WritePage(p.ID().PageNo, p.Data())
}

// InsertTuple puts t on the first page with an empty slot, appending a new page when every page is full. Full
// pages are unlocked again unless txn held them before, so scanning does not hold the whole table.
func (f *HeapFile) InsertTuple(txn transaction.TxnID, t *catalog.Tuple, bp *buffer.BufferPool) ([]pages.Page, error) {
	if !f.schema.Equal(t.Schema()) {
		return nil, fmt.Errorf("%w: table holds (%s)", catalog.ErrSchemaMismatch, f.schema)
	}

	for pageNo := 0; ; pageNo++ {
		if pageNo == f.NumPages() {
			// concurrent inserters that all found the file full share one new page
			appended, err := f.fm.AppendPageAt(pageNo, CreateEmptyPageData(f.PageSize()))
			if err != nil {
				return nil, err
			}
			if appended {
				f.log.Debug("appended page", zap.Int32("table", f.id), zap.Int("page", pageNo))
			}
		}

		pid := pages.NewPageID(f.id, pageNo)
		heldBefore := bp.HoldsLock(txn, pid)
		hp, err := f.fetch(txn, pid, bp, buffer.ReadWrite)
		if err != nil {
			return nil, err
		}

		if hp.NumEmptySlots() > 0 {
			if err := hp.InsertTuple(t); err != nil {
				return nil, err
			}
			hp.MarkDirty(true, txn)
			return []pages.Page{hp}, nil
		}

		if !heldBefore {
			bp.ReleasePage(txn, pid)
		}
	}
}

func (f *HeapFile) DeleteTuple(txn transaction.TxnID, t *catalog.Tuple, bp *buffer.BufferPool) (pages.Page, error) {
	if t.Rid == nil || t.Rid.PageID.TableID != f.id {
		return nil, fmt.Errorf("%w: table %d", ErrTupleNotOnPage, f.id)
	}

	hp, err := f.fetch(txn, t.Rid.PageID, bp, buffer.ReadWrite)
	if err != nil {
		return nil, err
	}
	if err := hp.DeleteTuple(t); err != nil {
		return nil, err
	}
	hp.MarkDirty(true, txn)
	return hp, nil
}

// Iterator returns an iterator over all tuples of the file that reads pages through bp on behalf of txn.
func (f *HeapFile) Iterator(txn transaction.TxnID, bp *buffer.BufferPool) *Iterator {
	return &Iterator{file: f, txn: txn, bp: bp}
}

func (f *HeapFile) fetch(txn transaction.TxnID, pid pages.PageID, bp *buffer.BufferPool, perm buffer.Permission) (*HeapPage, error) {
	p, err := bp.GetPage(txn, pid, perm)
	if err != nil {
		return nil, err
	}

	hp, ok := p.(*HeapPage)
	if !ok {
		return nil, fmt.Errorf("page %s is a %T, not a heap page", pid, p)
	}
	return hp, nil
}
