package heap

import (
	"errors"

	"heapdb/buffer"
	"heapdb/catalog"
	"heapdb/disk/pages"
	"heapdb/transaction"
)

var ErrNoSuchElement = errors.New("iterator has no more tuples")

// Iterator walks the pages of a heap file in order and yields the tuples of each page in slot order. Pages are
// read-locked for the iterating transaction. Pages appended after Open are not visited.
type Iterator struct {
	file *HeapFile
	txn  transaction.TxnID
	bp   *buffer.BufferPool

	open     bool
	numPages int
	nextPage int
	tuples   []*catalog.Tuple
	pos      int
}

func (it *Iterator) Open() error {
	it.open = true
	it.numPages = it.file.NumPages()
	it.nextPage = 0
	it.tuples = nil
	it.pos = 0
	return nil
}

func (it *Iterator) HasNext() (bool, error) {
	if !it.open {
		return false, nil
	}

	for it.pos >= len(it.tuples) {
		if it.nextPage >= it.numPages {
			return false, nil
		}

		hp, err := it.file.fetch(it.txn, pages.NewPageID(it.file.ID(), it.nextPage), it.bp, buffer.ReadOnly)
		if err != nil {
			return false, err
		}
		tuples, err := hp.Tuples()
		if err != nil {
			return false, err
		}

		it.tuples = tuples
		it.pos = 0
		it.nextPage++
	}
	return true, nil
}

func (it *Iterator) Next() (*catalog.Tuple, error) {
	ok, err := it.HasNext()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoSuchElement
	}

	t := it.tuples[it.pos]
	it.pos++
	return t, nil
}

func (it *Iterator) Rewind() error {
	it.Close()
	return it.Open()
}

func (it *Iterator) Close() {
	it.open = false
	it.tuples = nil
}
