package buffer

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"heapdb/catalog"
	"heapdb/common"
	"heapdb/disk/pages"
	"heapdb/locker"
	"heapdb/metrics"
	"heapdb/transaction"
)

var (
	ErrInvalidPage = errors.New("invalid page")

	// ErrNoStealPoolFull is returned when every cached page is dirty, so nothing can be evicted
	// without stealing. It is an abort condition.
	ErrNoStealPoolFull = fmt.Errorf("%w: buffer pool is full of pages that cannot be evicted", locker.ErrTxnAborted)

	ErrNoRecordID = errors.New("tuple has no record id")
)

// BufferPool caches a bounded number of pages and is the only way transactions access pages. Every access takes
// a page lock from the lock manager first. Pages dirtied by a transaction stay in memory until that
// transaction commits (no steal) and are all written when it does (force).
type BufferPool struct {
	poolSize int
	mu       sync.Mutex
	slots    *lruList
	pageMap  map[pages.PageID]int // page id => index of the active slot holding it
	inFlight int                  // claimed slots whose page is being read
	loaded   *sync.Cond

	// opLocks serializes loading, flushing and discarding of the same page while mu is not held
	opLocks *common.KeyMutex[pages.PageID]

	catalog FileCatalog
	lm      *locker.LockManager
	log     *zap.Logger
	metrics *metrics.Metrics
}

type Option func(*BufferPool)

func WithLogger(l *zap.Logger) Option {
	return func(b *BufferPool) { b.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *BufferPool) { b.metrics = m }
}

func NewBufferPool(poolSize int, catalog FileCatalog, lm *locker.LockManager, opts ...Option) *BufferPool {
	if poolSize <= 0 {
		poolSize = common.DefaultPoolSize
	}

	b := &BufferPool{
		poolSize: poolSize,
		slots:    newLruList(poolSize),
		pageMap:  make(map[pages.PageID]int),
		opLocks:  &common.KeyMutex[pages.PageID]{},
		catalog:  catalog,
		lm:       lm,
		log:      zap.NewNop(),
	}
	b.loaded = sync.NewCond(&b.mu)
	for _, opt := range opts {
		opt(b)
	}
	if b.metrics == nil {
		b.metrics = metrics.New(nil)
	}
	return b
}

// GetPage locks the page for txn according to perm and returns its cached copy, reading it from disk on a miss.
// Lock acquisition may block and fails with an abort condition on timeout.
func (b *BufferPool) GetPage(txn transaction.TxnID, pid pages.PageID, perm Permission) (pages.Page, error) {
	file, err := b.catalog.File(pid.TableID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPage, err)
	}
	if pid.PageNo < 0 || pid.PageNo >= file.NumPages() {
		return nil, fmt.Errorf("%w: page %s is out of range", ErrInvalidPage, pid)
	}

	if perm == ReadWrite {
		err = b.lm.LockWrite(txn, pid)
	} else {
		err = b.lm.LockRead(txn, pid)
	}
	if err != nil {
		return nil, err
	}

	release := b.opLocks.Lock(pid)
	defer release()

	b.mu.Lock()
	if idx, ok := b.pageMap[pid]; ok {
		b.slots.moveToFront(activeRing, idx)
		p := b.slots.slots[idx].page
		b.mu.Unlock()
		b.metrics.CacheHits.Inc()
		return p, nil
	}

	idx, err := b.claimSlot()
	if err == nil {
		b.inFlight++
	}
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	b.metrics.CacheMisses.Inc()

	p, err := file.ReadPage(pid)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.inFlight--
	b.loaded.Broadcast()
	if err != nil {
		b.slots.pushFront(freeRing, idx)
		return nil, fmt.Errorf("%w: %w", ErrInvalidPage, err)
	}
	b.install(idx, p)
	return p, nil
}

// InsertTuple adds t to the table on behalf of txn. Pages modified by the file are marked dirty by txn and kept
// in the cache until txn completes.
func (b *BufferPool) InsertTuple(txn transaction.TxnID, tableID int32, t *catalog.Tuple) error {
	file, err := b.catalog.File(tableID)
	if err != nil {
		return err
	}

	dirtied, err := file.InsertTuple(txn, t, b)
	if err != nil {
		return err
	}
	for _, p := range dirtied {
		if err := b.markDirty(txn, p); err != nil {
			return err
		}
	}
	return nil
}

// DeleteTuple removes t from the table its record id points to.
func (b *BufferPool) DeleteTuple(txn transaction.TxnID, t *catalog.Tuple) error {
	if t.Rid == nil {
		return ErrNoRecordID
	}

	file, err := b.catalog.File(t.Rid.PageID.TableID)
	if err != nil {
		return err
	}

	p, err := file.DeleteTuple(txn, t, b)
	if err != nil {
		return err
	}
	return b.markDirty(txn, p)
}

func (b *BufferPool) markDirty(txn transaction.TxnID, p pages.Page) error {
	p.MarkDirty(true, txn)

	release := b.opLocks.Lock(p.ID())
	defer release()

	b.mu.Lock()
	defer b.mu.Unlock()

	if idx, ok := b.pageMap[p.ID()]; ok {
		b.slots.slots[idx].page = p
		b.slots.moveToFront(activeRing, idx)
		return nil
	}

	idx, err := b.claimSlot()
	if err != nil {
		return err
	}
	b.install(idx, p)
	return nil
}

// FlushAllPages writes every dirty cached page to disk. Pages of different tables are written in parallel. It
// ignores transaction boundaries and must not be used to commit.
func (b *BufferPool) FlushAllPages() error {
	byTable := make(map[int32][]pages.PageID)
	b.mu.Lock()
	for pid, idx := range b.pageMap {
		if _, dirty := b.slots.slots[idx].page.IsDirty(); dirty {
			byTable[pid.TableID] = append(byTable[pid.TableID], pid)
		}
	}
	b.mu.Unlock()

	var g errgroup.Group
	for _, pids := range byTable {
		g.Go(func() error {
			for _, pid := range pids {
				if err := b.flushPage(pid); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// DiscardPage drops the page from the cache without writing it.
func (b *BufferPool) DiscardPage(pid pages.PageID) {
	release := b.opLocks.Lock(pid)
	defer release()

	b.mu.Lock()
	defer b.mu.Unlock()

	idx, ok := b.pageMap[pid]
	if !ok {
		return
	}
	b.slots.unlink(activeRing, idx)
	b.slots.slots[idx].page = nil
	b.slots.pushFront(freeRing, idx)
	delete(b.pageMap, pid)

	b.metrics.Discards.Inc()
	b.metrics.ResidentPages.Set(float64(len(b.pageMap)))
}

// flushPage writes the page to its file if it is cached and dirty.
func (b *BufferPool) flushPage(pid pages.PageID) error {
	release := b.opLocks.Lock(pid)
	defer release()

	b.mu.Lock()
	idx, ok := b.pageMap[pid]
	var p pages.Page
	if ok {
		p = b.slots.slots[idx].page
	}
	b.mu.Unlock()

	if !ok {
		return nil
	}
	if _, dirty := p.IsDirty(); !dirty {
		return nil
	}

	file, err := b.catalog.File(pid.TableID)
	if err != nil {
		return err
	}
	if err := file.WritePage(p); err != nil {
		return fmt.Errorf("flushing page %s: %w", pid, err)
	}

	p.MarkDirty(false, transaction.Nil)
	b.metrics.Flushes.Inc()
	return nil
}

// TransactionComplete ends txn. On commit every page txn holds a lock on is flushed, on abort those pages are
// dropped from the cache so that the next access reads the untouched disk image. All locks of txn are released
// in both cases, also when a flush fails.
func (b *BufferPool) TransactionComplete(txn transaction.TxnID, commit bool) (err error) {
	held := b.lm.PagesOf(txn)
	defer func() {
		for _, pid := range held {
			b.lm.Unlock(txn, pid)
		}
		b.lm.CleanTransaction(txn)
		b.log.Debug("transaction completed", zap.Stringer("txn", txn), zap.Bool("commit", commit),
			zap.Int("pages", len(held)), zap.Error(err))
	}()

	if !commit {
		for _, pid := range held {
			b.DiscardPage(pid)
		}
		return nil
	}

	var errs []error
	for _, pid := range held {
		if err := b.flushPage(pid); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Commit is TransactionComplete(txn, true).
func (b *BufferPool) Commit(txn transaction.TxnID) error {
	return b.TransactionComplete(txn, true)
}

// ReleasePage unlocks the page before txn completes. This breaks two phase locking and is only safe for pages
// txn has not modified.
func (b *BufferPool) ReleasePage(txn transaction.TxnID, pid pages.PageID) {
	b.lm.Unlock(txn, pid)
}

func (b *BufferPool) HoldsLock(txn transaction.TxnID, pid pages.PageID) bool {
	return b.lm.HoldsLock(txn, pid)
}

func (b *BufferPool) Size() int {
	return b.poolSize
}

// NumCached returns the number of pages currently in the cache.
func (b *BufferPool) NumCached() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pageMap)
}

// IsCached reports whether the page is in the cache without touching its recency.
func (b *BufferPool) IsCached(pid pages.PageID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.pageMap[pid]
	return ok
}

// CachedPages returns cached page ids from most to least recently used.
func (b *BufferPool) CachedPages() []pages.PageID {
	b.mu.Lock()
	defer b.mu.Unlock()

	order := b.slots.order()
	res := make([]pages.PageID, 0, len(order))
	for _, idx := range order {
		res = append(res, b.slots.slots[idx].page.ID())
	}
	return res
}

// claimSlot takes a slot out of the free ring, evicting a page when there is none. The returned slot belongs to
// no ring until install or until it is pushed back to the free ring. When nothing can be evicted but other
// slots are still being loaded it waits for those loads, since their pages may be evictable. b.mu must be held.
func (b *BufferPool) claimSlot() (int, error) {
	for {
		if b.slots.len(freeRing) > 0 {
			idx := b.slots.back(freeRing)
			b.slots.unlink(freeRing, idx)
			return idx, nil
		}

		idx, ok := b.evict()
		if ok {
			return idx, nil
		}
		if b.inFlight == 0 {
			b.metrics.EvictionFailures.Inc()
			b.log.Info("no page can be evicted", zap.Int("pool_size", b.poolSize), zap.Int("cached", len(b.pageMap)))
			return -1, ErrNoStealPoolFull
		}
		b.loaded.Wait()
	}
}

// evict removes the least recently used clean page. Dirty pages are rotated to the head of the active ring so that
// the next candidate is tried. b.mu must be held.
func (b *BufferPool) evict() (int, bool) {
	for tries := b.slots.len(activeRing); tries > 0; tries-- {
		idx := b.slots.back(activeRing)
		p := b.slots.slots[idx].page

		if _, dirty := p.IsDirty(); dirty {
			b.slots.moveToFront(activeRing, idx)
			continue
		}

		b.slots.unlink(activeRing, idx)
		b.slots.slots[idx].page = nil
		delete(b.pageMap, p.ID())

		b.metrics.Evictions.Inc()
		b.metrics.ResidentPages.Set(float64(len(b.pageMap)))
		b.log.Debug("evicted page", zap.Stringer("page", p.ID()))
		return idx, true
	}
	return -1, false
}

// install puts p into a claimed slot at the most recently used position. b.mu must be held.
func (b *BufferPool) install(idx int, p pages.Page) {
	b.slots.slots[idx].page = p
	b.slots.pushFront(activeRing, idx)
	b.pageMap[p.ID()] = idx
	b.metrics.ResidentPages.Set(float64(len(b.pageMap)))
}
