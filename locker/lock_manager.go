package locker

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"heapdb/common"
	"heapdb/disk/pages"
	"heapdb/metrics"
	"heapdb/transaction"
)

var (
	// ErrTxnAborted is the root of every condition that forces a transaction to roll back.
	ErrTxnAborted = errors.New("transaction aborted")

	ErrLockTimeout    = fmt.Errorf("%w: lock wait timed out", ErrTxnAborted)
	ErrMarkedForAbort = fmt.Errorf("%w: marked for abort by another transaction", ErrTxnAborted)
)

type LockMode int

const (
	SharedLock LockMode = iota
	ExclusiveLock
)

func (m LockMode) String() string {
	if m == ExclusiveLock {
		return "exclusive"
	}
	return "shared"
}

// lockState is the lock table entry of one page. Its own mutex guards it. wake is closed and replaced whenever
// the lock is released so that every waiter re-validates the state.
type lockState struct {
	mu        sync.Mutex
	readers   int
	exclusive bool
	owners    map[transaction.TxnID]struct{}
	wake      chan struct{}
}

func newLockState() *lockState {
	return &lockState{
		owners: make(map[transaction.TxnID]struct{}),
		wake:   make(chan struct{}),
	}
}

func (ls *lockState) locked() bool {
	return ls.exclusive || ls.readers > 0
}

func (ls *lockState) broadcast() {
	close(ls.wake)
	ls.wake = make(chan struct{})
}

// LockManager implements strict two phase locking on pages. A request that cannot be granted waits on the
// page's entry for at most the configured timeout and then aborts the requester, or, under the WoundReaders
// policy, the shared holders standing in a writer's way.
//
// mu guards only the page => entry map, the txn => pages map and the abort marks. It is never held while
// waiting and is always taken after an entry's mutex, never before it.
type LockManager struct {
	mu     sync.Mutex
	locks  map[pages.PageID]*lockState
	txns   map[transaction.TxnID]map[pages.PageID]struct{}
	doomed map[transaction.TxnID]struct{}

	timeout time.Duration
	policy  Policy
	log     *zap.Logger
	metrics *metrics.Metrics
}

type Option func(*LockManager)

func WithTimeout(d time.Duration) Option {
	return func(lm *LockManager) { lm.timeout = d }
}

func WithPolicy(p Policy) Option {
	return func(lm *LockManager) { lm.policy = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(lm *LockManager) { lm.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(lm *LockManager) { lm.metrics = m }
}

func NewLockManager(opts ...Option) *LockManager {
	lm := &LockManager{
		locks:   make(map[pages.PageID]*lockState),
		txns:    make(map[transaction.TxnID]map[pages.PageID]struct{}),
		doomed:  make(map[transaction.TxnID]struct{}),
		timeout: common.DefaultLockTimeout,
		policy:  AbortSelf,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(lm)
	}
	if lm.metrics == nil {
		lm.metrics = metrics.New(nil)
	}
	return lm
}

// LockRead acquires a shared lock. It returns immediately if txn already holds any lock on the page.
func (lm *LockManager) LockRead(txn transaction.TxnID, pid pages.PageID) error {
	return lm.acquire(txn, pid, SharedLock)
}

// LockWrite acquires an exclusive lock, upgrading a shared lock in place when txn is its only holder.
func (lm *LockManager) LockWrite(txn transaction.TxnID, pid pages.PageID) error {
	return lm.acquire(txn, pid, ExclusiveLock)
}

func (lm *LockManager) acquire(txn transaction.TxnID, pid pages.PageID, mode LockMode) error {
	ls := lm.entry(pid)
	deadline := time.Now().Add(lm.timeout)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	waited := false
	ls.mu.Lock()
	for {
		if lm.consumeAbortMark(txn) {
			ls.mu.Unlock()
			lm.metrics.Aborts.Inc()
			lm.log.Info("transaction observed abort mark", zap.Stringer("txn", txn), zap.Stringer("page", pid))
			return fmt.Errorf("%w: %s lock on page %s", ErrMarkedForAbort, mode, pid)
		}

		if lm.tryGrant(ls, txn, pid, mode) {
			ls.mu.Unlock()
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			if mode == ExclusiveLock && lm.policy == WoundReaders && lm.woundReaders(ls, txn, pid) {
				ls.mu.Unlock()
				return nil
			}
			ls.mu.Unlock()

			lm.metrics.LockTimeouts.Inc()
			lm.metrics.Aborts.Inc()
			lm.log.Info("lock wait timed out", zap.Stringer("txn", txn), zap.Stringer("page", pid),
				zap.Stringer("mode", mode), zap.Duration("timeout", lm.timeout))
			return fmt.Errorf("%w: %s lock on page %s", ErrLockTimeout, mode, pid)
		}

		if !waited {
			waited = true
			lm.metrics.LockWaits.Inc()
		}
		if timer == nil {
			timer = time.NewTimer(remaining)
		}

		wake := ls.wake
		ls.mu.Unlock()
		select {
		case <-wake:
		case <-timer.C:
		}
		ls.mu.Lock()
	}
}

// tryGrant grants the lock if it is compatible with the current state. ls.mu must be held.
func (lm *LockManager) tryGrant(ls *lockState, txn transaction.TxnID, pid pages.PageID, mode LockMode) bool {
	_, owned := ls.owners[txn]

	if mode == SharedLock {
		// any lock already held satisfies a read
		if owned {
			return true
		}
		if ls.exclusive {
			return false
		}
		ls.readers++
		lm.grant(ls, txn, pid, mode)
		return true
	}

	if owned {
		if ls.exclusive {
			return true
		}

		// upgrade case, where txn already has read lock, wants the write lock and is the only owner.
		if ls.readers == 1 {
			ls.readers = 0
			ls.exclusive = true
			lm.metrics.LockGrants.WithLabelValues("upgrade").Inc()
			return true
		}
		return false
	}

	if ls.locked() {
		return false
	}
	ls.exclusive = true
	lm.grant(ls, txn, pid, mode)
	return true
}

func (lm *LockManager) grant(ls *lockState, txn transaction.TxnID, pid pages.PageID, mode LockMode) {
	ls.owners[txn] = struct{}{}

	lm.mu.Lock()
	set, ok := lm.txns[txn]
	if !ok {
		set = make(map[pages.PageID]struct{})
		lm.txns[txn] = set
	}
	set[pid] = struct{}{}
	lm.mu.Unlock()

	lm.metrics.LockGrants.WithLabelValues(mode.String()).Inc()
}

// woundReaders marks every other shared holder of the page for abort, strips their locks and hands the exclusive
// lock to txn. It refuses when the page is held exclusively by someone else. ls.mu must be held.
func (lm *LockManager) woundReaders(ls *lockState, txn transaction.TxnID, pid pages.PageID) bool {
	if ls.exclusive {
		return false
	}

	_, owned := ls.owners[txn]
	victims := make([]transaction.TxnID, 0, len(ls.owners))
	for owner := range ls.owners {
		if owner != txn {
			victims = append(victims, owner)
		}
	}

	lm.mu.Lock()
	for _, victim := range victims {
		delete(ls.owners, victim)
		delete(lm.txns[victim], pid)
		lm.doomed[victim] = struct{}{}
	}
	lm.mu.Unlock()

	ls.readers = 0
	ls.exclusive = true
	if !owned {
		lm.grant(ls, txn, pid, ExclusiveLock)
	} else {
		lm.metrics.LockGrants.WithLabelValues("upgrade").Inc()
	}

	lm.metrics.Wounds.Add(float64(len(victims)))
	lm.log.Warn("writer timed out behind readers, marked readers for abort",
		zap.Stringer("txn", txn), zap.Stringer("page", pid), zap.Int("victims", len(victims)))
	return true
}

// Unlock releases txn's lock on the page. Unlocking a page the transaction does not hold is a broken lock
// discipline and panics.
func (lm *LockManager) Unlock(txn transaction.TxnID, pid pages.PageID) {
	lm.mu.Lock()
	ls, ok := lm.locks[pid]
	lm.mu.Unlock()
	if !ok {
		lm.log.Panic("unlocked non-existing lock", zap.Stringer("txn", txn), zap.Stringer("page", pid))
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if _, ok := ls.owners[txn]; !ok {
		lm.log.Panic("unlocked a page that is not held by the transaction", zap.Stringer("txn", txn), zap.Stringer("page", pid))
	}
	if !ls.locked() {
		lm.log.Panic("unlocked a page that is not locked", zap.Stringer("txn", txn), zap.Stringer("page", pid))
	}

	delete(ls.owners, txn)
	lm.mu.Lock()
	delete(lm.txns[txn], pid)
	lm.mu.Unlock()

	if ls.exclusive {
		ls.exclusive = false
		ls.broadcast()
		return
	}

	// a single remaining reader may be waiting to upgrade
	ls.readers--
	if ls.readers <= 1 {
		ls.broadcast()
	}
}

// HoldsLock reports whether txn holds any lock on the page.
func (lm *LockManager) HoldsLock(txn transaction.TxnID, pid pages.PageID) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	_, ok := lm.txns[txn][pid]
	return ok
}

// PagesOf returns the pages txn holds a lock on, ordered by table and page number.
func (lm *LockManager) PagesOf(txn transaction.TxnID) []pages.PageID {
	lm.mu.Lock()
	res := make([]pages.PageID, 0, len(lm.txns[txn]))
	for pid := range lm.txns[txn] {
		res = append(res, pid)
	}
	lm.mu.Unlock()

	sort.Slice(res, func(i, j int) bool {
		if res[i].TableID != res[j].TableID {
			return res[i].TableID < res[j].TableID
		}
		return res[i].PageNo < res[j].PageNo
	})
	return res
}

// MarkForAbort dooms txn. Its next lock request fails with ErrMarkedForAbort; the mark fires only once.
func (lm *LockManager) MarkForAbort(txn transaction.TxnID) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.doomed[txn] = struct{}{}
}

// IsMarkedForAbort reports the mark without consuming it.
func (lm *LockManager) IsMarkedForAbort(txn transaction.TxnID) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	_, ok := lm.doomed[txn]
	return ok
}

// CleanTransaction drops all bookkeeping of a finished transaction. Every page must already be unlocked.
func (lm *LockManager) CleanTransaction(txn transaction.TxnID) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if n := len(lm.txns[txn]); n > 0 {
		lm.log.Warn("cleaning a transaction that still holds locks", zap.Stringer("txn", txn), zap.Int("pages", n))
	}
	delete(lm.txns, txn)
	delete(lm.doomed, txn)
}

func (lm *LockManager) consumeAbortMark(txn transaction.TxnID) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if _, ok := lm.doomed[txn]; ok {
		delete(lm.doomed, txn)
		return true
	}
	return false
}

// entry returns the page's lock table entry, creating it on first access. Entries are never removed.
func (lm *LockManager) entry(pid pages.PageID) *lockState {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	ls, ok := lm.locks[pid]
	if !ok {
		ls = newLockState()
		lm.locks[pid] = ls
	}
	return ls
}

func (lm *LockManager) Timeout() time.Duration {
	return lm.timeout
}
