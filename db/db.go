// Package db wires the lock manager, the buffer pool and the heap files of a data directory into one handle.
package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"heapdb/buffer"
	"heapdb/catalog"
	"heapdb/catalog/db_types"
	"heapdb/config"
	"heapdb/heap"
	"heapdb/locker"
	"heapdb/logger"
	"heapdb/metrics"
	"heapdb/transaction"
)

// TableFileExt is appended to a table name to get its heap file name.
const TableFileExt = ".dat"

type DB struct {
	cfg      config.Config
	log      *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	lm     *locker.LockManager
	pool   *buffer.BufferPool
	tables *Tables
}

// Open builds a database from cfg. Tables are added with OpenTable or LoadSchema.
func Open(cfg config.Config) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	policy, err := locker.ParsePolicy(cfg.DeadlockPolicy)
	if err != nil {
		return nil, err
	}

	d := &DB{cfg: cfg, log: log, tables: NewTables()}
	if cfg.Metrics.Enabled {
		d.registry = prometheus.NewRegistry()
		d.metrics = metrics.New(d.registry)
	} else {
		d.metrics = metrics.New(nil)
	}

	d.lm = locker.NewLockManager(
		locker.WithTimeout(cfg.LockTimeout),
		locker.WithPolicy(policy),
		locker.WithLogger(log.Named("locker")),
		locker.WithMetrics(d.metrics),
	)
	d.pool = buffer.NewBufferPool(cfg.PoolSize, d.tables, d.lm,
		buffer.WithLogger(log.Named("buffer")),
		buffer.WithMetrics(d.metrics),
	)

	log.Info("database opened", zap.String("data_dir", cfg.DataDir), zap.Int("page_size", cfg.PageSize),
		zap.Int("pool_size", cfg.PoolSize), zap.Duration("lock_timeout", cfg.LockTimeout),
		zap.Stringer("deadlock_policy", policy))
	return d, nil
}

// OpenTable opens or creates the heap file of the table in the data directory and registers it.
func (d *DB) OpenTable(name string, schema *catalog.Schema, primaryKey string) (*heap.HeapFile, error) {
	return d.openTable(filepath.Join(d.cfg.DataDir, name+TableFileExt), name, schema, primaryKey)
}

func (d *DB) openTable(path, name string, schema *catalog.Schema, primaryKey string) (*heap.HeapFile, error) {
	f, err := heap.OpenHeapFile(path, schema,
		heap.WithPageSize(d.cfg.PageSize),
		heap.WithFsync(d.cfg.Fsync),
		heap.WithLogger(d.log.Named("heap")),
	)
	if err != nil {
		return nil, fmt.Errorf("opening table %s: %w", name, err)
	}

	d.tables.AddTable(f, name, primaryKey)
	d.log.Debug("table added", zap.String("table", name), zap.Int32("id", f.ID()),
		zap.Stringer("schema", schema), zap.Int("pages", f.NumPages()))
	return f, nil
}

// LoadSchema registers every table of the catalog file. Heap files are looked up next to the catalog file.
func (d *DB) LoadSchema(catalogFile string) ([]string, error) {
	f, err := os.Open(catalogFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	defs, err := ParseSchema(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", catalogFile, err)
	}

	abs, err := filepath.Abs(catalogFile)
	if err != nil {
		return nil, err
	}
	baseDir := filepath.Dir(abs)

	names := make([]string, 0, len(defs))
	for _, def := range defs {
		if _, err := d.openTable(filepath.Join(baseDir, def.Name+TableFileExt), def.Name, def.Schema, def.PrimaryKey); err != nil {
			return names, err
		}
		names = append(names, def.Name)
	}
	return names, nil
}

func (d *DB) Begin() transaction.TxnID {
	return transaction.New()
}

func (d *DB) Commit(txn transaction.TxnID) error {
	return d.pool.TransactionComplete(txn, true)
}

func (d *DB) Abort(txn transaction.TxnID) error {
	return d.pool.TransactionComplete(txn, false)
}

// Insert stores one row in the named table. Values are int32 or string in schema order.
func (d *DB) Insert(txn transaction.TxnID, table string, values ...interface{}) (*catalog.Tuple, error) {
	oid, schema, err := d.lookup(table)
	if err != nil {
		return nil, err
	}

	t, err := catalog.NewTuple(schema, values...)
	if err != nil {
		return nil, err
	}
	if err := d.pool.InsertTuple(txn, oid, t); err != nil {
		return nil, err
	}
	return t, nil
}

// InsertValues is Insert for already typed values.
func (d *DB) InsertValues(txn transaction.TxnID, table string, values []*db_types.Value) (*catalog.Tuple, error) {
	oid, schema, err := d.lookup(table)
	if err != nil {
		return nil, err
	}

	t, err := catalog.NewTupleWithSchema(values, schema)
	if err != nil {
		return nil, err
	}
	if err := d.pool.InsertTuple(txn, oid, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (d *DB) lookup(table string) (int32, *catalog.Schema, error) {
	oid, err := d.tables.TableID(table)
	if err != nil {
		return 0, nil, err
	}
	schema, err := d.tables.Schema(oid)
	if err != nil {
		return 0, nil, err
	}
	return oid, schema, nil
}

// Scan returns all rows of the named table as seen by txn.
func (d *DB) Scan(txn transaction.TxnID, table string) ([]*catalog.Tuple, error) {
	oid, err := d.tables.TableID(table)
	if err != nil {
		return nil, err
	}
	f, err := d.tables.HeapFile(oid)
	if err != nil {
		return nil, err
	}

	it := f.Iterator(txn, d.pool)
	if err := it.Open(); err != nil {
		return nil, err
	}
	defer it.Close()

	var res []*catalog.Tuple
	for {
		ok, err := it.HasNext()
		if err != nil {
			return nil, err
		}
		if !ok {
			return res, nil
		}
		t, err := it.Next()
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
}

func (d *DB) Pool() *buffer.BufferPool {
	return d.pool
}

func (d *DB) Tables() *Tables {
	return d.tables
}

func (d *DB) LockManager() *locker.LockManager {
	return d.lm
}

func (d *DB) Logger() *zap.Logger {
	return d.log
}

// Gatherer returns the metrics registry, or nil when metrics are disabled.
func (d *DB) Gatherer() prometheus.Gatherer {
	if d.registry == nil {
		return nil
	}
	return d.registry
}

// Close flushes every dirty page and closes all heap files. It must only be called once no transaction is running,
// since flushing ignores transaction boundaries.
func (d *DB) Close() error {
	var errs []error
	if err := d.pool.FlushAllPages(); err != nil {
		errs = append(errs, err)
	}
	for _, f := range d.tables.Clear() {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	d.log.Info("database closed", zap.Error(errors.Join(errs...)))
	_ = d.log.Sync()
	return errors.Join(errs...)
}
