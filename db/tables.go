package db

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"heapdb/buffer"
	"heapdb/catalog"
	"heapdb/heap"
)

var ErrUnknownTable = errors.New("unknown table")

type tableInfo struct {
	file       *heap.HeapFile
	name       string
	primaryKey string
}

// Tables maps table names and ids to their heap files. The buffer pool resolves page ids through it.
type Tables struct {
	mu         sync.RWMutex
	tables     map[int32]*tableInfo
	tableNames map[string]int32
}

var _ buffer.FileCatalog = &Tables{}

func NewTables() *Tables {
	return &Tables{
		tables:     make(map[int32]*tableInfo),
		tableNames: make(map[string]int32),
	}
}

// AddTable registers the file under name. A table that already has the same name or the same id is replaced.
func (c *Tables) AddTable(file *heap.HeapFile, name, primaryKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if oid, ok := c.tableNames[name]; ok {
		delete(c.tables, oid)
	}
	if old, ok := c.tables[file.ID()]; ok {
		delete(c.tableNames, old.name)
	}

	c.tables[file.ID()] = &tableInfo{file: file, name: name, primaryKey: primaryKey}
	c.tableNames[name] = file.ID()
}

func (c *Tables) TableID(name string) (int32, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	oid, ok := c.tableNames[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return oid, nil
}

func (c *Tables) File(tableID int32) (buffer.DbFile, error) {
	return c.HeapFile(tableID)
}

func (c *Tables) HeapFile(tableID int32) (*heap.HeapFile, error) {
	info, err := c.get(tableID)
	if err != nil {
		return nil, err
	}
	return info.file, nil
}

func (c *Tables) Schema(tableID int32) (*catalog.Schema, error) {
	info, err := c.get(tableID)
	if err != nil {
		return nil, err
	}
	return info.file.Schema(), nil
}

func (c *Tables) PrimaryKey(tableID int32) (string, error) {
	info, err := c.get(tableID)
	if err != nil {
		return "", err
	}
	return info.primaryKey, nil
}

func (c *Tables) TableName(tableID int32) (string, error) {
	info, err := c.get(tableID)
	if err != nil {
		return "", err
	}
	return info.name, nil
}

// TableIDs returns the ids of all tables, sorted.
func (c *Tables) TableIDs() []int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res := make([]int32, 0, len(c.tables))
	for oid := range c.tables {
		res = append(res, oid)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// Clear forgets all tables and returns their files so that the caller can close them.
func (c *Tables) Clear() []*heap.HeapFile {
	c.mu.Lock()
	defer c.mu.Unlock()

	files := make([]*heap.HeapFile, 0, len(c.tables))
	for _, info := range c.tables {
		files = append(files, info.file)
	}
	c.tables = make(map[int32]*tableInfo)
	c.tableNames = make(map[string]int32)
	return files
}

func (c *Tables) get(tableID int32) (*tableInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info, ok := c.tables[tableID]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownTable, tableID)
	}
	return info, nil
}
