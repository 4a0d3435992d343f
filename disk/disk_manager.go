package disk

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"

	"heapdb/common"
)

var (
	ErrPageOutOfRange = errors.New("page number is out of the file's range")
	ErrPageSize       = errors.New("data length is not equal to page size")
	ErrClosed         = errors.New("file manager is closed")
)

type IFileManager interface {
	ReadPage(pageNo int) ([]byte, error)
	WritePage(pageNo int, data []byte) error
	AppendPage(data []byte) (pageNo int, err error)
	AppendPageAt(pageNo int, data []byte) (appended bool, err error)
	NumPages() int
	PageSize() int
	Path() string
	Close() error
}

// FileManager maps page numbers of a single file to fixed size byte ranges. Page i occupies
// [i*pageSize, (i+1)*pageSize). The page count is derived from the file length once when the file is opened and
// afterwards only grows through AppendPage.
type FileManager struct {
	file     *os.File
	filename string
	pageSize int
	numPages int
	fsync    bool
	closed   bool
	mu       sync.RWMutex
	log      *zap.Logger
}

var _ IFileManager = &FileManager{}

type Option func(*FileManager)

// WithFsync makes every page write sync the file before returning.
func WithFsync(fsync bool) Option {
	return func(m *FileManager) { m.fsync = fsync }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *FileManager) { m.log = l }
}

// NewFileManager opens or creates the file at the given path.
func NewFileManager(file string, pageSize int, opts ...Option) (*FileManager, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("invalid page size %d", pageSize)
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}

	stats, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	d := &FileManager{
		file:     f,
		filename: file,
		pageSize: pageSize,
		numPages: int(common.CeilDiv(stats.Size(), int64(pageSize))),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.log.Debug("file opened", zap.String("file", file), zap.Int64("size", stats.Size()), zap.Int("pages", d.numPages))
	return d, nil
}

// ReadPage returns a fresh copy of the page's bytes. A trailing partial page is padded with zeroes.
func (d *FileManager) ReadPage(pageNo int) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, ErrClosed
	}
	if pageNo < 0 || pageNo >= d.numPages {
		return nil, fmt.Errorf("%w: page %d, file has %d pages", ErrPageOutOfRange, pageNo, d.numPages)
	}

	data := make([]byte, d.pageSize)
	n, err := d.file.ReadAt(data, d.offset(pageNo))
	if err != nil && !(errors.Is(err, io.EOF) && n < d.pageSize) {
		return nil, err
	}

	return data, nil
}

// WritePage overwrites an already allocated page. It never extends the file, use AppendPage for that.
func (d *FileManager) WritePage(pageNo int, data []byte) error {
	if len(data) != d.pageSize {
		return fmt.Errorf("%w: got %d, page size is %d", ErrPageSize, len(data), d.pageSize)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrClosed
	}
	if pageNo < 0 || pageNo >= d.numPages {
		return fmt.Errorf("%w: page %d, file has %d pages", ErrPageOutOfRange, pageNo, d.numPages)
	}

	return d.writeAt(pageNo, data)
}

// AppendPage writes data as a new page at the end of the file and returns its page number.
func (d *FileManager) AppendPage(data []byte) (int, error) {
	if len(data) != d.pageSize {
		return 0, fmt.Errorf("%w: got %d, page size is %d", ErrPageSize, len(data), d.pageSize)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, ErrClosed
	}

	pageNo := d.numPages
	if err := d.writeAt(pageNo, data); err != nil {
		return 0, err
	}
	d.numPages++

	return pageNo, nil
}

// AppendPageAt writes data as page pageNo if that page is the next one to be allocated. When another writer has
// already allocated it, nothing is written and false is returned.
func (d *FileManager) AppendPageAt(pageNo int, data []byte) (bool, error) {
	if len(data) != d.pageSize {
		return false, fmt.Errorf("%w: got %d, page size is %d", ErrPageSize, len(data), d.pageSize)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false, ErrClosed
	}
	if pageNo < d.numPages {
		return false, nil
	}
	if pageNo > d.numPages {
		return false, fmt.Errorf("%w: cannot append page %d, file has %d pages", ErrPageOutOfRange, pageNo, d.numPages)
	}

	if err := d.writeAt(pageNo, data); err != nil {
		return false, err
	}
	d.numPages++

	return true, nil
}

func (d *FileManager) NumPages() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.numPages
}

func (d *FileManager) PageSize() int {
	return d.pageSize
}

func (d *FileManager) Path() string {
	return d.filename
}

func (d *FileManager) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.file.Close()
}

func (d *FileManager) writeAt(pageNo int, data []byte) error {
	n, err := d.file.WriteAt(data, d.offset(pageNo))
	if err != nil {
		return err
	}
	if n != d.pageSize {
		return fmt.Errorf("short write on page %d: %w", pageNo, io.ErrShortWrite)
	}

	if d.fsync {
		return d.file.Sync()
	}

	return nil
}

func (d *FileManager) offset(pageNo int) int64 {
	return int64(d.pageSize) * int64(pageNo)
}
