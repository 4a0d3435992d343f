package disk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPageSize = 128

func page(b byte) []byte {
	data := make([]byte, testPageSize)
	for i := range data {
		data[i] = b
	}
	return data
}

func TestFileManager_Should_Append_And_Read_Pages(t *testing.T) {
	d, err := NewFileManager(filepath.Join(t.TempDir(), "t.dat"), testPageSize)
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, 0, d.NumPages())
	for i := 0; i < 5; i++ {
		pageNo, err := d.AppendPage(page(byte(i)))
		require.NoError(t, err)
		assert.Equal(t, i, pageNo)
	}
	assert.Equal(t, 5, d.NumPages())

	for i := 0; i < 5; i++ {
		data, err := d.ReadPage(i)
		require.NoError(t, err)
		assert.Equal(t, page(byte(i)), data)
	}
}

func TestFileManager_Should_Overwrite_Exactly_One_Page(t *testing.T) {
	d, err := NewFileManager(filepath.Join(t.TempDir(), "t.dat"), testPageSize)
	require.NoError(t, err)
	defer d.Close()

	for i := 0; i < 3; i++ {
		_, err := d.AppendPage(page(1))
		require.NoError(t, err)
	}

	require.NoError(t, d.WritePage(1, page(9)))

	for i, expected := range []byte{1, 9, 1} {
		data, err := d.ReadPage(i)
		require.NoError(t, err)
		assert.Equal(t, page(expected), data)
	}
	assert.Equal(t, 3, d.NumPages())
}

func TestFileManager_Should_Not_Extend_File_On_Write(t *testing.T) {
	d, err := NewFileManager(filepath.Join(t.TempDir(), "t.dat"), testPageSize)
	require.NoError(t, err)
	defer d.Close()

	assert.ErrorIs(t, d.WritePage(0, page(1)), ErrPageOutOfRange)
	_, err = d.ReadPage(0)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
	_, err = d.ReadPage(-1)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
	assert.ErrorIs(t, d.WritePage(0, make([]byte, 3)), ErrPageSize)
}

func TestFileManager_Page_Count_Is_Ceil_Of_File_Length(t *testing.T) {
	file := filepath.Join(t.TempDir(), "t.dat")
	require.NoError(t, os.WriteFile(file, make([]byte, testPageSize+1), 0644))

	d, err := NewFileManager(file, testPageSize, WithFsync(true))
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, 2, d.NumPages())

	// trailing partial page is padded
	data, err := d.ReadPage(1)
	require.NoError(t, err)
	assert.Len(t, data, testPageSize)
}

func TestFileManager_Reopen_Keeps_Pages(t *testing.T) {
	file := filepath.Join(t.TempDir(), "t.dat")
	d, err := NewFileManager(file, testPageSize)
	require.NoError(t, err)
	_, err = d.AppendPage(page(7))
	require.NoError(t, err)
	require.NoError(t, d.Close())

	_, err = d.ReadPage(0)
	assert.ErrorIs(t, err, ErrClosed)

	d, err = NewFileManager(file, testPageSize)
	require.NoError(t, err)
	defer d.Close()
	data, err := d.ReadPage(0)
	require.NoError(t, err)
	assert.Equal(t, page(7), data)
}

func TestFileManager_Append_Page_At_Allocates_Each_Page_Once(t *testing.T) {
	d, err := NewFileManager(filepath.Join(t.TempDir(), "t.dat"), testPageSize)
	require.NoError(t, err)
	defer d.Close()

	appended, err := d.AppendPageAt(0, page(1))
	require.NoError(t, err)
	assert.True(t, appended)

	appended, err = d.AppendPageAt(0, page(2))
	require.NoError(t, err)
	assert.False(t, appended)
	assert.Equal(t, 1, d.NumPages())

	data, err := d.ReadPage(0)
	require.NoError(t, err)
	assert.Equal(t, page(1), data)

	_, err = d.AppendPageAt(5, page(3))
	assert.ErrorIs(t, err, ErrPageOutOfRange)
	_, err = d.AppendPageAt(1, make([]byte, 3))
	assert.ErrorIs(t, err, ErrPageSize)
}
