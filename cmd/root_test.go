package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, string, error) {
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestCli(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, defaultCatalogFile),
		[]byte("users (id int pk, name string)\n"), 0644))

	_, _, err := run(t, "--data-dir", dir, "insert", "users", "1", "ada")
	require.NoError(t, err)
	out, _, err := run(t, "--data-dir", dir, "--page-size", "4096", "insert", "users", "2", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, "inserted at")

	out, _, err = run(t, "--data-dir", dir, "scan", "users")
	require.NoError(t, err)
	assert.Contains(t, out, "ada")
	assert.Contains(t, out, "bob")
	assert.Contains(t, out, "2 rows")

	out, _, err = run(t, "--data-dir", dir, "dump", "users")
	require.NoError(t, err)
	assert.Contains(t, out, "30")

	out, _, err = run(t, "--data-dir", dir, "tables")
	require.NoError(t, err)
	assert.Contains(t, out, "users")
	assert.Contains(t, out, "id(int), name(string)")

	_, errOut, err := run(t, "--data-dir", dir, "--stats", "scan", "users")
	require.NoError(t, err)
	assert.Contains(t, errOut, "heapdb_buffer_misses_total")

	_, _, err = run(t, "--data-dir", dir, "insert", "users", "x", "eve")
	assert.Error(t, err)
	_, _, err = run(t, "--data-dir", dir, "insert", "users", "3")
	assert.Error(t, err)
	_, _, err = run(t, "--data-dir", dir, "scan", "nope")
	assert.Error(t, err)
}

func TestCli_Config_File(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "heapdb.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("data_dir: "+dir+"\npool_size: 4\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, defaultCatalogFile), []byte("t (a int)\n"), 0644))

	_, _, err := run(t, "--config-file", cfgFile, "insert", "t", "7")
	require.NoError(t, err)

	out, _, err := run(t, "--config-file", cfgFile, "scan", "t")
	require.NoError(t, err)
	assert.Contains(t, out, "7")

	_, _, err = run(t, "--config-file", cfgFile, "--deadlock-policy", "wait-die", "tables")
	assert.Error(t, err)
}
