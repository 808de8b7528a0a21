package db

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteDSN(t *testing.T) {
	write := sqliteDSN("/tmp/placedir.sqlite", true)
	assert.True(t, strings.HasPrefix(write, "/tmp/placedir.sqlite?"))
	assert.Contains(t, write, "_journal_mode=WAL")
	assert.Contains(t, write, "_busy_timeout=5000")
	assert.Contains(t, write, "_synchronous=NORMAL")
	assert.Contains(t, write, "_foreign_keys=on")
	assert.Contains(t, write, "_txlock=immediate")

	read := sqliteDSN("/tmp/placedir.sqlite", false)
	assert.NotContains(t, read, "_txlock")
}

func TestOpenSQLitePair_PoolSizes(t *testing.T) {
	writeDB, readDB, err := OpenSQLitePair(filepath.Join(t.TempDir(), "p.sqlite"), 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		readDB.Close()
		writeDB.Close()
	})

	assert.Equal(t, 1, writeDB.Stats().MaxOpenConnections)
	assert.Equal(t, defaultReadConns, readDB.Stats().MaxOpenConnections)
}

func TestOpenSQLitePair_WriteVisibleToReadPool(t *testing.T) {
	writeDB, readDB, err := OpenSQLitePair(filepath.Join(t.TempDir(), "p.sqlite"), 2)
	require.NoError(t, err)
	t.Cleanup(func() {
		readDB.Close()
		writeDB.Close()
	})

	_, err = writeDB.Exec("CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)")
	require.NoError(t, err)
	_, err = writeDB.Exec("INSERT INTO kv (k, v) VALUES ('greeting', 'hello')")
	require.NoError(t, err)

	var v string
	require.NoError(t, readDB.QueryRow("SELECT v FROM kv WHERE k = 'greeting'").Scan(&v))
	assert.Equal(t, "hello", v)
}

func TestOpenSQLitePair_ConcurrentReadersAndWriter(t *testing.T) {
	writeDB, readDB, err := OpenSQLitePair(filepath.Join(t.TempDir(), "p.sqlite"), 4)
	require.NoError(t, err)
	t.Cleanup(func() {
		readDB.Close()
		writeDB.Close()
	})

	_, err = writeDB.Exec("CREATE TABLE counter (id INTEGER PRIMARY KEY, n INTEGER)")
	require.NoError(t, err)
	_, err = writeDB.Exec("INSERT INTO counter (id, n) VALUES (1, 0)")
	require.NoError(t, err)

	var wg sync.WaitGroup
	writeErrs := make([]error, 10)
	readErrs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(idx int) {
			defer wg.Done()
			_, writeErrs[idx] = writeDB.Exec("UPDATE counter SET n = n + 1 WHERE id = 1")
		}(i)
		go func(idx int) {
			defer wg.Done()
			var n int
			readErrs[idx] = readDB.QueryRow("SELECT n FROM counter WHERE id = 1").Scan(&n)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		assert.NoError(t, writeErrs[i], "writer %d", i)
		assert.NoError(t, readErrs[i], "reader %d", i)
	}

	var n int
	require.NoError(t, readDB.QueryRow("SELECT n FROM counter WHERE id = 1").Scan(&n))
	assert.Equal(t, 10, n)
}

func TestOpenSQLitePair_BadPath(t *testing.T) {
	_, _, err := OpenSQLitePair("/nonexistent/dir/p.sqlite", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping sqlite")
}

func TestOpenTestSQLite_MigratedSchema(t *testing.T) {
	writeDB, readDB := OpenTestSQLite(t)

	// Migrations ran on the write pool; the read pool sees the same file.
	var name string
	err := readDB.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='principals'",
	).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "principals", name)

	// A second run is a no-op rather than an error.
	require.NoError(t, RunMigrations(writeDB))
}
