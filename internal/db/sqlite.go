// Package db opens the SQLite store and applies its embedded migrations.
//
// SQLite allows one writer at a time, so the package hands out a pair of
// pools: a single-connection write pool that takes the write lock eagerly,
// and a wider read pool for everything else.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"
)

const (
	busyTimeoutMillis = "5000"
	defaultReadConns  = 4
	pingTimeout       = 5 * time.Second
)

// OpenSQLitePair opens the write and read pools for one SQLite file.
// readConns sizes the read pool; zero or negative picks the default.
func OpenSQLitePair(path string, readConns int) (writeDB, readDB *sql.DB, err error) {
	writeDB, err = openPool(path, true, 1)
	if err != nil {
		return nil, nil, err
	}
	if readConns <= 0 {
		readConns = defaultReadConns
	}
	readDB, err = openPool(path, false, readConns)
	if err != nil {
		_ = writeDB.Close()
		return nil, nil, err
	}
	return writeDB, readDB, nil
}

func openPool(path string, write bool, conns int) (*sql.DB, error) {
	pool, err := sql.Open("sqlite3", sqliteDSN(path, write))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	pool.SetMaxOpenConns(conns)
	pool.SetMaxIdleConns(conns)
	pool.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return pool, nil
}

// sqliteDSN appends the connection parameters shared by both pools. The
// write pool additionally takes the write lock at BEGIN so a transaction
// never discovers a lock conflict at COMMIT.
func sqliteDSN(path string, write bool) string {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", busyTimeoutMillis)
	q.Set("_synchronous", "NORMAL")
	q.Set("_foreign_keys", "on")
	if write {
		q.Set("_txlock", "immediate")
	}
	return path + "?" + q.Encode()
}
