// Package kantadb is the public entry point: a thin wrapper around the
// lsm coordinator presenting put/get/delete/range/size/numBuffer, in
// the shape of the teacher's original root DB type.
package kantadb

import (
	"github.com/nireo/kantadb/internal/config"
	"github.com/nireo/kantadb/kvpair"
	"github.com/nireo/kantadb/lsm"
)

// Config re-exports internal/config.Config so callers can configure a
// DB without importing the internal package directly.
type Config = config.Config

// DefaultConfiguration re-exports the internal default builder.
func DefaultConfiguration() *Config {
	return config.DefaultConfiguration()
}

// DB is the database handle, wrapping an *lsm.Store.
type DB struct {
	store *lsm.Store
}

// New creates a DB rooted at cfg.StorageDir.
func New(cfg *Config) (*DB, error) {
	store, err := lsm.New(cfg)
	if err != nil {
		return nil, err
	}
	return &DB{store: store}, nil
}

// Put writes (key, value).
func (db *DB) Put(key, value kvpair.K) {
	db.store.Insert(key, kvpair.V(value))
}

// Get returns the value for key and whether it was found.
func (db *DB) Get(key kvpair.K) (kvpair.V, bool) {
	return db.store.Lookup(key)
}

// Delete marks key as removed.
func (db *DB) Delete(key kvpair.K) {
	db.store.Delete(key)
}

// Range returns every live pair with lo <= key < hi.
func (db *DB) Range(lo, hi kvpair.K) []kvpair.KVPair {
	return db.store.Range(lo, hi)
}

// Size returns the approximate number of entries held by the store.
func (db *DB) Size() int { return db.store.Size() }

// NumBuffer returns the capacity of one in-memory run.
func (db *DB) NumBuffer() int { return db.store.NumBuffer() }

// PrintElts dumps every run's full key order to stdout.
func (db *DB) PrintElts() { db.store.PrintElts() }

// PrintStats dumps per-level element counts to stdout.
func (db *DB) PrintStats() { db.store.PrintStats() }

// CompactLevel manually merges the n oldest runs at level down into
// level+1, regardless of whether level is currently full.
func (db *DB) CompactLevel(level, n int) error {
	return db.store.CompactLevel(level, n)
}

// Directory returns the storage directory backing this DB.
func (db *DB) Directory() string { return db.store.Directory() }

// Close joins any in-flight background merge.
func (db *DB) Close() { db.store.Close() }
