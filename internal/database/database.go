// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package database opens the SQLite database shared by the record store and
// the execution engine.
package database

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
)

// FileName is the database file created under the storage volume.
const FileName = "fulltext.db"

// Open opens or creates storageVolume/fulltext.db in WAL mode. Writers wait
// up to five seconds for a lock so the API and the worker pool can share
// the file.
func Open(storageVolume string) (*sql.DB, error) {
	if err := os.MkdirAll(storageVolume, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating storage volume %s", storageVolume)
	}
	return OpenPath(filepath.Join(storageVolume, FileName))
}

// OpenPath opens the database at an explicit path.
func OpenPath(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "connecting to database %s", path)
	}
	return db, nil
}
