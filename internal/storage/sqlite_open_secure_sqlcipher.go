//go:build sqlcipher
// +build sqlcipher

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/mutecomm/go-sqlcipher/v4"
)

func openSecureSQLite(path string, key string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", secureDSN(path, key))
	if err != nil {
		return nil, fmt.Errorf("open encrypted cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := checkCacheKey(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
		db.Close()
		return nil, fmt.Errorf("restrict encrypted cache permissions: %w", err)
	}
	return db, nil
}

// checkCacheKey reads the schema, the first access that decrypts a page.
// A key mismatch surfaces here rather than on Ping.
func checkCacheKey(db *sql.DB) error {
	var tables int
	if err := db.QueryRow("SELECT count(*) FROM sqlite_master").Scan(&tables); err != nil {
		return fmt.Errorf("%w: %v", ErrWrongKey, err)
	}
	return nil
}

func secureSQLiteSupported() bool {
	return true
}
