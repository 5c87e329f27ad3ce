// Package storage is the local cache: a SQLite database holding the latest
// snapshot per user plus sync bookkeeping.
package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lachiem1/payplan/internal/auth"
)

type Mode string

const (
	// ModePlain uses the pure-Go driver with no encryption.
	ModePlain Mode = "plain"
	// ModeSecure uses SQLCipher with a key kept in the system keyring.
	ModeSecure Mode = "secure"
)

const schemaVersion = 4

var ErrSecureUnsupported = errors.New(
	"secure mode requires a sqlcipher-enabled build; rebuild with '-tags sqlcipher'",
)

type Config struct {
	Mode Mode
	Path string
}

// ParseMode accepts "plain" or "secure"; empty means plain.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModePlain:
		return ModePlain, nil
	case ModeSecure:
		return ModeSecure, nil
	default:
		return "", fmt.Errorf("unknown storage mode %q (want plain or secure)", raw)
	}
}

// ResolveConfig fills in the database path. PAYPLAN_DB_PATH wins over the
// configured path, which wins over the user config directory.
func ResolveConfig(cfg Config) (Config, error) {
	if cfg.Mode == "" {
		cfg.Mode = ModePlain
	}
	if dbPath := strings.TrimSpace(os.Getenv("PAYPLAN_DB_PATH")); dbPath != "" {
		cfg.Path = dbPath
		return cfg, nil
	}
	if strings.TrimSpace(cfg.Path) != "" {
		return cfg, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve user config directory: %w", err)
	}
	cfg.Path = filepath.Join(configDir, "payplan", "payplan.db")
	return cfg, nil
}

func Open(ctx context.Context, cfg Config) (*sql.DB, Config, error) {
	cfg, err := ResolveConfig(cfg)
	if err != nil {
		return nil, Config{}, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
		return nil, Config{}, fmt.Errorf("create db directory: %w", err)
	}

	var db *sql.DB
	switch cfg.Mode {
	case ModeSecure:
		db, err = openSecure(cfg.Path)
	default:
		db, err = openPlainSQLite(cfg.Path)
	}
	if err != nil {
		return nil, Config{}, err
	}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, Config{}, err
	}

	return db, cfg, nil
}

func openSecure(path string) (*sql.DB, error) {
	if !secureSQLiteSupported() {
		return nil, ErrSecureUnsupported
	}

	key, created, err := ensureDBKey()
	if err != nil {
		return nil, fmt.Errorf("ensure secure db key: %w", err)
	}
	if created {
		// Files encrypted under a lost key are unreadable; start over.
		if err := resetLocalDBFiles(path); err != nil {
			return nil, fmt.Errorf("reset db after key creation: %w", err)
		}
	}
	db, err := openSecureSQLite(path, key)
	if errors.Is(err, ErrWrongKey) {
		return nil, fmt.Errorf("%w; run `payplan wipe` to rebuild it from the remote", err)
	}
	return db, err
}

// Wipe removes local database files for the resolved DB path.
func Wipe(cfg Config) (Config, error) {
	cfg, err := ResolveConfig(cfg)
	if err != nil {
		return Config{}, err
	}
	if err := resetLocalDBFiles(cfg.Path); err != nil {
		return Config{}, fmt.Errorf("wipe local db files: %w", err)
	}
	return cfg, nil
}

// Exists reports whether any database file is present at the resolved path.
func Exists(cfg Config) (bool, error) {
	cfg, err := ResolveConfig(cfg)
	if err != nil {
		return false, err
	}
	return hasLocalDBFiles(cfg.Path)
}

func ensureDBKey() (key string, created bool, err error) {
	key, err = auth.LoadDBKey()
	if err == nil && strings.TrimSpace(key) != "" {
		return key, false, nil
	}

	newKey, err := generateRandomKey()
	if err != nil {
		return "", false, err
	}

	if err := auth.SaveDBKey(newKey); err != nil {
		return "", false, err
	}
	return newKey, true, nil
}

func generateRandomKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return base64.RawStdEncoding.EncodeToString(buf), nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	const bootstrapSchema = `
CREATE TABLE IF NOT EXISTS schema_migrations (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  version INTEGER NOT NULL
);

INSERT OR IGNORE INTO schema_migrations (id, version) VALUES (1, 1);
`
	if _, err := db.ExecContext(ctx, bootstrapSchema); err != nil {
		return fmt.Errorf("run sqlite migrations: %w", err)
	}

	var currentVersion int
	if err := db.QueryRowContext(ctx, "SELECT version FROM schema_migrations WHERE id = 1").Scan(&currentVersion); err != nil {
		return fmt.Errorf("read sqlite schema version: %w", err)
	}

	if currentVersion > schemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", currentVersion, schemaVersion)
	}

	if currentVersion < 2 {
		if err := applyV2Migrations(ctx, db); err != nil {
			return err
		}
		currentVersion = 2
	}
	if currentVersion < 3 {
		if err := applyV3Migrations(ctx, db); err != nil {
			return err
		}
		currentVersion = 3
	}
	if currentVersion < 4 {
		if err := applyV4Migrations(ctx, db); err != nil {
			return err
		}
	}

	return nil
}

func applyV2Migrations(ctx context.Context, db *sql.DB) (err error) {
	const schema = `
CREATE TABLE IF NOT EXISTS sync_state (
  collection TEXT PRIMARY KEY,
  last_success_at TEXT,
  last_attempt_at TEXT,
  last_error TEXT
);

CREATE TABLE IF NOT EXISTS snapshots (
  user_id TEXT PRIMARY KEY,
  payload TEXT NOT NULL,
  generation INTEGER NOT NULL DEFAULT 0,
  origin TEXT NOT NULL DEFAULT '',
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS app_config (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
`
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sqlite migration v2 transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("run sqlite v2 migrations: %w", err)
	}
	if _, err = tx.ExecContext(ctx, "UPDATE schema_migrations SET version = 2 WHERE id = 1"); err != nil {
		return fmt.Errorf("update sqlite schema version to 2: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit sqlite v2 migrations: %w", err)
	}
	return nil
}

// v3 tracks the last generation pushed to the remote store.
func applyV3Migrations(ctx context.Context, db *sql.DB) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sqlite migration v3 transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	hasGeneration, err := tableHasColumn(ctx, tx, "sync_state", "last_generation")
	if err != nil {
		return err
	}
	if !hasGeneration {
		if _, err = tx.ExecContext(
			ctx,
			"ALTER TABLE sync_state ADD COLUMN last_generation INTEGER NOT NULL DEFAULT 0",
		); err != nil {
			return fmt.Errorf("add sync_state.last_generation column: %w", err)
		}
	}
	if _, err = tx.ExecContext(
		ctx,
		"CREATE INDEX IF NOT EXISTS idx_snapshots_updated_at ON snapshots(updated_at)",
	); err != nil {
		return fmt.Errorf("create snapshots updated_at index: %w", err)
	}
	if _, err = tx.ExecContext(ctx, "UPDATE schema_migrations SET version = 3 WHERE id = 1"); err != nil {
		return fmt.Errorf("update sqlite schema version to 3: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit sqlite v3 migrations: %w", err)
	}
	return nil
}

// applyV4Migrations records which document the remote held at the last
// successful sync, so a restart does not reapply a document already seen.
func applyV4Migrations(ctx context.Context, db *sql.DB) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sqlite migration v4 transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	columns := []struct{ name, ddl string }{
		{"last_origin", "ALTER TABLE sync_state ADD COLUMN last_origin TEXT NOT NULL DEFAULT ''"},
		{"last_saved_at", "ALTER TABLE sync_state ADD COLUMN last_saved_at TEXT"},
	}
	for _, col := range columns {
		has, err := tableHasColumn(ctx, tx, "sync_state", col.name)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err = tx.ExecContext(ctx, col.ddl); err != nil {
			return fmt.Errorf("add sync_state.%s column: %w", col.name, err)
		}
	}
	if _, err = tx.ExecContext(ctx, "UPDATE schema_migrations SET version = 4 WHERE id = 1"); err != nil {
		return fmt.Errorf("update sqlite schema version to 4: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit sqlite v4 migrations: %w", err)
	}
	return nil
}

func tableHasColumn(ctx context.Context, tx *sql.Tx, tableName, columnName string) (bool, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return false, fmt.Errorf("query table info for %s: %w", tableName, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name string
		var ctype sql.NullString
		var notNull int
		var defaultValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &defaultValue, &pk); err != nil {
			return false, fmt.Errorf("scan table info for %s: %w", tableName, err)
		}
		if name == columnName {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("read table info rows for %s: %w", tableName, err)
	}
	return false, nil
}

func dbFilePaths(path string) []string {
	return []string{
		path,
		path + "-wal",
		path + "-shm",
	}
}

func hasLocalDBFiles(path string) (bool, error) {
	for _, p := range dbFilePaths(path) {
		_, err := os.Stat(p)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("stat %s: %w", p, err)
		}
	}
	return false, nil
}

func resetLocalDBFiles(path string) error {
	for _, p := range dbFilePaths(path) {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}
