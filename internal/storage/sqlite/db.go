package sqlite

import (
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/primer/internal/storage/migrations"
	_ "github.com/mattn/go-sqlite3"
)

// DB is a single-writer SQLite connection for the attempt store
type DB struct {
	*sql.DB
}

// Open opens the database at path with WAL journaling and foreign keys on
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	return &DB{DB: db}, nil
}

// migration is one numbered file of the embedded migrations
type migration struct {
	version int
	name    string
}

// loadMigrations returns the embedded migrations ordered by version
func loadMigrations(fsys fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var out []migration
	seen := make(map[int]string)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		version, err := parseVersion(e.Name())
		if err != nil {
			slog.Warn("skipping non-migration file", "name", e.Name(), "error", err)
			continue
		}
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d", other, e.Name(), version)
		}
		seen[version] = e.Name()
		out = append(out, migration{version: version, name: e.Name()})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

// Migrate applies every embedded migration newer than the recorded schema
// version. Each migration runs in its own transaction.
func (db *DB) Migrate() error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	current, err := db.Version()
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	pending, err := loadMigrations(migrations.FS)
	if err != nil {
		return err
	}

	applied := 0
	for _, m := range pending {
		if m.version <= current {
			continue
		}
		if err := db.apply(m); err != nil {
			return err
		}
		applied++
		slog.Info("applied migration", "name", m.name, "version", m.version)
	}

	if applied > 0 {
		slog.Info("migrations complete", "applied", applied, "version", pending[len(pending)-1].version)
	}
	return nil
}

func (db *DB) apply(m migration) error {
	data, err := fs.ReadFile(migrations.FS, m.name)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", m.name, err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", m.name, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(data)); err != nil {
		return fmt.Errorf("apply migration %s: %w", m.name, err)
	}
	if _, err := tx.Exec("INSERT OR REPLACE INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
		return fmt.Errorf("record migration %s: %w", m.name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", m.name, err)
	}
	return nil
}

// Version returns the highest applied migration, 0 for a fresh database
func (db *DB) Version() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

// parseVersion reads the leading number of "001_attempts.sql"
func parseVersion(name string) (int, error) {
	prefix, _, found := strings.Cut(name, "_")
	if !found {
		return 0, fmt.Errorf("invalid migration filename: %s", name)
	}
	version, err := strconv.Atoi(prefix)
	if err != nil || version <= 0 {
		return 0, fmt.Errorf("invalid migration version in %s", name)
	}
	return version, nil
}
