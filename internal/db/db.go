package db

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

var (
	ErrNotFound  = errors.New("not found")
	ErrIntegrity = errors.New("integrity check failed")
)

type DB struct {
	*sqlx.DB
}

func New(dbPath string) (*DB, error) {
	db, err := sqlx.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// dsn enables foreign keys on every pooled connection, not just the first.
func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// RunMigrations applies the schema bundled with the binary.
func (db *DB) RunMigrations() error {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	return db.RunMigrationsFrom(sub)
}

// RunMigrationsDir applies migrations from a directory on disk.
func (db *DB) RunMigrationsDir(dir string) error {
	return db.RunMigrationsFrom(os.DirFS(dir))
}

func (db *DB) RunMigrationsFrom(fsys fs.FS) error {
	if err := db.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations, err := getMigrationFiles(fsys)
	if err != nil {
		return fmt.Errorf("failed to get migration files: %w", err)
	}

	appliedMigrations, err := db.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range migrations {
		if _, applied := appliedMigrations[migration.name]; !applied {
			if err := db.applyMigration(fsys, migration); err != nil {
				return fmt.Errorf("failed to apply migration %s: %w", migration.name, err)
			}
		}
	}

	return nil
}

type migration struct {
	name    string
	version int
	path    string
}

func (db *DB) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`
	_, err := db.Exec(query)
	return err
}

func getMigrationFiles(fsys fs.FS) ([]migration, error) {
	var migrations []migration

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || !strings.HasSuffix(d.Name(), ".sql") {
			return nil
		}

		parts := strings.SplitN(d.Name(), "_", 2)
		if len(parts) != 2 {
			return nil
		}

		version, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil
		}

		migrations = append(migrations, migration{
			name:    strings.TrimSuffix(path.Base(p), ".sql"),
			version: version,
			path:    p,
		})

		return nil
	})

	if err != nil {
		return nil, err
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].version < migrations[j].version
	})

	return migrations, nil
}

func (db *DB) getAppliedMigrations() (map[string]bool, error) {
	var names []string
	if err := db.Select(&names, "SELECT name FROM migrations"); err != nil {
		return nil, err
	}

	applied := make(map[string]bool, len(names))
	for _, name := range names {
		applied[name] = true
	}
	return applied, nil
}

func (db *DB) applyMigration(fsys fs.FS, m migration) error {
	content, err := fs.ReadFile(fsys, m.path)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	statements := strings.Split(string(content), ";")
	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}

		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute statement: %w", err)
		}
	}

	if _, err := tx.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)", m.version, m.name); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}

type foreignKeyViolation struct {
	Table  string `db:"table"`
	RowID  *int64 `db:"rowid"`
	Parent string `db:"parent"`
	FKID   int    `db:"fkid"`
}

// CheckIntegrity runs SQLite's integrity and foreign key checks. Both report
// problems as result rows, so any row other than a single "ok" is an error.
func (db *DB) CheckIntegrity() error {
	var messages []string
	if err := db.Select(&messages, "PRAGMA integrity_check"); err != nil {
		return fmt.Errorf("failed to run integrity check: %w", err)
	}
	if len(messages) != 1 || messages[0] != "ok" {
		return fmt.Errorf("%w: %s", ErrIntegrity, strings.Join(messages, "; "))
	}

	var violations []foreignKeyViolation
	if err := db.Select(&violations, "PRAGMA foreign_key_check"); err != nil {
		return fmt.Errorf("failed to run foreign key check: %w", err)
	}
	if len(violations) > 0 {
		details := make([]string, 0, len(violations))
		for _, v := range violations {
			row := "?"
			if v.RowID != nil {
				row = strconv.FormatInt(*v.RowID, 10)
			}
			details = append(details, fmt.Sprintf("%s row %s references missing %s", v.Table, row, v.Parent))
		}
		return fmt.Errorf("%w: %d foreign key violations: %s", ErrIntegrity, len(violations), strings.Join(details, "; "))
	}

	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
