package core

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DatabaseManager owns the task database connection (sqlite or postgres)
type DatabaseManager struct {
	driver string
	dsn    string
	db     *sql.DB
	log    *logrus.Entry
}

var (
	instances = make(map[string]*DatabaseManager)
	instLock  sync.Mutex
)

// DefaultDBPath sqlite file used for a data directory
func DefaultDBPath(dataDir string) string {
	return filepath.Join(dataDir, ".planner-data", "planner.db")
}

// GetDBForDataDir returns the shared sqlite manager for a data directory.
func GetDBForDataDir(dataDir string) (*DatabaseManager, error) {
	absRoot, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, err
	}

	instLock.Lock()
	defer instLock.Unlock()

	if mgr, ok := instances[absRoot]; ok {
		return mgr, nil
	}

	if !ValidateDataDir(absRoot) {
		return nil, fmt.Errorf("invalid data dir: %s", absRoot)
	}

	mgr, err := NewDatabaseManager(DriverSQLite, DefaultDBPath(absRoot))
	if err != nil {
		return nil, err
	}
	instances[absRoot] = mgr
	return mgr, nil
}

// NewDatabaseManager opens a dedicated connection. For sqlite the dsn is a file path.
func NewDatabaseManager(driver, dsn string) (*DatabaseManager, error) {
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported db driver: %s", driver)
	}
	mgr := &DatabaseManager{
		driver: driver,
		dsn:    dsn,
		log:    logrus.WithField("component", "db"),
	}
	if err := mgr.init(); err != nil {
		return nil, err
	}
	return mgr, nil
}

func (m *DatabaseManager) init() error {
	if m.driver == DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(m.dsn), 0755); err != nil {
			return err
		}
	}

	db, err := sql.Open(m.driver, m.dsn)
	if err != nil {
		return err
	}

	if m.driver == DriverSQLite {
		// WAL + busy timeout; one writer is enough for a single-user planner
		db.SetMaxOpenConns(1)
		pragmas := []string{
			"PRAGMA foreign_keys = ON",
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
			"PRAGMA busy_timeout = 30000",
		}
		for _, p := range pragmas {
			if _, err := db.Exec(p); err != nil {
				db.Close()
				return err
			}
		}
	} else if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	m.db = db

	if err := m.healSchema(); err != nil {
		m.log.Warnf("[DB][WARN] Schema healing failed: %v", err)
	}

	return nil
}

func (m *DatabaseManager) healSchema() error {
	var schema string
	if m.driver == DriverPostgres {
		schema = `CREATE TABLE IF NOT EXISTS tasks (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			text TEXT NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			archived BOOLEAN NOT NULL DEFAULT FALSE,
			time_slot TEXT,
			due_date TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (NOT archived OR completed)
		)`
	} else {
		schema = `CREATE TABLE IF NOT EXISTS tasks (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			text TEXT NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT 0,
			archived BOOLEAN NOT NULL DEFAULT 0,
			time_slot TEXT,
			due_date TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			CHECK (archived = 0 OR completed = 1)
		)`
	}
	if _, err := m.db.Exec(schema); err != nil {
		return err
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_tasks_archived ON tasks(archived, seq)",
		"CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date)",
	}
	for _, idx := range indexes {
		if _, err := m.db.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}

// Driver returns the sql driver name.
func (m *DatabaseManager) Driver() string { return m.driver }

// rebind converts ? placeholders to $N for postgres.
func (m *DatabaseManager) rebind(query string) string {
	if m.driver != DriverPostgres || !strings.Contains(query, "?") {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Exec runs a write statement
func (m *DatabaseManager) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return m.db.ExecContext(ctx, m.rebind(query), args...)
}

// QueryRow runs a single-row query
func (m *DatabaseManager) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return m.db.QueryRowContext(ctx, m.rebind(query), args...)
}

// Query runs a multi-row query
func (m *DatabaseManager) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return m.db.QueryContext(ctx, m.rebind(query), args...)
}

// Close closes the connection and drops it from the shared cache.
func (m *DatabaseManager) Close() error {
	instLock.Lock()
	for k, v := range instances {
		if v == m {
			delete(instances, k)
		}
	}
	instLock.Unlock()

	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
