package db

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row does not exist
var ErrNotFound = errors.New("record not found")

// DB wraps the database connection
type DB struct {
	*sqlx.DB
	dbPath string
}

// Init initializes the database connection and runs migrations
func Init(dbPath string) (*DB, error) {
	// Ensure data directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	// Open database connection
	sqlDB, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// SQLite serialises writers; one connection avoids SQLITE_BUSY under load
	sqlDB.SetMaxOpenConns(1)

	db := &DB{sqlDB, dbPath}

	// Run migrations
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return db, nil
}

// GetDBPath returns the database file path
func (db *DB) GetDBPath() string {
	return db.dbPath
}

// migrate runs database migrations
func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			login TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			access_token TEXT NOT NULL DEFAULT '',
			organizations TEXT NOT NULL DEFAULT '[]',
			teams TEXT NOT NULL DEFAULT '[]',
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			// Ignore error if column already exists
			if !isDuplicateColumnError(err) {
				return err
			}
		}
	}

	return nil
}

// isDuplicateColumnError checks if error is about duplicate column
func isDuplicateColumnError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "duplicate column name") ||
		strings.Contains(errStr, "already exists")
}

// SaveSession inserts or replaces a session row
func (db *DB) SaveSession(ctx context.Context, row *SessionRow) error {
	_, err := db.NamedExecContext(ctx,
		`INSERT OR REPLACE INTO sessions
			(id, user_id, login, name, avatar_url, access_token, organizations, teams, created_at, expires_at)
		VALUES
			(:id, :user_id, :login, :name, :avatar_url, :access_token, :organizations, :teams, :created_at, :expires_at)`,
		row,
	)
	return err
}

// GetSession retrieves a session by ID
func (db *DB) GetSession(ctx context.Context, id string) (*SessionRow, error) {
	row := &SessionRow{}
	err := db.GetContext(ctx, row,
		"SELECT id, user_id, login, name, avatar_url, access_token, organizations, teams, created_at, expires_at FROM sessions WHERE id = ?",
		id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// DeleteSession deletes a session
func (db *DB) DeleteSession(ctx context.Context, id string) error {
	_, err := db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	return err
}

// DeleteExpiredSessions deletes sessions expired at now and returns how many went
func (db *DB) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountSessions returns the number of stored sessions
func (db *DB) CountSessions(ctx context.Context) (int, error) {
	var count int
	err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM sessions")
	return count, err
}
