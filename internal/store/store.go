// Package store provides the SQLite storage layer for casewright.
//
// All persistent data lives in a single SQLite database file:
// - Extracted use cases, scoped by session
// - Sessions with their project context
// - Conversation history per session
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/casewright/casewright/internal/model"
)

// DefaultDBPath is the default database location.
const DefaultDBPath = "requirements.db"

// SessionInfo is a session with its use case count, for listings.
type SessionInfo struct {
	model.Session
	UseCaseCount int `json:"use_case_count"`
}

// Store defines the storage interface.
type Store interface {
	// Use cases
	InsertUseCase(ctx context.Context, sessionID string, uc model.UseCase) (int64, error)
	GetUseCase(ctx context.Context, id int64) (*model.UseCase, error)
	GetUseCaseSession(ctx context.Context, id int64) (string, error)
	UpdateUseCase(ctx context.Context, id int64, uc model.UseCase) error
	ListSessionUseCases(ctx context.Context, sessionID string) ([]model.UseCase, error)
	ListOtherSessionUseCases(ctx context.Context, sessionID string) ([]model.UseCase, error)
	ListAllUseCases(ctx context.Context) ([]model.UseCase, error)

	// Sessions
	CreateSession(ctx context.Context, s model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	UpdateSessionContext(ctx context.Context, id, projectContext, domain string) error
	TouchSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context) ([]SessionInfo, error)
	DeleteSession(ctx context.Context, id string) error

	// Conversation history
	AddMessage(ctx context.Context, msg model.ConversationMessage) (int64, error)
	GetHistory(ctx context.Context, sessionID string, limit int) ([]model.ConversationMessage, error)

	Close() error
}

// SQLiteStore implements Store on a single SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// New creates a new SQLite-backed Store.
// Pass ":memory:" for in-memory databases (testing).
func New(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}

	// Create parent directory for non-memory databases
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// An in-memory database exists per connection; cap the pool so every
	// query sees the same database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, dbPath: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	project_context TEXT NOT NULL DEFAULT '',
	domain TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_active TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS use_cases (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	preconditions TEXT NOT NULL,
	main_flow TEXT NOT NULL,
	sub_flows TEXT NOT NULL,
	alternate_flows TEXT NOT NULL,
	outcomes TEXT NOT NULL,
	stakeholders TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_use_cases_session ON use_cases(session_id);

CREATE TABLE IF NOT EXISTS conversation_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_history_session ON conversation_history(session_id);
`

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}
