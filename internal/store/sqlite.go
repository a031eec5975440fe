package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/socratic-labs/dialogue/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite. Each session is one row
// holding its JSON encoding.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex // serializes read-modify-write cycles
}

// NewSQLite opens (or creates) a SQLite-backed repository. dsn is either a
// filesystem path or a "file:" URI such as "file:dialogue?mode=memory&cache=shared".
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", withPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection keeps in-memory databases alive for the life of
	// the pool and matches the store-wide mutex.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)"
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetOrCreate returns the session for id, inserting init() if absent. An
// existing row is only read, so its updated_at is left alone.
func (s *SQLiteStore) GetOrCreate(ctx context.Context, id string, init InitFunc) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seed := seedOnce(init)
	var result *domain.Session
	err := withBusyRetry(ctx, "get_or_create", func() error {
		session, err := loadSession(ctx, s.db, id)
		if err != nil {
			return err
		}
		if session == nil {
			session = seed()
			if err := upsertSession(ctx, s.db, id, session); err != nil {
				return err
			}
		}
		result = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result.Clone(), nil
}

// Put overwrites the session for id.
func (s *SQLiteStore) Put(ctx context.Context, id string, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return withBusyRetry(ctx, "put", func() error {
		return upsertSession(ctx, s.db, id, session)
	})
}

// Update loads or creates the session, applies fn and writes the result in
// a single transaction.
func (s *SQLiteStore) Update(ctx context.Context, id string, init InitFunc, fn MutateFunc) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seed := seedOnce(init)
	var result *domain.Session
	err := withBusyRetry(ctx, "update", func() error {
		var err error
		result, err = s.updateOnce(ctx, id, seed, fn)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLiteStore) updateOnce(ctx context.Context, id string, init InitFunc, fn MutateFunc) (*domain.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.Warn("failed to roll back session transaction", "session_id", id, "error", rbErr)
		}
	}()

	session, err := loadSession(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		session = init()
	}

	if err := fn(session); err != nil {
		return nil, err
	}

	if err := upsertSession(ctx, tx, id, session); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit session: %w", err)
	}
	return session.Clone(), nil
}

// seedOnce wraps init so every retry within one call sees the same seed and
// init runs at most once.
func seedOnce(init InitFunc) InitFunc {
	var seed *domain.Session
	return func() *domain.Session {
		if seed == nil {
			seed = init()
		}
		return seed.Clone()
	}
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadSession(ctx context.Context, q execQuerier, id string) (*domain.Session, error) {
	var data string
	err := q.QueryRowContext(ctx, `SELECT data FROM sessions WHERE session_id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("decode session %q: %w", id, err)
	}
	if session.Fallacies == nil {
		session.Fallacies = []string{}
	}
	return &session, nil
}

func upsertSession(ctx context.Context, q execQuerier, id string, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %q: %w", id, err)
	}

	query := `
	INSERT INTO sessions (session_id, data, created_at, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(session_id) DO UPDATE SET
		data = excluded.data,
		updated_at = excluded.updated_at`

	now := time.Now().Unix()
	if _, err := q.ExecContext(ctx, query, id, string(data), now, now); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}
