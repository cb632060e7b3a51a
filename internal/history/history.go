package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	dirPermissions    = 0750
	filePermissions   = 0600
	connectionTimeout = 5 * time.Second

	// DefaultLimit and MaxLimit bound Recent.
	DefaultLimit = 50
	MaxLimit     = 200
)

// ErrDisabled is returned by a nil or disabled Store.
var ErrDisabled = errors.New("history: disabled")

// Source identifies where a command came from.
type Source string

const (
	SourceMQTT Source = "mqtt"
	SourceHTTP Source = "http"
)

// Entry is one recorded command.
type Entry struct {
	ID         int64     `json:"id"`
	ReceivedAt time.Time `json:"received_at"`
	Source     Source    `json:"source"`
	Topic      string    `json:"topic"`
	Payload    string    `json:"payload"`
	Accepted   bool      `json:"accepted"`
	ActivePump int       `json:"active_pump"`
	Intensity  int       `json:"intensity"`
}

// Config contains store options.
type Config struct {
	Path string

	// BusyTimeout is the lock wait in seconds.
	BusyTimeout int
}

// Store is the SQLite-backed command log.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates the database directory if needed, opens the file in WAL
// mode and applies pending migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL",
		cfg.Path, cfg.BusyTimeout*1000)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer; readers share it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}
	_ = os.Chmod(cfg.Path, filePermissions)

	s := &Store{db: db, path: cfg.Path}
	if err := s.migrate(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Record inserts e. A zero ReceivedAt is set to now.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if s == nil {
		return 0, ErrDisabled
	}
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO command_history (received_at, source, topic, payload, accepted, active_pump, intensity)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ReceivedAt.UnixMilli(), string(e.Source), e.Topic, e.Payload, e.Accepted, e.ActivePump, e.Intensity)
	if err != nil {
		return 0, fmt.Errorf("recording command: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit entries, newest first. limit is clamped to
// [1, MaxLimit]; zero or negative selects DefaultLimit.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s == nil {
		return nil, ErrDisabled
	}
	limit = ClampLimit(limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, received_at, source, topic, payload, accepted, active_pump, intensity
		 FROM command_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e      Entry
			ms     int64
			source string
		)
		if err := rows.Scan(&e.ID, &ms, &source, &e.Topic, &e.Payload, &e.Accepted, &e.ActivePump, &e.Intensity); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.ReceivedAt = time.UnixMilli(ms).UTC()
		e.Source = Source(source)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return entries, nil
}

// Count returns the number of recorded commands.
func (s *Store) Count(ctx context.Context) (int, error) {
	if s == nil {
		return 0, ErrDisabled
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM command_history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting history: %w", err)
	}
	return n, nil
}

// ClampLimit applies the Recent limit rules.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
