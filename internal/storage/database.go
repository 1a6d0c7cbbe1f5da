package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLStore реализует SessionStore и QuotaCounter поверх database/sql
type SQLStore struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// Option настраивает SQLStore
type Option func(*SQLStore)

// WithClock подменяет источник времени (для тестов)
func WithClock(now func() time.Time) Option {
	return func(s *SQLStore) { s.now = now }
}

// OpenSQLite открывает файл базы SQLite и создает схему
func OpenSQLite(path string, opts ...Option) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to ensure db dir: %w", err)
		}
	}
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite допускает одного писателя
	db.SetMaxOpenConns(1)
	return newStore(db, DriverSQLite, opts...)
}

// OpenPostgres подключается к PostgreSQL и создает схему
func OpenPostgres(url string, opts ...Option) (*SQLStore, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newStore(db, DriverPostgres, opts...)
}

// Open выбирает драйвер по имени
func Open(driver, sqlitePath, postgresURL string, opts ...Option) (*SQLStore, error) {
	switch driver {
	case DriverSQLite:
		return OpenSQLite(sqlitePath, opts...)
	case DriverPostgres:
		return OpenPostgres(postgresURL, opts...)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func newStore(db *sql.DB, driver string, opts ...Option) (*SQLStore, error) {
	s := &SQLStore{db: db, driver: driver, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close закрывает соединение с базой
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// initSchema создает таблицы
func (s *SQLStore) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS interview_sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			data TEXT NOT NULL,
			version BIGINT NOT NULL DEFAULT 1,
			created_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interview_sessions_expires ON interview_sessions(expires_at)`,
		`CREATE TABLE IF NOT EXISTS quota_usage (
			user_id TEXT NOT NULL,
			period TEXT NOT NULL,
			used INTEGER NOT NULL DEFAULT 0,
			updated_at BIGINT NOT NULL,
			PRIMARY KEY (user_id, period)
		)`,
		`CREATE TABLE IF NOT EXISTS quota_charges (
			charge_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			period TEXT NOT NULL,
			allowed BOOLEAN NOT NULL,
			created_at BIGINT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind переводит плейсхолдеры ? в $n для PostgreSQL
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
