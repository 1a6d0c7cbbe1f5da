package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"mock-interview/internal/interview"
)

// Create сохраняет новую сессию с версией 1
func (s *SQLStore) Create(ctx context.Context, sess *interview.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	query := s.rebind(`
		INSERT INTO interview_sessions (id, user_id, data, version, created_at, expires_at)
		VALUES (?, ?, ?, 1, ?, ?)
	`)
	_, err = s.db.ExecContext(ctx, query,
		sess.ID,
		sess.UserID,
		string(data),
		sess.CreatedAt.Unix(),
		sess.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Get возвращает неистекшую сессию по ID
func (s *SQLStore) Get(ctx context.Context, id string) (*Record, error) {
	query := s.rebind(`
		SELECT data, version
		FROM interview_sessions
		WHERE id = ? AND expires_at > ?
	`)

	var data string
	var version int64
	err := s.db.QueryRowContext(ctx, query, id, s.now().Unix()).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	sess := &interview.Session{}
	if err := json.Unmarshal([]byte(data), sess); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &Record{Session: sess, Version: version}, nil
}

// Update записывает сессию, если версия в базе равна version.
// Возвращает новую версию.
func (s *SQLStore) Update(ctx context.Context, sess *interview.Session, version int64) (int64, error) {
	data, err := json.Marshal(sess)
	if err != nil {
		return 0, fmt.Errorf("failed to encode session: %w", err)
	}

	query := s.rebind(`
		UPDATE interview_sessions
		SET data = ?, version = version + 1
		WHERE id = ? AND version = ? AND expires_at > ?
	`)
	result, err := s.db.ExecContext(ctx, query, string(data), sess.ID, version, s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to update session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 1 {
		return version + 1, nil
	}

	// Отличаем истекшую сессию от гонки
	if _, err := s.Get(ctx, sess.ID); err != nil {
		return 0, err
	}
	return 0, ErrConflict
}

// PurgeExpired удаляет истекшие сессии
func (s *SQLStore) PurgeExpired(ctx context.Context) (int64, error) {
	query := s.rebind(`DELETE FROM interview_sessions WHERE expires_at <= ?`)
	result, err := s.db.ExecContext(ctx, query, s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}
