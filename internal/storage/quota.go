package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Used возвращает количество использований за период
func (s *SQLStore) Used(ctx context.Context, userID, period string) (int, error) {
	query := s.rebind(`SELECT used FROM quota_usage WHERE user_id = ? AND period = ?`)

	var used int
	err := s.db.QueryRowContext(ctx, query, userID, period).Scan(&used)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get quota usage: %w", err)
	}
	return used, nil
}

// Charge списывает квоту за сессию chargeID не более одного раза. Повторный
// вызов с тем же chargeID возвращает сохраненный результат и не трогает
// счетчик.
func (s *SQLStore) Charge(ctx context.Context, chargeID, userID, period string, limit int) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin quota charge: %w", err)
	}
	defer tx.Rollback()

	claim := s.rebind(`
		INSERT INTO quota_charges (charge_id, user_id, period, allowed, created_at)
		VALUES (?, ?, ?, FALSE, ?)
		ON CONFLICT (charge_id) DO NOTHING
	`)
	result, err := tx.ExecContext(ctx, claim, chargeID, userID, period, s.now().Unix())
	if err != nil {
		return false, fmt.Errorf("failed to claim quota charge: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		tx.Rollback()
		return s.charged(ctx, chargeID)
	}

	allowed, err := s.increment(ctx, tx, userID, period, limit)
	if err != nil {
		return false, err
	}
	update := s.rebind(`UPDATE quota_charges SET allowed = ? WHERE charge_id = ?`)
	if _, err := tx.ExecContext(ctx, update, allowed, chargeID); err != nil {
		return false, fmt.Errorf("failed to record quota charge: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit quota charge: %w", err)
	}
	return allowed, nil
}

func (s *SQLStore) charged(ctx context.Context, chargeID string) (bool, error) {
	var allowed bool
	query := s.rebind(`SELECT allowed FROM quota_charges WHERE charge_id = ?`)
	if err := s.db.QueryRowContext(ctx, query, chargeID).Scan(&allowed); err != nil {
		return false, fmt.Errorf("failed to read quota charge: %w", err)
	}
	return allowed, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// increment атомарно увеличивает счетчик одним запросом. Если счетчик уже
// достиг limit, строка не меняется и возвращается false.
func (s *SQLStore) increment(ctx context.Context, db execer, userID, period string, limit int) (bool, error) {
	if limit <= 0 {
		return false, nil
	}

	query := s.rebind(`
		INSERT INTO quota_usage (user_id, period, used, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT (user_id, period) DO UPDATE
		SET used = quota_usage.used + 1, updated_at = excluded.updated_at
		WHERE quota_usage.used < ?
	`)
	result, err := db.ExecContext(ctx, query, userID, period, s.now().Unix(), limit)
	if err != nil {
		return false, fmt.Errorf("failed to increment quota: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n == 1, nil
}
